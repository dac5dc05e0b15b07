package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/newswire/internal/cli"
	"horse.fit/newswire/internal/trending"
)

func runTrending(args []string) int {
	fs := flag.NewFlagSet("trending", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	window := fs.Duration("window", trending.DefaultWindow, "Articles extracted within this window are rescored")
	halfLife := fs.Duration("half-life", trending.DefaultHalfLife, "Score decay half-life")
	timeout := fs.Duration("timeout", 2*time.Minute, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	env, err := loadEnvironment(envLoader)
	if err != nil {
		return failf("%v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := env.connect(ctx)
	if err != nil {
		return failf("%v", err)
	}
	defer pool.Close()

	result, err := trending.NewService(pool, *halfLife, env.logger).Recompute(ctx, *window)
	if err != nil {
		return failf("Trending recompute failed: %v", err)
	}

	fmt.Printf("trending window=%s articles=%d updated=%d max_score=%.4f\n", result.Window, result.Articles, result.Updated, result.MaxScore)
	return 0
}

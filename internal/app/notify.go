package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/newswire/internal/cli"
)

func runNotify(args []string) int {
	fs := flag.NewFlagSet("notify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	limit := fs.Int("limit", 100, "Maximum pending triggers to deliver")
	timeout := fs.Duration("timeout", 2*time.Minute, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *limit <= 0 {
		fmt.Fprintln(os.Stderr, "--limit must be > 0")
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

	result, err := env.notifier(pool).NotifyPending(ctx, *limit)
	if err != nil {
		return failf("Notify failed: %v", err)
	}

	fmt.Printf("notify pending=%d sent=%d failed=%d gave_up=%d\n", result.Pending, result.Sent, result.Failed, result.GaveUp)
	if result.Failed > 0 {
		return 1
	}
	return 0
}

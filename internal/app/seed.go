package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/newswire/internal/cli"
	"horse.fit/newswire/internal/seed"
)

func runSeed(args []string) int {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	file := fs.String("file", "seed.yaml", "YAML file with sources and alert_rules")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	seedFile, err := seed.Load(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid seed file: %v\n", err)
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

	result, err := seed.Apply(ctx, pool, seedFile)
	if err != nil {
		return failf("Seed failed: %v", err)
	}

	env.logger.Info().
		Int("sources", result.Sources).
		Int("alert_rules", result.AlertRules).
		Msg("seed applied")
	fmt.Printf("seed sources=%d alert_rules=%d\n", result.Sources, result.AlertRules)
	return 0
}

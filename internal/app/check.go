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

func runCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	file := fs.String("file", "", "Candidate JSON file (single object, - for stdin)")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	candidates, err := readCandidates(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid candidate: %v\n", err)
		return 2
	}
	if len(candidates) != 1 {
		fmt.Fprintf(os.Stderr, "check takes exactly one candidate, got %d\n", len(candidates))
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

	result, err := env.ingestService(pool, nil).CheckDuplicate(ctx, candidates[0])
	if err != nil {
		return failf("Check failed: %v", err)
	}
	if err := printJSON(result); err != nil {
		return failf("Failed to encode JSON: %v", err)
	}
	return 0
}

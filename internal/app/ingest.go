package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/newswire/internal/cli"
	"horse.fit/newswire/internal/ingest"
	"horse.fit/newswire/internal/metrics"
)

func runIngest(args []string) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	file := fs.String("file", "", "Candidate batch JSON file (array or single object, - for stdin)")
	dryRun := fs.Bool("dry-run", false, "Evaluate the batch and roll it back")
	strict := fs.Bool("strict", false, "Reject the whole file when any item fails schema validation")
	timeout := fs.Duration("timeout", 5*time.Minute, "Batch deadline; unstarted items are reported as remaining")
	connectTimeout := fs.Duration("connect-timeout", 10*time.Second, "Database connect timeout")
	metricsFile := fs.String("metrics-file", "", "Write Prometheus textfile metrics here after the batch")
	triggeredBy := fs.String("triggered-by", "cli", "Trace for ingest_runs.triggered_by")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	candidates, invalid, err := loadBatch(*file, *strict)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid batch: %v\n", err)
		return 2
	}
	if len(invalid) > 0 {
		for _, itemErr := range invalid {
			fmt.Fprintf(os.Stderr, "INVALID %v\n", itemErr)
		}
		return 2
	}

	env, err := loadEnvironment(envLoader)
	if err != nil {
		return failf("%v", err)
	}

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), *connectTimeout)
	pool, err := env.connect(connectCtx)
	cancelConnect()
	if err != nil {
		return failf("%v", err)
	}
	defer pool.Close()

	collector := metrics.New()
	svc := env.ingestService(pool, collector)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := svc.IngestBatchWith(ctx, candidates, ingest.RunOptions{
		DryRun:      *dryRun,
		TriggeredBy: strings.TrimSpace(*triggeredBy),
	})
	if path := strings.TrimSpace(*metricsFile); path != "" {
		if werr := collector.WriteTextfile(path); werr != nil {
			env.logger.Warn().Err(werr).Str("path", path).Msg("write metrics textfile failed")
		}
	}
	if err != nil {
		return failf("Ingest failed: %v", err)
	}

	if err := printJSON(result); err != nil {
		return failf("Failed to encode JSON: %v", err)
	}
	return 0
}

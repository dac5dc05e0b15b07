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

func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	dayFlag := fs.String("day", "", "UTC day for run totals (YYYY-MM-DD, default today)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "stats does not accept positional arguments")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}
	day, err := parseUTCDate(*dayFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --day: %v\n", err)
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

	dayStart, dayEnd := utcDayBounds(day)
	stats, err := pool.QueryIngestStats(ctx, dayStart, dayEnd)
	if err != nil {
		return failf("Failed to query ingest stats: %v", err)
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(stats); err != nil {
			return failf("Failed to encode JSON: %v", err)
		}
		return 0
	}

	sourceRows := make([][]string, 0, len(stats.Sources)+1)
	for _, row := range stats.Sources {
		sourceRows = append(sourceRows, []string{
			truncateForTable(row.Source, 40),
			fmt.Sprintf("%t", row.Active),
			fmt.Sprintf("%d", row.Articles),
			fmt.Sprintf("%d", row.Alerts),
			formatUTCTimestampPtr(row.LatestArticle),
		})
	}
	sourceRows = append(sourceRows, []string{"TOTAL", "", fmt.Sprintf("%d", stats.TotalArticles), "", ""})

	if err := writeTable([]string{"source", "active", "articles", "alerts", "latest_article_at"}, sourceRows); err != nil {
		return failf("Failed to render source table: %v", err)
	}

	fmt.Println()
	runRows := [][]string{
		{"day", stats.Day},
		{"runs", fmt.Sprintf("%d", stats.Runs.Runs)},
		{"failed_runs", fmt.Sprintf("%d", stats.Runs.Failed)},
		{"received", fmt.Sprintf("%d", stats.Runs.Received)},
		{"saved", fmt.Sprintf("%d", stats.Runs.Saved)},
		{"duplicates", fmt.Sprintf("%d", stats.Runs.Duplicates)},
		{"skipped", fmt.Sprintf("%d", stats.Runs.Skipped)},
		{"alerts_triggered", fmt.Sprintf("%d", stats.Runs.AlertsTriggered)},
		{"errors", fmt.Sprintf("%d", stats.Runs.Errors)},
		{"pending_alerts", fmt.Sprintf("%d", stats.PendingAlerts)},
	}
	if err := writeTable([]string{"metric", "value"}, runRows); err != nil {
		return failf("Failed to render run table: %v", err)
	}
	return 0
}

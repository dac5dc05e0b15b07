package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/newswire/internal/cli"
	"horse.fit/newswire/internal/db"
	"horse.fit/newswire/internal/globaltime"
)

func runArticles(args []string) int {
	fs := flag.NewFlagSet("articles", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	since := fs.Duration("since", 24*time.Hour, "Only articles extracted within this window")
	source := fs.String("source", "", "Filter by source name")
	category := fs.String("category", "", "Filter by category")
	alertsOnly := fs.Bool("alerts", false, "Only articles flagged as alerts")
	byTrending := fs.Bool("trending", false, "Order by trending score")
	limit := fs.Int("limit", 50, "Maximum rows")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *limit <= 0 || *since <= 0 {
		fmt.Fprintln(os.Stderr, "--limit and --since must be > 0")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
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

	now := globaltime.UTC()
	items, err := pool.ListArticles(ctx, db.ArticleListOptions{
		Source:     *source,
		Category:   *category,
		AlertsOnly: *alertsOnly,
		ByTrending: *byTrending,
		From:       now.Add(-*since),
		To:         now.Add(time.Second),
		Limit:      *limit,
	})
	if err != nil {
		return failf("Failed to list articles: %v", err)
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(items); err != nil {
			return failf("Failed to encode JSON: %v", err)
		}
		return 0
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.ArticleID),
			item.ExtractedAt.UTC().Format(time.RFC3339),
			truncateForTable(item.Source, 20),
			truncateForTable(item.Category, 14),
			derefOrDash(item.UrgencyLevel),
			fmt.Sprintf("%.2f", item.TrendingScore),
			truncateForTable(item.Title, 70),
		})
	}
	if err := writeTable([]string{"id", "extracted_at", "source", "category", "urgency", "trending", "title"}, rows); err != nil {
		return failf("Failed to render articles table: %v", err)
	}
	return 0
}

func derefOrDash(value *string) string {
	if value == nil || *value == "" {
		return "-"
	}
	return *value
}

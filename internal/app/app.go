package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "ingest":
		return runIngest(args[1:])
	case "check":
		return runCheck(args[1:])
	case "seed":
		return runSeed(args[1:])
	case "notify":
		return runNotify(args[1:])
	case "trending":
		return runTrending(args[1:])
	case "stats":
		return runStats(args[1:])
	case "articles":
		return runArticles(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "newswire CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  newswire <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health    Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  validate  Validate candidate batch files against the schema")
	fmt.Fprintln(os.Stderr, "  ingest    Deduplicate, enrich and store one candidate batch")
	fmt.Fprintln(os.Stderr, "  check     Report whether one candidate would be a duplicate")
	fmt.Fprintln(os.Stderr, "  seed      Upsert sources and alert rules from a YAML file")
	fmt.Fprintln(os.Stderr, "  notify    Deliver pending alert notifications")
	fmt.Fprintln(os.Stderr, "  trending  Recompute article trending scores")
	fmt.Fprintln(os.Stderr, "  stats     Show per-source counts and ingest run totals")
	fmt.Fprintln(os.Stderr, "  articles  List recently stored articles")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"newswire <command> -h\" for command-specific flags.")
}

package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveBatch(t *testing.T) {
	t.Parallel()

	c := New()
	finished := time.Unix(1_700_000_000, 0)
	c.ObserveBatch(BatchOutcome{
		Status:          "completed",
		Saved:           3,
		Duplicates:      2,
		Errors:          1,
		AlertsTriggered: 4,
		DuplicateTypes:  map[string]int{"exact_link": 1, "similarity": 1},
		Duration:        250 * time.Millisecond,
		FinishedAt:      finished,
	})
	c.ObserveFallback("sentiment")

	if got := testutil.ToFloat64(c.Items.WithLabelValues("saved")); got != 3 {
		t.Fatalf("saved = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.Duplicates.WithLabelValues("similarity")); got != 1 {
		t.Fatalf("similarity duplicates = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.AlertsTriggered); got != 4 {
		t.Fatalf("alerts = %v, want 4", got)
	}
	if got := testutil.ToFloat64(c.Fallbacks.WithLabelValues("sentiment")); got != 1 {
		t.Fatalf("fallbacks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.LastSuccess); got != float64(finished.Unix()) {
		t.Fatalf("last success = %v, want %d", got, finished.Unix())
	}
}

func TestFailedBatchKeepsLastSuccess(t *testing.T) {
	t.Parallel()

	c := New()
	c.ObserveBatch(BatchOutcome{Status: "failed", FinishedAt: time.Unix(10, 0)})
	if got := testutil.ToFloat64(c.LastSuccess); got != 0 {
		t.Fatalf("last success = %v, want 0", got)
	}
	if got := testutil.ToFloat64(c.Batches.WithLabelValues("failed")); got != 1 {
		t.Fatalf("failed batches = %v, want 1", got)
	}
}

func TestNilCollector(t *testing.T) {
	t.Parallel()

	var c *Collector
	c.ObserveBatch(BatchOutcome{Status: "completed"})
	c.ObserveFallback("geo")
	if err := c.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Fatalf("WriteTextfile on nil collector: %v", err)
	}
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	c := New()
	c.ObserveBatch(BatchOutcome{Status: "completed", Saved: 1})

	path := filepath.Join(t.TempDir(), "newswire.prom")
	if err := c.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile returned error: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(raw), `newswire_ingest_items_total{outcome="saved"} 1`) {
		t.Fatalf("textfile missing saved counter:\n%s", raw)
	}
}

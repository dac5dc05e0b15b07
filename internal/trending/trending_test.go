package trending

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newswire/internal/db"
	"horse.fit/newswire/internal/globaltime"
)

func TestScore(t *testing.T) {
	t.Parallel()

	mentions := map[string]int64{"lluvias": 8, "lima": 1, "alerta": 4}

	fresh := Score([]string{"lluvias", "lima", "alerta", "lluvias"}, mentions, 0, time.Hour)
	want := math.Round((math.Log(8)+math.Log(4))*1e4) / 1e4
	if fresh != want {
		t.Fatalf("fresh score = %v, want %v", fresh, want)
	}

	halved := Score([]string{"lluvias", "alerta"}, mentions, time.Hour, time.Hour)
	if math.Abs(halved-fresh/2) > 1e-3 {
		t.Fatalf("score after one half-life = %v, want about %v", halved, fresh/2)
	}

	if got := Score(nil, mentions, 0, time.Hour); got != 0 {
		t.Fatalf("empty keywords score = %v, want 0", got)
	}
	if got := Score([]string{"lima"}, mentions, 0, time.Hour); got != 0 {
		t.Fatalf("single mention score = %v, want 0", got)
	}
}

type fakeStore struct {
	since    time.Time
	articles []db.ArticleKeywords
	mentions map[string]int64
	written  map[int64]float64
}

func (f *fakeStore) RecentArticleKeywords(_ context.Context, since time.Time) ([]db.ArticleKeywords, error) {
	f.since = since
	return f.articles, nil
}

func (f *fakeStore) KeywordMentionCounts(context.Context, time.Time) (map[string]int64, error) {
	return f.mentions, nil
}

func (f *fakeStore) UpdateTrendingScores(_ context.Context, scores map[int64]float64) (int, error) {
	f.written = scores
	return len(scores), nil
}

func TestRecompute(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	defer globaltime.Freeze(now)()

	store := &fakeStore{
		articles: []db.ArticleKeywords{
			{ArticleID: 1, Keywords: []string{"huelga", "transporte"}, ExtractedAt: now},
			{ArticleID: 2, Keywords: []string{"huelga"}, ExtractedAt: now.Add(-12 * time.Hour)},
			{ArticleID: 3, Keywords: []string{"receta"}, ExtractedAt: now},
		},
		mentions: map[string]int64{"huelga": 10, "transporte": 3, "receta": 1},
	}

	res, err := NewService(store, 12*time.Hour, zerolog.Nop()).Recompute(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("Recompute returned error: %v", err)
	}
	if !store.since.Equal(now.Add(-24 * time.Hour)) {
		t.Fatalf("since = %s, want %s", store.since, now.Add(-24*time.Hour))
	}
	if res.Articles != 3 || res.Updated != 3 {
		t.Fatalf("result = %+v, want 3 articles and 3 updates", res)
	}
	if !(store.written[1] > store.written[2] && store.written[2] > store.written[3]) {
		t.Fatalf("scores not ordered by mentions and age: %v", store.written)
	}
	if store.written[3] != 0 {
		t.Fatalf("score for unmentioned keyword = %v, want 0", store.written[3])
	}
	if res.MaxScore != store.written[1] {
		t.Fatalf("max score = %v, want %v", res.MaxScore, store.written[1])
	}
}

func TestRecomputeEmptyWindow(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	res, err := NewService(store, 0, zerolog.Nop()).Recompute(context.Background(), 0)
	if err != nil {
		t.Fatalf("Recompute returned error: %v", err)
	}
	if res.Articles != 0 || store.written != nil {
		t.Fatalf("expected no writes, got %+v and %v", res, store.written)
	}
	if res.Window != DefaultWindow.String() {
		t.Fatalf("window = %q, want %q", res.Window, DefaultWindow.String())
	}
}

package dedup

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"horse.fit/newswire/internal/fingerprint"
)

type fakeRow struct {
	StoredArticle
	link string
	fp   fingerprint.Set
}

type fakeLookup struct {
	rows       []fakeRow
	recentCall int
	err        error
}

func (f *fakeLookup) add(id int64, title, content, link string, sourceID int64, at time.Time) {
	f.rows = append(f.rows, fakeRow{
		StoredArticle: StoredArticle{ID: id, Title: title, SourceID: sourceID, ExtractedAt: at},
		link:          link,
		fp:            fingerprint.Compute(title, content),
	})
}

func (f *fakeLookup) inWindow(r fakeRow, w Window) bool {
	if r.ExtractedAt.Before(w.Since) {
		return false
	}
	return w.SourceID == 0 || r.SourceID == w.SourceID
}

func (f *fakeLookup) ArticleByLink(_ context.Context, link string) (StoredArticle, bool, error) {
	if f.err != nil {
		return StoredArticle{}, false, f.err
	}
	for _, r := range f.rows {
		if r.link != "" && r.link == link {
			return r.StoredArticle, true, nil
		}
	}
	return StoredArticle{}, false, nil
}

func (f *fakeLookup) ArticleByTitleHash(_ context.Context, h string, w Window) (StoredArticle, bool, error) {
	for _, r := range f.rows {
		if r.fp.TitleHash == h && f.inWindow(r, w) {
			return r.StoredArticle, true, nil
		}
	}
	return StoredArticle{}, false, nil
}

func (f *fakeLookup) ArticleByContentHash(_ context.Context, h string, w Window) (StoredArticle, bool, error) {
	for _, r := range f.rows {
		if r.fp.ContentHash != "" && r.fp.ContentHash == h && f.inWindow(r, w) {
			return r.StoredArticle, true, nil
		}
	}
	return StoredArticle{}, false, nil
}

func (f *fakeLookup) ArticlesBySimilarityHash(_ context.Context, h string, w Window, _ int) ([]StoredArticle, error) {
	var out []StoredArticle
	for _, r := range f.rows {
		if r.fp.SimilarityHash == h && f.inWindow(r, w) {
			out = append(out, r.StoredArticle)
		}
	}
	return out, nil
}

func (f *fakeLookup) RecentArticles(_ context.Context, w Window, limit int) ([]StoredArticle, error) {
	f.recentCall++
	var out []StoredArticle
	for _, r := range f.rows {
		if f.inWindow(r, w) {
			out = append(out, r.StoredArticle)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if w.PreferSourceID > 0 {
			pi, pj := out[i].SourceID == w.PreferSourceID, out[j].SourceID == w.PreferSourceID
			if pi != pj {
				return pi
			}
		}
		return out[i].ExtractedAt.After(out[j].ExtractedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestDetector() *Detector {
	return NewDetector(DefaultOptions(), zerolog.Nop())
}

func TestSimilarityIsReflexiveAndSymmetric(t *testing.T) {
	t.Parallel()

	pairs := [][2]string{
		{"Terremoto sacude Lima", "Un terremoto sacude la ciudad de Lima"},
		{"Congreso aprueba reforma", "Reforma aprobada por el congreso"},
		{"abc", "xyz abc"},
		{"Lluvias en Cusco", "Lluvias intensas en Cusco y Puno"},
	}
	for _, p := range pairs {
		require.Equal(t, 1.0, Similarity(p[0], p[0]), "reflexive for %q", p[0])
		require.Equal(t, Similarity(p[0], p[1]), Similarity(p[1], p[0]), "symmetric for %q / %q", p[0], p[1])
	}
}

func TestSimilarityEmptyInputIsZero(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0.0, Similarity("", "algo"))
	require.Equal(t, 0.0, Similarity("!!!", "???"))
}

func TestComparisonKeyFallsBackWhenOnlyStopwords(t *testing.T) {
	t.Parallel()

	require.Equal(t, "terremoto sacude ciudad lima", ComparisonKey("Un terremoto sacude la ciudad de Lima"))
	require.Equal(t, "de la", ComparisonKey("De la"))
}

func TestExactLinkIgnoresWindow(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{}
	lookup.add(7, "Titular antiguo", "", "https://x.com/a", 1, testNow.Add(-90*24*time.Hour))

	res, err := newTestDetector().Check(context.Background(), lookup, Item{
		Title:       "Titular totalmente distinto",
		Link:        "https://x.com/a",
		SourceID:    1,
		ExtractedAt: testNow,
	})
	require.NoError(t, err)
	require.True(t, res.IsDuplicate)
	require.Equal(t, TypeExactLink, res.DuplicateType)
	require.Equal(t, int64(7), *res.MatchedID)
}

func TestTrailingSlashToggleBothWays(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct{ stored, incoming string }{
		{"https://x.com/a", "https://x.com/a/"},
		{"https://x.com/a/", "https://x.com/a"},
	} {
		lookup := &fakeLookup{}
		lookup.add(3, "Primera nota", "", tc.stored, 1, testNow)
		res, err := newTestDetector().Check(context.Background(), lookup, Item{
			Title: "Segunda nota distinta", Link: tc.incoming, SourceID: 1, ExtractedAt: testNow,
		})
		require.NoError(t, err)
		require.Equal(t, TypeExactLinkNormalized, res.DuplicateType, "stored=%s incoming=%s", tc.stored, tc.incoming)
	}
}

func TestSchemeChangeIsNotALinkDuplicate(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{}
	lookup.add(3, "Primera nota", "", "http://x.com/a", 1, testNow)
	res, err := newTestDetector().Check(context.Background(), lookup, Item{
		Title: "Segunda nota distinta", Link: "https://x.com/a", SourceID: 1, ExtractedAt: testNow,
	})
	require.NoError(t, err)
	require.False(t, res.IsDuplicate)
}

func TestTitleHashRespectsLookbackWindow(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{}
	lookup.add(1, "Paro de transportistas en Lima", "", "", 1, testNow.Add(-100*time.Hour))
	item := Item{Title: "Paro de transportistas en Lima", SourceID: 1, ExtractedAt: testNow}

	res, err := newTestDetector().Check(context.Background(), lookup, item)
	require.NoError(t, err)
	require.False(t, res.IsDuplicate)

	res, err = newTestDetector().CheckWithin(context.Background(), lookup, item, 120*time.Hour)
	require.NoError(t, err)
	require.Equal(t, TypeExactTitleHash, res.DuplicateType)
}

func TestContentHashFallback(t *testing.T) {
	t.Parallel()

	body := "El Banco Central mantuvo la tasa de referencia en cinco por ciento por tercer mes consecutivo."
	lookup := &fakeLookup{}
	lookup.add(11, "BCR mantiene tasa", body, "", 1, testNow.Add(-time.Hour))

	res, err := newTestDetector().Check(context.Background(), lookup, Item{
		Title: "Tasa de referencia sin cambios", Content: body, SourceID: 2, ExtractedAt: testNow,
	})
	require.NoError(t, err)
	require.Equal(t, TypeExactContentHash, res.DuplicateType)
	require.Equal(t, int64(11), *res.MatchedID)
}

func TestSimilarityThresholdBoundary(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{}
	lookup.add(5, "abcdefghijklmnopqrst", "", "", 1, testNow.Add(-time.Hour))

	atThreshold, err := newTestDetector().Check(context.Background(), lookup, Item{
		Title: "abcdefghijklmnopqxyz", SourceID: 1, ExtractedAt: testNow,
	})
	require.NoError(t, err)
	require.Equal(t, 0.85, atThreshold.SimilarityScore)
	require.True(t, atThreshold.IsDuplicate)
	require.Equal(t, TypeSimilarity, atThreshold.DuplicateType)

	below, err := newTestDetector().Check(context.Background(), lookup, Item{
		Title: "abcdefghijklmnopwxyz", SourceID: 1, ExtractedAt: testNow,
	})
	require.NoError(t, err)
	require.False(t, below.IsDuplicate)
	require.InDelta(t, 0.8, below.SimilarityScore, 1e-9)
}

func TestSlowPathCatchesBucketMiss(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{}
	lookup.add(1, "Terremoto sacude Lima", "", "https://a.pe/1", 1, testNow.Add(-time.Minute))

	res, err := newTestDetector().Check(context.Background(), lookup, Item{
		Title: "Un terremoto sacude la ciudad de Lima", Link: "https://a.pe/2", SourceID: 1, ExtractedAt: testNow,
	})
	require.NoError(t, err)
	require.True(t, res.IsDuplicate)
	require.Equal(t, TypeSimilarity, res.DuplicateType)
	require.GreaterOrEqual(t, res.SimilarityScore, DefaultSimilarityThreshold)
	require.Contains(t, res.Reason, "recent sample")
	require.Equal(t, 1, lookup.recentCall)
}

func TestRecentSampleIsNotCrowdedBySameSource(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{}
	lookup.add(1, "Selección peruana entrena en Videna", "", "", 1, testNow.Add(-2*time.Minute))
	lookup.add(2, "Precio del dólar cierra estable", "", "", 1, testNow.Add(-3*time.Minute))
	lookup.add(3, "Nuevo horario del metro de Lima", "", "", 1, testNow.Add(-4*time.Minute))
	lookup.add(4, "Terremoto sacude Lima", "", "", 2, testNow.Add(-time.Minute))

	opts := DefaultOptions()
	opts.RecentSample = 3
	res, err := NewDetector(opts, zerolog.Nop()).Check(context.Background(), lookup, Item{
		Title: "Un terremoto sacude la ciudad de Lima", SourceID: 1, ExtractedAt: testNow,
	})
	require.NoError(t, err)
	require.True(t, res.IsDuplicate)
	require.Equal(t, TypeSimilarity, res.DuplicateType)
	require.Equal(t, int64(4), *res.MatchedID)
	require.Contains(t, res.Reason, "recent sample")
}

func TestFastPathSkipsRecentSample(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{}
	lookup.add(1, "Gobierno anuncia nuevas medidas económicas", "", "", 1, testNow.Add(-time.Minute))

	res, err := newTestDetector().Check(context.Background(), lookup, Item{
		Title: "Gobierno anuncia las nuevas medidas económicas", SourceID: 1, ExtractedAt: testNow,
	})
	require.NoError(t, err)
	require.Equal(t, TypeSimilarity, res.DuplicateType)
	require.Contains(t, res.Reason, "similarity bucket")
	require.Equal(t, 0, lookup.recentCall)
}

func TestSameSourceOnlyNarrowsWindow(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{}
	lookup.add(1, "Paro de transportistas en Lima", "", "", 2, testNow.Add(-time.Hour))

	opts := DefaultOptions()
	opts.SameSourceOnly = true
	res, err := NewDetector(opts, zerolog.Nop()).Check(context.Background(), lookup, Item{
		Title: "Paro de transportistas en Lima", SourceID: 1, ExtractedAt: testNow,
	})
	require.NoError(t, err)
	require.False(t, res.IsDuplicate)
}

func TestCheckRejectsEmptyTitle(t *testing.T) {
	t.Parallel()

	_, err := newTestDetector().Check(context.Background(), &fakeLookup{}, Item{Title: "  ¿? "})
	require.ErrorIs(t, err, ErrEmptyTitle)
}

func TestLookupErrorsPropagate(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	_, err := newTestDetector().Check(context.Background(), &fakeLookup{err: boom}, Item{
		Title: "Algo", Link: "https://x.com/a",
	})
	require.ErrorIs(t, err, boom)
}

func TestToggleTrailingSlash(t *testing.T) {
	t.Parallel()

	require.Equal(t, "https://x.com/a/", ToggleTrailingSlash("https://x.com/a"))
	require.Equal(t, "https://x.com/a", ToggleTrailingSlash("https://x.com/a/"))
}

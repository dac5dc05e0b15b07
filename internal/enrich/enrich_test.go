package enrich

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	name string
	text string
	err  error
	wait time.Duration
}

func (s stubSource) Name() string { return s.name }

func (s stubSource) Generate(ctx context.Context, _ BackfillRequest) (string, error) {
	if s.wait > 0 {
		select {
		case <-time.After(s.wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.text, s.err
}

func TestBackfillFallsBackToTemplate(t *testing.T) {
	t.Parallel()

	b := NewBackfill(100, 50*time.Millisecond, zerolog.Nop(),
		stubSource{name: "reader", err: errors.New("no link to fetch")},
		stubSource{name: "slow", wait: time.Second, text: strings.Repeat("x", 200)},
	)
	out := b.Generate(context.Background(), BackfillRequest{Title: "Nueva ley aprobada"})

	require.True(t, out.Fallback)
	require.Contains(t, out.Value, "Nueva ley aprobada")
	require.GreaterOrEqual(t, len([]rune(out.Value)), 100)
	require.Contains(t, out.Reason, "reader: no link to fetch")
	require.Contains(t, out.Reason, "slow: timed out")
}

func TestBackfillSkipsShortResults(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("Texto recuperado de la fuente. ", 5)
	b := NewBackfill(100, time.Second, zerolog.Nop(),
		stubSource{name: "short", text: "muy corto"},
		stubSource{name: "good", text: long},
	)
	out := b.Generate(context.Background(), BackfillRequest{Title: "Algo"})

	require.False(t, out.Fallback)
	require.Equal(t, strings.TrimSpace(long), out.Value)
}

func TestNeedsBackfill(t *testing.T) {
	t.Parallel()

	b := NewBackfill(10, time.Second, zerolog.Nop())
	require.True(t, b.NeedsBackfill(""))
	require.True(t, b.NeedsBackfill("   corto   "))
	require.False(t, b.NeedsBackfill("suficientemente largo"))
}

func TestTemplateContentUsesCategoryLead(t *testing.T) {
	t.Parallel()

	got := TemplateContent("Inflación baja en marzo", "", "Economía")
	require.True(t, strings.HasPrefix(got, "En materia económica"))
	require.Contains(t, got, "Inflación baja en marzo.")

	generic := TemplateContent("Nueva ley aprobada", "Resumen breve.", "otros")
	require.True(t, strings.HasPrefix(generic, defaultLead))
	require.Contains(t, generic, "Resumen breve.")
}

func TestBoundedRecoversPanics(t *testing.T) {
	t.Parallel()

	out := Bounded(context.Background(), time.Second, "default", func(context.Context) (string, error) {
		panic("dictionary not loaded")
	})
	require.True(t, out.Fallback)
	require.Equal(t, "default", out.Value)
	require.Contains(t, out.Reason, "panic")
}

type failingSentiment struct{}

func (failingSentiment) ClassifySentiment(context.Context, string, string) (Sentiment, error) {
	return Sentiment{}, errors.New("model unavailable")
}

func TestClassifiersFallBackToDefaults(t *testing.T) {
	t.Parallel()

	c := Classifiers{Sentiment: failingSentiment{}, Timeout: time.Second}
	sent := c.ClassifySentiment(context.Background(), "t", "c")
	require.True(t, sent.Fallback)
	require.Equal(t, SentimentNeutral, sent.Value.Label)

	geo := c.ClassifyGeo(context.Background(), "t", "c")
	require.True(t, geo.Fallback)
	require.Equal(t, GeoUnknown, geo.Value.Type)
}

func TestLexiconSentiment(t *testing.T) {
	t.Parallel()

	s := NewLexiconSentiment()
	neg, err := s.ClassifySentiment(context.Background(), "Terremoto deja heridos en Lima", "")
	require.NoError(t, err)
	require.Equal(t, SentimentNegative, neg.Label)

	pos, err := s.ClassifySentiment(context.Background(), "Selección logra victoria histórica", "")
	require.NoError(t, err)
	require.Equal(t, SentimentPositive, pos.Label)

	neutral, err := s.ClassifySentiment(context.Background(), "Reunión de directorio", "")
	require.NoError(t, err)
	require.Equal(t, SentimentNeutral, neutral.Label)
}

func TestLexiconGeo(t *testing.T) {
	t.Parallel()

	g := NewLexiconGeo()
	local, err := g.ClassifyGeo(context.Background(), "Choque en Miraflores", "El tránsito en Lima colapsó")
	require.NoError(t, err)
	require.Equal(t, GeoLocal, local.Type)
	require.ElementsMatch(t, []string{"miraflores", "lima"}, local.MatchedKeywords)

	intl, err := g.ClassifyGeo(context.Background(), "Cumbre entre China y Brasil", "")
	require.NoError(t, err)
	require.Equal(t, GeoInternational, intl.Type)
	require.Equal(t, 1.0, intl.Confidence)
}

type fakeFetcher struct{ text string }

func (f fakeFetcher) FetchText(context.Context, string) (string, error) { return f.text, nil }

func TestReaderSourceTruncates(t *testing.T) {
	t.Parallel()

	src := ReaderSource{Fetcher: fakeFetcher{text: strings.Repeat("a", 50)}, MaxChars: 10}
	got, err := src.Generate(context.Background(), BackfillRequest{Link: "https://x.com/a"})
	require.NoError(t, err)
	require.Equal(t, 10, len([]rune(got)))

	_, err = src.Generate(context.Background(), BackfillRequest{})
	require.Error(t, err)
}

func TestLLMSourceUsesChatCompletion(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  Cuerpo generado.  "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	src := NewLLMSource("test-key", srv.URL, "gpt-4o-mini")
	got, err := src.Generate(context.Background(), BackfillRequest{Title: "Nueva ley aprobada"})
	require.NoError(t, err)
	require.Equal(t, "Cuerpo generado.", got)
}

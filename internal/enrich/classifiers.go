package enrich

import (
	"context"
	"strings"
	"time"

	"horse.fit/newswire/internal/textnorm"
)

const (
	SentimentPositive = "positivo"
	SentimentNegative = "negativo"
	SentimentNeutral  = "neutral"

	GeoLocal         = "local"
	GeoNational      = "nacional"
	GeoInternational = "internacional"
	GeoUnknown       = "desconocido"
)

type Sentiment struct {
	Label      string
	Confidence float64
}

type Geo struct {
	Type            string
	Confidence      float64
	MatchedKeywords []string
}

type SentimentClassifier interface {
	ClassifySentiment(ctx context.Context, title, content string) (Sentiment, error)
}

type GeoClassifier interface {
	ClassifyGeo(ctx context.Context, title, content string) (Geo, error)
}

// Classifiers bundles both classifiers with the per-call budget.
type Classifiers struct {
	Sentiment SentimentClassifier
	Geo       GeoClassifier
	Timeout   time.Duration
}

func (c Classifiers) ClassifySentiment(ctx context.Context, title, content string) Outcome[Sentiment] {
	fallback := Sentiment{Label: SentimentNeutral}
	if c.Sentiment == nil {
		return Fallback(fallback, "no sentiment classifier configured")
	}
	return Bounded(ctx, c.Timeout, fallback, func(ctx context.Context) (Sentiment, error) {
		return c.Sentiment.ClassifySentiment(ctx, title, content)
	})
}

func (c Classifiers) ClassifyGeo(ctx context.Context, title, content string) Outcome[Geo] {
	fallback := Geo{Type: GeoUnknown}
	if c.Geo == nil {
		return Fallback(fallback, "no geographic classifier configured")
	}
	return Bounded(ctx, c.Timeout, fallback, func(ctx context.Context) (Geo, error) {
		return c.Geo.ClassifyGeo(ctx, title, content)
	})
}

// LexiconSentiment scores text by counting words from fixed polarity lists.
// Build it once and share it; it holds no mutable state.
type LexiconSentiment struct {
	positive map[string]struct{}
	negative map[string]struct{}
}

func NewLexiconSentiment() *LexiconSentiment {
	return &LexiconSentiment{
		positive: lexicon(`
aprueba aprobada aprobado acuerdo avance beneficio celebra crece crecimiento éxito exitoso gana
ganó histórico inaugura inauguración logro mejora mejoras premio recupera recuperación rescate
rescatan récord solidaridad triunfo victoria win wins growth record recovery agreement success
`),
		negative: lexicon(`
accidente ataque asesinato caída colapso crisis denuncia derrumbe desastre emergencia explosión
fallece fallecidos heridos huelga incendio inundación muerte muertos paro pérdida protesta robo
sismo terremoto tragedia violencia crash attack crisis death dead killed fire flood strike war
`),
	}
}

func (l *LexiconSentiment) ClassifySentiment(_ context.Context, title, content string) (Sentiment, error) {
	pos, neg := 0, 0
	// Title words count twice: headlines carry the tone.
	for _, text := range []string{title, title, content} {
		for _, token := range textnorm.Tokens(text) {
			if _, ok := l.positive[token]; ok {
				pos++
			}
			if _, ok := l.negative[token]; ok {
				neg++
			}
		}
	}
	total := pos + neg
	if total == 0 {
		return Sentiment{Label: SentimentNeutral, Confidence: 0.5}, nil
	}
	switch {
	case pos > neg:
		return Sentiment{Label: SentimentPositive, Confidence: float64(pos) / float64(total)}, nil
	case neg > pos:
		return Sentiment{Label: SentimentNegative, Confidence: float64(neg) / float64(total)}, nil
	default:
		return Sentiment{Label: SentimentNeutral, Confidence: 0.5}, nil
	}
}

// LexiconGeo labels scope by place names: districts of the capital are
// local, regions of the country national, other countries international.
type LexiconGeo struct {
	scopes []geoScope
}

type geoScope struct {
	label string
	words map[string]struct{}
}

func NewLexiconGeo() *LexiconGeo {
	return &LexiconGeo{scopes: []geoScope{
		{label: GeoLocal, words: lexicon(`
lima callao miraflores surco barranco chorrillos comas independencia ate lurigancho
sjl sjm rímac breña lince magdalena surquillo carabayllo ventanilla
`)},
		{label: GeoNational, words: lexicon(`
perú peru peruano peruana arequipa cusco cuzco puno piura trujillo chiclayo iquitos loreto
ica huancayo tacna ayacucho cajamarca huánuco áncash ancash junín junin tumbes ucayali
congreso minsa mef midis reniec sunat
`)},
		{label: GeoInternational, words: lexicon(`
eeuu usa china rusia ucrania brasil chile bolivia ecuador colombia argentina
venezuela méxico mexico españa europa onu otan israel gaza irán iran japón india francia alemania
`)},
	}}
}

func (g *LexiconGeo) ClassifyGeo(_ context.Context, title, content string) (Geo, error) {
	tokens := textnorm.Tokens(title + " " + content)
	best := Geo{Type: GeoUnknown}
	bestCount := 0
	total := 0
	for _, scope := range g.scopes {
		var matched []string
		seen := make(map[string]struct{})
		for _, token := range tokens {
			if _, ok := scope.words[token]; !ok {
				continue
			}
			if _, dup := seen[token]; dup {
				continue
			}
			seen[token] = struct{}{}
			matched = append(matched, token)
		}
		count := len(matched)
		total += count
		if count > bestCount {
			bestCount = count
			best = Geo{Type: scope.label, MatchedKeywords: matched}
		}
	}
	if bestCount == 0 {
		return best, nil
	}
	best.Confidence = float64(bestCount) / float64(total)
	return best, nil
}

func lexicon(words string) map[string]struct{} {
	fields := strings.Fields(words)
	set := make(map[string]struct{}, len(fields))
	for _, w := range fields {
		set[w] = struct{}{}
	}
	return set
}

// Package dedup decides whether a candidate article repeats one already stored.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newswire/internal/fingerprint"
	"horse.fit/newswire/internal/globaltime"
	"horse.fit/newswire/internal/textnorm"
)

const (
	DefaultLookback            = 72 * time.Hour
	DefaultSimilarityThreshold = 0.85
	DefaultRecentSample        = 100
)

var ErrEmptyTitle = errors.New("title is empty after normalization")

type Type string

const (
	TypeNone                Type = ""
	TypeExactLink           Type = "exact_link"
	TypeExactLinkNormalized Type = "exact_link_normalized"
	TypeExactTitleHash      Type = "exact_title_hash"
	TypeExactContentHash    Type = "exact_content_hash"
	TypeSimilarity          Type = "similarity"
)

type Options struct {
	Lookback            time.Duration
	SimilarityThreshold float64
	RecentSample        int
	// BucketLimit caps rows read from one similarity bucket; 0 reads all.
	BucketLimit      int
	SameSourceOnly   bool
	PreferSameSource bool
}

func DefaultOptions() Options {
	return Options{
		Lookback:            DefaultLookback,
		SimilarityThreshold: DefaultSimilarityThreshold,
		RecentSample:        DefaultRecentSample,
		PreferSameSource:    true,
	}
}

// Item is a candidate as the detector sees it. Fingerprints are computed
// from Title and Content when left zero.
type Item struct {
	Title        string
	Content      string
	Link         string
	SourceID     int64
	ExtractedAt  time.Time
	Fingerprints fingerprint.Set
}

type Result struct {
	IsDuplicate     bool    `json:"is_duplicate"`
	DuplicateType   Type    `json:"duplicate_type,omitempty"`
	MatchedID       *int64  `json:"matched_id,omitempty"`
	SimilarityScore float64 `json:"similarity_score"`
	Reason          string  `json:"reason"`
}

type Detector struct {
	opts   Options
	logger zerolog.Logger
}

func NewDetector(opts Options, logger zerolog.Logger) *Detector {
	if opts.Lookback <= 0 {
		opts.Lookback = DefaultLookback
	}
	if opts.SimilarityThreshold <= 0 || opts.SimilarityThreshold > 1 {
		opts.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if opts.RecentSample <= 0 {
		opts.RecentSample = DefaultRecentSample
	}
	if opts.BucketLimit < 0 {
		opts.BucketLimit = 0
	}
	return &Detector{opts: opts, logger: logger}
}

func (d *Detector) Options() Options {
	return d.opts
}

// Check runs the cascade with the configured lookback.
func (d *Detector) Check(ctx context.Context, lookup Lookup, item Item) (Result, error) {
	return d.CheckWithin(ctx, lookup, item, d.opts.Lookback)
}

// CheckWithin runs the cascade: exact link (any age), then title hash and
// content hash inside the window, then similarity against the candidate's
// bucket and finally against a bounded sample of recent articles.
func (d *Detector) CheckWithin(ctx context.Context, lookup Lookup, item Item, lookback time.Duration) (Result, error) {
	if textnorm.Normalize(item.Title) == "" {
		return Result{}, ErrEmptyTitle
	}
	if lookback <= 0 {
		lookback = d.opts.Lookback
	}
	fp := item.Fingerprints
	if fp.TitleHash == "" || fp.SimilarityHash == "" {
		fp = fingerprint.Compute(item.Title, item.Content)
	}

	if result, found, err := d.checkLink(ctx, lookup, item.Link); err != nil || found {
		return result, err
	}

	window := d.window(item, lookback)

	if match, found, err := lookup.ArticleByTitleHash(ctx, fp.TitleHash, window); err != nil {
		return Result{}, fmt.Errorf("lookup title hash: %w", err)
	} else if found {
		return exactResult(TypeExactTitleHash, match.ID, fmt.Sprintf("title hash matches article %d within %s", match.ID, lookback)), nil
	}

	if fp.ContentHash != "" {
		if match, found, err := lookup.ArticleByContentHash(ctx, fp.ContentHash, window); err != nil {
			return Result{}, fmt.Errorf("lookup content hash: %w", err)
		} else if found {
			return exactResult(TypeExactContentHash, match.ID, fmt.Sprintf("content hash matches article %d within %s", match.ID, lookback)), nil
		}
	}

	return d.checkSimilarity(ctx, lookup, item.Title, fp.SimilarityHash, window)
}

func (d *Detector) checkLink(ctx context.Context, lookup Lookup, link string) (Result, bool, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return Result{}, false, nil
	}

	match, found, err := lookup.ArticleByLink(ctx, link)
	if err != nil {
		return Result{}, false, fmt.Errorf("lookup link: %w", err)
	}
	if found {
		return exactResult(TypeExactLink, match.ID, fmt.Sprintf("link matches article %d", match.ID)), true, nil
	}

	toggled := ToggleTrailingSlash(link)
	if toggled == "" {
		return Result{}, false, nil
	}
	match, found, err = lookup.ArticleByLink(ctx, toggled)
	if err != nil {
		return Result{}, false, fmt.Errorf("lookup toggled link: %w", err)
	}
	if found {
		return exactResult(TypeExactLinkNormalized, match.ID, fmt.Sprintf("link matches article %d after trailing slash toggle", match.ID)), true, nil
	}
	return Result{}, false, nil
}

func (d *Detector) checkSimilarity(ctx context.Context, lookup Lookup, title, similarityHash string, window Window) (Result, error) {
	key := ComparisonKey(title)
	best := 0.0
	seen := make(map[int64]struct{})

	bucket, err := lookup.ArticlesBySimilarityHash(ctx, similarityHash, window, d.opts.BucketLimit)
	if err != nil {
		return Result{}, fmt.Errorf("lookup similarity bucket: %w", err)
	}
	for _, stored := range bucket {
		seen[stored.ID] = struct{}{}
		score := keySimilarity(key, ComparisonKey(stored.Title))
		best = max(best, score)
		if score >= d.opts.SimilarityThreshold {
			return similarityResult(stored.ID, score, d.opts.SimilarityThreshold, "similarity bucket"), nil
		}
	}

	// The sample is strictly newest first; only bucket reads favor the source.
	sampleWindow := window
	sampleWindow.PreferSourceID = 0
	recent, err := lookup.RecentArticles(ctx, sampleWindow, d.opts.RecentSample)
	if err != nil {
		return Result{}, fmt.Errorf("lookup recent articles: %w", err)
	}
	for _, stored := range recent {
		if _, done := seen[stored.ID]; done {
			continue
		}
		score := keySimilarity(key, ComparisonKey(stored.Title))
		best = max(best, score)
		if score >= d.opts.SimilarityThreshold {
			return similarityResult(stored.ID, score, d.opts.SimilarityThreshold, "recent sample"), nil
		}
	}

	d.logger.Debug().
		Int("bucket_size", len(bucket)).
		Int("sample_size", len(recent)).
		Float64("similarity", best).
		Msg("no duplicate found")

	return Result{
		IsDuplicate:     false,
		DuplicateType:   TypeNone,
		SimilarityScore: best,
		Reason:          fmt.Sprintf("no duplicate found (best similarity %.3f)", best),
	}, nil
}

func (d *Detector) window(item Item, lookback time.Duration) Window {
	ref := item.ExtractedAt
	if ref.IsZero() {
		ref = globaltime.UTC()
	}
	w := Window{Since: ref.UTC().Add(-lookback)}
	if item.SourceID > 0 {
		if d.opts.SameSourceOnly {
			w.SourceID = item.SourceID
		}
		if d.opts.PreferSameSource {
			w.PreferSourceID = item.SourceID
		}
	}
	return w
}

// ToggleTrailingSlash adds a trailing slash to link or removes one.
// It returns "" when toggling would leave nothing.
func ToggleTrailingSlash(link string) string {
	if strings.HasSuffix(link, "/") {
		return strings.TrimSuffix(link, "/")
	}
	return link + "/"
}

func exactResult(kind Type, matchedID int64, reason string) Result {
	id := matchedID
	return Result{
		IsDuplicate:     true,
		DuplicateType:   kind,
		MatchedID:       &id,
		SimilarityScore: 1,
		Reason:          reason,
	}
}

func similarityResult(matchedID int64, score, threshold float64, path string) Result {
	id := matchedID
	return Result{
		IsDuplicate:     true,
		DuplicateType:   TypeSimilarity,
		MatchedID:       &id,
		SimilarityScore: score,
		Reason:          fmt.Sprintf("title similarity %.3f >= %.2f with article %d (%s)", score, threshold, matchedID, path),
	}
}

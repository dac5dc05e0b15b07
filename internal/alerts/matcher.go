// Package alerts matches stored articles against alert rules and delivers
// the resulting notifications.
package alerts

import (
	"strings"
	"sync"

	ahocorasick "github.com/cloudflare/ahocorasick"

	"horse.fit/newswire/internal/db"
	"horse.fit/newswire/internal/textnorm"
)

// Match is one rule firing on one article.
type Match struct {
	RuleID   int64
	RuleName string
	Keyword  string
	Urgency  string
}

type compiledRule struct {
	id         int64
	name       string
	keywords   []string
	categories map[string]struct{}
	sources    map[string]struct{}
	urgency    string
}

// Matcher compiles every active rule keyword into one Aho-Corasick automaton.
// Keywords match on word boundaries of the normalized text. The underlying
// automaton is not safe for concurrent use, hence the mutex.
type Matcher struct {
	mu    sync.Mutex
	ac    *ahocorasick.Matcher
	dict  []string
	rules []compiledRule
}

func NewMatcher(rules []db.AlertRule) *Matcher {
	m := &Matcher{}
	index := make(map[string]struct{})
	for _, rule := range rules {
		if !rule.Active {
			continue
		}
		compiled := compiledRule{
			id:         rule.ID,
			name:       rule.Name,
			categories: normalizedSet(rule.Categories),
			sources:    normalizedSet(rule.Sources),
			urgency:    rule.UrgencyLevel,
		}
		if level, ok := NormalizeUrgency(rule.UrgencyLevel); ok {
			compiled.urgency = level
		} else {
			compiled.urgency = UrgencyMedium
		}
		for _, kw := range rule.Keywords {
			normalized := textnorm.Normalize(kw)
			if normalized == "" {
				continue
			}
			compiled.keywords = append(compiled.keywords, normalized)
			if _, seen := index[normalized]; !seen {
				index[normalized] = struct{}{}
				m.dict = append(m.dict, " "+normalized+" ")
			}
		}
		if len(compiled.keywords) > 0 {
			m.rules = append(m.rules, compiled)
		}
	}
	if len(m.dict) > 0 {
		m.ac = ahocorasick.NewStringMatcher(m.dict)
	}
	return m
}

func (m *Matcher) RuleCount() int {
	if m == nil {
		return 0
	}
	return len(m.rules)
}

// Match returns at most one Match per rule, naming the first of the rule's
// keywords (in rule order) that occurs in text.
func (m *Matcher) Match(text, category, source string) []Match {
	if m == nil || m.ac == nil {
		return nil
	}

	haystack := " " + textnorm.Normalize(text) + " "
	m.mu.Lock()
	hits := m.ac.Match([]byte(haystack))
	m.mu.Unlock()
	if len(hits) == 0 {
		return nil
	}

	found := make(map[string]struct{}, len(hits))
	for _, idx := range hits {
		if idx < 0 || idx >= len(m.dict) {
			continue
		}
		found[strings.TrimSpace(m.dict[idx])] = struct{}{}
	}

	category = textnorm.Normalize(category)
	source = textnorm.Normalize(source)
	var out []Match
	for _, rule := range m.rules {
		if !allows(rule.categories, category) || !allows(rule.sources, source) {
			continue
		}
		for _, kw := range rule.keywords {
			if _, ok := found[kw]; ok {
				out = append(out, Match{RuleID: rule.id, RuleName: rule.name, Keyword: kw, Urgency: rule.urgency})
				break
			}
		}
	}
	return out
}

func allows(filter map[string]struct{}, value string) bool {
	if len(filter) == 0 {
		return true
	}
	_, ok := filter[value]
	return ok
}

func normalizedSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if n := textnorm.Normalize(v); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

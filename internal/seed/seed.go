// Package seed loads sources and alert rules from a YAML file.
package seed

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"horse.fit/newswire/internal/alerts"
	"horse.fit/newswire/internal/db"
)

type File struct {
	Sources    []SourceSpec `yaml:"sources"`
	AlertRules []RuleSpec   `yaml:"alert_rules"`
}

type SourceSpec struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	Active *bool  `yaml:"active"`
}

type RuleSpec struct {
	Name       string   `yaml:"name"`
	Keywords   []string `yaml:"keywords"`
	Categories []string `yaml:"categories"`
	Sources    []string `yaml:"sources"`
	Urgency    string   `yaml:"urgency_level"`
	Channels   []string `yaml:"channels"`
	Target     string   `yaml:"target"`
	Active     *bool    `yaml:"active"`
}

// Store is implemented by *db.Pool.
type Store interface {
	UpsertSource(ctx context.Context, src db.Source) (int64, error)
	UpsertAlertRule(ctx context.Context, rule db.AlertRule) (int64, error)
}

type Result struct {
	Sources    int `json:"sources"`
	AlertRules int `json:"alert_rules"`
}

func Load(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return File{}, fmt.Errorf("decode seed yaml: %w", err)
	}
	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

func (f File) Validate() error {
	names := make(map[string]struct{}, len(f.Sources))
	for i, src := range f.Sources {
		name := strings.TrimSpace(src.Name)
		if name == "" {
			return fmt.Errorf("sources[%d]: name is required", i)
		}
		if _, dup := names[name]; dup {
			return fmt.Errorf("sources[%d]: duplicate name %q", i, name)
		}
		names[name] = struct{}{}
	}

	rules := make(map[string]struct{}, len(f.AlertRules))
	for i, rule := range f.AlertRules {
		name := strings.TrimSpace(rule.Name)
		if name == "" {
			return fmt.Errorf("alert_rules[%d]: name is required", i)
		}
		if _, dup := rules[name]; dup {
			return fmt.Errorf("alert_rules[%d]: duplicate name %q", i, name)
		}
		rules[name] = struct{}{}
		if len(cleanList(rule.Keywords)) == 0 {
			return fmt.Errorf("alert_rules[%d] %q: at least one keyword is required", i, name)
		}
		if rule.Urgency != "" {
			if _, ok := alerts.NormalizeUrgency(rule.Urgency); !ok {
				return fmt.Errorf("alert_rules[%d] %q: unknown urgency_level %q", i, name, rule.Urgency)
			}
		}
	}
	return nil
}

// Apply upserts every source, then every rule, by name.
func Apply(ctx context.Context, store Store, f File) (Result, error) {
	var res Result
	for _, src := range f.Sources {
		if _, err := store.UpsertSource(ctx, src.model()); err != nil {
			return res, err
		}
		res.Sources++
	}
	for _, rule := range f.AlertRules {
		if _, err := store.UpsertAlertRule(ctx, rule.model()); err != nil {
			return res, err
		}
		res.AlertRules++
	}
	return res, nil
}

func (s SourceSpec) model() db.Source {
	return db.Source{
		Name:   strings.TrimSpace(s.Name),
		URL:    strings.TrimSpace(s.URL),
		Active: boolOr(s.Active, true),
	}
}

func (r RuleSpec) model() db.AlertRule {
	urgency, ok := alerts.NormalizeUrgency(r.Urgency)
	if !ok {
		urgency = alerts.UrgencyMedium
	}
	channels := cleanList(r.Channels)
	if len(channels) == 0 {
		channels = []string{alerts.DefaultChannel}
	}
	return db.AlertRule{
		Name:         strings.TrimSpace(r.Name),
		Keywords:     cleanList(r.Keywords),
		Categories:   cleanList(r.Categories),
		Sources:      cleanList(r.Sources),
		UrgencyLevel: urgency,
		Channels:     channels,
		Target:       strings.TrimSpace(r.Target),
		Active:       boolOr(r.Active, true),
	}
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func boolOr(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

package db

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm/clause"
)

// UpsertSource inserts or updates a source by name and returns its id.
func (p *Pool) UpsertSource(ctx context.Context, src Source) (int64, error) {
	src.Name = strings.TrimSpace(src.Name)
	if src.Name == "" {
		return 0, fmt.Errorf("source name is required")
	}
	err := p.gdb.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"url", "active", "updated_at"}),
	}).Create(&src).Error
	if err != nil {
		return 0, fmt.Errorf("upsert source %q: %w", src.Name, err)
	}
	if src.ID == 0 {
		if err := p.gdb.WithContext(ctx).Where("name = ?", src.Name).Select("id").Take(&src).Error; err != nil {
			return 0, fmt.Errorf("reload source %q: %w", src.Name, err)
		}
	}
	return src.ID, nil
}

// UpsertAlertRule inserts or updates an alert rule by name and returns its id.
func (p *Pool) UpsertAlertRule(ctx context.Context, rule AlertRule) (int64, error) {
	rule.Name = strings.TrimSpace(rule.Name)
	if rule.Name == "" {
		return 0, fmt.Errorf("alert rule name is required")
	}
	if len(rule.Keywords) == 0 {
		return 0, fmt.Errorf("alert rule %q needs at least one keyword", rule.Name)
	}
	err := p.gdb.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"keywords", "categories", "sources", "urgency_level", "channels", "target", "active", "updated_at",
		}),
	}).Create(&rule).Error
	if err != nil {
		return 0, fmt.Errorf("upsert alert rule %q: %w", rule.Name, err)
	}
	if rule.ID == 0 {
		if err := p.gdb.WithContext(ctx).Where("name = ?", rule.Name).Select("id").Take(&rule).Error; err != nil {
			return 0, fmt.Errorf("reload alert rule %q: %w", rule.Name, err)
		}
	}
	return rule.ID, nil
}

package db

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// schema.sql creates the news schema and enum types the models reference;
// indexes.sql adds the partial and ordered indexes the dedup cascade and the
// notifier read through.
var (
	//go:embed sql/pre_automigrate.sql
	schemaSQL string

	//go:embed sql/post_automigrate.sql
	indexSQL string
)

type migrationStep struct {
	name string
	run  func(*gorm.DB) error
}

func migrationPlan() []migrationStep {
	return []migrationStep{
		{name: "news schema", run: execScript(schemaSQL)},
		{name: "news models", run: func(gdb *gorm.DB) error {
			return gdb.AutoMigrate(autoMigrateModels()...)
		}},
		{name: "news indexes", run: execScript(indexSQL)},
	}
}

func execScript(sqlText string) func(*gorm.DB) error {
	trimmed := strings.TrimSpace(sqlText)
	return func(gdb *gorm.DB) error {
		if trimmed == "" {
			return nil
		}
		return gdb.Exec(trimmed).Error
	}
}

// autoMigrate brings the news schema up to date. Every step is idempotent,
// so it runs on each connect.
func (p *Pool) autoMigrate(ctx context.Context) error {
	if p == nil || p.gdb == nil {
		return fmt.Errorf("database pool is not initialized")
	}
	gdb := p.gdb.WithContext(ctx)
	for _, step := range migrationPlan() {
		if err := step.run(gdb); err != nil {
			return fmt.Errorf("migrate %s: %w", step.name, err)
		}
	}
	return nil
}

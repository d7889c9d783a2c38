package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// EnsureTables creates each model's table when it is missing. Callers may race:
// a create that fails because another instance got there first is treated as
// success once the table is visible.
func EnsureTables(ctx context.Context, conn *gorm.DB, models ...any) error {
	migrator := conn.WithContext(ctx).Migrator()
	for _, model := range models {
		if migrator.HasTable(model) {
			continue
		}
		if err := migrator.CreateTable(model); err != nil {
			if IsAlreadyExists(err) || migrator.HasTable(model) {
				continue
			}
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return nil
}

// MissingTables reports the table names of models that do not exist yet.
func MissingTables(ctx context.Context, conn *gorm.DB, models ...any) ([]string, error) {
	migrator := conn.WithContext(ctx).Migrator()
	var missing []string
	for _, model := range models {
		if migrator.HasTable(model) {
			continue
		}
		stmt := &gorm.Statement{DB: conn}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("parse %T: %w", model, err)
		}
		missing = append(missing, stmt.Schema.Table)
	}
	return missing, nil
}

package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Roster tables carry no foreign keys; dangling references resolve at read time.
var rosterSchema = []string{
	`CREATE TABLE IF NOT EXISTS teachers (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		subject TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS classes (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		subject TEXT NOT NULL,
		duration INTEGER NOT NULL CHECK (duration > 0)
	)`,
	`CREATE TABLE IF NOT EXISTS teacher_rules (
		id BIGSERIAL PRIMARY KEY,
		teacher_id BIGINT NOT NULL,
		min_hours INTEGER NOT NULL CHECK (min_hours >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS subject_requirements (
		id BIGSERIAL PRIMARY KEY,
		class_id BIGINT NOT NULL,
		subject TEXT NOT NULL
	)`,
}

// EnsureRosterSchema creates the roster tables when missing.
func EnsureRosterSchema(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range rosterSchema {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply roster schema: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

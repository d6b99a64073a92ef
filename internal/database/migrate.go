package database

import (
	"database/sql"

	"github.com/pressly/goose/v3"

	"github.com/fraudwatch/sovereign-core/migrations"
)

// Migrate applies every pending embedded migration in order. It is
// idempotent — goose tracks applied versions in its own table and is
// safe to call on every startup.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, ".")
}

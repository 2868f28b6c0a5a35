package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
)

//go:embed 0002_create_progression.sql
var createProgressionSQL string

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			return execScript(ctx, db, createProgressionSQL)
		},
		func(ctx context.Context, db *bun.DB) error {
			return execScript(ctx, db, `
DROP TABLE IF EXISTS attempts;
DROP TABLE IF EXISTS game_completions;
DROP TABLE IF EXISTS challenge_completions;
DROP TABLE IF EXISTS progression_records;`)
		},
	)
}

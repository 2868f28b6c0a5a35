package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tegalsec-progression/internal/config"
	"tegalsec-progression/internal/content"
	"tegalsec-progression/internal/domain"
	pgstore "tegalsec-progression/internal/infra/postgres"
)

// NewSeedCmd loads challenge content into postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert challenge content into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			if file == "" {
				file = cfg.Content.File
			}
			challenges, err := contentFrom(cmd.Context(), file)
			if err != nil {
				return err
			}

			pool, err := pgxpool.Connect(cmd.Context(), cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := pgstore.NewChallengeLoader(pool).Upsert(cmd.Context(), challenges); err != nil {
				return err
			}
			logger.Info("challenges seeded", zap.Int("count", len(challenges)))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML catalogue to seed (defaults to content.file, then the built-in set)")
	return cmd
}

func contentFrom(ctx context.Context, file string) ([]domain.Challenge, error) {
	if file == "" {
		return content.Builtin(), nil
	}
	return content.NewFileLoader(file).LoadChallenges(ctx)
}

// seedIfEmpty publishes the built-in catalogue into an empty challenges table.
func seedIfEmpty(ctx context.Context, cfg config.Config, loader *pgstore.ChallengeLoader, logger *zap.Logger) error {
	existing, err := loader.LoadChallenges(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	challenges, err := contentFrom(ctx, cfg.Content.File)
	if err != nil {
		return err
	}
	logger.Info("challenges table empty, seeding", zap.Int("count", len(challenges)))
	return loader.Upsert(ctx, challenges)
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"tegalsec-progression/internal/domain"
)

// ChallengeLoader loads challenge JSONB from Postgres.
type ChallengeLoader struct {
	pool *pgxpool.Pool
}

func NewChallengeLoader(pool *pgxpool.Pool) *ChallengeLoader {
	return &ChallengeLoader{pool: pool}
}

func (l *ChallengeLoader) LoadChallenges(ctx context.Context) ([]domain.Challenge, error) {
	rows, err := l.pool.Query(ctx, `SELECT data FROM challenges ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load challenges: %w", err)
	}
	defer rows.Close()

	var challenges []domain.Challenge
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan challenge: %w", err)
		}
		var c domain.Challenge
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("unmarshal challenge: %w", err)
		}
		challenges = append(challenges, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load challenges: %w", err)
	}
	return challenges, nil
}

// Upsert publishes challenges, replacing existing content with the same id.
func (l *ChallengeLoader) Upsert(ctx context.Context, challenges []domain.Challenge) error {
	batch := &pgx.Batch{}
	for _, c := range challenges {
		if err := c.Validate(); err != nil {
			return err
		}
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal challenge %s: %w", c.ID, err)
		}
		batch.Queue(`INSERT INTO challenges (id, data, updated_at) VALUES ($1, $2::jsonb, now())
ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`, c.ID, string(data))
	}
	results := l.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range challenges {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert challenge: %w", err)
		}
	}
	return nil
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"BitLearn/internal/domain/models"
	"BitLearn/internal/domain/repository"
)

// PostgresSchema creates the tables used by PostgresCloudStore.
var PostgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS learning_models (
		id               TEXT PRIMARY KEY,
		last_training_at TIMESTAMPTZ NOT NULL,
		body             JSONB NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS training_data (
		category  TEXT NOT NULL,
		ts        TIMESTAMPTZ NOT NULL,
		source    TEXT NOT NULL,
		synthetic BOOLEAN NOT NULL DEFAULT FALSE,
		fields    JSONB NOT NULL,
		PRIMARY KEY (category, ts, source)
	)`,
	`CREATE TABLE IF NOT EXISTS insights (
		id         TEXT PRIMARY KEY,
		ts         TIMESTAMPTZ NOT NULL,
		model_id   TEXT NOT NULL,
		type       TEXT NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		body       JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS insights_ts_idx ON insights (ts DESC)`,
}

// PostgresCloudStore persists engine state in PostgreSQL.
type PostgresCloudStore struct {
	pool *pgxpool.Pool
}

func NewPostgresCloudStore(pool *pgxpool.Pool) repository.CloudStore {
	return &PostgresCloudStore{pool: pool}
}

func (s *PostgresCloudStore) Name() string { return "postgres" }

func (s *PostgresCloudStore) LoadAllModels(ctx context.Context) ([]models.Model, error) {
	rows, err := s.pool.Query(ctx, `SELECT body FROM learning_models ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: load models: %w", err)
	}
	defer rows.Close()

	var out []models.Model
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("postgres: scan model: %w", err)
		}
		var m models.Model
		if err := json.Unmarshal(body, &m); err != nil {
			return nil, fmt.Errorf("postgres: decode model: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: load models rows: %w", err)
	}
	return out, nil
}

func (s *PostgresCloudStore) SaveModel(ctx context.Context, m models.Model) error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("postgres: encode model %s: %w", m.ID, err)
	}
	const q = `
		INSERT INTO learning_models (id, last_training_at, body, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET
			last_training_at = EXCLUDED.last_training_at,
			body             = EXCLUDED.body,
			updated_at       = NOW()`
	if _, err := s.pool.Exec(ctx, q, m.ID, m.LastTrainingTimestamp, body); err != nil {
		return fmt.Errorf("postgres: save model %s: %w", m.ID, err)
	}
	return nil
}

func (s *PostgresCloudStore) LoadTrainingData(ctx context.Context, retentionDays int) (models.TrainingBuffers, error) {
	cutoff := time.Time{}
	if retentionDays > 0 {
		cutoff = time.Now().Add(-time.Duration(retentionDays) * 24 * time.Hour)
	}
	rows, err := s.pool.Query(ctx,
		`SELECT category, ts, source, synthetic, fields FROM training_data WHERE ts >= $1 ORDER BY ts`,
		cutoff)
	if err != nil {
		return nil, fmt.Errorf("postgres: load training data: %w", err)
	}
	defer rows.Close()

	out := make(models.TrainingBuffers, len(models.AllCategories))
	for rows.Next() {
		var (
			r      models.TrainingRecord
			cat    string
			fields []byte
		)
		if err := rows.Scan(&cat, &r.Timestamp, &r.Source, &r.Synthetic, &fields); err != nil {
			return nil, fmt.Errorf("postgres: scan training record: %w", err)
		}
		if err := json.Unmarshal(fields, &r.Fields); err != nil {
			return nil, fmt.Errorf("postgres: decode fields: %w", err)
		}
		r.Category = models.DataCategory(cat)
		out[r.Category] = append(out[r.Category], r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: training rows: %w", err)
	}
	return out, nil
}

func (s *PostgresCloudStore) SaveTrainingData(ctx context.Context, data models.TrainingBuffers) error {
	const q = `
		INSERT INTO training_data (category, ts, source, synthetic, fields)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (category, ts, source) DO NOTHING`

	batch := &pgx.Batch{}
	for cat, records := range data {
		for _, r := range records {
			fields, err := json.Marshal(r.Fields)
			if err != nil {
				return fmt.Errorf("postgres: encode fields: %w", err)
			}
			batch.Queue(q, string(cat), r.Timestamp, r.Source, r.Synthetic, fields)
		}
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres: save training data: %w", err)
	}
	return nil
}

func (s *PostgresCloudStore) LoadInsights(ctx context.Context, limit int) ([]models.Insight, error) {
	if limit <= 0 {
		limit = defaultRemoteInsightCap
	}
	rows, err := s.pool.Query(ctx, `SELECT body FROM insights ORDER BY ts DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: load insights: %w", err)
	}
	defer rows.Close()

	var out []models.Insight
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("postgres: scan insight: %w", err)
		}
		var in models.Insight
		if err := json.Unmarshal(body, &in); err != nil {
			return nil, fmt.Errorf("postgres: decode insight: %w", err)
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: insights rows: %w", err)
	}
	return out, nil
}

func (s *PostgresCloudStore) SaveInsights(ctx context.Context, insights []models.Insight) error {
	const q = `
		INSERT INTO insights (id, ts, model_id, type, confidence, body)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`

	batch := &pgx.Batch{}
	for _, in := range insights {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("postgres: encode insight %s: %w", in.ID, err)
		}
		batch.Queue(q, in.ID, in.Timestamp, in.ModelID, string(in.Type), in.Confidence, body)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres: save insights: %w", err)
	}
	return nil
}

// Package catalog records converted datasets and their summaries in
// Postgres. Summary descriptions are embedded with pgvector so datasets can
// be searched by meaning.
package catalog

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/tabula/backend/internal/util"
	"github.com/OFFIS-RIT/tabula/backend/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

//go:embed migrations/*.sql
var migrations embed.FS

var ErrNotFound = errors.New("dataset not found")

type Dataset struct {
	Key          string          `json:"key"`
	SourceFile   string          `json:"source_file"`
	Rows         int             `json:"rows"`
	Columns      int             `json:"columns"`
	SizeBytes    int64           `json:"size_bytes"`
	Summary      json.RawMessage `json:"summary,omitempty"`
	MetadataFile string          `json:"metadata_file,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	SummarizedAt *time.Time      `json:"summarized_at,omitempty"`
}

type Match struct {
	Dataset
	Distance float64 `json:"distance"`
}

// Upload describes a freshly converted Parquet object.
type Upload struct {
	Key        string
	SourceFile string
	Rows       int
	Columns    int
	SizeBytes  int64
}

// SummaryRecord is the outcome of a report run.
type SummaryRecord struct {
	Key          string
	Summary      map[string]any
	MetadataFile string
	Rows         int
	Columns      int
	Embedding    []float32
}

type Store struct {
	pool *pgxpool.Pool
}

func poolConfig(databaseURL string) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	return cfg, nil
}

// Connect opens a pool and waits until the database answers.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := poolConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	err = util.RetryErrWithBackoff(ctx, 5, time.Second, pool.Ping)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Pool exposes the connection pool for packages sharing the database.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Store) Close() {
	s.pool.Close()
}

// Migrate applies the embedded schema migrations.
func Migrate(databaseURL string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	version, dirty, _ := m.Version()
	logger.Info("Database migrated", "version", version, "dirty", dirty)
	return nil
}

func (s *Store) RecordUpload(ctx context.Context, u Upload) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO datasets (key, source_file, rows, columns, size_bytes)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE SET
			source_file = EXCLUDED.source_file,
			rows = EXCLUDED.rows,
			columns = EXCLUDED.columns,
			size_bytes = EXCLUDED.size_bytes`,
		u.Key, util.SanitizePostgresText(u.SourceFile), u.Rows, u.Columns, u.SizeBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to record upload %s: %w", u.Key, err)
	}
	return nil
}

func (s *Store) SaveSummary(ctx context.Context, r SummaryRecord) error {
	doc, err := json.Marshal(r.Summary)
	if err != nil {
		return fmt.Errorf("failed to serialize summary: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO datasets (key, rows, columns, summary, metadata_file, embedding, summarized_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (key) DO UPDATE SET
			rows = EXCLUDED.rows,
			columns = EXCLUDED.columns,
			summary = EXCLUDED.summary,
			metadata_file = EXCLUDED.metadata_file,
			embedding = EXCLUDED.embedding,
			summarized_at = EXCLUDED.summarized_at`,
		r.Key, r.Rows, r.Columns, util.SanitizePostgresJSON(doc), r.MetadataFile, vectorOrNil(r.Embedding),
	)
	if err != nil {
		return fmt.Errorf("failed to save summary for %s: %w", r.Key, err)
	}
	return nil
}

func vectorOrNil(vec []float32) *pgvector.Vector {
	if len(vec) == 0 {
		return nil
	}
	v := pgvector.NewVector(vec)
	return &v
}

const datasetColumns = `key, source_file, rows, columns, size_bytes, summary, metadata_file, created_at, summarized_at`

func scanDataset(row pgx.Row, extra ...any) (Dataset, error) {
	var (
		d        Dataset
		summary  []byte
		metadata *string
	)
	dest := append([]any{
		&d.Key, &d.SourceFile, &d.Rows, &d.Columns, &d.SizeBytes,
		&summary, &metadata, &d.CreatedAt, &d.SummarizedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return d, err
	}
	if len(summary) > 0 {
		d.Summary = json.RawMessage(summary)
	}
	if metadata != nil {
		d.MetadataFile = *metadata
	}
	return d, nil
}

func (s *Store) Get(ctx context.Context, key string) (*Dataset, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+datasetColumns+` FROM datasets WHERE key = $1`, key)
	d, err := scanDataset(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset %s: %w", key, err)
	}
	return &d, nil
}

func (s *Store) List(ctx context.Context, limit, offset int) ([]Dataset, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+datasetColumns+` FROM datasets
		ORDER BY created_at DESC, key
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	out := []Dataset{}
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Search returns the summarized datasets closest to embedding by cosine
// distance.
func (s *Store) Search(ctx context.Context, embedding []float32, limit int) ([]Match, error) {
	if len(embedding) == 0 {
		return []Match{}, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+datasetColumns+`, embedding <=> $1 AS distance FROM datasets
		WHERE embedding IS NOT NULL
		ORDER BY distance
		LIMIT $2`, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search datasets: %w", err)
	}
	defer rows.Close()

	out := []Match{}
	for rows.Next() {
		var m Match
		d, err := scanDataset(rows, &m.Distance)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		m.Dataset = d
		out = append(out, m)
	}
	return out, rows.Err()
}

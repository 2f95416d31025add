package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is a durable ProcessedDocuments backed by a processed_documents
// table. Use it in deployments where ingestion idempotency must survive
// worker restarts.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing connection pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate applies the registry schema migrations from migrationsDir against
// the given database URL. Running against an up-to-date schema is a no-op.
func Migrate(databaseURL, migrationsDir string) error {
	m, err := migrate.New("file://"+migrationsDir, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to init migrations: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (p *Postgres) Contains(ctx context.Context, documentID string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM processed_documents WHERE document_id = $1)",
		documentID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check processed document: %w", err)
	}
	return exists, nil
}

func (p *Postgres) Add(ctx context.Context, documentID string) error {
	_, err := p.pool.Exec(ctx,
		"INSERT INTO processed_documents (document_id) VALUES ($1) ON CONFLICT (document_id) DO NOTHING",
		documentID,
	)
	if err != nil {
		return fmt.Errorf("failed to record processed document: %w", err)
	}
	return nil
}

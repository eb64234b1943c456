package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/scholarwatch/scholarship-watcher/internal/domain"
)

// PostgresStore is a SubscriberStore backed by PostgreSQL. It keeps the same
// merge-on-duplicate contract as the JSON document store: one row per email,
// country sets unioned on conflict, created_at preserved.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

// EnsureSchema creates the subscribers table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS subscribers (
			id BIGSERIAL PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			countries TEXT[] NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ
		)
	`)
	if err != nil {
		return fmt.Errorf("creating subscribers table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, sub domain.Subscriber) error {
	createdAt := time.Now().UTC()
	if sub.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, sub.CreatedAt); err == nil {
			createdAt = t
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO subscribers (email, countries, active, created_at)
		VALUES ($1, $2, TRUE, $3)
		ON CONFLICT (email) DO UPDATE SET
			countries = ARRAY(
				SELECT DISTINCT c
				FROM unnest(subscribers.countries || EXCLUDED.countries) AS c
				ORDER BY c
			),
			active = TRUE,
			updated_at = NOW()
	`, sub.Email, sub.Countries, createdAt)
	if err != nil {
		return fmt.Errorf("upserting subscriber: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, activeOnly bool) ([]domain.Subscriber, error) {
	query := `
		SELECT email, countries, active, created_at, updated_at
		FROM subscribers
		ORDER BY id
	`
	if activeOnly {
		query = `
			SELECT email, countries, active, created_at, updated_at
			FROM subscribers
			WHERE active
			ORDER BY id
		`
	}

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying subscribers: %w", err)
	}
	defer rows.Close()

	subscribers := []domain.Subscriber{}
	for rows.Next() {
		var (
			sub       domain.Subscriber
			createdAt time.Time
			updatedAt *time.Time
		)
		if err := rows.Scan(&sub.Email, &sub.Countries, &sub.Active, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning subscriber: %w", err)
		}
		sub.CreatedAt = domain.Timestamp(createdAt)
		if updatedAt != nil {
			sub.UpdatedAt = domain.Timestamp(*updatedAt)
		}
		subscribers = append(subscribers, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading subscribers: %w", err)
	}

	return subscribers, nil
}

func (s *PostgresStore) Deactivate(ctx context.Context, email string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE subscribers SET active = FALSE, updated_at = NOW()
		WHERE email = $1
	`, email)
	if err != nil {
		return fmt.Errorf("deactivating subscriber: %w", err)
	}
	return nil
}

// GetByEmail returns the record for an email, or nil when absent.
func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*domain.Subscriber, error) {
	var (
		sub       domain.Subscriber
		createdAt time.Time
		updatedAt *time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT email, countries, active, created_at, updated_at
		FROM subscribers WHERE email = $1
	`, email).Scan(&sub.Email, &sub.Countries, &sub.Active, &createdAt, &updatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying subscriber: %w", err)
	}
	sub.CreatedAt = domain.Timestamp(createdAt)
	if updatedAt != nil {
		sub.UpdatedAt = domain.Timestamp(*updatedAt)
	}
	return &sub, nil
}

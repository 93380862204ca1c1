package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/acp-checkout/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// PostgresStore is the durable backend. Each session is one JSONB document.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(cred *Credentials) (*PostgresStore, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &PostgresStore{db: db}, nil
}

func (r *PostgresStore) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "checkout_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *PostgresStore) Create(ctx context.Context, initial *domain.Session) (*domain.Session, error) {
	session := newSession(initial, time.Now().UTC())
	doc, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	query := `INSERT INTO checkout_sessions (id, status, document, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $4)`
	if _, err := r.db.ExecContext(ctx, query, session.ID, session.Status, doc, session.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert checkout session: %w", err)
	}
	return session, nil
}

func (r *PostgresStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	query := `SELECT document FROM checkout_sessions WHERE id::text = $1`

	var doc []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query checkout session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(doc, &session); err != nil {
		return nil, fmt.Errorf("unmarshal checkout session: %w", err)
	}
	return &session, nil
}

func (r *PostgresStore) Set(ctx context.Context, session *domain.Session) error {
	stored := session.Clone()
	stored.UpdatedAt = time.Now().UTC()
	doc, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	query := `INSERT INTO checkout_sessions (id, status, document, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (id) DO UPDATE
	          SET status = EXCLUDED.status, document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`
	_, err = r.db.ExecContext(ctx, query, stored.ID, stored.Status, doc, stored.CreatedAt, stored.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert checkout session: %w", err)
	}
	return nil
}

func (r *PostgresStore) List(ctx context.Context) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT document FROM checkout_sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query checkout sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan checkout session: %w", err)
		}
		var session domain.Session
		if err := json.Unmarshal(doc, &session); err != nil {
			return nil, fmt.Errorf("unmarshal checkout session: %w", err)
		}
		sessions = append(sessions, &session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return sessions, nil
}

// DeleteExpired removes sessions not updated since before. It returns the count removed.
func (r *PostgresStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM checkout_sessions WHERE updated_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresStore) Close() error {
	return r.db.Close()
}

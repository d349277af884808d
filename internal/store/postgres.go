package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the users and podcasts tables. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS podcasts (
    id            TEXT PRIMARY KEY,
    owner_id      TEXT NOT NULL REFERENCES users(id),
    playlist      TEXT NOT NULL,
    title         TEXT NOT NULL DEFAULT '',
    script        TEXT NOT NULL,
    audio_address TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_podcasts_owner ON podcasts(owner_id, created_at DESC);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore implements [UserStore] and [PodcastStore] on PostgreSQL.
type PostgresStore struct {
	db DB
}

// Compile-time interface checks.
var (
	_ UserStore    = (*PostgresStore)(nil)
	_ PodcastStore = (*PostgresStore)(nil)
)

// NewPostgresStore creates a store using the given connection or pool. The
// caller is responsible for calling [PostgresStore.Migrate] to ensure the
// schema exists before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

// Create registers a new account.
func (s *PostgresStore) Create(ctx context.Context, email, password string) (*User, error) {
	if err := validateNewUser(email, password); err != nil {
		return nil, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
	}

	const query = `
		INSERT INTO users (id, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	err = s.db.QueryRow(ctx, query, u.ID, u.Email, u.PasswordHash).Scan(&u.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("store: create user: %w", err)
	}
	return u, nil
}

// FindByEmail returns the account registered under email.
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	const query = `
		SELECT id, email, password_hash, created_at
		FROM users
		WHERE email = $1`

	var u User
	err := s.db.QueryRow(ctx, query, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: find user %q: %w", email, err)
	}
	return &u, nil
}

// CheckCredentials verifies an email/password pair.
func (s *PostgresStore) CheckCredentials(ctx context.Context, email, password string) (*User, error) {
	u, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !verifyPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// CreatePodcast persists a podcast record, filling in ID and CreatedAt.
func (s *PostgresStore) CreatePodcast(ctx context.Context, p *Podcast) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	const query = `
		INSERT INTO podcasts (id, owner_id, playlist, title, script, audio_address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := s.db.QueryRow(ctx, query,
		p.ID, p.OwnerID, p.Playlist, p.Title, p.Script, p.AudioAddress,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: create podcast: %w", err)
	}
	return nil
}

// GetPodcast returns the podcast record with the given ID.
func (s *PostgresStore) GetPodcast(ctx context.Context, id string) (*Podcast, error) {
	const query = `
		SELECT id, owner_id, playlist, title, script, audio_address, created_at
		FROM podcasts
		WHERE id = $1`

	var p Podcast
	err := s.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.OwnerID, &p.Playlist, &p.Title, &p.Script, &p.AudioAddress, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get podcast %q: %w", id, err)
	}
	return &p, nil
}

// ListByOwner returns all podcasts owned by ownerID, newest first.
func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID string) ([]Podcast, error) {
	const query = `
		SELECT id, owner_id, playlist, title, script, audio_address, created_at
		FROM podcasts
		WHERE owner_id = $1
		ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("store: list podcasts: %w", err)
	}
	defer rows.Close()

	var podcasts []Podcast
	for rows.Next() {
		var p Podcast
		if err := rows.Scan(
			&p.ID, &p.OwnerID, &p.Playlist, &p.Title, &p.Script, &p.AudioAddress, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("store: list scan: %w", err)
		}
		podcasts = append(podcasts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list podcasts: %w", err)
	}
	return podcasts, nil
}

// isDuplicateKeyError checks whether a PostgreSQL error is a unique-violation
// (SQLSTATE 23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

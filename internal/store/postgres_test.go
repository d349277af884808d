package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ---------------------------------------------------------------------------
// Test helpers: mock DB types
// ---------------------------------------------------------------------------

// mockRow implements pgx.Row for testing.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error { return r.scanFunc(dest...) }

// mockRows implements pgx.Rows for testing.
type mockRows struct {
	data   [][]any
	idx    int
	err    error
	closed bool
}

func (r *mockRows) Close()                                       { r.closed = true }
func (r *mockRows) Err() error                                   { return r.err }
func (r *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *mockRows) RawValues() [][]byte                          { return nil }
func (r *mockRows) Conn() *pgx.Conn                              { return nil }

func (r *mockRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *mockRows) Scan(dest ...any) error {
	row := r.data[r.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: expected %d columns, got %d destinations", len(row), len(dest))
	}
	for i, v := range row {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *time.Time:
			*d = v.(time.Time)
		default:
			return fmt.Errorf("scan: unsupported type at index %d: %T", i, dest[i])
		}
	}
	return nil
}

func (r *mockRows) Values() ([]any, error) { return nil, nil }

// mockDB implements the DB interface for testing.
type mockDB struct {
	queryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	queryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	execFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.queryRowFunc != nil {
		return m.queryRowFunc(ctx, sql, args...)
	}
	return &mockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }}
}

func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, sql, args...)
	}
	return &mockRows{}, nil
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.execFunc != nil {
		return m.execFunc(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

// ---------------------------------------------------------------------------
// User tests
// ---------------------------------------------------------------------------

func TestPostgresStore_CreateUser(t *testing.T) {
	t.Parallel()

	now := time.Now()
	var gotArgs []any
	db := &mockDB{
		queryRowFunc: func(_ context.Context, sql string, args ...any) pgx.Row {
			if !strings.Contains(sql, "INSERT INTO users") {
				t.Errorf("unexpected SQL: %s", sql)
			}
			gotArgs = args
			return &mockRow{scanFunc: func(dest ...any) error {
				*(dest[0].(*time.Time)) = now
				return nil
			}}
		},
	}

	s := NewPostgresStore(db)
	u, err := s.Create(context.Background(), "jordan@example.com", "super-secret")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID == "" {
		t.Error("user ID not assigned")
	}
	if !u.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", u.CreatedAt, now)
	}
	if len(gotArgs) != 3 {
		t.Fatalf("got %d query args, want 3", len(gotArgs))
	}
	if gotArgs[1] != "jordan@example.com" {
		t.Errorf("email arg = %v", gotArgs[1])
	}
	if hash, _ := gotArgs[2].(string); hash == "super-secret" || hash == "" {
		t.Error("password not hashed before insert")
	}
}

func TestPostgresStore_CreateUser_Duplicate(t *testing.T) {
	t.Parallel()

	db := &mockDB{
		queryRowFunc: func(context.Context, string, ...any) pgx.Row {
			return &mockRow{scanFunc: func(...any) error {
				return &pgconn.PgError{Code: "23505"}
			}}
		},
	}

	s := NewPostgresStore(db)
	if _, err := s.Create(context.Background(), "jordan@example.com", "super-secret"); !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("err = %v, want ErrDuplicateEmail", err)
	}
}

func TestPostgresStore_FindByEmail_NotFound(t *testing.T) {
	t.Parallel()

	s := NewPostgresStore(&mockDB{})
	if _, err := s.FindByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPostgresStore_CheckCredentials(t *testing.T) {
	t.Parallel()

	hash, err := hashPassword("super-secret")
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	now := time.Now()
	db := &mockDB{
		queryRowFunc: func(_ context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFunc: func(dest ...any) error {
				*(dest[0].(*string)) = "user-1"
				*(dest[1].(*string)) = "jordan@example.com"
				*(dest[2].(*string)) = hash
				*(dest[3].(*time.Time)) = now
				return nil
			}}
		},
	}

	s := NewPostgresStore(db)
	u, err := s.CheckCredentials(context.Background(), "jordan@example.com", "super-secret")
	if err != nil {
		t.Fatalf("CheckCredentials: %v", err)
	}
	if u.ID != "user-1" {
		t.Errorf("ID = %s", u.ID)
	}

	if _, err := s.CheckCredentials(context.Background(), "jordan@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestPostgresStore_CheckCredentials_UnknownEmail(t *testing.T) {
	t.Parallel()

	s := NewPostgresStore(&mockDB{})
	if _, err := s.CheckCredentials(context.Background(), "nobody@example.com", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

// ---------------------------------------------------------------------------
// Podcast tests
// ---------------------------------------------------------------------------

func TestPostgresStore_CreatePodcast(t *testing.T) {
	t.Parallel()

	now := time.Now()
	db := &mockDB{
		queryRowFunc: func(_ context.Context, sql string, args ...any) pgx.Row {
			if !strings.Contains(sql, "INSERT INTO podcasts") {
				t.Errorf("unexpected SQL: %s", sql)
			}
			return &mockRow{scanFunc: func(dest ...any) error {
				*(dest[0].(*time.Time)) = now
				return nil
			}}
		},
	}

	s := NewPostgresStore(db)
	p := &Podcast{
		OwnerID:      "user-1",
		Playlist:     "science",
		Script:       "Jordan: hi\nTaylor: hello",
		AudioAddress: "s3://bucket/x.mp3",
	}
	if err := s.CreatePodcast(context.Background(), p); err != nil {
		t.Fatalf("CreatePodcast: %v", err)
	}
	if p.ID == "" {
		t.Error("podcast ID not assigned")
	}
	if !p.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", p.CreatedAt, now)
	}
}

func TestPostgresStore_CreatePodcast_Invalid(t *testing.T) {
	t.Parallel()

	s := NewPostgresStore(&mockDB{})
	if err := s.CreatePodcast(context.Background(), &Podcast{OwnerID: "u"}); err == nil {
		t.Error("expected validation error")
	}
}

func TestPostgresStore_ListByOwner(t *testing.T) {
	t.Parallel()

	now := time.Now()
	db := &mockDB{
		queryFunc: func(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
			if len(args) != 1 || args[0] != "user-1" {
				t.Errorf("query args = %v", args)
			}
			return &mockRows{data: [][]any{
				{"p2", "user-1", "science", "", "script two", "s3://bucket/b.mp3", now},
				{"p1", "user-1", "science", "", "script one", "s3://bucket/a.mp3", now.Add(-time.Hour)},
			}}, nil
		},
	}

	s := NewPostgresStore(db)
	list, err := s.ListByOwner(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d podcasts, want 2", len(list))
	}
	if list[0].ID != "p2" || list[1].ID != "p1" {
		t.Errorf("order = %s, %s", list[0].ID, list[1].ID)
	}
}

func TestPostgresStore_GetPodcast_NotFound(t *testing.T) {
	t.Parallel()

	s := NewPostgresStore(&mockDB{})
	if _, err := s.GetPodcast(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPostgresStore_Migrate(t *testing.T) {
	t.Parallel()

	var gotSQL string
	db := &mockDB{
		execFunc: func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
			gotSQL = sql
			return pgconn.CommandTag{}, nil
		},
	}

	s := NewPostgresStore(db)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if !strings.Contains(gotSQL, "CREATE TABLE IF NOT EXISTS users") ||
		!strings.Contains(gotSQL, "CREATE TABLE IF NOT EXISTS podcasts") {
		t.Error("Migrate did not execute the schema DDL")
	}
}

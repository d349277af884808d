// Package store persists user accounts and podcast records. The pipeline
// itself never touches persistence; it hands {script, audio address} to the
// caller, and the HTTP layer files the result here.
//
// Two implementations exist: [PostgresStore] for deployments and
// [MemoryStore] for development and tests. Both enforce the same contract.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Common store errors.
var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrDuplicateEmail is returned by Create when the email is taken.
	ErrDuplicateEmail = errors.New("store: email already registered")

	// ErrInvalidCredentials is returned by CheckCredentials when the email is
	// unknown or the password does not match. The two cases are deliberately
	// indistinguishable.
	ErrInvalidCredentials = errors.New("store: invalid credentials")
)

// User is a registered account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Podcast is one generated episode's persisted record.
type Podcast struct {
	ID           string
	OwnerID      string
	Playlist     string
	Title        string
	Script       string
	AudioAddress string
	CreatedAt    time.Time
}

// Validate checks the fields required to persist a podcast record.
func (p *Podcast) Validate() error {
	var errs []error
	if p.OwnerID == "" {
		errs = append(errs, errors.New("owner id is required"))
	}
	if p.Playlist == "" {
		errs = append(errs, errors.New("playlist is required"))
	}
	if p.Script == "" {
		errs = append(errs, errors.New("script is required"))
	}
	if p.AudioAddress == "" {
		errs = append(errs, errors.New("audio address is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("store: invalid podcast: %w", err)
	}
	return nil
}

// UserStore manages account records.
type UserStore interface {
	// Create registers a new account. The password is hashed before storage;
	// plaintext never reaches the backend. Returns ErrDuplicateEmail when the
	// email is already registered.
	Create(ctx context.Context, email, password string) (*User, error)

	// FindByEmail returns the account for email, or ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// CheckCredentials verifies email and password, returning the account on
	// success and ErrInvalidCredentials otherwise.
	CheckCredentials(ctx context.Context, email, password string) (*User, error)
}

// PodcastStore manages episode records.
type PodcastStore interface {
	// CreatePodcast persists a new record, filling in ID and CreatedAt.
	CreatePodcast(ctx context.Context, p *Podcast) error

	// GetPodcast returns the record with the given ID, or ErrNotFound.
	GetPodcast(ctx context.Context, id string) (*Podcast, error)

	// ListByOwner returns all records owned by ownerID, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]Podcast, error)
}

// validateNewUser checks registration input before any backend work.
func validateNewUser(email, password string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("store: invalid email: %w", err)
	}
	if len(password) < 8 {
		return errors.New("store: password must be at least 8 characters")
	}
	return nil
}

// hashPassword derives the storable password hash.
func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("store: hash password: %w", err)
	}
	return string(hash), nil
}

// verifyPassword reports whether password matches the stored hash.
func verifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

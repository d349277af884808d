package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements [UserStore] and [PodcastStore] in process memory.
// Intended for development and tests; everything is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*User    // keyed by email
	podcasts map[string]*Podcast // keyed by podcast ID
}

// Compile-time interface checks.
var (
	_ UserStore    = (*MemoryStore)(nil)
	_ PodcastStore = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*User),
		podcasts: make(map[string]*Podcast),
	}
}

// Ping implements the readiness probe; an in-memory store is always ready.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Create registers a new account.
func (s *MemoryStore) Create(_ context.Context, email, password string) (*User, error) {
	if err := validateNewUser(email, password); err != nil {
		return nil, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[email]; exists {
		return nil, ErrDuplicateEmail
	}
	u := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[email] = u

	cp := *u
	return &cp, nil
}

// FindByEmail returns the account registered under email.
func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// CheckCredentials verifies an email/password pair.
func (s *MemoryStore) CheckCredentials(ctx context.Context, email, password string) (*User, error) {
	u, err := s.FindByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !verifyPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// CreatePodcast persists a podcast record, filling in ID and CreatedAt.
func (s *MemoryStore) CreatePodcast(_ context.Context, p *Podcast) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	cp := *p
	s.podcasts[p.ID] = &cp
	return nil
}

// GetPodcast returns the podcast record with the given ID.
func (s *MemoryStore) GetPodcast(_ context.Context, id string) (*Podcast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.podcasts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// ListByOwner returns all podcasts owned by ownerID, newest first.
func (s *MemoryStore) ListByOwner(_ context.Context, ownerID string) ([]Podcast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Podcast
	for _, p := range s.podcasts {
		if p.OwnerID == ownerID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

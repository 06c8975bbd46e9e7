package credential

import (
	"blockRewards/domain"
	"blockRewards/pkg/logger"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// KVStore contract interface
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Store keeps every user record in memory and writes the whole set back to
// the KV store on each mutation. A failed write rolls the memory back.
type Store struct {
	mu    sync.RWMutex
	kv    KVStore
	users map[string]domain.User
}

func NewStore(kv KVStore) *Store {
	return &Store{
		kv:    kv,
		users: make(map[string]domain.User),
	}
}

// Load replaces the in-memory set with the persisted one. Missing or corrupt
// data leaves the store empty; it is never an error.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = make(map[string]domain.User)

	raw, err := s.kv.Get(ctx, domain.KeyUsers)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			logger.Warn("Failed to read users, starting empty", "error", err)
		}
		return
	}

	var records []domain.User
	if err := json.Unmarshal(raw, &records); err != nil {
		logger.Warn("Corrupt users payload, starting empty", "error", err)
		return
	}

	for _, u := range records {
		if u.Email == "" {
			continue
		}
		s.users[u.Email] = u
	}

	logger.Info("Users loaded", "count", len(s.users))
}

func (s *Store) Persist(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.persistLocked(ctx)
}

func (s *Store) persistLocked(ctx context.Context) error {
	payload, err := json.Marshal(s.snapshotLocked())
	if err != nil {
		return fmt.Errorf("failed to marshal users: %w", err)
	}

	if err := s.kv.Put(ctx, domain.KeyUsers, payload); err != nil {
		logger.Error("Failed to persist users", "error", err)
		return fmt.Errorf("failed to persist users: %w", err)
	}

	return nil
}

func (s *Store) Get(email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[email]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}

	return u, nil
}

func (s *Store) FindByReferralCode(code string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if code == "" {
		return domain.User{}, domain.ErrNotFound
	}

	for _, u := range s.users {
		if u.ReferralCode == code {
			return u, nil
		}
	}

	return domain.User{}, domain.ErrNotFound
}

// Create inserts a new record and fails with ErrDuplicateEmail if the email
// is already taken. The existing record is left untouched.
func (s *Store) Create(ctx context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Email]; ok {
		return domain.ErrDuplicateEmail
	}

	s.users[user.Email] = user
	if err := s.persistLocked(ctx); err != nil {
		delete(s.users, user.Email)
		return err
	}

	return nil
}

// Put upserts the given records by email and persists once.
func (s *Store) Put(ctx context.Context, users ...domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := make(map[string]*domain.User, len(users))
	for _, u := range users {
		if u.Email == "" {
			return fmt.Errorf("%w: email is required", domain.ErrValidation)
		}
		if _, seen := previous[u.Email]; seen {
			continue
		}
		if old, ok := s.users[u.Email]; ok {
			previous[u.Email] = &old
		} else {
			previous[u.Email] = nil
		}
	}

	for _, u := range users {
		s.users[u.Email] = u
	}

	if err := s.persistLocked(ctx); err != nil {
		for email, old := range previous {
			if old == nil {
				delete(s.users, email)
			} else {
				s.users[email] = *old
			}
		}
		return err
	}

	return nil
}

// Update runs fn on the record for email while holding the store lock, then
// persists it. Nothing is kept if fn or the write fails.
func (s *Store) Update(ctx context.Context, email string, fn func(u *domain.User) error) (domain.User, error) {
	updated, err := s.UpdateMany(ctx, []string{email}, func(users []*domain.User) error {
		return fn(users[0])
	})
	if err != nil {
		return domain.User{}, err
	}
	return updated[0], nil
}

// UpdateMany is Update for several records that must change together. fn gets
// the records in the order of emails. Unchanged records skip the write.
func (s *Store) UpdateMany(ctx context.Context, emails []string, fn func(users []*domain.User) error) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := make([]*domain.User, len(emails))
	for i, email := range emails {
		u, ok := s.users[email]
		if !ok {
			return nil, domain.ErrNotFound
		}
		working[i] = &u
	}

	if err := fn(working); err != nil {
		return nil, err
	}

	previous := make(map[string]domain.User, len(emails))
	changed := false
	for i, u := range working {
		if u.Email != emails[i] {
			return nil, fmt.Errorf("%w: email cannot change", domain.ErrValidation)
		}
		old := s.users[u.Email]
		if old != *u {
			changed = true
		}
		if _, seen := previous[u.Email]; !seen {
			previous[u.Email] = old
		}
	}

	out := make([]domain.User, len(working))
	for i, u := range working {
		out[i] = *u
	}
	if !changed {
		return out, nil
	}

	for _, u := range working {
		s.users[u.Email] = *u
	}

	if err := s.persistLocked(ctx); err != nil {
		for email, old := range previous {
			s.users[email] = old
		}
		return nil, err
	}

	return out, nil
}

// All returns a copy of every record ordered by email.
func (s *Store) All() []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() []domain.User {
	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

// Package authtest provides in-memory stand-ins for the Postgres stores with
// the same not-found, soft-delete and compare-and-swap behaviour.
package authtest

import (
	"context"
	"sync"
	"time"

	"temanagement/api/internal/lockout"
	"temanagement/api/internal/models"
	"temanagement/api/internal/repository"
)

type Store struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*models.User
	profiles map[int64]models.Profile
}

func NewStore() *Store {
	return &Store{
		users:    make(map[int64]*models.User),
		profiles: make(map[int64]models.Profile),
	}
}

// AddUser stores u under a fresh id and returns it.
func (s *Store) AddUser(u models.User) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	u.ID = s.nextID
	if u.AccountStatus == "" {
		u.AccountStatus = models.AccountStatusActive
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = &u
	return u.ID
}

func (s *Store) SetProfile(p models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
}

// Mutate applies fn to the stored record, deleted or not.
func (s *Store) Mutate(id int64, fn func(u *models.User)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		fn(u)
	}
}

func (s *Store) SoftDelete(id int64, at time.Time) {
	s.Mutate(id, func(u *models.User) { u.DeletedAt = &at })
}

// Snapshot returns the raw record, including soft-deleted ones.
func (s *Store) Snapshot(id int64) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, false
	}
	return *u, true
}

func (s *Store) live(id int64) (*models.User, bool) {
	u, ok := s.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, false
	}
	return u, true
}

func (s *Store) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email && u.DeletedAt == nil {
			return *u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (s *Store) GetByID(_ context.Context, id int64) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.live(id)
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return *u, nil
}

func (s *Store) RecordLoginFailure(_ context.Context, id int64, policy lockout.Policy, now time.Time) (lockout.Counters, lockout.Counters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.live(id)
	if !ok {
		return lockout.Counters{}, lockout.Counters{}, repository.ErrUserNotFound
	}
	before := lockout.Counters{FailedAttempts: u.FailedLoginAttempts, LockedUntil: u.LockedUntil}
	after := policy.Apply(before, lockout.LoginFailed, now)
	u.FailedLoginAttempts = after.FailedAttempts
	u.LockedUntil = after.LockedUntil
	return before, after, nil
}

func (s *Store) RecordLoginSuccess(_ context.Context, id int64, now time.Time) error {
	return s.update(id, func(u *models.User) {
		u.FailedLoginAttempts = 0
		u.LockedUntil = nil
		u.LastLoginAt = &now
	})
}

func (s *Store) SaveRefreshToken(_ context.Context, id int64, token string, expiresAt time.Time) error {
	return s.update(id, func(u *models.User) {
		u.RefreshToken = &token
		u.RefreshTokenExpiresAt = &expiresAt
	})
}

func (s *Store) RotateRefreshToken(_ context.Context, id int64, presented, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.live(id)
	if !ok || u.RefreshToken == nil || *u.RefreshToken != presented {
		return repository.ErrRefreshTokenMismatch
	}
	u.RefreshToken = &token
	u.RefreshTokenExpiresAt = &expiresAt
	return nil
}

func (s *Store) ClearRefreshToken(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.RefreshToken = nil
		u.RefreshTokenExpiresAt = nil
	}
	return nil
}

func (s *Store) UpdatePassword(_ context.Context, id int64, hash string, changedAt time.Time) error {
	return s.update(id, func(u *models.User) {
		u.PasswordHash = hash
		u.PasswordChangedAt = &changedAt
	})
}

func (s *Store) Unlock(_ context.Context, id int64) error {
	return s.update(id, func(u *models.User) {
		u.FailedLoginAttempts = 0
		u.LockedUntil = nil
	})
}

func (s *Store) PurgeExpiredRefreshTokens(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, u := range s.users {
		if u.RefreshToken != nil && u.RefreshTokenExpiresAt != nil && u.RefreshTokenExpiresAt.Before(now) {
			u.RefreshToken = nil
			u.RefreshTokenExpiresAt = nil
			n++
		}
	}
	return n, nil
}

func (s *Store) FindByUserID(_ context.Context, userID int64) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return models.Profile{}, repository.ErrProfileNotFound
	}
	return p, nil
}

func (s *Store) update(id int64, fn func(u *models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.live(id)
	if !ok {
		return repository.ErrUserNotFound
	}
	fn(u)
	return nil
}

package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"temanagement/api/internal/ids"
	"temanagement/api/internal/lockout"
	"temanagement/api/internal/models"
	"temanagement/api/internal/repository"
	"temanagement/api/internal/security"
)

var (
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrAccountNotActive       = errors.New("account is not active")
	ErrInvalidRefreshToken    = errors.New("invalid refresh token")
	ErrInvalidCurrentPassword = errors.New("current password is incorrect")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrForbidden              = errors.New("forbidden")
	ErrUserNotFound           = errors.New("user not found")
)

type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id int64) (models.User, error)
	RecordLoginFailure(ctx context.Context, id int64, policy lockout.Policy, now time.Time) (lockout.Counters, lockout.Counters, error)
	RecordLoginSuccess(ctx context.Context, id int64, now time.Time) error
	SaveRefreshToken(ctx context.Context, id int64, token string, expiresAt time.Time) error
	RotateRefreshToken(ctx context.Context, id int64, presented, token string, expiresAt time.Time) error
	ClearRefreshToken(ctx context.Context, id int64) error
	UpdatePassword(ctx context.Context, id int64, hash string, changedAt time.Time) error
	Unlock(ctx context.Context, id int64) error
}

type ProfileStore interface {
	FindByUserID(ctx context.Context, userID int64) (models.Profile, error)
}

type TokenIssuer interface {
	IssueAccessToken(id security.Identity) (string, error)
	IssueRefreshToken(id security.Identity) (string, time.Time, error)
	VerifyRefreshToken(token string) (security.Identity, error)
}

// AvatarResolver turns a stored avatar reference into a URL clients can load.
type AvatarResolver interface {
	ResolveAvatar(ctx context.Context, ref string) (string, error)
}

type EventPublisher interface {
	PublishAuthEvent(ctx context.Context, event models.AuthEvent) error
}

type AuthService struct {
	users    CredentialStore
	profiles ProfileStore
	hasher   security.PasswordHasher
	tokens   TokenIssuer
	avatars  AvatarResolver
	events   EventPublisher
	policy   lockout.Policy
	now      func() time.Time
	log      zerolog.Logger
}

type Option func(*AuthService)

func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

func WithLockoutPolicy(policy lockout.Policy) Option {
	return func(s *AuthService) { s.policy = policy }
}

func WithAvatarResolver(resolver AvatarResolver) Option {
	return func(s *AuthService) { s.avatars = resolver }
}

func WithEventPublisher(publisher EventPublisher) Option {
	return func(s *AuthService) { s.events = publisher }
}

func NewAuthService(
	users CredentialStore,
	profiles ProfileStore,
	hasher security.PasswordHasher,
	tokens TokenIssuer,
	log zerolog.Logger,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		users:    users,
		profiles: profiles,
		hasher:   hasher,
		tokens:   tokens,
		policy:   lockout.DefaultPolicy(),
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UserProfile is the public view of an authenticated user.
type UserProfile struct {
	ID         string
	Email      string
	FirstName  string
	LastName   string
	Role       models.UserRole
	Department string
	Avatar     *string
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type LoginResult struct {
	User UserProfile
	TokenPair
}

func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("find user: %w", err)
	}

	if !user.IsActive() {
		return LoginResult{}, ErrAccountNotActive
	}

	now := s.now()
	counters := lockout.Counters{FailedAttempts: user.FailedLoginAttempts, LockedUntil: user.LockedUntil}
	if counters.State(now) == lockout.Locked {
		s.log.Warn().Int64("user_id", user.ID).Time("locked_until", *user.LockedUntil).Msg("login refused for locked account")
		return LoginResult{}, ErrInvalidCredentials
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		before, after, err := s.users.RecordLoginFailure(ctx, user.ID, s.policy, now)
		if err != nil {
			return LoginResult{}, fmt.Errorf("record login failure: %w", err)
		}
		s.publish(ctx, models.AuthActionLoginFailed, user.ID, user.Email)
		if lockout.JustLocked(before, after, now) {
			s.log.Warn().Int64("user_id", user.ID).Int("attempts", after.FailedAttempts).Msg("account locked")
			s.publish(ctx, models.AuthActionAccountLocked, user.ID, user.Email)
		}
		return LoginResult{}, ErrInvalidCredentials
	}

	if err := s.users.RecordLoginSuccess(ctx, user.ID, now); err != nil {
		return LoginResult{}, fmt.Errorf("record login success: %w", err)
	}

	pair, expiresAt, err := s.issuePair(user)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.users.SaveRefreshToken(ctx, user.ID, pair.RefreshToken, expiresAt); err != nil {
		return LoginResult{}, fmt.Errorf("save refresh token: %w", err)
	}

	s.publish(ctx, models.AuthActionLoginSucceeded, user.ID, user.Email)

	return LoginResult{
		User:      s.enrich(ctx, user),
		TokenPair: pair,
	}, nil
}

// Logout drops the stored refresh token. Logging out twice is not an error.
func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	if err := s.users.ClearRefreshToken(ctx, userID); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	s.publish(ctx, models.AuthActionLogout, userID, "")
	return nil
}

// Refresh exchanges the current refresh token for a new pair. Every failure
// is reported as ErrInvalidRefreshToken.
func (s *AuthService) Refresh(ctx context.Context, presented string) (TokenPair, error) {
	claims, err := s.tokens.VerifyRefreshToken(presented)
	if err != nil {
		return TokenPair{}, ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			s.log.Error().Err(err).Int64("user_id", claims.UserID).Msg("refresh lookup failed")
		}
		return TokenPair{}, ErrInvalidRefreshToken
	}

	if !user.IsActive() || user.RefreshToken == nil ||
		subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(presented)) != 1 {
		return TokenPair{}, ErrInvalidRefreshToken
	}
	if user.RefreshTokenExpiresAt == nil || !s.now().Before(*user.RefreshTokenExpiresAt) {
		return TokenPair{}, ErrInvalidRefreshToken
	}

	pair, expiresAt, err := s.issuePair(user)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("refresh issue failed")
		return TokenPair{}, ErrInvalidRefreshToken
	}
	if err := s.users.RotateRefreshToken(ctx, user.ID, presented, pair.RefreshToken, expiresAt); err != nil {
		if !errors.Is(err, repository.ErrRefreshTokenMismatch) {
			s.log.Error().Err(err).Int64("user_id", user.ID).Msg("refresh rotate failed")
		}
		return TokenPair{}, ErrInvalidRefreshToken
	}

	s.publish(ctx, models.AuthActionTokenRefreshed, user.ID, user.Email)
	return pair, nil
}

// ChangePassword leaves already issued tokens valid.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUnauthorized
		}
		return fmt.Errorf("find user: %w", err)
	}

	if !s.hasher.Verify(current, user.PasswordHash) {
		return ErrInvalidCurrentPassword
	}

	digest, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, digest, s.now()); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUnauthorized
		}
		return fmt.Errorf("update password: %w", err)
	}

	s.publish(ctx, models.AuthActionPasswordChanged, user.ID, user.Email)
	return nil
}

func (s *AuthService) CurrentUser(ctx context.Context, userID int64) (UserProfile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return UserProfile{}, ErrUnauthorized
		}
		return UserProfile{}, fmt.Errorf("find user: %w", err)
	}
	return s.enrich(ctx, user), nil
}

// UnlockAccount clears the failed attempt counter and any active lock.
func (s *AuthService) UnlockAccount(ctx context.Context, actorEmail string, userID int64) error {
	if err := s.users.Unlock(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("unlock user: %w", err)
	}
	s.log.Info().Int64("user_id", userID).Str("actor", actorEmail).Msg("account unlocked")
	s.publish(ctx, models.AuthActionAccountUnlocked, userID, actorEmail)
	return nil
}

// RevokeSession drops another user's refresh token.
func (s *AuthService) RevokeSession(ctx context.Context, actorEmail string, userID int64) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}
	if err := s.users.ClearRefreshToken(ctx, userID); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	s.log.Info().Int64("user_id", userID).Str("actor", actorEmail).Msg("session revoked")
	s.publish(ctx, models.AuthActionSessionRevoked, userID, actorEmail)
	return nil
}

func (s *AuthService) issuePair(user models.User) (TokenPair, time.Time, error) {
	id := security.Identity{UserID: user.ID, Email: user.Email, Role: user.Role}

	access, err := s.tokens.IssueAccessToken(id)
	if err != nil {
		return TokenPair{}, time.Time{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, expiresAt, err := s.tokens.IssueRefreshToken(id)
	if err != nil {
		return TokenPair{}, time.Time{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, expiresAt, nil
}

// enrich never fails: a missing profile yields empty names and no avatar.
func (s *AuthService) enrich(ctx context.Context, user models.User) UserProfile {
	out := UserProfile{
		ID:    user.PublicID(),
		Email: user.Email,
		Role:  user.Role,
	}

	profile, err := s.profiles.FindByUserID(ctx, user.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrProfileNotFound) {
			s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("profile lookup failed")
		}
		return out
	}

	out.FirstName = profile.FirstName
	out.LastName = profile.LastName
	out.Department = profile.Department
	out.Avatar = s.resolveAvatar(ctx, profile.AvatarURL)
	return out
}

func (s *AuthService) resolveAvatar(ctx context.Context, ref *string) *string {
	if ref == nil || *ref == "" {
		return nil
	}
	if s.avatars == nil {
		return ref
	}
	resolved, err := s.avatars.ResolveAvatar(ctx, *ref)
	if err != nil {
		s.log.Warn().Err(err).Str("avatar", *ref).Msg("avatar resolve failed")
		return ref
	}
	return &resolved
}

func (s *AuthService) publish(ctx context.Context, action models.AuthAction, userID int64, actor string) {
	if s.events == nil {
		return
	}
	event := models.AuthEvent{
		ID:         ids.New(),
		EntityType: "user",
		EntityID:   userID,
		Action:     action,
		ActorEmail: actor,
		CreatedAt:  s.now(),
	}
	if err := s.events.PublishAuthEvent(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("action", string(action)).Int64("user_id", userID).Msg("publish auth event failed")
	}
}

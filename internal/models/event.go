package models

import "time"

type AuthAction string

const (
	AuthActionLoginSucceeded  AuthAction = "login_succeeded"
	AuthActionLoginFailed     AuthAction = "login_failed"
	AuthActionAccountLocked   AuthAction = "account_locked"
	AuthActionLogout          AuthAction = "logout"
	AuthActionTokenRefreshed  AuthAction = "token_refreshed"
	AuthActionPasswordChanged AuthAction = "password_changed"
	AuthActionAccountUnlocked AuthAction = "account_unlocked"
	AuthActionSessionRevoked  AuthAction = "session_revoked"
)

// AuthEvent is a single entry of the authentication audit trail.
type AuthEvent struct {
	ID         string
	EntityType string
	EntityID   int64
	Action     AuthAction
	ActorEmail string
	CreatedAt  time.Time
}

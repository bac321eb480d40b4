package models

import (
	"fmt"
	"strconv"
	"time"
)

type UserRole string

const (
	UserRoleAdmin    UserRole = "admin"
	UserRoleManager  UserRole = "manager"
	UserRoleEmployee UserRole = "employee"
)

// ParseRole rejects anything outside the closed role set.
func ParseRole(raw string) (UserRole, error) {
	switch role := UserRole(raw); role {
	case UserRoleAdmin, UserRoleManager, UserRoleEmployee:
		return role, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusInactive  AccountStatus = "inactive"
	AccountStatusSuspended AccountStatus = "suspended"
)

// User is the credential record. PasswordHash and RefreshToken never leave
// the service layer.
type User struct {
	ID                    int64
	Email                 string
	PasswordHash          string
	Role                  UserRole
	AccountStatus         AccountStatus
	FailedLoginAttempts   int
	LockedUntil           *time.Time
	LastLoginAt           *time.Time
	RefreshToken          *string
	RefreshTokenExpiresAt *time.Time
	PasswordChangedAt     *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
	DeletedAt             *time.Time
}

func (u User) IsDeleted() bool {
	return u.DeletedAt != nil
}

func (u User) IsActive() bool {
	return u.AccountStatus == AccountStatusActive
}

// PublicID is the string form used on the wire.
func (u User) PublicID() string {
	return strconv.FormatInt(u.ID, 10)
}

// Profile is the employee data used to enrich auth responses.
type Profile struct {
	UserID     int64
	FirstName  string
	LastName   string
	Department string
	AvatarURL  *string
}

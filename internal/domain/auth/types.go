package auth

// Package auth contains domain-level types for authentication and
// authorization. It is pure and free of framework/adapter concerns.

import (
	"fmt"
	"strings"
	"time"
)

// Role represents an application's authorization role.
// Keep string form for easy persistence and token claims.
// Valid values are defined as constants below.
type Role string

const (
	RoleSuperAdmin Role = "superAdmin"
	RoleAdmin      Role = "admin"
	RoleEmployee   Role = "employee"
	RoleClient     Role = "client"
	RoleVendor     Role = "vendor"
	// RoleUser is the least-privileged role and the default for new accounts.
	RoleUser Role = "user"
)

// DefaultRole is assigned to accounts created without an explicit role.
const DefaultRole = RoleUser

var allRoles = []Role{RoleSuperAdmin, RoleAdmin, RoleEmployee, RoleClient, RoleVendor, RoleUser}

// Roles returns the recognized roles.
func Roles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// ParseRole validates a stored or user-supplied role string.
func ParseRole(s string) (Role, error) {
	for _, r := range allRoles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Valid reports whether the role is one of the recognized values.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// FlagState is the tri-state value of a named feature flag.
type FlagState string

const (
	FlagGranted FlagState = "granted"
	FlagDenied  FlagState = "denied"
	FlagDefault FlagState = "default"
)

// Claims is the identity payload embedded in a signed bearer token.
type Claims struct {
	UserID       string               `json:"id"`
	Email        string               `json:"email"`
	Active       bool                 `json:"active"`
	Role         Role                 `json:"role"`
	FeatureFlags map[string]FlagState `json:"featureFlags,omitempty"`
	IssuedAt     time.Time            `json:"-"`
	ExpiresAt    time.Time            `json:"-"`
}

// Expired reports whether the claim set's expiry has passed.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// NormalizeUsername lowercases a username the way the credential store does.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// NormalizeEmail lowercases an email the way the credential store does.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

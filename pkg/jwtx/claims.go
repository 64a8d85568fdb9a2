package jwtx

import (
	"time"

	"github.com/google/uuid"
)

// Kind selects which claim set a token is decoded into.
type Kind int

const (
	KindAccess Kind = iota + 1
	KindRefresh
)

func (k Kind) String() string {
	switch k {
	case KindAccess:
		return "access"
	case KindRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// Role is the numeric role id carried in the role_id claim.
type Role int

const (
	RoleUnknown Role = 0
	RoleUser    Role = 1
	RoleAdmin   Role = 2
	RoleAuthor  Role = 3
	RoleManager Role = 4
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r >= RoleUser && r <= RoleManager
}

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	case RoleAuthor:
		return "author"
	case RoleManager:
		return "manager"
	default:
		return "unknown"
	}
}

// Claims is the typed view of a token payload. Access and refresh tokens share
// the first five fields; Login and SourceIP are only filled for refresh tokens.
type Claims struct {
	TokenID     uuid.UUID
	UserID      uuid.UUID
	RoleID      Role
	Fingerprint string

	// ExpiresAt is seconds since the epoch. Nothing in this package compares
	// it against the clock; the server's 401 is the authority on expiry.
	ExpiresAt int64

	// Refresh token only
	Login    string
	SourceIP *string

	// Raw is the payload exactly as decoded from JSON.
	Raw map[string]any
}

// payload mirrors the wire keys. exp may arrive as a float from some issuers.
type payload struct {
	TokenID     *uuid.UUID `json:"token_id"`
	UserID      *uuid.UUID `json:"user_id"`
	RoleID      *Role      `json:"role_id"`
	Fingerprint *string    `json:"fingerprint"`
	Exp         *float64   `json:"exp"`
	Login       *string    `json:"login"`
	IP          *string    `json:"ip"`
}

func (p payload) claims(kind Kind, raw map[string]any) Claims {
	c := Claims{Raw: raw}
	if p.TokenID != nil {
		c.TokenID = *p.TokenID
	}
	if p.UserID != nil {
		c.UserID = *p.UserID
	}
	if p.RoleID != nil {
		c.RoleID = *p.RoleID
	}
	if p.Fingerprint != nil {
		c.Fingerprint = *p.Fingerprint
	}
	if p.Exp != nil {
		c.ExpiresAt = int64(*p.Exp)
	}

	if kind == KindRefresh {
		if p.Login != nil {
			c.Login = *p.Login
		}
		c.SourceIP = p.IP
	}

	return c
}

// ExpiresTime returns ExpiresAt as a time, or the zero time when unset.
func (c Claims) ExpiresTime() time.Time {
	if c.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(c.ExpiresAt, 0).UTC()
}

// Expired reports whether the token's exp lies before now. Tokens without an
// exp never expire by this check.
func (c Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == 0 {
		return false
	}
	return now.After(c.ExpiresTime())
}

// Validate performs the optional schema check that Decode skips. It returns a
// map of claim names to reasons, or nil if the claims are complete.
func (c Claims) Validate(kind Kind) map[string]string {
	errs := make(map[string]string)

	if c.TokenID == uuid.Nil {
		errs["token_id"] = "required"
	}
	if c.UserID == uuid.Nil {
		errs["user_id"] = "required"
	}
	if !c.RoleID.Valid() {
		errs["role_id"] = "unknown role"
	}
	if c.ExpiresAt <= 0 {
		errs["exp"] = "required"
	}
	if kind == KindRefresh && c.Login == "" {
		errs["login"] = "required"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

package domain

import (
	"strings"
	"time"
)

// Address is the authenticated caller identity supplied by the auth layer.
// Addresses are opaque to the core; they are normalized to lower case so
// that lookups and equality checks are case-insensitive.
type Address string

// ZeroAddress is the null identity. It is never a valid patient, provider,
// or administrator.
const ZeroAddress Address = ""

func NormalizeAddress(raw string) Address {
	return Address(strings.ToLower(strings.TrimSpace(raw)))
}

func (a Address) IsZero() bool {
	if a == ZeroAddress {
		return true
	}
	// A hex address of all zeroes is the ledger-style null identity.
	s := strings.TrimPrefix(string(a), "0x")
	if s == "" {
		return false
	}
	return strings.Trim(s, "0") == ""
}

func (a Address) String() string {
	return string(a)
}

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleProvider Role = "provider"
	RolePatient  Role = "patient"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleProvider, RolePatient:
		return true
	}
	return false
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"` // Always "Bearer"
}

// Claims are the authenticated facts the handler layer extracts from a
// token and hands to the core as the caller identity.
type Claims struct {
	Address Address `json:"sub"`
	Role    Role    `json:"role"`
}

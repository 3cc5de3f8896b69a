package models

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/blake2b"
)

// APIKey is a caller credential. Only the digest of the bearer token is stored.
type APIKey struct {
	Base
	Name        string     `gorm:"not null" json:"name"`
	TokenDigest string     `gorm:"uniqueIndex;not null" json:"-"`
	TokenPrefix string     `gorm:"size:8" json:"tokenPrefix"`
	Roles       string     `json:"roles"`
	Active      bool       `gorm:"not null" json:"active"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

// DigestToken returns the hex BLAKE2b-256 digest used to look tokens up.
func DigestToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// NewAPIKey builds an active key for token. The token itself is not retained;
// TokenPrefix is the head of the digest, for telling keys apart in logs.
func NewAPIKey(name, token string, roles ...string) *APIKey {
	digest := DigestToken(token)
	return &APIKey{
		Name:        name,
		TokenDigest: digest,
		TokenPrefix: digest[:8],
		Roles:       JoinList(roles),
		Active:      true,
	}
}

// Subject is the policy subject for this key.
func (k *APIKey) Subject() string {
	return "key:" + k.ID
}

// RoleList returns the key's roles.
func (k *APIKey) RoleList() []string {
	return SplitList(k.Roles)
}

// Usable reports whether the key may authenticate at now.
func (k *APIKey) Usable(now time.Time) bool {
	if !k.Active || k.IsDeleted {
		return false
	}
	return k.ExpiresAt == nil || now.Before(*k.ExpiresAt)
}

// Package auth implements the explicit capability checks that gate
// privileged engine operations. There is no ambient caller identity:
// every privileged call carries a Capability, and the transport layer is
// responsible for resolving credentials into one.
package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Role orders the caller classes. Higher roles include the lower ones.
type Role uint8

const (
	// RolePlayer is the unprivileged default.
	RolePlayer Role = iota
	// RoleSystem may freeze and unfreeze players.
	RoleSystem
	// RoleAdmin may construct and finalize maps.
	RoleAdmin
)

var ErrForbidden = errors.New("capability does not allow this operation")

// Capability is the proof of a caller's role, passed explicitly into
// privileged operations.
type Capability struct {
	role Role
}

// As returns a capability of the given role.
func As(r Role) Capability {
	return Capability{role: r}
}

// Allows reports whether the capability covers the required role.
func (c Capability) Allows(required Role) bool {
	return c.role >= required
}

// Require returns ErrForbidden unless the capability covers the role.
func (c Capability) Require(required Role) error {
	if !c.Allows(required) {
		return ErrForbidden
	}
	return nil
}

// TokenRegistry resolves bearer tokens into capabilities. Tokens are
// stored as bcrypt hashes in the config, never in the clear.
type TokenRegistry struct {
	adminHash  []byte
	systemHash []byte
}

// NewTokenRegistry builds a registry from bcrypt hashes. Empty hashes
// disable the corresponding role.
func NewTokenRegistry(adminHash, systemHash string) *TokenRegistry {
	return &TokenRegistry{
		adminHash:  []byte(adminHash),
		systemHash: []byte(systemHash),
	}
}

// Resolve maps a presented token to the strongest capability it proves.
// Unknown or empty tokens resolve to RolePlayer.
func (r *TokenRegistry) Resolve(token string) Capability {
	if token == "" {
		return As(RolePlayer)
	}
	if len(r.adminHash) > 0 && bcrypt.CompareHashAndPassword(r.adminHash, []byte(token)) == nil {
		return As(RoleAdmin)
	}
	if len(r.systemHash) > 0 && bcrypt.CompareHashAndPassword(r.systemHash, []byte(token)) == nil {
		return As(RoleSystem)
	}
	return As(RolePlayer)
}

// HashToken bcrypt-hashes a token for storage in the config.
func HashToken(token string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

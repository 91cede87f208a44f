// Package auth resolves bearer tokens to verified identities.
package auth

import (
	"fmt"
	"strings"

	"github.com/solacelabs/companiond/internal/core"
)

// Identity is the verified caller. Both fields are required: an
// identity missing either is treated as unauthenticated.
type Identity struct {
	UserID      string
	DisplayName string
}

// Provider resolves a bearer token to an identity, or reports
// core.ErrUnauthenticated.
type Provider interface {
	Authenticate(token string) (*Identity, error)
}

// StaticProvider authenticates against a fixed token table, loaded
// from configuration. Suitable for single-tenant deployments; an
// OIDC-backed Provider slots in behind the same interface.
type StaticProvider struct {
	tokens map[string]Identity
}

// NewStaticProvider parses a "token=userID:displayName" list,
// comma-separated, e.g. "tok1=u1:Alice,tok2=u2:Bob".
func NewStaticProvider(spec string) (*StaticProvider, error) {
	tokens := make(map[string]Identity)

	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		token, ident, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("malformed auth token entry %q", entry)
		}
		userID, name, ok := strings.Cut(ident, ":")
		if !ok {
			return nil, fmt.Errorf("malformed identity in auth token entry %q", entry)
		}
		tokens[token] = Identity{UserID: userID, DisplayName: name}
	}

	return &StaticProvider{tokens: tokens}, nil
}

// Authenticate looks the token up. Unknown tokens and identities with
// missing fields both resolve to core.ErrUnauthenticated.
func (p *StaticProvider) Authenticate(token string) (*Identity, error) {
	ident, ok := p.tokens[token]
	if !ok {
		return nil, core.ErrUnauthenticated
	}
	if ident.UserID == "" || ident.DisplayName == "" {
		return nil, core.ErrUnauthenticated
	}
	return &ident, nil
}

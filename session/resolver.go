// Package session resolves the opaque identifier that scopes an anonymous
// cart, and carries it through HTTP requests.
package session

import (
	"strings"

	"github.com/google/uuid"
)

// DefaultHeader is the only channel client and server use to agree on the
// cart session.
const DefaultHeader = "X-Session-Id"

// Resolver decides which session identifier a request belongs to.
type Resolver struct {
	newID func() string
}

// NewResolver returns a Resolver that mints random UUIDv4 tokens.
func NewResolver() *Resolver {
	return &Resolver{newID: func() string { return uuid.New().String() }}
}

// NewResolverWithGenerator is for callers that need predictable tokens.
func NewResolverWithGenerator(gen func() string) *Resolver {
	return &Resolver{newID: gen}
}

// Resolve returns supplied verbatim when it is non-blank, otherwise a fresh
// token. Unknown identifiers are valid: they simply own no cart rows yet.
func (r *Resolver) Resolve(supplied string) string {
	if id := strings.TrimSpace(supplied); id != "" {
		return id
	}
	return r.newID()
}

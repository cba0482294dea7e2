package auth

import (
	"errors"
	"net/http"
)

// ErrNoIdentity means the request carried no resolvable identity.
var ErrNoIdentity = errors.New("no identity on request")

// Provider resolves the acting user from an incoming request. The gateway in
// front of this service authenticates and injects the identity; swapping the
// provider swaps the trust scheme.
type Provider interface {
	Resolve(r *http.Request) (userID string, err error)
}

// HeaderProvider trusts an upstream-injected identity header.
type HeaderProvider struct {
	Header string
}

// NewHeaderProvider creates a provider reading X-User-ID.
func NewHeaderProvider() *HeaderProvider {
	return &HeaderProvider{Header: "X-User-ID"}
}

func (p *HeaderProvider) Resolve(r *http.Request) (string, error) {
	id := r.Header.Get(p.Header)
	if id == "" {
		return "", ErrNoIdentity
	}
	return id, nil
}

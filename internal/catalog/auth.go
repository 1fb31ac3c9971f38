package catalog

import (
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
)

var (
	// ErrUnauthenticated is returned for requests without valid credentials
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned when a principal may not act on a resource
	ErrForbidden = errors.New("forbidden")
)

// Attributes voted on.
const (
	AttrView   = "view"
	AttrCreate = "create"
	AttrDelete = "delete"
)

// Principal is an authenticated caller.
type Principal struct {
	CustomerID int64
	Admin      bool
}

// Authorizer authenticates callers and decides what they may do with the
// users of a customer.
type Authorizer interface {
	Authenticate(r *http.Request) (Principal, error)
	Decide(p Principal, attr string, customerID int64) error
}

// Voter votes on one attribute. It returns true to grant; a voter that
// does not support the attribute abstains by returning false, false.
type Voter func(p Principal, attr string, customerID int64) (granted, supported bool)

// OwnerVoter grants customers access to their own users.
func OwnerVoter(p Principal, attr string, customerID int64) (bool, bool) {
	switch attr {
	case AttrView, AttrCreate, AttrDelete:
		return p.CustomerID != 0 && p.CustomerID == customerID, true
	}
	return false, false
}

// AdminVoter grants admins everything.
func AdminVoter(p Principal, _ string, _ int64) (bool, bool) {
	if p.Admin {
		return true, true
	}
	return false, false
}

// TokenAuthorizer authenticates bearer tokens against a static table and
// grants access if any voter grants it.
type TokenAuthorizer struct {
	tokens map[string]int64
	admin  string
	voters []Voter

	checks atomic.Int64
}

// NewTokenAuthorizer creates an authorizer. tokens maps bearer tokens to
// customer ids; adminToken may be empty to disable admin access.
func NewTokenAuthorizer(tokens map[string]int64, adminToken string) *TokenAuthorizer {
	copied := make(map[string]int64, len(tokens))
	for token, customerID := range tokens {
		copied[token] = customerID
	}
	return &TokenAuthorizer{
		tokens: copied,
		admin:  adminToken,
		voters: []Voter{AdminVoter, OwnerVoter},
	}
}

// Authenticate reads the "Authorization: Bearer <token>" header.
func (a *TokenAuthorizer) Authenticate(r *http.Request) (Principal, error) {
	a.checks.Add(1)

	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return Principal{}, ErrUnauthenticated
	}
	if a.admin != "" && token == a.admin {
		return Principal{Admin: true}, nil
	}
	customerID, ok := a.tokens[token]
	if !ok {
		return Principal{}, ErrUnauthenticated
	}
	return Principal{CustomerID: customerID}, nil
}

// Decide grants if any voter grants.
func (a *TokenAuthorizer) Decide(p Principal, attr string, customerID int64) error {
	for _, vote := range a.voters {
		if granted, supported := vote(p, attr, customerID); supported && granted {
			return nil
		}
	}
	return ErrForbidden
}

// Checks returns the number of authentication checks performed.
func (a *TokenAuthorizer) Checks() int64 {
	return a.checks.Load()
}

var _ Authorizer = (*TokenAuthorizer)(nil)

package cache

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/nicordev/formation-oc-php-projet7-api-rest-sub000/pkg/routing"
)

// Key delimiters. They never appear inside an escaped key part.
const (
	innerSeparator = "."
	outerSeparator = "|"
)

// Key is a cache key derived from an inbound request.
type Key struct {
	// Value is the opaque key string used by the store
	Value string

	// Route is the resolved route of the request
	Route routing.Route

	// AuthToken is the Authorization header for private routes ("" otherwise)
	AuthToken string

	// Private is true when the key is scoped to the caller's credentials
	Private bool
}

// String returns the opaque key value.
func (k Key) String() string {
	return k.Value
}

// KeyGenerator derives deterministic cache keys from requests.
//
// Format: route.controller|param1=val1.param2=val2[|authorization]
//
// Example:
//
//	product_show.catalog_Products__Show|page=1
type KeyGenerator struct {
	resolver      routing.Resolver
	privateRoutes map[string]struct{}
}

// NewKeyGenerator creates a key generator. Requests to any route named in
// privateRoutes get the caller's Authorization header as an extra segment.
func NewKeyGenerator(resolver routing.Resolver, privateRoutes []string) *KeyGenerator {
	if resolver == nil {
		panic("route resolver cannot be nil")
	}
	private := make(map[string]struct{}, len(privateRoutes))
	for _, name := range privateRoutes {
		private[name] = struct{}{}
	}
	return &KeyGenerator{
		resolver:      resolver,
		privateRoutes: private,
	}
}

// Generate resolves the request and builds its cache key.
// Returns an error wrapping routing.ErrRouteNotFound for unmatched requests.
func (g *KeyGenerator) Generate(r *http.Request) (Key, error) {
	route, err := g.resolver.Resolve(r)
	if err != nil {
		return Key{}, fmt.Errorf("resolve route: %w", err)
	}

	key := Key{Route: route}
	segments := []string{
		escapePart(route.Name) + innerSeparator + NormalizeController(route.Controller),
		queryPart(r.URL.Query()),
	}

	if _, ok := g.privateRoutes[route.Name]; ok {
		key.Private = true
		key.AuthToken = r.Header.Get("Authorization")
		segments = append(segments, key.AuthToken)
	}

	key.Value = strings.Join(segments, outerSeparator)
	return key, nil
}

// NormalizeController replaces namespace and class/method separators (and
// anything else outside [A-Za-z0-9_-]) with "_".
func NormalizeController(controller string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, controller)
}

// queryPart renders query parameters sorted by name. The sort is stable so
// repeated parameters keep their request order.
func queryPart(values url.Values) string {
	type pair struct{ name, value string }

	pairs := make([]pair, 0, len(values))
	for name, vals := range values {
		for _, v := range vals {
			pairs = append(pairs, pair{name, v})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].name < pairs[j].name
	})

	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, escapePart(p.name)+"="+escapePart(p.value))
	}
	return strings.Join(parts, innerSeparator)
}

// escapePart query-escapes s and also escapes ".", so neither delimiter can
// appear inside a part.
func escapePart(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), ".", "%2E")
}

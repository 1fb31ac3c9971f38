// Package routing provides a named-route table on top of chi.
//
// Routes carry a stable name (e.g. "product_show") and a controller
// identifier. The cache layer keys and tags responses by these names, so the
// table doubles as the route resolver the cache middleware calls before
// dispatch.
package routing

import (
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
)

// ErrRouteNotFound is returned when a request matches no registered route.
var ErrRouteNotFound = errors.New("route not found")

// Route describes a named route.
type Route struct {
	// Name is the stable route name (e.g. "product_show")
	Name string

	// Method is the HTTP method the route answers to
	Method string

	// Pattern is the chi path pattern (e.g. "/products/{id}")
	Pattern string

	// Controller identifies the handler (e.g. "catalog.Products::Show")
	Controller string

	// Params holds the path parameters of a resolved request
	Params map[string]string
}

// Param returns a path parameter of a resolved route.
func (r Route) Param(name string) string {
	if r.Params == nil {
		return ""
	}
	return r.Params[name]
}

// Resolver resolves a request to its route.
type Resolver interface {
	Resolve(r *http.Request) (Route, error)
}

// Table is a chi router that remembers route names.
type Table struct {
	mux    *chi.Mux
	routes map[string]Route // method + " " + pattern
	names  map[string]Route
}

// NewTable creates an empty route table.
func NewTable() *Table {
	return &Table{
		mux:    chi.NewRouter(),
		routes: make(map[string]Route),
		names:  make(map[string]Route),
	}
}

// Handle registers a named route. It panics on a duplicate name or
// method/pattern pair, like chi does for invalid patterns.
func (t *Table) Handle(route Route, h http.Handler) {
	if route.Name == "" || route.Method == "" || route.Pattern == "" {
		panic("routing: route needs a name, method and pattern")
	}
	if _, exists := t.names[route.Name]; exists {
		panic(fmt.Sprintf("routing: duplicate route name %q", route.Name))
	}
	id := route.Method + " " + route.Pattern
	if _, exists := t.routes[id]; exists {
		panic(fmt.Sprintf("routing: duplicate route %s", id))
	}

	route.Params = nil
	t.routes[id] = route
	t.names[route.Name] = route
	t.mux.Method(route.Method, route.Pattern, h)
}

// HandleFunc registers a named route with a handler function.
func (t *Table) HandleFunc(route Route, fn http.HandlerFunc) {
	t.Handle(route, fn)
}

// Lookup returns a registered route by name.
func (t *Table) Lookup(name string) (Route, bool) {
	route, ok := t.names[name]
	return route, ok
}

// Routes returns all registered routes sorted by name.
func (t *Table) Routes() []Route {
	out := make([]Route, 0, len(t.names))
	for _, route := range t.names {
		out = append(out, route)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Resolve matches the request against the table without dispatching it.
func (t *Table) Resolve(r *http.Request) (Route, error) {
	rctx := chi.NewRouteContext()
	if !t.mux.Match(rctx, r.Method, r.URL.Path) {
		return Route{}, fmt.Errorf("%w: %s %s", ErrRouteNotFound, r.Method, r.URL.Path)
	}

	route, ok := t.routes[r.Method+" "+rctx.RoutePattern()]
	if !ok {
		return Route{}, fmt.Errorf("%w: %s %s", ErrRouteNotFound, r.Method, rctx.RoutePattern())
	}

	if n := len(rctx.URLParams.Keys); n > 0 {
		route.Params = make(map[string]string, n)
		for i, key := range rctx.URLParams.Keys {
			route.Params[key] = rctx.URLParams.Values[i]
		}
	}
	return route, nil
}

// ServeHTTP dispatches the request through the underlying chi router.
func (t *Table) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t.mux.ServeHTTP(w, r)
}

var _ Resolver = (*Table)(nil)

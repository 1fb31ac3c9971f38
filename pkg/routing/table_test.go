package routing

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTable() *Table {
	table := NewTable()
	noop := func(w http.ResponseWriter, r *http.Request) {}
	table.HandleFunc(Route{Name: "product_list", Method: http.MethodGet, Pattern: "/products", Controller: "catalog.Products::List"}, noop)
	table.HandleFunc(Route{Name: "product_show", Method: http.MethodGet, Pattern: "/products/{id}", Controller: "catalog.Products::Show"}, noop)
	table.HandleFunc(Route{Name: "product_update", Method: http.MethodPut, Pattern: "/products/{id}", Controller: "catalog.Products::Update"}, noop)
	return table
}

func TestTable_Resolve(t *testing.T) {
	table := newTestTable()

	tests := []struct {
		name       string
		method     string
		target     string
		wantName   string
		wantParams map[string]string
	}{
		{
			name:     "list route",
			method:   http.MethodGet,
			target:   "/products?page=2",
			wantName: "product_list",
		},
		{
			name:       "show route with path param",
			method:     http.MethodGet,
			target:     "/products/42",
			wantName:   "product_show",
			wantParams: map[string]string{"id": "42"},
		},
		{
			name:       "same pattern different method",
			method:     http.MethodPut,
			target:     "/products/7",
			wantName:   "product_update",
			wantParams: map[string]string{"id": "7"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			route, err := table.Resolve(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, route.Name)
			assert.Equal(t, tt.wantParams, route.Params)
		})
	}
}

func TestTable_Resolve_NotFound(t *testing.T) {
	table := newTestTable()

	for _, target := range []string{"/nope", "/products/1/extra"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		_, err := table.Resolve(req)
		assert.True(t, errors.Is(err, ErrRouteNotFound), "target %s: got %v", target, err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/products/1", nil)
	_, err := table.Resolve(req)
	assert.ErrorIs(t, err, ErrRouteNotFound)
}

func TestTable_ServeHTTP(t *testing.T) {
	table := NewTable()
	table.HandleFunc(Route{Name: "customer_show", Method: http.MethodGet, Pattern: "/customers/{id}", Controller: "catalog.Customers::Show"},
		func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("customer " + chi.URLParam(r, "id")))
		})

	rec := httptest.NewRecorder()
	table.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers/3", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "customer 3", rec.Body.String())
}

func TestTable_Handle_Duplicates(t *testing.T) {
	table := newTestTable()
	noop := func(w http.ResponseWriter, r *http.Request) {}

	assert.Panics(t, func() {
		table.HandleFunc(Route{Name: "product_list", Method: http.MethodGet, Pattern: "/other"}, noop)
	})
	assert.Panics(t, func() {
		table.HandleFunc(Route{Name: "product_index", Method: http.MethodGet, Pattern: "/products"}, noop)
	})
	assert.Panics(t, func() {
		table.HandleFunc(Route{Method: http.MethodGet, Pattern: "/x"}, noop)
	})
}

func TestTable_Lookup(t *testing.T) {
	table := newTestTable()

	route, ok := table.Lookup("product_show")
	require.True(t, ok)
	assert.Equal(t, "/products/{id}", route.Pattern)

	_, ok = table.Lookup("missing")
	assert.False(t, ok)
}

func TestTable_Routes_SortedByName(t *testing.T) {
	routes := newTestTable().Routes()
	require.Len(t, routes, 3)
	for i := 1; i < len(routes); i++ {
		assert.Less(t, routes[i-1].Name, routes[i].Name)
	}
}

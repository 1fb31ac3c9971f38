package cache

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nicordev/formation-oc-php-projet7-api-rest-sub000/pkg/routing"
)

func newTestResolver() *routing.Table {
	table := routing.NewTable()
	noop := func(w http.ResponseWriter, r *http.Request) {}
	table.HandleFunc(routing.Route{Name: "product_list", Method: http.MethodGet, Pattern: "/products", Controller: "catalog.Products::List"}, noop)
	table.HandleFunc(routing.Route{Name: "product_show", Method: http.MethodGet, Pattern: "/products/{id}", Controller: "catalog.Products::Show"}, noop)
	table.HandleFunc(routing.Route{Name: "user_list", Method: http.MethodGet, Pattern: "/users", Controller: "catalog.Users::List"}, noop)
	return table
}

func generate(t *testing.T, g *KeyGenerator, target, auth string) Key {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	key, err := g.Generate(req)
	if err != nil {
		t.Fatalf("Generate(%s) error = %v", target, err)
	}
	return key
}

func TestKeyGenerator_Generate(t *testing.T) {
	g := NewKeyGenerator(newTestResolver(), []string{"user_list"})

	tests := []struct {
		name   string
		target string
		auth   string
		want   string
	}{
		{
			name:   "list without params",
			target: "/products",
			want:   "product_list.catalog_Products__List|",
		},
		{
			name:   "list with params (sorted)",
			target: "/products?page=2&limit=10",
			want:   "product_list.catalog_Products__List|limit=10.page=2",
		},
		{
			name:   "show route",
			target: "/products/42",
			want:   "product_show.catalog_Products__Show|",
		},
		{
			name:   "dots and pipes in values are escaped",
			target: "/products?q=a.b%7Cc",
			want:   "product_list.catalog_Products__List|q=a%2Eb%7Cc",
		},
		{
			name:   "repeated params keep their order",
			target: "/products?tag=b&tag=a",
			want:   "product_list.catalog_Products__List|tag=b.tag=a",
		},
		{
			name:   "private route with token",
			target: "/users",
			auth:   "Bearer abc.def",
			want:   "user_list.catalog_Users__List||Bearer abc.def",
		},
		{
			name:   "private route without token",
			target: "/users",
			want:   "user_list.catalog_Users__List||",
		},
		{
			name:   "token ignored on public route",
			target: "/products",
			auth:   "Bearer abc",
			want:   "product_list.catalog_Products__List|",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := generate(t, g, tt.target, tt.auth)
			if got.Value != tt.want {
				t.Errorf("Generate() = %v, want %v", got.Value, tt.want)
			}
		})
	}
}

func TestKeyGenerator_ParamOrderIndependence(t *testing.T) {
	g := NewKeyGenerator(newTestResolver(), nil)

	a := generate(t, g, "/products?page=1&limit=20&sort=name", "")
	b := generate(t, g, "/products?sort=name&page=1&limit=20", "")
	c := generate(t, g, "/products?limit=20&sort=name&page=1", "")

	if a.Value != b.Value || b.Value != c.Value {
		t.Errorf("keys differ by param order: %q %q %q", a.Value, b.Value, c.Value)
	}
}

func TestKeyGenerator_ValueSensitivity(t *testing.T) {
	g := NewKeyGenerator(newTestResolver(), nil)

	pairs := [][2]string{
		{"/products?page=1", "/products?page=2"},
		{"/products?page=1", "/products?Page=1"},
		{"/products?a=1&b=2", "/products?a=1.b%3D2"},
		{"/products", "/products?page="},
		{"/products/1", "/products"},
	}

	for _, p := range pairs {
		k1 := generate(t, g, p[0], "")
		k2 := generate(t, g, p[1], "")
		if k1.Value == k2.Value {
			t.Errorf("%s and %s produced the same key %q", p[0], p[1], k1.Value)
		}
	}
}

func TestKeyGenerator_PrivateRoutes(t *testing.T) {
	g := NewKeyGenerator(newTestResolver(), []string{"user_list"})

	alice := generate(t, g, "/users", "Bearer alice")
	bob := generate(t, g, "/users", "Bearer bob")
	aliceAgain := generate(t, g, "/users", "Bearer alice")
	anonymous := generate(t, g, "/users", "")

	if alice.Value == bob.Value {
		t.Error("different tokens produced the same key")
	}
	if alice.Value != aliceAgain.Value {
		t.Error("same token produced different keys")
	}
	if anonymous.Value == alice.Value {
		t.Error("missing token should not collide with a token")
	}
	if !alice.Private || alice.AuthToken != "Bearer alice" {
		t.Errorf("private key metadata = %+v", alice)
	}
}

func TestKeyGenerator_RouteNotFound(t *testing.T) {
	g := NewKeyGenerator(newTestResolver(), nil)

	_, err := g.Generate(httptest.NewRequest(http.MethodGet, "/unknown", nil))
	if !errors.Is(err, routing.ErrRouteNotFound) {
		t.Errorf("expected ErrRouteNotFound, got %v", err)
	}
}

// TestKeyGenerator_Determinism ensures same input always produces same key
func TestKeyGenerator_Determinism(t *testing.T) {
	g := NewKeyGenerator(newTestResolver(), []string{"user_list"})

	first := generate(t, g, "/users?z=1&a=2&m=3", "Bearer token")
	for i := 0; i < 10; i++ {
		got := generate(t, g, "/users?z=1&a=2&m=3", "Bearer token")
		if got.Value != first.Value {
			t.Errorf("result[%d] = %v, want %v (not deterministic)", i, got.Value, first.Value)
		}
	}
}

func TestNormalizeController(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`App\Controller\ProductController::show`, "App_Controller_ProductController__show"},
		{"catalog.(*Products).Show", "catalog___Products__Show"},
		{"plain_name-1", "plain_name-1"},
		{"a|b.c", "a_b_c"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeController(tt.in); got != tt.want {
				t.Errorf("NormalizeController(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewKeyGenerator_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewKeyGenerator should panic with nil resolver")
		}
	}()
	NewKeyGenerator(nil, nil)
}

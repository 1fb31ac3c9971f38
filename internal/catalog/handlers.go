package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/nicordev/formation-oc-php-projet7-api-rest-sub000/pkg/headers"
	"github.com/nicordev/formation-oc-php-projet7-api-rest-sub000/pkg/routing"
)

// Pagination bounds.
const (
	DefaultLimit = 10
	MaxLimit     = 50
)

// Handlers serves the catalog routes.
type Handlers struct {
	repo      *Repository
	auth      Authorizer
	policy    *headers.Policy
	expiresIn time.Duration
	logger    zerolog.Logger
}

// NewHandlers creates the catalog handlers. expiresIn is the lifetime
// announced in Expires headers.
func NewHandlers(repo *Repository, auth Authorizer, policy *headers.Policy, expiresIn time.Duration, logger zerolog.Logger) *Handlers {
	if repo == nil || auth == nil || policy == nil {
		panic("catalog: repository, authorizer and policy are required")
	}
	return &Handlers{
		repo:      repo,
		auth:      auth,
		policy:    policy,
		expiresIn: expiresIn,
		logger:    logger,
	}
}

// Register adds the catalog routes to table.
func (h *Handlers) Register(table *routing.Table) {
	routes := []struct {
		route routing.Route
		fn    http.HandlerFunc
	}{
		{routing.Route{Name: "product_list", Method: http.MethodGet, Pattern: "/products", Controller: "catalog.Products::List"}, h.listProducts},
		{routing.Route{Name: "product_show", Method: http.MethodGet, Pattern: "/products/{id}", Controller: "catalog.Products::Show"}, h.showProduct},
		{routing.Route{Name: "product_create", Method: http.MethodPost, Pattern: "/products", Controller: "catalog.Products::Create"}, h.createProduct},
		{routing.Route{Name: "product_update", Method: http.MethodPut, Pattern: "/products/{id}", Controller: "catalog.Products::Update"}, h.updateProduct},
		{routing.Route{Name: "product_delete", Method: http.MethodDelete, Pattern: "/products/{id}", Controller: "catalog.Products::Delete"}, h.deleteProduct},
		{routing.Route{Name: "customer_list", Method: http.MethodGet, Pattern: "/customers", Controller: "catalog.Customers::List"}, h.listCustomers},
		{routing.Route{Name: "customer_show", Method: http.MethodGet, Pattern: "/customers/{id}", Controller: "catalog.Customers::Show"}, h.showCustomer},
		{routing.Route{Name: "user_list", Method: http.MethodGet, Pattern: "/users", Controller: "catalog.Users::List"}, h.listUsers},
		{routing.Route{Name: "user_show", Method: http.MethodGet, Pattern: "/users/{id}", Controller: "catalog.Users::Show"}, h.showUser},
		{routing.Route{Name: "user_create", Method: http.MethodPost, Pattern: "/users", Controller: "catalog.Users::Create"}, h.createUser},
		{routing.Route{Name: "user_delete", Method: http.MethodDelete, Pattern: "/users/{id}", Controller: "catalog.Users::Delete"}, h.deleteUser},
	}
	for _, rt := range routes {
		table.HandleFunc(rt.route, rt.fn)
	}
}

// listPage is the JSON envelope of collection responses.
type listPage[T any] struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Items []T `json:"items"`
}

func (h *Handlers) listProducts(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	items, total := h.repo.Products(page)
	h.writeList(w, h.policy.ForList(h.expiresIn, "Product"), listPage[Product]{page.Number, page.Limit, total, items})
}

func (h *Handlers) showProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.repo.Product(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeResource(w, r, http.StatusOK, p, true)
}

func (h *Handlers) createProduct(w http.ResponseWriter, r *http.Request) {
	var in ProductInput
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.repo.CreateProduct(in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeResource(w, r, http.StatusCreated, p, true)
}

func (h *Handlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in ProductInput
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.repo.UpdateProduct(id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeResource(w, r, http.StatusOK, p, true)
}

func (h *Handlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.repo.DeleteProduct(id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) listCustomers(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	items, total := h.repo.Customers(page)
	h.writeList(w, h.policy.ForList(h.expiresIn, "Customer"), listPage[Customer]{page.Number, page.Limit, total, items})
}

func (h *Handlers) showCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.repo.Customer(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeResource(w, r, http.StatusOK, c, true)
}

// User routes vary by caller: responses are marked private and cached
// under keys that include the caller's credentials.

func (h *Handlers) listUsers(w http.ResponseWriter, r *http.Request) {
	p, err := h.auth.Authenticate(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := parsePage(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	// Admins see every customer's users
	scope := p.CustomerID
	if p.Admin {
		scope = 0
	}
	items, total := h.repo.Users(scope, page)

	set := h.policy.ForList(h.expiresIn, "User")
	set.Public = false
	h.writeList(w, set, listPage[User]{page.Number, page.Limit, total, items})
}

func (h *Handlers) showUser(w http.ResponseWriter, r *http.Request) {
	p, err := h.auth.Authenticate(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.repo.User(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.auth.Decide(p, AttrView, u.CustomerID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeResource(w, r, http.StatusOK, u, false)
}

func (h *Handlers) createUser(w http.ResponseWriter, r *http.Request) {
	p, err := h.auth.Authenticate(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in struct {
		UserInput
		CustomerID int64 `json:"customer_id"`
	}
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	// Customers create users for themselves; admins name the customer
	customerID := p.CustomerID
	if p.Admin {
		customerID = in.CustomerID
	}
	if customerID == 0 {
		h.writeError(w, r, errors.Join(ErrInvalidInput, errors.New("customer_id is required")))
		return
	}
	if err := h.auth.Decide(p, AttrCreate, customerID); err != nil {
		h.writeError(w, r, err)
		return
	}

	u, err := h.repo.CreateUser(customerID, in.UserInput)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeResource(w, r, http.StatusCreated, u, false)
}

func (h *Handlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	p, err := h.auth.Authenticate(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.repo.User(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.auth.Decide(p, AttrDelete, u.CustomerID); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.repo.DeleteUser(id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeResource sends a single entity with its validation headers.
func (h *Handlers) writeResource(w http.ResponseWriter, r *http.Request, status int, res headers.Resource, public bool) {
	set, err := h.policy.ForSingleResource(h.expiresIn, res)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	set.Public = public
	set.Apply(w.Header())
	writeJSON(w, status, res)
}

func (h *Handlers) writeList(w http.ResponseWriter, set headers.Set, body any) {
	set.Apply(w.Header())
	writeJSON(w, http.StatusOK, body)
}

// writeError maps domain errors to HTTP statuses.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		status = http.StatusUnauthorized
		w.Header().Set("WWW-Authenticate", "Bearer")
	case errors.Is(err, ErrForbidden):
		status = http.StatusForbidden
	}

	if status == http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	// Errors must never be stored
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// decode reads a JSON request body.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Join(ErrInvalidInput, err)
	}
	return nil
}

// pathID parses the id path parameter.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Join(ErrNotFound, errors.New("invalid id"))
	}
	return id, nil
}

// parsePage reads the page and limit query parameters.
func parsePage(r *http.Request) (Page, error) {
	page := Page{Number: 1, Limit: DefaultLimit}
	q := r.URL.Query()

	if s := q.Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return Page{}, errors.Join(ErrInvalidInput, errors.New("page must be a positive integer"))
		}
		page.Number = n
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > MaxLimit {
			return Page{}, errors.Join(ErrInvalidInput, errors.New("limit must be between 1 and 50"))
		}
		page.Limit = n
	}
	return page, nil
}

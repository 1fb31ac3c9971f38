package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned when an entity does not exist.
var ErrNotFound = errors.New("not found")

// Page selects a slice of a collection. Page numbers start at 1.
type Page struct {
	Number int
	Limit  int
}

// offset returns the index of the first item of the page.
func (p Page) offset() int {
	return (p.Number - 1) * p.Limit
}

// paginate returns the items of page and the collection size.
func paginate[T any](items []T, page Page) ([]T, int) {
	total := len(items)
	start := page.offset()
	if start >= total {
		return []T{}, total
	}
	end := start + page.Limit
	if end > total {
		end = total
	}
	return items[start:end], total
}

// Repository is an in-memory entity store.
type Repository struct {
	mu        sync.RWMutex
	products  map[int64]Product
	customers map[int64]Customer
	users     map[int64]User
	nextID    int64
	now       func() time.Time
}

// NewRepository creates an empty repository. A nil clock means time.Now.
func NewRepository(now func() time.Time) *Repository {
	if now == nil {
		now = time.Now
	}
	return &Repository{
		products:  make(map[int64]Product),
		customers: make(map[int64]Customer),
		users:     make(map[int64]User),
		now:       now,
	}
}

func (r *Repository) id() int64 {
	r.nextID++
	return r.nextID
}

// stamp returns the current time truncated to the second, the precision
// of Last-Modified.
func (r *Repository) stamp() time.Time {
	return r.now().UTC().Truncate(time.Second)
}

// Products returns a page of products ordered by id.
func (r *Repository) Products(page Page) ([]Product, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]Product, 0, len(r.products))
	for _, p := range r.products {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return paginate(all, page)
}

// Product returns a product by id.
func (r *Repository) Product(id int64) (Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return Product{}, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return p, nil
}

// CreateProduct stores a new product.
func (r *Repository) CreateProduct(in ProductInput) (Product, error) {
	var p Product
	p.apply(in)
	if err := p.validate(); err != nil {
		return Product{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p.ID = r.id()
	p.CreatedAt = r.stamp()
	p.UpdatedAtTS = p.CreatedAt
	r.products[p.ID] = p
	return p, nil
}

// UpdateProduct applies in to an existing product.
func (r *Repository) UpdateProduct(id int64, in ProductInput) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return Product{}, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	p.apply(in)
	if err := p.validate(); err != nil {
		return Product{}, err
	}
	p.UpdatedAtTS = r.stamp()
	r.products[id] = p
	return p, nil
}

// DeleteProduct removes a product.
func (r *Repository) DeleteProduct(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	delete(r.products, id)
	return nil
}

// Customers returns a page of customers ordered by id.
func (r *Repository) Customers(page Page) ([]Customer, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]Customer, 0, len(r.customers))
	for _, c := range r.customers {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return paginate(all, page)
}

// Customer returns a customer by id.
func (r *Repository) Customer(id int64) (Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.customers[id]
	if !ok {
		return Customer{}, fmt.Errorf("customer %d: %w", id, ErrNotFound)
	}
	return c, nil
}

// AddCustomer stores a customer. Customers are provisioned, not created
// through the API.
func (r *Repository) AddCustomer(name, email string) Customer {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := Customer{ID: r.id(), Name: name, Email: email, CreatedAt: r.stamp()}
	c.UpdatedAtTS = c.CreatedAt
	r.customers[c.ID] = c
	return c
}

// Users returns a page of users ordered by id. customerID 0 selects all.
func (r *Repository) Users(customerID int64, page Page) ([]User, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]User, 0, len(r.users))
	for _, u := range r.users {
		if customerID == 0 || u.CustomerID == customerID {
			all = append(all, u)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return paginate(all, page)
}

// User returns a user by id.
func (r *Repository) User(id int64) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return u, nil
}

// CreateUser registers a user for a customer.
func (r *Repository) CreateUser(customerID int64, in UserInput) (User, error) {
	u := User{CustomerID: customerID}
	u.apply(in)
	if err := u.validate(); err != nil {
		return User{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.customers[customerID]; !ok {
		return User{}, fmt.Errorf("customer %d: %w", customerID, ErrNotFound)
	}
	u.ID = r.id()
	u.CreatedAt = r.stamp()
	u.UpdatedAtTS = u.CreatedAt
	r.users[u.ID] = u
	return u, nil
}

// DeleteUser removes a user.
func (r *Repository) DeleteUser(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	delete(r.users, id)
	return nil
}

// Seed loads demo data: two customers with a user each and a few products.
func Seed(repo *Repository) {
	phones := []ProductInput{
		{Name: ptr("Pixel 9"), Brand: ptr("Google"), PriceCents: ptr[int64](89900)},
		{Name: ptr("iPhone 16"), Brand: ptr("Apple"), PriceCents: ptr[int64](96900)},
		{Name: ptr("Galaxy S25"), Brand: ptr("Samsung"), PriceCents: ptr[int64](89900)},
		{Name: ptr("Fairphone 5"), Brand: ptr("Fairphone"), PriceCents: ptr[int64](69900)},
	}
	for _, in := range phones {
		_, _ = repo.CreateProduct(in)
	}

	orange := repo.AddCustomer("Orange", "api@orange.example")
	free := repo.AddCustomer("Free", "api@free.example")
	_, _ = repo.CreateUser(orange.ID, UserInput{Username: "alice", Email: "alice@orange.example"})
	_, _ = repo.CreateUser(free.ID, UserInput{Username: "bob", Email: "bob@free.example"})
}

func ptr[T any](v T) *T { return &v }

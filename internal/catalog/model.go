// Package catalog is the demo REST API served behind the response cache:
// products, customers and the users each customer manages.
package catalog

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidInput is returned for payloads that fail validation.
var ErrInvalidInput = errors.New("invalid input")

// Product is a phone sold to customers.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Brand       string    `json:"brand"`
	Description string    `json:"description,omitempty"`
	PriceCents  int64     `json:"price_cents"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAtTS time.Time `json:"updated_at"`
}

func (p Product) ResourceType() string { return "Product" }
func (p Product) ResourceID() int64    { return p.ID }
func (p Product) UpdatedAt() time.Time { return p.UpdatedAtTS }

// ProductInput is a create or update payload. Nil fields are left unchanged.
type ProductInput struct {
	Name        *string `json:"name"`
	Brand       *string `json:"brand"`
	Description *string `json:"description"`
	PriceCents  *int64  `json:"price_cents"`
}

// apply copies the set fields of in onto p.
func (p *Product) apply(in ProductInput) {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Brand != nil {
		p.Brand = strings.TrimSpace(*in.Brand)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.PriceCents != nil {
		p.PriceCents = *in.PriceCents
	}
}

func (p *Product) validate() error {
	if p.Name == "" {
		return errors.Join(ErrInvalidInput, errors.New("name is required"))
	}
	if p.PriceCents < 0 {
		return errors.Join(ErrInvalidInput, errors.New("price must not be negative"))
	}
	return nil
}

// Customer is a company reselling products to its users.
type Customer struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAtTS time.Time `json:"updated_at"`
}

func (c Customer) ResourceType() string { return "Customer" }
func (c Customer) ResourceID() int64    { return c.ID }
func (c Customer) UpdatedAt() time.Time { return c.UpdatedAtTS }

// User is an end user registered by a customer.
type User struct {
	ID          int64     `json:"id"`
	CustomerID  int64     `json:"customer_id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAtTS time.Time `json:"updated_at"`
}

func (u User) ResourceType() string { return "User" }
func (u User) ResourceID() int64    { return u.ID }
func (u User) UpdatedAt() time.Time { return u.UpdatedAtTS }

// UserInput is a user creation payload.
type UserInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// apply copies in onto u.
func (u *User) apply(in UserInput) {
	u.Username = strings.TrimSpace(in.Username)
	u.Email = strings.ToLower(strings.TrimSpace(in.Email))
}

func (u *User) validate() error {
	if u.Username == "" {
		return errors.Join(ErrInvalidInput, errors.New("username is required"))
	}
	if !strings.Contains(u.Email, "@") {
		return errors.Join(ErrInvalidInput, errors.New("email is invalid"))
	}
	return nil
}

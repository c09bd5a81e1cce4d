// Package model defines data structures for the commerce platform.
package model

import (
	"time"
)

// Customer is a WhatsApp customer, keyed by phone number.
type Customer struct {
	ID          string    `json:"id"`
	PhoneNumber string    `json:"phone_number"`
	FirstName   string    `json:"first_name,omitempty"`
	LastName    string    `json:"last_name,omitempty"`
	Email       string    `json:"email,omitempty"`
	Address     string    `json:"address,omitempty"`
	City        string    `json:"city,omitempty"`
	PostalCode  string    `json:"postal_code,omitempty"`
	Country     string    `json:"country,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FullName returns "First Last", trimmed of absent parts.
func (c *Customer) FullName() string {
	switch {
	case c.FirstName != "" && c.LastName != "":
		return c.FirstName + " " + c.LastName
	case c.FirstName != "":
		return c.FirstName
	default:
		return c.LastName
	}
}

// HasCompleteInfo reports whether the fields checkout requires are present.
func (c *Customer) HasCompleteInfo() bool {
	return c.FirstName != "" && c.LastName != "" && c.Email != ""
}

// MissingFields lists the checkout fields still unset.
func (c *Customer) MissingFields() []string {
	var missing []string
	if c.FirstName == "" {
		missing = append(missing, "first_name")
	}
	if c.LastName == "" {
		missing = append(missing, "last_name")
	}
	if c.Email == "" {
		missing = append(missing, "email")
	}
	return missing
}

// CustomerUpdate carries the fields checkout may fill in; empty
// strings leave the stored value untouched.
type CustomerUpdate struct {
	FirstName  string
	LastName   string
	Email      string
	Address    string
	City       string
	PostalCode string
	Country    string
}

// Apply merges non-empty update fields into the customer.
func (c *Customer) Apply(u CustomerUpdate, now time.Time) {
	if u.FirstName != "" {
		c.FirstName = u.FirstName
	}
	if u.LastName != "" {
		c.LastName = u.LastName
	}
	if u.Email != "" {
		c.Email = u.Email
	}
	if u.Address != "" {
		c.Address = u.Address
	}
	if u.City != "" {
		c.City = u.City
	}
	if u.PostalCode != "" {
		c.PostalCode = u.PostalCode
	}
	if u.Country != "" {
		c.Country = u.Country
	}
	c.UpdatedAt = now
}

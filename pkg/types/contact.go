package types

import "strings"

// Contact mirrors the billing/shipping blocks storefronts attach to an order.
type Contact struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Company   string `json:"company,omitempty"`
	Address1  string `json:"address_1,omitempty"`
	Address2  string `json:"address_2,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Postcode  string `json:"postcode,omitempty"`
	Country   string `json:"country,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// IsZero reports whether the block carries no data at all.
func (c Contact) IsZero() bool {
	return strings.TrimSpace(c.FirstName+c.LastName+c.Company+c.Address1+c.Address2+
		c.City+c.State+c.Postcode+c.Country+c.Email+c.Phone) == ""
}

// Package couple is the domain layer built on the fetch coordinator.
//
// A Couple is the tenant's core record, keyed by the owning user's ID.
// Service loads it once per user through a shared fetch.Coordinator, so every
// consumer of the same user sees one load, one cache entry and one stream of states.
package couple

import (
	"slices"
	"time"
)

// UserID identifies the user owning a Couple.
type UserID string

// Couple is the aggregate cached per user.
type Couple struct {
	ID          string    `yaml:"id"`
	UserID      UserID    `yaml:"user_id"`
	PartnerOne  string    `yaml:"partner_one"`
	PartnerTwo  string    `yaml:"partner_two"`
	WeddingDate time.Time `yaml:"wedding_date,omitempty"`
	Slug        string    `yaml:"slug,omitempty"`
	Venue       string    `yaml:"venue,omitempty"`
	TemplateID  string    `yaml:"template_id,omitempty"`
	Published   bool      `yaml:"published,omitempty"`
	Guests      []string  `yaml:"guests,omitempty"`
	UpdatedAt   time.Time `yaml:"updated_at,omitempty"`
}

// Clone returns a deep copy of c.
func (c *Couple) Clone() *Couple {
	if c == nil {
		return nil
	}
	cloned := *c
	cloned.Guests = slices.Clone(c.Guests)
	return &cloned
}

// Names returns the partner names joined for display.
func (c *Couple) Names() string {
	switch {
	case c.PartnerOne == "":
		return c.PartnerTwo
	case c.PartnerTwo == "":
		return c.PartnerOne
	}
	return c.PartnerOne + " & " + c.PartnerTwo
}

// Patch is a partial update of a Couple. Nil fields are left untouched.
type Patch struct {
	PartnerOne  *string
	PartnerTwo  *string
	WeddingDate *time.Time
	Slug        *string
	Venue       *string
	TemplateID  *string
	Published   *bool
	Guests      []string
}

// Apply merges p into c and returns c.
// A non-nil Guests replaces the guest list.
func (p Patch) Apply(c *Couple) *Couple {
	if p.PartnerOne != nil {
		c.PartnerOne = *p.PartnerOne
	}
	if p.PartnerTwo != nil {
		c.PartnerTwo = *p.PartnerTwo
	}
	if p.WeddingDate != nil {
		c.WeddingDate = *p.WeddingDate
	}
	if p.Slug != nil {
		c.Slug = *p.Slug
	}
	if p.Venue != nil {
		c.Venue = *p.Venue
	}
	if p.TemplateID != nil {
		c.TemplateID = *p.TemplateID
	}
	if p.Published != nil {
		c.Published = *p.Published
	}
	if p.Guests != nil {
		c.Guests = slices.Clone(p.Guests)
	}
	return c
}

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool {
	return p.PartnerOne == nil && p.PartnerTwo == nil && p.WeddingDate == nil && p.Slug == nil &&
		p.Venue == nil && p.TemplateID == nil && p.Published == nil && p.Guests == nil
}

// Package catalog holds listing catalogs and the contexts that pair a
// catalog with its retrieval indexes.
package catalog

import (
	"reflect"
	"sort"
	"strings"

	"homerank/internal/index"
	"homerank/internal/model"
)

// Catalog is an immutable, order-preserving collection of listings keyed by
// id. It also records which fields its schema carries.
type Catalog struct {
	listings []model.Listing
	byID     map[string]int
	fields   map[string]bool
}

// New builds a catalog. Listings with a duplicate id after the first are
// skipped. When fields is nil the schema is inferred from the values that
// are set on at least one listing.
func New(listings []model.Listing, fields []string) *Catalog {
	c := &Catalog{
		listings: make([]model.Listing, 0, len(listings)),
		byID:     make(map[string]int, len(listings)),
		fields:   map[string]bool{model.FieldID: true, model.FieldCity: true, model.FieldDistrict: true},
	}
	for _, l := range listings {
		if _, dup := c.byID[l.ID]; dup {
			continue
		}
		c.byID[l.ID] = len(c.listings)
		c.listings = append(c.listings, l)
	}

	if fields == nil {
		for i := range c.listings {
			for _, f := range setFields(&c.listings[i]) {
				c.fields[f] = true
			}
		}
	} else {
		for _, f := range fields {
			c.fields[f] = true
		}
	}
	return c
}

// Len returns the number of listings.
func (c *Catalog) Len() int { return len(c.listings) }

// At returns the listing at position i. The result must not be modified.
func (c *Catalog) At(i int) *model.Listing { return &c.listings[i] }

// Get looks up a listing by id.
func (c *Catalog) Get(id string) (*model.Listing, bool) {
	i, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return &c.listings[i], true
}

// Contains reports whether id is in the catalog.
func (c *Catalog) Contains(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// Position returns the row position of id, or -1.
func (c *Catalog) Position(id string) int {
	if i, ok := c.byID[id]; ok {
		return i
	}
	return -1
}

// HasField reports whether the catalog schema carries the named field.
func (c *Catalog) HasField(name string) bool { return c.fields[name] }

// Fields returns the schema field names, sorted.
func (c *Catalog) Fields() []string {
	out := make([]string, 0, len(c.fields))
	for f := range c.fields {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// IDs returns the listing ids in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.listings))
	for i := range c.listings {
		ids[i] = c.listings[i].ID
	}
	return ids
}

// Listings returns a copy of the listings in catalog order.
func (c *Catalog) Listings() []model.Listing {
	return append([]model.Listing(nil), c.listings...)
}

// Subset returns the listings for which keep reports true, in order. The
// subset shares the parent's schema.
func (c *Catalog) Subset(keep func(*model.Listing) bool) *Catalog {
	sub := &Catalog{
		listings: make([]model.Listing, 0),
		byID:     make(map[string]int),
		fields:   c.fields,
	}
	for i := range c.listings {
		if !keep(&c.listings[i]) {
			continue
		}
		sub.byID[c.listings[i].ID] = len(sub.listings)
		sub.listings = append(sub.listings, c.listings[i])
	}
	return sub
}

// Documents returns the text corpus both indexes are built from.
func (c *Catalog) Documents() []index.Document {
	docs := make([]index.Document, len(c.listings))
	for i := range c.listings {
		docs[i] = index.Document{ID: c.listings[i].ID, Text: c.listings[i].IndexText()}
	}
	return docs
}

// setFields lists the json field names that carry a value on l.
func setFields(l *model.Listing) []string {
	v := reflect.ValueOf(l).Elem()
	t := v.Type()
	var out []string
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		f := v.Field(i)
		switch f.Kind() {
		case reflect.Pointer, reflect.Slice:
			if !f.IsNil() {
				out = append(out, name)
			}
		case reflect.String:
			if f.String() != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

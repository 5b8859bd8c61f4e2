package core

import (
	"errors"
	"fmt"
	"strings"
)

// CategoryName identifies a scoring category. Valid names are only
// obtained from a Registry, so a CategoryName in hand is always known.
type CategoryName string

// CategoryPoints pairs a category with its point value.
type CategoryPoints struct {
	Name   CategoryName `yaml:"name" json:"name"`
	Points int          `yaml:"points" json:"points"`
}

var (
	ErrEmptyCategory     = errors.New("empty category name")
	ErrDuplicateCategory = errors.New("duplicate category")
	ErrNegativePoints    = errors.New("negative point value")
	ErrUnknownCategory   = errors.New("unknown category")
)

// Registry is the closed, ordered set of scoring categories. It is built
// once at startup and never mutated afterwards.
type Registry struct {
	entries []CategoryPoints
	index   map[CategoryName]int
}

// NewRegistry validates and freezes the given categories, keeping their order.
func NewRegistry(categories []CategoryPoints) (*Registry, error) {
	r := &Registry{
		entries: make([]CategoryPoints, 0, len(categories)),
		index:   make(map[CategoryName]int, len(categories)),
	}
	for _, c := range categories {
		name := CategoryName(strings.TrimSpace(string(c.Name)))
		if name == "" {
			return nil, ErrEmptyCategory
		}
		if _, ok := r.index[name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateCategory, name)
		}
		if c.Points < 0 {
			return nil, fmt.Errorf("%w: %q has %d", ErrNegativePoints, name, c.Points)
		}
		r.index[name] = len(r.entries)
		r.entries = append(r.entries, CategoryPoints{Name: name, Points: c.Points})
	}
	return r, nil
}

// DefaultCategories is the March Bradness point table in display order.
func DefaultCategories() []CategoryPoints {
	return []CategoryPoints{
		{Name: "Summit Registrants", Points: 5},
		{Name: "CoCo App Creation", Points: 30},
		{Name: "In-Person Meetings", Points: 30},
		{Name: "Hands On Labs", Points: 50},
		{Name: "CECs", Points: 50},
		{Name: "Implementation Starts", Points: 50},
		{Name: "New POCs Started", Points: 80},
		{Name: "Technical Wins", Points: 160},
		{Name: "Go-Lives", Points: 160},
	}
}

// DefaultRegistry returns a registry built from DefaultCategories.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultCategories())
	if err != nil {
		panic(err) // static table
	}
	return r
}

// Lookup resolves a raw key (as stored in ledger documents) to a known category.
func (r *Registry) Lookup(key string) (CategoryName, bool) {
	name := CategoryName(key)
	_, ok := r.index[name]
	return name, ok
}

// Points returns the point value of a category, or 0 if it is not registered.
func (r *Registry) Points(name CategoryName) int {
	i, ok := r.index[name]
	if !ok {
		return 0
	}
	return r.entries[i].Points
}

// Names returns category names in registry order.
func (r *Registry) Names() []CategoryName {
	out := make([]CategoryName, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Name
	}
	return out
}

// Entries returns a copy of the registry table.
func (r *Registry) Entries() []CategoryPoints {
	return append([]CategoryPoints(nil), r.entries...)
}

// Len returns the number of categories.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Validate reports the first key in counts that is not a registered category.
// Stored data may legitimately carry such keys; this is meant for new input.
func (r *Registry) Validate(counts ActivityCount) error {
	for key := range counts {
		if _, ok := r.Lookup(key); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownCategory, key)
		}
	}
	return nil
}

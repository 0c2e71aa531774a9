// Package registry manages the set of delivery destinations and their
// tracked keywords. It is safe for concurrent use: the monitor cycle reads a
// keyword-map snapshot while the control surface mutates destinations.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Common errors returned by the registry.
var (
	// ErrNotFound is returned when a destination id is unknown.
	ErrNotFound = errors.New("destination not found")
	// ErrExists is returned when adding a destination id that already exists.
	ErrExists = errors.New("destination already exists")
	// ErrEmptyKeyword is returned when a keyword normalizes to the empty string.
	ErrEmptyKeyword = errors.New("keyword must not be empty")
	// ErrEmptyID is returned when a destination id is empty.
	ErrEmptyID = errors.New("destination id must not be empty")
)

// Destination is one delivery target with its tracked keywords.
type Destination struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
	Enabled  bool     `json:"enabled"`
}

// Registry holds destinations keyed by id.
type Registry struct {
	mu           sync.RWMutex
	destinations map[string]*Destination
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{destinations: make(map[string]*Destination)}
}

// NormalizeKeyword case-folds and trims a keyword the way the registry
// stores it.
func NormalizeKeyword(keyword string) string {
	return strings.ToLower(strings.TrimSpace(keyword))
}

// Add registers a new enabled destination.
func (r *Registry) Add(id, name string) error {
	if strings.TrimSpace(id) == "" {
		return ErrEmptyID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.destinations[id]; exists {
		return fmt.Errorf("%w: %s", ErrExists, id)
	}

	r.destinations[id] = &Destination{
		ID:      id,
		Name:    name,
		Enabled: true,
	}
	return nil
}

// Remove deletes a destination. Its keywords stop feeding the active keyword
// map immediately.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.destinations[id]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.destinations, id)
	return nil
}

// SetEnabled toggles a destination's enabled flag.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dest, exists := r.destinations[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	dest.Enabled = enabled
	return nil
}

// AddKeyword adds a normalized keyword to a destination. Adding a keyword
// that is already present is a no-op.
func (r *Registry) AddKeyword(id, keyword string) error {
	normalized := NormalizeKeyword(keyword)
	if normalized == "" {
		return ErrEmptyKeyword
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dest, exists := r.destinations[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	for _, existing := range dest.Keywords {
		if existing == normalized {
			return nil
		}
	}
	dest.Keywords = append(dest.Keywords, normalized)
	sort.Strings(dest.Keywords)
	return nil
}

// RemoveKeyword removes a keyword from a destination.
func (r *Registry) RemoveKeyword(id, keyword string) error {
	normalized := NormalizeKeyword(keyword)
	if normalized == "" {
		return ErrEmptyKeyword
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dest, exists := r.destinations[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	for i, existing := range dest.Keywords {
		if existing == normalized {
			dest.Keywords = append(dest.Keywords[:i], dest.Keywords[i+1:]...)
			return nil
		}
	}
	return nil
}

// Get returns a copy of a destination.
func (r *Registry) Get(id string) (Destination, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dest, exists := r.destinations[id]
	if !exists {
		return Destination{}, false
	}
	return copyDestination(dest), true
}

// List returns copies of all destinations, ordered by id.
func (r *Registry) List() []Destination {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Destination, 0, len(r.destinations))
	for _, dest := range r.destinations {
		list = append(list, copyDestination(dest))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// ActiveKeywordMap returns keyword -> sorted ids of the enabled destinations
// tracking it. The result is a snapshot; later registry mutations apply to
// the next call.
func (r *Registry) ActiveKeywordMap() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keywordMap := make(map[string][]string)
	for _, dest := range r.destinations {
		if !dest.Enabled {
			continue
		}
		for _, keyword := range dest.Keywords {
			keywordMap[keyword] = append(keywordMap[keyword], dest.ID)
		}
	}
	for keyword := range keywordMap {
		sort.Strings(keywordMap[keyword])
	}
	return keywordMap
}

// Replace swaps the registry contents, used when loading a snapshot.
func (r *Registry) Replace(destinations []Destination) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.destinations = make(map[string]*Destination, len(destinations))
	for i := range destinations {
		dest := copyDestination(&destinations[i])
		for j, keyword := range dest.Keywords {
			dest.Keywords[j] = NormalizeKeyword(keyword)
		}
		sort.Strings(dest.Keywords)
		r.destinations[dest.ID] = &dest
	}
}

func copyDestination(dest *Destination) Destination {
	out := *dest
	out.Keywords = append([]string(nil), dest.Keywords...)
	return out
}

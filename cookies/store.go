package cookies

import (
	"maps"
	"slices"
	"sync"
)

// Store holds at most one bundle. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	bundle *Bundle
}

// Load replaces any previously held bundle. Nothing is merged.
func (s *Store) Load(b Bundle) {
	c := b.clone()
	s.mu.Lock()
	s.bundle = &c
	s.mu.Unlock()
}

// Loaded reports whether a bundle has been loaded.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bundle != nil
}

// Essentials returns a copy of the essentials map, or an empty map if
// nothing is loaded.
func (s *Store) Essentials() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.bundle == nil || s.bundle.Essentials == nil {
		return map[string]string{}
	}
	return maps.Clone(s.bundle.Essentials)
}

// CookieHeader returns the precomputed header, or "" if nothing is loaded.
func (s *Store) CookieHeader() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.bundle == nil {
		return ""
	}
	return s.bundle.CookieHeader
}

// Complete reports whether a bundle is loaded with both a header and a
// non-empty essentials map.
func (s *Store) Complete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bundle != nil && s.bundle.CookieHeader != "" && len(s.bundle.Essentials) > 0
}

// Missing lists the essential cookies that are absent or empty. With nothing
// loaded every essential is missing.
func (s *Store) Missing() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.bundle == nil {
		return slices.Clone(EssentialNames)
	}
	return s.bundle.Missing()
}

// IsAuthenticated reports whether every essential cookie is present with a
// non-empty value. A partial set counts as unauthenticated.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.bundle == nil {
		return false
	}
	return len(s.bundle.Missing()) == 0
}

// Package filterstate holds per-module list filters, search text and sort
// preferences for one browser session.
//
// State lives in memory only: a reload starts fresh. Each module key is
// isolated from every other.
package filterstate

import (
	"strings"
	"sync"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection returns Desc for "desc" (any case) and Asc otherwise.
func ParseDirection(s string) Direction {
	if strings.EqualFold(s, string(Desc)) {
		return Desc
	}
	return Asc
}

// SortPreference is the active sort column of a module.
type SortPreference struct {
	Column    string    `json:"column"`
	Direction Direction `json:"direction"`
}

// ModuleState is the filter state of one module.
type ModuleState struct {
	Filters     map[string]any  `json:"filters"`
	SearchQuery string          `json:"search_query"`
	Sort        *SortPreference `json:"sort,omitempty"`
}

const (
	maxRecentSearches     = 10
	defaultRecentSearches = 5
)

// Store is the session-scoped state of every module. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	modules map[string]*ModuleState
	recent  map[string][]string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		modules: make(map[string]*ModuleState),
		recent:  make(map[string][]string),
	}
}

// state returns the module state, creating it on first write.
// Caller must hold the write lock.
func (s *Store) state(module string) *ModuleState {
	st, ok := s.modules[module]
	if !ok {
		st = &ModuleState{Filters: make(map[string]any)}
		s.modules[module] = st
	}
	return st
}

// SetFilter sets one column filter. A nil value removes the filter.
func (s *Store) SetFilter(module, columnID string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(module)
	if value == nil {
		delete(st.Filters, columnID)
		return
	}
	st.Filters[columnID] = value
}

// Filter returns one column filter.
func (s *Store) Filter(module, columnID string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.modules[module]
	if !ok {
		return nil, false
	}
	v, ok := st.Filters[columnID]
	return v, ok
}

// Filters returns a copy of all column filters of a module.
func (s *Store) Filters(module string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any)
	if st, ok := s.modules[module]; ok {
		for k, v := range st.Filters {
			out[k] = v
		}
	}
	return out
}

// ReplaceFilters swaps the whole filter map of a module.
func (s *Store) ReplaceFilters(module string, filters map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(module)
	st.Filters = make(map[string]any, len(filters))
	for k, v := range filters {
		if v != nil {
			st.Filters[k] = v
		}
	}
}

// ClearFilters removes every column filter of a module.
func (s *Store) ClearFilters(module string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.modules[module]; ok {
		st.Filters = make(map[string]any)
	}
}

// SetSearchQuery sets the free-text search of a module.
func (s *Store) SetSearchQuery(module, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state(module).SearchQuery = text
}

// SearchQuery returns the free-text search of a module.
func (s *Store) SearchQuery(module string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if st, ok := s.modules[module]; ok {
		return st.SearchQuery
	}
	return ""
}

// ClearSearchQuery resets the search text of a module.
func (s *Store) ClearSearchQuery(module string) {
	s.SetSearchQuery(module, "")
}

// SetSortPreference sets the sort of a module.
func (s *Store) SetSortPreference(module string, pref SortPreference) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state(module).Sort = &pref
}

// SortPreference returns the sort of a module, nil when unset.
func (s *Store) SortPreference(module string) *SortPreference {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.modules[module]
	if !ok || st.Sort == nil {
		return nil
	}
	pref := *st.Sort
	return &pref
}

// ClearSortPreference removes the sort of a module.
func (s *Store) ClearSortPreference(module string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.modules[module]; ok {
		st.Sort = nil
	}
}

// ClearAll drops every piece of state of a module, recent searches included.
func (s *Store) ClearAll(module string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.modules, module)
	delete(s.recent, module)
}

// Snapshot returns a copy of a module's state.
func (s *Store) Snapshot(module string) ModuleState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := ModuleState{Filters: make(map[string]any)}
	st, ok := s.modules[module]
	if !ok {
		return out
	}
	for k, v := range st.Filters {
		out.Filters[k] = v
	}
	out.SearchQuery = st.SearchQuery
	if st.Sort != nil {
		pref := *st.Sort
		out.Sort = &pref
	}
	return out
}

// AddRecentSearch records a search term. Terms are trimmed, deduplicated and
// kept newest first, at most ten per module.
func (s *Store) AddRecentSearch(module, query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := []string{query}
	for _, q := range s.recent[module] {
		if q != query {
			list = append(list, q)
		}
	}
	if len(list) > maxRecentSearches {
		list = list[:maxRecentSearches]
	}
	s.recent[module] = list
}

// RecentSearches returns up to limit recent terms, newest first.
// A limit <= 0 means five.
func (s *Store) RecentSearches(module string, limit int) []string {
	if limit <= 0 {
		limit = defaultRecentSearches
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.recent[module]
	if len(list) > limit {
		list = list[:limit]
	}
	return append([]string(nil), list...)
}

// ClearRecentSearches forgets the recent terms of a module.
func (s *Store) ClearRecentSearches(module string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.recent, module)
}

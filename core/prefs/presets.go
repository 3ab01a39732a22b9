package prefs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/artpar/erpkit/core/filterstate"
	"github.com/artpar/erpkit/core/listview"
)

var (
	ErrPresetNotFound = errors.New("filter preset not found")
	ErrPresetName     = errors.New("filter preset name is required")
	ErrPresetExpr     = errors.New("filter preset expression is invalid")
)

// FilterPreset is a saved list state: column filters, search text, sort
// and an optional filter expression.
type FilterPreset struct {
	ID        string                      `json:"id"`
	Name      string                      `json:"name"`
	Filters   map[string]any              `json:"filters,omitempty"`
	Search    string                      `json:"search,omitempty"`
	Sort      *filterstate.SortPreference `json:"sort,omitempty"`
	Expr      string                      `json:"expr,omitempty"`
	CreatedAt time.Time                   `json:"createdAt"`
	UpdatedAt time.Time                   `json:"updatedAt"`
}

// State returns the preset as a filter state.
func (p FilterPreset) State() filterstate.ModuleState {
	return filterstate.ModuleState{Filters: p.Filters, SearchQuery: p.Search, Sort: p.Sort}
}

// FilterPresets lists the presets of a module by name.
func (s *Store) FilterPresets(ctx context.Context, profile, module string) ([]FilterPreset, error) {
	var list []FilterPreset
	if _, err := s.load(ctx, profile, presetsKey(module), &list); err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

// FilterPreset returns one preset by id.
func (s *Store) FilterPreset(ctx context.Context, profile, module, id string) (FilterPreset, error) {
	list, err := s.FilterPresets(ctx, profile, module)
	if err != nil {
		return FilterPreset{}, err
	}
	for _, p := range list {
		if p.ID == id {
			return p, nil
		}
	}
	return FilterPreset{}, ErrPresetNotFound
}

// SaveFilterPreset creates p when its ID is empty and replaces the preset
// with that ID otherwise. The expression, when present, must compile.
func (s *Store) SaveFilterPreset(ctx context.Context, profile, module string, p FilterPreset) (FilterPreset, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return FilterPreset{}, ErrPresetName
	}
	if strings.TrimSpace(p.Expr) != "" {
		if err := listview.CheckExpr(p.Expr); err != nil {
			return FilterPreset{}, fmt.Errorf("%w: preset %q: %v", ErrPresetExpr, p.Name, err)
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	list, err := s.FilterPresets(ctx, profile, module)
	if err != nil {
		return FilterPreset{}, err
	}
	now := s.clock.Now()
	p.UpdatedAt = now

	if p.ID == "" {
		p.ID = s.ids.New()
		p.CreatedAt = now
		list = append(list, p)
	} else {
		found := false
		for i := range list {
			if list[i].ID == p.ID {
				p.CreatedAt = list[i].CreatedAt
				list[i] = p
				found = true
				break
			}
		}
		if !found {
			return FilterPreset{}, ErrPresetNotFound
		}
	}

	if err := s.save(ctx, profile, presetsKey(module), list); err != nil {
		return FilterPreset{}, err
	}
	return p, nil
}

// DeleteFilterPreset removes a preset by id.
func (s *Store) DeleteFilterPreset(ctx context.Context, profile, module, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	list, err := s.FilterPresets(ctx, profile, module)
	if err != nil {
		return err
	}
	out := list[:0]
	for _, p := range list {
		if p.ID != id {
			out = append(out, p)
		}
	}
	if len(out) == len(list) {
		return ErrPresetNotFound
	}
	return s.save(ctx, profile, presetsKey(module), out)
}

package prefs

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/artpar/erpkit/core/exporter"
)

// MaxTemplates is how many export templates a module keeps. Saving past
// the cap evicts the least recently updated.
const MaxTemplates = 10

var (
	ErrTemplateNotFound = errors.New("export template not found")
	ErrTemplateName     = errors.New("export template name is required")
)

// ExportTemplate is a named, reusable export configuration.
type ExportTemplate struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	ModuleName string          `json:"moduleName"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	Config     exporter.Config `json:"config"`
}

// ExportTemplates lists the templates of a module, most recently updated
// first.
func (s *Store) ExportTemplates(ctx context.Context, profile, module string) ([]ExportTemplate, error) {
	var list []ExportTemplate
	if _, err := s.load(ctx, profile, templatesKey(module), &list); err != nil {
		return nil, err
	}
	sortTemplates(list)
	return list, nil
}

// SaveExportTemplate stores cfg under name. A template with the same name
// (ignoring case and surrounding space) is overwritten and keeps its
// id and creation time. The saved template always survives the cap.
func (s *Store) SaveExportTemplate(ctx context.Context, profile, module, name string, cfg exporter.Config) (ExportTemplate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ExportTemplate{}, ErrTemplateName
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	list, err := s.ExportTemplates(ctx, profile, module)
	if err != nil {
		return ExportTemplate{}, err
	}

	now := s.clock.Now()
	saved := ExportTemplate{Name: name, ModuleName: module, CreatedAt: now}
	found := false
	rest := make([]ExportTemplate, 0, len(list)+1)
	for _, t := range list {
		if !found && strings.EqualFold(t.Name, name) {
			saved.ID, saved.ModuleName, saved.CreatedAt = t.ID, t.ModuleName, t.CreatedAt
			found = true
			continue
		}
		rest = append(rest, t)
	}
	if !found {
		saved.ID = s.ids.New()
	}
	saved.UpdatedAt = now
	saved.Config = cfg

	// rest is already newest first.
	list = append([]ExportTemplate{saved}, rest...)
	if len(list) > MaxTemplates {
		for _, t := range list[MaxTemplates:] {
			s.logger.Debug().Str("module", module).Str("template", t.Name).Msg("evicting export template")
		}
		list = list[:MaxTemplates]
	}
	if err := s.save(ctx, profile, templatesKey(module), list); err != nil {
		return ExportTemplate{}, err
	}
	return saved, nil
}

// LoadExportTemplate returns one template by id.
func (s *Store) LoadExportTemplate(ctx context.Context, profile, module, id string) (ExportTemplate, error) {
	list, err := s.ExportTemplates(ctx, profile, module)
	if err != nil {
		return ExportTemplate{}, err
	}
	for _, t := range list {
		if t.ID == id {
			return t, nil
		}
	}
	return ExportTemplate{}, ErrTemplateNotFound
}

// DeleteExportTemplate removes a template by id.
func (s *Store) DeleteExportTemplate(ctx context.Context, profile, module, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	list, err := s.ExportTemplates(ctx, profile, module)
	if err != nil {
		return err
	}
	out := list[:0]
	for _, t := range list {
		if t.ID != id {
			out = append(out, t)
		}
	}
	if len(out) == len(list) {
		return ErrTemplateNotFound
	}
	if len(out) == 0 {
		return s.kv.Delete(ctx, profile, templatesKey(module))
	}
	return s.save(ctx, profile, templatesKey(module), out)
}

func sortTemplates(list []ExportTemplate) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
}

// ExportPreferences returns the settings of the last export of a module.
// ok is false when the module was never exported.
func (s *Store) ExportPreferences(ctx context.Context, profile, module string) (cfg exporter.Config, ok bool, err error) {
	ok, err = s.load(ctx, profile, preferencesKey(module), &cfg)
	return cfg, ok, err
}

// SaveExportPreferences remembers cfg as the module's last export settings.
func (s *Store) SaveExportPreferences(ctx context.Context, profile, module string, cfg exporter.Config) error {
	return s.save(ctx, profile, preferencesKey(module), cfg)
}

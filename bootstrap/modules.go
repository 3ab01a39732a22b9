// Package bootstrap - modules.go maps configuration onto the module system.
package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/artpar/erpkit/config"
	"github.com/artpar/erpkit/core/exporter"
	"github.com/artpar/erpkit/core/modules"
	"github.com/artpar/erpkit/core/navigation"
	"github.com/artpar/erpkit/core/schema"
)

// Module sources reported by LoadModules.
const (
	SourceDir      = "dir"
	SourceEmbedded = "embedded"
)

// LoadModules parses the module descriptors in dir. When dir is empty or
// does not exist the built-in descriptors are used instead.
func LoadModules(dir string) ([]schema.Module, string, error) {
	if dir != "" {
		info, err := os.Stat(dir)
		switch {
		case err == nil && info.IsDir():
			mods, err := schema.ParseDir(dir)
			if err != nil {
				return nil, "", fmt.Errorf("load modules from %s: %w", dir, err)
			}
			if len(mods) > 0 {
				return mods, SourceDir, nil
			}
		case err == nil:
			return nil, "", fmt.Errorf("modules path %s is not a directory", dir)
		case !errors.Is(err, fs.ErrNotExist):
			return nil, "", fmt.Errorf("stat modules dir: %w", err)
		}
	}

	mods, err := modules.Load()
	if err != nil {
		return nil, "", fmt.Errorf("load built-in modules: %w", err)
	}
	return mods, SourceEmbedded, nil
}

// NewResolver builds the path resolver from the navigation settings.
func NewResolver(cfg config.NavigationConfig) *navigation.Resolver {
	return navigation.NewResolver(navigation.Tokens{
		Create:        cfg.CreateToken,
		Edit:          cfg.EditToken,
		CreateAliases: cfg.CreateAliases,
		EditAliases:   cfg.EditAliases,
	})
}

// ExportLayout converts the export settings into a document layout.
// Unset switches keep their stock values.
func ExportLayout(cfg config.ExportConfig) exporter.Layout {
	layout := exporter.DefaultLayout()
	if cfg.MinColumnWidth > 0 {
		layout.MinColumnWidth = cfg.MinColumnWidth
	}
	if cfg.MaxColumnWidth > 0 {
		layout.MaxColumnWidth = cfg.MaxColumnWidth
	}
	if cfg.FreezeHeader != nil {
		layout.FreezeHeader = *cfg.FreezeHeader
	}
	if cfg.AutoFilter != nil {
		layout.AutoFilter = *cfg.AutoFilter
	}
	layout.FreezeFirstColumn = cfg.FreezeFirstColumn

	switch exporter.Orientation(cfg.Orientation) {
	case exporter.OrientationPortrait, exporter.OrientationLandscape:
		layout.Orientation = exporter.Orientation(cfg.Orientation)
	default:
		layout.Orientation = exporter.OrientationAuto
	}
	if cfg.LandscapeAbove > 0 {
		layout.LandscapeAbove = cfg.LandscapeAbove
	}
	return layout
}

// Package modules ships the built-in module descriptors. They are used
// when no modules directory is configured and serve as examples for
// writing new ones.
package modules

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/artpar/erpkit/core/schema"
)

//go:embed *.yaml
var files embed.FS

// FS returns the embedded descriptor files.
func FS() fs.FS { return files }

// Load parses every embedded descriptor in file name order.
func Load() ([]schema.Module, error) {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	mods := make([]schema.Module, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(files, name)
		if err != nil {
			return nil, err
		}
		mod, err := schema.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		mods = append(mods, mod)
	}
	return mods, nil
}

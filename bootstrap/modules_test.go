package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/artpar/erpkit/config"
	"github.com/artpar/erpkit/core/exporter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const khoYAML = `module: kho
title: Kho hàng
route_path: /kho
columns:
  - id: ma
    header: Mã kho
  - id: ten
    header: Tên kho
sections:
  - title: Kho
    fields:
      - name: ma
        label: Mã kho
        type: text
        required: true
      - name: ten
        label: Tên kho
        type: text
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadModules(t *testing.T) {
	root := t.TempDir()

	withModule := filepath.Join(root, "with")
	writeFile(t, filepath.Join(withModule, "kho.yaml"), khoYAML)

	broken := filepath.Join(root, "broken")
	writeFile(t, filepath.Join(broken, "x.yaml"), "module: [")

	empty := filepath.Join(root, "empty")
	require.NoError(t, os.MkdirAll(empty, 0o755))

	file := filepath.Join(root, "file.yaml")
	writeFile(t, file, khoYAML)

	tests := []struct {
		name    string
		dir     string
		source  string
		count   int
		wantErr bool
	}{
		{name: "no dir configured", dir: "", source: SourceEmbedded, count: 3},
		{name: "missing dir", dir: filepath.Join(root, "missing"), source: SourceEmbedded, count: 3},
		{name: "empty dir", dir: empty, source: SourceEmbedded, count: 3},
		{name: "dir with module", dir: withModule, source: SourceDir, count: 1},
		{name: "broken descriptor", dir: broken, wantErr: true},
		{name: "path is a file", dir: file, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mods, source, err := LoadModules(tt.dir)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.source, source)
			assert.Len(t, mods, tt.count)
		})
	}
}

func TestNewResolver(t *testing.T) {
	r := NewResolver(config.NavigationConfig{
		CreateToken:   "them",
		EditToken:     "sua-doi",
		CreateAliases: []string{"new"},
	})

	st := r.Resolve("/kho/them", "/kho")
	assert.True(t, st.IsNew)

	st = r.Resolve("/kho/new", "/kho")
	assert.True(t, st.IsNew)

	st = r.Resolve("/kho/5/sua-doi", "/kho")
	assert.True(t, st.IsEdit)
	id, ok := st.ID()
	assert.True(t, ok)
	assert.Equal(t, int64(5), id)

	// The stock token is no longer special.
	assert.False(t, r.Tokens().IsCreate("create"))
}

func TestNewResolver_EmptyFallsBack(t *testing.T) {
	r := NewResolver(config.NavigationConfig{})
	assert.Equal(t, "create", r.Tokens().Create)
	assert.Equal(t, "edit", r.Tokens().Edit)
}

func TestExportLayout(t *testing.T) {
	off := false

	tests := []struct {
		name string
		cfg  config.ExportConfig
		want exporter.Layout
	}{
		{
			name: "zero config keeps defaults",
			cfg:  config.ExportConfig{},
			want: exporter.DefaultLayout(),
		},
		{
			name: "all settings",
			cfg: config.ExportConfig{
				MinColumnWidth:    8,
				MaxColumnWidth:    40,
				FreezeHeader:      &off,
				FreezeFirstColumn: true,
				AutoFilter:        &off,
				Orientation:       "landscape",
				LandscapeAbove:    4,
			},
			want: exporter.Layout{
				MinColumnWidth:    8,
				MaxColumnWidth:    40,
				FreezeHeader:      false,
				FreezeFirstColumn: true,
				AutoFilter:        false,
				Orientation:       exporter.OrientationLandscape,
				LandscapeAbove:    4,
			},
		},
		{
			name: "unknown orientation is auto",
			cfg:  config.ExportConfig{Orientation: "sideways"},
			want: exporter.DefaultLayout(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExportLayout(tt.cfg))
		})
	}
}

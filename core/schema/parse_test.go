package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const nhanSuYAML = `
module: nhan_su
title: Nhân sự
route_path: /hanh-chinh/nhan-su
breadcrumb:
  parent_label: Hành chính
  skip_segments: [hanh-chinh]

columns:
  - id: ma_nhan_vien
    header: Mã NV
    filterable: true
  - id: luong
    header: Lương
    filter: range
    meta: { format: currency, order: 2 }
  - id: trang_thai
    header: Trạng thái
    meta:
      enum_config:
        dang_lam: { label: Đang làm, color: green }
        nghi_viec: { label: Nghỉ việc, color: red }

sections:
  - title: Thông tin chung
    fields:
      - { name: ho_ten, label: Họ tên, type: text, required: true }
      - name: gioi_tinh
        label: Giới tính
        type: select
        options: [{ value: nam, label: Nam }, { value: nu, label: Nữ }]
      - { name: avatar, type: custom, component: avatar }
`

func TestParse(t *testing.T) {
	mod, err := Parse([]byte(nhanSuYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if mod.Name != "nhan_su" {
		t.Errorf("Name = %q, want %q", mod.Name, "nhan_su")
	}
	if mod.RoutePath != "/hanh-chinh/nhan-su" {
		t.Errorf("RoutePath = %q", mod.RoutePath)
	}
	if mod.Breadcrumb.ParentLabel != "Hành chính" {
		t.Errorf("Breadcrumb.ParentLabel = %q", mod.Breadcrumb.ParentLabel)
	}
	if len(mod.Columns) != 3 {
		t.Fatalf("Columns = %d, want 3", len(mod.Columns))
	}

	luong, ok := mod.Column("luong")
	if !ok {
		t.Fatal("missing column luong")
	}
	if luong.Meta.Format != FormatCurrency || luong.Meta.Order == nil || *luong.Meta.Order != 2 {
		t.Errorf("luong meta = %+v", luong.Meta)
	}
	if luong.FilterKindOrDefault() != FilterRange {
		t.Errorf("luong filter = %q", luong.FilterKindOrDefault())
	}

	status, _ := mod.Column("trang_thai")
	if status.FilterKindOrDefault() != FilterMultiSelect {
		t.Errorf("enum column should default to multi_select, got %q", status.FilterKindOrDefault())
	}
	if status.EnumLabel("dang_lam") != "Đang làm" {
		t.Errorf("EnumLabel = %q", status.EnumLabel("dang_lam"))
	}

	if len(mod.Fields()) != 3 {
		t.Errorf("Fields() = %d, want 3", len(mod.Fields()))
	}
	gt, _ := mod.Field("gioi_tinh")
	if gt.OptionLabel("nu") != "Nữ" {
		t.Errorf("OptionLabel = %q", gt.OptionLabel("nu"))
	}
	if mod.PrimaryKey() != "id" {
		t.Errorf("PrimaryKey() = %q", mod.PrimaryKey())
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "route_path: /x\ncolumns: [{id: a}]",
			wantErr: "module name is required",
		},
		{
			name:    "relative route",
			yaml:    "module: x\nroute_path: x\ncolumns: [{id: a}]",
			wantErr: "must be absolute",
		},
		{
			name:    "no columns",
			yaml:    "module: x\nroute_path: /x",
			wantErr: "at least one column",
		},
		{
			name:    "duplicate column",
			yaml:    "module: x\nroute_path: /x\ncolumns: [{id: a}, {id: a}]",
			wantErr: `duplicate column "a"`,
		},
		{
			name:    "unknown filter",
			yaml:    "module: x\nroute_path: /x\ncolumns: [{id: a, filter: fuzzy}]",
			wantErr: "unknown filter",
		},
		{
			name: "select without options",
			yaml: `module: x
route_path: /x
columns: [{id: a}]
sections: [{title: t, fields: [{name: s, type: select}]}]`,
			wantErr: "requires options",
		},
		{
			name: "custom without component",
			yaml: `module: x
route_path: /x
columns: [{id: a}]
sections: [{title: t, fields: [{name: c, type: custom}]}]`,
			wantErr: "requires a component",
		},
		{
			name: "bad pattern",
			yaml: `module: x
route_path: /x
columns: [{id: a}]
sections: [{title: t, fields: [{name: c, type: text, constraints: [{type: pattern, value: "("}]}]}]`,
			wantErr: "invalid pattern",
		},
		{
			name: "parent without key",
			yaml: `module: x
route_path: /x
parent: {module: y}
columns: [{id: a}]`,
			wantErr: "parent requires",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseDir(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "hanh_chinh")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		filepath.Join(dir, "a.yaml"):     "module: a\nroute_path: /a\ncolumns: [{id: ten}]",
		filepath.Join(sub, "b.yml"):      "module: b\nroute_path: /b\ncolumns: [{id: ten}]",
		filepath.Join(dir, "readme.txt"): "ignored",
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	mods, err := ParseDir(dir)
	if err != nil {
		t.Fatalf("ParseDir failed: %v", err)
	}
	if len(mods) != 2 {
		t.Fatalf("got %d modules, want 2", len(mods))
	}
	if mods[0].Name != "a" || mods[1].Name != "b" {
		t.Errorf("order = %s, %s", mods[0].Name, mods[1].Name)
	}
}

func TestColumnDefaults(t *testing.T) {
	no := false
	c := Column{ID: "ngay_sinh"}
	if !c.IsSortable() {
		t.Error("columns are sortable by default")
	}
	if c.Key() != "ngay_sinh" || c.Title() != "ngay_sinh" {
		t.Errorf("Key/Title = %q/%q", c.Key(), c.Title())
	}
	c = Column{ID: "x", Header: "Hdr", Accessor: "y", Sortable: &no, Meta: ColumnMeta{Title: "Meta"}}
	if c.IsSortable() || c.Key() != "y" || c.Title() != "Meta" {
		t.Errorf("overrides not honored: %+v", c)
	}
}

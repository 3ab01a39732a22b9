package convention

import (
	"reflect"
	"testing"

	"github.com/artpar/erpkit/core/schema"
)

func intPtr(i int) *int { return &i }

func TestDerive_Defaults(t *testing.T) {
	mod := schema.Module{
		Name:      "nguoi_than",
		RoutePath: "hanh-chinh/nguoi-than/",
		Parent:    &schema.ParentRef{Module: "nhan_su", ForeignKey: "nhan_su_id"},
		Columns: []schema.Column{
			{ID: "select"},
			{ID: "ho_ten", Header: "Họ tên"},
			{ID: "quan_he"},
			{ID: "actions"},
		},
		Sections: []schema.Section{{
			Title: "Chung",
			Fields: []schema.Field{
				{Name: "ho_ten", Type: schema.FieldTypeText},
				{Name: "nam_sinh", Type: schema.FieldTypeNumber},
			},
		}},
	}

	d := Derive(mod)

	if d.Table != "nguoi_than" {
		t.Errorf("Table = %q", d.Table)
	}
	if d.Title != "Nguoi Than" || d.Label != "Nguoi Than" {
		t.Errorf("Title/Label = %q/%q", d.Title, d.Label)
	}
	if d.RoutePath != "/hanh-chinh/nguoi-than" {
		t.Errorf("RoutePath = %q", d.RoutePath)
	}
	if d.Columns[2].Meta.Title != "Quan He" || d.Columns[2].Accessor != "quan_he" {
		t.Errorf("column defaults = %+v", d.Columns[2])
	}
	if d.Fields[0].Label != "Họ tên" {
		t.Errorf("field label should come from column header, got %q", d.Fields[0].Label)
	}
	if len(d.ExportColumns) != 2 {
		t.Errorf("ExportColumns = %d, want 2 (select/actions dropped)", len(d.ExportColumns))
	}
	if !reflect.DeepEqual(d.SearchFields, []string{"ho_ten", "quan_he"}) {
		t.Errorf("SearchFields = %v", d.SearchFields)
	}

	want := []StorageColumn{
		{Name: "ho_ten", SQLType: "TEXT", Type: schema.FieldTypeText},
		{Name: "nam_sinh", SQLType: "REAL", Type: schema.FieldTypeNumber},
		{Name: "quan_he", SQLType: "TEXT"},
		{Name: "nhan_su_id", SQLType: "INTEGER", Type: schema.FieldTypeNumber},
	}
	if !reflect.DeepEqual(d.Storage, want) {
		t.Errorf("Storage = %+v, want %+v", d.Storage, want)
	}
}

func TestDerive_BreadcrumbLabel(t *testing.T) {
	d := Derive(schema.Module{
		Name:       "phong_ban",
		Title:      "Phòng ban",
		RoutePath:  "/phong-ban",
		Breadcrumb: schema.Breadcrumb{Label: "Danh sách phòng ban"},
		Columns:    []schema.Column{{ID: "ten"}},
	})
	if d.Title != "Phòng ban" || d.Label != "Danh sách phòng ban" {
		t.Errorf("Title/Label = %q/%q", d.Title, d.Label)
	}
}

func TestExportOrder(t *testing.T) {
	cols := []schema.Column{
		{ID: "a"},
		{ID: "b", Meta: schema.ColumnMeta{Order: intPtr(1)}},
		{ID: "c", Meta: schema.ColumnMeta{Hidden: true}},
		{ID: "d", Meta: schema.ColumnMeta{Order: intPtr(0)}},
		{ID: "e"},
	}

	tests := []struct {
		name  string
		order map[string]int
		want  []string
	}{
		{"meta order then declaration", nil, []string{"d", "b", "a", "e"}},
		{"explicit order wins", map[string]int{"e": 0, "a": 1}, []string{"d", "e", "a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, c := range ExportOrder(cols, tt.order) {
				got = append(got, c.ID)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExportOrder() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"ma_nhan_vien": "Ma Nhan Vien",
		"email":        "Email",
		"ngay-sinh":    "Ngay Sinh",
		"đia_chi":      "Đia Chi",
		"":             "",
	}
	for in, want := range tests {
		if got := TitleCase(in); got != want {
			t.Errorf("TitleCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"/hr/employees/":    "/hr/employees",
		"hr//employees":     "/hr/employees",
		"/hr/employees?x=1": "/hr/employees",
		"":                  "/",
		"/":                 "/",
		" /a/b#frag":        "/a/b",
	}
	for in, want := range tests {
		if got := NormalizePath(in); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}

	if got := Segments("/hr/employees/42/edit"); !reflect.DeepEqual(got, []string{"hr", "employees", "42", "edit"}) {
		t.Errorf("Segments = %v", got)
	}
	if got := Segments("/"); got != nil {
		t.Errorf("Segments(/) = %v, want nil", got)
	}
}

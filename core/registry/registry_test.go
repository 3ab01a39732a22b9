package registry

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/artpar/erpkit/core/navigation"
	"github.com/artpar/erpkit/core/schema"
)

func makeModule(name, route string) schema.Module {
	return schema.Module{
		Name:      name,
		RoutePath: route,
		Columns:   []schema.Column{{ID: "ten"}},
	}
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	nhanSu := makeModule("nhan_su", "/hanh-chinh/nhan-su")
	nhanSu.Title = "Nhân sự"
	nhanSu.Breadcrumb = schema.Breadcrumb{ParentLabel: "Hành chính"}

	nguoiThan := makeModule("nguoi_than", "/hanh-chinh/nhan-su/nguoi-than")
	nguoiThan.Title = "Người thân"
	nguoiThan.Parent = &schema.ParentRef{Module: "nhan_su", ForeignKey: "nhan_su_id"}

	khachHang := makeModule("khach_hang", "/kinh-doanh/khach-hang-si")
	khachHang.Title = "Khách hàng sỉ"
	khachHang.Breadcrumb = schema.Breadcrumb{Label: "KH sỉ", SkipSegments: []string{"kinh-doanh", "tab"}}

	r, err := New(nil, nhanSu, nguoiThan, khachHang)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func TestNew_PreservesOrder(t *testing.T) {
	r := testRegistry(t)
	var names []string
	for _, d := range r.List() {
		names = append(names, d.Source.Name)
	}
	want := []string{"nhan_su", "nguoi_than", "khach_hang"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("List() = %v, want %v", names, want)
	}
	if r.Len() != 3 {
		t.Errorf("Len() = %d", r.Len())
	}
}

func TestNew_Conflicts(t *testing.T) {
	tests := []struct {
		name string
		mods []schema.Module
		want string
	}{
		{
			name: "duplicate name",
			mods: []schema.Module{makeModule("a", "/a"), makeModule("a", "/b")},
			want: `module "a" already registered`,
		},
		{
			name: "duplicate route",
			mods: []schema.Module{makeModule("a", "/x/"), makeModule("b", "/x")},
			want: `route "/x" claimed by a and b`,
		},
		{
			name: "missing parent",
			mods: []schema.Module{func() schema.Module {
				m := makeModule("a", "/a")
				m.Parent = &schema.ParentRef{Module: "ghost", ForeignKey: "ghost_id"}
				return m
			}()},
			want: `parent "ghost" is not registered`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(nil, tt.mods...)
			var ce *ConflictError
			if !errors.As(err, &ce) || !ce.HasConflicts() {
				t.Fatalf("expected ConflictError, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want containing %q", err.Error(), tt.want)
			}
		})
	}
}

func TestLookups(t *testing.T) {
	r := testRegistry(t)

	if _, err := r.Lookup("ghost"); !errors.Is(err, ErrUnknownModule) {
		t.Errorf("Lookup(ghost) error = %v", err)
	}
	if r.Title("nhan_su") != "Nhân sự" || r.Title("ghost") != "ghost" {
		t.Errorf("Title() fallbacks wrong")
	}

	tests := []struct {
		path string
		want string
	}{
		{"/hanh-chinh/nhan-su", "nhan_su"},
		{"/hanh-chinh/nhan-su/42/edit", "nhan_su"},
		{"/hanh-chinh/nhan-su/nguoi-than/3", "nguoi_than"},
		{"/hanh-chinh/nhan-su-cu", ""},
		{"/", ""},
	}
	for _, tt := range tests {
		got, ok := r.ByPath(tt.path)
		name := ""
		if ok {
			name = got.Source.Name
		}
		if name != tt.want {
			t.Errorf("ByPath(%q) = %q, want %q", tt.path, name, tt.want)
		}
	}

	children := r.Children("nhan_su")
	if len(children) != 1 || children[0].Source.Name != "nguoi_than" {
		t.Errorf("Children(nhan_su) = %v", children)
	}
}

func TestBreadcrumbs(t *testing.T) {
	r := testRegistry(t)

	labels := func(cs []Crumb) []string {
		var out []string
		for _, c := range cs {
			out = append(out, c.Label)
		}
		return out
	}

	tests := []struct {
		path string
		want []string
	}{
		{"/hanh-chinh/nhan-su", []string{"Trang chủ", "Hành chính", "Nhân sự"}},
		{"/hanh-chinh/nhan-su/create", []string{"Trang chủ", "Hành chính", "Nhân sự", "Thêm mới"}},
		{"/hanh-chinh/nhan-su/42/sua", []string{"Trang chủ", "Hành chính", "Nhân sự", "#42", "Chỉnh sửa"}},
		{"/hanh-chinh/nhan-su/nguoi-than/3", []string{"Trang chủ", "Hanh Chinh", "Nhân sự", "Người thân", "#3"}},
		{"/kinh-doanh/khach-hang-si/tab/5", []string{"Trang chủ", "KH sỉ", "#5"}},
		{"/bao-cao/tong-hop", []string{"Trang chủ", "Bao Cao", "Tong Hop"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := r.Breadcrumbs(tt.path)
			if !reflect.DeepEqual(labels(got), tt.want) {
				t.Errorf("Breadcrumbs() = %v, want %v", labels(got), tt.want)
			}
			if !got[len(got)-1].Current {
				t.Error("last crumb should be current")
			}
		})
	}

	crumbs := r.Breadcrumbs("/hanh-chinh/nhan-su/42/edit")
	if crumbs[3].Path != "/hanh-chinh/nhan-su/42" {
		t.Errorf("detail crumb path = %q", crumbs[3].Path)
	}
}

func TestNew_CustomResolver(t *testing.T) {
	res := navigation.NewResolver(navigation.Tokens{Create: "them"})
	r, err := New(res, makeModule("a", "/a"))
	if err != nil {
		t.Fatal(err)
	}
	got := r.Breadcrumbs("/a/them")
	if got[len(got)-1].Label != CreateLabel {
		t.Errorf("custom create token crumb = %q", got[len(got)-1].Label)
	}
}

package validation

import (
	"testing"

	"github.com/artpar/erpkit/core/schema"
)

func employeeSections() []schema.Section {
	return []schema.Section{
		{
			Title: "Thông tin cá nhân",
			Fields: []schema.Field{
				{Name: "ho_ten", Label: "Họ tên", Type: schema.FieldTypeText, Required: true, Constraints: []schema.Constraint{
					{Type: schema.ConstraintMaxLength, Value: 10},
				}},
				{Name: "email", Type: schema.FieldTypeEmail},
				{Name: "dien_thoai", Type: schema.FieldTypePhone},
				{Name: "ngay_sinh", Type: schema.FieldTypeDate},
			},
		},
		{
			Title: "Công việc",
			Fields: []schema.Field{
				{Name: "luong", Type: schema.FieldTypeCurrency, Constraints: []schema.Constraint{
					{Type: schema.ConstraintMin, Value: 0},
				}},
				{Name: "trang_thai", Type: schema.FieldTypeSelect, Required: true, Default: "dang_lam", Options: []schema.Option{
					{Value: "dang_lam", Label: "Đang làm"},
					{Value: "nghi_viec", Label: "Nghỉ việc"},
				}},
				{Name: "ky_nang", Type: schema.FieldTypeMulti, Options: []schema.Option{{Value: "go"}, {Value: "sql"}}},
				{Name: "ma_so", Type: schema.FieldTypeText, Constraints: []schema.Constraint{
					{Type: schema.ConstraintPattern, Value: `^NV\d{3}$`, Message: "Mã phải có dạng NV000"},
				}},
				{Name: "dang_vien", Type: schema.FieldTypeCheckbox},
			},
		},
	}
}

func TestValidate(t *testing.T) {
	v := New(Vietnamese)

	tests := []struct {
		name       string
		data       map[string]any
		wantFields map[string]string // field -> constraint
	}{
		{
			name: "valid",
			data: map[string]any{
				"ho_ten":     "Nguyễn An",
				"email":      "an@congty.vn",
				"dien_thoai": "090 123 4567",
				"ngay_sinh":  "15/08/1990",
				"luong":      "12000000",
				"ky_nang":    []any{"go"},
				"ma_so":      "NV001",
				"dang_vien":  true,
			},
		},
		{
			name:       "required missing",
			data:       map[string]any{},
			wantFields: map[string]string{"ho_ten": "required"},
		},
		{
			name:       "required blank string",
			data:       map[string]any{"ho_ten": "   "},
			wantFields: map[string]string{"ho_ten": "required"},
		},
		{
			name:       "blank overrides default",
			data:       map[string]any{"ho_ten": "An", "trang_thai": ""},
			wantFields: map[string]string{"trang_thai": "required"},
		},
		{
			name: "type errors",
			data: map[string]any{
				"ho_ten":     "An",
				"email":      "khong-hop-le",
				"dien_thoai": "12345",
				"ngay_sinh":  "31/02/2020",
				"luong":      "mười triệu",
				"trang_thai": "nghi_huu",
				"ky_nang":    []any{"go", "java"},
				"dang_vien":  "co",
			},
			wantFields: map[string]string{
				"email":      "email",
				"dien_thoai": "phone",
				"ngay_sinh":  "date",
				"luong":      "number",
				"trang_thai": "option",
				"ky_nang":    "option",
				"dang_vien":  "checkbox",
			},
		},
		{
			name:       "constraints",
			data:       map[string]any{"ho_ten": "Nguyễn Văn Anh Tuấn", "luong": -1, "ma_so": "X1"},
			wantFields: map[string]string{"ho_ten": "max_length", "luong": "min", "ma_so": "pattern"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Validate(employeeSections(), tt.data)

			if len(tt.wantFields) == 0 {
				if !result.Valid {
					t.Fatalf("expected valid, got %s", result.Error())
				}
				return
			}
			if result.Valid {
				t.Fatal("expected invalid")
			}
			got := make(map[string]string)
			for _, e := range result.Errors {
				got[e.Field] = e.Constraint
				if e.Message == "" {
					t.Errorf("%s: empty message", e.Field)
				}
			}
			for field, c := range tt.wantFields {
				if got[field] != c {
					t.Errorf("field %s: constraint = %q, want %q (all: %v)", field, got[field], c, got)
				}
			}
			if len(got) != len(tt.wantFields) {
				t.Errorf("errors on %v, want %v", got, tt.wantFields)
			}
		})
	}
}

func TestValidate_Messages(t *testing.T) {
	data := map[string]any{"ma_so": "X1", "ho_ten": ""}

	vi := New(Vietnamese).Validate(employeeSections(), data).FieldErrors()
	if vi["ho_ten"] != "Trường này là bắt buộc" {
		t.Errorf("vi required = %q", vi["ho_ten"])
	}
	if vi["ma_so"] != "Mã phải có dạng NV000" {
		t.Errorf("custom message lost: %q", vi["ma_so"])
	}

	en := New(English).Validate(employeeSections(), data).FieldErrors()
	if en["ho_ten"] != "This field is required" {
		t.Errorf("en required = %q", en["ho_ten"])
	}
	if en["ma_so"] != "Mã phải có dạng NV000" {
		t.Errorf("custom message must not be localized: %q", en["ma_so"])
	}

	if New("fr").Locale() != Vietnamese {
		t.Error("unknown locale should fall back to vi")
	}

	min := New(English).ValidateField(schema.Field{Name: "x", Type: schema.FieldTypeNumber, Constraints: []schema.Constraint{
		{Type: schema.ConstraintMin, Value: 5},
	}}, 3)
	if min.Valid || min.Errors[0].Message != "Must be at least 5" {
		t.Errorf("min message = %+v", min.Errors)
	}
}

func TestValidatePatch(t *testing.T) {
	v := New(Vietnamese)

	if r := v.ValidatePatch(employeeSections(), map[string]any{"luong": 100}); !r.Valid {
		t.Errorf("partial update without required fields should pass: %s", r.Error())
	}

	r := v.ValidatePatch(employeeSections(), map[string]any{"ho_ten": nil})
	if r.Valid || r.Errors[0].Constraint != "required" {
		t.Errorf("clearing a required field should fail: %+v", r)
	}

	r = v.ValidatePatch(employeeSections(), map[string]any{"email": "sai"})
	if r.Valid {
		t.Error("patch values are type checked")
	}
}

func TestIsPhone(t *testing.T) {
	tests := map[string]bool{
		"0901234567":      true,
		"+84 901 234 567": true,
		"090.123.4567":    true,
		"02838123456":     true,
		"12345":           false,
		"09012345ab":      false,
	}
	for in, want := range tests {
		if got := isPhone(in); got != want {
			t.Errorf("isPhone(%q) = %v, want %v", in, got, want)
		}
	}
}

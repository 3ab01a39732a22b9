package exporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/artpar/erpkit/core/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func intPtr(n int) *int { return &n }

var staffColumns = []schema.Column{
	{ID: "select"},
	{ID: "ho_ten", Header: "Họ tên"},
	{ID: "luong", Header: "Lương"},
	{ID: "trang_thai", Header: "Trạng thái", Meta: schema.ColumnMeta{EnumConfig: map[string]schema.EnumOption{
		"dang_lam":  {Label: "Đang làm"},
		"nghi_viec": {Label: "Nghỉ việc"},
	}}},
	{ID: "ma_nv", Header: "Mã NV", Meta: schema.ColumnMeta{Order: intPtr(0)}},
	{ID: "ghi_chu", Meta: schema.ColumnMeta{Hidden: true}},
	{ID: "actions"},
}

var staffRows = []map[string]any{
	{"id": int64(1), "ma_nv": "NV001", "ho_ten": "Nguyễn Văn An", "luong": 100000.0, "trang_thai": "dang_lam"},
	{"id": int64(2), "ma_nv": "NV002", "ho_ten": "Trần Thị Bình", "luong": 250000.0, "trang_thai": "nghi_viec"},
	{"id": int64(3), "ma_nv": "NV003", "ho_ten": "Lê Văn Cường", "luong": 75000.0, "trang_thai": "dang_lam"},
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name   string
		values []any
		format schema.ColumnFormat
		numFmt string
	}{
		{"plain integers", []any{100000, 250000, 75000}, schema.FormatNumber, NumFmtInteger},
		{"float integers", []any{100000.0, 250000.0, 75000.0}, schema.FormatNumber, NumFmtInteger},
		{"fractions", []any{1.5, 2.25, 3.0}, schema.FormatNumber, NumFmtDecimal},
		{"numeric strings", []any{"1.500.000", "2,000,000"}, schema.FormatNumber, NumFmtInteger},
		{"percent strings", []any{"12,5%", "30%", "7.5 %"}, schema.FormatPercentage, NumFmtPercent},
		{"currency", []any{"1.500.000 ₫", "200.000đ", "300.000 VND"}, schema.FormatCurrency, NumFmtCurrency},
		{"dates", []any{"15/01/2024", "2024-02-01", time.Now()}, schema.FormatDate, ""},
		{"names", []any{"An", "Bình"}, schema.FormatText, ""},
		{"mostly numbers", []any{1, 2, 3, 4, "n/a"}, schema.FormatNumber, NumFmtInteger},
		{"too mixed", []any{1, 2, 3, "a", "b"}, schema.FormatText, ""},
		{"phone numbers", []any{"0912345678", "0987654321"}, schema.FormatText, ""},
		{"empty values skipped", []any{nil, "", 5, 6}, schema.FormatNumber, NumFmtInteger},
		{"nothing", nil, schema.FormatText, ""},
		{"not a number word", []any{"NaN", "Inf"}, schema.FormatText, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectFormat(tt.values)
			assert.Equal(t, tt.format, got.Format)
			assert.Equal(t, tt.numFmt, got.NumFmt)
		})
	}
}

func TestParseGrouped(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1500000", 1500000, true},
		{"1.500.000", 1500000, true},
		{"1,500,000", 1500000, true},
		{"1.500.000,5", 1500000.5, true},
		{"1,500,000.5", 1500000.5, true},
		{"12,5", 12.5, true},
		{"1,500", 1500, true},
		{"0.125", 0.125, true},
		{"-42", -42, true},
		{"", 0, false},
		{"12a", 0, false},
		{"1e5", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseGrouped(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("parseGrouped(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPrepare_ColumnsAndCells(t *testing.T) {
	now := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	tbl, err := Prepare(Request{
		Module:  "nhan_su",
		Title:   "Nhân sự",
		Columns: staffColumns,
		Rows:    staffRows,
		Mode:    ModeAll,
		Now:     now,
	})
	require.NoError(t, err)

	var headers []string
	for _, c := range tbl.Columns {
		headers = append(headers, c.Header)
	}
	assert.Equal(t, []string{"Mã NV", "Họ tên", "Lương", "Trạng thái"}, headers, "Meta.Order first, reserved and hidden dropped")

	assert.Equal(t, schema.FormatNumber, tbl.Columns[2].Format.Format)
	assert.Equal(t, NumFmtInteger, tbl.Columns[2].Format.NumFmt)
	assert.Equal(t, 100000.0, tbl.Rows[0][2])
	assert.Equal(t, "Đang làm", tbl.Rows[0][3], "enum label")
	assert.Equal(t, "100.000", tbl.Text(0, 2))
	assert.Equal(t, 3, tbl.Meta.RecordCount)
	assert.Equal(t, now, tbl.Meta.GeneratedAt)
	assert.Equal(t, DateDMY, tbl.Options.DateFormat)
}

func TestPrepare_OrderAndSelection(t *testing.T) {
	tbl, err := Prepare(Request{
		Module:  "nhan_su",
		Columns: staffColumns,
		Rows:    staffRows,
		Config: Config{
			SelectedColumns: []string{"ho_ten", "luong"},
			ColumnOrder:     map[string]int{"luong": 0, "ho_ten": 1},
		},
	})
	require.NoError(t, err)
	require.Len(t, tbl.Columns, 2)
	assert.Equal(t, "luong", tbl.Columns[0].ID)
	assert.Equal(t, "ho_ten", tbl.Columns[1].ID)
	assert.Equal(t, "Nhan Su", tbl.Meta.Title)

	_, err = Prepare(Request{Columns: staffColumns, Rows: staffRows, Config: Config{SelectedColumns: []string{"khong_co"}}})
	assert.ErrorIs(t, err, ErrNoColumns)
}

func TestPrepare_Modes(t *testing.T) {
	filtered := staffRows[:2]
	tests := []struct {
		name    string
		mode    Mode
		ids     []string
		want    int
		wantErr error
	}{
		{"all", ModeAll, nil, 3, nil},
		{"filtered", ModeFiltered, nil, 2, nil},
		{"default is filtered", "", nil, 2, nil},
		{"selected", ModeSelected, []string{"3", "1"}, 2, nil},
		{"selected nothing", ModeSelected, nil, 0, ErrNothingSelected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := Prepare(Request{
				Columns:     staffColumns,
				Rows:        staffRows,
				Filtered:    filtered,
				Mode:        tt.mode,
				SelectedIDs: tt.ids,
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, tbl.Rows, tt.want)
			assert.Equal(t, 3, tbl.Meta.TotalCount)
		})
	}

	_, err := Prepare(Request{Columns: staffColumns, Mode: "partial"})
	assert.Error(t, err)
}

func TestCellValue(t *testing.T) {
	col := staffColumns[3]
	assert.Equal(t, "Đang làm, Nghỉ việc", cellValue([]any{"dang_lam", "nghi_viec"}, col))
	assert.Equal(t, "Có", cellValue(true, col))
	assert.Equal(t, `{"a":1}`, cellValue(map[string]any{"a": 1}, col))
	assert.Nil(t, cellValue(nil, col))
}

func TestExplicitPercentage(t *testing.T) {
	col := schema.Column{ID: "ty_le", Meta: schema.ColumnMeta{Format: schema.FormatPercentage}}
	tbl, err := Prepare(Request{Columns: []schema.Column{col}, Rows: []map[string]any{{"ty_le": 12.5}, {"ty_le": 40}}})
	require.NoError(t, err)
	assert.InDelta(t, 0.125, tbl.Rows[0][0], 1e-9)
	assert.Equal(t, "12,5%", tbl.Text(0, 0))
}

func TestExcel_Workbook(t *testing.T) {
	layout := DefaultLayout()
	layout.MinColumnWidth = 12
	layout.MaxColumnWidth = 20

	rows := append([]map[string]any{}, staffRows...)
	rows = append(rows, map[string]any{"id": int64(4), "ma_nv": "NV004", "ho_ten": strings.Repeat("Rất dài ", 10), "luong": 1.0})

	tbl, err := Prepare(Request{
		Module:  "nhan_su",
		Title:   "Nhân sự",
		Columns: staffColumns,
		Rows:    rows,
		Mode:    ModeAll,
		Config:  Config{ExportOptions: DefaultOptions()},
		Filters: []string{"Trạng thái: Đang làm"},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewExcel(layout).Write(&buf, tbl))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{DataSheet, MetadataSheet}, f.GetSheetList())

	header, err := f.GetCellValue(DataSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Mã NV", header)

	raw, err := f.GetCellValue(DataSheet, "C2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "100000", raw)

	styleID, err := f.GetCellStyle(DataSheet, "C3")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.CustomNumFmt)
	assert.Equal(t, NumFmtInteger, *style.CustomNumFmt)

	wide, err := f.GetColWidth(DataSheet, "B")
	require.NoError(t, err)
	assert.Equal(t, 20.0, wide, "long names clamp to the maximum")
	narrow, err := f.GetColWidth(DataSheet, "A")
	require.NoError(t, err)
	assert.Equal(t, 12.0, narrow, "short codes clamp to the minimum")

	panes, err := f.GetPanes(DataSheet)
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, 1, panes.YSplit)

	filters, err := f.GetCellValue(MetadataSheet, "B6")
	require.NoError(t, err)
	assert.Equal(t, "Trạng thái: Đang làm", filters)
}

func TestConfig_DecodeDefaults(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Options
	}{
		{"no options", `{"selectedColumns":["luong"]}`, DefaultOptions()},
		{"partial options", `{"exportOptions":{"includeMetadata":false}}`, Options{ProfessionalFormatting: true, DateFormat: DateDMY}},
		{"explicit off", `{"exportOptions":{"professionalFormatting":false,"dateFormat":"yyyy-mm-dd"}}`, Options{IncludeMetadata: true, DateFormat: DateYMD}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			require.NoError(t, json.Unmarshal([]byte(tt.body), &cfg))
			assert.Equal(t, tt.want, cfg.ExportOptions)
		})
	}
}

func TestExcel_HeaderStyledWithoutOptions(t *testing.T) {
	var cfg Config
	require.NoError(t, json.Unmarshal([]byte(`{"selectedColumns":["luong"]}`), &cfg))

	tbl, err := Prepare(Request{Columns: staffColumns, Rows: staffRows, Config: cfg})
	require.NoError(t, err)

	f, err := NewExcel(DefaultLayout()).Build(tbl)
	require.NoError(t, err)
	defer f.Close()

	styleID, err := f.GetCellStyle(DataSheet, "A1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	assert.Equal(t, 1, style.Fill.Pattern)
	require.Len(t, style.Fill.Color, 1)
	assert.Contains(t, strings.ToUpper(style.Fill.Color[0]), strings.TrimPrefix(headerFill, "#"))
	require.NotNil(t, style.Alignment)
	assert.Equal(t, "center", style.Alignment.Horizontal)
	assert.Len(t, style.Border, 4)
}

func TestExcel_WithoutMetadata(t *testing.T) {
	tbl, err := Prepare(Request{Columns: staffColumns, Rows: staffRows})
	require.NoError(t, err)

	f, err := NewExcel(Layout{AutoFilter: false}).Build(tbl)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{DataSheet}, f.GetSheetList())
}

func TestPDF_Write(t *testing.T) {
	tbl, err := Prepare(Request{Module: "nhan_su", Title: "Danh sách nhân sự", Columns: staffColumns, Rows: staffRows})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewPDF(DefaultLayout()).Write(&buf, tbl))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	err = NewPDF(DefaultLayout(), WithFont("/khong/ton/tai.ttf")).Write(&bytes.Buffer{}, tbl)
	assert.Error(t, err)
}

func TestLayout(t *testing.T) {
	l := Layout{}.withDefaults()
	assert.Equal(t, 10.0, l.clamp(3))
	assert.Equal(t, 50.0, l.clamp(80))
	assert.Equal(t, 25.0, l.clamp(25))

	assert.False(t, l.landscape(6))
	assert.True(t, l.landscape(7))

	l.Orientation = OrientationPortrait
	assert.False(t, l.landscape(20))
}

func TestCSV(t *testing.T) {
	tbl, err := Prepare(Request{Columns: staffColumns, Rows: staffRows[:1]})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, CSV{}.Write(&buf, tbl))
	assert.Equal(t, "\ufeffMã NV,Họ tên,Lương,Trạng thái\nNV001,Nguyễn Văn An,100.000,Đang làm\n", buf.String())
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry(DefaultLayout())
	assert.Equal(t, []Format{FormatCSV, FormatExcel, FormatJSON, FormatPDF}, r.Formats())

	var buf bytes.Buffer
	now := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	name, n, err := r.Export(&buf, FormatJSON, Request{Module: "nhan_su", Columns: staffColumns, Rows: staffRows, Now: now})
	require.NoError(t, err)
	assert.Equal(t, "nhan_su_export_20240305_140709.json", name)
	assert.Equal(t, 3, n)
	assert.Contains(t, buf.String(), `"Họ tên": "Nguyễn Văn An"`)

	_, _, err = r.Export(&buf, "docx", Request{})
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFilename(t *testing.T) {
	at := time.Date(2024, 12, 31, 23, 59, 1, 0, time.UTC)
	assert.Equal(t, "nhan_su_export_20241231_235901.xlsx", Filename("nhan_su", "xlsx", at))
	assert.Equal(t, "export_export_20241231_235901.pdf", Filename("", "pdf", at))
}

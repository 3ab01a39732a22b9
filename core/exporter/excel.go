package exporter

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/artpar/erpkit/core/schema"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the workbook.
const (
	DataSheet     = "Dữ liệu"
	MetadataSheet = "Thông tin"
)

const (
	headerFill = "#4472C4"
	borderGray = "#BFBFBF"
)

// Excel writes styled .xlsx workbooks.
type Excel struct {
	layout Layout
}

// NewExcel creates an Excel sink.
func NewExcel(layout Layout) *Excel {
	return &Excel{layout: layout.withDefaults()}
}

// Layout returns the sheet layout in use.
func (e *Excel) Layout() Layout { return e.layout }

func (*Excel) Format() Format    { return FormatExcel }
func (*Excel) Extension() string { return "xlsx" }
func (*Excel) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Write renders t as a workbook.
func (e *Excel) Write(w io.Writer, t Table) error {
	f, err := e.Build(t)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// Build renders t into an open workbook. The caller closes it.
func (e *Excel) Build(t Table) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", DataSheet); err != nil {
		f.Close()
		return nil, err
	}

	if err := e.writeData(f, t); err != nil {
		f.Close()
		return nil, err
	}
	if t.Options.IncludeMetadata {
		if err := writeMetadata(f, t); err != nil {
			f.Close()
			return nil, err
		}
	}

	f.SetDocProps(&excelize.DocProperties{
		Title:   t.Meta.Title,
		Creator: "erpkit",
		Created: t.Meta.GeneratedAt.Format(time.RFC3339),
	})
	return f, nil
}

func (e *Excel) writeData(f *excelize.File, t Table) error {
	styles, err := newStyles(f, t)
	if err != nil {
		return err
	}

	widths := make([]int, len(t.Columns))
	for j, c := range t.Columns {
		cell, _ := excelize.CoordinatesToCellName(j+1, 1)
		if err := f.SetCellValue(DataSheet, cell, c.Header); err != nil {
			return fmt.Errorf("header %s: %w", c.ID, err)
		}
		widths[j] = utf8.RuneCountInString(c.Header)
	}
	last, _ := excelize.CoordinatesToCellName(len(t.Columns), 1)
	if err := f.SetCellStyle(DataSheet, "A1", last, styles.header); err != nil {
		return err
	}

	for i, row := range t.Rows {
		for j, v := range row {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			if v != nil {
				if err := f.SetCellValue(DataSheet, cell, v); err != nil {
					return fmt.Errorf("cell %s: %w", cell, err)
				}
			}
			if n := utf8.RuneCountInString(t.Text(i, j)); n > widths[j] {
				widths[j] = n
			}
		}
	}

	if len(t.Rows) > 0 {
		for j := range t.Columns {
			top, _ := excelize.CoordinatesToCellName(j+1, 2)
			bottom, _ := excelize.CoordinatesToCellName(j+1, len(t.Rows)+1)
			if err := f.SetCellStyle(DataSheet, top, bottom, styles.columns[j]); err != nil {
				return err
			}
		}
	}

	for j, n := range widths {
		name, _ := excelize.ColumnNumberToName(j + 1)
		// Two characters of padding around the longest value.
		if err := f.SetColWidth(DataSheet, name, name, e.layout.clamp(float64(n+2))); err != nil {
			return err
		}
	}

	if err := e.freeze(f); err != nil {
		return err
	}
	if e.layout.AutoFilter {
		if err := f.AutoFilter(DataSheet, "A1:"+last, nil); err != nil {
			return fmt.Errorf("auto filter: %w", err)
		}
	}
	return nil
}

func (e *Excel) freeze(f *excelize.File) error {
	if !e.layout.FreezeHeader && !e.layout.FreezeFirstColumn {
		return nil
	}
	p := &excelize.Panes{Freeze: true, TopLeftCell: "A1", ActivePane: "bottomLeft"}
	if e.layout.FreezeHeader {
		p.YSplit = 1
		p.TopLeftCell = "A2"
	}
	if e.layout.FreezeFirstColumn {
		p.XSplit = 1
		p.TopLeftCell = "B" + strings.TrimPrefix(p.TopLeftCell, "A")
		p.ActivePane = "topRight"
		if e.layout.FreezeHeader {
			p.ActivePane = "bottomRight"
		}
	}
	return f.SetPanes(DataSheet, p)
}

type sheetStyles struct {
	header  int
	columns []int
}

func newStyles(f *excelize.File, t Table) (sheetStyles, error) {
	border := []excelize.Border{
		{Type: "left", Color: borderGray, Style: 1},
		{Type: "top", Color: borderGray, Style: 1},
		{Type: "right", Color: borderGray, Style: 1},
		{Type: "bottom", Color: borderGray, Style: 1},
	}

	header := &excelize.Style{Font: &excelize.Font{Bold: true}}
	if t.Options.ProfessionalFormatting {
		header = &excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
			Border:    border,
		}
	}

	var s sheetStyles
	var err error
	if s.header, err = f.NewStyle(header); err != nil {
		return s, fmt.Errorf("header style: %w", err)
	}

	for _, c := range t.Columns {
		st := &excelize.Style{Font: &excelize.Font{Size: 11}}
		if t.Options.ProfessionalFormatting {
			st.Border = border
			st.Alignment = &excelize.Alignment{Vertical: "center"}
		}
		numFmt := c.Format.NumFmt
		if c.Format.Format == schema.FormatDate {
			numFmt = excelDateFormat(t.Options.DateFormat)
		}
		if numFmt != "" {
			st.CustomNumFmt = &numFmt
		}
		id, err := f.NewStyle(st)
		if err != nil {
			return s, fmt.Errorf("style for %s: %w", c.ID, err)
		}
		s.columns = append(s.columns, id)
	}
	return s, nil
}

func writeMetadata(f *excelize.File, t Table) error {
	if _, err := f.NewSheet(MetadataSheet); err != nil {
		return err
	}
	filters := "Không có"
	if len(t.Meta.Filters) > 0 {
		filters = strings.Join(t.Meta.Filters, "; ")
	}
	search := t.Meta.Search
	if search == "" {
		search = "Không có"
	}
	rows := [][2]any{
		{"Tiêu đề", t.Meta.Title},
		{"Thời gian xuất", t.Meta.GeneratedAt.Format("02/01/2006 15:04")},
		{"Phạm vi", modeLabel(t.Meta.Mode)},
		{"Số bản ghi", t.Meta.RecordCount},
		{"Tổng số bản ghi", t.Meta.TotalCount},
		{"Bộ lọc", filters},
		{"Tìm kiếm", search},
	}
	for i, r := range rows {
		row := []any{r[0], r[1]}
		if err := f.SetSheetRow(MetadataSheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return err
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(MetadataSheet, "A1", fmt.Sprintf("A%d", len(rows)), bold); err != nil {
		return err
	}
	if err := f.SetColWidth(MetadataSheet, "A", "A", 20); err != nil {
		return err
	}
	return f.SetColWidth(MetadataSheet, "B", "B", 60)
}

func modeLabel(m Mode) string {
	switch m {
	case ModeAll:
		return "Tất cả"
	case ModeSelected:
		return "Đã chọn"
	default:
		return "Đã lọc"
	}
}

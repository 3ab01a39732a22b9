package exporter

import (
	"fmt"
	"io"

	"github.com/artpar/erpkit/core/search"
	"github.com/go-pdf/fpdf"
)

const (
	rowHeight    = 7.0
	headerHeight = 8.0
	fontSize     = 9.0
)

// PDF writes paginated table documents.
type PDF struct {
	layout Layout

	// fontPath is a UTF-8 TrueType font. Without one the core Helvetica
	// font is used and Vietnamese marks are removed from the text.
	fontPath string
}

// PDFOption configures a PDF sink.
type PDFOption func(*PDF)

// WithFont embeds the TrueType font at path.
func WithFont(path string) PDFOption {
	return func(p *PDF) { p.fontPath = path }
}

// NewPDF creates a PDF sink.
func NewPDF(layout Layout, opts ...PDFOption) *PDF {
	p := &PDF{layout: layout.withDefaults()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Layout returns the page layout in use.
func (p *PDF) Layout() Layout { return p.layout }

func (*PDF) Format() Format      { return FormatPDF }
func (*PDF) Extension() string   { return "pdf" }
func (*PDF) ContentType() string { return "application/pdf" }

// Write renders t as a PDF document.
func (p *PDF) Write(w io.Writer, t Table) error {
	orientation := "P"
	if p.layout.landscape(len(t.Columns)) {
		orientation = "L"
	}
	doc := fpdf.New(orientation, "mm", "A4", "")
	doc.SetTitle(t.Meta.Title, true)
	doc.SetCreator("erpkit", true)
	doc.AliasNbPages("")

	family, text := "Helvetica", foldText(doc)
	if p.fontPath != "" {
		family, text = "body", func(s string) string { return s }
		doc.AddUTF8Font(family, "", p.fontPath)
		doc.AddUTF8Font(family, "B", p.fontPath)
		if doc.Err() {
			return fmt.Errorf("load font %s: %w", p.fontPath, doc.Error())
		}
	}

	left, _, right, _ := doc.GetMargins()
	pageW, _ := doc.GetPageSize()
	widths := columnWidths(doc, t, family, text, pageW-left-right)

	doc.SetHeaderFunc(func() {
		doc.SetFont(family, "B", 14)
		doc.CellFormat(0, 8, text(t.Meta.Title), "", 1, "L", false, 0, "")
		doc.SetFont(family, "", 8)
		doc.SetTextColor(100, 100, 100)
		generated := fmt.Sprintf("Ngày xuất: %s  |  Số bản ghi: %d",
			t.Meta.GeneratedAt.Format("02/01/2006 15:04"), t.Meta.RecordCount)
		doc.CellFormat(0, 5, text(generated), "", 1, "L", false, 0, "")
		doc.Ln(2)

		doc.SetFont(family, "B", fontSize)
		doc.SetFillColor(68, 114, 196)
		doc.SetTextColor(255, 255, 255)
		doc.SetDrawColor(191, 191, 191)
		for j, c := range t.Columns {
			doc.CellFormat(widths[j], headerHeight, fit(doc, text(c.Header), widths[j]), "1", 0, "C", true, 0, "")
		}
		doc.Ln(-1)
		doc.SetTextColor(0, 0, 0)
	})
	doc.SetFooterFunc(func() {
		doc.SetY(-12)
		doc.SetFont(family, "", 8)
		doc.SetTextColor(120, 120, 120)
		doc.CellFormat(0, 8, text(fmt.Sprintf("Trang %d/{nb}", doc.PageNo())), "", 0, "C", false, 0, "")
	})

	doc.AddPage()
	doc.SetFont(family, "", fontSize)
	for i := range t.Rows {
		fill := i%2 == 1
		if fill {
			doc.SetFillColor(242, 242, 242)
		}
		for j, c := range t.Columns {
			align := "L"
			if c.Format.NumFmt != "" {
				align = "R"
			}
			doc.CellFormat(widths[j], rowHeight, fit(doc, text(t.Text(i, j)), widths[j]), "1", 0, align, fill, 0, "")
		}
		doc.Ln(-1)
	}

	if doc.Err() {
		return doc.Error()
	}
	return doc.Output(w)
}

// columnWidths sizes columns by their longest text and scales them to fill
// the usable page width.
func columnWidths(doc *fpdf.Fpdf, t Table, family string, text func(string) string, usable float64) []float64 {
	doc.SetFont(family, "B", fontSize)
	widths := make([]float64, len(t.Columns))
	for j, c := range t.Columns {
		widths[j] = doc.GetStringWidth(text(c.Header)) + 4
	}
	doc.SetFont(family, "", fontSize)
	for i := range t.Rows {
		for j := range t.Columns {
			if w := doc.GetStringWidth(text(t.Text(i, j))) + 4; w > widths[j] {
				widths[j] = w
			}
		}
	}

	// Keep any one column from eating more than a third of the page.
	total := 0.0
	for j := range widths {
		if widths[j] > usable/3 && len(widths) > 1 {
			widths[j] = usable / 3
		}
		total += widths[j]
	}
	if total == 0 {
		return widths
	}
	scale := usable / total
	for j := range widths {
		widths[j] *= scale
	}
	return widths
}

// fit truncates s with an ellipsis to fit a cell of width w.
func fit(doc *fpdf.Fpdf, s string, w float64) string {
	if doc.GetStringWidth(s) <= w-2 {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && doc.GetStringWidth(string(r)+"...") > w-2 {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

// foldText strips Vietnamese marks and encodes the rest for core fonts.
func foldText(doc *fpdf.Fpdf) func(string) string {
	tr := doc.UnicodeTranslatorFromDescriptor("")
	return func(s string) string { return tr(search.Fold(s)) }
}

package export

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed templates/table_pdf.html
var templateFS embed.FS

var tableTemplate = template.Must(template.New("table_pdf.html").ParseFS(templateFS, "templates/table_pdf.html"))

// PDFExporter renders tables to HTML and hands them to a PDF renderer.
type PDFExporter struct {
	renderer   PDFRenderer
	groupSep   string
	decimalSep string
	now        func() time.Time
}

// NewPDFExporter builds an exporter formatting numbers for tag.
func NewPDFExporter(renderer PDFRenderer, tag language.Tag) *PDFExporter {
	group, dec := separators(message.NewPrinter(tag))
	return &PDFExporter{renderer: renderer, groupSep: group, decimalSep: dec, now: time.Now}
}

// separators reads the locale's digit grouping and decimal marks off the
// printer's own rendering of fixed sample values.
func separators(p *message.Printer) (string, string) {
	grouped := strings.TrimPrefix(p.Sprintf("%d", 1000000), "1")
	group := grouped[:(len(grouped)-6)/2]
	dec := strings.TrimSuffix(strings.TrimPrefix(p.Sprintf("%.1f", 1.5), "1"), "5")
	if dec == "" {
		dec = "."
	}
	return group, dec
}

// Render returns the PDF bytes for t.
func (p *PDFExporter) Render(ctx context.Context, t Table) ([]byte, error) {
	if p == nil || p.renderer == nil {
		return nil, errors.New("export: pdf renderer not configured")
	}
	doc, err := p.HTML(t)
	if err != nil {
		return nil, err
	}
	return p.renderer.RenderHTML(ctx, doc)
}

type pdfCell struct {
	Value string
	Num   bool
}

type pdfView struct {
	Title     string
	Generated string
	Columns   []string
	Rows      [][]pdfCell
}

// HTML builds the printable document for t.
func (p *PDFExporter) HTML(t Table) (string, error) {
	view := pdfView{
		Title:     t.Title,
		Generated: p.now().UTC().Format(time.RFC1123),
		Columns:   t.Columns,
		Rows:      make([][]pdfCell, 0, len(t.Rows)),
	}
	for _, row := range t.Rows {
		cells := make([]pdfCell, 0, len(row))
		for _, cell := range row {
			if d, ok := cell.(decimal.Decimal); ok {
				cells = append(cells, pdfCell{Value: p.amount(d), Num: true})
				continue
			}
			cells = append(cells, pdfCell{Value: FormatCell(cell)})
		}
		view.Rows = append(view.Rows, cells)
	}
	var buf bytes.Buffer
	if err := tableTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render table template: %w", err)
	}
	return buf.String(), nil
}

// amount formats d with two decimals and locale grouping, straight from its
// decimal digits.
func (p *PDFExporter) amount(d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")
	return sign + groupDigits(whole, p.groupSep) + p.decimalSep + frac
}

func groupDigits(digits, sep string) string {
	if len(digits) <= 3 || sep == "" {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head == 0 {
		head = 3
	}
	b.WriteString(digits[:head])
	for i := head; i < len(digits); i += 3 {
		b.WriteString(sep)
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

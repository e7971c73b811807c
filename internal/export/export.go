// Package export renders report tables as CSV, XLSX or PDF downloads.
package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nummix/backoffice/internal/shared"
)

// Table is the row shape every report hands to the exporters.
type Table struct {
	Title   string
	Columns []string
	Rows    [][]any
}

// Format enumerates supported download formats.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ErrUnsupportedFormat indicates an unknown format query value.
var ErrUnsupportedFormat = shared.NewValidationError("export: format must be csv, xlsx or pdf")

// ParseFormat normalises a format name; empty defaults to CSV.
func ParseFormat(v string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(v))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, v)
	}
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/csv; charset=utf-8"
	}
}

// PDFRenderer converts HTML to PDF bytes.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// FormatCell renders a cell value as plain text.
func FormatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case decimal.Decimal:
		return val.StringFixed(2)
	case time.Time:
		return val.UTC().Format(time.DateOnly)
	case bool:
		if val {
			return "yes"
		}
		return "no"
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

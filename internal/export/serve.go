package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/nummix/backoffice/internal/platform/httpx"
)

// Exporter dispatches a table to the writer for the requested format.
type Exporter struct {
	pdf    *PDFExporter
	logger *slog.Logger
}

// NewExporter wires the exporters. pdf may be nil, which disables PDF output.
func NewExporter(pdf *PDFExporter, logger *slog.Logger) *Exporter {
	return &Exporter{pdf: pdf, logger: logger}
}

// Render produces the bytes of t in format.
func (e *Exporter) Render(ctx context.Context, format Format, t Table) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatCSV:
		if err := WriteCSV(&buf, t); err != nil {
			return nil, err
		}
	case FormatXLSX:
		if err := WriteXLSX(&buf, t); err != nil {
			return nil, err
		}
	case FormatPDF:
		return e.pdf.Render(ctx, t)
	default:
		return nil, ErrUnsupportedFormat
	}
	return buf.Bytes(), nil
}

// Serve writes t as an attachment in the format named by the "format" query
// parameter. PDF renderer failures surface as 502.
func (e *Exporter) Serve(w http.ResponseWriter, r *http.Request, filename string, t Table) {
	format, err := ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		httpx.RespondError(w, e.logger, err)
		return
	}
	data, err := e.Render(r.Context(), format, t)
	if err != nil {
		if format == FormatPDF && !errors.Is(err, context.Canceled) {
			if e.logger != nil {
				e.logger.Error("render pdf export", slog.String("file", filename), slog.Any("error", err))
			}
			httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", "pdf rendering unavailable")
			return
		}
		httpx.RespondError(w, e.logger, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename+"."+string(format)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

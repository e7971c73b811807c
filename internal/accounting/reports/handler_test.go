package reports

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nummix/backoffice/internal/export"
	"github.com/nummix/backoffice/internal/shared"
)

func newReportRouter(owner uuid.UUID) http.Handler {
	svc := NewService(&stubSource{txs: scenario()}, newBuilder())
	svc.WithNow(func() time.Time { return now })
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if owner != uuid.Nil {
				req = req.WithContext(shared.ContextWithOwner(req.Context(), owner))
			}
			next.ServeHTTP(w, req)
		})
	})
	NewHandler(nil, svc, export.NewExporter(nil, nil)).MountRoutes(r)
	return r
}

func TestHandlerShowsReport(t *testing.T) {
	router := newReportRouter(uuid.New())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/accounting/reports/dashboard", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"kind":"dashboard","report":{"totalIncome":"1000","totalExpense":"300","netIncome":"700"}}`, rr.Body.String())
}

func TestHandlerErrors(t *testing.T) {
	router := newReportRouter(uuid.New())
	cases := map[string]int{
		"/accounting/reports/cash-flow":              http.StatusNotFound,
		"/accounting/reports/dashboard?from=january": http.StatusBadRequest,
	}
	for path, status := range cases {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, status, rr.Code, path)
	}

	rr := httptest.NewRecorder()
	newReportRouter(uuid.Nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/accounting/reports/dashboard", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandlerExportsCSV(t *testing.T) {
	router := newReportRouter(uuid.New())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/accounting/reports/trial-balance/export?format=csv", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "Category,Account,Debit,Credit,Closing")
	assert.Contains(t, rr.Body.String(), "asset,Cash,1000.00,300.00,700.00")
}

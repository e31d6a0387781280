package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzen/internal/importer"
	"finanzen/internal/services"
	"finanzen/internal/storage"
)

const volksbankHeader = "Bezeichnung Auftragskonto;IBAN Auftragskonto;BIC Auftragskonto;Bankname Auftragskonto;Buchungstag;Valutadatum;Name Zahlungsbeteiligter;IBAN Zahlungsbeteiligter;BIC (SWIFT-Code) Zahlungsbeteiligter;Buchungstext;Verwendungszweck;Betrag;Waehrung;Saldo nach Buchung;Bemerkung;Kategorie;Steuerrelevant;Glaeubiger ID;Mandatsreferenz"

func vbRow(date, counterpart, purpose, amount string) string {
	return strings.Join([]string{
		"Girokonto", "DE02120300000000202051", "GENODEF1XXX", "Volksbank Musterstadt",
		date, date, counterpart, "DE89370400440532013000", "COBADEFFXXX",
		"Lastschrift", purpose, amount, "EUR", "1000,00", "", "", "", "", "",
	}, ";")
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "finanzen.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	srv := NewServer(":0", Services{
		Imports:        services.NewImportService(repo, importer.DefaultRegistry(), nil),
		Categorization: services.NewCategorizationService(repo),
		Splits:         services.NewSplitService(repo),
		Transactions:   services.NewTransactionService(repo),
		Categories:     services.NewCategoryService(repo),
		Profiles:       services.NewProfileService(repo),
		Accounts:       services.NewAccountService(repo),
		Stats:          services.NewStatsService(repo, time.Minute),
	}, repo, Options{MaxUploadBytes: 1 << 20})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func upload(t *testing.T, srv *Server, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/imports?format=volksbank", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}

	rr := do(t, srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "http_requests_total")
	assert.Contains(t, rr.Body.String(), "transactions_imported_total")
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestUploadAndDeduplicate(t *testing.T) {
	srv := newTestServer(t)
	csv := volksbankHeader + "\n" +
		vbRow("15.03.2024", "REWE Markt", "Einkauf", "-42,17") + "\n" +
		vbRow("16.03.2024", "Arbeitgeber GmbH", "Gehalt März", "2.500,00") + "\n"

	rr := upload(t, srv, "umsaetze.csv", csv)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	first := decode[importResult](t, rr)
	assert.Equal(t, 2, first.TransactionsNew)
	assert.Equal(t, 0, first.TransactionsDuplicate)

	rr = upload(t, srv, "umsaetze.csv", csv)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	second := decode[importResult](t, rr)
	assert.Equal(t, 0, second.TransactionsNew)
	assert.Equal(t, 2, second.TransactionsDuplicate)

	rr = do(t, srv, http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode[services.TransactionPage](t, rr)
	assert.Equal(t, 2, page.Total)

	rr = do(t, srv, http.MethodGet, "/api/imports", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]map[string]any](t, rr), 2)
}

func TestUploadLogsImportOnce(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	srv := newTestServer(t)
	csv := volksbankHeader + "\n" + vbRow("15.03.2024", "REWE Markt", "Einkauf", "-42,17") + "\n"
	rr := upload(t, srv, "umsaetze.csv", csv)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	assert.Equal(t, 1, strings.Count(buf.String(), `msg="Import finished"`))
	assert.Contains(t, buf.String(), "component=import")
}

func TestUploadRejectsNonCSV(t *testing.T) {
	srv := newTestServer(t)
	rr := upload(t, srv, "umsaetze.xlsx", "irrelevant")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Nur CSV-Dateien")
}

func TestUploadTooLarge(t *testing.T) {
	srv := newTestServer(t)
	rr := upload(t, srv, "umsaetze.csv", strings.Repeat("x", 2<<20))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestCategoryValidationAndNotFound(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/categories", map[string]any{"name": "  "})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	body := decode[map[string]string](t, rr)
	assert.Equal(t, "name", body["field"])

	rr = do(t, srv, http.MethodPost, "/api/categories", map[string]any{"name": "Lebensmittel"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = do(t, srv, http.MethodPost, "/api/categories", map[string]any{"nmae": "Typo"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	for _, path := range []string{"/api/categories/999", "/api/transactions/999", "/api/rules/999"} {
		rr := do(t, srv, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code, path)
	}

	rr = do(t, srv, http.MethodGet, "/api/transactions/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestInitDefaultCategoriesTwice(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/categories/init-defaults", nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), "Standardkategorien erstellt")

	rr = do(t, srv, http.MethodPost, "/api/categories/init-defaults", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Kategorien existieren bereits")
}

func TestStatsInvalidatedAfterWrite(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/stats/summary", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	before := decode[map[string]any](t, rr)
	assert.EqualValues(t, 0, before["uncategorized_count"])

	today := time.Now().Format("2006-01-02")
	rr = do(t, srv, http.MethodPost, "/api/transactions/manual", map[string]any{
		"booking_date": today,
		"amount":       "-12.50",
		"description":  "Bäcker",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/api/stats/summary", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	after := decode[map[string]any](t, rr)
	assert.EqualValues(t, 1, after["uncategorized_count"])
}

func TestStatsRejectsUnknownPeriod(t *testing.T) {
	srv := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/api/stats/by-category?period=decade", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/stats/by-category?period=custom&start_date=2024-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBulkCategorizeRejectsEmptyList(t *testing.T) {
	srv := newTestServer(t)
	rr := do(t, srv, http.MethodPost, "/api/transactions/bulk-categorize", map[string]any{
		"transaction_ids": []int64{},
		"category_id":     1,
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

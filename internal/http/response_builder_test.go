package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzen/internal/core"
	"finanzen/internal/importer"
	"finanzen/internal/log"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Test", "1").
		JSON(map[string]int{"id": 4}).
		Write(w)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-Test"))
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":4}`, w.Body.String())
}

func TestJSONResponseBuilder_Message(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Message("3 Transaktionen aktualisiert", "updated_count", 3).Write(w)
	assert.JSONEq(t, `{"message":"3 Transaktionen aktualisiert","updated_count":3}`, w.Body.String())
}

func TestJSONResponseBuilder_NoContent(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).JSON(map[string]string{"x": "y"}).Write(w)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestErrorFromService(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"validation", core.Invalid("name", "must not be empty"), http.StatusBadRequest, log.ErrorTypeValidation},
		{"wrapped validation", fmt.Errorf("create: %w", core.Invalid("", "bad")), http.StatusBadRequest, log.ErrorTypeValidation},
		{"not csv", importer.ErrNotCSV, http.StatusBadRequest, log.ErrorTypeValidation},
		{"too large", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge, log.ErrorTypeValidation},
		{"not found", fmt.Errorf("get rule: %w", core.ErrNotFound), http.StatusNotFound, log.ErrorTypeNotFound},
		{"conflict", core.ErrConflict, http.StatusConflict, log.ErrorTypeConflict},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, log.ErrorTypeTimeout},
		{"other", fmt.Errorf("disk I/O error"), http.StatusInternalServerError, log.ErrorTypeDatabase},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, errType := ErrorFromService(tt.err)
			w := httptest.NewRecorder()
			resp.Write(w)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantType, errType)

			var body errorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Detail)
		})
	}
}

func TestErrorFromService_FieldAndInternalDetail(t *testing.T) {
	resp, _ := ErrorFromService(core.Invalid("end_date", "must not be before start_date"))
	w := httptest.NewRecorder()
	resp.Write(w)
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "end_date", body.Field)

	resp, _ = ErrorFromService(fmt.Errorf("constraint failed: secret table detail"))
	w = httptest.NewRecorder()
	resp.Write(w)
	assert.NotContains(t, w.Body.String(), "secret")

	w = httptest.NewRecorder()
	RequestTooLargeError(50).Write(w)
	assert.Equal(t, "50", w.Header().Get("X-Max-Upload-Bytes"))
}

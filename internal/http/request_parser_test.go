package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzen/internal/core"
)

func TestQueryParams(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		check   func(t *testing.T, q *QueryParams)
		wantErr bool
	}{
		{
			name:  "defaults when absent",
			query: "",
			check: func(t *testing.T, q *QueryParams) {
				assert.Equal(t, 50, q.Int("per_page", 50))
				assert.True(t, q.Bool("include_subcategories", true))
				assert.Nil(t, q.Int64Ptr("category_id"))
				assert.Nil(t, q.Date("start_date"))
				assert.Equal(t, "desc", q.OneOf("sort_order", "desc", "asc", "desc"))
			},
		},
		{
			name:  "typed values",
			query: "per_page=20&category_id=7&start_date=2024-03-01&sort_order=ASC&flat=true",
			check: func(t *testing.T, q *QueryParams) {
				assert.Equal(t, 20, q.Int("per_page", 50))
				assert.Equal(t, int64(7), *q.Int64Ptr("category_id"))
				assert.Equal(t, core.NewDate(2024, 3, 1), *q.Date("start_date"))
				assert.Equal(t, "asc", q.OneOf("sort_order", "desc", "asc", "desc"))
				assert.True(t, q.Bool("flat", false))
			},
		},
		{
			name:    "bad integer",
			query:   "page=abc",
			check:   func(t *testing.T, q *QueryParams) { q.Int("page", 1) },
			wantErr: true,
		},
		{
			name:    "german date is rejected",
			query:   "start_date=01.03.2024",
			check:   func(t *testing.T, q *QueryParams) { q.Date("start_date") },
			wantErr: true,
		},
		{
			name:    "value outside allowed set",
			query:   "amount_type=both",
			check:   func(t *testing.T, q *QueryParams) { q.OneOf("amount_type", "all", "all", "income", "expenses") },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/transactions?"+tt.query, nil)
			q := NewQueryParams(req)
			tt.check(t, q)
			if tt.wantErr {
				assert.ErrorIs(t, q.Err(), core.ErrValidation)
			} else {
				assert.NoError(t, q.Err())
			}
		})
	}
}

func TestQueryParams_KeepsFirstError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=x&per_page=y", nil)
	q := NewQueryParams(req)
	q.Int("page", 1)
	q.Int("per_page", 50)

	var verr *core.ValidationError
	require.ErrorAs(t, q.Err(), &verr)
	assert.Equal(t, "page", verr.Field)
}

func TestPathID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"12", 12, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/rules/"+tt.raw, nil)
			req.SetPathValue("id", tt.raw)
			id, err := PathID(req, "id")
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestDecodeJSONFields(t *testing.T) {
	var dst struct {
		Name     *string `json:"name"`
		ParentID *int64  `json:"parent_id"`
	}
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"name":"Miete","parent_id":null}`))
	fields, err := DecodeJSONFields(httptest.NewRecorder(), req, &dst)
	require.NoError(t, err)

	assert.Equal(t, "Miete", *dst.Name)
	assert.Nil(t, dst.ParentID)
	assert.True(t, isNull(fields, "parent_id"))
	assert.False(t, isNull(fields, "name"))
	assert.False(t, isNull(fields, "color"))
}

func TestDecodeJSON_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty body", "", "request body is empty"},
		{"syntax", `{"name":`, "invalid JSON"},
		{"wrong type", `{"priority":"high"}`, `field "priority"`},
		{"unknown field", `{"prio":1}`, "invalid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dst struct {
				Priority int `json:"priority"`
			}
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			err := DecodeJSON(httptest.NewRecorder(), req, &dst)
			require.ErrorIs(t, err, core.ErrValidation)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "REWE Markt", sanitizeInput("  REWE\x00 Markt\x07 "))
	assert.Equal(t, "Zeile 1\nZeile 2", sanitizeInput("Zeile 1\nZeile 2"))
	assert.Nil(t, sanitizePtr(nil))
}

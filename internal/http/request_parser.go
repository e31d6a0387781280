// Package http serves the JSON API.
//
// This file implements the helpers that read path values, query strings and
// JSON bodies into typed values, reporting bad input as validation errors.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"finanzen/internal/core"
)

// maxJSONBody caps request bodies that are not file uploads.
const maxJSONBody = 1 << 20

// PathID parses the named path wildcard as a positive id.
func PathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.Invalid(name, "invalid id %q", raw)
	}
	return id, nil
}

// QueryParams reads typed values from a query string. The first parse error
// is kept and reported by Err.
type QueryParams struct {
	values url.Values
	err    error
}

func NewQueryParams(r *http.Request) *QueryParams {
	return &QueryParams{values: r.URL.Query()}
}

func (q *QueryParams) fail(err error) {
	if q.err == nil {
		q.err = err
	}
}

// String returns the trimmed, sanitized value of key.
func (q *QueryParams) String(key string) string {
	return sanitizeInput(q.values.Get(key))
}

// Int returns key as an int, or def when absent.
func (q *QueryParams) Int(key string, def int) int {
	v := q.String(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		q.fail(core.Invalid(key, "must be an integer"))
		return def
	}
	return n
}

// Int64Ptr returns key as an id, or nil when absent.
func (q *QueryParams) Int64Ptr(key string) *int64 {
	v := q.String(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		q.fail(core.Invalid(key, "must be an integer"))
		return nil
	}
	return &n
}

// Bool returns key as a bool, or def when absent.
func (q *QueryParams) Bool(key string, def bool) bool {
	v := q.String(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		q.fail(core.Invalid(key, "must be true or false"))
		return def
	}
	return b
}

// Date returns key as a YYYY-MM-DD date, or nil when absent.
func (q *QueryParams) Date(key string) *core.Date {
	v := q.String(key)
	if v == "" {
		return nil
	}
	d, err := core.ParseISODate(v)
	if err != nil {
		q.fail(core.Invalid(key, "must be a date in YYYY-MM-DD format"))
		return nil
	}
	return &d
}

// OneOf returns key when it is one of allowed, def when absent.
func (q *QueryParams) OneOf(key, def string, allowed ...string) string {
	v := strings.ToLower(q.String(key))
	if v == "" {
		return def
	}
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	q.fail(core.Invalid(key, "must be one of %s", strings.Join(allowed, ", ")))
	return def
}

func (q *QueryParams) Err() error {
	return q.err
}

// DecodeJSON reads a JSON body into dst. Unknown fields are rejected so
// typos in field names do not silently become no-ops.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return core.Invalid("", "invalid JSON: %s", describeJSONError(err))
	}
	return nil
}

// DecodeJSONFields is DecodeJSON that also returns which top-level keys were
// present, so handlers can tell an explicit null from an absent field.
func DecodeJSONFields(w http.ResponseWriter, r *http.Request, dst any) (map[string]json.RawMessage, error) {
	body, err := readBody(w, r)
	if err != nil {
		return nil, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, core.Invalid("", "invalid JSON: %s", describeJSONError(err))
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return nil, core.Invalid("", "invalid JSON: %s", describeJSONError(err))
	}
	return raw, nil
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, err
		}
		return nil, core.Invalid("", "could not read request body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, core.Invalid("", "request body is empty")
	}
	return body, nil
}

// isNull reports whether key was sent as an explicit JSON null.
func isNull(fields map[string]json.RawMessage, key string) bool {
	v, ok := fields[key]
	return ok && bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func describeJSONError(err error) string {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &typeErr):
		return fmt.Sprintf("field %q must be %s", typeErr.Field, typeErr.Type)
	case errors.As(err, &syntaxErr):
		return fmt.Sprintf("syntax error at offset %d", syntaxErr.Offset)
	default:
		return err.Error()
	}
}

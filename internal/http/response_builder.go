// Package http serves the JSON API.
//
// This file implements the builder used by every handler to write JSON
// responses and maps service errors to status codes.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"finanzen/internal/core"
	"finanzen/internal/importer"
	"finanzen/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	payload    any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value encoded as the response body.
func (b *JSONResponseBuilder) JSON(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Message sets a {"message": ...} body, optionally with extra fields.
func (b *JSONResponseBuilder) Message(msg string, extra ...any) *JSONResponseBuilder {
	body := map[string]any{"message": msg}
	for i := 0; i+1 < len(extra); i += 2 {
		if key, ok := extra[i].(string); ok {
			body[key] = extra[i+1]
		}
	}
	b.payload = body
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.payload == nil || b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.payload)
}

// errorBody is the error shape of every non-2xx response.
type errorBody struct {
	Detail string `json:"detail"`
	Field  string `json:"field,omitempty"`
}

// ErrorResponse creates a {"detail": message} response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).JSON(errorBody{Detail: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func ConflictError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusConflict, message)
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "Interner Fehler")
}

func RequestTooLargeError(limit int64) *JSONResponseBuilder {
	return ErrorResponse(http.StatusRequestEntityTooLarge, "Datei ist zu groß").
		Header("X-Max-Upload-Bytes", formatInt(limit))
}

// ErrorFromService maps an error returned by a service to a response and
// the error category used in logs.
func ErrorFromService(err error) (*JSONResponseBuilder, string) {
	var verr *core.ValidationError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &verr):
		return NewJSONResponse().Status(http.StatusBadRequest).
			JSON(errorBody{Detail: verr.Error(), Field: verr.Field}), log.ErrorTypeValidation
	case errors.Is(err, core.ErrValidation),
		errors.Is(err, importer.ErrNotCSV),
		errors.Is(err, importer.ErrUndecodable):
		return BadRequestError(err.Error()), log.ErrorTypeValidation
	case errors.As(err, &maxErr):
		return RequestTooLargeError(maxErr.Limit), log.ErrorTypeValidation
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError(err.Error()), log.ErrorTypeNotFound
	case errors.Is(err, core.ErrConflict):
		return ConflictError(err.Error()), log.ErrorTypeConflict
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorResponse(http.StatusGatewayTimeout, "Zeitüberschreitung"), log.ErrorTypeTimeout
	default:
		return InternalServerError(), log.ErrorTypeDatabase
	}
}

// Package http exposes a budget session over a JSON API.
//
// This file implements the Builder Pattern for JSON responses so every
// handler writes status, headers and body the same way.

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ResponseBuilder provides a fluent API for building JSON responses.
type ResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value encoded as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response. A nil body writes only the status.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Check any    `json:"check,omitempty"`
}

// ErrorResponse creates a standard {"error": message} response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(errorBody{Error: message})
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnprocessableEntityError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func UnauthorizedError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message).Header("WWW-Authenticate", "Bearer")
}

// NoContent creates an empty 204 response.
func NoContent() *ResponseBuilder {
	return NewResponse().Status(http.StatusNoContent)
}

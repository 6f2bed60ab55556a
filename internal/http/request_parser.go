// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"finanzas/internal/core"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

// ParseMonthKey reads the {key} route parameter as a YYYY-MM month key.
func ParseMonthKey(r *http.Request) (core.MonthKey, error) {
	return core.ParseMonthKey(strings.TrimSpace(chi.URLParam(r, "key")))
}

// DecodeJSON reads a single JSON value from the body into v. Unknown fields
// and trailing data are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected data after JSON body", errBadRequest)
	}
	return nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

const maxAccountLength = 128

// validAccount reports whether key can address a stored document.
func validAccount(key string) bool {
	if key == "" || len(key) > maxAccountLength || key == "." || key == ".." {
		return false
	}
	return !strings.ContainsAny(key, "/\\\t\r\n")
}

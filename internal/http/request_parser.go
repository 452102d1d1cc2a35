// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating request data.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
)

const maxBodyBytes = 1 << 20

// DecodeJSON reads a single JSON object from the body into dst. It returns an
// error response when the body is malformed or too large.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) *JSONResponseBuilder {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return ErrorResponse(http.StatusRequestEntityTooLarge, "request body too large")
		case errors.Is(err, io.EOF):
			return BadRequestError("request body is empty")
		default:
			return BadRequestError("invalid JSON body")
		}
	}
	if dec.More() {
		return BadRequestError("invalid JSON body")
	}
	return nil
}

// ParsePage reads ?page=N, defaulting to 1 on absent or malformed values.
func ParsePage(r *http.Request) int {
	v := strings.TrimSpace(r.URL.Query().Get("page"))
	if v == "" {
		return 1
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 1
	}
	return n
}

// ParseID reads a positive integer path value.
func ParseID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// sanitizeInput removes control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

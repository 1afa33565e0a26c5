// Package handlers provides HTTP request handlers for the drug catalog API
// endpoints. It includes response formatting, request body decoding, ETag
// support and the mapping from catalog errors to HTTP status codes.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/giygas/pharmdb/catalog"
	"github.com/giygas/pharmdb/logging"
	"github.com/giygas/pharmdb/validation"
)

// RespondWithJSON writes a JSON response
func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		logging.Warn("Failed to write response", "error", err)
	}
}

// RespondWithError writes a JSON error response
func RespondWithError(w http.ResponseWriter, code int, message string) {
	errorResponse := map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	RespondWithJSON(w, code, errorResponse)
}

// RespondWithCatalogError maps err to a status code and writes it.
// Anything that is not a known client error is logged and reported as a 500
// without leaking its text.
func RespondWithCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusForError(err)
	if code == http.StatusInternalServerError {
		logging.Error("Request failed", "path", r.URL.Path, "error", err)
		RespondWithError(w, code, "Internal server error")
		return
	}
	RespondWithError(w, code, err.Error())
}

// StatusForError returns the HTTP status for errors surfaced by the
// validator and the catalog
func StatusForError(err error) int {
	var maxBytes *http.MaxBytesError

	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, validation.ErrInvalidInput),
		errors.Is(err, catalog.ErrInvalidIndication),
		errors.Is(err, catalog.ErrInvalidSideEffect):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrReferentialIntegrity):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSONBody decodes exactly one JSON value from the request body into
// dst. Unknown fields and trailing data are rejected.
func DecodeJSONBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", validation.ErrInvalidInput)
		}
		return fmt.Errorf("%w: malformed JSON body: %v", validation.ErrInvalidInput, err)
	}

	if decoder.More() {
		return fmt.Errorf("%w: request body must contain a single JSON object", validation.ErrInvalidInput)
	}
	return nil
}

// GenerateETag returns a strong ETag for data
func GenerateETag(data []byte) string {
	return `"` + fmt.Sprintf("%016x", xxhash.Sum64(data)) + `"`
}

// CheckETag reports whether the request's If-None-Match matches etag
func CheckETag(r *http.Request, etag string) bool {
	return r.Header.Get("If-None-Match") == etag
}

// RespondWithCacheableJSON writes payload with an ETag, answering 304 when
// the client already holds the same representation
func RespondWithCacheableJSON(w http.ResponseWriter, r *http.Request, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	etag := GenerateETag(data)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")

	if CheckETag(r, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logging.Warn("Failed to write response", "error", err)
	}
}

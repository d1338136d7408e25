// Package errors defines the sentinel errors shared by the search, fusion
// and evaluation layers, plus an AppError wrapper that carries an HTTP
// status for the API boundary.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrEmptyCorpus is fatal at build time: BM25 cannot rank against zero
	// documents.
	ErrEmptyCorpus = errors.New("empty corpus")
	// ErrEmptyQuery marks a blank query. The ranking path treats it as an
	// empty result, only the HTTP layer turns it into a 400.
	ErrEmptyQuery = errors.New("empty query")
	// ErrRetrieverUnavailable means the semantic channel could not be used.
	// Fusion recovers by answering lexical-only.
	ErrRetrieverUnavailable = errors.New("semantic retriever unavailable")
	// ErrMalformedLogRecord is returned per line by the query-log reader.
	ErrMalformedLogRecord = errors.New("malformed query log record")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInternal           = errors.New("internal error")
	ErrTimeout            = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Invalid is shorthand for a 400 wrapping ErrInvalidInput.
func Invalid(format string, args ...any) *AppError {
	return Newf(ErrInvalidInput, http.StatusBadRequest, format, args...)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrEmptyQuery), errors.Is(err, ErrMalformedLogRecord):
		return http.StatusBadRequest
	case errors.Is(err, ErrEmptyCorpus):
		return http.StatusConflict
	case errors.Is(err, ErrRetrieverUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

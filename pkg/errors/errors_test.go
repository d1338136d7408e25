package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error wins", New(ErrInternal, http.StatusTeapot, "brew"), http.StatusTeapot},
		{"invalid input", fmt.Errorf("alpha: %w", ErrInvalidInput), http.StatusBadRequest},
		{"empty query", ErrEmptyQuery, http.StatusBadRequest},
		{"empty corpus", fmt.Errorf("fit: %w", ErrEmptyCorpus), http.StatusConflict},
		{"retriever down", ErrRetrieverUnavailable, http.StatusServiceUnavailable},
		{"timeout", ErrTimeout, http.StatusServiceUnavailable},
		{"not found", ErrDocumentNotFound, http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := Invalid("alpha %.2f out of range", 1.5)

	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, "invalid input: alpha 1.50 out of range", err.Error())
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
}

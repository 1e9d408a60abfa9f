package httpx_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dfarr/autoreviewer/internal/adapter/httpx"
)

func TestErrorString(t *testing.T) {
	err := httpx.NewModelNotFoundError("ollama", "model 'missing' not found")

	assert.Equal(t, "ollama: model not found: model 'missing' not found (status: 404)", err.Error())
}

func TestErrorIsMatchesOnType(t *testing.T) {
	err := fmt.Errorf("generate: %w", httpx.NewTimeoutError("ollama", "deadline exceeded"))

	assert.ErrorIs(t, err, &httpx.Error{Type: httpx.ErrTypeTimeout})
	assert.NotErrorIs(t, err, &httpx.Error{Type: httpx.ErrTypeAuthentication})
}

func TestIsConnectivity(t *testing.T) {
	tests := []struct {
		name string
		err  *httpx.Error
		want bool
	}{
		{"timeout", httpx.NewTimeoutError("ollama", "x"), true},
		{"service unavailable", httpx.NewServiceUnavailableError("ollama", "x"), true},
		{"authentication", httpx.NewAuthenticationError("tracker", "x"), false},
		{"invalid request", httpx.NewInvalidRequestError("ollama", "x"), false},
		{"malformed response", httpx.NewMalformedResponseError("tracker", "x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.IsConnectivity())
		})
	}
}

func TestErrorAsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("probe: %w", httpx.NewServiceUnavailableError("ollama", "connection refused"))

	var herr *httpx.Error
	assert.True(t, errors.As(wrapped, &herr))
	assert.True(t, herr.IsConnectivity())
}

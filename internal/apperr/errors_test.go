package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsUnwrapToSentinels(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	cases := []struct {
		err      error
		sentinel error
		status   int
	}{
		{InvalidRequest("no items"), ErrInvalidRequest, http.StatusBadRequest},
		{NotFound("artworks", "a", "b"), ErrNotFound, http.StatusNotFound},
		{Conflict("sold"), ErrConflict, http.StatusConflict},
		{Unauthorized("bad password"), ErrUnauthorized, http.StatusUnauthorized},
		{Upstream("catalog unavailable", cause), ErrUpstream, http.StatusBadGateway},
		{SignatureInvalid(cause), ErrSignatureInvalid, http.StatusBadRequest},
	}

	for _, tc := range cases {
		wrapped := fmt.Errorf("handler: %w", tc.err)
		assert.ErrorIs(t, wrapped, tc.sentinel)
		assert.Equal(t, tc.status, HTTPStatus(wrapped))
	}
}

func TestUpstreamKeepsCause(t *testing.T) {
	cause := errors.New("timeout")
	err := Upstream("payment gateway unavailable", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, err.Cause())
	assert.Equal(t, "payment gateway unavailable", err.Message)
	assert.Contains(t, err.Error(), "timeout")
}

func TestNotFoundListsIDs(t *testing.T) {
	err := NotFound("artworks", "x", "y")
	assert.Equal(t, "unknown artworks: x, y", err.Message)
}

func TestHTTPStatusPlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(fmt.Errorf("x: %w", ErrConflict)))
}

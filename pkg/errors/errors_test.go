package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))

	err := Wrap(ErrRateLimitExceeded, "robinhood quote")
	require.Error(t, err)
	assert.Equal(t, "robinhood quote: rate limit exceeded", err.Error())
	assert.True(t, Is(err, ErrRateLimitExceeded))
}

func TestWrapf(t *testing.T) {
	assert.Nil(t, Wrapf(nil, "broker %s", "schwab"))

	err := Wrapf(ErrInvalidInput, "quantity %q", "abc")
	require.Error(t, err)
	assert.Equal(t, `quantity "abc": invalid input`, err.Error())
	assert.True(t, Is(err, ErrInvalidInput))
}

func TestDomainError(t *testing.T) {
	inner := New("connection refused")
	err := NewDomainError("AUTH_FAILED", "login rejected", inner)

	assert.Equal(t, "AUTH_FAILED: login rejected: connection refused", err.Error())
	assert.True(t, Is(err, inner))

	var domainErr *DomainError
	require.True(t, As(Wrap(err, "outer"), &domainErr))
	assert.Equal(t, "AUTH_FAILED", domainErr.Code)

	bare := NewDomainError("NOT_FOUND", "no such order", nil)
	assert.Equal(t, "NOT_FOUND: no such order", bare.Error())
}

func TestMultiError(t *testing.T) {
	var m MultiError
	assert.False(t, m.HasErrors())
	assert.Nil(t, m.ToError())
	assert.Equal(t, "no errors", m.Error())

	m.Add(nil)
	assert.False(t, m.HasErrors())

	first := New("revoke failed")
	m.Add(first)
	assert.True(t, m.HasErrors())
	assert.Equal(t, first.Error(), m.Error())

	m.Add(New("cache clear failed"))
	assert.Contains(t, m.Error(), "multiple errors (2)")
	require.Error(t, m.ToError())
}

package trading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openstocks/pkg/errors"
)

func TestParseQuantity(t *testing.T) {
	qty, err := parseQuantity(float64(2.5))
	require.NoError(t, err)
	assert.Equal(t, "2.5", qty.String())

	qty, err = parseQuantity(3)
	require.NoError(t, err)
	assert.Equal(t, "3", qty.String())

	qty, err = parseQuantity("1.25")
	require.NoError(t, err)
	assert.Equal(t, "1.25", qty.String())
}

func TestParseQuantity_Invalid(t *testing.T) {
	for _, raw := range []interface{}{"abc", nil, float64(0), "-1"} {
		_, err := parseQuantity(raw)
		require.Error(t, err, "raw %v", raw)
		assert.True(t, errors.Is(err, errors.ErrInvalidInput), "raw %v", raw)
	}
}

package pkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("mylittlesecret")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.True(t, CheckPasswordHash("mylittlesecret", hash))
	assert.False(t, CheckPasswordHash("mybigsecret", hash))
	assert.False(t, CheckPasswordHash("", hash))
}

package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	t.Parallel()

	h, err := Hash("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, Verify("correct horse battery staple", h))
	assert.False(t, Verify("wrong password", h))
}

func TestHash_SelfSalting(t *testing.T) {
	t.Parallel()

	h1, err := Hash("secret")
	require.NoError(t, err)

	h2, err := Hash("secret")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
	assert.True(t, Verify("secret", h1))
	assert.True(t, Verify("secret", h2))
}

func TestVerify_MalformedHash(t *testing.T) {
	t.Parallel()

	assert.False(t, Verify("secret", ""))
	assert.False(t, Verify("secret", "not-a-bcrypt-hash"))
}

package secretcrypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return []byte("0123456789abcdef0123456789abcdef")[:32]
}

func TestSealOpenRoundTrip(t *testing.T) {
	box, err := New(testKey())
	require.NoError(t, err)

	blob, err := box.Seal([]byte("hunter2"))
	require.NoError(t, err)
	assert.NotEmpty(t, blob)

	plain, err := box.Open(blob)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", string(plain))
}

func TestOpenRejectsWrongKey(t *testing.T) {
	box, err := New(testKey())
	require.NoError(t, err)
	blob, err := box.Seal([]byte("hunter2"))
	require.NoError(t, err)

	otherKey := []byte("fedcba9876543210fedcba9876543210")[:32]
	other, err := New(otherKey)
	require.NoError(t, err)

	_, err = other.Open(blob)
	assert.Error(t, err)
}

func TestOpenRejectsMalformedBlob(t *testing.T) {
	box, err := New(testKey())
	require.NoError(t, err)

	_, err = box.Open("not-base64!!")
	assert.Error(t, err)
}

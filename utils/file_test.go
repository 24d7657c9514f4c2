package utils

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsJPEG(t *testing.T) {
	assert.True(t, IsJPEG([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}))
	assert.False(t, IsJPEG([]byte("\x89PNG\r\n")))
	assert.False(t, IsJPEG([]byte{0xFF, 0xD8}))
	assert.False(t, IsJPEG(nil))
}

func TestRandomFileToken(t *testing.T) {
	a, err := RandomFileToken()
	require.NoError(t, err)
	assert.Len(t, a, 64)

	b, err := RandomFileToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestAvatarRoundTrip(t *testing.T) {
	root := t.TempDir()
	data := []byte{0xFF, 0xD8, 0xFF, 0xE0}

	require.NoError(t, SaveAvatar(root, "tok", data))
	got, err := os.ReadFile(AvatarPath(root, "tok"))
	require.NoError(t, err)
	assert.Equal(t, data, got)

	require.NoError(t, RemoveAvatar(root, "tok"))
	_, err = os.Stat(AvatarPath(root, "tok"))
	assert.True(t, os.IsNotExist(err))

	// Removing twice is not an error.
	require.NoError(t, RemoveAvatar(root, "tok"))
}

package sha256

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasherDefaultSize(t *testing.T) {
	t.Parallel()

	got, err := New().Hash([]byte("hello world"))
	require.NoError(t, err)
	require.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfa", got)

	again, err := New().Hash([]byte("hello world"))
	require.NoError(t, err)
	require.Equal(t, got, again)
}

func TestHasherFullDigest(t *testing.T) {
	t.Parallel()

	h, err := NewSized(32)
	require.NoError(t, err)
	got, err := h.Hash([]byte("hello world"))
	require.NoError(t, err)
	require.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", got)
}

func TestNewSizedRejectsOutOfRange(t *testing.T) {
	t.Parallel()

	_, err := NewSized(0)
	require.Error(t, err)
	_, err = NewSized(33)
	require.Error(t, err)
}

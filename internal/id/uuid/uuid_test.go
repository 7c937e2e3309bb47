package uuid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeneratorNewID(t *testing.T) {
	t.Parallel()

	gen := NewUUIDGenerator()
	id1, err := gen.NewID()
	require.NoError(t, err)
	id2, err := gen.NewID()
	require.NoError(t, err)

	require.NotEqual(t, id1, id2)
	require.True(t, strings.HasPrefix(id1, JobPrefix))
	require.True(t, gen.Valid(id1))
	require.True(t, gen.Valid(id2))
	// v7 ids sort by creation time.
	require.LessOrEqual(t, id1, id2)
}

func TestGeneratorValidRejects(t *testing.T) {
	t.Parallel()

	gen := NewUUIDGenerator()
	require.False(t, gen.Valid("job-1"))
	require.False(t, gen.Valid(JobPrefix+"not-a-uuid"))
	require.False(t, gen.Valid(JobPrefix+"6ba7b810-9dad-11d1-80b4-00c04fd430c8"))
}

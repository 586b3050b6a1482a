package cascade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowingIndex_Ordered(t *testing.T) {
	ix := NewFollowingIndex()
	ix.Add("Carol", "Alice", "BOB")
	ix.Add("carol", "dave")

	assert.Equal(t, 1, ix.Len())
	assert.Equal(t, users("dave", "bob", "alice"), ix.Ordered("carol"))
	assert.Equal(t, users("dave", "bob", "alice"), ix.Ordered("CAROL"))
}

func TestFollowingIndex_MissingUser(t *testing.T) {
	ix := NewFollowingIndex()
	got := ix.Ordered("nobody")
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFollowingIndex_OrderedReturnsCopy(t *testing.T) {
	ix := NewFollowingIndex()
	ix.Add("a", "x", "y")
	got := ix.Ordered("a")
	got[0] = "mutated"
	assert.Equal(t, users("y", "x"), ix.Ordered("a"))
}

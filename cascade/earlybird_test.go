package cascade

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEarlybirds(t *testing.T) {
	eb := NewEarlybirds("r", users("u0", "u1", "u2"))
	assert.Equal(t, 3, eb.Len())
	assert.Equal(t, users("r", "u0"), eb.At(0))
	assert.Equal(t, users("r", "u0", "u1"), eb.At(1))
	assert.Equal(t, users("r", "u0", "u1", "u2"), eb.At(2))
}

func TestEarlybirds_AppendDoesNotLeak(t *testing.T) {
	eb := NewEarlybirds("r", users("u0", "u1"))
	view := eb.At(0)
	_ = append(view, "intruder")
	assert.Equal(t, users("r", "u0", "u1"), eb.At(1))
}

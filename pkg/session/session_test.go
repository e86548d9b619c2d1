package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	first := New()
	second := New()

	_, err := uuid.Parse(first.ID())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID())
	assert.Equal(t, first.ID(), first.String())
}

func TestFromID(t *testing.T) {
	assert.Equal(t, "run-42", FromID("run-42").ID())

	generated := FromID("")
	_, err := uuid.Parse(generated.ID())
	assert.NoError(t, err)
}

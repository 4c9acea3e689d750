package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHash(t *testing.T) {
	// sha256("abc")
	assert.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		ContentHash([]byte("abc")))
	assert.NotEqual(t, ContentHash([]byte("abc")), ContentHash([]byte("abd")))
}

func TestParseRecordKind(t *testing.T) {
	k, err := ParseRecordKind("Message")
	require.NoError(t, err)
	assert.Equal(t, RecordKindMessage, k)

	_, err = ParseRecordKind("blob")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAssociatedData(t *testing.T) {
	assert.Equal(t, []byte("google|msg-1"), AssociatedData("google", "msg-1"))
	assert.Equal(t, []byte("solo"), AssociatedData("solo"))
	assert.Empty(t, AssociatedData())
}

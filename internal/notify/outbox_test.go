package notify

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOutbox(t *testing.T) *Outbox {
	t.Helper()
	box, err := OpenOutbox(filepath.Join(t.TempDir(), "outbox.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = box.Close() })
	return box
}

// TestOutboxEnqueuePendingAck verifies queued envelopes come back
// oldest first and ack removes exactly one.
func TestOutboxEnqueuePendingAck(t *testing.T) {
	box := newTestOutbox(t)

	require.NoError(t, box.Enqueue("a@example.com", "first", "body1"))
	require.NoError(t, box.Enqueue("b@example.com", "second", "body2"))

	envs, err := box.Pending(10)
	require.NoError(t, err)
	require.Len(t, envs, 2)
	assert.Equal(t, "first", envs[0].Subject)
	assert.Equal(t, "second", envs[1].Subject)
	assert.Zero(t, envs[0].Attempts)

	require.NoError(t, box.Ack(envs[0].ID))

	size, err := box.Size()
	require.NoError(t, err)
	assert.Equal(t, 1, size)

	envs, err = box.Pending(10)
	require.NoError(t, err)
	require.Len(t, envs, 1)
	assert.Equal(t, "second", envs[0].Subject)
}

// TestOutboxPendingHonorsLimit verifies the read batch never exceeds
// the requested limit.
func TestOutboxPendingHonorsLimit(t *testing.T) {
	box := newTestOutbox(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, box.Enqueue("a@example.com", "subject", "body"))
	}

	envs, err := box.Pending(3)
	require.NoError(t, err)
	assert.Len(t, envs, 3)
}

// TestOutboxNackDropsAfterAttempts verifies an envelope survives the
// first failures and is dropped once the attempts are used up.
func TestOutboxNackDropsAfterAttempts(t *testing.T) {
	box := newTestOutbox(t)

	require.NoError(t, box.Enqueue("a@example.com", "subject", "body"))
	envs, err := box.Pending(1)
	require.NoError(t, err)
	require.Len(t, envs, 1)
	id := envs[0].ID

	for i := 1; i < maxSendAttempts; i++ {
		dropped, err := box.Nack(id)
		require.NoError(t, err)
		assert.False(t, dropped, "attempt %d must keep the envelope", i)
	}

	envs, err = box.Pending(1)
	require.NoError(t, err)
	require.Len(t, envs, 1)
	assert.Equal(t, maxSendAttempts-1, envs[0].Attempts)

	dropped, err := box.Nack(id)
	require.NoError(t, err)
	assert.True(t, dropped)

	size, err := box.Size()
	require.NoError(t, err)
	assert.Zero(t, size)
}

// TestOutboxNackUnknownID verifies nacking a missing envelope is a
// harmless no-op.
func TestOutboxNackUnknownID(t *testing.T) {
	box := newTestOutbox(t)

	dropped, err := box.Nack(123456)
	require.NoError(t, err)
	assert.False(t, dropped)
}

// TestOutboxSurvivesReopen verifies queued mail is still there after
// closing and reopening the file.
func TestOutboxSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outbox.db")
	box, err := OpenOutbox(path)
	require.NoError(t, err)

	require.NoError(t, box.Enqueue("a@example.com", "kept", "body"))
	require.NoError(t, box.Close())

	box, err = OpenOutbox(path)
	require.NoError(t, err)
	defer box.Close()

	envs, err := box.Pending(10)
	require.NoError(t, err)
	require.Len(t, envs, 1)
	assert.Equal(t, "kept", envs[0].Subject)
	assert.Equal(t, "a@example.com", envs[0].To)
}

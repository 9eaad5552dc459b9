package lock

import (
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
)

func TestFileLock_AcquireRelease(t *testing.T) {
	dir := t.TempDir()
	first := New(dir)
	second := New(dir)

	require.NoError(t, first.TryAcquire())
	data, err := os.ReadFile(first.Path())
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))

	assert.ErrorIs(t, second.TryAcquire(), domain.ErrSyncLocked)

	// Releasing a lock this instance does not hold leaves the file alone.
	require.NoError(t, second.Release())
	_, err = os.Stat(first.Path())
	require.NoError(t, err)

	require.NoError(t, first.Release())
	require.NoError(t, second.TryAcquire())
	require.NoError(t, second.Release())
}

func TestFileLock_Break(t *testing.T) {
	dir := t.TempDir()
	stale := New(dir)
	require.NoError(t, os.WriteFile(stale.Path(), []byte("99999"), 0600))

	l := New(dir)
	assert.ErrorIs(t, l.TryAcquire(), domain.ErrSyncLocked)
	require.NoError(t, l.Break())
	require.NoError(t, l.TryAcquire())
	require.NoError(t, l.Release())

	// Breaking with no lock present is fine.
	require.NoError(t, l.Break())
}

package lexicon

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lexerrors "github.com/Aman-CERP/lexsearch/internal/errors"
)

func TestImportLock_ExcludesSecondHolder(t *testing.T) {
	// Given: one holder of the lock
	dbPath := filepath.Join(t.TempDir(), "sub", "lexicon.db")
	first := NewImportLock(dbPath)
	require.NoError(t, first.TryLock())
	defer func() { _ = first.Unlock() }()

	// When: a second lock on the same database tries once
	second := NewImportLock(dbPath)
	err := second.TryLock()

	// Then: it is told to retry
	require.Error(t, err)
	assert.True(t, lexerrors.IsRetryable(err))
	assert.False(t, second.IsLocked())
	assert.Equal(t, dbPath+".lock", second.Path())
}

func TestImportLock_AcquireWaitsForRelease(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "lexicon.db")
	first := NewImportLock(dbPath)
	require.NoError(t, first.TryLock())

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = first.Unlock()
	}()

	second := NewImportLock(dbPath)
	require.NoError(t, second.Acquire(context.Background()))
	assert.True(t, second.IsLocked())
	require.NoError(t, second.Unlock())
	require.NoError(t, second.Unlock())
}

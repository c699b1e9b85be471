package storage

import (
	"context"
	"testing"

	"github.com/annel0/voxel-level/internal/world/block"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := OpenArchive(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestArchivePutGet(t *testing.T) {
	ctx := context.Background()
	a := openTestArchive(t)
	id := uuid.New()
	payload := []byte("level_size: {x: 1, y: 1, z: 1}\n")

	entry, err := a.Put(ctx, id, payload)
	require.NoError(t, err)
	assert.Equal(t, id, entry.ID)
	assert.Equal(t, len(payload), entry.Size)

	got, err := a.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	_, err = a.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestArchiveListDelete(t *testing.T) {
	ctx := context.Background()
	a := openTestArchive(t)

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		_, err := a.Put(ctx, id, []byte(id.String()))
		require.NoError(t, err)
	}

	entries, err := a.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	require.NoError(t, a.Delete(ctx, ids[1]))
	assert.ErrorIs(t, a.Delete(ctx, ids[1]), ErrNotFound)

	entries, err = a.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.NotEqual(t, ids[1], e.ID)
	}
	_, err = a.Get(ctx, ids[1])
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestArchiveLevelRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := openTestArchive(t)
	lvl := newTestLevel(t)

	entry, err := ArchiveLevel(ctx, a, lvl)
	require.NoError(t, err)
	assert.Equal(t, lvl.ID(), entry.ID)
	assert.Less(t, entry.Bytes, entry.Size)

	got, err := RestoreLevel[block.BlockData](ctx, a, lvl.ID(), block.NewRegistry())
	require.NoError(t, err)
	assertSameLevel(t, lvl, got)
}

func TestArchiveClosed(t *testing.T) {
	a, err := OpenArchive("")
	require.NoError(t, err)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close(), "повторное закрытие безопасно")

	_, err = a.Put(context.Background(), uuid.New(), []byte("x"))
	assert.ErrorIs(t, err, ErrArchiveClosed)
}

func TestArchiveCancelledContext(t *testing.T) {
	a := openTestArchive(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

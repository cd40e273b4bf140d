package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/annel0/factory-world/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestIndex(t *testing.T) *SaveIndex {
	t.Helper()

	idx, err := OpenSaveIndex(filepath.Join(t.TempDir(), "index", "saves.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestSaveIndexRecordAndList(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= 3; i++ {
		id, err := idx.Record(ctx, SaveRecord{
			WorldID:  "world-a",
			Tick:     uint64(i * 100),
			Chunks:   i,
			Bytes:    i * 1024,
			Duration: time.Duration(i) * time.Millisecond,
			SavedAt:  base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(i), id)
	}
	_, err := idx.Record(ctx, SaveRecord{WorldID: "world-b", Tick: 5})
	require.NoError(t, err)

	list, err := idx.List(ctx, "world-a", 10)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, uint64(300), list[0].Tick, "новые сохранения первыми")
	assert.Equal(t, 3*1024, list[0].Bytes)
	assert.Equal(t, 3*time.Millisecond, list[0].Duration)
	assert.True(t, base.Add(3*time.Minute).Equal(list[0].SavedAt))

	all, err := idx.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	limited, err := idx.List(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSaveIndexLatest(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	_, err := idx.Latest(ctx, "world-a")
	assert.ErrorIs(t, err, ErrNoSaves)

	_, err = idx.Record(ctx, SaveRecord{WorldID: "world-a", Tick: 10})
	require.NoError(t, err)
	_, err = idx.Record(ctx, SaveRecord{WorldID: "world-a", Tick: 20})
	require.NoError(t, err)

	latest, err := idx.Latest(ctx, "world-a")
	require.NoError(t, err)
	assert.Equal(t, uint64(20), latest.Tick)
	assert.False(t, latest.SavedAt.IsZero())
}

func TestSaveIndexRecordsSaveResult(t *testing.T) {
	storage, tempDir := setupTestStorage(t)
	defer cleanupTestStorage(storage, tempDir)
	idx := openTestIndex(t)

	w := newTestWorld(vec.Vec2{})
	w.SetGameTick(42)
	res, err := storage.SaveWorld(w)
	require.NoError(t, err)

	_, err = idx.RecordResult(context.Background(), res)
	require.NoError(t, err)

	latest, err := idx.Latest(context.Background(), w.ID.String())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), latest.Tick)
	assert.Equal(t, 1, latest.Chunks)
	assert.Equal(t, res.Bytes, latest.Bytes)
}

func TestOpenSaveIndexEmptyPath(t *testing.T) {
	_, err := OpenSaveIndex("")
	assert.Error(t, err)
}

package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	db, err := InitSQLite(MemoryDSN)
	require.NoError(t, err)
	defer db.Close()

	s := NewSQLiteStore(db, "")
	_, err = s.Load(ctx)
	require.ErrorIs(t, err, ErrNoSave)

	require.NoError(t, s.Save(ctx, sampleData()))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(sampleData(), got); diff != "" {
		t.Errorf("loaded record mismatch (-want +got):\n%s", diff)
	}

	d := sampleData()
	d.GeneratorCounts = []int{9, 9}
	require.NoError(t, s.Save(ctx, d))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{9, 9}, got.GeneratorCounts)

	require.NoError(t, s.Delete(ctx))
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSave)
	n, err := s.TrashCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStoreSlotsAreIndependent(t *testing.T) {
	ctx := context.Background()
	db, err := InitSQLite(MemoryDSN)
	require.NoError(t, err)
	defer db.Close()

	a := NewSQLiteStore(db, "a")
	b := NewSQLiteStore(db, "b")
	require.NoError(t, a.Save(ctx, sampleData()))

	_, err = b.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSave)
}

func TestSQLiteStoreCorruptPayload(t *testing.T) {
	ctx := context.Background()
	db, err := InitSQLite(MemoryDSN)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`INSERT INTO saves (slot, format, checksum, payload, saved_at) VALUES (?, 1, 'x', ?, 0)`,
		DefaultSlot, []byte("{nope"))
	require.NoError(t, err)

	_, err = NewSQLiteStore(db, DefaultSlot).Load(ctx)
	assert.ErrorIs(t, err, ErrCorruptSave)
}

func TestSQLiteEventRepository(t *testing.T) {
	ctx := context.Background()
	db, err := InitSQLite(MemoryDSN)
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLiteEventRepository(db)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	kinds := []string{"GENERATOR_PURCHASED", "GAME_SAVED", "GENERATOR_PURCHASED"}
	for i, k := range kinds {
		payload, _ := json.Marshal(map[string]int{"n": i})
		require.NoError(t, repo.Append(ctx, StoredEvent{
			ID:        string(rune('a' + i)),
			Timestamp: base.Add(time.Duration(i) * time.Second),
			EventType: k,
			ActorID:   "player",
			Payload:   payload,
		}))
	}

	bought, err := repo.GetByType(ctx, "GENERATOR_PURCHASED")
	require.NoError(t, err)
	require.Len(t, bought, 2)
	assert.Equal(t, "a", bought[0].ID)
	assert.Equal(t, "c", bought[1].ID)
	assert.True(t, base.Equal(bought[0].Timestamp))
	assert.JSONEq(t, `{"n":0}`, string(bought[0].Payload))

	recent, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].ID)
	assert.Equal(t, "c", recent[1].ID)

	all, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := repo.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

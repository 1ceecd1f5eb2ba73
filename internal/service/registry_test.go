package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tournament-checkin/internal/model"
	"github.com/iliyamo/tournament-checkin/internal/repository"
	"github.com/iliyamo/tournament-checkin/internal/repository/memory"
)

// sequenceBarcodes returns the given codes in order, repeating the last.
func sequenceBarcodes(codes ...string) BarcodeGenerator {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		c := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return c, nil
	}
}

func seedAdjudicators(store *memory.Store, tournamentID uint64, names ...string) []model.Checkable {
	out := make([]model.Checkable, 0, len(names))
	for _, n := range names {
		out = append(out, store.AddCheckable(model.Checkable{TournamentID: tournamentID, Kind: model.KindAdjudicator, Name: n}))
	}
	return out
}

func TestRegistryCreateIdentifiers(t *testing.T) {
	ctx := context.Background()

	t.Run("empty set is not found", func(t *testing.T) {
		store := memory.New()
		reg := NewRegistry(store, store)
		_, err := reg.CreateIdentifiers(ctx, model.KindAdjudicator, nil)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("second call returns the same identifiers without creating", func(t *testing.T) {
		store := memory.New()
		tour := store.AddTournament(model.Tournament{Slug: "wudc"})
		adjs := seedAdjudicators(store, tour.ID, "Ada", "Bo")
		reg := NewRegistry(store, store)

		first, err := reg.CreateIdentifiers(ctx, model.KindAdjudicator, adjs)
		require.NoError(t, err)
		require.Len(t, first, 2)
		for _, r := range first {
			assert.True(t, r.Created)
			assert.Len(t, r.Identifier.Barcode, 6)
			assert.NotZero(t, r.Identifier.ID)
		}

		second, err := reg.CreateIdentifiers(ctx, model.KindAdjudicator, adjs)
		require.NoError(t, err)
		require.Len(t, second, 2)
		for i, r := range second {
			assert.False(t, r.Created)
			assert.Equal(t, first[i].Identifier.Barcode, r.Identifier.Barcode)
			assert.Equal(t, first[i].Identifier.ID, r.Identifier.ID)
		}
	})

	t.Run("barcode collision is retried with a fresh code", func(t *testing.T) {
		store := memory.New()
		tour := store.AddTournament(model.Tournament{Slug: "wudc"})
		adjs := seedAdjudicators(store, tour.ID, "Ada", "Bo")

		_, err := NewRegistry(store, store, WithBarcodeGenerator(sequenceBarcodes("111111"))).
			CreateIdentifiers(ctx, model.KindAdjudicator, adjs[:1])
		require.NoError(t, err)

		reg := NewRegistry(store, store, WithBarcodeGenerator(sequenceBarcodes("111111", "222222")))
		res, err := reg.CreateIdentifiers(ctx, model.KindAdjudicator, adjs[1:])
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.True(t, res[0].Created)
		assert.Equal(t, "222222", res[0].Identifier.Barcode)
	})

	t.Run("exhausted barcode space commits nothing", func(t *testing.T) {
		store := memory.New()
		tour := store.AddTournament(model.Tournament{Slug: "wudc"})
		adjs := seedAdjudicators(store, tour.ID, "Ada", "Bo", "Cy")

		_, err := NewRegistry(store, store, WithBarcodeGenerator(sequenceBarcodes("111111"))).
			CreateIdentifiers(ctx, model.KindAdjudicator, adjs[:1])
		require.NoError(t, err)

		reg := NewRegistry(store, store, WithBarcodeGenerator(sequenceBarcodes("333333", "111111")))
		_, err = reg.CreateIdentifiers(ctx, model.KindAdjudicator, adjs[1:])
		assert.ErrorIs(t, err, ErrBarcodeSpaceExhausted)

		_, err = store.GetByOwner(ctx, model.KindAdjudicator, adjs[1].ID)
		assert.ErrorIs(t, err, repository.ErrNotFound, "first insert of the batch must be rolled back")
	})

	t.Run("concurrent creation yields one identifier per checkable", func(t *testing.T) {
		store := memory.New()
		tour := store.AddTournament(model.Tournament{Slug: "wudc"})
		adjs := seedAdjudicators(store, tour.ID, "Ada")
		reg := NewRegistry(store, store)

		var wg sync.WaitGroup
		barcodes := make([]string, 8)
		for i := range barcodes {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				res, err := reg.CreateIdentifiers(ctx, model.KindAdjudicator, adjs)
				if assert.NoError(t, err) {
					barcodes[i] = res[0].Identifier.Barcode
				}
			}(i)
		}
		wg.Wait()
		for _, b := range barcodes {
			assert.Equal(t, barcodes[0], b)
		}
	})
}

// racingTx simulates a concurrent transaction attaching an identifier
// between our existence check and our insert: the snapshot read misses
// it and only the locking read sees it.
type racingTx struct {
	winner      *model.Identifier
	lockedReads int
}

func (r *racingTx) IdentifierFor(context.Context, model.CheckableKind, uint64) (*model.Identifier, error) {
	return nil, repository.ErrNotFound
}

func (r *racingTx) LockedIdentifierFor(context.Context, model.CheckableKind, uint64) (*model.Identifier, error) {
	r.lockedReads++
	return r.winner, nil
}

func (r *racingTx) InsertIdentifier(context.Context, *model.Identifier) (bool, error) {
	return false, nil
}

type racingStore struct{ tx *racingTx }

func (s racingStore) GetByOwner(context.Context, model.CheckableKind, uint64) (*model.Identifier, error) {
	return s.tx.winner, nil
}

func (s racingStore) GetByBarcode(context.Context, string) (*model.Identifier, error) {
	return s.tx.winner, nil
}

func (s racingStore) WithTx(ctx context.Context, fn func(tx repository.IdentifierTx) error) error {
	return fn(s.tx)
}

func TestRegistryAdoptsWinnerOfLostRace(t *testing.T) {
	winner := &model.Identifier{ID: 7, Barcode: "424242", Kind: model.KindVenue, CheckableID: 3}
	tx := &racingTx{winner: winner}
	reg := NewRegistry(racingStore{tx: tx}, memory.New())

	res, err := reg.CreateIdentifiers(context.Background(), model.KindVenue, []model.Checkable{{ID: 3, Kind: model.KindVenue}})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.False(t, res[0].Created)
	assert.Equal(t, *winner, res[0].Identifier)
	assert.Equal(t, 1, tx.lockedReads)
}

func TestRegistryCurrentStatus(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := memory.New()
	reg := NewRegistry(store, store, WithClock(clock))
	ident := model.Identifier{ID: 99, Barcode: "000099"}

	checked, err := reg.CurrentStatus(ctx, ident.ID, time.Hour)
	require.NoError(t, err)
	assert.False(t, checked, "no events means not checked in")

	_, err = reg.RecordEvent(ctx, ident, true, 1, now.Add(-30*time.Minute))
	require.NoError(t, err)
	checked, err = reg.CurrentStatus(ctx, ident.ID, time.Hour)
	require.NoError(t, err)
	assert.True(t, checked)

	checked, err = reg.CurrentStatus(ctx, ident.ID, 10*time.Minute)
	require.NoError(t, err)
	assert.False(t, checked, "event older than the window is stale")

	_, err = reg.RecordEvent(ctx, ident, false, 1, time.Time{})
	require.NoError(t, err)
	checked, err = reg.CurrentStatus(ctx, ident.ID, time.Hour)
	require.NoError(t, err)
	assert.False(t, checked, "newest event wins")
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tournament-checkin/internal/model"
	"github.com/iliyamo/tournament-checkin/internal/repository"
	"github.com/iliyamo/tournament-checkin/internal/repository/memory"
)

func TestRankStandings(t *testing.T) {
	recs := []model.ScoreRecord{
		{EntityID: 4, Name: "Dee", Score: 150, Categories: []uint64{1}},
		{EntityID: 2, Name: "Bo", Score: 160},
		{EntityID: 1, Name: "Ada", Score: 160, Categories: []uint64{1}},
		{EntityID: 3, Name: "Cy", Score: 170},
	}

	t.Run("orders by score then name with shared ranks", func(t *testing.T) {
		got := RankStandings(recs, nil)
		require.Len(t, got, 4)
		assert.Equal(t, []model.StandingsEntry{
			{Rank: 1, EntityID: 3, Name: "Cy", Score: 170},
			{Rank: 2, Tied: true, EntityID: 1, Name: "Ada", Score: 160},
			{Rank: 2, Tied: true, EntityID: 2, Name: "Bo", Score: 160},
			{Rank: 4, EntityID: 4, Name: "Dee", Score: 150},
		}, got)
	})

	t.Run("is deterministic regardless of input order", func(t *testing.T) {
		reversed := make([]model.ScoreRecord, len(recs))
		for i, r := range recs {
			reversed[len(recs)-1-i] = r
		}
		assert.Equal(t, RankStandings(recs, nil), RankStandings(reversed, nil))
	})

	t.Run("category filter", func(t *testing.T) {
		cat := uint64(1)
		got := RankStandings(recs, &cat)
		require.Len(t, got, 2)
		assert.Equal(t, "Ada", got[0].Name)
		assert.Equal(t, 1, got[0].Rank)
		assert.Equal(t, "Dee", got[1].Name)
		assert.Equal(t, 2, got[1].Rank)
	})

	t.Run("empty input yields empty, non-nil result", func(t *testing.T) {
		got := RankStandings(nil, nil)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestStandingsKindByName(t *testing.T) {
	k, ok := StandingsKindByName("Speakers")
	assert.True(t, ok)
	assert.Equal(t, model.PrefSpeakerTabReleased, k.Pref)
	_, ok = StandingsKindByName("venues")
	assert.False(t, ok)
}

func TestStandingsProjector(t *testing.T) {
	ctx := context.Background()
	public := model.Requester{}
	admin := model.Requester{UserID: 1, Role: model.RoleAdministrator}

	setup := func(t *testing.T) (*memory.Store, *model.Tournament, *StandingsProjector, model.Round, model.Round) {
		t.Helper()
		store := memory.New()
		tour := store.AddTournament(model.Tournament{Slug: "wudc"})
		r1 := store.AddRound(model.Round{TournamentID: tour.ID, Seq: 1, ResultsReleased: true})
		r2 := store.AddRound(model.Round{TournamentID: tour.ID, Seq: 2})
		store.SetCurrentRound(tour.ID, r2.ID)
		tour, err := store.GetBySlug(ctx, "wudc")
		require.NoError(t, err)
		store.SetScores(tour.ID, model.SubjectTeams, []model.ScoreRecord{
			{EntityID: 1, Name: "Alpha", Score: 6},
			{EntityID: 2, Name: "Beta", Score: 3},
		})
		return store, tour, NewStandingsProjector(store, store, store), r1, r2
	}

	t.Run("all-released shows standings of a released past round", func(t *testing.T) {
		store, tour, p, _, _ := setup(t)
		require.NoError(t, store.SetPreference(ctx, tour.ID, model.PrefTeamTabReleased, "all-released"))
		got, err := p.Standings(ctx, tour, TeamStandings, nil, public)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Alpha", got[0].Name)
	})

	t.Run("current hides results of a past round", func(t *testing.T) {
		store, tour, p, _, _ := setup(t)
		require.NoError(t, store.SetPreference(ctx, tour.ID, model.PrefTeamTabReleased, "current"))
		_, err := p.Standings(ctx, tour, TeamStandings, nil, public)
		assert.ErrorIs(t, err, repository.ErrPermissionDenied)
	})

	t.Run("current shows once the current round is released", func(t *testing.T) {
		store, tour, p, _, r2 := setup(t)
		require.NoError(t, store.SetPreference(ctx, tour.ID, model.PrefTeamTabReleased, "current"))
		r2.ResultsReleased = true
		store.UpdateRound(r2)
		_, err := p.Standings(ctx, tour, TeamStandings, nil, public)
		assert.NoError(t, err)
	})

	t.Run("nothing released hides standings but not from admins", func(t *testing.T) {
		store, tour, p, r1, _ := setup(t)
		require.NoError(t, store.SetPreference(ctx, tour.ID, model.PrefTeamTabReleased, "all-released"))
		r1.ResultsReleased = false
		store.UpdateRound(r1)
		_, err := p.Standings(ctx, tour, TeamStandings, nil, public)
		assert.ErrorIs(t, err, repository.ErrPermissionDenied)

		got, err := p.Standings(ctx, tour, TeamStandings, nil, admin)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("speaker tab is gated separately", func(t *testing.T) {
		store, tour, p, _, _ := setup(t)
		require.NoError(t, store.SetPreference(ctx, tour.ID, model.PrefTeamTabReleased, "all-released"))
		_, err := p.Standings(ctx, tour, SpeakerStandings, nil, public)
		assert.ErrorIs(t, err, repository.ErrPermissionDenied)
	})
}

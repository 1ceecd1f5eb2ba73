package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/tournament-checkin/internal/model"
	"github.com/iliyamo/tournament-checkin/internal/repository"
)

// ScoreSource supplies raw, ungated, unranked score records.
type ScoreSource interface {
	RawScores(ctx context.Context, tournamentID uint64, subject model.StandingsSubject) ([]model.ScoreRecord, error)
}

// StandingsKind pairs a standings subject with the preference gating it.
type StandingsKind struct {
	Subject model.StandingsSubject
	Pref    model.PrefKey
}

var (
	SpeakerStandings = StandingsKind{Subject: model.SubjectSpeakers, Pref: model.PrefSpeakerTabReleased}
	TeamStandings    = StandingsKind{Subject: model.SubjectTeams, Pref: model.PrefTeamTabReleased}
)

// StandingsKindByName resolves the :kind path segment.
func StandingsKindByName(name string) (StandingsKind, bool) {
	switch model.StandingsSubject(strings.ToLower(name)) {
	case model.SubjectSpeakers:
		return SpeakerStandings, true
	case model.SubjectTeams:
		return TeamStandings, true
	}
	return StandingsKind{}, false
}

// StandingsProjector gates and ranks externally supplied scores.
type StandingsProjector struct {
	rounds RoundReader
	prefs  PreferenceReader
	scores ScoreSource
	opts   options
}

// NewStandingsProjector constructs a StandingsProjector.
func NewStandingsProjector(rounds RoundReader, prefs PreferenceReader, scores ScoreSource, opts ...Option) *StandingsProjector {
	return &StandingsProjector{rounds: rounds, prefs: prefs, scores: scores, opts: buildOptions(opts)}
}

// Standings returns the ranked standings of kind for t, optionally
// restricted to one category. The gate is evaluated against the latest
// round whose results are released: it is "released" when such a round
// exists and "current" when that round is the tournament's current round.
func (p *StandingsProjector) Standings(ctx context.Context, t *model.Tournament, kind StandingsKind, category *uint64, who model.Requester) ([]model.StandingsEntry, error) {
	var (
		rounds []model.Round
		pref   model.ReleasePreference
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rs, err := p.rounds.ListRounds(gctx, t.ID)
		if err != nil {
			return fmt.Errorf("list rounds: %w", err)
		}
		rounds = rs
		return nil
	})
	g.Go(func() error {
		v, err := releasePreference(gctx, p.prefs, t.ID, kind.Pref)
		if err != nil {
			return fmt.Errorf("load %s: %w", kind.Pref, err)
		}
		pref = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ref := latestResultsRound(rounds)
	released := ref != nil
	current := released && t.IsCurrentRound(ref.ID)
	if !Visible(pref, who.IsAdministrator(), current, released) {
		p.opts.metrics.IncrementGateDenial(string(kind.Subject))
		return nil, fmt.Errorf("%s standings: %w", kind.Subject, repository.ErrPermissionDenied)
	}

	recs, err := p.scores.RawScores(ctx, t.ID, kind.Subject)
	if err != nil {
		return nil, fmt.Errorf("load %s scores: %w", kind.Subject, err)
	}
	return RankStandings(recs, category), nil
}

func latestResultsRound(rounds []model.Round) *model.Round {
	var ref *model.Round
	for i := range rounds {
		r := &rounds[i]
		if !r.ResultsReleased {
			continue
		}
		if ref == nil || r.Seq > ref.Seq || (r.Seq == ref.Seq && r.ID > ref.ID) {
			ref = r
		}
	}
	return ref
}

// RankStandings filters recs by category (when non-nil) and orders them by
// score descending, then name, then entity id, so identical input always
// yields identical output. Equal scores share a rank and the next rank
// skips accordingly (1, 1, 3).
func RankStandings(recs []model.ScoreRecord, category *uint64) []model.StandingsEntry {
	filtered := make([]model.ScoreRecord, 0, len(recs))
	for _, r := range recs {
		if category != nil && !r.InCategory(*category) {
			continue
		}
		filtered = append(filtered, r)
	}
	sort.Slice(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.EntityID < b.EntityID
	})

	out := make([]model.StandingsEntry, len(filtered))
	for i, r := range filtered {
		rank := i + 1
		if i > 0 && r.Score == filtered[i-1].Score {
			rank = out[i-1].Rank
			out[i-1].Tied = true
		}
		out[i] = model.StandingsEntry{
			Rank:     rank,
			Tied:     rank != i+1,
			EntityID: r.EntityID,
			Name:     r.Name,
			Score:    r.Score,
		}
	}
	return out
}

package model

import "time"

// Tournament scopes every other record in this service: people, venues,
// rounds and release preferences all belong to exactly one tournament.
// The tournament row also carries the pointer to its current round, which
// guarantees that at most one round is current at any time.
//
// Fields:
//  ID             – primary key identifier.
//  Slug           – URL-safe unique name used in API paths.
//  Name           – display name.
//  CurrentRoundID – round currently in progress (nullable).
//  CreatedAt      – creation timestamp.
type Tournament struct {
	ID             uint64    // tournaments.id
	Slug           string    // tournaments.slug
	Name           string    // tournaments.name
	CurrentRoundID *uint64   // tournaments.current_round_id (nullable)
	CreatedAt      time.Time // tournaments.created_at
}

// IsCurrentRound reports whether roundID is the tournament's current round.
func (t *Tournament) IsCurrentRound(roundID uint64) bool {
	return t != nil && t.CurrentRoundID != nil && *t.CurrentRoundID == roundID
}

// DrawStatus is the release state of a round's draw.
type DrawStatus string

const (
	DrawNone      DrawStatus = "none"
	DrawDraft     DrawStatus = "draft"
	DrawConfirmed DrawStatus = "confirmed"
	DrawReleased  DrawStatus = "released"
)

// Round belongs to a tournament. The draw status and the results flag are
// independent: a draw can be released long before its results are.
//
// Fields:
//  ID              – primary key identifier.
//  TournamentID    – owning tournament.
//  Seq             – ordinal of the round within the tournament (1-based).
//  Name            – display name (e.g. "Round 3", "Grand Final").
//  DrawStatus      – none, draft, confirmed or released.
//  ResultsReleased – whether the round's results have been published.
type Round struct {
	ID              uint64     // rounds.id
	TournamentID    uint64     // rounds.tournament_id
	Seq             int        // rounds.seq
	Name            string     // rounds.name
	DrawStatus      DrawStatus // rounds.draw_status
	ResultsReleased bool       // rounds.results_released
}

// DrawReleased reports whether the draw has been released to the public.
func (r Round) DrawReleased() bool { return r.DrawStatus == DrawReleased }

package repository

import (
	"context"      // context for controlling query lifetime
	"database/sql" // sql provides DB abstraction

	"github.com/iliyamo/tournament-checkin/internal/model"
)

// PairingRepo reads a round's draw: debates, the teams sitting in them and
// the adjudication panels. Drafting the draw happens elsewhere.
type PairingRepo struct {
	db *sql.DB
}

// NewPairingRepo constructs a PairingRepo.
func NewPairingRepo(db *sql.DB) *PairingRepo {
	return &PairingRepo{db: db}
}

// ListByRound returns every debate of the round ordered by room rank. Three
// queries are issued (debates, teams, panels) and stitched together in
// memory to avoid a row explosion from a single join.
func (r *PairingRepo) ListByRound(ctx context.Context, roundID uint64) ([]model.Pairing, error) {
	const qDebates = `SELECT d.id, d.round_id, d.bracket, d.room_rank, d.venue_id, COALESCE(v.name, '')
	                  FROM debates d
	                  LEFT JOIN venues v ON v.id = d.venue_id
	                  WHERE d.round_id = ?
	                  ORDER BY d.room_rank, d.id`
	rows, err := r.db.QueryContext(ctx, qDebates, roundID)
	if err != nil {
		return nil, err
	}
	var out []model.Pairing
	index := map[uint64]int{}
	for rows.Next() {
		var (
			p     model.Pairing
			venue sql.NullInt64
		)
		if err := rows.Scan(&p.DebateID, &p.RoundID, &p.Bracket, &p.RoomRank, &venue, &p.VenueName); err != nil {
			rows.Close()
			return nil, err
		}
		if venue.Valid {
			v := uint64(venue.Int64)
			p.VenueID = &v
		}
		p.Teams = []model.PairingTeam{}
		p.Adjudicators = []model.PairingAdjudicator{}
		index[p.DebateID] = len(out)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return []model.Pairing{}, nil
	}

	// Teams, in side order.
	const qTeams = `SELECT dt.debate_id, t.id, t.name, dt.side
	                FROM debate_teams dt
	                JOIN debates d ON d.id = dt.debate_id
	                JOIN teams t ON t.id = dt.team_id
	                WHERE d.round_id = ?
	                ORDER BY dt.debate_id, dt.side`
	trows, err := r.db.QueryContext(ctx, qTeams, roundID)
	if err != nil {
		return nil, err
	}
	for trows.Next() {
		var (
			debateID uint64
			pt       model.PairingTeam
		)
		if err := trows.Scan(&debateID, &pt.TeamID, &pt.Name, &pt.Side); err != nil {
			trows.Close()
			return nil, err
		}
		if i, ok := index[debateID]; ok {
			out[i].Teams = append(out[i].Teams, pt)
		}
	}
	if err := trows.Err(); err != nil {
		trows.Close()
		return nil, err
	}
	if err := trows.Close(); err != nil {
		return nil, err
	}

	// Panels, chair first.
	const qAdjs = `SELECT da.debate_id, a.id, a.name, da.role
	               FROM debate_adjudicators da
	               JOIN debates d ON d.id = da.debate_id
	               JOIN adjudicators a ON a.id = da.adjudicator_id
	               WHERE d.round_id = ?
	               ORDER BY da.debate_id, FIELD(da.role, 'chair', 'panellist', 'trainee'), a.id`
	arows, err := r.db.QueryContext(ctx, qAdjs, roundID)
	if err != nil {
		return nil, err
	}
	defer arows.Close()
	for arows.Next() {
		var (
			debateID uint64
			pa       model.PairingAdjudicator
		)
		if err := arows.Scan(&debateID, &pa.AdjudicatorID, &pa.Name, &pa.Role); err != nil {
			return nil, err
		}
		if i, ok := index[debateID]; ok {
			out[i].Adjudicators = append(out[i].Adjudicators, pa)
		}
	}
	if err := arows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

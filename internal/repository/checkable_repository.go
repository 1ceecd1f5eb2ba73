package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/tournament-checkin/internal/model"
)

// scopeQuery holds the SQL that resolves a checkable kind to its
// tournament. Adjudicators and venues carry tournament_id directly;
// speakers are scoped through their team.
type scopeQuery struct {
	find string // one row by id within a tournament
	list string // every row of the tournament
}

var scopeQueries = map[model.CheckableKind]scopeQuery{
	model.KindAdjudicator: {
		find: `SELECT id, tournament_id, name FROM adjudicators WHERE id = ? AND tournament_id = ?`,
		list: `SELECT id, tournament_id, name FROM adjudicators WHERE tournament_id = ? ORDER BY id`,
	},
	model.KindSpeaker: {
		find: `SELECT s.id, t.tournament_id, s.name FROM speakers s
		       JOIN teams t ON t.id = s.team_id
		       WHERE s.id = ? AND t.tournament_id = ?`,
		list: `SELECT s.id, t.tournament_id, s.name FROM speakers s
		       JOIN teams t ON t.id = s.team_id
		       WHERE t.tournament_id = ? ORDER BY s.id`,
	},
	model.KindVenue: {
		find: `SELECT id, tournament_id, name FROM venues WHERE id = ? AND tournament_id = ?`,
		list: `SELECT id, tournament_id, name FROM venues WHERE tournament_id = ? ORDER BY id`,
	},
}

// CheckableRepo looks up people and venues within a tournament.
type CheckableRepo struct {
	db *sql.DB
}

// NewCheckableRepo constructs a CheckableRepo.
func NewCheckableRepo(db *sql.DB) *CheckableRepo {
	return &CheckableRepo{db: db}
}

// FindCheckable returns the checkable of the given kind and id if it
// belongs to the tournament, and ErrNotFound otherwise.
func (r *CheckableRepo) FindCheckable(ctx context.Context, kind model.CheckableKind, tournamentID, id uint64) (*model.Checkable, error) {
	sq, ok := scopeQueries[kind]
	if !ok {
		return nil, fmt.Errorf("unknown checkable kind %q: %w", kind, ErrNotFound)
	}
	c := model.Checkable{Kind: kind}
	if err := r.db.QueryRowContext(ctx, sq.find, id, tournamentID).Scan(&c.ID, &c.TournamentID, &c.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListCheckables returns every checkable of the kind in the tournament,
// ordered by id.
func (r *CheckableRepo) ListCheckables(ctx context.Context, kind model.CheckableKind, tournamentID uint64) ([]model.Checkable, error) {
	sq, ok := scopeQueries[kind]
	if !ok {
		return nil, fmt.Errorf("unknown checkable kind %q: %w", kind, ErrNotFound)
	}
	rows, err := r.db.QueryContext(ctx, sq.list, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Checkable
	for rows.Next() {
		c := model.Checkable{Kind: kind}
		if err := rows.Scan(&c.ID, &c.TournamentID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

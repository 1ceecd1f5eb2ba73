// Package repository contains data access logic separated from HTTP handlers.
// This file covers tournaments and their rounds. Both are managed by the
// wider tabulation system; this service only reads them to scope requests
// and to evaluate release gates.
package repository

import (
	"context"      // context carries request deadlines into queries
	"database/sql" // sql provides generic database operations
	"errors"       // errors is used to match sql.ErrNoRows

	"github.com/iliyamo/tournament-checkin/internal/model"
)

// TournamentRepo encapsulates read queries for tournaments and rounds.
type TournamentRepo struct {
	db *sql.DB
}

// NewTournamentRepo constructs a TournamentRepo with the provided DB handle.
func NewTournamentRepo(db *sql.DB) *TournamentRepo {
	return &TournamentRepo{db: db}
}

// GetBySlug fetches a tournament by its slug. It returns ErrNotFound if no
// row matches.
func (r *TournamentRepo) GetBySlug(ctx context.Context, slug string) (*model.Tournament, error) {
	const q = "SELECT id, slug, name, current_round_id, created_at FROM tournaments WHERE slug = ?"
	var (
		t       model.Tournament
		current sql.NullInt64
	)
	if err := r.db.QueryRowContext(ctx, q, slug).Scan(&t.ID, &t.Slug, &t.Name, &current, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if current.Valid {
		id := uint64(current.Int64)
		t.CurrentRoundID = &id
	}
	return &t, nil
}

// GetRound fetches a round that belongs to the given tournament. A round
// of another tournament is reported as ErrNotFound.
func (r *TournamentRepo) GetRound(ctx context.Context, tournamentID, roundID uint64) (*model.Round, error) {
	const q = `SELECT id, tournament_id, seq, name, draw_status, results_released
	           FROM rounds WHERE id = ? AND tournament_id = ?`
	var (
		rd     model.Round
		status string
	)
	err := r.db.QueryRowContext(ctx, q, roundID, tournamentID).Scan(
		&rd.ID, &rd.TournamentID, &rd.Seq, &rd.Name, &status, &rd.ResultsReleased,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rd.DrawStatus = model.DrawStatus(status)
	return &rd, nil
}

// ListRounds returns all rounds of a tournament ordered by seq.
func (r *TournamentRepo) ListRounds(ctx context.Context, tournamentID uint64) ([]model.Round, error) {
	const q = `SELECT id, tournament_id, seq, name, draw_status, results_released
	           FROM rounds WHERE tournament_id = ? ORDER BY seq, id`
	rows, err := r.db.QueryContext(ctx, q, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Round
	for rows.Next() {
		var (
			rd     model.Round
			status string
		)
		if err := rows.Scan(&rd.ID, &rd.TournamentID, &rd.Seq, &rd.Name, &status, &rd.ResultsReleased); err != nil {
			return nil, err
		}
		rd.DrawStatus = model.DrawStatus(status)
		out = append(out, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/tournament-checkin/internal/model"
)

// CheckInEventRepo appends to and reads from the `checkin_events` log.
// Rows are never updated or deleted by this service.
type CheckInEventRepo struct {
	db *sql.DB
}

// NewCheckInEventRepo constructs a CheckInEventRepo.
func NewCheckInEventRepo(db *sql.DB) *CheckInEventRepo {
	return &CheckInEventRepo{db: db}
}

// Append inserts ev and populates its ID. A zero ActorID is stored as NULL.
func (r *CheckInEventRepo) Append(ctx context.Context, ev *model.CheckInEvent) error {
	const q = "INSERT INTO checkin_events (identifier_id, state, actor_id, recorded_at) VALUES (?, ?, ?, ?)"
	var actor sql.NullInt64
	if ev.ActorID != 0 {
		actor = sql.NullInt64{Int64: int64(ev.ActorID), Valid: true}
	}
	res, err := r.db.ExecContext(ctx, q, ev.IdentifierID, ev.State, actor, ev.RecordedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	return nil
}

// Recent returns up to limit events of an identifier, newest first. Ties
// on recorded_at are broken by id so the order is total.
func (r *CheckInEventRepo) Recent(ctx context.Context, identifierID uint64, limit int) ([]model.CheckInEvent, error) {
	if limit <= 0 {
		limit = 1
	}
	const q = `SELECT id, identifier_id, state, actor_id, recorded_at
	           FROM checkin_events WHERE identifier_id = ?
	           ORDER BY recorded_at DESC, id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, identifierID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CheckInEvent
	for rows.Next() {
		var (
			ev    model.CheckInEvent
			actor sql.NullInt64
		)
		if err := rows.Scan(&ev.ID, &ev.IdentifierID, &ev.State, &actor, &ev.RecordedAt); err != nil {
			return nil, err
		}
		if actor.Valid {
			ev.ActorID = uint64(actor.Int64)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

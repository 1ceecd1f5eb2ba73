package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/tournament-checkin/internal/model"
)

// PreferenceRepo reads and writes the `tournament_preferences` key/value
// table. Values are stored as strings; callers interpret them.
type PreferenceRepo struct {
	db *sql.DB
}

// NewPreferenceRepo constructs a PreferenceRepo.
func NewPreferenceRepo(db *sql.DB) *PreferenceRepo {
	return &PreferenceRepo{db: db}
}

// GetPreference returns the stored value for key. The boolean is false
// when the tournament has no row for that key.
func (r *PreferenceRepo) GetPreference(ctx context.Context, tournamentID uint64, key model.PrefKey) (string, bool, error) {
	const q = "SELECT value FROM tournament_preferences WHERE tournament_id = ? AND pref_key = ?"
	var v string
	if err := r.db.QueryRowContext(ctx, q, tournamentID, string(key)).Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

// SetPreference inserts or replaces the value for key.
func (r *PreferenceRepo) SetPreference(ctx context.Context, tournamentID uint64, key model.PrefKey, value string) error {
	const q = `INSERT INTO tournament_preferences (tournament_id, pref_key, value) VALUES (?, ?, ?)
	           ON DUPLICATE KEY UPDATE value = VALUES(value)`
	_, err := r.db.ExecContext(ctx, q, tournamentID, string(key), value)
	return err
}

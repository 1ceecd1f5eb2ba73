package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/tournament-checkin/internal/model"
)

// ScoreRepo reads raw scores written by the results system. It does not
// rank, filter or gate; that is the standings projector's job.
type ScoreRepo struct {
	db *sql.DB
}

// NewScoreRepo constructs a ScoreRepo.
func NewScoreRepo(db *sql.DB) *ScoreRepo {
	return &ScoreRepo{db: db}
}

type scoreQueries struct {
	totals     string
	categories string
}

var scoreQueriesBySubject = map[model.StandingsSubject]scoreQueries{
	model.SubjectSpeakers: {
		totals: `SELECT s.id, s.name, COALESCE(SUM(ss.score), 0)
		         FROM speakers s
		         JOIN teams t ON t.id = s.team_id
		         LEFT JOIN speaker_scores ss ON ss.speaker_id = s.id
		         WHERE t.tournament_id = ?
		         GROUP BY s.id, s.name`,
		categories: `SELECT m.speaker_id, m.category_id
		             FROM speaker_category_members m
		             JOIN speakers s ON s.id = m.speaker_id
		             JOIN teams t ON t.id = s.team_id
		             WHERE t.tournament_id = ?`,
	},
	model.SubjectTeams: {
		totals: `SELECT t.id, t.name, COALESCE(SUM(ts.points), 0)
		         FROM teams t
		         LEFT JOIN team_scores ts ON ts.team_id = t.id
		         WHERE t.tournament_id = ?
		         GROUP BY t.id, t.name`,
		categories: `SELECT m.team_id, m.category_id
		             FROM team_break_categories m
		             JOIN teams t ON t.id = m.team_id
		             WHERE t.tournament_id = ?`,
	},
}

// RawScores returns one record per speaker or team of the tournament with
// its total score and category memberships. Rows come back in driver order.
func (r *ScoreRepo) RawScores(ctx context.Context, tournamentID uint64, subject model.StandingsSubject) ([]model.ScoreRecord, error) {
	sq, ok := scoreQueriesBySubject[subject]
	if !ok {
		return nil, fmt.Errorf("unknown standings subject %q: %w", subject, ErrNotFound)
	}
	rows, err := r.db.QueryContext(ctx, sq.totals, tournamentID)
	if err != nil {
		return nil, err
	}
	var out []model.ScoreRecord
	index := map[uint64]int{}
	for rows.Next() {
		var rec model.ScoreRecord
		if err := rows.Scan(&rec.EntityID, &rec.Name, &rec.Score); err != nil {
			rows.Close()
			return nil, err
		}
		index[rec.EntityID] = len(out)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	crows, err := r.db.QueryContext(ctx, sq.categories, tournamentID)
	if err != nil {
		return nil, err
	}
	defer crows.Close()
	for crows.Next() {
		var entityID, categoryID uint64
		if err := crows.Scan(&entityID, &categoryID); err != nil {
			return nil, err
		}
		if i, ok := index[entityID]; ok {
			out[i].Categories = append(out[i].Categories, categoryID)
		}
	}
	if err := crows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

package model

// ScoreRecord is one raw, unranked row supplied by the score source.
// Categories lists the speaker categories (for speakers) or break
// categories (for teams) the entity belongs to.
type ScoreRecord struct {
	EntityID   uint64
	Name       string
	Score      float64
	Categories []uint64
}

// InCategory reports whether the record belongs to category id.
func (r ScoreRecord) InCategory(id uint64) bool {
	for _, c := range r.Categories {
		if c == id {
			return true
		}
	}
	return false
}

// StandingsEntry is a ranked row. It is derived per request and never
// persisted. Equal scores share a rank.
type StandingsEntry struct {
	Rank     int     `json:"rank"`
	Tied     bool    `json:"tied"`
	EntityID uint64  `json:"id"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
}

// StandingsSubject selects which entities a standings request ranks.
type StandingsSubject string

const (
	SubjectSpeakers StandingsSubject = "speakers"
	SubjectTeams    StandingsSubject = "teams"
)

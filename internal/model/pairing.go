package model

// Pairing is one debate in a round's draw together with its venue, teams
// and adjudication panel.
type Pairing struct {
	DebateID     uint64               `json:"id"`
	RoundID      uint64               `json:"round"`
	Bracket      float64              `json:"bracket"`
	RoomRank     int                  `json:"room_rank"`
	VenueID      *uint64              `json:"venue,omitempty"`
	VenueName    string               `json:"venue_name,omitempty"`
	Teams        []PairingTeam        `json:"teams"`
	Adjudicators []PairingAdjudicator `json:"adjudicators"`
}

// PairingTeam is a team's seat in a debate.
type PairingTeam struct {
	TeamID uint64 `json:"team"`
	Name   string `json:"name"`
	Side   string `json:"side"`
}

// PairingAdjudicator is an adjudicator's place on a debate's panel. Role is
// one of chair, panellist or trainee.
type PairingAdjudicator struct {
	AdjudicatorID uint64 `json:"adjudicator"`
	Name          string `json:"name"`
	Role          string `json:"role"`
}

package model

import "time"

// CheckableKind names the table a checkable lives in. It is also the
// owner half of an identifier's (kind, checkable_id) key.
type CheckableKind string

const (
	KindAdjudicator CheckableKind = "adjudicator"
	KindSpeaker     CheckableKind = "speaker"
	KindVenue       CheckableKind = "venue"
)

// Checkable is a person or venue whose physical presence is tracked.
// Speakers have no tournament column of their own; TournamentID is
// resolved through their team.
//
// Fields:
//  ID           – primary key in the kind's table.
//  TournamentID – owning tournament.
//  Kind         – adjudicator, speaker or venue.
//  Name         – display name.
type Checkable struct {
	ID           uint64
	TournamentID uint64
	Kind         CheckableKind
	Name         string
}

// Identifier is the scannable code bound to one checkable. It never
// changes once created.
//
// Fields:
//  ID          – primary key identifier.
//  Barcode     – unique scannable code.
//  Kind        – kind of the owning checkable.
//  CheckableID – id of the owning checkable in its kind's table.
//  CreatedAt   – creation timestamp.
type Identifier struct {
	ID          uint64        // checkin_identifiers.id
	Barcode     string        // checkin_identifiers.barcode
	Kind        CheckableKind // checkin_identifiers.kind
	CheckableID uint64        // checkin_identifiers.checkable_id
	CreatedAt   time.Time     // checkin_identifiers.created_at
}

// CheckInEvent is one append-only row of the check-in log. State true
// means checked in, false means checked out.
//
// Fields:
//  ID           – primary key identifier (monotonic).
//  IdentifierID – identifier the event belongs to.
//  State        – checked-in state recorded by this event.
//  ActorID      – user who recorded the event, 0 when unknown.
//  RecordedAt   – when the event happened (UTC).
type CheckInEvent struct {
	ID           uint64    // checkin_events.id
	IdentifierID uint64    // checkin_events.identifier_id
	State        bool      // checkin_events.state
	ActorID      uint64    // checkin_events.actor_id (nullable)
	RecordedAt   time.Time // checkin_events.recorded_at
}

// CheckInBroadcast is the live update pushed to real-time subscribers
// after a check-in write. The json names follow the payload the check-in
// pages already consume.
type CheckInBroadcast struct {
	EventID        string    `json:"event_id"`
	TournamentID   uint64    `json:"tournament_id"`
	TournamentSlug string    `json:"tournament"`
	Barcodes       []string  `json:"barcodes"`
	Status         bool      `json:"status"`
	Type           string    `json:"type"`
	Kind           string    `json:"kind"`
	ComponentID    *string   `json:"component_id"`
	SentAt         time.Time `json:"sent_at"`
}

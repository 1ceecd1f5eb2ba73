package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/tournament-checkin/internal/model"
	"github.com/iliyamo/tournament-checkin/internal/repository"
)

// maxBarcodeAttempts bounds regeneration after barcode collisions for a
// single checkable.
const maxBarcodeAttempts = 16

// ErrBarcodeSpaceExhausted is returned when no unused barcode was found
// within maxBarcodeAttempts.
var ErrBarcodeSpaceExhausted = errors.New("no unused barcode found")

// IdentifierStore persists identifiers.
type IdentifierStore interface {
	GetByOwner(ctx context.Context, kind model.CheckableKind, checkableID uint64) (*model.Identifier, error)
	GetByBarcode(ctx context.Context, barcode string) (*model.Identifier, error)
	WithTx(ctx context.Context, fn func(tx repository.IdentifierTx) error) error
}

// EventStore is the append-only check-in log.
type EventStore interface {
	Append(ctx context.Context, ev *model.CheckInEvent) error
	// Recent returns up to limit events of the identifier, newest first.
	Recent(ctx context.Context, identifierID uint64, limit int) ([]model.CheckInEvent, error)
}

// IdentifierResult is one member of a CreateIdentifiers result. Created is
// false when the checkable already had an identifier, including when a
// concurrent request attached it first.
type IdentifierResult struct {
	Identifier model.Identifier
	Created    bool
}

// Registry owns identifier assignment and the check-in event log.
type Registry struct {
	identifiers IdentifierStore
	events      EventStore
	opts        options
}

// NewRegistry constructs a Registry.
func NewRegistry(identifiers IdentifierStore, events EventStore, opts ...Option) *Registry {
	return &Registry{identifiers: identifiers, events: events, opts: buildOptions(opts)}
}

// CreateIdentifiers attaches an identifier to every checkable that lacks
// one, inside a single transaction. Checkables that already have an
// identifier are left untouched and their identifier is returned. An empty
// set is reported as ErrNotFound.
func (r *Registry) CreateIdentifiers(ctx context.Context, kind model.CheckableKind, checkables []model.Checkable) ([]IdentifierResult, error) {
	if len(checkables) == 0 {
		return nil, fmt.Errorf("create identifiers: empty checkable set: %w", repository.ErrNotFound)
	}
	var out []IdentifierResult
	err := r.identifiers.WithTx(ctx, func(tx repository.IdentifierTx) error {
		out = make([]IdentifierResult, 0, len(checkables))
		for _, c := range checkables {
			res, err := r.attach(ctx, tx, kind, c.ID)
			if err != nil {
				return fmt.Errorf("attach identifier to %s %d: %w", kind, c.ID, err)
			}
			out = append(out, res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// attach is the compare-and-set step: "checkable has no identifier" is the
// precondition of the insert. A failed insert is either a lost race (the
// owner now has a row, which we adopt) or a barcode collision (retry with
// a fresh code).
func (r *Registry) attach(ctx context.Context, tx repository.IdentifierTx, kind model.CheckableKind, checkableID uint64) (IdentifierResult, error) {
	existing, err := tx.IdentifierFor(ctx, kind, checkableID)
	if err == nil {
		return IdentifierResult{Identifier: *existing}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return IdentifierResult{}, err
	}

	for attempt := 0; attempt < maxBarcodeAttempts; attempt++ {
		code, err := r.opts.barcodes()
		if err != nil {
			return IdentifierResult{}, err
		}
		ident := model.Identifier{
			Barcode:     code,
			Kind:        kind,
			CheckableID: checkableID,
			CreatedAt:   r.opts.now().UTC(),
		}
		err = insertIdentifier(ctx, tx, &ident)
		if err == nil {
			return IdentifierResult{Identifier: ident, Created: true}, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return IdentifierResult{}, err
		}

		winner, err := tx.LockedIdentifierFor(ctx, kind, checkableID)
		if err == nil {
			r.opts.logger.Debug("identifier creation lost race; adopting existing identifier",
				"kind", kind, "checkable_id", checkableID, "barcode", winner.Barcode)
			return IdentifierResult{Identifier: *winner}, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return IdentifierResult{}, err
		}
	}
	return IdentifierResult{}, ErrBarcodeSpaceExhausted
}

func insertIdentifier(ctx context.Context, tx repository.IdentifierTx, ident *model.Identifier) error {
	ok, err := tx.InsertIdentifier(ctx, ident)
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrConflict
	}
	return nil
}

// RecordEvent appends one event for the identifier. A zero at means now.
// The returned event is what the caller broadcasts.
func (r *Registry) RecordEvent(ctx context.Context, ident model.Identifier, state bool, actorID uint64, at time.Time) (model.CheckInEvent, error) {
	if at.IsZero() {
		at = r.opts.now()
	}
	ev := model.CheckInEvent{
		IdentifierID: ident.ID,
		State:        state,
		ActorID:      actorID,
		RecordedAt:   at.UTC(),
	}
	if err := r.events.Append(ctx, &ev); err != nil {
		return model.CheckInEvent{}, fmt.Errorf("record check-in event for %s: %w", ident.Barcode, err)
	}
	return ev, nil
}

// CurrentStatus returns the state of the newest event of the identifier
// if it was recorded within window of now, and false otherwise.
func (r *Registry) CurrentStatus(ctx context.Context, identifierID uint64, window time.Duration) (bool, error) {
	evs, err := r.events.Recent(ctx, identifierID, 1)
	if err != nil {
		return false, fmt.Errorf("load latest check-in event: %w", err)
	}
	if len(evs) == 0 {
		return false, nil
	}
	latest := evs[0]
	cutoff := r.opts.now().Add(-window)
	if latest.RecordedAt.Before(cutoff) {
		return false, nil
	}
	return latest.State, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/tournament-checkin/internal/model"
	"github.com/iliyamo/tournament-checkin/internal/repository"
)

// ResourceKind is the capability set that specialises CheckInService for
// one kind of checkable: the table it lives in (scope resolution happens
// in the store by kind), the API collection used for object references,
// the identifier family announced in broadcasts, and the preference key
// holding its freshness window.
type ResourceKind struct {
	Kind       model.CheckableKind
	Collection string
	Family     string
	WindowPref model.PrefKey
}

var (
	Adjudicators = ResourceKind{Kind: model.KindAdjudicator, Collection: "adjudicators", Family: "person", WindowPref: model.PrefCheckInWindowPeople}
	Speakers     = ResourceKind{Kind: model.KindSpeaker, Collection: "speakers", Family: "person", WindowPref: model.PrefCheckInWindowPeople}
	Venues       = ResourceKind{Kind: model.KindVenue, Collection: "venues", Family: "venue", WindowPref: model.PrefCheckInWindowVenues}
)

var resourceKinds = map[string]ResourceKind{
	Adjudicators.Collection: Adjudicators,
	Speakers.Collection:     Speakers,
	Venues.Collection:       Venues,
}

// ResourceKindByCollection resolves the :kind path segment.
func ResourceKindByCollection(name string) (ResourceKind, bool) {
	rk, ok := resourceKinds[strings.ToLower(name)]
	return rk, ok
}

func resourceKindOf(kind model.CheckableKind) (ResourceKind, bool) {
	for _, rk := range resourceKinds {
		if rk.Kind == kind {
			return rk, true
		}
	}
	return ResourceKind{}, false
}

// CheckableStore resolves checkables within a tournament.
type CheckableStore interface {
	FindCheckable(ctx context.Context, kind model.CheckableKind, tournamentID, id uint64) (*model.Checkable, error)
	ListCheckables(ctx context.Context, kind model.CheckableKind, tournamentID uint64) ([]model.Checkable, error)
}

// Status is the uniform result of every check-in operation.
type Status struct {
	Checkable  model.Checkable
	Identifier model.Identifier
	Checked    bool
}

// CheckInService implements get, check-in, check-out, toggle and
// identifier creation for any ResourceKind.
type CheckInService struct {
	checkables  CheckableStore
	identifiers IdentifierStore
	registry    *Registry
	prefs       PreferenceReader
	dispatcher  *Dispatcher
	opts        options
}

// NewCheckInService constructs a CheckInService. dispatcher may be nil,
// in which case writes are not broadcast.
func NewCheckInService(checkables CheckableStore, identifiers IdentifierStore, registry *Registry, prefs PreferenceReader, dispatcher *Dispatcher, opts ...Option) *CheckInService {
	return &CheckInService{
		checkables:  checkables,
		identifiers: identifiers,
		registry:    registry,
		prefs:       prefs,
		dispatcher:  dispatcher,
		opts:        buildOptions(opts),
	}
}

// Window returns the freshness window for rk in tournament t: the stored
// preference in hours when present and valid, the configured default
// otherwise.
func (s *CheckInService) Window(ctx context.Context, t *model.Tournament, rk ResourceKind) (time.Duration, error) {
	def := s.opts.windows[rk.WindowPref]
	v, ok, err := s.prefs.GetPreference(ctx, t.ID, rk.WindowPref)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", rk.WindowPref, err)
	}
	if !ok {
		return def, nil
	}
	w, ok := model.ParseWindowHours(v)
	if !ok {
		s.opts.logger.Warn("ignoring invalid check-in window preference",
			"tournament", t.Slug, "key", rk.WindowPref, "value", v)
		return def, nil
	}
	return w, nil
}

// resolve loads the checkable and its identifier. Either missing is
// ErrNotFound.
func (s *CheckInService) resolve(ctx context.Context, t *model.Tournament, rk ResourceKind, id uint64) (*model.Checkable, *model.Identifier, error) {
	c, err := s.checkables.FindCheckable(ctx, rk.Kind, t.ID, id)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %d: %w", rk.Kind, id, err)
	}
	ident, err := s.identifiers.GetByOwner(ctx, rk.Kind, c.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, fmt.Errorf("%s %d has no identifier: %w", rk.Kind, id, repository.ErrNotFound)
		}
		return nil, nil, err
	}
	return c, ident, nil
}

// Get returns the current status of a checkable.
func (s *CheckInService) Get(ctx context.Context, t *model.Tournament, rk ResourceKind, id uint64) (Status, error) {
	c, ident, err := s.resolve(ctx, t, rk, id)
	if err != nil {
		return Status{}, err
	}
	checked, err := s.currentStatus(ctx, t, rk, ident)
	if err != nil {
		return Status{}, err
	}
	return Status{Checkable: *c, Identifier: *ident, Checked: checked}, nil
}

// Scan resolves a scanned barcode to its checkable and current status.
// A barcode owned by another tournament is ErrNotFound.
func (s *CheckInService) Scan(ctx context.Context, t *model.Tournament, barcode string) (ResourceKind, Status, error) {
	ident, err := s.identifiers.GetByBarcode(ctx, barcode)
	if err != nil {
		return ResourceKind{}, Status{}, fmt.Errorf("barcode %s: %w", barcode, err)
	}
	rk, ok := resourceKindOf(ident.Kind)
	if !ok {
		return ResourceKind{}, Status{}, fmt.Errorf("barcode %s: unknown kind %q: %w", barcode, ident.Kind, repository.ErrNotFound)
	}
	c, err := s.checkables.FindCheckable(ctx, rk.Kind, t.ID, ident.CheckableID)
	if err != nil {
		return ResourceKind{}, Status{}, fmt.Errorf("barcode %s: %w", barcode, err)
	}
	checked, err := s.currentStatus(ctx, t, rk, ident)
	if err != nil {
		return ResourceKind{}, Status{}, err
	}
	return rk, Status{Checkable: *c, Identifier: *ident, Checked: checked}, nil
}

// CheckIn unconditionally records a checked-in event.
func (s *CheckInService) CheckIn(ctx context.Context, t *model.Tournament, rk ResourceKind, id, actorID uint64) (Status, error) {
	return s.set(ctx, t, rk, id, actorID, true)
}

// CheckOut unconditionally records a checked-out event.
func (s *CheckInService) CheckOut(ctx context.Context, t *model.Tournament, rk ResourceKind, id, actorID uint64) (Status, error) {
	return s.set(ctx, t, rk, id, actorID, false)
}

func (s *CheckInService) set(ctx context.Context, t *model.Tournament, rk ResourceKind, id, actorID uint64, state bool) (Status, error) {
	c, ident, err := s.resolve(ctx, t, rk, id)
	if err != nil {
		return Status{}, err
	}
	if err := s.record(ctx, t, rk, ident, state, actorID); err != nil {
		return Status{}, err
	}
	return Status{Checkable: *c, Identifier: *ident, Checked: state}, nil
}

// Toggle records the negation of the current status. The read and the
// append are not atomic unless a Locker is configured: two concurrent
// toggles may both read the same status and append the same negation,
// which is last-write-wins and never loses or corrupts events.
func (s *CheckInService) Toggle(ctx context.Context, t *model.Tournament, rk ResourceKind, id, actorID uint64) (Status, error) {
	c, ident, err := s.resolve(ctx, t, rk, id)
	if err != nil {
		return Status{}, err
	}
	if s.opts.locker != nil {
		unlock, err := s.opts.locker.Lock(ctx, "checkin:toggle:"+ident.Barcode)
		if err != nil {
			s.opts.logger.Warn("toggle lock unavailable; continuing unlocked",
				"barcode", ident.Barcode, "error", err)
		} else {
			defer unlock()
		}
	}
	current, err := s.currentStatus(ctx, t, rk, ident)
	if err != nil {
		return Status{}, err
	}
	if err := s.record(ctx, t, rk, ident, !current, actorID); err != nil {
		return Status{}, err
	}
	return Status{Checkable: *c, Identifier: *ident, Checked: !current}, nil
}

// CreateIdentifiers attaches identifiers to the listed checkables. Every
// id must exist in the tournament; otherwise nothing is created. The
// returned statuses are always unchecked.
func (s *CheckInService) CreateIdentifiers(ctx context.Context, t *model.Tournament, rk ResourceKind, ids []uint64, actorID uint64) ([]Status, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("create identifiers: no %s given: %w", rk.Collection, repository.ErrNotFound)
	}
	set := make([]model.Checkable, 0, len(ids))
	for _, id := range ids {
		c, err := s.checkables.FindCheckable(ctx, rk.Kind, t.ID, id)
		if err != nil {
			return nil, fmt.Errorf("%s %d: %w", rk.Kind, id, err)
		}
		set = append(set, *c)
	}
	return s.createFor(ctx, t, rk, set, actorID)
}

// CreateAllIdentifiers attaches identifiers to every checkable of the kind
// in the tournament that lacks one.
func (s *CheckInService) CreateAllIdentifiers(ctx context.Context, t *model.Tournament, rk ResourceKind, actorID uint64) ([]Status, error) {
	set, err := s.checkables.ListCheckables(ctx, rk.Kind, t.ID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", rk.Collection, err)
	}
	return s.createFor(ctx, t, rk, set, actorID)
}

func (s *CheckInService) createFor(ctx context.Context, t *model.Tournament, rk ResourceKind, set []model.Checkable, actorID uint64) ([]Status, error) {
	results, err := s.registry.CreateIdentifiers(ctx, rk.Kind, set)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]model.Checkable, len(set))
	for _, c := range set {
		byID[c.ID] = c
	}
	out := make([]Status, 0, len(results))
	var created []string
	for _, res := range results {
		out = append(out, Status{Checkable: byID[res.Identifier.CheckableID], Identifier: res.Identifier})
		if res.Created {
			created = append(created, res.Identifier.Barcode)
		}
	}
	if len(created) > 0 {
		s.opts.logger.Info("check-in identifiers created",
			"tournament", t.Slug, "kind", rk.Kind, "created", len(created), "actor_id", actorID)
		s.opts.metrics.AddIdentifiersCreated(string(rk.Kind), len(created))
		s.broadcast(t, rk, created, false)
	}
	return out, nil
}

func (s *CheckInService) currentStatus(ctx context.Context, t *model.Tournament, rk ResourceKind, ident *model.Identifier) (bool, error) {
	window, err := s.Window(ctx, t, rk)
	if err != nil {
		return false, err
	}
	return s.registry.CurrentStatus(ctx, ident.ID, window)
}

func (s *CheckInService) record(ctx context.Context, t *model.Tournament, rk ResourceKind, ident *model.Identifier, state bool, actorID uint64) error {
	if _, err := s.registry.RecordEvent(ctx, *ident, state, actorID, time.Time{}); err != nil {
		return err
	}
	s.opts.metrics.IncrementCheckIn(string(rk.Kind), state)
	s.broadcast(t, rk, []string{ident.Barcode}, state)
	return nil
}

func (s *CheckInService) broadcast(t *model.Tournament, rk ResourceKind, barcodes []string, status bool) {
	s.dispatcher.Dispatch(model.CheckInBroadcast{
		TournamentID:   t.ID,
		TournamentSlug: t.Slug,
		Barcodes:       barcodes,
		Status:         status,
		Type:           rk.Family,
		Kind:           string(rk.Kind),
	})
}

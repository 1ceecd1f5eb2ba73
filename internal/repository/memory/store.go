// Package memory provides an in-memory implementation of every store the
// services depend on. It backs the service and handler tests and the
// APP_STORE=memory mode used for local demos. It favours clarity over
// performance; a single mutex guards all state.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/tournament-checkin/internal/model"
	"github.com/iliyamo/tournament-checkin/internal/repository"
)

type ownerKey struct {
	kind model.CheckableKind
	id   uint64
}

type prefKey struct {
	tournamentID uint64
	key          model.PrefKey
}

// Store holds tournaments, rounds, checkables, identifiers, events,
// preferences, pairings and raw scores.
type Store struct {
	mu sync.RWMutex

	tournaments map[uint64]*model.Tournament
	rounds      map[uint64]model.Round
	checkables  map[ownerKey]model.Checkable
	prefs       map[prefKey]string
	pairings    map[uint64][]model.Pairing
	scores      map[uint64]map[model.StandingsSubject][]model.ScoreRecord

	identifiers map[ownerKey]model.Identifier
	barcodes    map[string]ownerKey
	events      []model.CheckInEvent

	nextID    uint64
	appendErr error
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		tournaments: make(map[uint64]*model.Tournament),
		rounds:      make(map[uint64]model.Round),
		checkables:  make(map[ownerKey]model.Checkable),
		prefs:       make(map[prefKey]string),
		pairings:    make(map[uint64][]model.Pairing),
		scores:      make(map[uint64]map[model.StandingsSubject][]model.ScoreRecord),
		identifiers: make(map[ownerKey]model.Identifier),
		barcodes:    make(map[string]ownerKey),
	}
}

func (s *Store) id() uint64 {
	s.nextID++
	return s.nextID
}

// --- seeding -------------------------------------------------------------

// AddTournament stores t, assigning an ID when t.ID is zero.
func (s *Store) AddTournament(t model.Tournament) *model.Tournament {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == 0 {
		t.ID = s.id()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	cp := t
	s.tournaments[t.ID] = &cp
	return &t
}

// AddRound stores r, assigning an ID when r.ID is zero.
func (s *Store) AddRound(r model.Round) model.Round {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = s.id()
	}
	if r.DrawStatus == "" {
		r.DrawStatus = model.DrawNone
	}
	s.rounds[r.ID] = r
	return r
}

// UpdateRound replaces a stored round.
func (s *Store) UpdateRound(r model.Round) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds[r.ID] = r
}

// SetCurrentRound points the tournament at roundID.
func (s *Store) SetCurrentRound(tournamentID, roundID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tournaments[tournamentID]; ok {
		id := roundID
		t.CurrentRoundID = &id
	}
}

// AddCheckable stores c, assigning an ID when c.ID is zero.
func (s *Store) AddCheckable(c model.Checkable) model.Checkable {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.id()
	}
	s.checkables[ownerKey{c.Kind, c.ID}] = c
	return c
}

// SetPairings replaces the draw of a round.
func (s *Store) SetPairings(roundID uint64, ps []model.Pairing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairings[roundID] = append([]model.Pairing(nil), ps...)
}

// SetScores replaces the raw scores of a tournament for subject.
func (s *Store) SetScores(tournamentID uint64, subject model.StandingsSubject, recs []model.ScoreRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scores[tournamentID] == nil {
		s.scores[tournamentID] = make(map[model.StandingsSubject][]model.ScoreRecord)
	}
	s.scores[tournamentID][subject] = append([]model.ScoreRecord(nil), recs...)
}

// FailAppends makes every subsequent Append return err; nil restores
// normal behaviour.
func (s *Store) FailAppends(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendErr = err
}

// Events returns a copy of the whole event log in append order.
func (s *Store) Events() []model.CheckInEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.CheckInEvent(nil), s.events...)
}

// --- tournaments and rounds ---------------------------------------------

func (s *Store) GetBySlug(_ context.Context, slug string) (*model.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tournaments {
		if t.Slug == slug {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) GetRound(_ context.Context, tournamentID, roundID uint64) (*model.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rounds[roundID]
	if !ok || r.TournamentID != tournamentID {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (s *Store) ListRounds(_ context.Context, tournamentID uint64) ([]model.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Round
	for _, r := range s.rounds {
		if r.TournamentID == tournamentID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Seq != out[j].Seq {
			return out[i].Seq < out[j].Seq
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// --- preferences ---------------------------------------------------------

func (s *Store) GetPreference(_ context.Context, tournamentID uint64, key model.PrefKey) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.prefs[prefKey{tournamentID, key}]
	return v, ok, nil
}

func (s *Store) SetPreference(_ context.Context, tournamentID uint64, key model.PrefKey, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[prefKey{tournamentID, key}] = value
	return nil
}

// --- checkables ----------------------------------------------------------

func (s *Store) FindCheckable(_ context.Context, kind model.CheckableKind, tournamentID, id uint64) (*model.Checkable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.checkables[ownerKey{kind, id}]
	if !ok || c.TournamentID != tournamentID {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (s *Store) ListCheckables(_ context.Context, kind model.CheckableKind, tournamentID uint64) ([]model.Checkable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Checkable
	for k, c := range s.checkables {
		if k.kind == kind && c.TournamentID == tournamentID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- identifiers ---------------------------------------------------------

func (s *Store) GetByOwner(_ context.Context, kind model.CheckableKind, checkableID uint64) (*model.Identifier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ident, ok := s.identifiers[ownerKey{kind, checkableID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &ident, nil
}

func (s *Store) GetByBarcode(_ context.Context, barcode string) (*model.Identifier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.barcodes[barcode]
	if !ok {
		return nil, repository.ErrNotFound
	}
	ident := s.identifiers[owner]
	return &ident, nil
}

// WithTx serialises identifier transactions behind the store mutex and
// stages inserts until fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.IdentifierTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &identifierTx{store: s, staged: make(map[ownerKey]model.Identifier), barcodes: make(map[string]bool)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for k, ident := range tx.staged {
		s.identifiers[k] = ident
		s.barcodes[ident.Barcode] = k
	}
	return nil
}

type identifierTx struct {
	store    *Store
	staged   map[ownerKey]model.Identifier
	barcodes map[string]bool
}

func (t *identifierTx) IdentifierFor(_ context.Context, kind model.CheckableKind, checkableID uint64) (*model.Identifier, error) {
	k := ownerKey{kind, checkableID}
	if ident, ok := t.store.identifiers[k]; ok {
		return &ident, nil
	}
	if ident, ok := t.staged[k]; ok {
		return &ident, nil
	}
	return nil, repository.ErrNotFound
}

// LockedIdentifierFor is IdentifierFor; WithTx already holds the store
// mutex.
func (t *identifierTx) LockedIdentifierFor(ctx context.Context, kind model.CheckableKind, checkableID uint64) (*model.Identifier, error) {
	return t.IdentifierFor(ctx, kind, checkableID)
}

func (t *identifierTx) InsertIdentifier(_ context.Context, ident *model.Identifier) (bool, error) {
	k := ownerKey{ident.Kind, ident.CheckableID}
	if _, ok := t.store.identifiers[k]; ok {
		return false, nil
	}
	if _, ok := t.staged[k]; ok {
		return false, nil
	}
	if _, ok := t.store.barcodes[ident.Barcode]; ok || t.barcodes[ident.Barcode] {
		return false, nil
	}
	ident.ID = t.store.id()
	t.staged[k] = *ident
	t.barcodes[ident.Barcode] = true
	return true, nil
}

// --- events --------------------------------------------------------------

func (s *Store) Append(_ context.Context, ev *model.CheckInEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	ev.ID = s.id()
	s.events = append(s.events, *ev)
	return nil
}

func (s *Store) Recent(_ context.Context, identifierID uint64, limit int) ([]model.CheckInEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 1
	}
	var out []model.CheckInEvent
	for _, ev := range s.events {
		if ev.IdentifierID == identifierID {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].RecordedAt.After(out[j].RecordedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- pairings and scores -------------------------------------------------

func (s *Store) ListByRound(_ context.Context, roundID uint64) ([]model.Pairing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Pairing{}, s.pairings[roundID]...), nil
}

func (s *Store) RawScores(_ context.Context, tournamentID uint64, subject model.StandingsSubject) ([]model.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.ScoreRecord(nil), s.scores[tournamentID][subject]...), nil
}

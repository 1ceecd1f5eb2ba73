package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/iliyamo/tournament-checkin/internal/config"
	"github.com/iliyamo/tournament-checkin/internal/database"
	"github.com/iliyamo/tournament-checkin/internal/handler"
	"github.com/iliyamo/tournament-checkin/internal/model"
	"github.com/iliyamo/tournament-checkin/internal/repository"
	"github.com/iliyamo/tournament-checkin/internal/repository/memory"
	"github.com/iliyamo/tournament-checkin/internal/service"
)

// stores is every persistence dependency of the services and handlers,
// backed either by MySQL or by the in-memory store.
type stores struct {
	tournaments handler.TournamentReader
	rounds      service.RoundReader
	prefs       handler.PreferenceStore
	checkables  service.CheckableStore
	identifiers service.IdentifierStore
	events      service.EventStore
	pairings    service.PairingStore
	scores      service.ScoreSource
	pinger      handler.Pinger
	close       func()
}

func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (*stores, error) {
	switch cfg.Store {
	case config.StoreMemory:
		mem := memory.New()
		seedDemo(mem)
		logger.Warn("using in-memory store; data is lost on exit", "tournament", "demo")
		return &stores{
			tournaments: mem, rounds: mem, prefs: mem, checkables: mem,
			identifiers: mem, events: mem, pairings: mem, scores: mem,
			close: func() {},
		}, nil
	case config.StoreMySQL:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if err := database.Migrate(ctx, db); err != nil {
				_ = db.Close()
				return nil, err
			}
			logger.Info("schema applied")
		}
		return mysqlStores(db), nil
	}
	return nil, fmt.Errorf("unknown APP_STORE %q", cfg.Store)
}

func mysqlStores(db *sql.DB) *stores {
	tournaments := repository.NewTournamentRepo(db)
	return &stores{
		tournaments: tournaments,
		rounds:      tournaments,
		prefs:       repository.NewPreferenceRepo(db),
		checkables:  repository.NewCheckableRepo(db),
		identifiers: repository.NewIdentifierRepo(db),
		events:      repository.NewCheckInEventRepo(db),
		pairings:    repository.NewPairingRepo(db),
		scores:      repository.NewScoreRepo(db),
		pinger:      db,
		close:       func() { _ = db.Close() },
	}
}

// seedDemo gives the memory store a small tournament to click through.
func seedDemo(s *memory.Store) {
	t := s.AddTournament(model.Tournament{Slug: "demo", Name: "Demo Open"})
	r1 := s.AddRound(model.Round{TournamentID: t.ID, Seq: 1, Name: "Round 1", DrawStatus: model.DrawReleased, ResultsReleased: true})
	r2 := s.AddRound(model.Round{TournamentID: t.ID, Seq: 2, Name: "Round 2", DrawStatus: model.DrawReleased})
	s.SetCurrentRound(t.ID, r2.ID)

	for _, name := range []string{"B1", "B2"} {
		s.AddCheckable(model.Checkable{TournamentID: t.ID, Kind: model.KindVenue, Name: name})
	}
	for _, name := range []string{"Alex Chair", "Sam Wing"} {
		s.AddCheckable(model.Checkable{TournamentID: t.ID, Kind: model.KindAdjudicator, Name: name})
	}
	var speakers []model.ScoreRecord
	for i, name := range []string{"Ada", "Bo", "Cy", "Di"} {
		sp := s.AddCheckable(model.Checkable{TournamentID: t.ID, Kind: model.KindSpeaker, Name: name})
		speakers = append(speakers, model.ScoreRecord{EntityID: sp.ID, Name: name, Score: float64(150 + i%2)})
	}
	s.SetScores(t.ID, model.SubjectSpeakers, speakers)
	s.SetPairings(r1.ID, []model.Pairing{{DebateID: 1, RoundID: r1.ID, VenueName: "B1"}})
	s.SetPairings(r2.ID, []model.Pairing{{DebateID: 2, RoundID: r2.ID, VenueName: "B2"}})
}

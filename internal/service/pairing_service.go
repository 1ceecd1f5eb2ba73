package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/tournament-checkin/internal/model"
	"github.com/iliyamo/tournament-checkin/internal/repository"
)

// RoundReader reads rounds of a tournament.
type RoundReader interface {
	GetRound(ctx context.Context, tournamentID, roundID uint64) (*model.Round, error)
	ListRounds(ctx context.Context, tournamentID uint64) ([]model.Round, error)
}

// PairingStore loads a round's draw.
type PairingStore interface {
	ListByRound(ctx context.Context, roundID uint64) ([]model.Pairing, error)
}

// PairingService gates a round's draw behind the public_draw preference.
type PairingService struct {
	rounds   RoundReader
	prefs    PreferenceReader
	pairings PairingStore
	opts     options
}

// NewPairingService constructs a PairingService.
func NewPairingService(rounds RoundReader, prefs PreferenceReader, pairings PairingStore, opts ...Option) *PairingService {
	return &PairingService{rounds: rounds, prefs: prefs, pairings: pairings, opts: buildOptions(opts)}
}

// RoundPairings returns the draw of a round of t if the requester may see
// it. The preference and the round are read fresh on every call. An
// unknown round is ErrNotFound; a gated one is ErrPermissionDenied.
func (s *PairingService) RoundPairings(ctx context.Context, t *model.Tournament, roundID uint64, who model.Requester) ([]model.Pairing, error) {
	var (
		round *model.Round
		pref  model.ReleasePreference
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.rounds.GetRound(gctx, t.ID, roundID)
		if err != nil {
			return fmt.Errorf("round %d: %w", roundID, err)
		}
		round = r
		return nil
	})
	g.Go(func() error {
		p, err := releasePreference(gctx, s.prefs, t.ID, model.PrefPublicDraw)
		if err != nil {
			return fmt.Errorf("load %s: %w", model.PrefPublicDraw, err)
		}
		pref = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !Visible(pref, who.IsAdministrator(), t.IsCurrentRound(round.ID), round.DrawReleased()) {
		s.opts.metrics.IncrementGateDenial("pairings")
		return nil, fmt.Errorf("pairings of round %d: %w", round.ID, repository.ErrPermissionDenied)
	}

	ps, err := s.pairings.ListByRound(ctx, round.ID)
	if err != nil {
		return nil, fmt.Errorf("load pairings of round %d: %w", round.ID, err)
	}
	return ps, nil
}

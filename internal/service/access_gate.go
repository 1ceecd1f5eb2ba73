package service

import (
	"context"

	"github.com/iliyamo/tournament-checkin/internal/model"
)

// Visible decides whether a gated resource of one round is shown to the
// requester. Administrators always see everything. For everyone else:
//
//	off          never
//	current      only the current round, once released
//	all-released any released round
//
// roundReleased is resource specific: the draw status for pairings, the
// results flag for standings. The function is pure; callers load the
// preference and round state fresh on every request.
func Visible(pref model.ReleasePreference, isAdministrator, roundIsCurrent, roundReleased bool) bool {
	if isAdministrator {
		return true
	}
	switch pref {
	case model.ReleaseCurrent:
		return roundIsCurrent && roundReleased
	case model.ReleaseAllReleased:
		return roundReleased
	default:
		return false
	}
}

// PreferenceReader reads tournament preferences.
type PreferenceReader interface {
	GetPreference(ctx context.Context, tournamentID uint64, key model.PrefKey) (string, bool, error)
}

func releasePreference(ctx context.Context, prefs PreferenceReader, tournamentID uint64, key model.PrefKey) (model.ReleasePreference, error) {
	v, ok, err := prefs.GetPreference(ctx, tournamentID, key)
	if err != nil {
		return model.ReleaseOff, err
	}
	if !ok {
		return model.ReleaseOff, nil
	}
	return model.ParseReleasePreference(v), nil
}

package model

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// PrefKey names a tournament preference row.
type PrefKey string

const (
	PrefPublicDraw          PrefKey = "public_draw"
	PrefSpeakerTabReleased  PrefKey = "speaker_tab_released"
	PrefTeamTabReleased     PrefKey = "team_tab_released"
	PrefCheckInWindowPeople PrefKey = "checkin_window_people"
	PrefCheckInWindowVenues PrefKey = "checkin_window_venues"
)

// KnownPrefKeys lists every preference this service reads. Keys outside
// this set are rejected by the preference endpoint.
var KnownPrefKeys = map[PrefKey]bool{
	PrefPublicDraw:          true,
	PrefSpeakerTabReleased:  true,
	PrefTeamTabReleased:     true,
	PrefCheckInWindowPeople: true,
	PrefCheckInWindowVenues: true,
}

// ReleasePreference controls when a gated resource becomes visible to
// non-administrative requesters.
type ReleasePreference string

const (
	ReleaseOff         ReleasePreference = "off"
	ReleaseCurrent     ReleasePreference = "current"
	ReleaseAllReleased ReleasePreference = "all-released"
)

// ParseReleasePreference maps a stored value to a ReleasePreference.
// Anything unrecognised, including the empty string, is treated as off.
func ParseReleasePreference(v string) ReleasePreference {
	switch ReleasePreference(strings.ToLower(strings.TrimSpace(v))) {
	case ReleaseCurrent:
		return ReleaseCurrent
	case ReleaseAllReleased:
		return ReleaseAllReleased
	default:
		return ReleaseOff
	}
}

// IsReleasePrefKey reports whether key holds a ReleasePreference value
// rather than a numeric window.
func IsReleasePrefKey(key PrefKey) bool {
	switch key {
	case PrefPublicDraw, PrefSpeakerTabReleased, PrefTeamTabReleased:
		return true
	}
	return false
}

// Preference is one row of the `tournament_preferences` table.
type Preference struct {
	TournamentID uint64  // tournament_preferences.tournament_id
	Key          PrefKey // tournament_preferences.pref_key
	Value        string  // tournament_preferences.value
}

// maxWindowHours is the largest number of hours a time.Duration holds.
var maxWindowHours = float64(math.MaxInt64) / float64(time.Hour)

// ParseWindowHours converts a window preference value (hours, decimal) to
// a duration. It reports false for anything that is not a finite positive
// number of hours representable as a time.Duration.
func ParseWindowHours(v string) (time.Duration, bool) {
	hours, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(hours) || math.IsInf(hours, 0) || hours <= 0 || hours >= maxWindowHours {
		return 0, false
	}
	d := time.Duration(hours * float64(time.Hour))
	if d <= 0 {
		return 0, false
	}
	return d, true
}

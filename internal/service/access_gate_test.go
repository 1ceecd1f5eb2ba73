package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/tournament-checkin/internal/model"
)

func TestVisible(t *testing.T) {
	tests := []struct {
		name     string
		pref     model.ReleasePreference
		admin    bool
		current  bool
		released bool
		want     bool
	}{
		{"admin sees unreleased past round with gate off", model.ReleaseOff, true, false, false, true},
		{"admin sees current released round", model.ReleaseCurrent, true, true, true, true},
		{"off hides released current round", model.ReleaseOff, false, true, true, false},
		{"current shows released current round", model.ReleaseCurrent, false, true, true, true},
		{"current hides unreleased current round", model.ReleaseCurrent, false, true, false, false},
		{"current hides released past round", model.ReleaseCurrent, false, false, true, false},
		{"all-released shows released past round", model.ReleaseAllReleased, false, false, true, true},
		{"all-released hides unreleased round", model.ReleaseAllReleased, false, true, false, false},
		{"unknown preference fails closed", model.ReleasePreference("sometimes"), false, true, true, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Visible(tc.pref, tc.admin, tc.current, tc.released))
		})
	}
}

func TestParseReleasePreference(t *testing.T) {
	assert.Equal(t, model.ReleaseCurrent, model.ParseReleasePreference("current"))
	assert.Equal(t, model.ReleaseAllReleased, model.ParseReleasePreference("all-released"))
	assert.Equal(t, model.ReleaseOff, model.ParseReleasePreference(""))
	assert.Equal(t, model.ReleaseOff, model.ParseReleasePreference("yes"))
}

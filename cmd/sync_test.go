package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jobcal/internal/models"
)

func TestScheduleSpec(t *testing.T) {
	const configured = "*/15 * * * *"
	tests := []struct {
		name     string
		once     bool
		schedule string
		watchSet bool
		watch    int
		want     string
	}{
		{"default is a single cycle", false, "", false, 0, ""},
		{"explicit schedule", false, "0 9 * * *", false, 0, "0 9 * * *"},
		{"schedule beats watch", false, "0 9 * * *", true, 60, "0 9 * * *"},
		{"watch interval", false, "", true, 60, "@every 60s"},
		{"watch without interval uses config", false, "", true, 0, configured},
		{"once beats schedule", true, "0 9 * * *", true, 60, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scheduleSpec(tt.once, tt.schedule, tt.watchSet, tt.watch, configured))
		})
	}
}

func TestChoicesListsKnownValues(t *testing.T) {
	assert.Equal(t, "interview (面接), briefing (説明会), other (その他)", choices(models.EventTypes))
	assert.Equal(t, "scheduled (予定), cancelled (中止), done (完了)", choices(models.Statuses))
}

package calendar

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"jobcal/internal/models"
)

// ErrNoEvent is returned when a click payload carries no event.
var ErrNoEvent = errors.New("click payload has no event attached")

// Entry is the record handed to a calendar widget or calendar sink. The full
// domain event rides along in ExtendedProps.
type Entry struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Start         time.Time    `json:"start"`
	End           *time.Time   `json:"end,omitempty"`
	ExtendedProps models.Event `json:"extendedProps"`
}

// ToEntry maps an event to a calendar entry. The title is the company name
// and the event title joined by a space, trimmed.
func ToEntry(ev models.Event) Entry {
	e := Entry{
		ID:            strconv.FormatInt(ev.ID, 10),
		Title:         DisplayTitle(ev),
		Start:         ev.StartAt,
		ExtendedProps: ev.Clone(),
	}
	if ev.EndAt != nil {
		end := *ev.EndAt
		e.End = &end
	}
	return e
}

// ToEntries maps every event, preserving order.
func ToEntries(events []models.Event) []Entry {
	out := make([]Entry, 0, len(events))
	for _, ev := range events {
		out = append(out, ToEntry(ev))
	}
	return out
}

// DisplayTitle returns "<company> <title>", or just the title when the
// company is unknown.
func DisplayTitle(ev models.Event) string {
	company := strings.TrimSpace(ev.CompanyName)
	if company == "" {
		return strings.TrimSpace(ev.Title)
	}
	return strings.TrimSpace(company + " " + ev.Title)
}

// ClickPayload is what a calendar widget reports when an entry is clicked.
// Widgets that round-trip JSON hand back Raw instead of a typed event.
type ClickPayload struct {
	ID            string          `json:"id"`
	ExtendedProps *models.Event   `json:"-"`
	Raw           json.RawMessage `json:"extendedProps,omitempty"`
}

// FromClick returns the event attached to a clicked entry. Nothing is
// recomputed from the other payload fields.
func FromClick(p ClickPayload) (models.Event, error) {
	if p.ExtendedProps != nil {
		return p.ExtendedProps.Clone(), nil
	}
	if len(p.Raw) == 0 || string(p.Raw) == "null" {
		return models.Event{}, ErrNoEvent
	}
	var ev models.Event
	if err := json.Unmarshal(p.Raw, &ev); err != nil {
		return models.Event{}, fmt.Errorf("failed to decode clicked event: %w", err)
	}
	return ev, nil
}

// ClickOf builds the payload a widget would report for e.
func ClickOf(e Entry) ClickPayload {
	ev := e.ExtendedProps
	return ClickPayload{ID: e.ID, ExtendedProps: &ev}
}

// UID returns a stable calendar UID for an event id.
func UID(id int64) string {
	return fmt.Sprintf("jobcal-event-%d@jobcal", id)
}

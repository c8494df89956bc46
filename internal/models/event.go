package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Event represents a scheduled job-hunting activity as returned by the backend.
// The backend is authoritative for every field; the client only edits the
// fields listed in Draft.
type Event struct {
	ID          int64      // Unique, immutable identifier
	Title       string     // Display title, never empty on the server
	CompanyName string     // Optional company the event belongs to
	EventType   EventType  // interview, briefing or other
	Status      Status     // scheduled, cancelled or done
	StartAt     time.Time  // Required start time
	EndAt       *time.Time // Optional end time
	Location    string     // Optional location
	Memo        string     // Optional free-form note
	Source      string     // Provenance tag (e.g. "auto", "manual"), read-only
	EmailID     *int64     // Originating message, if any
	CreatedAt   time.Time  // Server-managed
	UpdatedAt   time.Time  // Server-managed
}

// wireEvent is the JSON shape used by the backend.
type wireEvent struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	CompanyName *string `json:"company_name"`
	EventType   string  `json:"event_type"`
	Status      string  `json:"status"`
	StartAt     *string `json:"start_at"`
	EndAt       *string `json:"end_at"`
	Location    *string `json:"location"`
	Memo        *string `json:"memo"`
	Source      string  `json:"source"`
	EmailID     *int64  `json:"email_id"`
	CreatedAt   *string `json:"created_at,omitempty"`
	UpdatedAt   *string `json:"updated_at,omitempty"`
}

// UnmarshalJSON decodes the backend representation, accepting the timestamp
// layouts the backend is known to emit.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	ev := Event{
		ID:          w.ID,
		Title:       w.Title,
		CompanyName: deref(w.CompanyName),
		EventType:   ParseEventType(w.EventType),
		Status:      ParseStatus(w.Status),
		Location:    deref(w.Location),
		Memo:        deref(w.Memo),
		Source:      w.Source,
		EmailID:     w.EmailID,
	}

	var err error
	if ev.StartAt, err = parseOptional(w.StartAt); err != nil {
		return fmt.Errorf("event %d: start_at: %w", w.ID, err)
	}
	if w.EndAt != nil && *w.EndAt != "" {
		end, err := ParseTimestamp(*w.EndAt)
		if err != nil {
			return fmt.Errorf("event %d: end_at: %w", w.ID, err)
		}
		ev.EndAt = &end
	}
	if ev.CreatedAt, err = parseOptional(w.CreatedAt); err != nil {
		return fmt.Errorf("event %d: created_at: %w", w.ID, err)
	}
	if ev.UpdatedAt, err = parseOptional(w.UpdatedAt); err != nil {
		return fmt.Errorf("event %d: updated_at: %w", w.ID, err)
	}

	*e = ev
	return nil
}

// MarshalJSON encodes the event in the backend representation.
func (e Event) MarshalJSON() ([]byte, error) {
	w := wireEvent{
		ID:          e.ID,
		Title:       e.Title,
		CompanyName: optional(e.CompanyName),
		EventType:   string(e.EventType),
		Status:      string(e.Status),
		Location:    optional(e.Location),
		Memo:        optional(e.Memo),
		Source:      e.Source,
		EmailID:     e.EmailID,
	}
	if !e.StartAt.IsZero() {
		s := e.StartAt.Format(time.RFC3339)
		w.StartAt = &s
	}
	if e.EndAt != nil {
		s := e.EndAt.Format(time.RFC3339)
		w.EndAt = &s
	}
	if !e.CreatedAt.IsZero() {
		s := e.CreatedAt.Format(time.RFC3339Nano)
		w.CreatedAt = &s
	}
	if !e.UpdatedAt.IsZero() {
		s := e.UpdatedAt.Format(time.RFC3339Nano)
		w.UpdatedAt = &s
	}
	return json.Marshal(w)
}

// Clone returns a deep copy of the event so that callers can hold on to it
// without sharing the pointer fields.
func (e Event) Clone() Event {
	c := e
	if e.EndAt != nil {
		end := *e.EndAt
		c.EndAt = &end
	}
	if e.EmailID != nil {
		id := *e.EmailID
		c.EmailID = &id
	}
	return c
}

// Equal reports whether two events carry identical field values.
func (e Event) Equal(o Event) bool {
	if e.ID != o.ID || e.Title != o.Title || e.CompanyName != o.CompanyName ||
		e.EventType != o.EventType || e.Status != o.Status ||
		e.Location != o.Location || e.Memo != o.Memo || e.Source != o.Source {
		return false
	}
	if !e.StartAt.Equal(o.StartAt) || !e.CreatedAt.Equal(o.CreatedAt) || !e.UpdatedAt.Equal(o.UpdatedAt) {
		return false
	}
	if (e.EndAt == nil) != (o.EndAt == nil) || (e.EndAt != nil && !e.EndAt.Equal(*o.EndAt)) {
		return false
	}
	if (e.EmailID == nil) != (o.EmailID == nil) || (e.EmailID != nil && *e.EmailID != *o.EmailID) {
		return false
	}
	return true
}

// timestampLayouts lists the layouts accepted when decoding backend times.
// Naive layouts are interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses a backend timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func parseOptional(s *string) (time.Time, error) {
	if s == nil || *s == "" {
		return time.Time{}, nil
	}
	return ParseTimestamp(*s)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

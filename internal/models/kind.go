package models

import "strings"

// EventType is the kind of job-hunting activity. The string value is the
// wire value the backend stores.
type EventType string

const (
	EventTypeInterview EventType = "interview"
	EventTypeBriefing  EventType = "briefing"
	EventTypeOther     EventType = "other"
)

// EventTypes lists the known event types in display order.
var EventTypes = []EventType{EventTypeInterview, EventTypeBriefing, EventTypeOther}

var eventTypeLabels = map[EventType]string{
	EventTypeInterview: "面接",
	EventTypeBriefing:  "説明会",
	EventTypeOther:     "その他",
}

// ParseEventType maps a wire value or display label to an EventType.
// Unknown values are returned verbatim so server data is never lost; use
// Valid to check them.
func ParseEventType(s string) EventType {
	s = strings.TrimSpace(s)
	for t, label := range eventTypeLabels {
		if strings.EqualFold(s, string(t)) || s == label {
			return t
		}
	}
	// The Gmail importer also tags 選考 mails as interviews.
	if s == "選考" {
		return EventTypeInterview
	}
	return EventType(s)
}

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	_, ok := eventTypeLabels[t]
	return ok
}

// Label returns the display label, or the raw value for unknown types.
func (t EventType) Label() string {
	if l, ok := eventTypeLabels[t]; ok {
		return l
	}
	return string(t)
}

func (t EventType) String() string { return string(t) }

// Status is the lifecycle state of an event.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCancelled Status = "cancelled"
	StatusDone      Status = "done"
)

// Statuses lists the known statuses in display order.
var Statuses = []Status{StatusScheduled, StatusCancelled, StatusDone}

var statusLabels = map[Status]string{
	StatusScheduled: "予定",
	StatusCancelled: "中止",
	StatusDone:      "完了",
}

// ParseStatus maps a wire value or display label to a Status. Unknown values
// are returned verbatim.
func ParseStatus(s string) Status {
	s = strings.TrimSpace(s)
	for st, label := range statusLabels {
		if strings.EqualFold(s, string(st)) || s == label {
			return st
		}
	}
	if strings.EqualFold(s, "canceled") {
		return StatusCancelled
	}
	return Status(s)
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the display label, or the raw value for unknown statuses.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

func (s Status) String() string { return string(s) }

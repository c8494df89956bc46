package diff

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"jobcal/internal/models"
)

var (
	ErrStartRequired = errors.New("start time is required")
	ErrTitleRequired = errors.New("title is required")
	ErrEmptyTime     = errors.New("empty time")
	ErrInvalidTime   = errors.New("invalid time")
	ErrInvalidValue  = errors.New("invalid value")
)

// ValidationError reports a draft field that cannot be submitted.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewDraft creates a draft holding the editable fields of ev, with times
// rendered in loc.
func NewDraft(ev models.Event, loc *time.Location) models.Draft {
	d := models.Draft{
		ID:          ev.ID,
		CompanyName: ev.CompanyName,
		Title:       ev.Title,
		EventType:   string(ev.EventType),
		Status:      string(ev.Status),
		StartAt:     ToLocalEdit(ev.StartAt, loc),
		Location:    ev.Location,
		Memo:        ev.Memo,
	}
	if ev.EndAt != nil {
		d.EndAt = ToLocalEdit(*ev.EndAt, loc)
	}
	return d
}

// Diff returns the fields of draft that differ from orig. Cleared optional
// fields map to nil so the backend sets them to null; unchanged fields are
// omitted. A draft whose start time is empty or unparseable is rejected
// before anything else is compared.
func Diff(orig models.Event, draft models.Draft, loc *time.Location) (models.Patch, error) {
	start, err := FromLocalEdit(draft.StartAt, loc)
	if err != nil {
		if errors.Is(err, ErrEmptyTime) {
			err = ErrStartRequired
		}
		return nil, &ValidationError{Field: "start_at", Err: err}
	}

	patch := models.Patch{}

	diffOptionalString(patch, "company_name", orig.CompanyName, draft.CompanyName)

	if title := strings.TrimSpace(draft.Title); title != strings.TrimSpace(orig.Title) {
		if title == "" {
			return nil, &ValidationError{Field: "title", Err: ErrTitleRequired}
		}
		patch["title"] = title
	}

	if t := models.ParseEventType(draft.EventType); t != orig.EventType {
		if !t.Valid() {
			return nil, &ValidationError{Field: "event_type", Err: fmt.Errorf("%w: %q", ErrInvalidValue, draft.EventType)}
		}
		patch["event_type"] = string(t)
	}

	if st := models.ParseStatus(draft.Status); st != orig.Status {
		if !st.Valid() {
			return nil, &ValidationError{Field: "status", Err: fmt.Errorf("%w: %q", ErrInvalidValue, draft.Status)}
		}
		patch["status"] = string(st)
	}

	if !sameLocalMinute(start, orig.StartAt, loc) {
		patch["start_at"] = start.Format(time.RFC3339)
	}

	if strings.TrimSpace(draft.EndAt) == "" {
		if orig.EndAt != nil {
			patch["end_at"] = nil
		}
	} else {
		end, err := FromLocalEdit(draft.EndAt, loc)
		if err != nil {
			return nil, &ValidationError{Field: "end_at", Err: err}
		}
		if orig.EndAt == nil || !sameLocalMinute(end, *orig.EndAt, loc) {
			patch["end_at"] = end.Format(time.RFC3339)
		}
	}

	diffOptionalString(patch, "location", orig.Location, draft.Location)
	diffOptionalString(patch, "memo", orig.Memo, draft.Memo)

	return patch, nil
}

// diffOptionalString records a change to a nullable text field. Absent and
// empty are the same value; clearing sends an explicit nil.
func diffOptionalString(patch models.Patch, field, orig, draft string) {
	o, d := strings.TrimSpace(orig), strings.TrimSpace(draft)
	if o == d {
		return
	}
	if d == "" {
		patch[field] = nil
		return
	}
	patch[field] = d
}

// sameLocalMinute reports whether a and b are the same minute, either as
// instants or as wall time in loc. Wall times in a repeated DST hour map back
// to either offset, so an untouched draft must compare equal by its text.
func sameLocalMinute(a, b time.Time, loc *time.Location) bool {
	if a.Truncate(time.Minute).Equal(b.Truncate(time.Minute)) {
		return true
	}
	return !b.IsZero() && ToLocalEdit(a, loc) == ToLocalEdit(b, loc)
}

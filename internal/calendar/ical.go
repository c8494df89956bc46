package calendar

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"jobcal/internal/models"
)

const productID = "-//jobcal//EN"

// NewICal returns an empty VCALENDAR carrying the required properties.
func NewICal() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	return cal
}

// ToVEvent converts a calendar entry to a VEVENT component.
func ToVEvent(e Entry, stamp time.Time) *ical.Component {
	ev := e.ExtendedProps

	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, UID(ev.ID))
	ve.Props.SetText(ical.PropSummary, e.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, e.Start.UTC())
	if e.End != nil {
		ve.Props.SetDateTime(ical.PropDateTimeEnd, e.End.UTC())
	}
	if !ev.UpdatedAt.IsZero() {
		ve.Props.SetDateTime(ical.PropLastModified, ev.UpdatedAt.UTC())
	}
	if ev.Location != "" {
		ve.Props.SetText(ical.PropLocation, ev.Location)
	}
	if ev.Memo != "" {
		ve.Props.SetText(ical.PropDescription, ev.Memo)
	}
	if ev.EventType != "" {
		ve.Props.SetText(ical.PropCategories, ev.EventType.Label())
	}
	ve.Props.SetText(ical.PropStatus, icalStatus(ev.Status))
	return ve
}

// ToICal renders entries as a single VCALENDAR.
func ToICal(entries []Entry) *ical.Calendar {
	cal := NewICal()
	now := time.Now()
	for _, e := range entries {
		cal.Children = append(cal.Children, ToVEvent(e, now))
	}
	return cal
}

// WriteICS writes entries as an iCalendar stream.
func WriteICS(w io.Writer, entries []Entry) error {
	if err := ical.NewEncoder(w).Encode(ToICal(entries)); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

func icalStatus(s models.Status) string {
	switch s {
	case models.StatusCancelled:
		return "CANCELLED"
	case models.StatusScheduled, models.StatusDone:
		return "CONFIRMED"
	default:
		return "TENTATIVE"
	}
}

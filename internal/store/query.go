package store

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"jobcal/internal/models"
)

// SortKey orders a view by start time.
type SortKey string

const (
	SortDateAsc  SortKey = "dateAsc"
	SortDateDesc SortKey = "dateDesc"
)

// FilterAll disables the event type filter.
const FilterAll = "all"

// Query describes a derived view of the collection.
type Query struct {
	// Type is FilterAll (or empty) or an event type wire value.
	Type string
	// Text is matched case-insensitively against title and company name
	// concatenated.
	Text string
	Sort SortKey
}

// ParseSortKey accepts "dateAsc"/"dateDesc" as well as "asc"/"desc".
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dateasc", "asc":
		return SortDateAsc, nil
	case "datedesc", "desc":
		return SortDateDesc, nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// ParseFilter accepts "all", a wire value or a display label.
func ParseFilter(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, FilterAll) || s == "すべて" {
		return FilterAll, nil
	}
	t := models.ParseEventType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown event type %q", s)
	}
	return string(t), nil
}

var epoch = time.Unix(0, 0).UTC()

// Derive filters and sorts events according to q. It never modifies events
// and returns a fresh slice; equal start times keep their input order.
func Derive(events []models.Event, q Query) []models.Event {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	typ := q.Type
	if typ != "" && typ != FilterAll {
		typ = string(models.ParseEventType(typ))
	}

	out := make([]models.Event, 0, len(events))
	for _, ev := range events {
		if typ != "" && typ != FilterAll && string(ev.EventType) != typ {
			continue
		}
		if text != "" && !strings.Contains(strings.ToLower(ev.Title+ev.CompanyName), text) {
			continue
		}
		out = append(out, ev.Clone())
	}

	desc := q.Sort == SortDateDesc
	sort.SliceStable(out, func(i, j int) bool {
		a, b := sortTime(out[i]), sortTime(out[j])
		if desc {
			return a.After(b)
		}
		return a.Before(b)
	})
	return out
}

func sortTime(ev models.Event) time.Time {
	if ev.StartAt.IsZero() {
		return epoch
	}
	return ev.StartAt
}

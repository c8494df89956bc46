package google

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"jobcal/internal/calendar"
	"jobcal/internal/models"
)

var jst = time.FixedZone("JST", 9*3600)

func entry() calendar.Entry {
	return calendar.ToEntry(models.Event{
		ID:          7,
		Title:       "一次面接",
		CompanyName: "Sky株式会社",
		EventType:   models.EventTypeInterview,
		Status:      models.StatusScheduled,
		StartAt:     time.Date(2025, 12, 1, 10, 0, 0, 0, jst),
		Location:    "オンライン（Zoom）",
		Memo:        "持ち物：履歴書",
	})
}

func TestEventID(t *testing.T) {
	assert.Equal(t, "jobcal000007", EventID(7))
	assert.Equal(t, "jobcal1234567", EventID(1234567))
}

func TestToGoogleEvent(t *testing.T) {
	g := toGoogleEvent(entry())

	assert.Equal(t, "jobcal000007", g.Id)
	assert.Equal(t, "jobcal-event-7@jobcal", g.ICalUID)
	assert.Equal(t, "Sky株式会社 一次面接", g.Summary)
	assert.Equal(t, "持ち物：履歴書", g.Description)
	assert.Equal(t, "2025-12-01T10:00:00+09:00", g.Start.DateTime)
	// Events without an end get the default duration.
	assert.Equal(t, "2025-12-01T11:00:00+09:00", g.End.DateTime)
	assert.Equal(t, "confirmed", g.Status)
	assert.Equal(t, "7", g.ExtendedProperties.Private["jobcal_id"])
	assert.Equal(t, "interview", g.ExtendedProperties.Private["jobcal_type"])
}

func TestGoogleStatus(t *testing.T) {
	assert.Equal(t, "tentative", googleStatus(models.StatusCancelled))
	assert.Equal(t, "confirmed", googleStatus(models.StatusDone))
}

type request struct {
	method string
	path   string
}

func newTestClient(t *testing.T, h http.HandlerFunc) *CalendarClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := NewClientWithHTTP(context.Background(), logger, srv.Client(), "", option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return c
}

func notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":{"code":404,"message":"Not Found"}}`))
}

func TestPublishInsertsWhenMissing(t *testing.T) {
	var (
		mu       sync.Mutex
		requests []request
		inserted gcal.Event
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests = append(requests, request{r.Method, r.URL.Path})
		mu.Unlock()
		switch r.Method {
		case http.MethodPut:
			notFound(w)
		case http.MethodPost:
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&inserted))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"jobcal000007"}`))
		}
	})

	require.NoError(t, c.Publish(context.Background(), entry()))
	assert.Equal(t, []request{
		{http.MethodPut, "/calendars/primary/events/jobcal000007"},
		{http.MethodPost, "/calendars/primary/events"},
	}, requests)
	assert.Equal(t, "Sky株式会社 一次面接", inserted.Summary)
}

func TestPublishUpdatesExisting(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPut, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"jobcal000007"}`))
	})
	require.NoError(t, c.Publish(context.Background(), entry()))
	assert.Equal(t, 1, calls)
}

func TestRemoveIgnoresMissingEvent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/calendars/primary/events/jobcal000007", r.URL.Path)
		notFound(w)
	})
	assert.NoError(t, c.Remove(context.Background(), 7))
}

func TestRemoveReportsServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"Forbidden"}}`))
	})
	assert.Error(t, c.Remove(context.Background(), 7))
}

package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"jobcal/internal/calendar"
	"jobcal/internal/models"
)

// defaultDuration is used for events without an end, which Google requires.
const defaultDuration = time.Hour

// CalendarClient publishes calendar entries to a Google Calendar.
type CalendarClient struct {
	service    *gcal.Service
	calendarID string
	logger     *slog.Logger
}

// NewClient creates a new Google Calendar client from an OAuth config and token.
func NewClient(ctx context.Context, logger *slog.Logger, config *oauth2.Config, token *oauth2.Token, calendarID string) (*CalendarClient, error) {
	client := config.Client(ctx, token)
	return NewClientWithHTTP(ctx, logger, client, calendarID)
}

// NewClientWithHTTP creates a client on top of an already authenticated HTTP
// client. Extra options (e.g. an endpoint override) are passed to the service.
func NewClientWithHTTP(ctx context.Context, logger *slog.Logger, hc *http.Client, calendarID string, opts ...option.ClientOption) (*CalendarClient, error) {
	if calendarID == "" {
		calendarID = "primary"
	}
	opts = append([]option.ClientOption{option.WithHTTPClient(hc)}, opts...)
	service, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &CalendarClient{service: service, calendarID: calendarID, logger: logger}, nil
}

// Name identifies the publisher in logs and sync state.
func (c *CalendarClient) Name() string { return "google" }

// Publish updates the Google event for entry, inserting it when it does not exist yet.
func (c *CalendarClient) Publish(ctx context.Context, entry calendar.Entry) error {
	ev := toGoogleEvent(entry)
	c.logger.Debug("Publishing event to Google Calendar", "title", entry.Title, "googleID", ev.Id)

	_, err := c.service.Events.Update(c.calendarID, ev.Id, ev).Context(ctx).Do()
	if isStatus(err, http.StatusNotFound) {
		_, err = c.service.Events.Insert(c.calendarID, ev).Context(ctx).Do()
	}
	if err != nil {
		return fmt.Errorf("failed to publish event to google calendar: %w", err)
	}

	c.logger.Info("Successfully published event to Google Calendar", "title", entry.Title)
	return nil
}

// Remove deletes the Google event for the event id. Missing events are ignored.
func (c *CalendarClient) Remove(ctx context.Context, id int64) error {
	err := c.service.Events.Delete(c.calendarID, EventID(id)).Context(ctx).Do()
	if err != nil && !isStatus(err, http.StatusNotFound) && !isStatus(err, http.StatusGone) {
		return fmt.Errorf("failed to remove event from google calendar: %w", err)
	}
	c.logger.Info("Removed event from Google Calendar", "id", id)
	return nil
}

// EventID derives a stable Google event id. Google ids use base32hex
// characters (a-v, 0-9) and must be at least five long.
func EventID(id int64) string {
	return fmt.Sprintf("jobcal%06d", id)
}

// toGoogleEvent converts a calendar entry to the Google Calendar model.
func toGoogleEvent(entry calendar.Entry) *gcal.Event {
	ev := entry.ExtendedProps
	end := entry.Start.Add(defaultDuration)
	if entry.End != nil {
		end = *entry.End
	}

	g := &gcal.Event{
		Id:          EventID(ev.ID),
		ICalUID:     calendar.UID(ev.ID),
		Summary:     entry.Title,
		Location:    ev.Location,
		Description: ev.Memo,
		Start:       &gcal.EventDateTime{DateTime: entry.Start.Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: end.Format(time.RFC3339)},
		Status:      googleStatus(ev.Status),
		ExtendedProperties: &gcal.EventExtendedProperties{
			Private: map[string]string{
				"jobcal_id":   strconv.FormatInt(ev.ID, 10),
				"jobcal_type": string(ev.EventType),
			},
		},
	}
	return g
}

// googleStatus maps the status; "cancelled" would delete the event on
// Google's side, so cancelled events stay visible as tentative.
func googleStatus(s models.Status) string {
	if s == models.StatusCancelled {
		return "tentative"
	}
	return "confirmed"
}

func isStatus(err error, code int) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == code
}

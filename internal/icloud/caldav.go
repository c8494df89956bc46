package icloud

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	"jobcal/internal/calendar"
)

const (
	// DefaultEndpoint is the iCloud CalDAV root.
	DefaultEndpoint = "https://caldav.icloud.com/"
)

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "jobcal/1.0")
	return t.Transport.RoundTrip(req)
}

// Config describes the CalDAV calendar events are published to.
type Config struct {
	Endpoint     string
	Username     string
	Password     string
	CalendarName string
}

// CalDAVClient publishes calendar entries to a CalDAV calendar (iCloud by default).
type CalDAVClient struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	calendarPath string
}

// NewClient creates a CalDAVClient and resolves the named calendar.
func NewClient(ctx context.Context, logger *slog.Logger, cfg Config) (*CalDAVClient, error) {
	if cfg.Username == "" || cfg.Password == "" || cfg.CalendarName == "" {
		return nil, fmt.Errorf("caldav username, password and calendar name are required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	transport := &customTransport{
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: http.DefaultTransport,
	}
	httpClient := &http.Client{Transport: transport, Timeout: 30 * time.Second}

	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	webdavClient, err := webdav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	c := &CalDAVClient{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
	}

	logger.Info("Finding CalDAV calendar", "calendarName", cfg.CalendarName)
	calendarPath, err := c.findCalendar(ctx, cfg.CalendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", cfg.CalendarName, err)
	}
	c.calendarPath = calendarPath
	logger.Info("Successfully found CalDAV calendar", "path", calendarPath)

	return c, nil
}

// Name identifies the publisher in logs and sync state.
func (c *CalDAVClient) Name() string { return "caldav" }

// Publish creates or replaces the calendar object for entry.
func (c *CalDAVClient) Publish(ctx context.Context, entry calendar.Entry) error {
	uid := calendar.UID(entry.ExtendedProps.ID)
	c.logger.Debug("Publishing event to CalDAV", "title", entry.Title, "uid", uid)

	cal := calendar.NewICal()
	cal.Children = append(cal.Children, calendar.ToVEvent(entry, time.Now()))

	writer, err := c.webdavClient.Create(ctx, c.objectPath(uid))
	if err != nil {
		return fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}

	if err := ical.NewEncoder(writer).Encode(cal); err != nil {
		writer.Close()
		return fmt.Errorf("failed to encode event to iCal format: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to upload event to CalDAV server: %w", err)
	}

	c.logger.Info("Successfully published event to CalDAV", "title", entry.Title)
	return nil
}

// Remove deletes the calendar object of the event with the given id.
func (c *CalDAVClient) Remove(ctx context.Context, id int64) error {
	uid := calendar.UID(id)
	if err := c.webdavClient.RemoveAll(ctx, c.objectPath(uid)); err != nil {
		return fmt.Errorf("failed to remove event from CalDAV server: %w", err)
	}
	c.logger.Info("Removed event from CalDAV", "uid", uid)
	return nil
}

// objectPath returns the path of an event object inside the calendar.
func (c *CalDAVClient) objectPath(uid string) string {
	return path.Join(c.calendarPath, url.PathEscape(uid)+".ics")
}

// findCalendar discovers the user's calendars and returns the path of the one with the matching name.
func (c *CalDAVClient) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			// Calendar paths are absolute and resolve against the endpoint host.
			return cal.Path, nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}

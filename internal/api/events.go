package api

import (
	"context"
	"fmt"
	"net/http"

	"jobcal/internal/models"
)

// ListEvents returns every event of the logged-in user.
func (c *Client) ListEvents(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	if err := c.do(ctx, http.MethodGet, "/api/events", nil, &events); err != nil {
		return nil, err
	}
	c.logger.Debug("Fetched events", "count", len(events))
	return events, nil
}

// SyncEvents asks the backend to re-ingest the inbox and returns the full,
// refreshed collection.
func (c *Client) SyncEvents(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	if err := c.do(ctx, http.MethodPost, "/api/events/sync", nil, &events); err != nil {
		return nil, err
	}
	c.logger.Debug("Backend sync returned events", "count", len(events))
	return events, nil
}

// GetEvent fetches a single event.
func (c *Client) GetEvent(ctx context.Context, id int64) (models.Event, error) {
	var ev models.Event
	if err := c.do(ctx, http.MethodGet, eventPath(id), nil, &ev); err != nil {
		return models.Event{}, err
	}
	return ev, nil
}

// UpdateEvent sends a partial update and returns the canonical event.
func (c *Client) UpdateEvent(ctx context.Context, id int64, patch models.Patch) (models.Event, error) {
	var ev models.Event
	if err := c.do(ctx, http.MethodPatch, eventPath(id), patch, &ev); err != nil {
		return models.Event{}, err
	}
	return ev, nil
}

// DeleteEvent deletes an event. Any 2xx response counts as success.
func (c *Client) DeleteEvent(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, eventPath(id), nil, nil)
}

func eventPath(id int64) string {
	return fmt.Sprintf("/api/events/%d", id)
}

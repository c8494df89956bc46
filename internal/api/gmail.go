package api

import (
	"context"
	"fmt"
	"net/http"

	"jobcal/internal/models"
)

// GmailAuthorizeURL returns the consent URL the user must open to connect Gmail.
func (c *Client) GmailAuthorizeURL(ctx context.Context) (string, error) {
	var res struct {
		AuthorizationURL string `json:"authorization_url"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/gmail/authorize", nil, &res); err != nil {
		return "", err
	}
	if res.AuthorizationURL == "" {
		return "", fmt.Errorf("backend returned an empty authorization url")
	}
	return res.AuthorizationURL, nil
}

// Emails returns the latest inbox messages. It fails with a 401 whose
// NeedsAuth flag is set when Gmail has not been connected yet.
func (c *Client) Emails(ctx context.Context) ([]models.Email, error) {
	var res struct {
		Emails []models.Email `json:"emails"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/gmail", nil, &res); err != nil {
		return nil, err
	}
	return res.Emails, nil
}

// ImportGmail stores new inbox messages on the backend and returns the events
// generated from them.
func (c *Client) ImportGmail(ctx context.Context) (models.ImportResult, error) {
	var res models.ImportResult
	if err := c.do(ctx, http.MethodPost, "/api/gmail/import", nil, &res); err != nil {
		return models.ImportResult{}, err
	}
	return res, nil
}

package api

import (
	"context"
	"net/http"

	"jobcal/internal/models"
)

type loginRequest struct {
	Token string `json:"token"`
}

// LoginWithGoogle exchanges a Google ID token for a backend session. The
// session cookie is kept in the client's jar.
func (c *Client) LoginWithGoogle(ctx context.Context, idToken string) (models.LoginResult, error) {
	var res models.LoginResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/google", loginRequest{Token: idToken}, &res); err != nil {
		return models.LoginResult{}, err
	}
	c.logger.Info("Logged in to backend.", "email", res.User.Email, "gmailAuthorized", res.GmailAuthorized)
	return res, nil
}

// Logout clears the backend session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// CurrentUser returns the logged-in user and whether Gmail is connected.
func (c *Client) CurrentUser(ctx context.Context) (models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/api/user", nil, &u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

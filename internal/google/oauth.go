package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

const (
	credentialsFile = "credentials.json"
)

// Scopes requested during sign-in: an ID token for the backend login and
// write access to calendar events for publishing.
var Scopes = []string{"openid", "email", "profile", calendar.CalendarEventsScope}

// GetOAuthConfig reads credentials and returns an OAuth2 config.
// It prioritizes the given client id and secret over a local credentials.json file.
func GetOAuthConfig(clientID, clientSecret string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
			Scopes:       Scopes,
			Endpoint:     google.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		if _, ok := err.(*fs.PathError); ok {
			return nil, fmt.Errorf("credentials.json not found. Please provide GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars or place credentials.json in the working directory")
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = "urn:ietf:wg:oauth:2.0:oob" // For desktop app flow
	return config, nil
}

// TokenFromWeb exchanges an authorization code for a token.
func TokenFromWeb(ctx context.Context, config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(ctx, authCode)
}

// SaveToken saves a token to a file path.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// TokenFromFile retrieves a token from a local file.
func TokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// IDToken returns a Google ID token for the backend login, refreshing tok when
// it does not carry a usable one. Tokens read from disk never do, because the
// raw token response is not persisted. The returned token should be saved.
func IDToken(ctx context.Context, config *oauth2.Config, tok *oauth2.Token) (string, *oauth2.Token, error) {
	if id, ok := tok.Extra("id_token").(string); ok && id != "" && tok.Valid() {
		return id, tok, nil
	}
	if tok.RefreshToken == "" {
		return "", nil, fmt.Errorf("token has no refresh token. Please run the 'auth' command again")
	}

	stale := *tok
	stale.AccessToken = ""
	stale.Expiry = time.Now().Add(-time.Minute)

	fresh, err := config.TokenSource(ctx, &stale).Token()
	if err != nil {
		return "", nil, fmt.Errorf("failed to refresh google token: %w", err)
	}
	id, ok := fresh.Extra("id_token").(string)
	if !ok || id == "" {
		return "", nil, fmt.Errorf("google did not return an id token; was the openid scope granted?")
	}
	return id, fresh, nil
}

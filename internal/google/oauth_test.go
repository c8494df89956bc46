package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestGetOAuthConfigFromClientID(t *testing.T) {
	cfg, err := GetOAuthConfig("client", "secret")
	require.NoError(t, err)
	assert.Equal(t, "client", cfg.ClientID)
	assert.Contains(t, cfg.Scopes, "openid")
}

func TestTokenFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	tok := &oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: time.Now().Add(time.Hour).Round(time.Second)}
	require.NoError(t, SaveToken(path, tok))

	got, err := TokenFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "r", got.RefreshToken)
	assert.True(t, got.Expiry.Equal(tok.Expiry))
}

func TestIDTokenRefreshes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "r", r.Form.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"new","token_type":"Bearer","expires_in":3600,"id_token":"id-123"}`))
	}))
	defer srv.Close()

	cfg := &oauth2.Config{ClientID: "c", ClientSecret: "s", Endpoint: oauth2.Endpoint{TokenURL: srv.URL}}
	tok := &oauth2.Token{AccessToken: "old", RefreshToken: "r", Expiry: time.Now().Add(time.Hour)}

	id, fresh, err := IDToken(context.Background(), cfg, tok)
	require.NoError(t, err)
	assert.Equal(t, "id-123", id)
	assert.Equal(t, "new", fresh.AccessToken)
	assert.Equal(t, "r", fresh.RefreshToken)
}

func TestIDTokenNeedsRefreshToken(t *testing.T) {
	_, _, err := IDToken(context.Background(), &oauth2.Config{}, &oauth2.Token{AccessToken: "a"})
	assert.Error(t, err)
}

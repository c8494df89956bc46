package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

// savedCookie is the on-disk form of a session cookie.
type savedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SaveSession writes the cookies held for the backend to path so that later
// invocations can reuse the session.
func (c *Client) SaveSession(path string) error {
	var saved []savedCookie
	for _, ck := range c.httpClient.Jar.Cookies(c.baseURL) {
		saved = append(saved, savedCookie{Name: ck.Name, Value: ck.Value})
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to create session file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(saved)
}

// LoadSession restores cookies written by SaveSession. A missing file is not
// an error; the client simply starts logged out.
func (c *Client) LoadSession(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("unable to open session file: %w", err)
	}
	defer f.Close()

	var saved []savedCookie
	if err := json.NewDecoder(f).Decode(&saved); err != nil {
		return fmt.Errorf("unable to decode session file: %w", err)
	}

	cookies := make([]*http.Cookie, 0, len(saved))
	for _, s := range saved {
		cookies = append(cookies, &http.Cookie{Name: s.Name, Value: s.Value, Path: "/"})
	}
	c.httpClient.Jar.SetCookies(c.baseURL, cookies)
	c.logger.Debug("Restored backend session.", "cookies", len(cookies))
	return nil
}

// ClearSession forgets the session both in memory and on disk.
func (c *Client) ClearSession(path string) error {
	var expired []*http.Cookie
	for _, ck := range c.httpClient.Jar.Cookies(c.baseURL) {
		expired = append(expired, &http.Cookie{Name: ck.Name, Value: "", Path: "/", MaxAge: -1})
	}
	c.httpClient.Jar.SetCookies(c.baseURL, expired)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("unable to remove session file: %w", err)
	}
	return nil
}

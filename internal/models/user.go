package models

// User is the logged-in account as reported by the backend.
// The login exchange reports the Google subject as google_sub while
// /api/user calls it google_id; Subject returns whichever is set.
type User struct {
	GoogleID        string `json:"google_id,omitempty"`
	GoogleSub       string `json:"google_sub,omitempty"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	GmailAuthorized bool   `json:"gmail_authorized"`
}

// Subject returns the Google account identifier.
func (u User) Subject() string {
	if u.GoogleID != "" {
		return u.GoogleID
	}
	return u.GoogleSub
}

// LoginResult is returned by the Google login exchange.
type LoginResult struct {
	Message         string `json:"message,omitempty"`
	User            User   `json:"user"`
	GmailAuthorized bool   `json:"gmail_authorized"`
}

// Email is a summary of a message fetched from the user's inbox.
type Email struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	From    string `json:"from"`
	To      string `json:"to,omitempty"`
	Snippet string `json:"snippet"`
	Body    string `json:"body,omitempty"`
	Date    string `json:"date,omitempty"`
}

// ImportResult is returned when the backend imports inbox messages as events.
type ImportResult struct {
	ImportedEmails int     `json:"imported_emails"`
	NewEvents      []Event `json:"new_events"`
}

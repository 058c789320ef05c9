package session

import "errors"

var ErrNotLoggedIn = errors.New("not logged in")

// User is the authenticated user record returned by the backend.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username,omitempty"`
	FullName  string `json:"full_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Session pairs the user record with its bearer token. The token is the
// source of truth: a session without a token is treated as logged out no
// matter what user record is cached alongside it.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`

	// ChatTicketID marks a chat the user was in when the process last
	// ran, so it can be offered for resumption. Cleared with the rest.
	ChatTicketID string `json:"chat_ticket_id,omitempty"`
}

// LoggedIn reports whether the session holds a usable token.
func (s Session) LoggedIn() bool {
	return s.Token != ""
}

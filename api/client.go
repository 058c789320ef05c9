// Package api is the REST client for the order backend. Every remote
// failure is converted into one of the taxonomy errors in errors.go at
// the call site; nothing propagates as an uncaught fault.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/grubslash/client/order"
	"github.com/grubslash/client/session"
)

const proxySecretHeader = "x-proxy-secret"

type Client struct {
	baseURL     string
	proxySecret string
	httpClient  *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithProxySecret sets the shared secret sent on link validation calls.
func (c *Client) WithProxySecret(secret string) *Client {
	c.proxySecret = secret
	return c
}

// AuthResponse is the body of oauth-callback and signup.
type AuthResponse struct {
	User    session.User `json:"user"`
	Session struct {
		AccessToken string `json:"access_token"`
	} `json:"session"`
	Message string `json:"message,omitempty"`
}

// CustomerData is the delivery detail block attached to a submission.
type CustomerData struct {
	Username      string `json:"username"`
	Address       string `json:"address"`
	DeliveryNotes string `json:"deliveryNotes,omitempty"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
}

// CreateTicketRequest is the body of POST /api/create-ticket.
type CreateTicketRequest struct {
	Link           string                  `json:"link"`
	ValidationData *order.ValidationResult `json:"validationData"`
	CustomerData   *CustomerData           `json:"customerData,omitempty"`
}

// OAuthCallback exchanges provider tokens for a user record and session.
func (c *Client) OAuthCallback(ctx context.Context, accessToken, refreshToken string) (session.User, string, error) {
	body := map[string]string{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	}
	var out AuthResponse
	if err := c.post(ctx, "/api/auth/oauth-callback", "", body, &out); err != nil {
		return session.User{}, "", err
	}
	if out.Session.AccessToken == "" {
		return session.User{}, "", &UnexpectedError{Status: http.StatusOK, Body: "missing session token in auth response"}
	}
	return out.User, out.Session.AccessToken, nil
}

// SignUp registers an email/password account.
func (c *Client) SignUp(ctx context.Context, email, password, username string) (session.User, string, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
		"username": username,
	}
	var out AuthResponse
	if err := c.post(ctx, "/api/auth/signup", "", body, &out); err != nil {
		return session.User{}, "", err
	}
	if out.Session.AccessToken == "" {
		msg := out.Message
		if msg == "" {
			msg = "signup did not return a session"
		}
		return session.User{}, "", &ValidationError{Message: msg}
	}
	return out.User, out.Session.AccessToken, nil
}

// ValidateSession round-trips the stored bearer token. A nil return means
// the token is live; any error means the caller must log out (401-class
// responses and network failures are treated identically).
func (c *Client) ValidateSession(ctx context.Context, token string) error {
	resp, err := c.do(ctx, http.MethodGet, "/api/auth/validate-session", token, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{Status: resp.StatusCode}
	default:
		return &UnexpectedError{Status: resp.StatusCode, Body: readBody(resp.Body)}
	}
}

// Logout tells the backend to drop the session. Best effort.
func (c *Client) Logout(ctx context.Context, token string) error {
	resp, err := c.do(ctx, http.MethodPost, "/api/auth/logout", token, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// CheckExistingTicket asks whether the user already has a ticket on file.
// Returns nil without error when there is none.
func (c *Client) CheckExistingTicket(ctx context.Context, token, userID string) (*order.Ticket, error) {
	var out struct {
		HasExisting bool          `json:"hasExisting"`
		Ticket      *order.Ticket `json:"ticket"`
	}
	if err := c.get(ctx, "/api/tickets/check-existing/"+userID, token, &out); err != nil {
		return nil, err
	}
	if !out.HasExisting {
		return nil, nil
	}
	return out.Ticket, nil
}

// UserTickets fetches the full order history for a user.
func (c *Client) UserTickets(ctx context.Context, token, userID string) ([]order.Ticket, error) {
	var out struct {
		Tickets []order.Ticket `json:"tickets"`
	}
	if err := c.get(ctx, "/api/tickets/user/"+userID, token, &out); err != nil {
		return nil, err
	}
	return out.Tickets, nil
}

// ValidateTicket fetches a single ticket by id. Returns nil when the
// backend reports it invalid.
func (c *Client) ValidateTicket(ctx context.Context, id string) (*order.Ticket, error) {
	var out struct {
		Valid  bool          `json:"valid"`
		Ticket *order.Ticket `json:"ticket"`
	}
	if err := c.get(ctx, "/api/validate-ticket/"+id, "", &out); err != nil {
		return nil, err
	}
	if !out.Valid {
		return nil, nil
	}
	return out.Ticket, nil
}

// CreateTicket submits a validated link. A 503 becomes
// ServiceUnavailableError; an existing open ticket becomes ConflictError.
func (c *Client) CreateTicket(ctx context.Context, token string, req CreateTicketRequest) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/create-ticket", token, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		TicketID         string `json:"ticketId"`
		Error            string `json:"error"`
		ExistingTicketID string `json:"existingTicketId"`
	}
	raw := readBody(resp.Body)
	// Both success and error bodies are JSON; decode before checking status.
	_ = json.Unmarshal([]byte(raw), &out)

	if resp.StatusCode == http.StatusServiceUnavailable {
		return "", &ServiceUnavailableError{Message: out.Error}
	}
	if out.ExistingTicketID != "" {
		return "", &ConflictError{ExistingTicketID: out.ExistingTicketID}
	}
	if out.TicketID != "" {
		return out.TicketID, nil
	}
	if out.Error != "" {
		return "", &ValidationError{Message: out.Error}
	}
	return "", &UnexpectedError{Status: resp.StatusCode, Body: raw}
}

// ServiceStatus fetches the current open/closed banner state.
func (c *Client) ServiceStatus(ctx context.Context) (order.ServiceStatus, error) {
	var out order.ServiceStatus
	if err := c.get(ctx, "/api/service-status", "", &out); err != nil {
		return order.ServiceStatus{}, err
	}
	return out, nil
}

// ValidateGroupLink validates a group order link and returns a quote or a
// quote-shaped error. Status handling:
//
//	204 -> synthetic success with no data
//	503 -> service-closed error result (the banner state is untouched)
//	200 -> parsed quote or quote-shaped error
//
// Any other status is an UnexpectedError carrying status and body text.
func (c *Client) ValidateGroupLink(ctx context.Context, link string) (*order.ValidationResult, error) {
	body := map[string]string{
		"groupLink": link,
		"service":   "UberEats",
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/proxy-validate-group-link", "", body)
	if err != nil {
		return nil, err
	}
	// The shared secret is scoped to this endpoint only.
	if c.proxySecret != "" {
		req.Header.Set(proxySecretHeader, c.proxySecret)
	}
	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return &order.ValidationResult{Message: "No content returned (204)"}, nil

	case resp.StatusCode == http.StatusServiceUnavailable:
		var out struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		if out.Error == "" {
			out.Error = "Service is currently closed"
		}
		return &order.ValidationResult{Err: out.Error}, nil

	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &UnexpectedError{Status: resp.StatusCode, Body: readBody(resp.Body)}
	}

	var result order.ValidationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &UnexpectedError{Status: resp.StatusCode, Body: "malformed validation response: " + err.Error()}
	}
	return &result, nil
}

func (c *Client) get(ctx context.Context, path, token string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.decode(resp, out)
}

func (c *Client) post(ctx context.Context, path, token string, body, out any) error {
	resp, err := c.do(ctx, http.MethodPost, path, token, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.decode(resp, out)
}

func (c *Client) do(ctx context.Context, method, path, token string, body any) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, path, token, body)
	if err != nil {
		return nil, err
	}
	return c.send(req)
}

func (c *Client) newRequest(ctx context.Context, method, path, token string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return resp, nil
}

func (c *Client) decode(resp *http.Response, out any) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{Status: resp.StatusCode}
	case resp.StatusCode == http.StatusServiceUnavailable:
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return &ServiceUnavailableError{Message: body.Error}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &UnexpectedError{Status: resp.StatusCode, Body: readBody(resp.Body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UnexpectedError{Status: resp.StatusCode, Body: "malformed response: " + err.Error()}
	}
	return nil
}

func readBody(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	return string(data)
}

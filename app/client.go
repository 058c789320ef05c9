// Package app coordinates the client: auth flows, startup restore,
// ticket resolution, order submission and the logout cascade. It owns
// no state of its own beyond the cached session; order state lives in
// order.Machine and durable state in session.Store.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/grubslash/client/api"
	"github.com/grubslash/client/channel"
	"github.com/grubslash/client/config"
	"github.com/grubslash/client/order"
	"github.com/grubslash/client/session"
)

var (
	ErrNoValidatedLink = errors.New("no validated link to submit")
	ErrChatLocked      = errors.New("chat is not accepting messages")
	ErrNoActiveTicket  = errors.New("no active ticket")
	ErrTicketNotFound  = errors.New("ticket not found")
)

// Backend is the slice of the REST client the coordinator uses.
type Backend interface {
	OAuthCallback(ctx context.Context, accessToken, refreshToken string) (session.User, string, error)
	SignUp(ctx context.Context, email, password, username string) (session.User, string, error)
	ValidateSession(ctx context.Context, token string) error
	Logout(ctx context.Context, token string) error
	CheckExistingTicket(ctx context.Context, token, userID string) (*order.Ticket, error)
	ValidateTicket(ctx context.Context, id string) (*order.Ticket, error)
	CreateTicket(ctx context.Context, token string, req api.CreateTicketRequest) (string, error)
	ServiceStatus(ctx context.Context) (order.ServiceStatus, error)
}

var _ Backend = (*api.Client)(nil)

// Channels is the slice of the channel manager the coordinator uses.
type Channels interface {
	ConnectGlobal()
	OpenTicketChannel(ticketID string)
	JoinTicketUpdates(ctx context.Context, ticketID string) error
	SendUserMessage(ctx context.Context, ticketID, content string) error
	DisconnectTicket()
	DisconnectAll()
}

var _ Channels = (*channel.Manager)(nil)

// LinkDebouncer is the slice of linkcheck.Debouncer the coordinator uses.
type LinkDebouncer interface {
	Input(text string)
	Flush()
	Stop()
}

// Client is the coordinator. All methods are safe for concurrent use.
type Client struct {
	backend  Backend
	store    session.Store
	machine  *order.Machine
	channels Channels
	debounce LinkDebouncer
	policy   config.Policy
	log      *slog.Logger

	mu   sync.Mutex
	sess session.Session
	auth bool
}

func New(backend Backend, store session.Store, machine *order.Machine, channels Channels, debounce LinkDebouncer, policy config.Policy) *Client {
	return &Client{
		backend:  backend,
		store:    store,
		machine:  machine,
		channels: channels,
		debounce: debounce,
		policy:   policy,
		log:      slog.Default(),
	}
}

// Session returns the cached session and whether the user is logged in.
func (c *Client) Session() (session.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess, c.auth
}

func (c *Client) setSession(sess session.Session) {
	c.mu.Lock()
	c.sess = sess
	c.auth = sess.LoggedIn()
	c.mu.Unlock()
}

// Startup restores state for a new process: service banner first, then
// the persisted session (validated against the backend, fail closed),
// then the user's existing ticket, then the global channel. A missing
// or invalid session leaves the client logged out without error.
func (c *Client) Startup(ctx context.Context) error {
	if st, err := c.backend.ServiceStatus(ctx); err == nil {
		c.machine.ApplyServiceStatus(st)
	} else {
		// Keep the optimistic default; the push channel corrects it later.
		c.log.Debug("service status fetch failed", "error", err)
	}

	sess, found, err := c.store.Load()
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if !found {
		return nil
	}

	c.setSession(sess)
	if err := c.ValidateSession(ctx); err != nil {
		// ValidateSession already ran the logout cascade.
		return nil
	}

	c.resolveExisting(ctx)
	c.channels.ConnectGlobal()
	return nil
}

// ValidateSession round-trips the stored token. Any failure, including
// a transport one, forces a full logout: a session that cannot be
// confirmed does not exist.
func (c *Client) ValidateSession(ctx context.Context) error {
	sess, ok := c.Session()
	if !ok {
		return session.ErrNotLoggedIn
	}
	if err := c.backend.ValidateSession(ctx, sess.Token); err != nil {
		c.log.Warn("session validation failed, logging out", "error", err)
		c.Logout(ctx)
		return err
	}
	return nil
}

// CompleteOAuth finishes the provider sign-in by exchanging the tokens
// from the callback URL for a backend session.
func (c *Client) CompleteOAuth(ctx context.Context, accessToken, refreshToken string) error {
	user, token, err := c.backend.OAuthCallback(ctx, accessToken, refreshToken)
	if err != nil {
		return err
	}
	return c.completeLogin(ctx, user, token)
}

// SignUp registers an email/password account and logs straight in.
func (c *Client) SignUp(ctx context.Context, email, password, username string) error {
	user, token, err := c.backend.SignUp(ctx, email, password, username)
	if err != nil {
		return err
	}
	return c.completeLogin(ctx, user, token)
}

func (c *Client) completeLogin(ctx context.Context, user session.User, token string) error {
	if err := c.store.Save(user, token); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	c.setSession(session.Session{User: user, Token: token})
	c.log.Info("logged in", "userId", user.ID)

	c.resolveExisting(ctx)
	c.channels.ConnectGlobal()
	return nil
}

// resolveExisting reconciles the local ticket reference with the server.
// An open ticket becomes resumable; a persisted chat marker matching it
// reopens the chat view; server absence clears any stale local state.
func (c *Client) resolveExisting(ctx context.Context) {
	sess, ok := c.Session()
	if !ok {
		return
	}

	t, err := c.backend.CheckExistingTicket(ctx, sess.Token, sess.User.ID)
	if err != nil {
		c.log.Warn("existing ticket check failed", "error", err)
		return
	}
	if t == nil {
		c.machine.SeedTicket(nil)
		if err := c.store.ClearChatTicket(); err != nil {
			c.log.Debug("failed to clear chat marker", "error", err)
		}
		return
	}

	c.machine.SeedTicket(t)
	if t.Status == order.StatusOpen && sess.ChatTicketID == t.ID {
		c.machine.ShowChat()
		c.channels.OpenTicketChannel(t.ID)
	}
}

// SetLinkInput records a keystroke of link text. Validation fires after
// the debounce window; the result lands in the machine asynchronously.
func (c *Client) SetLinkInput(text string) {
	c.machine.SetLink(text)
	c.debounce.Input(text)
}

// Submit turns the validated link into a ticket. A conflict with an
// already-open ticket redirects to that ticket instead of failing; a
// 503 flips the service banner closed and propagates.
func (c *Client) Submit(ctx context.Context, customer *api.CustomerData) (string, error) {
	sess, ok := c.Session()
	if !ok {
		return "", session.ErrNotLoggedIn
	}

	if st := c.machine.Service(); !st.IsOpen {
		return "", &api.ServiceUnavailableError{Message: st.Message}
	}

	v := c.machine.Validation()
	if v == nil {
		return "", ErrNoValidatedLink
	}
	if v.Failed() {
		return "", &api.ValidationError{Message: v.Err}
	}
	if !c.policy.Accepts(v.EstimatedSubtotal) {
		return "", &api.ValidationError{Message: fmt.Sprintf(
			"cart subtotal $%.2f is outside the accepted range ($%.2f-$%.2f)",
			v.EstimatedSubtotal, c.policy.MinSubtotal, c.policy.MaxSubtotal)}
	}

	id, err := c.backend.CreateTicket(ctx, sess.Token, api.CreateTicketRequest{
		Link:           c.machine.Link(),
		ValidationData: v,
		CustomerData:   customer,
	})
	if err != nil {
		var conflict *api.ConflictError
		if errors.As(err, &conflict) {
			c.log.Info("open ticket already exists, redirecting", "ticketId", conflict.ExistingTicketID)
			c.machine.AdoptExisting(conflict.ExistingTicketID)
			if jerr := c.channels.JoinTicketUpdates(ctx, conflict.ExistingTicketID); jerr != nil {
				c.log.Debug("join updates failed", "error", jerr)
			}
			return conflict.ExistingTicketID, nil
		}
		var unavailable *api.ServiceUnavailableError
		if errors.As(err, &unavailable) {
			c.machine.ApplyServiceStatus(order.ServiceStatus{IsOpen: false, Message: unavailable.Message})
		}
		return "", err
	}

	if err := c.machine.OpenTicket(id); err != nil {
		return "", err
	}
	if err := c.store.SetChatTicket(id); err != nil {
		c.log.Debug("failed to persist chat marker", "error", err)
	}
	c.channels.OpenTicketChannel(id)
	if err := c.channels.JoinTicketUpdates(ctx, id); err != nil {
		c.log.Debug("join updates failed", "error", err)
	}
	return id, nil
}

// ContinueExisting reopens the chat for the resumable open ticket.
// Every chat entry starts from an empty transcript.
func (c *Client) ContinueExisting(ctx context.Context) error {
	id := c.machine.CurrentTicketID()
	if id == "" {
		return ErrNoActiveTicket
	}

	c.machine.ClearMessages()
	c.machine.ShowChat()
	if err := c.store.SetChatTicket(id); err != nil {
		c.log.Debug("failed to persist chat marker", "error", err)
	}
	c.channels.OpenTicketChannel(id)
	return nil
}

// ViewFromHistory loads a past ticket by id. An open ticket is adopted
// and its chat reopened; terminal tickets are returned for display only.
func (c *Client) ViewFromHistory(ctx context.Context, id string) (*order.Ticket, error) {
	t, err := c.backend.ValidateTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTicketNotFound
	}

	if t.Status.Terminal() {
		return t, nil
	}

	c.machine.SeedTicket(t)
	c.machine.ClearMessages()
	c.machine.ShowChat()
	if err := c.store.SetChatTicket(t.ID); err != nil {
		c.log.Debug("failed to persist chat marker", "error", err)
	}
	c.channels.OpenTicketChannel(t.ID)
	return t, nil
}

// SendMessage appends the user's message locally and emits it on the
// ticket channel. Rejected once the ticket leaves Open or the chat is
// locked.
func (c *Client) SendMessage(ctx context.Context, content string) error {
	if !c.machine.CanSend() {
		return ErrChatLocked
	}
	id := c.machine.CurrentTicketID()
	if id == "" {
		return ErrNoActiveTicket
	}

	c.machine.AppendUserMessage(content)
	return c.channels.SendUserMessage(ctx, id, content)
}

// CloseChat hides the chat view and releases the ticket channel. The
// ticket itself stays tracked on the global channel.
func (c *Client) CloseChat() {
	c.machine.HideChat()
	c.channels.DisconnectTicket()
	if err := c.store.ClearChatTicket(); err != nil {
		c.log.Debug("failed to clear chat marker", "error", err)
	}
}

// Logout runs the teardown cascade: stop validation, drop both channels,
// reset in-memory order state, clear durable session state, then tell
// the backend best-effort. Local state is gone even if the network is.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	sess := c.sess
	wasAuth := c.auth
	c.sess = session.Session{}
	c.auth = false
	c.mu.Unlock()

	c.debounce.Stop()
	c.channels.DisconnectAll()
	c.machine.Reset()

	err := c.store.Clear()

	if wasAuth && sess.Token != "" {
		if lerr := c.backend.Logout(ctx, sess.Token); lerr != nil {
			c.log.Debug("backend logout failed", "error", lerr)
		}
	}
	if err != nil {
		return fmt.Errorf("clear session store: %w", err)
	}
	c.log.Info("logged out")
	return nil
}

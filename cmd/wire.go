package cmd

import (
	"path/filepath"

	"github.com/grubslash/client/api"
	"github.com/grubslash/client/app"
	"github.com/grubslash/client/channel"
	"github.com/grubslash/client/linkcheck"
	"github.com/grubslash/client/order"
	"github.com/grubslash/client/session"
)

// env holds one fully wired client stack. Commands build it, run, and
// call close on the way out.
type env struct {
	backend  *api.Client
	store    *session.FileStore
	machine  *order.Machine
	channels *channel.Manager
	debounce *linkcheck.Debouncer
	client   *app.Client
}

func newEnv() (*env, error) {
	backend := api.New(cfg.BackendURL).WithProxySecret(cfg.ProxySecret)

	store, err := session.NewFileStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	machine := order.NewMachine()
	channels := channel.NewManager(&channel.WebSocketDialer{URL: cfg.ChannelURL}, machine, machine.CurrentTicketID)

	// The debouncer's login gate closes over the client built below.
	var client *app.Client
	debounce := linkcheck.New(backend,
		func() bool {
			if client == nil {
				return false
			}
			_, ok := client.Session()
			return ok
		},
		func(link string, result *order.ValidationResult) {
			machine.SetValidation(result)
		},
		linkcheck.WithDelay(cfg.Debounce()),
		linkcheck.WithPattern(cfg.LinkPattern),
	)
	client = app.New(backend, store, machine, channels, debounce, cfg.Policy)

	return &env{
		backend:  backend,
		store:    store,
		machine:  machine,
		channels: channels,
		debounce: debounce,
		client:   client,
	}, nil
}

func (e *env) close() {
	e.debounce.Stop()
	e.channels.DisconnectAll()
}

func historyPath() string {
	return filepath.Join(cfg.DataDir, "history.db")
}

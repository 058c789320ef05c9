package watch

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grubslash/client/session"
)

const debounceInterval = 100 * time.Millisecond

// SessionFileWatcher watches the session file via fsnotify and notifies
// subscribers when another process logs in or out. The parent directory
// is watched rather than the file itself because saves go through a
// temp-file rename that replaces the inode.
type SessionFileWatcher struct {
	*BaseWatcher
	store   session.Store
	watcher *fsnotify.Watcher

	onChangeMu sync.RWMutex
	onChange   func(sess session.Session, loggedIn bool)

	timerMu sync.Mutex
	timer   *time.Timer

	lastMu    sync.Mutex
	lastToken string
}

func NewSessionFileWatcher(store session.Store) *SessionFileWatcher {
	return &SessionFileWatcher{
		BaseWatcher: NewBaseWatcher("sf"),
		store:       store,
	}
}

func (w *SessionFileWatcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher

	if err := watcher.Add(filepath.Dir(w.store.Path())); err != nil {
		watcher.Close()
		return err
	}

	if sess, found, err := w.store.Load(); err == nil && found {
		w.setLastToken(sess.Token)
	}

	go w.eventLoop()
	slog.Info("SessionFileWatcher started", "path", w.store.Path())
	return nil
}

func (w *SessionFileWatcher) Stop() {
	w.Cancel()
	if w.watcher != nil {
		w.watcher.Close()
	}

	w.timerMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.timerMu.Unlock()

	slog.Info("SessionFileWatcher stopped")
}

// SetOnChange sets a callback invoked when the persisted session changes
// under us. The app uses it to tear down channels on external logout.
func (w *SessionFileWatcher) SetOnChange(fn func(sess session.Session, loggedIn bool)) {
	w.onChangeMu.Lock()
	defer w.onChangeMu.Unlock()
	w.onChange = fn
}

func (w *SessionFileWatcher) eventLoop() {
	for {
		select {
		case <-w.Context().Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Debug("session file watcher error", "error", err)
		}
	}
}

func (w *SessionFileWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.store.Path()) {
		return
	}
	if !event.Has(fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove) {
		return
	}

	// Saves arrive as bursts of rename/create events; coalesce them.
	w.timerMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounceInterval, w.reload)
	w.timerMu.Unlock()
}

func (w *SessionFileWatcher) reload() {
	if w.Context().Err() != nil {
		return
	}

	sess, found, err := w.store.Load()
	if err != nil {
		slog.Warn("failed to reload session file", "error", err)
		return
	}

	token := ""
	if found {
		token = sess.Token
	}
	if !w.swapLastToken(token) {
		return
	}

	w.onChangeMu.RLock()
	onChange := w.onChange
	w.onChangeMu.RUnlock()
	if onChange != nil {
		onChange(sess, found)
	}

	w.NotifyAll("session.changed", func(sub *Subscription) any {
		return sessionChangedParams{
			ID:       sub.ID,
			LoggedIn: found,
			UserID:   sess.User.ID,
		}
	})
}

// Subscribe registers a subscriber for session change notifications.
func (w *SessionFileWatcher) Subscribe(notifier Notifier) string {
	id := w.GenerateID()
	w.AddSubscription(&Subscription{ID: id, Notifier: notifier})
	return id
}

type sessionChangedParams struct {
	ID       string `json:"id"`
	LoggedIn bool   `json:"loggedIn"`
	UserID   string `json:"userId,omitempty"`
}

func (w *SessionFileWatcher) setLastToken(token string) {
	w.lastMu.Lock()
	w.lastToken = token
	w.lastMu.Unlock()
}

// swapLastToken records the new token and reports whether it differs
// from the previous one.
func (w *SessionFileWatcher) swapLastToken(token string) bool {
	w.lastMu.Lock()
	defer w.lastMu.Unlock()
	if w.lastToken == token {
		return false
	}
	w.lastToken = token
	return true
}

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/grubslash/client/app"
	"github.com/grubslash/client/order"
	"github.com/grubslash/client/session"
	"github.com/grubslash/client/view"
	"github.com/grubslash/client/watch"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the agent placing your active order",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.close()

		if err := e.client.Startup(ctx); err != nil {
			return err
		}
		if err := e.client.ContinueExisting(ctx); err != nil {
			if errors.Is(err, app.ErrNoActiveTicket) {
				return errors.New("no active order, run `grubslash order <link>` first")
			}
			return err
		}
		defer e.client.CloseChat()

		snap := e.machine.Snapshot()
		fmt.Println(view.TicketSummary(snap.Ticket))
		fmt.Println(view.Transcript(snap.Messages))
		fmt.Println()

		// Push updates: print transcript additions and status flips as
		// they arrive.
		printed := len(snap.Messages)
		done := make(chan struct{})
		var doneOnce sync.Once
		finish := func() { doneOnce.Do(func() { close(done) }) }
		watcher := watch.NewStateWatcher(e.machine)
		watcher.SetOnChange(func(c order.Change) {
			switch c.Kind {
			case order.ChangeMessages:
				for _, msg := range c.Snapshot.Messages[printed:] {
					fmt.Println(view.Transcript([]order.ChatMessage{msg}))
				}
				printed = len(c.Snapshot.Messages)
			case order.ChangeTicket, order.ChangeReset:
				fmt.Println(view.TicketSummary(c.Snapshot.Ticket))
				if c.Snapshot.Ticket == nil || c.Snapshot.Ticket.Status != order.StatusOpen {
					finish()
				}
			case order.ChangeService:
				if banner := view.Banner(c.Snapshot.Service); banner != "" {
					fmt.Println(banner)
				}
			}
		})
		if err := watcher.Start(); err != nil {
			return err
		}
		defer watcher.Stop()

		// Another process logging out invalidates this one too.
		sessWatcher := watch.NewSessionFileWatcher(e.store)
		sessWatcher.SetOnChange(func(sess session.Session, loggedIn bool) {
			if !loggedIn {
				fmt.Println("Logged out in another session.")
				finish()
			}
		})
		if err := sessWatcher.Start(); err != nil {
			return err
		}
		defer sessWatcher.Stop()

		lines := make(chan string)
		go func() {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				lines <- scanner.Text()
			}
			close(lines)
		}()

		fmt.Println("Type a message and press enter. /quit to leave.")
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-done:
				return nil
			case line, ok := <-lines:
				if !ok || strings.TrimSpace(line) == "/quit" {
					return nil
				}
				if strings.TrimSpace(line) == "" {
					continue
				}
				if err := e.client.SendMessage(ctx, line); err != nil {
					if errors.Is(err, app.ErrChatLocked) {
						fmt.Println("Chat is closed for this order.")
						continue
					}
					fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grubslash/client/view"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show service state and your active order",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.close()

		if err := e.client.Startup(cmd.Context()); err != nil {
			return err
		}

		snap := e.machine.Snapshot()
		if banner := view.Banner(snap.Service); banner != "" {
			fmt.Println(banner)
		}
		if sess, ok := e.client.Session(); ok {
			name := sess.User.Username
			if name == "" {
				name = sess.User.Email
			}
			fmt.Printf("Logged in as %s\n", name)
		} else {
			fmt.Println("Not logged in.")
		}
		fmt.Println(view.TicketSummary(snap.Ticket))
		if snap.Ticket != nil && snap.Ticket.Validation != nil {
			fmt.Println(view.QuoteCard(snap.Ticket.Validation, cfg.Policy))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/grubslash/client/history"
	"github.com/grubslash/client/view"
)

var historyNoRefresh bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List your past orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.close()

		store, err := history.NewStore(historyPath())
		if err != nil {
			return err
		}
		defer store.Close()

		if !historyNoRefresh {
			sess, found, err := e.store.Load()
			if err != nil {
				return err
			}
			refresher := history.NewRefresher(store, e.backend, func() (string, string, bool) {
				if !found || !sess.LoggedIn() {
					return "", "", false
				}
				return sess.Token, sess.User.ID, true
			}, history.DefaultSchedule, slog.Default())
			refresher.RefreshNow(ctx)
		}

		tickets, err := store.List()
		if err != nil {
			return err
		}
		fmt.Println(view.HistoryTable(tickets))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().BoolVar(&historyNoRefresh, "cached", false, "Show the cached list without refreshing")
}

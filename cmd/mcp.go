package cmd

import (
	"github.com/spf13/cobra"

	"github.com/grubslash/client/history"
	"github.com/grubslash/client/mcptool"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve order tools to an AI assistant over stdio",
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

		store, err := history.NewStore(historyPath())
		if err != nil {
			return err
		}
		defer store.Close()

		srv := mcptool.NewServer(e.machine, e.client, e.backend, store)
		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and clear local state",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.close()

		// Startup loads the stored session; an already-invalid session
		// gets cleared there, which is the same end state.
		if err := e.client.Startup(cmd.Context()); err != nil {
			return err
		}
		if err := e.client.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Logged out.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

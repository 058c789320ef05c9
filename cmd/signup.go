package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a GrubSlash account",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.close()

		email, err := readLine("Email: ")
		if err != nil {
			return err
		}
		username, err := readLine("Username: ")
		if err != nil {
			return err
		}
		password, err := readSecret("Password: ")
		if err != nil {
			return err
		}

		if err := e.client.SignUp(cmd.Context(), email, password, username); err != nil {
			return err
		}
		fmt.Printf("Account created. Logged in as %s\n", username)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(signupCmd)
}

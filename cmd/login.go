package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginQR bool

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with your GrubSlash account",
	Long: `Open the sign-in page, complete the OAuth flow there, then paste
the access and refresh tokens back here. With --qr the sign-in URL is
also rendered as a QR code for signing in from a phone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.close()

		signInURL := cfg.BackendURL + "/auth/cli-login"
		fmt.Printf("Sign in at: %s\n", signInURL)
		if loginQR {
			qrterminal.GenerateHalfBlock(signInURL, qrterminal.L, os.Stdout)
		}
		fmt.Println()

		accessToken, err := readSecret("Access token: ")
		if err != nil {
			return err
		}
		refreshToken, err := readSecret("Refresh token: ")
		if err != nil {
			return err
		}

		if err := e.client.CompleteOAuth(cmd.Context(), accessToken, refreshToken); err != nil {
			return err
		}

		sess, _ := e.client.Session()
		name := sess.User.Username
		if name == "" {
			name = sess.User.Email
		}
		fmt.Printf("Logged in as %s\n", name)
		return nil
	},
}

// readSecret prompts on stderr and reads without echo when stdin is a
// terminal, falling back to a plain line read otherwise.
func readSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func readLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().BoolVar(&loginQR, "qr", false, "Render the sign-in URL as a QR code")
}

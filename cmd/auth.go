package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxpilot/internal/google"
)

func newAuthCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize a Google account",
		Long: `Run the OAuth flow for the Gmail, Calendar and Sheets scopes the agent
needs. The resulting token is stored per account under the user cache
directory.

Client credentials are read from GOOGLE_OAUTH_CLIENT_ID and
GOOGLE_OAUTH_CLIENT_SECRET.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if os.Getenv("GOOGLE_OAUTH_CLIENT_ID") == "" || os.Getenv("GOOGLE_OAUTH_CLIENT_SECRET") == "" {
				return fmt.Errorf("GOOGLE_OAUTH_CLIENT_ID and GOOGLE_OAUTH_CLIENT_SECRET must be set")
			}

			if google.HasTokenForAccount(account) {
				fmt.Printf("Account %q is already authorized. Continuing will replace its token.\n\n", account)
			}

			fmt.Printf("Open the following URL in your browser and authorize access:\n\n%s\n\n", google.GetAuthURL())
			fmt.Print("Paste the authorization code here: ")

			reader := bufio.NewReader(cmd.InOrStdin())
			code, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read authorization code: %w", err)
			}
			code = strings.TrimSpace(code)
			if code == "" {
				return fmt.Errorf("no authorization code provided")
			}

			if err := google.SaveTokenForAccount(cmd.Context(), account, code); err != nil {
				return err
			}

			fmt.Printf("Token saved for account %q\n", account)
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "default", "Google account name to authorize")
	return cmd
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clavrr/clavr/internal/calendar"
	"github.com/clavrr/clavr/internal/config"
	"github.com/clavrr/clavr/internal/google"
)

func newAuthCmd() *cobra.Command {
	var (
		configPath string
		account    string
		code       string
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize Google access",
		Long: `Authorize clavr to access Gmail and Google Calendar.

Without --code, prints the authorization URL to visit. Sign in, grant
access, and run the command again with the authorization code:

  clavr auth --code <authorization-code>

Tokens are stored on disk and refreshed automatically.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.Google.ClientID == "" || cfg.Google.ClientSecret == "" {
				return fmt.Errorf("google client credentials are required (GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET)")
			}

			auth := google.NewAuth(cfg.Google)
			out := cmd.OutOrStdout()

			if code == "" {
				fmt.Fprintln(out, "Visit this URL in your browser and grant access:")
				fmt.Fprintln(out)
				fmt.Fprintln(out, "  "+auth.AuthURL())
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Then rerun with: clavr auth --code <authorization-code>")
				return nil
			}

			if err := auth.SaveToken(cmd.Context(), account, code); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}
			fmt.Fprintf(out, "Token saved for account %q.\n", account)

			// Verify the freshly saved token actually grants calendar access.
			cal, err := calendar.NewClientForAccount(cmd.Context(), auth, account)
			if err != nil {
				return fmt.Errorf("token saved but client setup failed: %w", err)
			}
			calendars, err := cal.ListCalendars()
			if err != nil {
				return fmt.Errorf("token saved but calendar access check failed: %w", err)
			}
			fmt.Fprintf(out, "Verified access to %d calendars.\n", len(calendars))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the YAML config file")
	cmd.Flags().StringVar(&account, "account", defaultAccount, "Token slot name, for multiple Google accounts")
	cmd.Flags().StringVar(&code, "code", "", "Authorization code obtained from the authorization URL")

	return cmd
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"git.sr.ht/~jakintosh/apigate/pkg/client"
	"github.com/spf13/cobra"
)

type tokenOutput struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func newTokenCmd() *cobra.Command {
	var serverURL, appID, appSecret string
	var lifetime, timeout time.Duration
	var verify bool
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Exchange client credentials for a bearer token from a running server",
		Long: `Exchange client credentials for a bearer token from a running server
and print it as JSON. The secret may be passed in APIGATE_APP_SECRET instead
of --app-secret.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if appSecret == "" {
				appSecret = os.Getenv("APIGATE_APP_SECRET")
			}
			if appID == "" || appSecret == "" {
				return errors.New("--app-id and --app-secret are required")
			}

			c := client.New(serverURL, appID, appSecret,
				client.WithLifetime(lifetime),
				client.WithHTTPClient(&http.Client{Timeout: timeout}),
			)
			token, err := c.CurrentToken(cmd.Context())
			if err != nil {
				return err
			}

			if verify {
				identity, err := c.Me(cmd.Context())
				if err != nil {
					return fmt.Errorf("token was issued but did not verify: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "verified as %s (%s)\n", identity.AppID, identity.AppName)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(tokenOutput{
				AccessToken: token.AccessToken,
				TokenType:   token.TokenType,
				ExpiresIn:   int64(token.ExpiresIn / time.Second),
				ExpiresAt:   token.ExpiresAt,
			})
		},
	}
	cmd.Flags().StringVar(&serverURL, "url", "http://localhost:8000", "server base URL")
	cmd.Flags().StringVar(&appID, "app-id", "", "client app identifier")
	cmd.Flags().StringVar(&appSecret, "app-secret", "", "client app secret")
	cmd.Flags().DurationVar(&lifetime, "lifetime", 0, "requested token lifetime, server default when 0")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	cmd.Flags().BoolVar(&verify, "verify", false, "also check the credentials against /api/v1/auth/me")
	return cmd
}

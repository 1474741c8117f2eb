package main

import (
	"fmt"
	"net/url"
	"time"

	"post-reorder-backend/pkg/models"
	"post-reorder-backend/pkg/utils"

	"github.com/spf13/cobra"
)

var (
	tokenUser   string
	tokenEmail  string
	tokenCaps   []string
	tokenTTL    time.Duration
	tokenSecret bool
)

// tokenCmd mints session tokens for the admin pages
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an admin session token",
	Long: `Prints a session token signed with JWT_SECRET, and the URL that stores it
as the browser session cookie.

With --secret, prints a fresh random value for JWT_SECRET instead.`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "admin", "User id carried by the token")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "User email")
	tokenCmd.Flags().StringSliceVar(&tokenCaps, "cap", []string{models.CapabilityEditPosts}, "Capabilities granted")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 8*time.Hour, "Token lifetime")
	tokenCmd.Flags().BoolVar(&tokenSecret, "secret", false, "Print a random JWT_SECRET and exit")
}

func runToken(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if tokenSecret {
		secret, err := utils.GenerateSecret(32)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, secret)
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	token, exp, err := mintToken(tokenUser, tokenEmail, tokenCaps, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	fmt.Fprintf(out, "expires: %s\n", time.Unix(exp, 0).Format(time.RFC3339))
	fmt.Fprintf(out, "browser: http://localhost:%s/admin/session?token=%s\n", cfg.Port, url.QueryEscape(token))
	return nil
}

func mintToken(userID, email string, caps []string, ttl time.Duration) (string, int64, error) {
	return utils.NewJWTService(cfg.JWTSecret).GenerateAccessToken(models.User{
		ID:           userID,
		Email:        email,
		Capabilities: caps,
	}, ttl)
}

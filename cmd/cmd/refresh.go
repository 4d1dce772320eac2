package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"newsdesk/internal/config"
	"newsdesk/internal/logger"
	"newsdesk/internal/publish"
)

var refreshTokenCmd = &cobra.Command{
	Use:   "refresh-token [platform]",
	Short: "Exchange a short-lived social access token for a long-lived one",
	Long: `Exchange the configured short-lived access token for a long-lived one
via the graph API and print the new token with its expiry. Supported
platforms: facebook, instagram, threads.

Example:
  newsdesk refresh-token facebook`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runRefreshToken(args[0]); err != nil {
			logger.Error("Token refresh failed", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(refreshTokenCmd)
}

func runRefreshToken(platform string) error {
	cfg := config.Get()

	var creds config.MetaConfig
	switch platform {
	case "facebook":
		creds = cfg.Social.Facebook
	case "instagram":
		creds = cfg.Social.Instagram
	case "threads":
		creds = cfg.Social.Threads
	default:
		return fmt.Errorf("unsupported platform %q (want facebook, instagram, or threads)", platform)
	}
	if creds.AppID == "" || creds.AppSecret == "" || creds.AccessToken == "" {
		return fmt.Errorf("%s requires app_id, app_secret, and access_token configured", platform)
	}

	token, expiresIn, err := publish.ExchangeLongLivedToken(context.Background(), creds.AppID, creds.AppSecret, creds.AccessToken)
	if err != nil {
		return err
	}

	expiry := time.Now().Add(expiresIn)
	fmt.Printf("New long-lived token for %s:\n%s\n\nExpires: %s (%s from now)\n",
		platform, token, expiry.Format("2006-01-02"), expiresIn.Round(time.Hour))
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"newsdesk/internal/config"
	"newsdesk/internal/logger"
	"newsdesk/internal/publish"
	"newsdesk/internal/wizard"
)

var resumeCmd = &cobra.Command{
	Use:   "resume [recovery-file]",
	Short: "Publish a recovered record from an interrupted session",
	Long: `Load the publish record persisted by an interrupted wizard session and
send it to the content API. With no argument, the configured recovery
file is used.

Example:
  newsdesk resume
  newsdesk resume publish.json`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := ""
		if len(args) > 0 {
			path = args[0]
		}
		if err := runResume(path); err != nil {
			logger.Error("Resume failed", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(resumeCmd)
}

func runResume(path string) error {
	cfg := config.Get()
	if err := cfg.RequirePublishCredentials(); err != nil {
		return err
	}
	if path == "" {
		path = cfg.Wizard.RecoveryFile
	}

	record, err := wizard.LoadRecovery(path)
	if err != nil {
		return err
	}
	logger.Info("Recovered publish record", "file", path, "headline", record.AIHeadline, "has_image", record.HasImage())

	content := publish.NewContentClient(cfg.Publish.APIURL, cfg.Publish.APIKey, cfg.Publish.GetTimeout())
	result, err := content.Publish(context.Background(), *record)
	if err != nil {
		return err
	}

	logger.Info("Published recovered record", "article_id", result.ArticleID, "link", result.Link)
	fmt.Printf("Published article %d: %s\n", result.ArticleID, result.Link)
	return nil
}

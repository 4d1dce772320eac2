package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"newsdesk/internal/config"
	"newsdesk/internal/core"
	"newsdesk/internal/imagegen"
	"newsdesk/internal/logger"
	"newsdesk/internal/publish"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill-images",
	Short: "Regenerate missing images for already-published articles",
	Long: `Walk published articles in ascending id order, generate an image pair
for any article that has none, and upload the pair to asset storage.
The walk stops after a run of consecutive ids with no article, which
marks the end of the published range. A failure on one article is
logged and the walk continues.`,
	Run: func(cmd *cobra.Command, args []string) {
		start, _ := cmd.Flags().GetInt("start")
		emptyLimit, _ := cmd.Flags().GetInt("empty-limit")

		if err := runBackfill(start, emptyLimit); err != nil {
			logger.Error("Backfill failed", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(backfillCmd)

	backfillCmd.Flags().Int("start", 1, "article id to start from")
	backfillCmd.Flags().Int("empty-limit", 10, "stop after this many consecutive missing articles")
}

func runBackfill(start, emptyLimit int) error {
	cfg := config.Get()
	if err := cfg.RequirePublishCredentials(); err != nil {
		return err
	}
	if emptyLimit <= 0 {
		emptyLimit = 10
	}

	ctx := context.Background()
	content := publish.NewContentClient(cfg.Publish.APIURL, cfg.Publish.APIKey, cfg.Publish.GetTimeout())
	images := imagegen.NewClient(
		cfg.Image.BaseURL,
		cfg.Image.APIKey,
		cfg.Image.Model,
		cfg.Image.GetPollInterval(),
		cfg.Image.PollAttempts,
	)
	uploader := publish.NewAssetUploader(cfg.Publish.AssetBaseURL, cfg.Publish.APIKey)

	logger.Info("Starting image backfill", "start", start, "empty_limit", emptyLimit)

	processed, filled, err := walkBackfill(ctx, content, images, uploader, cfg.Image.Size, start, emptyLimit)
	if err != nil {
		return err
	}
	logger.Info("Backfill complete", "processed", processed, "filled", filled)
	return nil
}

// backfillErrorLimit is how many consecutive fetch failures end the walk
// with an error.
const backfillErrorLimit = 5

// walkBackfill walks article ids from start until emptyLimit consecutive
// ids come back with no article. Only a missing article counts toward
// that stop; a fetch failure is tracked on its own counter, and a run of
// backfillErrorLimit failures aborts the walk with an error.
func walkBackfill(ctx context.Context, content *publish.ContentClient, images *imagegen.Client, uploader *publish.AssetUploader, size string, start, emptyLimit int) (int, int, error) {
	consecutiveEmpty := 0
	consecutiveErrors := 0
	processed := 0
	filled := 0
	for id := start; consecutiveEmpty < emptyLimit; id++ {
		article, err := content.FetchArticle(ctx, id)
		if err != nil {
			consecutiveErrors++
			if consecutiveErrors >= backfillErrorLimit {
				return processed, filled, fmt.Errorf("giving up after %d consecutive fetch failures at article %d: %w", consecutiveErrors, id, err)
			}
			logger.Warn("Failed to fetch article, continuing", "article_id", id, "error", err)
			continue
		}
		consecutiveErrors = 0
		if article == nil {
			consecutiveEmpty++
			continue
		}
		consecutiveEmpty = 0
		processed++

		if article.ImageData != "" {
			continue
		}

		if err := backfillOne(ctx, images, uploader, size, article); err != nil {
			logger.Warn("Failed to backfill article, continuing", "article_id", article.ArticleID, "error", err)
			continue
		}
		filled++
		logger.Info("Backfilled image pair", "article_id", article.ArticleID)
	}
	return processed, filled, nil
}

// backfillOne generates and uploads the image pair for one article.
func backfillOne(ctx context.Context, images *imagegen.Client, uploader *publish.AssetUploader, size string, article *publish.StoredArticle) error {
	prompt := imagegen.BuildImagePrompt(core.ArticleRecord{
		Headline: article.Headline,
		Haiku:    article.Haiku,
	}, time.Now())

	background, err := images.Generate(ctx, prompt, size)
	if err != nil {
		return err
	}
	overlay, err := images.Generate(ctx, prompt+" Include the haiku text rendered elegantly over the scene.", size)
	if err != nil {
		return err
	}

	_, _, err = uploader.UploadPair(ctx, article.ArticleID, background, overlay)
	return err
}

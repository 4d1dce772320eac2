package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"newsdesk/internal/config"
	"newsdesk/internal/logger"
	"newsdesk/internal/publish"
)

var publishImagesCmd = &cobra.Command{
	Use:   "publish-images [image-dir]",
	Short: "Upload locally rendered image pairs to asset storage",
	Long: `Scan a directory for image pairs named {articleId}_background.jpg and
{articleId}_haiku.jpg and upload each complete pair to asset storage.
Uploads are idempotent; re-running overwrites the stored assets. A
failed pair is logged and the scan continues.

Example:
  newsdesk publish-images out/images`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runPublishImages(args[0]); err != nil {
			logger.Error("Image publish failed", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(publishImagesCmd)
}

func runPublishImages(dir string) error {
	cfg := config.Get()
	if cfg.Publish.AssetBaseURL == "" {
		return fmt.Errorf("publish.asset_base_url is required (set NEWSDESK_PUBLISH_ASSET_BASE_URL)")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read image directory: %w", err)
	}

	// Collect article ids that have a background image, then require the
	// haiku half before uploading.
	ids := map[int]bool{}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, "_background.jpg") {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSuffix(name, "_background.jpg"))
		if err != nil {
			continue
		}
		ids[id] = true
	}
	if len(ids) == 0 {
		logger.Warn("No image pairs found", "dir", dir)
		return nil
	}

	ctx := context.Background()
	uploader := publish.NewAssetUploader(cfg.Publish.AssetBaseURL, cfg.Publish.APIKey)

	uploaded := 0
	for id := range ids {
		background, err := os.ReadFile(filepath.Join(dir, publish.BackgroundKey(id)))
		if err != nil {
			logger.Warn("Failed to read background image, skipping", "article_id", id, "error", err)
			continue
		}
		haiku, err := os.ReadFile(filepath.Join(dir, publish.HaikuKey(id)))
		if err != nil {
			logger.Warn("Image pair incomplete, skipping", "article_id", id, "error", err)
			continue
		}

		if _, _, err := uploader.UploadPair(ctx, id, background, haiku); err != nil {
			logger.Warn("Failed to upload image pair, continuing", "article_id", id, "error", err)
			continue
		}
		uploaded++
		logger.Info("Uploaded image pair", "article_id", id)
	}

	logger.Info("Image publish complete", "pairs", uploaded)
	return nil
}

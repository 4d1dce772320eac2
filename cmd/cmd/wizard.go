package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"newsdesk/internal/compose"
	"newsdesk/internal/config"
	"newsdesk/internal/core"
	"newsdesk/internal/evaluate"
	"newsdesk/internal/imagegen"
	"newsdesk/internal/llm"
	"newsdesk/internal/logger"
	"newsdesk/internal/publish"
	"newsdesk/internal/sources"
	"newsdesk/internal/tui"
	"newsdesk/internal/wizard"
)

var wizardCmd = &cobra.Command{
	Use:   "wizard [cluster-file]",
	Short: "Step through one publication interactively",
	Long: `Load a cluster of source articles from a JSON file and drive it
through the four-step publication wizard: draft, review, illustrate,
final review. On publish, the article goes to the content API and is
fanned out to every configured social platform.

Example:
  newsdesk wizard clusters/tech-0423.json
  newsdesk wizard --bypass clusters/thin-cluster.json
  newsdesk wizard --staged clusters/tech-0423.json`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		bypass, _ := cmd.Flags().GetBool("bypass")
		staged, _ := cmd.Flags().GetBool("staged")

		if err := runWizard(args[0], bypass, staged); err != nil {
			logger.Error("Wizard session failed", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(wizardCmd)

	wizardCmd.Flags().Bool("bypass", false, "proceed even when the cluster has too few unique sources")
	wizardCmd.Flags().Bool("staged", false, "compose with three separate prompts instead of one combined prompt")
}

func runWizard(clusterFile string, bypass, staged bool) error {
	cfg := config.Get()
	if err := cfg.RequirePublishCredentials(); err != nil {
		return err
	}

	cluster, err := loadCluster(clusterFile)
	if err != nil {
		return err
	}

	logger.Info("Starting wizard session", "cluster_id", cluster.ClusterID, "articles", len(cluster.Articles))

	ctx := context.Background()
	w, err := buildWizard(ctx, cfg, staged)
	if err != nil {
		return err
	}

	if err := tui.Run(w, cluster, bypass); err != nil {
		return err
	}

	session := w.Session()
	if session == nil || !session.IsPublished() {
		logger.Info("Session ended without publishing")
		return nil
	}

	fanOutSocial(ctx, cfg, session)
	return nil
}

// loadCluster reads a cluster JSON file produced by the clustering service.
func loadCluster(path string) (core.Cluster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Cluster{}, fmt.Errorf("failed to read cluster file: %w", err)
	}
	var cluster core.Cluster
	if err := json.Unmarshal(data, &cluster); err != nil {
		return core.Cluster{}, fmt.Errorf("failed to parse cluster file: %w", err)
	}
	return cluster, nil
}

// stagedComposer runs the three-prompt composition strategy behind the
// single-call composer contract.
type stagedComposer struct {
	inner *compose.Composer
}

func (s stagedComposer) Compose(ctx context.Context, articles []core.SourceArticle, category string) (core.ArticleRecord, error) {
	return s.inner.ComposeStaged(ctx, articles, category)
}

// buildWizard assembles the wizard's collaborators from configuration.
func buildWizard(ctx context.Context, cfg *config.Config, staged bool) (*wizard.Wizard, error) {
	gen, err := llm.NewClient(ctx, cfg.AI.Gemini.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create text generation client: %w", err)
	}

	composerOpts := compose.DefaultOptions()
	if cfg.AI.Gemini.Temperature > 0 {
		composerOpts.Temperature = cfg.AI.Gemini.Temperature
	}
	if cfg.AI.Gemini.MaxTokens > 0 {
		composerOpts.MaxTokens = cfg.AI.Gemini.MaxTokens
	}
	composer := compose.NewComposer(gen, composerOpts)

	var wizardComposer wizard.Composer = composer
	if staged {
		wizardComposer = stagedComposer{inner: composer}
	}

	filter := sources.NewFilter()
	if cfg.Wizard.MinSources > 0 {
		filter.MinSources = cfg.Wizard.MinSources
	}
	if cfg.Wizard.MaxSources > 0 {
		filter.MaxSources = cfg.Wizard.MaxSources
	}

	images := imagegen.NewClient(
		cfg.Image.BaseURL,
		cfg.Image.APIKey,
		cfg.Image.Model,
		cfg.Image.GetPollInterval(),
		cfg.Image.PollAttempts,
	)

	content := publish.NewContentClient(cfg.Publish.APIURL, cfg.Publish.APIKey, cfg.Publish.GetTimeout())

	return wizard.New(
		filter,
		wizardComposer,
		evaluate.NewEvaluatorWithDefaults(gen),
		images,
		content,
		wizard.Options{
			RecoveryFile: cfg.Wizard.RecoveryFile,
			ImageSize:    cfg.Image.Size,
			Now:          time.Now,
		},
	), nil
}

// fanOutSocial posts the published article to every configured platform,
// sequentially. A platform failure is logged and the loop continues.
func fanOutSocial(ctx context.Context, cfg *config.Config, session *wizard.Session) {
	if session.Publish == nil {
		return
	}

	limits := publish.Limits{
		MaxPostLength: cfg.Social.Limits.MaxPostLength,
		MaxHashtags:   cfg.Social.Limits.MaxHashtags,
	}
	link := ""
	if session.Published != nil {
		link = session.Published.Link
	}

	var evaluation core.EvaluationRecord
	if session.Evaluation != nil {
		evaluation = *session.Evaluation
	}
	post := publish.ComposePost(*session.Publish, evaluation, link, limits)
	var background, overlay []byte
	if session.Publish.ImageData != "" {
		if data, err := imagegen.DecodeBase64(session.Publish.ImageData); err == nil {
			post.ImageData = data
			background = data
		}
	}
	if session.Publish.ImageHaiku != "" {
		if data, err := imagegen.DecodeBase64(session.Publish.ImageHaiku); err == nil {
			overlay = data
		}
	}

	// The Meta platforms ingest by URL, so the pair goes to asset storage
	// first when it is configured.
	backgroundURL := ""
	if cfg.Publish.AssetBaseURL != "" && session.Published != nil && background != nil && overlay != nil {
		uploader := publish.NewAssetUploader(cfg.Publish.AssetBaseURL, cfg.Publish.APIKey)
		url, _, err := uploader.UploadPair(ctx, session.Published.ArticleID, background, overlay)
		if err != nil {
			logger.Warn("Asset upload failed", "error", err)
		} else {
			backgroundURL = url
		}
	}

	for _, p := range socialPublishers(cfg) {
		switch hosted := p.(type) {
		case *publish.InstagramPublisher:
			hosted.ImageURL = backgroundURL
		case *publish.FacebookPublisher:
			hosted.ImageURL = backgroundURL
		case *publish.ThreadsPublisher:
			hosted.ImageURL = backgroundURL
		}
		postID, err := p.Publish(ctx, post)
		if err != nil {
			logger.Warn("Social post failed", "platform", p.Name(), "error", err)
			continue
		}
		logger.Info("Posted to social platform", "platform", p.Name(), "post_id", postID)
	}
}

// socialPublishers returns an adapter for each platform with credentials
// configured. Platforms without credentials are skipped silently.
func socialPublishers(cfg *config.Config) []publish.SocialPublisher {
	var publishers []publish.SocialPublisher

	if cfg.Social.Bluesky.Handle != "" && cfg.Social.Bluesky.AppPassword != "" {
		publishers = append(publishers, publish.NewBlueskyPublisher(
			cfg.Social.Bluesky.Handle,
			cfg.Social.Bluesky.AppPassword,
			cfg.Social.Bluesky.PDSURL,
		))
	}
	if cfg.Social.Instagram.AccessToken != "" && cfg.Social.Instagram.AccountID != "" {
		publishers = append(publishers, publish.NewInstagramPublisher(
			cfg.Social.Instagram.AccessToken,
			cfg.Social.Instagram.AccountID,
		))
	}
	if cfg.Social.Facebook.AccessToken != "" && cfg.Social.Facebook.AccountID != "" {
		publishers = append(publishers, publish.NewFacebookPublisher(
			cfg.Social.Facebook.AccessToken,
			cfg.Social.Facebook.AccountID,
		))
	}
	if cfg.Social.Threads.AccessToken != "" && cfg.Social.Threads.AccountID != "" {
		publishers = append(publishers, publish.NewThreadsPublisher(
			cfg.Social.Threads.AccessToken,
			cfg.Social.Threads.AccountID,
		))
	}
	if cfg.Social.Twitter.AccessToken != "" {
		publishers = append(publishers, publish.NewTwitterPublisher(cfg.Social.Twitter.AccessToken))
	}

	return publishers
}

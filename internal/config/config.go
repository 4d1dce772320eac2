package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App     App     `mapstructure:"app"`
	AI      AI      `mapstructure:"ai"`
	Image   Image   `mapstructure:"image"`
	Publish Publish `mapstructure:"publish"`
	Social  Social  `mapstructure:"social"`
	Wizard  Wizard  `mapstructure:"wizard"`
	Logging Logging `mapstructure:"logging"`
}

// App holds general application configuration
type App struct {
	Debug   bool   `mapstructure:"debug"`
	DataDir string `mapstructure:"data_dir"`
}

// AI holds text-generation backend configuration
type AI struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Timeout     string  `mapstructure:"timeout"`
	MaxTokens   int32   `mapstructure:"max_tokens"`
	Temperature float32 `mapstructure:"temperature"`
}

// Image holds image-generation backend configuration
type Image struct {
	BaseURL      string `mapstructure:"base_url"`
	APIKey       string `mapstructure:"api_key"`
	Model        string `mapstructure:"model"`
	Size         string `mapstructure:"size"`
	PollInterval string `mapstructure:"poll_interval"`
	PollAttempts int    `mapstructure:"poll_attempts"`
}

// Publish holds content API and asset storage configuration
type Publish struct {
	APIURL       string `mapstructure:"api_url"`
	APIKey       string `mapstructure:"api_key"`
	AssetBaseURL string `mapstructure:"asset_base_url"`
	Timeout      string `mapstructure:"timeout"`
}

// Social holds per-platform publisher credentials
type Social struct {
	Bluesky   BlueskyConfig `mapstructure:"bluesky"`
	Instagram MetaConfig    `mapstructure:"instagram"`
	Facebook  MetaConfig    `mapstructure:"facebook"`
	Threads   MetaConfig    `mapstructure:"threads"`
	Twitter   TwitterConfig `mapstructure:"twitter"`
	Limits    SocialLimits  `mapstructure:"limits"`
}

// BlueskyConfig holds Bluesky (AT protocol) credentials
type BlueskyConfig struct {
	Handle      string `mapstructure:"handle"`
	AppPassword string `mapstructure:"app_password"`
	PDSURL      string `mapstructure:"pds_url"`
}

// MetaConfig holds Meta graph API credentials (Instagram/Facebook/Threads)
type MetaConfig struct {
	AccessToken string `mapstructure:"access_token"`
	AccountID   string `mapstructure:"account_id"`
	AppID       string `mapstructure:"app_id"`
	AppSecret   string `mapstructure:"app_secret"`
}

// TwitterConfig holds Twitter/X API credentials
type TwitterConfig struct {
	APIKey       string `mapstructure:"api_key"`
	APISecret    string `mapstructure:"api_secret"`
	AccessToken  string `mapstructure:"access_token"`
	AccessSecret string `mapstructure:"access_secret"`
}

// SocialLimits bounds outgoing social posts before any adapter is invoked
type SocialLimits struct {
	MaxPostLength int `mapstructure:"max_post_length"`
	MaxHashtags   int `mapstructure:"max_hashtags"`
}

// Wizard holds interactive-session configuration
type Wizard struct {
	RecoveryFile string `mapstructure:"recovery_file"`
	MinSources   int    `mapstructure:"min_sources"`
	MaxSources   int    `mapstructure:"max_sources"`
}

// Logging holds logging configuration
type Logging struct {
	Level string `mapstructure:"level"`
}

var globalConfig *Config

// Load loads the configuration from .env, config file, and environment.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".newsdesk")
		viper.SetConfigType("yaml")
	}

	setDefaults()

	viper.SetEnvPrefix("NEWSDESK")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.data_dir", ".newsdesk")

	viper.SetDefault("ai.gemini.model", "gemini-flash-lite-latest")
	viper.SetDefault("ai.gemini.timeout", "30s")
	viper.SetDefault("ai.gemini.max_tokens", 8192)
	viper.SetDefault("ai.gemini.temperature", 0.7)

	viper.SetDefault("image.size", "1024x1024")
	viper.SetDefault("image.poll_interval", "2s")
	viper.SetDefault("image.poll_attempts", 60)

	viper.SetDefault("publish.timeout", "30s")

	viper.SetDefault("social.bluesky.pds_url", "https://bsky.social")
	viper.SetDefault("social.limits.max_post_length", 300)
	viper.SetDefault("social.limits.max_hashtags", 5)

	viper.SetDefault("wizard.recovery_file", "publish.json")
	viper.SetDefault("wizard.min_sources", 3)
	viper.SetDefault("wizard.max_sources", 8)

	viper.SetDefault("logging.level", "info")
}

// RequirePublishCredentials validates that the content API credentials are
// present. Credential-configuration errors are fatal at startup for every
// CLI path that publishes.
func (c *Config) RequirePublishCredentials() error {
	if c.Publish.APIURL == "" {
		return fmt.Errorf("publish.api_url is required (set NEWSDESK_PUBLISH_API_URL)")
	}
	if c.Publish.APIKey == "" {
		return fmt.Errorf("publish.api_key is required (set NEWSDESK_PUBLISH_API_KEY)")
	}
	return nil
}

// GetPollInterval parses the image poll interval, falling back to 2s.
func (i Image) GetPollInterval() time.Duration {
	d, err := time.ParseDuration(i.PollInterval)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

// GetTimeout parses the publish timeout, falling back to 30s.
func (p Publish) GetTimeout() time.Duration {
	d, err := time.ParseDuration(p.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// Reset clears the cached global config. Used by tests.
func Reset() {
	globalConfig = nil
	viper.Reset()
}

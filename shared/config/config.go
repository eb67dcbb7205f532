package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingSecret is returned when one of the required secrets is not set.
	ErrMissingSecret = errors.New("missing required secret")
	// ErrInvalid is returned for values that are present but unusable.
	ErrInvalid = errors.New("invalid configuration")
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	DefaultQuery      = "Algorithm Advent of Code Python 2024"
	DefaultConfigFile = "config.yaml"
)

// DefaultTopics are the subjects every video is assessed against.
var DefaultTopics = []string{
	"Arrays",
	"Linked Lists",
	"Stacks",
	"Trees",
	"Graphs",
	"Asymptotic Analysis",
}

type Config struct {
	YouTube    YouTubeConfig    `yaml:"youtube"`
	AI         AIConfig         `yaml:"ai"`
	Store      StoreConfig      `yaml:"store"`
	Export     ExportConfig     `yaml:"export"`
	Transcript TranscriptConfig `yaml:"transcripts"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Schedule   string           `yaml:"schedule"`
}

type YouTubeConfig struct {
	APIKey          string `yaml:"api_key" env:"YOUTUBE_API_KEY"`
	Query           string `yaml:"query"`
	DaysBack        int    `yaml:"days_back"`
	MaxResults      int64  `yaml:"max_results"`
	VideoDuration   string `yaml:"video_duration"`
	VideoDefinition string `yaml:"video_definition"`
	Order           string `yaml:"order"`
}

type AIConfig struct {
	Provider string   `yaml:"provider"`
	APIKey   string   `yaml:"api_key" env:"GEMINI_API_KEY"`
	Model    string   `yaml:"model"`
	BaseURL  string   `yaml:"base_url"`
	Topics   []string `yaml:"topics"`
}

type StoreConfig struct {
	URL             string `yaml:"url" env:"SUPABASE_URL"`
	Key             string `yaml:"key" env:"SUPABASE_KEY"`
	Table           string `yaml:"table"`
	TranscriptTable string `yaml:"transcript_table"`
}

type ExportConfig struct {
	File  string `yaml:"file"`
	Sheet string `yaml:"sheet"`
}

// TranscriptConfig controls the caption stage. SubtitleLanguages are the
// caption tracks requested from YouTube; KeepLanguages are the detected
// languages whose text is stored, anything else is stored as NULL.
type TranscriptConfig struct {
	Enabled           bool     `yaml:"enabled"`
	SubtitleLanguages []string `yaml:"subtitle_languages"`
	KeepLanguages     []string `yaml:"keep_languages"`
}

type MonitoringConfig struct {
	HealthPort int `yaml:"health_port"`
}

// Load reads .env, the optional YAML file and the environment, applies
// defaults and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	configFile := os.Getenv("CONFIG_FILE")
	explicit := configFile != ""
	if !explicit {
		configFile = DefaultConfigFile
	}

	var cfg Config
	data, err := os.ReadFile(configFile)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	case os.IsNotExist(err) && !explicit:
		// secrets-only setup, everything else defaulted
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	cfg.AI.Provider = strings.ToLower(strings.TrimSpace(cfg.AI.Provider))
	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if c.YouTube.APIKey == "" {
		c.YouTube.APIKey = os.Getenv("YOUTUBE_API_KEY")
	}
	if c.AI.APIKey == "" {
		if c.AI.Provider == ProviderOpenAI {
			c.AI.APIKey = os.Getenv("OPENAI_API_KEY")
		} else {
			c.AI.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	if c.Store.URL == "" {
		c.Store.URL = os.Getenv("SUPABASE_URL")
	}
	if c.Store.Key == "" {
		c.Store.Key = os.Getenv("SUPABASE_KEY")
	}
}

func (c *Config) applyDefaults() {
	if c.YouTube.Query == "" {
		c.YouTube.Query = DefaultQuery
	}
	if c.YouTube.DaysBack == 0 {
		c.YouTube.DaysBack = 7
	}
	if c.YouTube.MaxResults == 0 {
		c.YouTube.MaxResults = 50
	}
	if c.YouTube.VideoDuration == "" {
		c.YouTube.VideoDuration = "long"
	}
	if c.YouTube.VideoDefinition == "" {
		c.YouTube.VideoDefinition = "high"
	}
	if c.YouTube.Order == "" {
		c.YouTube.Order = "relevance"
	}

	if c.AI.Provider == "" {
		c.AI.Provider = ProviderGemini
	}
	if c.AI.Model == "" {
		if c.AI.Provider == ProviderOpenAI {
			c.AI.Model = "gpt-4o-mini"
		} else {
			c.AI.Model = "gemini-2.5-flash"
		}
	}
	if len(c.AI.Topics) == 0 {
		c.AI.Topics = append([]string(nil), DefaultTopics...)
	}

	if c.Store.Table == "" {
		c.Store.Table = "videos"
	}
	if c.Store.TranscriptTable == "" {
		c.Store.TranscriptTable = "transcriptions"
	}
	if len(c.Transcript.SubtitleLanguages) == 0 {
		c.Transcript.SubtitleLanguages = []string{"en", "pt", "pt-BR"}
	}
	if len(c.Transcript.KeepLanguages) == 0 {
		c.Transcript.KeepLanguages = []string{"en", "pt"}
	}
	if c.Export.File == "" {
		c.Export.File = "youtube_videos_evaluated.xlsx"
	}
	if c.Export.Sheet == "" {
		c.Export.Sheet = "Videos"
	}
	if c.Monitoring.HealthPort == 0 {
		c.Monitoring.HealthPort = 8080
	}
}

func (c *Config) validate() error {
	if c.YouTube.APIKey == "" {
		return fmt.Errorf("%w: YouTube API key (set YOUTUBE_API_KEY or youtube.api_key)", ErrMissingSecret)
	}
	if c.AI.APIKey == "" {
		if c.AI.Provider == ProviderOpenAI {
			return fmt.Errorf("%w: OpenAI API key (set OPENAI_API_KEY or ai.api_key)", ErrMissingSecret)
		}
		return fmt.Errorf("%w: Gemini API key (set GEMINI_API_KEY or ai.api_key)", ErrMissingSecret)
	}
	if c.Store.URL == "" {
		return fmt.Errorf("%w: store URL (set SUPABASE_URL or store.url)", ErrMissingSecret)
	}
	if c.Store.Key == "" {
		return fmt.Errorf("%w: store key (set SUPABASE_KEY or store.key)", ErrMissingSecret)
	}

	if c.YouTube.DaysBack < 1 {
		return fmt.Errorf("%w: youtube.days_back must be at least 1, got %d", ErrInvalid, c.YouTube.DaysBack)
	}
	if c.YouTube.MaxResults < 1 {
		return fmt.Errorf("%w: youtube.max_results must be at least 1, got %d", ErrInvalid, c.YouTube.MaxResults)
	}
	if c.AI.Provider != ProviderGemini && c.AI.Provider != ProviderOpenAI {
		return fmt.Errorf("%w: unknown ai.provider %q (want %q or %q)", ErrInvalid, c.AI.Provider, ProviderGemini, ProviderOpenAI)
	}
	return nil
}

package config

import (
	"embed"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

type Server struct {
	Port         string `yaml:"port"`
	ReadTimeout  string `yaml:"read_timeout"`
	WriteTimeout string `yaml:"write_timeout"`
	IdleTimeout  string `yaml:"idle_timeout"`
}

type Log struct {
	Level string `yaml:"level"`
}

// Aliases lists, per ListEntry field, the upstream property names tried in
// order. The first one present with a usable value wins.
type Aliases struct {
	Title    []string `yaml:"title"`
	Date     []string `yaml:"date"`
	Excerpt  []string `yaml:"excerpt"`
	Category []string `yaml:"category"`
	Status   []string `yaml:"status"`
	Tags     []string `yaml:"tags"`
}

type Content struct {
	Timeout    string   `yaml:"timeout"`
	MaxPages   int      `yaml:"max_pages"`
	Categories []string `yaml:"categories"`
	Aliases    Aliases  `yaml:"aliases"`
}

type Notion struct {
	Token          string `yaml:"token,omitempty"`
	DatabaseID     string `yaml:"database_id,omitempty"`
	BaseURL        string `yaml:"base_url"`
	Version        string `yaml:"version"`
	PublishedValue string `yaml:"published_value"`
}

type Writing struct {
	FeedURL       string `yaml:"feed_url,omitempty"`
	ExcerptLength int    `yaml:"excerpt_length"`
}

type Spotify struct {
	ClientID     string `yaml:"client_id,omitempty"`
	ClientSecret string `yaml:"client_secret,omitempty"`
	RefreshToken string `yaml:"refresh_token,omitempty"`
	RedirectURI  string `yaml:"redirect_uri"`
	Timeout      string `yaml:"timeout"`
	TokenURL     string `yaml:"token_url"`
	AuthURL      string `yaml:"auth_url"`
	APIBaseURL   string `yaml:"api_base_url"`
}

type Monitor struct {
	Interval string `yaml:"interval"`
	History  int    `yaml:"history"`
}

type Config struct {
	Server  Server  `yaml:"server"`
	Log     Log     `yaml:"log"`
	Content Content `yaml:"content"`
	Notion  Notion  `yaml:"notion"`
	Writing Writing `yaml:"writing"`
	Spotify Spotify `yaml:"spotify"`
	Monitor Monitor `yaml:"monitor"`
}

// NotionConfigured reports whether both the integration token and the
// database id are present.
func (c *Config) NotionConfigured() bool {
	return c.Notion.Token != "" && c.Notion.DatabaseID != ""
}

func (c *Config) ContentTimeout() time.Duration {
	return parseDuration(c.Content.Timeout, 10*time.Second)
}

func (c *Config) SpotifyTimeout() time.Duration {
	return parseDuration(c.Spotify.Timeout, 10*time.Second)
}

// MonitorInterval returns the probe interval. Zero disables probing.
func (c *Config) MonitorInterval() time.Duration {
	return parseDuration(c.Monitor.Interval, 5*time.Minute)
}

func (c *Config) ReadTimeout() time.Duration {
	return parseDuration(c.Server.ReadTimeout, 10*time.Second)
}

func (c *Config) WriteTimeout() time.Duration {
	return parseDuration(c.Server.WriteTimeout, 10*time.Second)
}

func (c *Config) IdleTimeout() time.Duration {
	return parseDuration(c.Server.IdleTimeout, 60*time.Second)
}

// LogLevel maps log.level onto a slog level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "folio", "config.yaml")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load reads the config at path (the default location when empty) over the
// embedded defaults, then applies environment overrides. A missing file is
// not an error.
func Load(path string) (*Config, error) {
	return load(path, os.Getenv)
}

// LoadFile is Load without environment overrides. Use it when the result
// is written back with Save so values that only exist in the environment
// stay there.
func LoadFile(path string) (*Config, error) {
	return load(path, nil)
}

func load(path string, getenv func(string) string) (*Config, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Decoding over the defaults keeps every key the file leaves out.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if getenv != nil {
		applyEnv(cfg, getenv)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories. Secrets are written
// as-is, so the file is only readable by its owner.
func Save(path string, cfg *Config) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Server.Port, "PORT")
	set(&cfg.Log.Level, "LOG_LEVEL")
	set(&cfg.Notion.Token, "NOTION_TOKEN")
	set(&cfg.Notion.DatabaseID, "NOTION_DATABASE_ID")
	set(&cfg.Writing.FeedURL, "WRITING_FEED_URL")
	set(&cfg.Spotify.ClientID, "SPOTIFY_CLIENT_ID")
	set(&cfg.Spotify.ClientSecret, "SPOTIFY_CLIENT_SECRET")
	set(&cfg.Spotify.RefreshToken, "SPOTIFY_REFRESH_TOKEN")
	set(&cfg.Spotify.RedirectURI, "SPOTIFY_REDIRECT_URI")
}

func validate(cfg *Config) error {
	if len(cfg.Content.Aliases.Title) == 0 {
		return fmt.Errorf("content.aliases.title: at least one alias is required")
	}
	if len(cfg.Content.Aliases.Status) == 0 || len(cfg.Content.Aliases.Date) == 0 {
		return fmt.Errorf("content.aliases: status and date need at least one alias")
	}
	urls := map[string]string{
		"notion.base_url":      cfg.Notion.BaseURL,
		"spotify.token_url":    cfg.Spotify.TokenURL,
		"spotify.auth_url":     cfg.Spotify.AuthURL,
		"spotify.api_base_url": cfg.Spotify.APIBaseURL,
	}
	if cfg.Writing.FeedURL != "" {
		urls["writing.feed_url"] = cfg.Writing.FeedURL
	}
	for key, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%s: invalid url: %w", key, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%s: url scheme must be http or https, got %q", key, u.Scheme)
		}
	}
	return nil
}

package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Spotify  SpotifyConfig  `toml:"spotify"`
	Auth     AuthConfig     `toml:"auth"`
	LLM      LLMConfig      `toml:"llm"`
	Deezer   DeezerConfig   `toml:"deezer"`
	Matcher  MatcherConfig  `toml:"matcher"`
	Database DatabaseConfig `toml:"database"`
	Output   OutputConfig   `toml:"output"`
	LogLevel string         `toml:"log_level"`
}

// SpotifyConfig points at the credentials file and carries the OAuth settings.
type SpotifyConfig struct {
	CredentialsFile string   `toml:"credentials_file"`
	RedirectURI     string   `toml:"redirect_uri"`
	Scopes          []string `toml:"scopes"`
}

// AuthConfig controls the redirect wait and token refresh window.
type AuthConfig struct {
	TimeoutSeconds       int `toml:"timeout_seconds"`
	RefreshMarginSeconds int `toml:"refresh_margin_seconds"`
}

// Timeout returns the redirect wait as a [time.Duration].
func (a AuthConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// RefreshMargin returns the refresh window as a [time.Duration].
func (a AuthConfig) RefreshMargin() time.Duration {
	return time.Duration(a.RefreshMarginSeconds) * time.Second
}

// LLMConfig selects the vision and parameter providers.
type LLMConfig struct {
	VisionProvider string `toml:"vision_provider"`
	VisionModel    string `toml:"vision_model"`
	ParamsProvider string `toml:"params_provider"`
	ParamsModel    string `toml:"params_model"`
	OpenAIBaseURL  string `toml:"openai_base_url"`
	OllamaBaseURL  string `toml:"ollama_base_url"`
	OpenAIAPIKey   string `toml:"-"`
}

// DeezerConfig contains catalog search settings.
type DeezerConfig struct {
	BaseURL   string  `toml:"base_url"`
	Playlists int     `toml:"playlists"`
	MinScore  float64 `toml:"min_score"`
}

// MatcherConfig paces destination searches and sizes add batches.
type MatcherConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	BatchSize         int     `toml:"batch_size"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// OutputConfig contains paths for generated artifacts.
type OutputConfig struct {
	CardsDir string `toml:"cards_dir"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys absent from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	config.ApplyEnv()
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ApplyEnv overlays secrets and overrides from the process environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.OpenAIAPIKey = v
	}
	if v := os.Getenv("SPOTIFY_REDIRECT_URI"); v != "" {
		c.Spotify.RedirectURI = v
	}
	if v := os.Getenv("PICTUNE_DB"); v != "" {
		c.Database.Path = v
	}
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig encodes config as TOML and writes it to path, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

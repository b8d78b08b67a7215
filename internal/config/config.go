package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Google  GoogleConfig
	Assist  AssistConfig
	Storage StorageConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

// GoogleConfig holds the OAuth client credentials for the provider. The
// daemon only consumes tokens produced by the auth command; it never
// refreshes credentials on its own.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	CalendarID   string
}

type AssistConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4700,
		},
		Google: GoogleConfig{
			CalendarID: "primary",
		},
		Assist: AssistConfig{
			Model: "anthropic/claude-sonnet-4",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a .env file (if present), the JSON config
// file at $XDG_CONFIG_HOME/rolo/config.json, and ROLO_* environment
// variables, in increasing priority.
func Load() (Config, error) {
	// Best effort; a missing .env file is the normal case.
	_ = godotenv.Load()
	return loadWith(newFileBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()
	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "rolo-data"
		}
	}
	return filepath.Join(dir, "rolo")
}

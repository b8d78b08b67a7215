package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "ROLO_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "google.client_id", typ: kString, env: "ROLO_GOOGLE_CLIENT_ID",
		apply:   func(cfg *Config, v any) { cfg.Google.ClientID = v.(string) },
		extract: func(cfg Config) any { return cfg.Google.ClientID },
	},
	{
		key: "google.client_secret", typ: kString, env: "ROLO_GOOGLE_CLIENT_SECRET",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Google.ClientSecret = v.(string) },
		extract: func(cfg Config) any { return cfg.Google.ClientSecret },
	},
	{
		key: "google.calendar_id", typ: kString, env: "ROLO_GOOGLE_CALENDAR_ID",
		apply:   func(cfg *Config, v any) { cfg.Google.CalendarID = v.(string) },
		extract: func(cfg Config) any { return cfg.Google.CalendarID },
	},
	{
		key: "assist.api_key", typ: kString, env: "ROLO_ASSIST_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Assist.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Assist.APIKey },
	},
	{
		key: "assist.model", typ: kString, env: "ROLO_ASSIST_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Assist.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Assist.Model },
	},
	{
		key: "assist.base_url", typ: kString, env: "ROLO_ASSIST_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Assist.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Assist.BaseURL },
	},
	{
		key: "storage.data_dir", typ: kString, env: "ROLO_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "ROLO_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}

package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Room struct {
		// Debounce absorbs near-simultaneous join races. Policy knob, not a
		// correctness mechanism; tests run with zero.
		Debounce string `yaml:"debounce"`
	} `yaml:"room"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Bank struct {
		TTL string `yaml:"ttl"`
	} `yaml:"bank"`
	Client struct {
		ServerURL  string `yaml:"serverUrl"`
		STUNServer string `yaml:"stunServer"`
	} `yaml:"client"`
	Timed struct {
		// Two-round variant timers. The original shipped placeholder values;
		// these must stay configurable.
		ShowQuestion string `yaml:"showQuestion"`
		AnswerWindow string `yaml:"answerWindow"`
	} `yaml:"timed"`
}

// Load reads YAML config from path and applies environment overrides.
// A .env file next to the binary is honored the same way (existing env wins).
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	applyEnv(&cfg)
	return cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("POSTGRES_URL"); v != "" {
		cfg.Postgres.URL = v
	}
	if v := os.Getenv("SIGNALING_URL"); v != "" {
		cfg.Client.ServerURL = v
	}
	if v := os.Getenv("STUN_SERVER"); v != "" {
		cfg.Client.STUNServer = v
	}
	if cfg.Client.ServerURL == "" {
		cfg.Client.ServerURL = "ws://localhost:8080/ws"
	}
	if cfg.Client.STUNServer == "" {
		cfg.Client.STUNServer = "stun:stun.l.google.com:19302"
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

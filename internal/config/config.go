// Package config loads runtime settings. Sources are layered, later ones
// winning: built-in defaults, an optional YAML file, a .env file, DUTCHDRILL_
// environment variables and finally command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const EnvPrefix = "DUTCHDRILL_"

type Config struct {
	Log      LogConfig      `koanf:"log"`
	DB       DBConfig       `koanf:"db"`
	Server   ServerConfig   `koanf:"server"`
	Content  ContentConfig  `koanf:"content"`
	Queue    QueueConfig    `koanf:"queue"`
	Schedule ScheduleConfig `koanf:"schedule"`
	Learner  string         `koanf:"learner" validate:"required"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

type DBConfig struct {
	Driver string `koanf:"driver" validate:"oneof=sqlite postgres"`
	DSN    string `koanf:"dsn" validate:"required"`
}

type ServerConfig struct {
	Addr string `koanf:"addr" validate:"required"`
}

type ContentConfig struct {
	// Dirs are local deck directories loaded on top of the embedded decks.
	Dirs []string `koanf:"dirs"`
	// ReposDir is where git sources are cloned.
	ReposDir string `koanf:"reposdir" validate:"required"`
	// Exercises optionally replaces the embedded exercises file.
	Exercises string `koanf:"exercises"`
}

// QueueConfig tunes the smart queue. Zero values select the built-in defaults.
type QueueConfig struct {
	Window      int     `koanf:"window" validate:"gte=0"`
	GroupWindow int     `koanf:"groupwindow" validate:"gte=0"`
	Lookahead   int     `koanf:"lookahead" validate:"gte=0"`
	// Bias 0 disables the incorrect-item preference of test exercises.
	Bias        float64 `koanf:"bias" validate:"gte=0,lte=1"`
	Recent      int     `koanf:"recent" validate:"gte=0"`
}

// ScheduleConfig sets background job intervals. Zero disables a job.
type ScheduleConfig struct {
	Flush time.Duration `koanf:"flush" validate:"gte=0"`
	Sync  time.Duration `koanf:"sync" validate:"gte=0"`
}

var defaults = map[string]interface{}{
	"log.level":         "info",
	"db.driver":         "sqlite",
	"db.dsn":            "dutchdrill.db",
	"server.addr":       ":8080",
	"content.dirs":      []string{},
	"content.reposdir":  "repos",
	"content.exercises": "",
	"queue.window":      0,
	"queue.groupwindow": 0,
	"queue.lookahead":   0,
	"queue.bias":        0.7,
	"queue.recent":      0,
	"schedule.flush":    "30s",
	"schedule.sync":     "0s",
	"learner":           "default",
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"db-driver":  "db.driver",
	"db-dsn":     "db.dsn",
	"addr":       "server.addr",
	"decks":      "content.dirs",
	"repos-dir":  "content.reposdir",
	"exercises":  "content.exercises",
	"window":     "queue.window",
	"bias":       "queue.bias",
	"flush":      "schedule.flush",
	"sync-every": "schedule.sync",
	"learner":    "learner",
}

// RegisterFlags adds the overridable settings to fs. Flags left unset never
// override a value from another source.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a YAML config file")
	fs.String("env-file", ".env", "Path to a .env file")
	fs.String("log-level", "info", "Log level: debug, info, warn or error")
	fs.String("db-driver", "sqlite", "Database driver: sqlite or postgres")
	fs.String("db-dsn", "dutchdrill.db", "Database DSN (sqlite file path or postgres URL)")
	fs.String("addr", ":8080", "HTTP listen address")
	fs.StringSlice("decks", nil, "Extra local deck directories")
	fs.String("repos-dir", "repos", "Directory git sources are cloned into")
	fs.String("exercises", "", "Exercises YAML file replacing the embedded one")
	fs.Int("window", 0, "Recency window for flat queues (0 = automatic)")
	fs.Float64("bias", 0.7, "Incorrect-item bias for test exercises (0..1)")
	fs.Duration("flush", 30*time.Second, "Progress flush interval (0 disables)")
	fs.Duration("sync-every", 0, "Source sync interval (0 disables)")
	fs.String("learner", "default", "Learner name progress is stored under")
}

// Load builds the configuration. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	configPath := stringFlag(flags, "config")
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envFile := stringFlag(flags, "env-file")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		p := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(p, nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey turns DUTCHDRILL_DB_DSN into db.dsn.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
}

func stringFlag(flags *pflag.FlagSet, name string) string {
	if flags == nil || flags.Lookup(name) == nil {
		return ""
	}
	v, _ := flags.GetString(name)
	return v
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SlogLevel maps Log.Level to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Package config loads lexibox settings from defaults, an optional YAML
// file, LEXIBOX_ environment variables and command-line flags, in that
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
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

const EnvPrefix = "LEXIBOX_"

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Review   ReviewConfig   `koanf:"review"`
	Reminder ReminderConfig `koanf:"reminder"`
	Import   ImportConfig   `koanf:"import"`
	Log      LogConfig      `koanf:"log"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

type DatabaseConfig struct {
	Driver string `koanf:"driver" validate:"oneof=sqlite postgres"`
	DSN    string `koanf:"dsn" validate:"required"`
}

type ReviewConfig struct {
	Mode         string `koanf:"mode" validate:"oneof=client database"`
	SessionLimit int    `koanf:"session_limit" validate:"min=1,max=100"`
}

type ReminderConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Interval      time.Duration `koanf:"interval" validate:"min=1m"`
	TelegramToken string        `koanf:"telegram_token"`
}

type ImportConfig struct {
	ReposDir string `koanf:"repos_dir" validate:"required"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "lexibox.db",
		},
		Review: ReviewConfig{
			Mode:         "client",
			SessionLimit: 50,
		},
		Reminder: ReminderConfig{
			Interval: time.Hour,
		},
		Import: ImportConfig{
			ReposDir: "repos",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"addr":          "server.addr",
	"db-driver":     "database.driver",
	"db":            "database.dsn",
	"review-mode":   "review.mode",
	"session-limit": "review.session_limit",
	"reminders":     "reminder.enabled",
	"repos-dir":     "import.repos_dir",
	"log-level":     "log.level",
	"log-format":    "log.format",
}

// RegisterFlags adds the configuration flags. Flag defaults mirror
// Default.
func RegisterFlags(flags *pflag.FlagSet) {
	d := Default()
	flags.String("config", "", "Path to a YAML config file")
	flags.String("addr", d.Server.Addr, "HTTP listen address")
	flags.String("db-driver", d.Database.Driver, "Database driver (sqlite or postgres)")
	flags.String("db", d.Database.DSN, "Database DSN or SQLite file path")
	flags.String("review-mode", d.Review.Mode, "Where reviews are computed (client or database)")
	flags.Int("session-limit", d.Review.SessionLimit, "Maximum cards per review session")
	flags.Bool("reminders", d.Reminder.Enabled, "Send periodic due-card reminders")
	flags.String("repos-dir", d.Import.ReposDir, "Directory git decks are cloned into")
	flags.String("log-level", d.Log.Level, "Log level (debug, info, warn, error)")
	flags.String("log-format", d.Log.Format, "Log format (text or json)")
}

// Load builds the configuration. flags must have been registered with
// RegisterFlags and parsed; it may be nil to skip flags.
func Load(flags *pflag.FlagSet) (Config, error) {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	k := koanf.New(".")

	if flags != nil {
		if path, _ := flags.GetString("config"); path != "" {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagValue(flags)), nil); err != nil {
			return Config{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey turns LEXIBOX_SERVER_READ_TIMEOUT into server.read_timeout.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(key, "_", ".", 1)
}

func flagValue(flags *pflag.FlagSet) func(f *pflag.Flag) (string, interface{}) {
	return func(f *pflag.Flag) (string, interface{}) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(flags, f)
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg against its constraints.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

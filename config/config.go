package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds process-level settings read from the environment. The panel's
// own settings (port, static dir, password, games) live in the TOML file named
// by ConfigFile; see File.
type Config struct {
	// ConfigFile is the path of the TOML panel configuration.
	ConfigFile string `env:"CONFIG_FILE" envDefault:"server_config.toml"`
	// ListenHost is the interface the panel binds to. The port comes from the
	// TOML file's listen_port.
	ListenHost string `env:"LISTEN_HOST" envDefault:"127.0.0.1"`
	// SessionTTL is how long a login stays valid after the password check.
	// Set to 0 to disable expiry.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"12h"`
	// LoginMaxAttempts is the number of failed password checks allowed per IP
	// within LoginWindow before the IP is temporarily blocked. 0 disables limiting.
	LoginMaxAttempts int `env:"LOGIN_MAX_ATTEMPTS" envDefault:"10"`
	// LoginWindow is the sliding window duration for counting failed logins.
	LoginWindow time.Duration `env:"LOGIN_WINDOW" envDefault:"15m"`
	// LoginBanDuration is how long an IP is blocked after exceeding LoginMaxAttempts.
	LoginBanDuration time.Duration `env:"LOGIN_BAN_DURATION" envDefault:"15m"`
	// BcryptCost is the work factor used by set-password.
	BcryptCost int `env:"BCRYPT_COST" envDefault:"4"`
	// ShutdownTimeout is the maximum duration to wait for in-flight requests
	// to complete during graceful shutdown.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	// MetricsAddr is the listen address of the Prometheus endpoint. Empty disables it.
	MetricsAddr string `env:"METRICS_ADDR"`
	// CORSOrigins is the set of origins (comma-separated) allowed to make
	// credentialed cross-origin requests. Empty disables CORS handling.
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`
	// HistoryDB is the SQLite database used for the launch history. Empty
	// disables the history.
	HistoryDB string `env:"HISTORY_DB" envDefault:"arclight.db"`
	// GopsAgent starts the gops diagnostics agent.
	GopsAgent bool `env:"GOPS_AGENT" envDefault:"false"`
}

// Load parses configuration from environment variables, after merging a .env
// file from the working directory when one exists. Variables already set in
// the environment win over the file.
// Returns an error if a value cannot be parsed into the expected type.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: .env: %w", err)
	}
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

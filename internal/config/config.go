// Package config parses the server configuration from flags and environment
// variables, and sets up the global logger.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	RepoPostgres = "postgres"
	RepoMemory   = "memory"
)

// Config holds the server settings
type Config struct {
	RepoKind string `help:"Repository backend." enum:"postgres,memory" default:"postgres" env:"REPO_KIND"`

	DBConnStr  string `help:"Full PostgreSQL connection string. Overrides the DB_* settings." env:"DB_CONN_STR"`
	DBHost     string `help:"PostgreSQL host." default:"localhost" env:"DB_HOST"`
	DBPort     int    `help:"PostgreSQL port." default:"5432" env:"DB_PORT"`
	DBUser     string `help:"PostgreSQL user." default:"postgres" env:"DB_USER"`
	DBPassword string `help:"PostgreSQL password." default:"postgres" env:"DB_PASSWORD"`
	DBName     string `help:"PostgreSQL database." default:"wealthflow" env:"DB_NAME"`

	APIToken string `help:"Token expected in the authorization metadata." default:"dev-token" env:"API_TOKEN"`
	GRPCAddr string `help:"Address the gRPC server listens on." default:":8080" env:"GRPC_ADDR"`

	LogLevel  string `help:"Log level." enum:"trace,debug,info,warn,error" default:"info" env:"LOG_LEVEL"`
	LogFormat string `help:"Log format." enum:"json,console" default:"json" env:"LOG_FORMAT"`

	BaseCurrencies []string `help:"ISO codes of the currencies to create at startup." default:"EUR,USD" env:"BASE_CURRENCIES" sep:","`
}

// Load parses args (without the program name) and the environment into a Config
func Load(args []string) (*Config, error) {
	var cfg Config
	parser, err := kong.New(&cfg,
		kong.Name("wealthflow-valuation"),
		kong.Description("Holdings and valuation gRPC server."),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build config parser: %w", err)
	}
	if _, err := parser.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// ConnString returns the lib/pq connection string
func (c *Config) ConnString() string {
	if c.DBConnStr != "" {
		return c.DBConnStr
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

// SetupLogging configures the global zerolog logger
func (c *Config) SetupLogging() error {
	return setupLogging(os.Stderr, c.LogLevel, c.LogFormat)
}

func setupLogging(w io.Writer, level, format string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)

	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return nil
}

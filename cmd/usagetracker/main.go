package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/Fa-d/UsageTracker-Client-sub000/internal/api"
	"github.com/Fa-d/UsageTracker-Client-sub000/internal/store"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for engine state data
	DefaultStateDir = "/var/lib/usagetracker"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "usagetracker.db"
	// DefaultDBDriver is the storage backend used when none is configured
	DefaultDBDriver = "sqlite"
)

// Config holds environment configuration
type Config struct {
	DBDriver    string
	DatabaseURL string
	StateDir    string
	APIAddr     string
	Debug       bool
}

func main() {
	config := loadEnvironmentConfig()

	driver := flag.String("db-driver", config.DBDriver, "storage backend: sqlite, postgres or memory")
	dbDSN := flag.String("db-dsn", config.DatabaseURL, "database DSN (file path for sqlite, connection string for postgres)")
	stateDir := flag.String("state-dir", config.StateDir, "directory for engine state data")
	apiAddr := flag.String("api-addr", config.APIAddr, "listen address for the host surface")
	debug := flag.Bool("debug", config.Debug, "enable debug logging")
	flag.Parse()

	initializeLogger(*debug)

	dsn := *dbDSN
	if dsn == "" && *driver == DefaultDBDriver {
		dsn = filepath.Join(*stateDir, DefaultDBFileName)
		slog.Debug("No DSN configured, using default SQLite path", "dsn", dsn)
	}

	var storeOpts []store.Option
	if dsn != "" {
		storeOpts = append(storeOpts, store.WithDSN(dsn))
	}
	var apiOpts []api.Option
	if *apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*apiAddr))
	}

	slog.Info("Bootstrapping usage tracker engine", "driver", *driver, "dsn_set", dsn != "", "api_addr", *apiAddr)
	if err := api.Run(*driver, storeOpts, apiOpts...); err != nil {
		slog.Error("Engine failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("Engine exited successfully")
}

// initializeLogger sets up structured logging
func initializeLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	config := Config{
		DBDriver:    os.Getenv("USAGETRACKER_DB_DRIVER"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StateDir:    os.Getenv("USAGETRACKER_STATE_DIR"),
		APIAddr:     os.Getenv("API_ADDR"),
		Debug:       envBool("USAGETRACKER_DEBUG", false),
	}
	if config.DBDriver == "" {
		config.DBDriver = DefaultDBDriver
	}
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
	}
	return config
}

// envBool reads a boolean environment variable, falling back when the
// variable is unset or unparsable.
func envBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("Ignoring invalid boolean environment value", "key", key, "value", raw)
		return fallback
	}
	return value
}

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rmax-ai/pathlord/pkg/logging"
	rediscache "github.com/rmax-ai/pathlord/pkg/store/redis"
)

const (
	defaultAddr            = "127.0.0.1:8090"
	defaultStore           = "sqlite"
	defaultWebAssetsMode   = "embedded"
	defaultShutdownTimeout = 10 * time.Second
	defaultNeo4jURI        = "neo4j://localhost:7687"
)

type Config struct {
	DBPath          string
	Addr            string
	Store           string
	Neo4j           Neo4jConfig
	RedisAddr       string
	CacheTTL        time.Duration
	Logging         logging.Config
	WebAssetsMode   string
	WebDir          string
	SeedPath        string
	AllowedOrigins  []string
	OTLPEndpoint    string
	TLSCertFile     string
	TLSKeyFile      string
	ShutdownTimeout time.Duration
}

type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

func LoadConfig(args []string) (Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("failed to get cwd: %w", err)
	}

	defaultDBPath := filepath.Join(cwd, "pathlord.db")

	dbPath := envOrDefault("PATHLORD_DB_PATH", defaultDBPath)
	addr := addrFromEnv(defaultAddr)
	storeKind := envOrDefault("PATHLORD_STORE", defaultStore)
	cacheTTL, err := durationFromEnv("PATHLORD_CACHE_TTL", rediscache.DefaultTTL)
	if err != nil {
		return Config{}, err
	}
	shutdownTimeout, err := durationFromEnv("PATHLORD_SHUTDOWN_TIMEOUT", defaultShutdownTimeout)
	if err != nil {
		return Config{}, err
	}

	flagSet := flag.NewFlagSet("pathlord-d", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagDB := flagSet.String("db", dbPath, "path to SQLite database")
	flagAddr := flagSet.String("addr", addr, "HTTP listen address")
	flagStore := flagSet.String("store", storeKind, "graph store: sqlite|memory|neo4j")
	flagNeo4jURI := flagSet.String("neo4j-uri", envOrDefault("PATHLORD_NEO4J_URI", defaultNeo4jURI), "Neo4j bolt URI when store=neo4j")
	flagNeo4jUser := flagSet.String("neo4j-user", envOrDefault("PATHLORD_NEO4J_USER", "neo4j"), "Neo4j username")
	flagNeo4jPassword := flagSet.String("neo4j-password", os.Getenv("PATHLORD_NEO4J_PASSWORD"), "Neo4j password")
	flagNeo4jDatabase := flagSet.String("neo4j-database", os.Getenv("PATHLORD_NEO4J_DATABASE"), "Neo4j database name")
	flagRedis := flagSet.String("redis-addr", os.Getenv("PATHLORD_REDIS_ADDR"), "Redis address for the path cache; empty disables it")
	flagCacheTTL := flagSet.Duration("cache-ttl", cacheTTL, "path cache entry lifetime")
	flagLogLevel := flagSet.String("log-level", envOrDefault("PATHLORD_LOG_LEVEL", "info"), "log level: debug|info|warn|error")
	flagLogFormat := flagSet.String("log-format", envOrDefault("PATHLORD_LOG_FORMAT", "json"), "log format: json|console")
	flagWebAssets := flagSet.String("web-assets", envOrDefault("PATHLORD_WEB_ASSETS_MODE", defaultWebAssetsMode), "web assets mode: embedded|fs|off")
	flagWebDir := flagSet.String("web-dir", os.Getenv("PATHLORD_WEB_DIR"), "web assets directory when web-assets=fs")
	flagSeed := flagSet.String("seed", os.Getenv("PATHLORD_SEED"), "YAML graph applied at startup")
	flagOrigins := flagSet.String("allowed-origins", envOrDefault("PATHLORD_ALLOWED_ORIGINS", "*"), "comma-separated CORS origins")
	flagOTLP := flagSet.String("otlp-endpoint", os.Getenv("PATHLORD_OTLP_ENDPOINT"), "OTLP gRPC endpoint for traces; empty disables export")
	flagTLSCert := flagSet.String("tls-cert", os.Getenv("PATHLORD_TLS_CERT"), "TLS certificate file")
	flagTLSKey := flagSet.String("tls-key", os.Getenv("PATHLORD_TLS_KEY"), "TLS key file")
	flagShutdown := flagSet.Duration("shutdown-timeout", shutdownTimeout, "graceful shutdown deadline")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flagSet.SetOutput(os.Stdout)
			flagSet.PrintDefaults()
			return Config{}, err
		}
		return Config{}, err
	}

	config := Config{
		DBPath:    resolvePath(*flagDB, cwd),
		Addr:      strings.TrimSpace(*flagAddr),
		Store:     strings.ToLower(strings.TrimSpace(*flagStore)),
		RedisAddr: strings.TrimSpace(*flagRedis),
		CacheTTL:  *flagCacheTTL,
		Neo4j: Neo4jConfig{
			URI:      strings.TrimSpace(*flagNeo4jURI),
			Username: *flagNeo4jUser,
			Password: *flagNeo4jPassword,
			Database: strings.TrimSpace(*flagNeo4jDatabase),
		},
		Logging: logging.Config{
			Level:  strings.TrimSpace(*flagLogLevel),
			Format: strings.ToLower(strings.TrimSpace(*flagLogFormat)),
		},
		WebAssetsMode:   normalizeWebAssetsMode(*flagWebAssets),
		WebDir:          strings.TrimSpace(*flagWebDir),
		SeedPath:        resolvePath(*flagSeed, cwd),
		AllowedOrigins:  splitList(*flagOrigins),
		OTLPEndpoint:    strings.TrimSpace(*flagOTLP),
		TLSCertFile:     resolvePath(*flagTLSCert, cwd),
		TLSKeyFile:      resolvePath(*flagTLSKey, cwd),
		ShutdownTimeout: *flagShutdown,
	}

	if config.Addr == "" {
		return Config{}, errors.New("addr cannot be empty")
	}

	switch config.Store {
	case "sqlite":
		if config.DBPath == "" {
			return Config{}, errors.New("store=sqlite requires db")
		}
	case "memory":
	case "neo4j":
		if config.Neo4j.URI == "" {
			return Config{}, errors.New("store=neo4j requires neo4j-uri")
		}
	default:
		return Config{}, fmt.Errorf("unsupported store: %s", config.Store)
	}

	if config.RedisAddr != "" && config.CacheTTL <= 0 {
		return Config{}, errors.New("cache ttl must be positive")
	}
	if config.ShutdownTimeout <= 0 {
		return Config{}, errors.New("shutdown timeout must be positive")
	}

	if _, err := logging.ParseLevel(config.Logging.Level); err != nil {
		return Config{}, err
	}
	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return Config{}, fmt.Errorf("unsupported log format: %s", config.Logging.Format)
	}

	if (config.TLSCertFile == "") != (config.TLSKeyFile == "") {
		return Config{}, errors.New("tls-cert and tls-key must be set together")
	}

	if config.WebAssetsMode == "fs" {
		if config.WebDir == "" {
			return Config{}, errors.New("web-assets=fs requires web-dir")
		}
		config.WebDir = resolvePath(config.WebDir, cwd)
	}

	if config.WebAssetsMode != "embedded" && config.WebAssetsMode != "fs" && config.WebAssetsMode != "off" {
		return Config{}, fmt.Errorf("unsupported web-assets mode: %s", config.WebAssetsMode)
	}

	return config, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return parsed, nil
}

func addrFromEnv(fallback string) string {
	if value := os.Getenv("PATHLORD_ADDR"); value != "" {
		return value
	}
	if port := os.Getenv("PATHLORD_PORT"); port != "" {
		return fmt.Sprintf("127.0.0.1:%s", port)
	}
	return fallback
}

func resolvePath(path string, cwd string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return trimmed
	}
	if filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Join(cwd, trimmed)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeWebAssetsMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "embedded":
		return "embedded"
	case "fs", "dir", "directory":
		return "fs"
	case "off", "disabled", "none":
		return "off"
	default:
		return strings.ToLower(strings.TrimSpace(mode))
	}
}

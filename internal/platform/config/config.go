package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile              = ".env"
	defaultPort                 = "8080"
	defaultReadTimeout          = 15 * time.Second
	defaultWriteTimeout         = 30 * time.Second
	defaultIdleTimeout          = 120 * time.Second
	defaultCatalogBaseURL       = "https://dummyjson.com"
	defaultCatalogTimeout       = 8 * time.Second
	defaultCatalogListLimit     = 100
	defaultCatalogHomeLimit     = 24
	defaultStoreBackend         = StoreBackendMemory
	defaultSQLitePath           = "storefront.db"
	defaultFirestoreCollection  = "storefront_kv"
	defaultSessionHeader        = "X-Session-ID"
	defaultSessionCookie        = "sf_session"
	defaultSessionTTL           = 30 * 24 * time.Hour
	defaultIdempotencyHeader    = "Idempotency-Key"
	defaultIdempotencyTTL       = 24 * time.Hour
	defaultIdempotencyInterval  = time.Hour
	defaultIdempotencyBatchSize = 200
	defaultOrderPlacedTopic     = "storefront-order-placed"
)

// Store backends accepted by STOREFRONT_STORE_BACKEND.
const (
	StoreBackendMemory    = "memory"
	StoreBackendSQLite    = "sqlite"
	StoreBackendFirestore = "firestore"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Catalog     CatalogConfig
	Store       StoreConfig
	Firestore   FirestoreConfig
	Session     SessionConfig
	Idempotency IdempotencyConfig
	Events      EventsConfig
	Storefront  StorefrontConfig
	Tracing     TracingConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// CatalogConfig points at the upstream product API.
type CatalogConfig struct {
	BaseURL     string
	Timeout     time.Duration
	ListLimit   int
	HomeLimit   int
	SearchLimit int
}

// StoreConfig selects the key-value backend.
type StoreConfig struct {
	Backend    string
	SQLitePath string
}

// FirestoreConfig stores database parameters used when the firestore backend is selected.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
	Collection   string
}

// SessionConfig controls how anonymous shopper sessions are carried.
type SessionConfig struct {
	Header       string
	CookieName   string
	CookieTTL    time.Duration
	CookieSecure bool
}

// IdempotencyConfig controls idempotency middleware behaviour.
type IdempotencyConfig struct {
	Header           string
	TTL              time.Duration
	CleanupInterval  time.Duration
	CleanupBatchSize int
}

// EventsConfig configures order event publishing. Empty ProjectID disables publishing.
type EventsConfig struct {
	ProjectID        string
	OrderPlacedTopic string
	EmulatorHost     string
}

// StorefrontConfig locates the YAML file with promotions and home categories.
type StorefrontConfig struct {
	File  string
	Watch bool
}

// TracingConfig carries the project used to build Cloud Trace resource names.
type TracingConfig struct {
	ProjectID string
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration from defaults, .env overrides, environment variables and
// explicit overrides, in increasing order of precedence.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return Config{}, err
		}
	}

	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	storefrontFile := stringWithDefault(lookup, "STOREFRONT_CONFIG_FILE", "")
	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "STOREFRONT_SERVER_PORT", stringWithDefault(lookup, "PORT", defaultPort)),
			ReadTimeout:  durationWithDefault(lookup, "STOREFRONT_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "STOREFRONT_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "STOREFRONT_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Catalog: CatalogConfig{
			BaseURL:     strings.TrimRight(stringWithDefault(lookup, "STOREFRONT_CATALOG_BASE_URL", defaultCatalogBaseURL), "/"),
			Timeout:     durationWithDefault(lookup, "STOREFRONT_CATALOG_TIMEOUT", defaultCatalogTimeout),
			ListLimit:   intWithDefault(lookup, "STOREFRONT_CATALOG_LIST_LIMIT", defaultCatalogListLimit),
			HomeLimit:   intWithDefault(lookup, "STOREFRONT_CATALOG_HOME_LIMIT", defaultCatalogHomeLimit),
			SearchLimit: intWithDefault(lookup, "STOREFRONT_CATALOG_SEARCH_LIMIT", defaultCatalogListLimit),
		},
		Store: StoreConfig{
			Backend:    strings.ToLower(stringWithDefault(lookup, "STOREFRONT_STORE_BACKEND", defaultStoreBackend)),
			SQLitePath: stringWithDefault(lookup, "STOREFRONT_STORE_SQLITE_PATH", defaultSQLitePath),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "STOREFRONT_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "STOREFRONT_FIRESTORE_EMULATOR_HOST", ""),
			Collection:   stringWithDefault(lookup, "STOREFRONT_FIRESTORE_COLLECTION", defaultFirestoreCollection),
		},
		Session: SessionConfig{
			Header:       stringWithDefault(lookup, "STOREFRONT_SESSION_HEADER", defaultSessionHeader),
			CookieName:   stringWithDefault(lookup, "STOREFRONT_SESSION_COOKIE", defaultSessionCookie),
			CookieTTL:    durationWithDefault(lookup, "STOREFRONT_SESSION_COOKIE_TTL", defaultSessionTTL),
			CookieSecure: boolWithDefault(lookup, "STOREFRONT_SESSION_COOKIE_SECURE", false),
		},
		Idempotency: IdempotencyConfig{
			Header:           stringWithDefault(lookup, "STOREFRONT_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:              durationWithDefault(lookup, "STOREFRONT_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
			CleanupInterval:  durationWithDefault(lookup, "STOREFRONT_IDEMPOTENCY_CLEANUP_INTERVAL", defaultIdempotencyInterval),
			CleanupBatchSize: intWithDefault(lookup, "STOREFRONT_IDEMPOTENCY_CLEANUP_BATCH", defaultIdempotencyBatchSize),
		},
		Events: EventsConfig{
			ProjectID:        stringWithDefault(lookup, "STOREFRONT_EVENTS_PROJECT_ID", ""),
			OrderPlacedTopic: stringWithDefault(lookup, "STOREFRONT_EVENTS_ORDER_PLACED_TOPIC", defaultOrderPlacedTopic),
			EmulatorHost:     stringWithDefault(lookup, "PUBSUB_EMULATOR_HOST", ""),
		},
		Storefront: StorefrontConfig{
			File:  storefrontFile,
			Watch: boolWithDefault(lookup, "STOREFRONT_CONFIG_WATCH", storefrontFile != ""),
		},
		Tracing: TracingConfig{
			ProjectID: stringWithDefault(lookup, "STOREFRONT_TRACE_PROJECT_ID", stringWithDefault(lookup, "GOOGLE_CLOUD_PROJECT", "")),
		},
	}

	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Tracing.ProjectID
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if strings.TrimSpace(cfg.Server.Port) == "" {
		missing = append(missing, "Server.Port")
	}
	if strings.TrimSpace(cfg.Catalog.BaseURL) == "" {
		missing = append(missing, "Catalog.BaseURL")
	}
	if cfg.Catalog.Timeout <= 0 {
		missing = append(missing, "Catalog.Timeout")
	}
	if cfg.Catalog.ListLimit <= 0 {
		missing = append(missing, "Catalog.ListLimit")
	}
	if cfg.Catalog.HomeLimit <= 0 {
		missing = append(missing, "Catalog.HomeLimit")
	}
	switch cfg.Store.Backend {
	case StoreBackendMemory:
	case StoreBackendSQLite:
		if strings.TrimSpace(cfg.Store.SQLitePath) == "" {
			missing = append(missing, "Store.SQLitePath")
		}
	case StoreBackendFirestore:
		if strings.TrimSpace(cfg.Firestore.ProjectID) == "" {
			missing = append(missing, "Firestore.ProjectID")
		}
		if strings.TrimSpace(cfg.Firestore.Collection) == "" {
			missing = append(missing, "Firestore.Collection")
		}
	default:
		missing = append(missing, "Store.Backend")
	}
	if strings.TrimSpace(cfg.Session.Header) == "" && strings.TrimSpace(cfg.Session.CookieName) == "" {
		missing = append(missing, "Session.Header")
	}
	if strings.TrimSpace(cfg.Idempotency.Header) == "" {
		missing = append(missing, "Idempotency.Header")
	}
	if cfg.Idempotency.TTL <= 0 {
		missing = append(missing, "Idempotency.TTL")
	}
	if cfg.Idempotency.CleanupInterval <= 0 {
		missing = append(missing, "Idempotency.CleanupInterval")
	}
	if cfg.Idempotency.CleanupBatchSize <= 0 {
		missing = append(missing, "Idempotency.CleanupBatchSize")
	}
	if cfg.Events.ProjectID != "" && strings.TrimSpace(cfg.Events.OrderPlacedTopic) == "" {
		missing = append(missing, "Events.OrderPlacedTopic")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

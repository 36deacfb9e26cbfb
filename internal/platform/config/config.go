package config

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const (
	defaultEnvFile               = ".env"
	defaultPort                  = "8080"
	defaultReadTimeout           = 15 * time.Second
	defaultWriteTimeout          = 30 * time.Second
	defaultIdleTimeout           = 120 * time.Second
	defaultPublicBaseURL         = "https://storage.googleapis.com"
	defaultEmailTopic            = "transactional-email"
	defaultOrderEventsTopic      = "order-events"
	defaultRedisTTL              = 10 * time.Minute
	defaultSessionTTL            = 7 * 24 * time.Hour
	defaultSessionIssuer         = "shutterbay-api"
	defaultCurrency              = "USD"
	defaultTaxRate               = "0.15"
	defaultFreeShippingThreshold = 10000
	defaultFlatShippingFee       = 1000
	defaultSupportEmail          = "support@shutterbay.example"
	defaultPageSize              = 10
	defaultMaxPageSize           = 100
	defaultSecurityEnvironment   = "local"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server     ServerConfig
	Firebase   FirebaseConfig
	Firestore  FirestoreConfig
	Storage    StorageConfig
	PubSub     PubSubConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Shop       ShopConfig
	Pagination PaginationConfig
	Security   SecurityConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirebaseConfig stores Firebase project settings.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// StorageConfig describes where product images are written and how they are addressed publicly.
type StorageConfig struct {
	ProductImagesBucket string
	PublicBaseURL       string
}

// PubSubConfig lists the topics used for transactional email and order events.
type PubSubConfig struct {
	ProjectID        string
	EmailTopic       string
	OrderEventsTopic string
}

// RedisConfig enables the product cache when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// AuthConfig controls locally issued session tokens for password accounts.
type AuthConfig struct {
	SessionSigningKey string
	SessionTTL        time.Duration
	SessionIssuer     string
}

// ShopConfig carries storefront pricing rules. Amounts are minor units of Currency.
type ShopConfig struct {
	Currency              string
	TaxRate               string
	FreeShippingThreshold int64
	FlatShippingFee       int64
	SupportEmail          string
}

// PaginationConfig bounds list endpoints.
type PaginationConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// SecurityConfig groups deployment level settings.
type SecurityConfig struct {
	Environment string
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
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

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

// MissingSecretsError indicates that one or more required secrets resolved to empty values.
type MissingSecretsError struct {
	names []string
}

// Error implements the error interface.
func (e *MissingSecretsError) Error() string {
	return fmt.Sprintf("missing required secrets [%s]", strings.Join(e.RedactedNames(), ", "))
}

// RedactedNames returns hashed secret identifiers that are safe to log.
func (e *MissingSecretsError) RedactedNames() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.names))
	for _, name := range e.names {
		sum := sha256.Sum256([]byte(name))
		out = append(out, hex.EncodeToString(sum[:8]))
	}
	sort.Strings(out)
	return out
}

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile         string
	envMap          map[string]string
	useSystemEnv    bool
	secret          SecretResolver
	requiredSecrets []string
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map that takes precedence over the system environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets the resolver used for secret:// and sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// WithRequiredSecrets marks secret fields (e.g. "Auth.SessionSigningKey") as mandatory.
func WithRequiredSecrets(names ...string) Option {
	return func(o *loaderOptions) {
		o.requiredSecrets = append(o.requiredSecrets, names...)
	}
}

// Lookup returns a single effective environment value using the same precedence as Load.
// main uses it to configure the secret resolver before Load runs.
func Lookup(key string, opts ...Option) string {
	options := defaultLoaderOptions()
	for _, opt := range opts {
		opt(&options)
	}
	dotEnv, _ := loadDotEnv(options.envFile)
	value, _ := newLookup(options, dotEnv)(key)
	return strings.TrimSpace(value)
}

func defaultLoaderOptions() loaderOptions {
	return loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		secret: SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
			return "", errSecretResolverNotConfigured
		}),
	}
}

func newLookup(options loaderOptions, dotEnv map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if value, ok := options.envMap[key]; ok {
			return value, true
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if value, ok := dotEnv[key]; ok {
			return value, true
		}
		return "", false
	}
}

// Load assembles the application configuration by combining defaults, .env overrides,
// environment variables, and optional secret manager lookups.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := defaultLoaderOptions()
	for _, opt := range opts {
		opt(&options)
	}

	dotEnv, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}
	lookup := newLookup(options, dotEnv)

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "API_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Firebase: FirebaseConfig{
			ProjectID:       stringWithDefault(lookup, "API_FIREBASE_PROJECT_ID", ""),
			CredentialsFile: stringWithDefault(lookup, "API_FIREBASE_CREDENTIALS_FILE", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "API_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "API_FIRESTORE_EMULATOR_HOST", ""),
		},
		Storage: StorageConfig{
			ProductImagesBucket: stringWithDefault(lookup, "API_STORAGE_PRODUCT_IMAGES_BUCKET", ""),
			PublicBaseURL:       strings.TrimRight(stringWithDefault(lookup, "API_STORAGE_PUBLIC_BASE_URL", defaultPublicBaseURL), "/"),
		},
		PubSub: PubSubConfig{
			ProjectID:        stringWithDefault(lookup, "API_PUBSUB_PROJECT_ID", ""),
			EmailTopic:       stringWithDefault(lookup, "API_PUBSUB_EMAIL_TOPIC", defaultEmailTopic),
			OrderEventsTopic: stringWithDefault(lookup, "API_PUBSUB_ORDER_EVENTS_TOPIC", defaultOrderEventsTopic),
		},
		Redis: RedisConfig{
			Addr:     stringWithDefault(lookup, "API_REDIS_ADDR", ""),
			Password: stringWithDefault(lookup, "API_REDIS_PASSWORD", ""),
			DB:       intWithDefault(lookup, "API_REDIS_DB", 0),
			TTL:      durationWithDefault(lookup, "API_REDIS_TTL", defaultRedisTTL),
		},
		Auth: AuthConfig{
			SessionSigningKey: stringWithDefault(lookup, "API_AUTH_SESSION_SIGNING_KEY", ""),
			SessionTTL:        durationWithDefault(lookup, "API_AUTH_SESSION_TTL", defaultSessionTTL),
			SessionIssuer:     stringWithDefault(lookup, "API_AUTH_SESSION_ISSUER", defaultSessionIssuer),
		},
		Shop: ShopConfig{
			Currency:              strings.ToUpper(stringWithDefault(lookup, "API_SHOP_CURRENCY", defaultCurrency)),
			TaxRate:               stringWithDefault(lookup, "API_SHOP_TAX_RATE", defaultTaxRate),
			FreeShippingThreshold: int64WithDefault(lookup, "API_SHOP_FREE_SHIPPING_THRESHOLD", defaultFreeShippingThreshold),
			FlatShippingFee:       int64WithDefault(lookup, "API_SHOP_FLAT_SHIPPING_FEE", defaultFlatShippingFee),
			SupportEmail:          stringWithDefault(lookup, "API_SHOP_SUPPORT_EMAIL", defaultSupportEmail),
		},
		Pagination: PaginationConfig{
			DefaultPageSize: intWithDefault(lookup, "API_PAGINATION_DEFAULT_SIZE", defaultPageSize),
			MaxPageSize:     intWithDefault(lookup, "API_PAGINATION_MAX_SIZE", defaultMaxPageSize),
		},
		Security: SecurityConfig{
			Environment: strings.ToLower(stringWithDefault(lookup, "API_SECURITY_ENVIRONMENT", defaultSecurityEnvironment)),
		},
	}

	// Firestore and Pub/Sub default to the Firebase project when unspecified.
	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Firebase.ProjectID
	}
	if cfg.PubSub.ProjectID == "" {
		cfg.PubSub.ProjectID = cfg.Firebase.ProjectID
	}

	resolved := make(map[string]string)
	secretFields := []struct {
		name  string
		field *string
	}{
		{"Auth.SessionSigningKey", &cfg.Auth.SessionSigningKey},
		{"Redis.Password", &cfg.Redis.Password},
	}
	for _, target := range secretFields {
		value, err := resolveSecret(ctx, *target.field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*target.field = value
		resolved[target.name] = strings.TrimSpace(value)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	var missing []string
	for _, name := range options.requiredSecrets {
		name = strings.TrimSpace(name)
		if name != "" && resolved[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Config{}, &MissingSecretsError{names: missing}
	}

	return cfg, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	trimmed := strings.TrimSpace(value)
	if !isSecretReference(trimmed) {
		return value, nil
	}
	normalized := normalizeSecretReference(trimmed)
	if resolver == nil {
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return secret, nil
}

func validateConfig(cfg Config) error {
	var invalid []string

	if cfg.Server.Port == "" {
		invalid = append(invalid, "Server.Port")
	}
	if cfg.Firebase.ProjectID == "" {
		invalid = append(invalid, "Firebase.ProjectID")
	}
	if cfg.Firestore.ProjectID == "" {
		invalid = append(invalid, "Firestore.ProjectID")
	}
	if cfg.Storage.ProductImagesBucket == "" {
		invalid = append(invalid, "Storage.ProductImagesBucket")
	}
	if _, err := currency.ParseISO(cfg.Shop.Currency); err != nil {
		invalid = append(invalid, "Shop.Currency")
	}
	if rate, err := decimal.NewFromString(cfg.Shop.TaxRate); err != nil || rate.IsNegative() {
		invalid = append(invalid, "Shop.TaxRate")
	}
	if cfg.Shop.FreeShippingThreshold < 0 {
		invalid = append(invalid, "Shop.FreeShippingThreshold")
	}
	if cfg.Shop.FlatShippingFee < 0 {
		invalid = append(invalid, "Shop.FlatShippingFee")
	}
	if cfg.Auth.SessionTTL <= 0 {
		invalid = append(invalid, "Auth.SessionTTL")
	}
	if cfg.Pagination.DefaultPageSize <= 0 {
		invalid = append(invalid, "Pagination.DefaultPageSize")
	}
	if cfg.Pagination.MaxPageSize < cfg.Pagination.DefaultPageSize {
		invalid = append(invalid, "Pagination.MaxPageSize")
	}

	if len(invalid) > 0 {
		return &ValidationError{fields: invalid}
	}
	return nil
}

func isSecretReference(value string) bool {
	return strings.HasPrefix(value, "secret://") || strings.HasPrefix(value, "sm://")
}

func normalizeSecretReference(value string) string {
	if strings.HasPrefix(value, "sm://") {
		return "secret://" + strings.TrimPrefix(value, "sm://")
	}
	return value
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

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
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

func int64WithDefault(lookup func(string) (string, bool), key string, fallback int64) int64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

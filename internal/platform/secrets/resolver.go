package secrets

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	schemePrefix        = "secret://"
	defaultFallbackPath = ".secrets.local"
)

// ErrSecretNotFound is returned when neither Secret Manager nor the local fallback has the secret.
var ErrSecretNotFound = errors.New("secrets: secret not found")

// AccessClient is the subset of the Secret Manager client used by Resolver.
type AccessClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Resolver resolves secret://name[@version] references. Values are cached for the process lifetime.
// In the local environment a dotenv style fallback file is consulted when Secret Manager is unreachable.
type Resolver struct {
	client       AccessClient
	projectID    string
	environment  string
	fallbackPath string
	logger       *zap.Logger

	mu       sync.Mutex
	cache    map[string]string
	fallback map[string]string

	latency metric.Float64Histogram
}

// Option customises Resolver.
type Option func(*Resolver)

// WithClient injects a Secret Manager client.
func WithClient(client AccessClient) Option { return func(r *Resolver) { r.client = client } }

// WithLogger sets the diagnostic logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithFallbackFile overrides the local fallback file path.
func WithFallbackFile(path string) Option { return func(r *Resolver) { r.fallbackPath = path } }

// NewResolver creates a Resolver for projectID. When no client is injected one is created from
// application default credentials, except in the local environment where the fallback file suffices.
func NewResolver(ctx context.Context, projectID, environment string, opts ...Option) (*Resolver, error) {
	r := &Resolver{
		projectID:    strings.TrimSpace(projectID),
		environment:  strings.ToLower(strings.TrimSpace(environment)),
		fallbackPath: defaultFallbackPath,
		logger:       zap.NewNop(),
		cache:        map[string]string{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.client == nil && r.environment != "local" {
		client, err := secretmanager.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("secrets: create client: %w", err)
		}
		r.client = client
	}
	latency, err := otel.Meter("github.com/shutterbay/api/internal/platform/secrets").Float64Histogram(
		"secrets.resolve.latency", metric.WithUnit("ms"))
	if err != nil {
		r.logger.Warn("secrets: latency metric unavailable", zap.Error(err))
	}
	r.latency = latency
	return r, nil
}

// ResolveSecret implements config.SecretResolver.
func (r *Resolver) ResolveSecret(ctx context.Context, ref string) (string, error) {
	name, version, err := parseRef(ref)
	if err != nil {
		return "", err
	}
	key := name + "@" + version

	r.mu.Lock()
	if v, ok := r.cache[key]; ok {
		r.mu.Unlock()
		return v, nil
	}
	r.mu.Unlock()

	start := time.Now()
	value, source, err := r.fetch(ctx, name, version)
	if r.latency != nil {
		r.latency.Record(ctx, float64(time.Since(start).Microseconds())/1000,
			metric.WithAttributes(attribute.String("source", source), attribute.Bool("ok", err == nil)))
	}
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.cache[key] = value
	r.mu.Unlock()
	return value, nil
}

func (r *Resolver) fetch(ctx context.Context, name, version string) (string, string, error) {
	if r.client != nil {
		resp, err := r.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
			Name: fmt.Sprintf("projects/%s/secrets/%s/versions/%s", r.projectID, name, version),
		})
		if err == nil {
			return string(resp.GetPayload().GetData()), "secret_manager", nil
		}
		if r.environment != "local" {
			if status.Code(err) == codes.NotFound {
				return "", "secret_manager", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
			}
			return "", "secret_manager", fmt.Errorf("secrets: access %s: %w", name, err)
		}
		r.logger.Warn("secrets: secret manager unavailable, using local fallback", zap.String("secret", name), zap.Error(err))
	}

	values, err := r.loadFallback()
	if err != nil {
		return "", "fallback", err
	}
	if v, ok := values[name]; ok {
		return v, "fallback", nil
	}
	return "", "fallback", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
}

func (r *Resolver) loadFallback() (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fallback != nil {
		return r.fallback, nil
	}
	values := map[string]string{}
	f, err := os.Open(r.fallbackPath)
	if errors.Is(err, os.ErrNotExist) {
		r.fallback = values
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("secrets: open fallback: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		values[strings.TrimSpace(k)] = strings.Trim(strings.TrimSpace(v), `"'`)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("secrets: read fallback: %w", err)
	}
	r.fallback = values
	return values, nil
}

// Close releases the Secret Manager client.
func (r *Resolver) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

func parseRef(ref string) (name, version string, err error) {
	ref = strings.TrimSpace(ref)
	if !strings.HasPrefix(ref, schemePrefix) {
		return "", "", fmt.Errorf("secrets: unsupported reference %q", ref)
	}
	name, version, _ = strings.Cut(strings.TrimPrefix(ref, schemePrefix), "@")
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("secrets: invalid secret name in %q", ref)
	}
	if version = strings.TrimSpace(version); version == "" {
		version = "latest"
	}
	return name, version, nil
}

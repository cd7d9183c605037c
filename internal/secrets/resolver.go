// Package secrets resolves secret:// references against Google Secret Manager.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const scheme = "secret"

// ErrNotFound is returned when the referenced secret or version does not exist.
var ErrNotFound = errors.New("secrets: secret not found")

// ErrUnavailable is returned when no Secret Manager client could be created.
var ErrUnavailable = errors.New("secrets: secret manager unavailable")

var clientFactory = func(ctx context.Context, opts ...option.ClientOption) (*secretmanager.Client, error) {
	return secretmanager.NewClient(ctx, opts...)
}

type secretManagerClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Reference is a parsed secret://<name>?project=<id>&version=<v> value.
type Reference struct {
	Secret  string
	Project string
	Version string
}

// IsReference reports whether value should be resolved rather than used as-is.
func IsReference(value string) bool {
	return strings.HasPrefix(strings.TrimSpace(value), scheme+"://")
}

// ParseReference parses a secret:// reference.
func ParseReference(ref string) (Reference, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return Reference{}, fmt.Errorf("secrets: invalid reference %q: %w", ref, err)
	}
	if u.Scheme != scheme {
		return Reference{}, fmt.Errorf("secrets: unsupported scheme %q", u.Scheme)
	}
	name := strings.Trim(u.Host+u.Path, "/")
	if name == "" || strings.Contains(name, "/") {
		return Reference{}, fmt.Errorf("secrets: invalid secret name in %q", ref)
	}
	q := u.Query()
	version := strings.TrimSpace(q.Get("version"))
	if version == "" {
		version = "latest"
	}
	return Reference{
		Secret:  name,
		Project: strings.TrimSpace(q.Get("project")),
		Version: version,
	}, nil
}

// Resolver fetches secret payloads and caches them for its lifetime.
type Resolver struct {
	client     secretManagerClient
	ownsClient bool
	project    string
	logger     *zap.Logger

	mu    sync.Mutex
	cache map[string]string
}

type resolverConfig struct {
	project    string
	logger     *zap.Logger
	client     secretManagerClient
	clientOpts []option.ClientOption
}

// Option customises Resolver construction.
type Option func(*resolverConfig)

// WithProject sets the project used when a reference does not name one.
func WithProject(projectID string) Option {
	return func(cfg *resolverConfig) {
		cfg.project = strings.TrimSpace(projectID)
	}
}

// WithLogger sets the logger used for diagnostic output.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *resolverConfig) {
		cfg.logger = logger
	}
}

// WithClientOptions forwards Cloud client options when constructing the client.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(cfg *resolverConfig) {
		cfg.clientOpts = append(cfg.clientOpts, opts...)
	}
}

func withClient(client secretManagerClient) Option {
	return func(cfg *resolverConfig) {
		cfg.client = client
	}
}

// NewResolver builds a resolver. A client that cannot be created is logged
// and every Resolve then fails with ErrUnavailable.
func NewResolver(ctx context.Context, opts ...Option) *Resolver {
	cfg := resolverConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	r := &Resolver{
		project: cfg.project,
		logger:  cfg.logger,
		cache:   map[string]string{},
	}
	if cfg.client != nil {
		r.client = cfg.client
		return r
	}
	client, err := clientFactory(ctx, cfg.clientOpts...)
	if err != nil {
		cfg.logger.Warn("secrets: secret manager client unavailable", zap.Error(err))
		return r
	}
	r.client = client
	r.ownsClient = true
	return r
}

// Resolve returns the payload of ref. Non-reference values are returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	if !IsReference(ref) {
		return ref, nil
	}
	parsed, err := ParseReference(ref)
	if err != nil {
		return "", err
	}
	project := parsed.Project
	if project == "" {
		project = r.project
	}
	if project == "" {
		return "", fmt.Errorf("secrets: no project for %s", parsed.Secret)
	}
	name := fmt.Sprintf("projects/%s/secrets/%s/versions/%s", project, parsed.Secret, parsed.Version)

	r.mu.Lock()
	if v, ok := r.cache[name]; ok {
		r.mu.Unlock()
		return v, nil
	}
	r.mu.Unlock()

	if r.client == nil {
		return "", ErrUnavailable
	}
	resp, err := r.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", fmt.Errorf("secrets: access %s: %w", name, err)
	}
	if resp == nil || resp.GetPayload() == nil {
		return "", fmt.Errorf("secrets: empty payload for %s", name)
	}
	value := string(resp.GetPayload().GetData())

	r.mu.Lock()
	r.cache[name] = value
	r.mu.Unlock()
	r.logger.Debug("secret resolved", zap.String("secret", parsed.Secret), zap.String("version", parsed.Version))
	return value, nil
}

// Close releases the client if the resolver created it.
func (r *Resolver) Close() error {
	if r.ownsClient && r.client != nil {
		return r.client.Close()
	}
	return nil
}

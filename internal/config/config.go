package config

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	// EnvPrefix namespaces every variable read by Load.
	EnvPrefix = "CYBAT_WEB_"

	defaultEnvFile = ".env"
	defaultPort    = "8080"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Environment string         `env:"ENV" envDefault:"local"`
	LogLevel    string         `env:"LOG_LEVEL" envDefault:"info"`
	Server      ServerConfig   `envPrefix:"SERVER_"`
	Views       ViewsConfig    `envPrefix:"VIEWS_"`
	Partners    PartnersConfig `envPrefix:"PARTNERS_"`
	Form        FormConfig     `envPrefix:"FORM_"`
	Session     SessionConfig  `envPrefix:"SESSION_"`
	GCP         GCPConfig      `envPrefix:"GCP_"`
	Leads       LeadsConfig    `envPrefix:"LEADS_"`
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port              string        `env:"PORT"`
	Dev               bool          `env:"DEV"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"10s"`
	ReadTimeout       time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// ViewsConfig selects where page fragments come from. With both fields empty
// the embedded views are used.
type ViewsConfig struct {
	// Dir reads fragments from disk; in dev mode the directory is watched.
	Dir string `env:"DIR"`
	// RemoteBaseURL fetches fragments from <base>/views/<name>.html.
	RemoteBaseURL string        `env:"REMOTE_BASE_URL"`
	FetchTimeout  time.Duration `env:"FETCH_TIMEOUT" envDefault:"5s"`
}

// PartnersConfig controls the partner list loader.
type PartnersConfig struct {
	URL      string        `env:"URL"`
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"5s"`
}

// FormConfig controls the lead-capture relay.
type FormConfig struct {
	Endpoint string        `env:"ENDPOINT" envDefault:"https://formspree.io/f/xnjvbjra"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"10s"`
	Validate bool          `env:"VALIDATE" envDefault:"true"`
}

// GCPConfig identifies the Google Cloud project used by Pub/Sub and Secret Manager.
type GCPConfig struct {
	ProjectID string `env:"PROJECT_ID"`
}

// LeadsConfig enables publishing delivered enquiries to Pub/Sub.
type LeadsConfig struct {
	Topic          string        `env:"TOPIC"`
	PublishTimeout time.Duration `env:"PUBLISH_TIMEOUT" envDefault:"10s"`
}

// SessionConfig controls the signed session cookie and the controller store.
type SessionConfig struct {
	// SigningKey may be a secret://name reference resolved at startup.
	SigningKey    string        `env:"SIGNING_KEY"`
	Secure        bool          `env:"SECURE"`
	IdleTTL       time.Duration `env:"IDLE_TTL" envDefault:"30m"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`
}

// Addr returns the listen address derived from the configured port.
func (c Config) Addr() string {
	return ":" + c.Server.Port
}

// IsProduction reports whether the service runs in the prod environment.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "prod")
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

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// EnvironmentValues returns the effective key/value environment map
// (dotenv < OS env < explicit env map).
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string)
	merge := func(source map[string]string) {
		for key, value := range source {
			values[key] = value
		}
	}
	merge(dotEnvValues)
	if options.useSystemEnv {
		merge(env.ToMap(os.Environ()))
	}
	merge(options.envMap)
	return values, nil
}

// Load assembles the configuration from defaults, .env overrides and
// environment variables.
func Load(opts ...Option) (Config, error) {
	values, err := EnvironmentValues(opts...)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{
		Prefix:      EnvPrefix,
		Environment: values,
	}); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}

	// Cloud Run injects PORT; the prefixed variable wins when both are set.
	if cfg.Server.Port == "" {
		cfg.Server.Port = strings.TrimSpace(values["PORT"])
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = defaultPort
	}
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	cfg.Views.RemoteBaseURL = strings.TrimRight(strings.TrimSpace(cfg.Views.RemoteBaseURL), "/")
	cfg.Form.Endpoint = strings.TrimSpace(cfg.Form.Endpoint)
	if cfg.IsProduction() {
		cfg.Session.Secure = true
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Server.RequestTimeout <= 0 {
		missing = append(missing, "Server.RequestTimeout")
	}
	if !isAbsoluteURL(cfg.Form.Endpoint) {
		missing = append(missing, "Form.Endpoint")
	}
	if cfg.Form.Timeout <= 0 {
		missing = append(missing, "Form.Timeout")
	}
	if cfg.Partners.URL != "" && !isAbsoluteURL(cfg.Partners.URL) {
		missing = append(missing, "Partners.URL")
	}
	if cfg.Views.RemoteBaseURL != "" && !isAbsoluteURL(cfg.Views.RemoteBaseURL) {
		missing = append(missing, "Views.RemoteBaseURL")
	}
	if cfg.Views.Dir != "" && cfg.Views.RemoteBaseURL != "" {
		missing = append(missing, "Views.Dir|Views.RemoteBaseURL")
	}
	if cfg.Session.IdleTTL <= 0 {
		missing = append(missing, "Session.IdleTTL")
	}
	if cfg.Session.SweepInterval <= 0 {
		missing = append(missing, "Session.SweepInterval")
	}
	if cfg.Leads.Topic != "" && cfg.GCP.ProjectID == "" {
		missing = append(missing, "GCP.ProjectID")
	}
	if cfg.IsProduction() && strings.TrimSpace(cfg.Session.SigningKey) == "" {
		missing = append(missing, "Session.SigningKey")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
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

package partners

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// FileName is the partner list resource name.
const FileName = "partners.json"

const (
	defaultTimeout  = 5 * time.Second
	defaultCacheTTL = 5 * time.Minute
	maxBodyBytes    = 1 << 20
)

// Partner is an opaque record from the partner list. Its shape is not
// validated; accessors return "" for absent or non-string fields.
type Partner map[string]any

// Name returns the partner display name.
func (p Partner) Name() string { return p.str("name") }

// Logo returns the partner logo URL.
func (p Partner) Logo() string { return p.str("logo") }

// URL returns the partner website.
func (p Partner) URL() string { return p.str("url") }

func (p Partner) str(key string) string {
	if p == nil {
		return ""
	}
	v, _ := p[key].(string)
	return strings.TrimSpace(v)
}

// StatusError reports a non-2xx response from a remote partner list.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("partners: remote status %d", e.Code)
}

// ErrNoSource is returned by a loader with neither a filesystem nor a URL.
var ErrNoSource = errors.New("partners: no source configured")

// Loader reads the partner list from a filesystem or a remote URL and caches
// successful results for a TTL.
type Loader struct {
	fsys fs.FS
	url  string
	http *http.Client
	ttl  time.Duration
	now  func() time.Time

	group singleflight.Group

	mu      sync.Mutex
	cached  []Partner
	expires time.Time
}

// Option customises a Loader.
type Option func(*Loader)

// WithURL switches the loader to GET the list from url.
func WithURL(url string) Option {
	return func(l *Loader) { l.url = strings.TrimSpace(url) }
}

// WithCacheTTL sets how long a successful load is reused.
func WithCacheTTL(d time.Duration) Option {
	return func(l *Loader) {
		if d > 0 {
			l.ttl = d
		}
	}
}

// WithTimeout sets the remote request timeout.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) {
		if d > 0 {
			l.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client used for remote loads.
func WithHTTPClient(hc *http.Client) Option {
	return func(l *Loader) {
		if hc != nil {
			l.http = hc
		}
	}
}

// NewLoader builds a loader reading FileName from fsys unless a URL option is given.
func NewLoader(fsys fs.FS, opts ...Option) *Loader {
	l := &Loader{
		fsys: fsys,
		http: &http.Client{Timeout: defaultTimeout},
		ttl:  defaultCacheTTL,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the partner list. Errors are returned as-is; callers decide
// whether they matter.
func (l *Loader) Load(ctx context.Context) ([]Partner, error) {
	if l == nil {
		return nil, ErrNoSource
	}
	if list, ok := l.fresh(); ok {
		return clonePartners(list), nil
	}

	// Concurrent misses share one fetch.
	v, err, _ := l.group.Do("load", func() (any, error) {
		if list, ok := l.fresh(); ok {
			return list, nil
		}
		return l.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return clonePartners(v.([]Partner)), nil
}

func (l *Loader) fresh() ([]Partner, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cached != nil && l.now().Before(l.expires) {
		return l.cached, true
	}
	return nil, false
}

func (l *Loader) refresh(ctx context.Context) ([]Partner, error) {
	var (
		list []Partner
		err  error
	)
	switch {
	case l.url != "":
		list, err = l.fetchRemote(ctx)
	case l.fsys != nil:
		list, err = l.readFS()
	default:
		err = ErrNoSource
	}
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cached = list
	l.expires = l.now().Add(l.ttl)
	l.mu.Unlock()
	return list, nil
}

func (l *Loader) readFS() ([]Partner, error) {
	raw, err := fs.ReadFile(l.fsys, FileName)
	if err != nil {
		return nil, fmt.Errorf("partners: read %s: %w", FileName, err)
	}
	return decode(raw)
}

func (l *Loader) fetchRemote(ctx context.Context) ([]Partner, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := l.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("partners: fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode}
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("partners: read body: %w", err)
	}
	return decode(raw)
}

func decode(raw []byte) ([]Partner, error) {
	var list []Partner
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("partners: decode: %w", err)
	}
	if list == nil {
		list = []Partner{}
	}
	return list, nil
}

func clonePartners(src []Partner) []Partner {
	out := make([]Partner, len(src))
	for i, p := range src {
		cp := make(Partner, len(p))
		for k, v := range p {
			cp[k] = v
		}
		out[i] = cp
	}
	return out
}

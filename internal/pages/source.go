package pages

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound indicates a source has no fragment with the requested name.
var ErrNotFound = errors.New("pages: fragment not found")

// ErrTooLarge indicates a remote fragment exceeded the size limit.
var ErrTooLarge = errors.New("pages: fragment too large")

// Source retrieves raw fragment bytes by name.
type Source interface {
	Open(ctx context.Context, name string) ([]byte, Format, error)
}

// FSSource reads <name>.html, then <name>.md, from a filesystem.
type FSSource struct {
	FS fs.FS
}

// Open implements Source.
func (s FSSource) Open(_ context.Context, name string) ([]byte, Format, error) {
	if s.FS == nil {
		return nil, "", ErrNotFound
	}
	if !validName(name) {
		return nil, "", ErrNotFound
	}
	candidates := []struct {
		file   string
		format Format
	}{
		{name + ".html", FormatHTML},
		{name + ".md", FormatMarkdown},
	}
	for _, c := range candidates {
		raw, err := fs.ReadFile(s.FS, c.file)
		if err == nil {
			return raw, c.format, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, "", err
		}
	}
	return nil, "", ErrNotFound
}

// StatusError reports a non-2xx fragment retrieval.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pages: GET %s: status %d", e.URL, e.Code)
}

const (
	defaultFetchTimeout = 5 * time.Second
	maxFragmentBytes    = 2 << 20
)

// HTTPSource fetches <base>/views/<name>.html.
type HTTPSource struct {
	baseURL  string
	http     *http.Client
	maxBytes int64
}

// NewHTTPSource builds an HTTP source. A non-positive timeout uses the default.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &HTTPSource{
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:     &http.Client{Timeout: timeout},
		maxBytes: maxFragmentBytes,
	}
}

// Open implements Source.
func (s *HTTPSource) Open(ctx context.Context, name string) ([]byte, Format, error) {
	if !validName(name) {
		return nil, "", ErrNotFound
	}
	endpoint, err := url.JoinPath(s.baseURL, "views", name+".html")
	if err != nil {
		return nil, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Accept", "text/html")
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &StatusError{URL: endpoint, Code: resp.StatusCode}
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(raw)) > s.maxBytes {
		return nil, "", fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, endpoint, s.maxBytes)
	}
	return raw, FormatHTML, nil
}

func validName(name string) bool {
	if name == "" || strings.Contains(name, "..") {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

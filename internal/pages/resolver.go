package pages

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"cybat.ai/cybat-web/internal/observability"
)

// ErrUnknownPath is returned for paths and keys outside the routing table.
var ErrUnknownPath = errors.New("pages: unknown path")

// LoadError wraps a failed fragment retrieval for a page key.
type LoadError struct {
	Key Key
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("pages: load %s: %v", e.Key, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Page is a renderable unit: the fragment parsed as the "content" template
// inside a copy of the shared layout set.
type Page struct {
	Key      Key
	Title    string
	Fragment Fragment
	tmpl     *template.Template
}

// Render executes the named template ("base", "outlet", "content", ...).
func (p *Page) Render(w io.Writer, name string, data any) error {
	return p.tmpl.ExecuteTemplate(w, name, data)
}

// DefaultFuncs are available to layouts and fragments.
func DefaultFuncs() template.FuncMap {
	return template.FuncMap{
		"now": time.Now,
	}
}

// ParseLayouts parses every *.tmpl file in fsys into one template set.
func ParseLayouts(fsys fs.FS, funcs template.FuncMap) (*template.Template, error) {
	if funcs == nil {
		funcs = DefaultFuncs()
	}
	t, err := template.New("_root").Funcs(funcs).ParseFS(fsys, "*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("pages: parse layouts: %w", err)
	}
	return t, nil
}

var fragmentLoads = observability.Counter("cybat_web.fragment.loads", "Fragment retrievals by page key and result.")

// Resolver lazily loads pages on first request and caches them per key for
// its lifetime. Concurrent first requests for a key share one retrieval.
type Resolver struct {
	src       Source
	layout    *template.Template
	errorPage *Page
	chrome    *Page

	group singleflight.Group

	mu    sync.RWMutex
	cache map[Key]*Page
	gen   map[Key]uint64
}

// NewResolver builds a resolver over src. layout must not have been executed.
func NewResolver(src Source, layout *template.Template) (*Resolver, error) {
	if src == nil || layout == nil {
		return nil, errors.New("pages: resolver needs a source and a layout")
	}
	r := &Resolver{
		src:    src,
		layout: layout,
		cache:  map[Key]*Page{},
		gen:    map[Key]uint64{},
	}
	errTmpl, err := r.compose(`{{template "load_error" .}}`)
	if err != nil {
		return nil, err
	}
	r.errorPage = &Page{Key: "error", Title: "Error", tmpl: errTmpl}
	chromeTmpl, err := r.compose("")
	if err != nil {
		return nil, err
	}
	r.chrome = &Page{Key: "chrome", tmpl: chromeTmpl}
	return r, nil
}

// Resolve returns the page for key, retrieving its fragment on first use.
// Failures are not cached.
func (r *Resolver) Resolve(ctx context.Context, key Key) (*Page, error) {
	if !Known(key) {
		return nil, ErrUnknownPath
	}
	if p, ok := r.cached(key); ok {
		return p, nil
	}

	v, err, _ := r.group.Do(string(key), func() (any, error) {
		if p, ok := r.cached(key); ok {
			return p, nil
		}
		gen := r.generation(key)
		// The shared load must not be cut short by one caller going away.
		p, err := r.load(context.WithoutCancel(ctx), key)
		if err != nil {
			return nil, err
		}
		r.store(key, p, gen)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Page), nil
}

// ResolvePath resolves the page routed at path.
func (r *Resolver) ResolvePath(ctx context.Context, path string) (*Page, error) {
	route, ok := Lookup(path)
	if !ok {
		return nil, ErrUnknownPath
	}
	return r.Resolve(ctx, route.Key)
}

// NotFound returns the not-found page, or the error page if it cannot load.
func (r *Resolver) NotFound(ctx context.Context) *Page {
	p, err := r.Resolve(ctx, KeyNotFound)
	if err != nil {
		observability.FromContext(ctx).Error("not-found page unavailable", zap.Error(err))
		return r.errorPage
	}
	return p
}

// ErrorPage is rendered when a page fails to load.
func (r *Resolver) ErrorPage() *Page {
	return r.errorPage
}

// Chrome has the layout partials (nav, mobile menu, widgets) and no content.
func (r *Resolver) Chrome() *Page {
	return r.chrome
}

// Invalidate drops cached pages for keys, or every page when none are given.
func (r *Resolver) Invalidate(keys ...Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(keys) == 0 {
		for k := range r.cache {
			keys = append(keys, k)
		}
	}
	for _, k := range keys {
		delete(r.cache, k)
		r.gen[k]++
		r.group.Forget(string(k))
	}
}

// Cached reports whether key currently has a cached page.
func (r *Resolver) Cached(key Key) bool {
	_, ok := r.cached(key)
	return ok
}

func (r *Resolver) cached(key Key) (*Page, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.cache[key]
	return p, ok
}

func (r *Resolver) generation(key Key) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gen[key]
}

func (r *Resolver) store(key Key, p *Page, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// An Invalidate during the load means p may already be stale.
	if r.gen[key] != gen {
		return
	}
	r.cache[key] = p
}

func (r *Resolver) load(ctx context.Context, key Key) (p *Page, err error) {
	ctx, span := observability.Tracer().Start(ctx, "pages.load")
	span.SetAttributes(attribute.String("page.key", string(key)))
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		fragmentLoads.Add(ctx, 1, metric.WithAttributes(
			attribute.String("page.key", string(key)),
			attribute.String("result", result),
		))
		span.End()
	}()

	raw, format, err := r.src.Open(ctx, string(key))
	if err != nil {
		return nil, &LoadError{Key: key, Err: err}
	}
	frag, err := NewFragment(key, raw, format)
	if err != nil {
		return nil, &LoadError{Key: key, Err: err}
	}
	tmpl, err := r.compose(templateSource(frag))
	if err != nil {
		return nil, &LoadError{Key: key, Err: err}
	}
	observability.FromContext(ctx).Debug("page loaded",
		zap.String("key", string(key)),
		zap.String("format", string(format)),
	)
	return &Page{Key: key, Title: frag.Title, Fragment: frag, tmpl: tmpl}, nil
}

// templateSource returns the text parsed as the "content" template. Markdown
// is prose, so any action delimiters in it are emitted literally.
func templateSource(frag Fragment) string {
	if frag.Format != FormatMarkdown {
		return frag.Markup
	}
	return strings.ReplaceAll(frag.Markup, "{{", `{{"{{"}}`)
}

func (r *Resolver) compose(content string) (*template.Template, error) {
	t, err := r.layout.Clone()
	if err != nil {
		return nil, fmt.Errorf("pages: clone layout: %w", err)
	}
	if _, err := t.New("content").Parse(content); err != nil {
		return nil, fmt.Errorf("pages: parse fragment: %w", err)
	}
	return t, nil
}

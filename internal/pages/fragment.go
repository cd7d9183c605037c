package pages

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Format is the authoring format of a fragment.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

// Fragment is a unit of page markup as retrieved from a Source. For HTML
// fragments Markup is the retrieved body, byte for byte.
type Fragment struct {
	Key       Key
	Format    Format
	Title     string
	Summary   string
	UpdatedAt time.Time
	Markup    string
}

type frontMatter struct {
	Title     string `yaml:"title"`
	Summary   string `yaml:"summary"`
	UpdatedAt string `yaml:"updated_at"`
}

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()),
	)
	// Markdown output is sanitized after rendering, so raw HTML in the source is allowed through goldmark.
	markdownPolicy = bluemonday.UGCPolicy()
	titleCaser     = cases.Title(language.English)
)

// NewFragment builds a fragment from raw source bytes.
func NewFragment(key Key, raw []byte, format Format) (Fragment, error) {
	frag := Fragment{Key: key, Format: format}
	switch format {
	case FormatHTML:
		frag.Markup = string(raw)
		frag.Title = firstHeading(frag.Markup)
	case FormatMarkdown:
		fm, body := splitFrontMatter(string(raw))
		front := frontMatter{}
		if strings.TrimSpace(fm) != "" {
			if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
				return Fragment{}, fmt.Errorf("pages: parse front matter %s: %w", key, err)
			}
		}
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(body), &buf); err != nil {
			return Fragment{}, fmt.Errorf("pages: render markdown %s: %w", key, err)
		}
		frag.Markup = markdownPolicy.Sanitize(buf.String())
		frag.Title = strings.TrimSpace(front.Title)
		frag.Summary = strings.TrimSpace(front.Summary)
		frag.UpdatedAt = parseDate(front.UpdatedAt)
		if frag.Title == "" {
			frag.Title = firstHeading(frag.Markup)
		}
	default:
		return Fragment{}, fmt.Errorf("pages: unsupported fragment format %q", format)
	}
	if frag.Title == "" {
		frag.Title = prettifyKey(key)
	}
	return frag, nil
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\ufeff")
	lines := strings.Split(input, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			fm := strings.Join(lines[1:i], "\n")
			body := strings.Join(lines[i+1:], "\n")
			return fm, strings.TrimLeft(body, "\n\r")
		}
	}
	return "", input
}

// firstHeading returns the text of the first <h1> in markup.
func firstHeading(markup string) string {
	z := html.NewTokenizer(strings.NewReader(markup))
	var (
		inside bool
		text   strings.Builder
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(text.String())
		case html.StartTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) == atom.H1 {
				inside = true
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if inside && atom.Lookup(name) == atom.H1 {
				return strings.Join(strings.Fields(text.String()), " ")
			}
		case html.TextToken:
			if inside {
				text.Write(z.Text())
			}
		}
	}
}

func prettifyKey(key Key) string {
	return titleCaser.String(strings.ReplaceAll(string(key), "-", " "))
}

func parseDate(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006/01/02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

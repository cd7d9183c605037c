package pages

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewFragmentHTMLIsVerbatim(t *testing.T) {
	raw := "<section>\n  <h1>Stack  <em>today</em></h1>\n  {{template \"faq\" .}}\n</section>\n"
	frag, err := NewFragment(KeyStack, []byte(raw), FormatHTML)
	require.NoError(t, err)
	require.Equal(t, raw, frag.Markup)
	require.Equal(t, "Stack today", frag.Title)
	require.Equal(t, FormatHTML, frag.Format)
}

func TestNewFragmentTitleFallsBackToKey(t *testing.T) {
	frag, err := NewFragment(KeyAISafety, []byte("<p>no heading</p>"), FormatHTML)
	require.NoError(t, err)
	require.Equal(t, "Ai Safety", frag.Title)
}

func TestNewFragmentMarkdownWithFrontMatter(t *testing.T) {
	raw := strings.Join([]string{
		"---",
		"title: Privacy Policy",
		"summary: How we handle data.",
		"updated_at: 2024-11-01",
		"---",
		"# Privacy",
		"",
		"We keep **nothing**.",
		"",
		`<script>alert("x")</script>`,
	}, "\n")

	frag, err := NewFragment(KeyPrivacy, []byte(raw), FormatMarkdown)
	require.NoError(t, err)
	require.Equal(t, "Privacy Policy", frag.Title)
	require.Equal(t, "How we handle data.", frag.Summary)
	require.Equal(t, time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC), frag.UpdatedAt)
	require.Contains(t, frag.Markup, "<strong>nothing</strong>")
	require.NotContains(t, frag.Markup, "<script>")
}

func TestNewFragmentMarkdownTitleFromHeading(t *testing.T) {
	frag, err := NewFragment(KeyTerms, []byte("# Terms of Service\n\nBe nice."), FormatMarkdown)
	require.NoError(t, err)
	require.Equal(t, "Terms of Service", frag.Title)
}

func TestNewFragmentRejectsBadFrontMatter(t *testing.T) {
	_, err := NewFragment(KeyTerms, []byte("---\ntitle: [unclosed\n---\nbody"), FormatMarkdown)
	require.Error(t, err)
}

func TestNewFragmentRejectsUnknownFormat(t *testing.T) {
	_, err := NewFragment(KeyTerms, []byte("x"), Format("pdf"))
	require.Error(t, err)
}

package site

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"cybat.ai/cybat-web/internal/partners"
)

type stubPartners struct {
	list  []partners.Partner
	err   error
	calls int
}

func (s *stubPartners) Load(context.Context) ([]partners.Partner, error) {
	s.calls++
	return s.list, s.err
}

func TestNewControllerInitialState(t *testing.T) {
	c := NewController(nil, nil)

	require.False(t, c.MenuOpen())
	_, ok := c.ActiveFAQ()
	require.False(t, ok)
	require.Equal(t, StatusIdle, c.Status())
	require.Equal(t, Draft{}, c.Draft())
	require.NotNil(t, c.Partners())
	require.Empty(t, c.Partners())
	require.Len(t, c.FAQs(), len(DefaultFAQs))
}

func TestMobileMenu(t *testing.T) {
	c := NewController(nil, nil)

	c.ToggleMobileMenu()
	require.True(t, c.MenuOpen())
	c.ToggleMobileMenu()
	require.False(t, c.MenuOpen())

	c.CloseMobileMenu()
	require.False(t, c.MenuOpen())
	c.ToggleMobileMenu()
	c.CloseMobileMenu()
	require.False(t, c.MenuOpen())
}

func TestToggleFAQ(t *testing.T) {
	c := NewController(nil, nil)

	c.ToggleFAQ(0)
	active, ok := c.ActiveFAQ()
	require.True(t, ok)
	require.Equal(t, 0, active)

	c.ToggleFAQ(0)
	_, ok = c.ActiveFAQ()
	require.False(t, ok, "toggling the same entry twice collapses it")

	c.ToggleFAQ(1)
	c.ToggleFAQ(2)
	active, ok = c.ActiveFAQ()
	require.True(t, ok)
	require.Equal(t, 2, active)

	open := 0
	for _, f := range c.FAQs() {
		if f.Open {
			open++
		}
	}
	require.Equal(t, 1, open)
}

func TestToggleFAQIgnoresOutOfRange(t *testing.T) {
	c := NewController(nil, nil)
	c.ToggleFAQ(1)

	c.ToggleFAQ(-1)
	c.ToggleFAQ(len(DefaultFAQs))

	active, ok := c.ActiveFAQ()
	require.True(t, ok)
	require.Equal(t, 1, active)
}

func TestFAQAnswersAreSanitized(t *testing.T) {
	c := NewController(nil, nil, WithFAQs([]FAQEntry{
		{Question: "Q", Answer: `Keep <b>bold</b><script>alert(1)</script><img src=x onerror=alert(1)>`},
	}))

	faqs := c.FAQs()
	require.Len(t, faqs, 1)
	answer := string(faqs[0].Answer)
	require.Contains(t, answer, "<b>bold</b>")
	require.NotContains(t, answer, "script")
	require.NotContains(t, answer, "onerror")
}

func TestDefaultFAQAnswersKeepEmphasis(t *testing.T) {
	c := NewController(nil, nil)
	for _, f := range c.FAQs() {
		require.True(t, strings.Contains(string(f.Answer), "<b>"), f.Question)
	}
}

func TestMountLoadsPartnersOnce(t *testing.T) {
	src := &stubPartners{list: []partners.Partner{{"name": "Google Cloud"}}}
	c := NewController(src, nil)

	c.Mount(context.Background())
	c.Mount(context.Background())

	require.Equal(t, 1, src.calls)
	got := c.Partners()
	require.Len(t, got, 1)
	require.Equal(t, "Google Cloud", got[0].Name())
}

func TestMountFailureLeavesPartnersEmpty(t *testing.T) {
	src := &stubPartners{err: errors.New("unreachable")}
	c := NewController(src, nil)

	require.NotPanics(t, func() { c.Mount(context.Background()) })
	require.NotNil(t, c.Partners())
	require.Empty(t, c.Partners())
}

func TestMountWithMissingPartnersFile(t *testing.T) {
	loader := partners.NewLoader(fstest.MapFS{})
	c := NewController(loader, nil)

	c.Mount(context.Background())
	require.Empty(t, c.Partners())
	require.NotNil(t, c.View().Partners)
}

func TestViewSnapshot(t *testing.T) {
	c := NewController(nil, nil)
	c.ToggleMobileMenu()
	c.ToggleFAQ(2)
	c.SetDraft(Draft{Name: "Ada"})

	v := c.View()
	require.True(t, v.MenuOpen)
	require.True(t, v.FAQs[2].Open)
	require.Equal(t, "Ada", v.Draft.Name)
	require.Equal(t, StatusIdle, v.Status)
	require.NotNil(t, v.FieldErrors)

	c.CloseMobileMenu()
	require.True(t, v.MenuOpen, "snapshot must not track later changes")
}

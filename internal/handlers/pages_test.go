package handlers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cybat.ai/cybat-web/internal/pages"
	"cybat.ai/cybat-web/internal/site"
)

func TestBuildPageData(t *testing.T) {
	page := &pages.Page{Key: pages.KeyStack, Title: "Stack"}
	view := site.NewController(nil, nil).View()

	data := BuildPageData(page, "/stack", "tok", view)

	require.Equal(t, "Stack", data.Title)
	require.Equal(t, "stack", data.Key)
	require.Equal(t, "tok", data.CSRFToken)
	require.Equal(t, site.StatusIdle, data.Site.Status)

	active := ""
	for _, item := range data.Nav {
		if item.Active {
			active = item.Href
		}
	}
	require.Equal(t, "/stack", active)
	require.NotEmpty(t, data.Footer)
}

func TestBuildPageDataWithoutPage(t *testing.T) {
	data := BuildPageData(nil, "/ui/menu/toggle", "", site.View{})
	require.Empty(t, data.Title)
	require.Empty(t, data.Key)
}

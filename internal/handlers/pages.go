package handlers

import (
	"cybat.ai/cybat-web/internal/nav"
	"cybat.ai/cybat-web/internal/pages"
	"cybat.ai/cybat-web/internal/site"
)

// PageData is the view model shared by the layout and every fragment.
type PageData struct {
	Title     string
	Key       string
	Path      string
	CSRFToken string

	Nav    []nav.RenderedItem
	Footer []nav.RenderedGroup

	// Site is the visitor's UI state.
	Site site.View

	// OOB marks partials rendered as htmx out-of-band swaps.
	OOB bool
}

// BuildPageData assembles the view model for page rendered at path.
func BuildPageData(page *pages.Page, path, csrfToken string, view site.View) PageData {
	data := PageData{
		Path:      path,
		CSRFToken: csrfToken,
		Nav:       nav.Build(path),
		Footer:    nav.BuildFooter(path),
		Site:      view,
	}
	if page != nil {
		data.Title = page.Title
		data.Key = string(page.Key)
	}
	return data
}

package nav

import "strings"

// Item represents a navigation link.
type Item struct {
	Path  string // e.g. "/features"
	Label string
	Class string // optional styling hook, e.g. "cta"
}

// RenderedItem is a view model for templates.
type RenderedItem struct {
	Href   string
	Label  string
	Class  string
	Active bool
}

// Group is a titled list of links rendered in the footer.
type Group struct {
	Title string
	Items []Item
}

// RenderedGroup is a footer group view model.
type RenderedGroup struct {
	Title string
	Items []RenderedItem
}

// Main is the primary navigation definition, shared by the desktop bar and
// the mobile menu.
var Main = []Item{
	{Path: "/features", Label: "Features"},
	{Path: "/infrastructure", Label: "Infra"},
	{Path: "/ai-safety", Label: "AI Safety"},
	{Path: "/stack", Label: "Stack"},
	{Path: "/connect", Label: "Connect_", Class: "cta"},
}

// Footer lists the footer link groups.
var Footer = []Group{
	{Title: "Navigation", Items: []Item{
		{Path: "/features", Label: "Features"},
		{Path: "/infrastructure", Label: "Infrastructure"},
		{Path: "/ai-safety", Label: "AI Safety"},
		{Path: "/connect", Label: "Connect"},
	}},
	{Title: "Ecosystem", Items: []Item{
		{Path: "/early-access", Label: "Early Access"},
		{Path: "/roadmap", Label: "Roadmap"},
		{Path: "https://linkedin.com", Label: "LinkedIn"},
	}},
	{Title: "Legal", Items: []Item{
		{Path: "/privacy", Label: "Privacy"},
		{Path: "/terms", Label: "Terms"},
	}},
}

// Build renders the main navigation with active state given the current path.
func Build(currentPath string) []RenderedItem {
	return render(Main, currentPath)
}

// BuildFooter renders the footer groups with active state.
func BuildFooter(currentPath string) []RenderedGroup {
	groups := make([]RenderedGroup, 0, len(Footer))
	for _, g := range Footer {
		groups = append(groups, RenderedGroup{Title: g.Title, Items: render(g.Items, currentPath)})
	}
	return groups
}

func render(items []Item, currentPath string) []RenderedItem {
	if currentPath == "" {
		currentPath = "/"
	}
	out := make([]RenderedItem, 0, len(items))
	for _, it := range items {
		out = append(out, RenderedItem{
			Href:   it.Path,
			Label:  it.Label,
			Class:  it.Class,
			Active: isActive(it.Path, currentPath),
		})
	}
	return out
}

func isActive(itemPath, currentPath string) bool {
	if !strings.HasPrefix(itemPath, "/") {
		// external link
		return false
	}
	if itemPath == "/" {
		return currentPath == "/"
	}
	// match exact or prefix boundary: "/stack" or "/stack/..."
	return currentPath == itemPath || strings.HasPrefix(currentPath, itemPath+"/")
}

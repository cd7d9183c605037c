// Package views bundles the site's page fragments, layouts and static files.
package views

import (
	"embed"
	"io/fs"
)

//go:embed pages/*.html pages/*.md
var pages embed.FS

//go:embed layouts/*.tmpl
var layouts embed.FS

//go:embed public
var public embed.FS

// Pages returns the page fragment filesystem rooted at the fragment files.
func Pages() fs.FS {
	return mustSub(pages, "pages")
}

// Layouts returns the shared layout templates.
func Layouts() fs.FS {
	return mustSub(layouts, "layouts")
}

// Public returns static files served as-is (partners.json, assets/).
func Public() fs.FS {
	return mustSub(public, "public")
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

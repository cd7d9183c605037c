package views

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbeddedTreesArePopulated(t *testing.T) {
	names, err := fs.Glob(Pages(), "*.html")
	require.NoError(t, err)
	require.Contains(t, names, "home.html")
	require.Contains(t, names, "not-found.html")

	_, err = fs.Stat(Pages(), "privacy.md")
	require.NoError(t, err)

	_, err = fs.Stat(Layouts(), "base.tmpl")
	require.NoError(t, err)

	_, err = fs.Stat(Public(), "partners.json")
	require.NoError(t, err)
	_, err = fs.Stat(Public(), "assets/css/site.css")
	require.NoError(t, err)
}

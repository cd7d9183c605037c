package pages

import "strings"

// Key identifies a page and names its fragment.
type Key string

// Known page keys.
const (
	KeyHome           Key = "home"
	KeyPrivacy        Key = "privacy"
	KeyRoadmap        Key = "roadmap"
	KeyContact        Key = "contact"
	KeyEarlyAccess    Key = "early-access"
	KeyFeatures       Key = "features"
	KeyInfrastructure Key = "infrastructure"
	KeyStack          Key = "stack"
	KeyTerms          Key = "terms"
	KeyAISafety       Key = "ai-safety"

	// KeyNotFound is rendered for unknown paths and is never routable.
	KeyNotFound Key = "not-found"
)

// Route maps a request path to a page key.
type Route struct {
	Path string
	Key  Key
}

// Routes is the static routing table.
var Routes = []Route{
	{Path: "/", Key: KeyHome},
	{Path: "/privacy", Key: KeyPrivacy},
	{Path: "/roadmap", Key: KeyRoadmap},
	{Path: "/connect", Key: KeyContact},
	{Path: "/early-access", Key: KeyEarlyAccess},
	{Path: "/features", Key: KeyFeatures},
	{Path: "/infrastructure", Key: KeyInfrastructure},
	{Path: "/stack", Key: KeyStack},
	{Path: "/terms", Key: KeyTerms},
	{Path: "/ai-safety", Key: KeyAISafety},
}

var (
	byPath = map[string]Route{}
	byKey  = map[Key]Route{}
)

func init() {
	for _, r := range Routes {
		byPath[r.Path] = r
		byKey[r.Key] = r
	}
}

// Lookup finds the route for a request path. A single trailing slash is ignored.
func Lookup(path string) (Route, bool) {
	if path == "" {
		path = "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	r, ok := byPath[path]
	return r, ok
}

// PathFor returns the route path serving key.
func PathFor(key Key) (string, bool) {
	r, ok := byKey[key]
	return r.Path, ok
}

// Known reports whether key has a fragment the resolver may load.
func Known(key Key) bool {
	if key == KeyNotFound {
		return true
	}
	_, ok := byKey[key]
	return ok
}

// Keys returns the routed keys in table order.
func Keys() []Key {
	out := make([]Key, 0, len(Routes))
	for _, r := range Routes {
		out = append(out, r.Key)
	}
	return out
}

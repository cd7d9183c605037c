package pages

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRoutingTable(t *testing.T) {
	want := map[string]Key{
		"/":               KeyHome,
		"/privacy":        KeyPrivacy,
		"/roadmap":        KeyRoadmap,
		"/connect":        KeyContact,
		"/early-access":   KeyEarlyAccess,
		"/features":       KeyFeatures,
		"/infrastructure": KeyInfrastructure,
		"/stack":          KeyStack,
		"/terms":          KeyTerms,
		"/ai-safety":      KeyAISafety,
	}
	got := map[string]Key{}
	for _, r := range Routes {
		got[r.Path] = r.Key
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("routing table mismatch (-want +got):\n%s", diff)
	}
}

func TestLookup(t *testing.T) {
	cases := []struct {
		path string
		key  Key
		ok   bool
	}{
		{"", KeyHome, true},
		{"/", KeyHome, true},
		{"/connect", KeyContact, true},
		{"/connect/", KeyContact, true},
		{"/contact", "", false},
		{"/not-found", "", false},
		{"/features/extra", "", false},
	}
	for _, tc := range cases {
		r, ok := Lookup(tc.path)
		if ok != tc.ok || r.Key != tc.key {
			t.Errorf("Lookup(%q) = (%q, %v), want (%q, %v)", tc.path, r.Key, ok, tc.key, tc.ok)
		}
	}
}

func TestKnownAndPathFor(t *testing.T) {
	if !Known(KeyNotFound) {
		t.Fatal("not-found must be loadable")
	}
	if _, ok := PathFor(KeyNotFound); ok {
		t.Fatal("not-found must not be routable")
	}
	if Known("admin") {
		t.Fatal("unexpected key admin")
	}
	if p, ok := PathFor(KeyContact); !ok || p != "/connect" {
		t.Fatalf("PathFor(contact) = %q, %v", p, ok)
	}
	if got := len(Keys()); got != len(Routes) {
		t.Fatalf("Keys() returned %d keys, want %d", got, len(Routes))
	}
}

package routing

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func newTestResolver(t *testing.T) (*Resolver, string) {
	t.Helper()
	root := t.TempDir()
	r, err := NewResolver(root, DefaultProxyPrefix, nil)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	return r, r.BuildRoot()
}

func TestResolver_Normalize(t *testing.T) {
	r, _ := newTestResolver(t)
	cases := []struct {
		in       string
		want     string
		prefixed bool
	}{
		{"/", "/", false},
		{"", "/", false},
		{"/api/health/", "/api/health", false},
		{"/ringba-sync-dashboard", "/", true},
		{"/ringba-sync-dashboard/", "/", true},
		{"/ringba-sync-dashboard/api/stats", "/api/stats", true},
		{"/ringba-sync-dashboardx/api/stats", "/ringba-sync-dashboardx/api/stats", false},
		{"/ringba-sync-dashboard/ringba-sync-dashboard/x", "/ringba-sync-dashboard/x", true},
	}
	for _, tc := range cases {
		got, prefixed := r.Normalize(tc.in)
		if got != tc.want || prefixed != tc.prefixed {
			t.Fatalf("Normalize(%q) = %q,%v want %q,%v", tc.in, got, prefixed, tc.want, tc.prefixed)
		}
	}
}

func TestResolver_Decisions(t *testing.T) {
	r, root := newTestResolver(t)
	cases := []struct {
		in       string
		kind     Kind
		endpoint Endpoint
	}{
		{"/", KindEndpoint, EndpointRoot},
		{"/ringba-sync-dashboard/", KindEndpoint, EndpointRoot},
		{"/api/health", KindEndpoint, EndpointHealth},
		{"/ringba-sync-dashboard/api/history/", KindEndpoint, EndpointHistory},
		{"/api/chargeback/export", KindEndpoint, EndpointChargebackExport},
		{"/api/debug/build", KindEndpoint, EndpointDebugBuild},
		{"/api/unknown", KindNotFound, ""},
		{"/dashboard/settings", KindNotFound, ""},
		{"/ringba-sync-dashboard/dashboard/settings", KindSPAFallback, ""},
		{"/ringba-sync-dashboard/api/unknown", KindSPAFallback, ""},
		{"/assets/index-abc123.js", KindAsset, ""},
		{"/ringba-sync-dashboard/favicon.ico", KindAsset, ""},
		{"/manifest.webmanifest", KindAsset, ""},
		{"/LOGO.PNG", KindAsset, ""},
		{"/assets/fonts/inter", KindAsset, ""},
	}
	for _, tc := range cases {
		d := r.Resolve(tc.in)
		if d.Kind != tc.kind || d.Endpoint != tc.endpoint {
			t.Fatalf("Resolve(%q) = %+v want kind=%s endpoint=%q", tc.in, d, tc.kind, tc.endpoint)
		}
		if d.Kind == KindAsset && !strings.HasPrefix(d.AssetPath, root+string(filepath.Separator)) {
			t.Fatalf("Resolve(%q) asset %q outside root %q", tc.in, d.AssetPath, root)
		}
	}
}

func TestResolver_AssetPath(t *testing.T) {
	r, root := newTestResolver(t)
	d := r.Resolve("/ringba-sync-dashboard/assets/app.css")
	if d.Kind != KindAsset {
		t.Fatalf("expected asset, got %+v", d)
	}
	if want := filepath.Join(root, "assets", "app.css"); d.AssetPath != want {
		t.Fatalf("expected %q, got %q", want, d.AssetPath)
	}
}

func TestResolver_TraversalIsNotFound(t *testing.T) {
	r, _ := newTestResolver(t)
	for _, in := range []string{
		"/assets/../../secret.txt",
		"/../secret.txt",
		"/ringba-sync-dashboard/../../../etc/passwd.txt",
		"/assets/../..",
		"/assets/..",
		"/a/b/../../../x.json",
		"/assets/x\x00.js",
	} {
		d := r.Resolve(in)
		if d.Kind != KindNotFound {
			t.Fatalf("Resolve(%q) = %+v want not found", in, d)
		}
		if d.AssetPath != "" {
			t.Fatalf("Resolve(%q) leaked asset path %q", in, d.AssetPath)
		}
	}
}

func TestResolver_InsideTraversalStaysAsset(t *testing.T) {
	r, root := newTestResolver(t)
	d := r.Resolve("/assets/../index.html")
	if d.Kind != KindAsset || d.AssetPath != filepath.Join(root, "index.html") {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestResolver_NoPrefix(t *testing.T) {
	r, err := NewResolver(t.TempDir(), "", nil)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	if d := r.Resolve("/ringba-sync-dashboard/anything"); d.Kind != KindNotFound {
		t.Fatalf("expected not found without prefix, got %+v", d)
	}
	if r.Prefix() != "" {
		t.Fatalf("expected empty prefix, got %q", r.Prefix())
	}
}

func TestResolver_PrefixNormalized(t *testing.T) {
	r, err := NewResolver(t.TempDir(), "dash/", nil)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	if r.Prefix() != "/dash" {
		t.Fatalf("expected /dash, got %q", r.Prefix())
	}
	if d := r.Resolve("/dash/x"); d.Kind != KindSPAFallback {
		t.Fatalf("expected spa fallback, got %+v", d)
	}
}

func TestNewResolver_EmptyRoot(t *testing.T) {
	if _, err := NewResolver("  ", DefaultProxyPrefix, nil); !errors.Is(err, ErrInvalidBuildRoot) {
		t.Fatalf("expected ErrInvalidBuildRoot, got %v", err)
	}
}

func TestResolver_RelativeRootIsAbsolute(t *testing.T) {
	r, err := NewResolver("frontend/dist", DefaultProxyPrefix, nil)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	if !filepath.IsAbs(r.BuildRoot()) {
		t.Fatalf("expected absolute root, got %q", r.BuildRoot())
	}
}

func TestResolver_CustomEndpointTable(t *testing.T) {
	r, err := NewResolver(t.TempDir(), DefaultProxyPrefix, []Endpoint{EndpointHealth})
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	if d := r.Resolve("/api/stats"); d.Kind != KindNotFound {
		t.Fatalf("expected not found for endpoint outside table, got %+v", d)
	}
}

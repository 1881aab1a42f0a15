package routing

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidBuildRoot is returned when the build root cannot be made absolute.
var ErrInvalidBuildRoot = errors.New("routing: invalid build root")

// DefaultProxyPrefix is the mount point used by the reverse proxy in front of the dashboard.
const DefaultProxyPrefix = "/ringba-sync-dashboard"

// assetExtensions are the file types served from the build directory.
var assetExtensions = map[string]struct{}{
	".html": {}, ".htm": {}, ".js": {}, ".mjs": {}, ".css": {},
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".svg": {}, ".ico": {}, ".webp": {}, ".avif": {},
	".woff": {}, ".woff2": {}, ".ttf": {}, ".otf": {}, ".eot": {},
	".map": {}, ".json": {}, ".txt": {}, ".xml": {}, ".webmanifest": {},
}

const assetsDir = "/assets/"

// Resolver maps an inbound path to a Decision.
//
// Priority:
//  1. Asset (containment checked against the build root; escape is NotFound)
//  2. Named endpoint
//  3. SPA fallback, only for paths that arrived under the proxy prefix
//  4. NotFound
//
// A Resolver is immutable after construction and safe for concurrent use.

type Resolver struct {
	root      string
	prefix    string
	endpoints map[string]Endpoint
}

// NewResolver builds a resolver for the given build directory and proxy prefix.
// An empty prefix disables prefix handling. A nil endpoint list uses Endpoints.
func NewResolver(buildRoot, prefix string, endpoints []Endpoint) (*Resolver, error) {
	if strings.TrimSpace(buildRoot) == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidBuildRoot)
	}
	root, err := filepath.Abs(buildRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBuildRoot, err)
	}
	if endpoints == nil {
		endpoints = Endpoints
	}
	r := &Resolver{
		root:      filepath.Clean(root),
		prefix:    normalizePrefix(prefix),
		endpoints: make(map[string]Endpoint, len(endpoints)),
	}
	for _, e := range endpoints {
		r.endpoints[string(e)] = e
	}
	return r, nil
}

func normalizePrefix(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// BuildRoot returns the absolute build directory.
func (r *Resolver) BuildRoot() string { return r.root }

// Prefix returns the normalized proxy prefix ("" when disabled).
func (r *Resolver) Prefix() string { return r.prefix }

// Normalize strips one proxy prefix and collapses trailing slashes. Root stays "/".
func (r *Resolver) Normalize(raw string) (p string, prefixed bool) {
	p = raw
	if p == "" {
		p = "/"
	}
	if r.prefix != "" && (p == r.prefix || strings.HasPrefix(p, r.prefix+"/")) {
		p = strings.TrimPrefix(p, r.prefix)
		prefixed = true
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p, prefixed
}

// IsAsset reports whether a normalized path names a static build file.
func IsAsset(p string) bool {
	if strings.HasPrefix(p, assetsDir) {
		return true
	}
	_, ok := assetExtensions[strings.ToLower(path.Ext(p))]
	return ok
}

// Resolve classifies raw (the URL path as received). It never touches the filesystem.
func (r *Resolver) Resolve(raw string) Decision {
	p, prefixed := r.Normalize(raw)
	d := Decision{Path: p, Prefixed: prefixed}

	if strings.ContainsRune(p, 0) {
		d.Kind, d.Reason = KindNotFound, ReasonBadPath
		return d
	}

	if IsAsset(p) {
		abs, ok := r.contain(p)
		if !ok {
			d.Kind, d.Reason = KindNotFound, ReasonTraversal
			return d
		}
		d.Kind, d.AssetPath = KindAsset, abs
		return d
	}

	if e, ok := r.endpoints[p]; ok {
		d.Kind, d.Endpoint = KindEndpoint, e
		return d
	}

	if prefixed {
		d.Kind, d.Reason = KindSPAFallback, ReasonPrefixedRoute
		return d
	}

	d.Kind, d.Reason = KindNotFound, ReasonUnmatched
	return d
}

// contain joins p onto the build root and rejects anything that lands outside it.
func (r *Resolver) contain(p string) (string, bool) {
	abs := filepath.Join(r.root, filepath.FromSlash(p))
	if abs == r.root {
		return "", false
	}
	base := r.root
	if !strings.HasSuffix(base, string(filepath.Separator)) {
		base += string(filepath.Separator)
	}
	if !strings.HasPrefix(abs, base) {
		return "", false
	}
	return abs, true
}

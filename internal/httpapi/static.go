package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"ringba-sync-dashboard/internal/routing"
	"ringba-sync-dashboard/internal/spa"
	"ringba-sync-dashboard/pkg/logger"

	"github.com/gin-gonic/gin"
)

const contentTypeHTML = "text/html; charset=utf-8"

// initialData is embedded into the root document. A payload that fails to
// assemble is null; the front end then fetches it itself.
type initialData struct {
	Health json.RawMessage `json:"health"`
	Stats  json.RawMessage `json:"stats"`
}

func (s *Server) root(c *gin.Context) {
	c.Header("Cache-Control", "no-cache")
	if !s.shell.Available() {
		c.Data(http.StatusOK, contentTypeHTML, spa.InjectBase(spa.Fallback(), s.shell.BaseHref()))
		return
	}

	data := initialData{
		Health: s.preload(c, payloadHealth, func(ctx context.Context) (any, error) { return s.payloads.Health(ctx) }),
		Stats:  s.preload(c, payloadStats, func(ctx context.Context) (any, error) { return s.payloads.Stats(ctx) }),
	}
	doc, err := s.shell.Render(data)
	if err != nil {
		if errors.Is(err, spa.ErrNoDocument) {
			c.Data(http.StatusOK, contentTypeHTML, spa.InjectBase(spa.Fallback(), s.shell.BaseHref()))
			return
		}
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "render failed"})
		return
	}
	c.Data(http.StatusOK, contentTypeHTML, doc)
}

func (s *Server) preload(c *gin.Context, payload string, build func(context.Context) (any, error)) json.RawMessage {
	b, err := s.payloadJSON(c, payload, "", build)
	if err != nil {
		logger.FromGin(c).Warn("initial data unavailable", "payload", payload, "err", err)
		return nil
	}
	return b
}

// asset serves a file the resolver already placed inside the build root.
// Symlinks are resolved here and must not lead outside it either.
func (s *Server) asset(c *gin.Context, d routing.Decision) {
	resolved, err := filepath.EvalSymlinks(d.AssetPath)
	if err != nil || !within(s.realRoot, resolved) {
		s.notFound(c)
		return
	}
	f, err := os.Open(resolved)
	if err != nil {
		s.notFound(c)
		return
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil || st.IsDir() {
		s.notFound(c)
		return
	}
	if strings.HasPrefix(d.Path, "/assets/") {
		c.Header("Cache-Control", "public, max-age=31536000, immutable")
	}
	http.ServeContent(c.Writer, c.Request, st.Name(), st.ModTime(), f)
}

func (s *Server) spaFallback(c *gin.Context) {
	doc, err := s.shell.Document()
	if err != nil {
		if errors.Is(err, spa.ErrNoDocument) {
			s.notFound(c)
			return
		}
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "render failed"})
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, contentTypeHTML, doc)
}

func within(root, p string) bool {
	if p == root {
		return false
	}
	base := root
	if !strings.HasSuffix(base, string(filepath.Separator)) {
		base += string(filepath.Separator)
	}
	return strings.HasPrefix(p, base)
}

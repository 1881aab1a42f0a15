package spa

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrNoDocument is returned when the build directory has no entry document.
var ErrNoDocument = errors.New("spa: entry document not found")

// IndexFile is the SPA entry document inside the build directory.
const IndexFile = "index.html"

// InitialDataVar is the global the front end reads its first payload from.
const InitialDataVar = "window.__INITIAL_DATA__"

//go:embed fallback.html
var fallbackPage []byte

var (
	headOpenRe  = regexp.MustCompile(`(?i)<head(\s[^>]*)?>`)
	headCloseRe = regexp.MustCompile(`(?i)</head\s*>`)
	bodyCloseRe = regexp.MustCompile(`(?i)</body\s*>`)
	baseTagRe   = regexp.MustCompile(`(?i)<base[\s>/]`)
)

// Shell renders the SPA entry document.
//
// The document is read from disk per request so a rebuilt front end is picked
// up without a restart.
type Shell struct {
	root    string
	baseRef string
}

// NewShell serves root/index.html. prefix is the proxy mount point and becomes
// the <base href> ("/" when empty).
func NewShell(root, prefix string) *Shell {
	base := strings.TrimRight(prefix, "/") + "/"
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return &Shell{root: root, baseRef: base}
}

// BaseHref returns the injected base path.
func (s *Shell) BaseHref() string { return s.baseRef }

func (s *Shell) load() ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(s.root, IndexFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoDocument
		}
		return nil, fmt.Errorf("spa: read entry document: %w", err)
	}
	return b, nil
}

// Available reports whether the entry document exists.
func (s *Shell) Available() bool {
	st, err := os.Stat(filepath.Join(s.root, IndexFile))
	return err == nil && !st.IsDir()
}

// Document returns the entry document with a base tag injected. Used for SPA fallback.
func (s *Shell) Document() ([]byte, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return InjectBase(doc, s.baseRef), nil
}

// Render returns the entry document with a base tag and an initial-data script.
func (s *Shell) Render(initialData any) ([]byte, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	doc = InjectBase(doc, s.baseRef)
	return InjectInitialData(doc, initialData)
}

// Fallback is the built-in page served at the root when no build is present.
func Fallback() []byte { return fallbackPage }

// InjectBase inserts <base href> right after the opening head tag when the
// document has no base tag yet. Documents without a head tag are returned as is.
func InjectBase(doc []byte, href string) []byte {
	if baseTagRe.Match(doc) {
		return doc
	}
	loc := headOpenRe.FindIndex(doc)
	if loc == nil {
		return doc
	}
	tag := fmt.Sprintf(`<base href="%s">`, htmlAttrEscape(href))
	return splice(doc, loc[1], tag)
}

// InjectInitialData adds a script assigning data to window.__INITIAL_DATA__.
// It goes before </head>, else before </body>, else at the end.
func InjectInitialData(doc []byte, data any) ([]byte, error) {
	// json.Marshal escapes <, > and & so the payload cannot close the script tag.
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("spa: encode initial data: %w", err)
	}
	tag := "<script>" + InitialDataVar + " = " + string(payload) + ";</script>"

	if loc := headCloseRe.FindIndex(doc); loc != nil {
		return splice(doc, loc[0], tag), nil
	}
	if loc := bodyCloseRe.FindIndex(doc); loc != nil {
		return splice(doc, loc[0], tag), nil
	}
	return splice(doc, len(doc), tag), nil
}

func splice(doc []byte, at int, s string) []byte {
	out := make([]byte, 0, len(doc)+len(s))
	out = append(out, doc[:at]...)
	out = append(out, s...)
	out = append(out, doc[at:]...)
	return out
}

var attrReplacer = strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;", `>`, "&gt;")

func htmlAttrEscape(s string) string { return attrReplacer.Replace(s) }

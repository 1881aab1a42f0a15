package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ringba-sync-dashboard/internal/cache"
	"ringba-sync-dashboard/internal/export"
	"ringba-sync-dashboard/internal/metrics"
	"ringba-sync-dashboard/internal/reporting"
	"ringba-sync-dashboard/internal/routing"
	"ringba-sync-dashboard/internal/scrape"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const testPrefix = "/ringba-sync-dashboard"

const testIndex = `<!doctype html><html><head><title>dash</title></head><body><div id="root"></div></body></html>`

type fixture struct {
	dir     string
	build   string
	store   *reporting.MemoryStore
	metrics *metrics.Metrics
	router  *gin.Engine
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// newFixture builds <tmp>/build with an index and one asset, and
// <tmp>/secret.txt outside of it.
func newFixture(t *testing.T, withBuild bool, c cache.Cache) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	build := filepath.Join(dir, "build")
	writeFile(t, filepath.Join(dir, "secret.txt"), "top secret")
	if withBuild {
		writeFile(t, filepath.Join(build, "index.html"), testIndex)
		writeFile(t, filepath.Join(build, "assets", "app.js"), "console.log('app')")
		writeFile(t, filepath.Join(build, "favicon.ico"), "ico")
	}

	res, err := routing.NewResolver(build, testPrefix, nil)
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	store := reporting.NewMemoryStore()
	m := metrics.New()
	srv, err := NewServer(Options{
		Resolver: res,
		Payloads: reporting.NewService(store),
		Cache:    c,
		Metrics:  m,
	})
	if err != nil {
		t.Fatalf("server: %v", err)
	}

	r := gin.New()
	r.NoRoute(srv.Dispatch)
	return &fixture{dir: dir, build: build, store: store, metrics: m, router: r}
}

func (f *fixture) do(method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func (f *fixture) get(path string) *httptest.ResponseRecorder {
	return f.do(http.MethodGet, path)
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	if _, err := NewServer(Options{}); err == nil {
		t.Fatalf("expected error without resolver")
	}
	res, _ := routing.NewResolver(t.TempDir(), "", nil)
	if _, err := NewServer(Options{Resolver: res}); err == nil {
		t.Fatalf("expected error without payloads")
	}
}

func TestDispatch_HealthWithAndWithoutPrefix(t *testing.T) {
	f := newFixture(t, true, nil)
	f.store.Sessions = []scrape.Session{
		{SessionID: "historical_1", Status: scrape.SessionStatusCompleted, StartedAt: time.Now().Add(-time.Hour)},
	}

	for _, path := range []string{"/api/health", testPrefix + "/api/health", testPrefix + "/api/health/"} {
		w := f.get(path)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d (%s)", path, w.Code, w.Body.String())
		}
		if !strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
			t.Fatalf("%s: unexpected content type %q", path, w.Header().Get("Content-Type"))
		}
		var body map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: decode: %v", path, err)
		}
		if body["status"] != "healthy" || body["successRate"] != float64(100) {
			t.Fatalf("%s: unexpected body %v", path, body)
		}
	}
	if f.store.Open() != 0 {
		t.Fatalf("expected all connections released, %d open", f.store.Open())
	}
}

func TestDispatch_SourceUnavailableIs503(t *testing.T) {
	f := newFixture(t, true, nil)
	f.store.AcquireErr = errors.New("connection refused")

	w := f.get("/api/stats")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if got := testutil.ToFloat64(f.metrics.SourceUnavailable); got != 1 {
		t.Fatalf("expected unavailable counter 1, got %v", got)
	}
}

func TestDispatch_QueryFailureIs500(t *testing.T) {
	f := newFixture(t, true, nil)
	f.store.QueryErr = errors.New("no such table: calls")

	w := f.get("/api/activity")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "no such table") {
		t.Fatalf("expected error message in body, got %s", w.Body.String())
	}
	if f.store.Open() != 0 {
		t.Fatalf("expected connection released after failure")
	}
	if got := testutil.ToFloat64(f.metrics.PayloadErrors.WithLabelValues(payloadActivity, "failed")); got != 1 {
		t.Fatalf("expected payload error counter 1, got %v", got)
	}
}

func TestDispatch_PanicIs500AndReleases(t *testing.T) {
	f := newFixture(t, true, nil)
	f.store.PanicIn = "CallTotals"

	w := f.get("/api/stats")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if f.store.Open() != 0 {
		t.Fatalf("expected connection released after panic")
	}
}

func TestDispatch_HistoryLimitDefaults(t *testing.T) {
	f := newFixture(t, true, nil)
	now := time.Now()
	for i := 0; i < 60; i++ {
		f.store.Sessions = append(f.store.Sessions, scrape.Session{
			SessionID: fmt.Sprintf("current_%d", i),
			Status:    scrape.SessionStatusCompleted,
			StartedAt: now.Add(-time.Duration(i) * time.Minute),
		})
	}

	cases := map[string]int{
		"/api/history":            reporting.DefaultHistoryLimit,
		"/api/history?limit=abc":  reporting.DefaultHistoryLimit,
		"/api/history?limit=0":    reporting.DefaultHistoryLimit,
		"/api/history?limit=-3":   reporting.DefaultHistoryLimit,
		"/api/history?limit=7":    7,
		"/api/history?limit=5000": 60,
	}
	for path, want := range cases {
		w := f.get(path)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
		var body reporting.History
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: decode: %v", path, err)
		}
		if body.Count != want || len(body.Sessions) != want {
			t.Fatalf("%s: expected %d sessions, got count=%d len=%d", path, want, body.Count, len(body.Sessions))
		}
	}
}

func TestDispatch_PayloadCache(t *testing.T) {
	f := newFixture(t, true, cache.NewMemory(16, time.Minute))

	first := f.get("/api/history?service=current")
	f.store.Sessions = append(f.store.Sessions, scrape.Session{
		SessionID: "current_1", Status: scrape.SessionStatusCompleted, StartedAt: time.Now(),
	})
	second := f.get("/api/history?service=current")

	if first.Body.String() != second.Body.String() {
		t.Fatalf("expected cached payload, got %s then %s", first.Body.String(), second.Body.String())
	}
	if got := testutil.ToFloat64(f.metrics.CacheLookups.WithLabelValues("hit")); got != 1 {
		t.Fatalf("expected one cache hit, got %v", got)
	}

	// A different query is a different key.
	third := f.get("/api/history?service=historical")
	if third.Code != http.StatusOK || f.store.Opened != 2 {
		t.Fatalf("expected a second assembly, opened=%d", f.store.Opened)
	}
}

func TestDispatch_TraversalIsNotFound(t *testing.T) {
	f := newFixture(t, true, nil)

	for _, path := range []string{
		testPrefix + "/assets/../../secret.txt",
		"/assets/../../secret.txt",
		"/../secret.txt",
	} {
		w := f.get(path)
		if w.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, w.Code)
		}
		if strings.Contains(w.Body.String(), "top secret") {
			t.Fatalf("%s: leaked file outside build root", path)
		}
	}
}

func TestDispatch_SymlinkOutsideBuildIsNotFound(t *testing.T) {
	f := newFixture(t, true, nil)
	link := filepath.Join(f.build, "assets", "leak.js")
	if err := os.Symlink(filepath.Join(f.dir, "secret.txt"), link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	w := f.get(testPrefix + "/assets/leak.js")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestDispatch_ServesAssets(t *testing.T) {
	f := newFixture(t, true, nil)

	w := f.get(testPrefix + "/assets/app.js")
	if w.Code != http.StatusOK || w.Body.String() != "console.log('app')" {
		t.Fatalf("unexpected asset response %d %q", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Header().Get("Cache-Control"), "immutable") {
		t.Fatalf("expected immutable cache header, got %q", w.Header().Get("Cache-Control"))
	}

	w = f.get("/favicon.ico")
	if w.Code != http.StatusOK || w.Header().Get("Cache-Control") != "" {
		t.Fatalf("unexpected favicon response %d %q", w.Code, w.Header().Get("Cache-Control"))
	}

	if w := f.get(testPrefix + "/assets/missing.js"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing asset, got %d", w.Code)
	}
}

func TestDispatch_SPAFallbackRequiresPrefix(t *testing.T) {
	f := newFixture(t, true, nil)

	w := f.get(testPrefix + "/calls/123")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `<base href="/ringba-sync-dashboard/">`) {
		t.Fatalf("expected base tag, got %s", body)
	}
	if strings.Contains(body, "__INITIAL_DATA__") {
		t.Fatalf("fallback document must not carry initial data")
	}

	if w := f.get("/calls/123"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without prefix, got %d", w.Code)
	}
}

func TestDispatch_SPAFallbackWithoutBuild(t *testing.T) {
	f := newFixture(t, false, nil)
	if w := f.get(testPrefix + "/calls/123"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a build, got %d", w.Code)
	}
}

func TestDispatch_RootRendersInitialData(t *testing.T) {
	f := newFixture(t, true, nil)

	w := f.get(testPrefix + "/")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{`<base href="/ringba-sync-dashboard/">`, "window.__INITIAL_DATA__", `"successRate"`, `"totalCalls"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in %s", want, body)
		}
	}
	if w.Header().Get("Cache-Control") != "no-cache" {
		t.Fatalf("expected no-cache, got %q", w.Header().Get("Cache-Control"))
	}
}

func TestDispatch_RootDegradesWhenSourceDown(t *testing.T) {
	f := newFixture(t, true, nil)
	f.store.AcquireErr = errors.New("down")

	w := f.get("/")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `window.__INITIAL_DATA__ = {"health":null,"stats":null};`) {
		t.Fatalf("expected null initial data, got %s", w.Body.String())
	}
}

func TestDispatch_RootFallbackPageWithoutBuild(t *testing.T) {
	f := newFixture(t, false, nil)

	w := f.get(testPrefix)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `<base href="/ringba-sync-dashboard/">`) {
		t.Fatalf("expected base tag in fallback page, got %s", w.Body.String())
	}
}

func TestDispatch_Methods(t *testing.T) {
	f := newFixture(t, true, nil)

	if w := f.do(http.MethodOptions, "/api/health"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for OPTIONS, got %d", w.Code)
	}
	if w := f.do(http.MethodPost, "/api/health"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for POST, got %d", w.Code)
	}
	if w := f.do(http.MethodHead, "/api/health"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for HEAD, got %d", w.Code)
	}
	if f.store.Opened != 1 {
		t.Fatalf("only HEAD should reach the source, opened=%d", f.store.Opened)
	}
}

func TestDispatch_ChargebackExport(t *testing.T) {
	f := newFixture(t, true, nil)

	w := f.get(testPrefix + "/api/chargeback/export?limit=7")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if w.Header().Get("Content-Type") != export.ContentTypeXLSX {
		t.Fatalf("unexpected content type %q", w.Header().Get("Content-Type"))
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "chargeback_") || !strings.HasSuffix(cd, `.xlsx"`) {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	if w.Body.Len() == 0 {
		t.Fatalf("expected workbook body")
	}
}

func TestDispatch_DebugBuild(t *testing.T) {
	f := newFixture(t, true, nil)

	w := f.get("/api/debug/build")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Build struct {
			Exists      bool `json:"exists"`
			IndexExists bool `json:"indexExists"`
		} `json:"build"`
		ProxyPrefix string `json:"proxyPrefix"`
		BaseHref    string `json:"baseHref"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Build.Exists || !body.Build.IndexExists || body.ProxyPrefix != testPrefix || body.BaseHref != testPrefix+"/" {
		t.Fatalf("unexpected debug payload %+v", body)
	}
}

func TestDispatch_RequestMetrics(t *testing.T) {
	f := newFixture(t, true, nil)
	f.get("/api/health")
	f.get("/nope")

	if got := testutil.ToFloat64(f.metrics.RequestsTotal.WithLabelValues("endpoint", "/api/health", "200")); got != 1 {
		t.Fatalf("expected one health request, got %v", got)
	}
	if got := testutil.ToFloat64(f.metrics.RequestsTotal.WithLabelValues("not_found", "-", "404")); got != 1 {
		t.Fatalf("expected one not_found request, got %v", got)
	}
}

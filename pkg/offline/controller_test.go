package offline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"testing"
	"time"
)

const (
	criticalCache = "interprelab-critical-v1"
	apiCache      = "interprelab-offline-v1"
)

func smallOptions() Options {
	return Options{
		CriticalResources: []string{"/", "/offline.html"},
		CriticalAPI:       []string{"/api/health"},
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(Options{}, Dependencies{Network: newFakeNetwork()}); !errors.Is(err, ErrMissingStorage) {
		t.Fatalf("expected ErrMissingStorage, got %v", err)
	}
	h := newHarness(t, Options{})
	if _, err := New(Options{}, Dependencies{Storage: h.storage}); !errors.Is(err, ErrMissingNetwork) {
		t.Fatalf("expected ErrMissingNetwork, got %v", err)
	}
	_, err := New(Options{CriticalCache: "same", APICache: "same"}, Dependencies{Storage: h.storage, Network: h.net})
	if !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions, got %v", err)
	}
}

func TestDefaultOptions(t *testing.T) {
	h := newHarness(t, Options{})
	opts := h.ctrl.Options()
	if opts.CriticalCache != criticalCache || opts.APICache != apiCache {
		t.Fatalf("unexpected cache names %s / %s", opts.CriticalCache, opts.APICache)
	}
	if opts.Timeout != 15*time.Second {
		t.Fatalf("expected 15s timeout, got %s", opts.Timeout)
	}
	if len(opts.CriticalResources) != 11 || len(opts.CriticalAPI) != 5 {
		t.Fatalf("unexpected default lists: %d resources, %d api", len(opts.CriticalResources), len(opts.CriticalAPI))
	}
	if h.ctrl.State() != StateParsed {
		t.Fatalf("expected parsed state, got %s", h.ctrl.State())
	}
}

func TestInstallPopulatesCaches(t *testing.T) {
	h := newHarness(t, smallOptions())
	h.net.set("/", "home")
	h.net.set("/offline.html", "offline page")
	h.net.set("/api/health", `{"ok":true}`)

	report, err := h.ctrl.Install(context.Background())
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if got := h.keys(t, criticalCache); !reflect.DeepEqual(got, []string{"GET /", "GET /offline.html"}) {
		t.Fatalf("unexpected resource keys %v", got)
	}
	if got := h.keys(t, apiCache); !reflect.DeepEqual(got, []string{"GET /api/health"}) {
		t.Fatalf("unexpected api keys %v", got)
	}
	if len(report.Resources) != 2 || len(report.FailedEndpoints()) != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if h.ctrl.State() != StateInstalled || !h.ctrl.SkipWaiting() {
		t.Fatalf("expected installed + skipWaiting, got %s", h.ctrl.State())
	}
	if first := h.net.headers[0]; first.Get("Cache-Control") != "no-cache" || first.Get("Pragma") != "no-cache" {
		t.Fatalf("install fetches must bypass the HTTP cache, got %v", first)
	}
}

func TestInstallResourceFailureStoresNothing(t *testing.T) {
	h := newHarness(t, smallOptions())
	h.net.set("/", "home")
	// /offline.html missing -> 404

	_, err := h.ctrl.Install(context.Background())
	if !errors.Is(err, ErrInstallFailed) {
		t.Fatalf("expected ErrInstallFailed, got %v", err)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusNotFound {
		t.Fatalf("expected wrapped 404 status error, got %v", err)
	}
	if got := h.keys(t, criticalCache); len(got) != 0 {
		t.Fatalf("expected no entries after failed install, got %v", got)
	}
	if h.ctrl.State() != StateRedundant {
		t.Fatalf("expected redundant, got %s", h.ctrl.State())
	}
	if _, err := h.ctrl.Activate(context.Background()); !errors.Is(err, ErrRedundant) {
		t.Fatalf("expected ErrRedundant, got %v", err)
	}
}

func TestInstallAPIFailureIsBestEffort(t *testing.T) {
	opts := smallOptions()
	opts.CriticalAPI = []string{"/api/missing", "/api/health"}
	h := newHarness(t, opts)
	h.net.set("/", "home")
	h.net.set("/offline.html", "offline page")
	h.net.set("/api/health", `{"ok":true}`)

	report, err := h.ctrl.Install(context.Background())
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if got := report.FailedEndpoints(); !reflect.DeepEqual(got, []string{"/api/missing"}) {
		t.Fatalf("unexpected failed endpoints %v", got)
	}
	if got := h.keys(t, apiCache); !reflect.DeepEqual(got, []string{"GET /api/health"}) {
		t.Fatalf("api loop should continue past failures, got %v", got)
	}
}

func TestInstallSmallLists(t *testing.T) {
	h := newHarness(t, smallOptions())
	for _, path := range []string{"/", "/offline.html", "/api/health"} {
		h.net.set(path, "ok "+path)
	}
	if _, err := h.ctrl.Install(context.Background()); err != nil {
		t.Fatalf("install: %v", err)
	}
	if n := len(h.keys(t, criticalCache)); n != 2 {
		t.Fatalf("expected 2 resource entries, got %d", n)
	}
	if n := len(h.keys(t, apiCache)); n != 1 {
		t.Fatalf("expected 1 api entry, got %d", n)
	}
}

// Critical hits never touch the network.
func TestCacheFirstAfterInstall(t *testing.T) {
	h := newHarness(t, smallOptions())
	h.net.set("/", "home")
	h.net.set("/offline.html", "offline page")
	if _, err := h.ctrl.Install(context.Background()); err != nil {
		t.Fatalf("install: %v", err)
	}
	before := h.net.count(http.MethodGet, "/")

	resp := h.fetch(t, http.MethodGet, "/")
	if string(resp.Body) != "home" || resp.Source != SourceCache {
		t.Fatalf("expected cached home, got %q from %s", resp.Body, resp.Source)
	}
	if after := h.net.count(http.MethodGet, "/"); after != before {
		t.Fatalf("network called for cached critical resource (%d -> %d)", before, after)
	}
}

// Live API responses are returned as-is and replace the snapshot.
func TestNetworkFirstAPIFreshness(t *testing.T) {
	h := newHarness(t, smallOptions())
	h.net.set("/api/health", `{"v":1}`)
	h.fetch(t, http.MethodGet, "/api/health")
	h.net.set("/api/health", `{"v":2}`)

	live := h.fetch(t, http.MethodGet, "/api/health")
	if string(live.Body) != `{"v":2}` || live.Source != SourceNetwork {
		t.Fatalf("expected live body, got %q", live.Body)
	}
	if live.Header.Get(HeaderServedBy) != "" {
		t.Fatalf("live response must not be marked")
	}

	h.net.setOffline(true)
	cached := h.fetch(t, http.MethodGet, "/api/health")
	if string(cached.Body) != `{"v":2}` {
		t.Fatalf("expected refreshed snapshot, got %q", cached.Body)
	}
	if cached.Header.Get(HeaderServedBy) != ServedByCache {
		t.Fatalf("expected cache marker, got %q", cached.Header.Get(HeaderServedBy))
	}

	store, _ := h.storage.Open(context.Background(), apiCache)
	entry, ok, err := store.Match(context.Background(), "GET /api/health")
	if err != nil || !ok {
		t.Fatalf("expected stored entry: ok=%v err=%v", ok, err)
	}
	if entry.Header.Get(HeaderServedBy) != "" {
		t.Fatalf("cache marker must not leak into the stored entry")
	}
}

func TestAPINonOKFallsBackToCache(t *testing.T) {
	h := newHarness(t, smallOptions())
	h.net.set("/api/health", `{"ok":true}`)
	h.fetch(t, http.MethodGet, "/api/health")

	h.net.status["/api/health"] = http.StatusServiceUnavailable
	resp := h.fetch(t, http.MethodGet, "/api/health")
	if resp.Status != http.StatusOK || string(resp.Body) != `{"ok":true}` {
		t.Fatalf("expected cached snapshot on 503, got %d %q", resp.Status, resp.Body)
	}
}

func TestCrisisSupportSyntheticJSON(t *testing.T) {
	h := newHarness(t, smallOptions())
	h.net.setOffline(true)

	resp := h.fetch(t, http.MethodGet, "/api/crisis-support")
	if resp.Status != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Status)
	}
	if resp.Header.Get(HeaderServedBy) != ServedBySynthetic {
		t.Fatalf("expected synthetic marker, got %q", resp.Header.Get(HeaderServedBy))
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		t.Fatalf("unexpected content type %q", resp.Header.Get("Content-Type"))
	}

	var got, want map[string]any
	if err := json.Unmarshal(resp.Body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	fixed, _ := json.Marshal(crisisSupport)
	_ = json.Unmarshal(fixed, &want)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected crisis payload %s", resp.Body)
	}
	if got["offline"] != true || len(got["hotlines"].([]any)) == 0 {
		t.Fatalf("crisis payload missing hotlines: %s", resp.Body)
	}
	if !strings.Contains(string(resp.Body), "988") {
		t.Fatalf("crisis payload must list 988")
	}
}

func TestOfflineSupportSyntheticJSON(t *testing.T) {
	h := newHarness(t, smallOptions())
	h.net.setOffline(true)
	resp := h.fetch(t, http.MethodGet, "/api/support/offline")
	var got struct {
		Techniques   []map[string]string `json:"techniques"`
		Affirmations []string            `json:"affirmations"`
		Offline      bool                `json:"offline"`
	}
	if err := json.Unmarshal(resp.Body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Offline || len(got.Techniques) == 0 || len(got.Affirmations) == 0 {
		t.Fatalf("unexpected payload %s", resp.Body)
	}
}

func TestUnknownAPIDefaultJSON(t *testing.T) {
	h := newHarness(t, smallOptions())
	h.net.setOffline(true)
	resp := h.fetch(t, http.MethodGet, "/api/tools/emergency")
	if string(resp.Body) != DefaultOfflineJSON {
		t.Fatalf("unexpected body %s", resp.Body)
	}
	var got map[string]any
	if err := json.Unmarshal(resp.Body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]any{
		"message": "This content is not available offline",
		"offline": true,
		"support": "Crisis support resources are always available",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected default object %v", got)
	}
}

func TestCachedRootWhileOffline(t *testing.T) {
	h := newHarness(t, smallOptions())
	h.net.set("/", "home")
	first := h.fetch(t, http.MethodGet, "/")
	if first.Source != SourceNetwork {
		t.Fatalf("expected first fetch from network, got %s", first.Source)
	}
	h.net.setOffline(true)

	resp := h.fetch(t, http.MethodGet, "/")
	if string(resp.Body) != "home" || resp.Source != SourceCache {
		t.Fatalf("expected cached root, got %q", resp.Body)
	}
	if n := h.net.count(http.MethodGet, "/"); n != 1 {
		t.Fatalf("network should be called once, got %d", n)
	}
}

func TestCriticalMissFallsBackToOfflinePage(t *testing.T) {
	h := newHarness(t, smallOptions())
	h.net.set("/offline.html", "cached offline page")
	h.fetch(t, http.MethodGet, "/offline.html")
	h.net.setOffline(true)

	resp := h.fetch(t, http.MethodGet, "/")
	if string(resp.Body) != "cached offline page" {
		t.Fatalf("expected cached offline page, got %q", resp.Body)
	}
}

func TestCriticalMissWithoutOfflinePageIsSynthetic(t *testing.T) {
	h := newHarness(t, smallOptions())
	h.net.setOffline(true)
	resp := h.fetch(t, http.MethodGet, "/")
	if resp.Source != SourceSynthetic || !strings.Contains(string(resp.Body), "988") {
		t.Fatalf("expected synthetic offline html, got %q", resp.Body)
	}
}

func TestRepeatedFetchKeepsOneEntry(t *testing.T) {
	h := newHarness(t, smallOptions())
	h.net.set("/static/app.js", "v1")
	for i := 0; i < 3; i++ {
		h.fetch(t, http.MethodGet, "/static/app.js")
	}
	keys := h.keys(t, criticalCache)
	if !reflect.DeepEqual(keys, []string{"GET /static/app.js"}) {
		t.Fatalf("expected a single entry, got %v", keys)
	}
}

func TestOtherResourceFallsBackToCache(t *testing.T) {
	h := newHarness(t, smallOptions())
	h.net.set("/about", "about page")
	h.fetch(t, http.MethodGet, "/about")
	h.net.setOffline(true)

	resp := h.fetch(t, http.MethodGet, "/about")
	if string(resp.Body) != "about page" || resp.Source != SourceCache {
		t.Fatalf("expected cached about page, got %q", resp.Body)
	}
}

func TestOfflineFallbackTyping(t *testing.T) {
	h := newHarness(t, smallOptions())
	h.net.setOffline(true)

	img, _ := NewRequest(http.MethodGet, "/images/photo.png")
	img.Destination = DestinationImage
	resp, err := h.ctrl.Fetch(context.Background(), img)
	if err != nil {
		t.Fatalf("fetch image: %v", err)
	}
	if resp.Header.Get("Content-Type") != "image/svg+xml" || !strings.Contains(string(resp.Body), "Image offline") {
		t.Fatalf("unexpected image fallback %q %q", resp.Header.Get("Content-Type"), resp.Body)
	}
	if !strings.Contains(string(resp.Body), `fill="#f0f0f0"`) {
		t.Fatalf("expected grey placeholder background")
	}

	page := h.fetch(t, http.MethodGet, "/blog/post")
	if page.Header.Get("Content-Type") != "text/html" || !strings.Contains(string(page.Body), "988") {
		t.Fatalf("unexpected html fallback %q", page.Header.Get("Content-Type"))
	}
}

func TestNonGETPassesThrough(t *testing.T) {
	h := newHarness(t, smallOptions())
	h.net.set("/api/health", "created")

	resp := h.fetch(t, http.MethodPost, "/api/health")
	if string(resp.Body) != "created" {
		t.Fatalf("unexpected body %q", resp.Body)
	}
	if keys := h.keys(t, apiCache); len(keys) != 0 {
		t.Fatalf("non-GET responses must not be cached, got %v", keys)
	}

	h.net.setOffline(true)
	req, _ := NewRequest(http.MethodPost, "/api/health")
	if _, err := h.ctrl.Fetch(context.Background(), req); !errors.Is(err, errOffline) {
		t.Fatalf("expected network error to propagate, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	h := newHarness(t, smallOptions())
	cases := []struct {
		method string
		target string
		want   Strategy
	}{
		{http.MethodPut, "/", StrategyPassThrough},
		{http.MethodGet, "/api/anything?x=1", StrategyAPI},
		{http.MethodGet, "/", StrategyCritical},
		{http.MethodGet, "/offline.html", StrategyCritical},
		{http.MethodGet, "/offline.html/extra", StrategyOther},
		{http.MethodGet, "/apix", StrategyOther},
	}
	for _, tc := range cases {
		req, err := NewRequest(tc.method, tc.target)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		if got := h.ctrl.Classify(req); got != tc.want {
			t.Fatalf("%s %s: got %s want %s", tc.method, tc.target, got, tc.want)
		}
	}
}

func TestTimeoutBoundsNetwork(t *testing.T) {
	opts := smallOptions()
	opts.Timeout = 20 * time.Millisecond
	h := newHarness(t, opts)
	slow := FetcherFunc(func(ctx context.Context, req *Request) (*Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	h.ctrl.network = slow

	resp := h.fetch(t, http.MethodGet, "/api/crisis-support")
	if resp.Source != SourceSynthetic {
		t.Fatalf("expected synthetic response after timeout, got %s", resp.Source)
	}
}

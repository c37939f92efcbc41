package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/logd/internal/api/models"
	"github.com/smazurov/logd/internal/config"
	"github.com/smazurov/logd/internal/engine"
	"github.com/smazurov/logd/internal/events"
	"github.com/smazurov/logd/internal/lifecycle"
	"github.com/smazurov/logd/internal/logging"
	"github.com/smazurov/logd/internal/routing"
	"github.com/smazurov/logd/internal/sink"
)

type fakeLifecycle struct {
	mu       sync.Mutex
	requests []lifecycle.Transition
}

func (f *fakeLifecycle) State() lifecycle.State { return lifecycle.StateRunning }
func (f *fakeLifecycle) Uptime() time.Duration  { return 90 * time.Second }
func (f *fakeLifecycle) Request(t lifecycle.Transition) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r == t {
			return false
		}
	}
	f.requests = append(f.requests, t)
	return true
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type testEnv struct {
	ts     *httptest.Server
	engine *engine.Engine
	life   *fakeLifecycle
	bus    *events.Bus
	stdout *syncBuffer
}

func newTestEnv(t *testing.T, withAuth bool) *testEnv {
	t.Helper()
	stdout := &syncBuffer{}
	resolver := sink.NewResolver(sink.WithConsoles(stdout, io.Discard))

	cfg, err := config.Parse([]byte(`
port = 9000

[[logs]]
service = "auth"
levels = "warn,error"
logfile = "STDOUT"
`))
	if err != nil {
		t.Fatal(err)
	}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg, err := routing.Build(cfg, resolver, routing.WithLogger(quiet))
	if err != nil {
		t.Fatal(err)
	}

	env := &testEnv{
		engine: engine.New(reg, engine.WithLogger(quiet)),
		life:   &fakeLifecycle{},
		bus:    events.New(),
		stdout: stdout,
	}
	opts := &Options{
		Engine:            env.engine,
		Lifecycle:         env.life,
		EventBus:          env.bus,
		PrometheusHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, "# metrics") }),
	}
	if withAuth {
		opts.AuthUsername = "admin"
		opts.AuthPassword = "secret"
	}

	env.ts = httptest.NewServer(NewServer(opts).Handler())
	t.Cleanup(env.ts.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string, auth bool) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.SetBasicAuth("admin", "secret")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestHealthSkipsAuth(t *testing.T) {
	env := newTestEnv(t, true)

	resp := env.do(t, http.MethodGet, "/api/health", "", false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := decode[models.HealthData](t, resp); got.Status != "ok" {
		t.Errorf("health = %+v", got)
	}

	if resp := env.do(t, http.MethodGet, "/metrics", "", false); resp.StatusCode != http.StatusOK {
		t.Errorf("/metrics status = %d", resp.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t, true)

	if resp := env.do(t, http.MethodGet, "/api/status", "", false); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status without auth = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, env.ts.URL+"/api/status", nil)
	req.SetBasicAuth("admin", "wrong")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status with wrong password = %d, want 401", resp.StatusCode)
	}
	if resp.Header.Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate header")
	}

	if resp := env.do(t, http.MethodGet, "/api/status", "", true); resp.StatusCode != http.StatusOK {
		t.Errorf("status with auth = %d", resp.StatusCode)
	}
}

func TestQueryAuth(t *testing.T) {
	env := newTestEnv(t, true)
	creds := base64.StdEncoding.EncodeToString([]byte("admin:secret"))

	resp, err := http.Get(env.ts.URL + "/api/routes?auth=" + creds)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t, false)
	env.engine.Submit("auth", "error", "queued")

	got := decode[models.StatusData](t, env.do(t, http.MethodGet, "/api/status", "", false))
	if got.State != "RUNNING" || got.UptimeSeconds != 90 {
		t.Errorf("state=%s uptime=%v", got.State, got.UptimeSeconds)
	}
	if got.Routes != 2 || got.Pending != 1 {
		t.Errorf("routes=%d pending=%d", got.Routes, got.Pending)
	}
}

func TestRoutes(t *testing.T) {
	env := newTestEnv(t, false)

	got := decode[models.RouteListData](t, env.do(t, http.MethodGet, "/api/routes", "", false))
	if got.Count != 2 {
		t.Fatalf("routes = %+v", got.Routes)
	}
	var auth *models.RouteData
	for i := range got.Routes {
		if got.Routes[i].Service == "auth" {
			auth = &got.Routes[i]
		}
	}
	if auth == nil {
		t.Fatal("auth route missing")
	}
	if strings.Join(auth.Levels, ",") != "error,warn" || auth.Destination != sink.ConsoleStdout {
		t.Errorf("auth route = %+v", auth)
	}
}

func TestReload(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.do(t, http.MethodPost, "/api/reload", "", false)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := decode[models.ReloadData](t, resp); !got.Accepted {
		t.Error("first reload should be accepted")
	}

	got := decode[models.ReloadData](t, env.do(t, http.MethodPost, "/api/reload", "", false))
	if got.Accepted {
		t.Error("duplicate reload should not be accepted")
	}
}

func TestSubmitEntries(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.do(t, http.MethodPost, "/api/entries", `{"entries":[
		{"service":"auth","severity":"error","message":"denied"},
		{"service":"auth","message":"info is filtered"},
		{"service":"billing","severity":"info","message":"paid"}
	]}`, false)
	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if got := decode[models.SubmitEntriesData](t, resp); got.Accepted != 3 {
		t.Errorf("accepted = %d", got.Accepted)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := env.engine.Flush(ctx); err != nil {
		t.Fatal(err)
	}

	out := env.stdout.String()
	if !strings.Contains(out, "[ERROR] [auth] denied") || !strings.Contains(out, "[INFO] [billing] paid") {
		t.Errorf("output = %q", out)
	}
	if strings.Contains(out, "info is filtered") {
		t.Error("auth info entry should be filtered")
	}
}

func TestSubmitEntriesValidation(t *testing.T) {
	env := newTestEnv(t, false)

	for _, body := range []string{
		`{"entries":[]}`,
		`{"entries":[{"service":"","message":"x"}]}`,
		`{"entries":[{"service":"auth"}]}`,
		`{"entries":[{"service":"auth","message":""}]}`,
	} {
		resp := env.do(t, http.MethodPost, "/api/entries", body, false)
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Errorf("%s: status = %d, want 422", body, resp.StatusCode)
		}
	}
	if env.engine.Pending() != 0 {
		t.Error("rejected request queued entries")
	}
}

func TestDiagnostics(t *testing.T) {
	env := newTestEnv(t, false)
	logging.GetLogger("apitest").Warn("diagnostics marker")

	got := decode[models.DiagnosticsData](t, env.do(t, http.MethodGet, "/api/diagnostics?limit=1000", "", false))
	found := false
	for _, line := range got.Lines {
		if strings.Contains(line, "diagnostics marker") {
			found = true
		}
	}
	if !found {
		t.Errorf("marker missing from %d lines", got.Count)
	}
	if got.Last == 0 {
		t.Error("Last should carry the newest sequence number")
	}

	logging.GetLogger("apitest").Warn("second marker")
	next := decode[models.DiagnosticsData](t, env.do(t, http.MethodGet,
		fmt.Sprintf("/api/diagnostics?after=%d", got.Last), "", false))
	if !slices.ContainsFunc(next.Lines, func(line string) bool {
		return strings.Contains(line, "second marker")
	}) {
		t.Errorf("after=%d returned %v", got.Last, next.Lines)
	}
	if slices.ContainsFunc(next.Lines, func(line string) bool {
		return strings.Contains(line, "diagnostics marker")
	}) {
		t.Error("after should skip records already seen")
	}
	if next.Last <= got.Last {
		t.Errorf("Last did not advance: %d <= %d", next.Last, got.Last)
	}

	if resp := env.do(t, http.MethodGet, "/api/diagnostics?limit=0", "", false); resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("limit=0 status = %d, want 422", resp.StatusCode)
	}
}

func TestEventStream(t *testing.T) {
	env := newTestEnv(t, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, env.ts.URL+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		t.Fatalf("content type = %s", resp.Header.Get("Content-Type"))
	}

	lines := make(chan string, 10)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, "data:") {
				lines <- line
			}
		}
	}()

	select {
	case line := <-lines:
		if !strings.Contains(line, "RUNNING") {
			t.Errorf("initial event = %s", line)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for initial event")
	}

	env.bus.Publish(events.ReloadedEvent{Routes: 7})
	select {
	case line := <-lines:
		if !strings.Contains(line, `"routes":7`) {
			t.Errorf("reload event = %s", line)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for reload event")
	}
}

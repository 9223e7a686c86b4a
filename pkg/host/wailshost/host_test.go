package wailshost

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/greg-hellings/deskshell/pkg/events"
	"github.com/greg-hellings/deskshell/pkg/oauthwindow"
)

type fakeRuntime struct {
	mu        sync.Mutex
	shows     int
	hides     int
	scripts   []string
	emitted   []string
	listeners map[string]func(...interface{})
	quit      bool
}

func (f *fakeRuntime) WindowShow(context.Context) { f.mu.Lock(); f.shows++; f.mu.Unlock() }
func (f *fakeRuntime) WindowHide(context.Context) { f.mu.Lock(); f.hides++; f.mu.Unlock() }
func (f *fakeRuntime) WindowExecJS(_ context.Context, js string) {
	f.mu.Lock()
	f.scripts = append(f.scripts, js)
	f.mu.Unlock()
}
func (f *fakeRuntime) EventsEmit(_ context.Context, name string, _ ...interface{}) {
	f.mu.Lock()
	f.emitted = append(f.emitted, name)
	f.mu.Unlock()
}
func (f *fakeRuntime) EventsOn(_ context.Context, name string, fn func(...interface{})) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listeners == nil {
		f.listeners = map[string]func(...interface{}){}
	}
	f.listeners[name] = fn
	return func() {
		f.mu.Lock()
		delete(f.listeners, name)
		f.mu.Unlock()
	}
}
func (f *fakeRuntime) Quit(context.Context) { f.mu.Lock(); f.quit = true; f.mu.Unlock() }

func (f *fakeRuntime) fire(name string, data ...interface{}) {
	f.mu.Lock()
	fn := f.listeners[name]
	f.mu.Unlock()
	if fn != nil {
		fn(data...)
	}
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestHost(t *testing.T, opts Options) (*Host, *fakeRuntime, *events.Recorder, *oauthwindow.Controller) {
	t.Helper()
	rt := &fakeRuntime{}
	opts.Logger = quietLogger()
	bus := events.NewBus()
	h := newHost(bus, opts, rt)
	rec := &events.Recorder{}
	bus.On(events.AuthCallbackEvent, func(p any) { _ = rec.Emit(events.AuthCallbackEvent, p) })
	ctrl := oauthwindow.New(h, h, oauthwindow.WithLogger(quietLogger()))
	h.Attach(ctrl)
	return h, rt, rec, ctrl
}

func TestHost_WindowUnavailableBeforeStartup(t *testing.T) {
	h, _, _, ctrl := newTestHost(t, Options{StartHidden: true})
	if _, ok := h.Lookup(oauthwindow.DefaultLabel); ok {
		t.Fatal("window should not be registered before startup")
	}
	if err := ctrl.OpenAuthFlow("https://example.com"); err == nil {
		t.Error("expected window-not-found error before startup")
	}
}

func TestHost_OpenAuthFlowAndCallback(t *testing.T) {
	h, rt, rec, ctrl := newTestHost(t, Options{StartHidden: true})
	h.startup(context.Background())

	if _, ok := h.Lookup("other"); ok {
		t.Error("unexpected window for unknown label")
	}
	w, ok := h.Lookup(oauthwindow.DefaultLabel)
	if !ok || w.Visible() {
		t.Fatalf("expected hidden window after startup, got ok=%v", ok)
	}

	if err := ctrl.OpenAuthFlow("https://example.com/authorize?client_id=x"); err != nil {
		t.Fatal(err)
	}
	if !w.Visible() || rt.shows != 1 || len(rt.scripts) != 1 {
		t.Fatalf("window not shown and navigated: shows=%d scripts=%v", rt.shows, rt.scripts)
	}

	// relay page reports the full location
	rt.fire(NavigationEvent, "http://wails.localhost/oauth/callback#access_token=tok&state=s")
	if w.Visible() || rt.hides != 1 {
		t.Errorf("window should be hidden after callback")
	}
	got := rec.Events()
	if len(got) != 1 || got[0].Payload.(events.AuthCallback).URL != "http://wails.localhost/oauth/callback#access_token=tok&state=s" {
		t.Errorf("unexpected callback events %+v", got)
	}
	// the frontend receives it too
	if len(rt.emitted) != 1 || rt.emitted[0] != events.AuthCallbackEvent {
		t.Errorf("frontend events = %v", rt.emitted)
	}

	rt.fire(NavigationEvent)
	rt.fire(NavigationEvent, 42)
	if len(rec.Events()) != 1 {
		t.Error("malformed navigation events should be ignored")
	}
}

func TestHost_BeforeCloseHides(t *testing.T) {
	h, rt, _, _ := newTestHost(t, Options{})
	h.startup(context.Background())

	if prevent := h.beforeClose(context.Background()); !prevent {
		t.Error("close should be prevented")
	}
	if rt.hides != 1 {
		t.Errorf("hides = %d", rt.hides)
	}

	bare := newHost(nil, Options{Logger: quietLogger()}, &fakeRuntime{})
	if bare.beforeClose(context.Background()) {
		t.Error("without a controller the close should proceed")
	}
}

func TestHost_BeforeCloseNotifiesAfterHide(t *testing.T) {
	var hidesAtNotify, calls int
	var rt *fakeRuntime
	h, rt, _, _ := newTestHost(t, Options{OnCloseRequested: func() {
		calls++
		hidesAtNotify = rt.hides
	}})
	h.startup(context.Background())

	if prevent := h.beforeClose(context.Background()); !prevent {
		t.Fatal("close should still be prevented")
	}
	if calls != 1 {
		t.Fatalf("OnCloseRequested called %d times", calls)
	}
	if hidesAtNotify != 1 {
		t.Errorf("window should be hidden before the hook runs, hides = %d", hidesAtNotify)
	}
}

func TestHost_ResidentReshows(t *testing.T) {
	h, rt, _, _ := newTestHost(t, Options{Resident: true})
	h.startup(context.Background())

	_ = h.Emit(events.AccountsChangedEvent, nil)
	_ = h.Emit(events.SignInFailedEvent, events.SignInFailed{Provider: "github"})
	if rt.shows != 2 {
		t.Errorf("shows = %d, want 2", rt.shows)
	}

	h.shutdown(context.Background())
	_ = h.Emit(events.AccountsChangedEvent, nil)
	if rt.shows != 2 {
		t.Error("listeners should be removed on shutdown")
	}
}

func TestHost_OnReadyAndQuit(t *testing.T) {
	ready := make(chan struct{})
	h, rt, _, _ := newTestHost(t, Options{OnReady: func(context.Context) { close(ready) }})
	h.Quit()
	if rt.quit {
		t.Error("Quit before startup should be a no-op")
	}
	h.startup(context.Background())
	<-ready
	h.Quit()
	if !rt.quit {
		t.Error("Quit not forwarded")
	}
}

func TestHost_AppOptions(t *testing.T) {
	h, _, _, _ := newTestHost(t, Options{Title: "Sign in", Width: 500, Height: 700, StartHidden: true})
	app, err := h.AppOptions(struct{}{})
	if err != nil {
		t.Fatal(err)
	}
	if app.Title != "Sign in" || app.Width != 500 || !app.StartHidden || len(app.Bind) != 1 {
		t.Errorf("unexpected options %+v", app)
	}
	if app.AssetServer == nil || app.AssetServer.Assets == nil || app.AssetServer.Middleware == nil {
		t.Fatal("asset server not configured")
	}
	if app.OnStartup == nil || app.OnBeforeClose == nil || app.Logger == nil {
		t.Error("lifecycle hooks missing")
	}
	f, err := app.AssetServer.Assets.Open("index.html")
	if err != nil {
		t.Fatalf("bundled frontend missing index.html: %v", err)
	}
	_ = f.Close()
}

func TestNavigationMiddleware(t *testing.T) {
	assets := fstest.MapFS{"index.html": {Data: []byte("<html>app</html>")}}
	var reported []string
	mw := NavigationMiddleware("/oauth/callback/", func(u string) { reported = append(reported, u) })
	handler := mw(http.FileServer(http.FS(assets)))

	tests := []struct {
		name       string
		method     string
		target     string
		header     map[string]string
		wantReport string
		wantBody   string
	}{
		{
			name:       "callback document is relayed",
			method:     http.MethodGet,
			target:     "http://wails.localhost/oauth/callback?code=abc&state=s",
			header:     map[string]string{"Sec-Fetch-Dest": "document"},
			wantReport: "http://wails.localhost/oauth/callback?code=abc&state=s",
			wantBody:   `EventsEmit(event, window.location.href)`,
		},
		{
			name:       "app page is reported and served",
			method:     http.MethodGet,
			target:     "http://wails.localhost/",
			header:     map[string]string{"Accept": "text/html,application/xhtml+xml"},
			wantReport: "http://wails.localhost/",
			wantBody:   "app",
		},
		{
			name:   "runtime scripts are not navigations",
			method: http.MethodGet,
			target: "http://wails.localhost/wails/runtime.js",
			header: map[string]string{"Accept": "text/html"},
		},
		{
			name:   "subresources are not navigations",
			method: http.MethodGet,
			target: "http://wails.localhost/index.html",
			header: map[string]string{"Sec-Fetch-Dest": "script"},
		},
		{
			name:   "posts are not navigations",
			method: http.MethodPost,
			target: "http://wails.localhost/oauth/callback",
			header: map[string]string{"Sec-Fetch-Dest": "document"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reported = nil
			req := httptest.NewRequest(tt.method, tt.target, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if tt.wantReport == "" {
				if len(reported) != 0 {
					t.Errorf("unexpected report %v", reported)
				}
			} else if len(reported) != 1 || reported[0] != tt.wantReport {
				t.Errorf("reported %v, want %q", reported, tt.wantReport)
			}
			if tt.wantBody != "" && !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Errorf("body %q does not contain %q", rr.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRelayPageEventName(t *testing.T) {
	var buf bytes.Buffer
	if err := relayPage.Execute(&buf, struct{ Event string }{NavigationEvent}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `var event = "navigation";`) {
		t.Errorf("event name not embedded as a string literal:\n%s", buf.String())
	}
}

func TestRequestURL_RelativeRequest(t *testing.T) {
	u, err := url.Parse("/oauth/callback?code=1")
	if err != nil {
		t.Fatal(err)
	}
	req := &http.Request{Method: http.MethodGet, Host: "wails.localhost", URL: u, Header: http.Header{}}
	if got := requestURL(req); got != "http://wails.localhost/oauth/callback?code=1" {
		t.Errorf("requestURL() = %q", got)
	}
}

func TestCallbackPath(t *testing.T) {
	if got := CallbackPath("http://wails.localhost/oauth/callback"); got != "/oauth/callback" {
		t.Errorf("CallbackPath() = %q", got)
	}
	if got := CallbackPath("://bad"); got != "" {
		t.Errorf("CallbackPath(bad) = %q", got)
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	l.Info("started")
	l.Warning("careful")
	l.Trace("detail")
	out := buf.String()
	for _, want := range []string{"msg=started", "level=WARN", "msg=detail", "component=wails"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestRedactQuery(t *testing.T) {
	got := redactQuery("http://wails.localhost/cb?code=secret#access_token=tok")
	if strings.Contains(got, "secret") || strings.Contains(got, "tok") {
		t.Errorf("redactQuery() leaked: %q", got)
	}
}

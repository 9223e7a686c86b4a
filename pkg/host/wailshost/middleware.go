package wailshost

import (
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
)

// NavigationEvent is the runtime event the relay page sends its full
// location on. The server never sees URL fragments, so implicit-flow tokens
// only arrive this way.
const NavigationEvent = "navigation"

var relayPage = template.Must(template.New("relay").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>Signing in…</title>
<script src="/wails/ipc.js"></script>
<script src="/wails/runtime.js"></script>
</head>
<body>
<p>Completing sign-in…</p>
<script>
(function () {
  var event = {{.Event}};
  function relay() {
    if (window.runtime && window.runtime.EventsEmit) {
      window.runtime.EventsEmit(event, window.location.href);
      window.location.replace("/");
      return;
    }
    setTimeout(relay, 50);
  }
  relay();
})();
</script>
</body>
</html>
`))

// NavigationMiddleware reports every page load on the app origin to report.
// A request for callbackPath is answered with the relay page instead of
// being passed on to the frontend assets.
func NavigationMiddleware(callbackPath string, report func(string)) assetserver.Middleware {
	callbackPath = strings.TrimSuffix(callbackPath, "/")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isPageLoad(r) {
				next.ServeHTTP(w, r)
				return
			}
			report(requestURL(r))

			if callbackPath != "" && strings.TrimSuffix(r.URL.Path, "/") == callbackPath {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.Header().Set("Cache-Control", "no-store")
				_ = relayPage.Execute(w, struct{ Event string }{NavigationEvent})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isPageLoad(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	if strings.HasPrefix(r.URL.Path, "/wails/") {
		return false
	}
	if dest := r.Header.Get("Sec-Fetch-Dest"); dest != "" {
		return dest == "document"
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// requestURL rebuilds the absolute URL the webview navigated to.
func requestURL(r *http.Request) string {
	if r.URL.IsAbs() {
		return r.URL.String()
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host
	if host == "" {
		host = "wails.localhost"
	}
	u := url.URL{Scheme: scheme, Host: host, Path: r.URL.Path, RawPath: r.URL.RawPath, RawQuery: r.URL.RawQuery}
	return u.String()
}

// CallbackPath returns the path component of a redirect URL.
func CallbackPath(redirectURL string) string {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return ""
	}
	return u.Path
}

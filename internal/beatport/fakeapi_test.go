package beatport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

const (
	testClientID     = "test-client-id"
	testUsername     = "dj"
	testPassword     = "secret"
	testAuthCode     = "auth-code-123"
	testAccessToken  = "fresh-access"
	testRefreshToken = "fresh-refresh"
	testSessionID    = "session-abc"
	testImageHost    = "https://geo-media.beatport.com"
)

// fakeAPI serves the subset of the Beatport v4 API used by the client,
// backed by the JSON files in testdata.
type fakeAPI struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	requests []string

	validTokens   map[string]bool
	loginBody     string
	authorizeBody string
	noLocation    bool
	noCode        bool
	dropToken     bool
	tokenStatus   int
	docsScripts   []string
	onSearch      func(url.Values)
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{
		t:           t,
		validTokens: map[string]bool{testAccessToken: true},
		docsScripts: []string{"/static/btprt/vendor.js", "/static/btprt/main.js"},
	}
	api.server = httptest.NewServer(http.HandlerFunc(api.handle))
	t.Cleanup(api.server.Close)
	return api
}

func (a *fakeAPI) baseURL() string {
	return a.server.URL + "/v4"
}

func (a *fakeAPI) options() Options {
	return Options{
		BaseURL:    a.baseURL(),
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
		Logger:     zap.NewNop(),
	}
}

// storedToken returns a non-expired token accepted by the account endpoint.
func (a *fakeAPI) storedToken() *Token {
	return &Token{
		AccessToken:  testAccessToken,
		ExpiresAt:    epochSeconds(time.Now().Add(time.Hour)),
		RefreshToken: testRefreshToken,
	}
}

// newClient returns a client authenticated with a stored token.
func (a *fakeAPI) newClient() *Client {
	a.t.Helper()
	opts := a.options()
	opts.Token = a.storedToken()
	client, err := NewClient(context.Background(), opts)
	if err != nil {
		a.t.Fatalf("NewClient() error = %v", err)
	}
	a.reset()
	return client
}

func (a *fakeAPI) reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = nil
}

func (a *fakeAPI) requested() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.requests...)
}

func (a *fakeAPI) count(path string) int {
	n := 0
	for _, p := range a.requested() {
		if p == path {
			n++
		}
	}
	return n
}

func (a *fakeAPI) handle(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.requests = append(a.requests, r.URL.Path)
	a.mu.Unlock()

	switch path := r.URL.Path; {
	case path == "/v4/docs/":
		var html strings.Builder
		html.WriteString("<html><head>\n")
		for _, src := range a.docsScripts {
			html.WriteString(`<script src="` + src + `"></script>` + "\n")
		}
		html.WriteString("</head></html>")
		_, _ = w.Write([]byte(html.String()))
	case path == "/static/btprt/vendor.js":
		_, _ = w.Write([]byte(`var vendor = true;`))
	case path == "/static/btprt/main.js":
		_, _ = w.Write([]byte("window.config = {\n  API_CLIENT_ID: '" + testClientID + "'\n};"))
	case path == "/v4/auth/login/":
		a.handleLogin(w, r)
	case path == "/v4/auth/o/authorize/":
		a.handleAuthorize(w, r)
	case path == "/v4/auth/o/token/":
		a.handleToken(w, r)
	case strings.HasPrefix(path, "/image_size/"):
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("image:" + strings.TrimPrefix(path, "/image_size/")))
	default:
		a.handleAPI(w, r)
	}
}

func (a *fakeAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.t.Errorf("login method = %s, want POST", r.Method)
	}
	if a.loginBody != "" {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(a.loginBody))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: testSessionID, Path: "/"})
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"username": "` + testUsername + `", "email": "dj@example.com"}`))
}

func (a *fakeAPI) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	if a.authorizeBody != "" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(a.authorizeBody))
		return
	}
	if cookie, err := r.Cookie("sessionid"); err != nil || cookie.Value != testSessionID {
		a.t.Errorf("authorize request without login session cookie")
	}
	query := r.URL.Query()
	if query.Get("response_type") != "code" || query.Get("client_id") != testClientID {
		a.t.Errorf("authorize query = %v", query)
	}
	if query.Get("redirect_uri") != a.baseURL()+"/auth/o/post-message/" {
		a.t.Errorf("authorize redirect_uri = %q", query.Get("redirect_uri"))
	}
	if a.noLocation {
		w.WriteHeader(http.StatusOK)
		return
	}
	if a.noCode {
		w.Header().Set("Location", "/v4/auth/o/post-message/?state=xyz")
	} else {
		w.Header().Set("Location", "/v4/auth/o/post-message/?code="+testAuthCode)
	}
	w.WriteHeader(http.StatusFound)
}

func (a *fakeAPI) handleToken(w http.ResponseWriter, r *http.Request) {
	if a.dropToken {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			a.t.Errorf("hijack token connection: %v", err)
			return
		}
		_ = conn.Close()
		return
	}
	if a.tokenStatus != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(a.tokenStatus)
		_, _ = w.Write([]byte(`{"error": "invalid_grant"}`))
		return
	}
	if err := r.ParseForm(); err != nil {
		a.t.Errorf("token request form: %v", err)
	}
	if r.Form.Get("code") != testAuthCode ||
		r.Form.Get("grant_type") != "authorization_code" ||
		r.Form.Get("client_id") != testClientID ||
		r.Form.Get("redirect_uri") != a.baseURL()+"/auth/o/post-message/" {
		a.t.Errorf("token request form = %v", r.Form)
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"access_token": "` + testAccessToken + `", "expires_in": 36000, ` +
		`"token_type": "Bearer", "scope": "app:locker user:dj", "refresh_token": "` + testRefreshToken + `"}`))
}

func (a *fakeAPI) handleAPI(w http.ResponseWriter, r *http.Request) {
	if got := r.Header.Get("User-Agent"); got != UserAgent {
		a.t.Errorf("User-Agent = %q, want %q", got, UserAgent)
	}
	bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !a.validTokens[bearer] {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail": "Invalid token."}`))
		return
	}

	fixtures := map[string]string{
		"/v4/my/account":                  "account.json",
		"/v4/catalog/releases/4001/":        "release_4001.json",
		"/v4/catalog/releases/4001/tracks/": "release_4001_tracks.json",
		"/v4/catalog/tracks/5001/":          "track_5001.json",
		"/v4/catalog/tracks/5002/":          "track_5002.json",
	}

	path := r.URL.Path
	if path == "/v4/catalog/search" {
		if a.onSearch != nil {
			a.onSearch(r.URL.Query())
		}
		fixtures[path] = "search_" + r.URL.Query().Get("type") + ".json"
	}
	if path == "/v4/catalog/tracks/5999/" {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>maintenance</html>"))
		return
	}

	name, ok := fixtures[path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	a.serveFixture(w, name)
}

func (a *fakeAPI) serveFixture(w http.ResponseWriter, name string) {
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		a.t.Errorf("read fixture %s: %v", name, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	body := strings.ReplaceAll(string(data), testImageHost, a.server.URL)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

package beatport

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestNewSessionWithStoredToken(t *testing.T) {
	api := newFakeAPI(t)
	opts := api.options()
	opts.Token = api.storedToken()

	session, err := NewSession(context.Background(), opts)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	if session.Token().AccessToken != testAccessToken {
		t.Errorf("Token().AccessToken = %q", session.Token().AccessToken)
	}
	if got := api.requested(); len(got) != 1 || got[0] != "/v4/my/account" {
		t.Errorf("expected only the account check, got %v", got)
	}
}

func TestNewSessionAuthorizationFlow(t *testing.T) {
	api := newFakeAPI(t)
	opts := api.options()
	opts.Username = testUsername
	opts.Password = testPassword

	before := time.Now()
	session, err := NewSession(context.Background(), opts)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	token := session.Token()
	if token.AccessToken != testAccessToken || token.RefreshToken != testRefreshToken {
		t.Errorf("Token() = %+v", token)
	}
	if lowest := epochSeconds(before) + 36000 - 5; token.ExpiresAt < lowest {
		t.Errorf("ExpiresAt = %v, want about now + 36000s", token.ExpiresAt)
	}

	want := []string{
		"/v4/docs/",
		"/static/btprt/vendor.js",
		"/static/btprt/main.js",
		"/v4/auth/login/",
		"/v4/auth/o/authorize/",
		"/v4/auth/o/token/",
	}
	if got := api.requested(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("requests = %v, want %v", got, want)
	}
}

func TestNewSessionConfiguredClientIDSkipsDocs(t *testing.T) {
	api := newFakeAPI(t)
	opts := api.options()
	opts.Username = testUsername
	opts.Password = testPassword
	opts.ClientID = testClientID

	if _, err := NewSession(context.Background(), opts); err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	if n := api.count("/v4/docs/"); n != 0 {
		t.Errorf("docs page fetched %d times with a configured client id", n)
	}
}

func TestNewSessionRejectedTokenFallsBackToCredentials(t *testing.T) {
	api := newFakeAPI(t)
	opts := api.options()
	opts.Token = &Token{AccessToken: "revoked", ExpiresAt: epochSeconds(time.Now().Add(time.Hour)), RefreshToken: "r"}
	opts.Username = testUsername
	opts.Password = testPassword
	opts.ClientID = testClientID

	session, err := NewSession(context.Background(), opts)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	if session.Token().AccessToken != testAccessToken {
		t.Errorf("expected a freshly issued token, got %q", session.Token().AccessToken)
	}
	if api.count("/v4/auth/o/token/") != 1 {
		t.Errorf("expected one code exchange, requests = %v", api.requested())
	}
}

func TestNewSessionExpiredTokenSkipsVerification(t *testing.T) {
	api := newFakeAPI(t)
	opts := api.options()
	opts.Token = &Token{AccessToken: testAccessToken, ExpiresAt: epochSeconds(time.Now().Add(10 * time.Second)), RefreshToken: "r"}
	opts.Username = testUsername
	opts.Password = testPassword
	opts.ClientID = testClientID

	if _, err := NewSession(context.Background(), opts); err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	if n := api.count("/v4/my/account"); n != 0 {
		t.Errorf("account endpoint called %d times for a token inside the expiry buffer", n)
	}
}

func TestNewSessionFailures(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(api *fakeAPI, opts *Options)
		wantMessage string
		wantStatus  int
	}{
		{
			name:        "nothing given",
			setup:       func(_ *fakeAPI, _ *Options) {},
			wantMessage: "Neither Beatport username/password, nor access token is given",
		},
		{
			name: "rejected token without credentials",
			setup: func(_ *fakeAPI, opts *Options) {
				opts.Token = &Token{AccessToken: "revoked", ExpiresAt: epochSeconds(time.Now().Add(time.Hour)), RefreshToken: "r"}
			},
			wantMessage: "stored Beatport token rejected",
		},
		{
			name: "client id not found",
			setup: func(api *fakeAPI, opts *Options) {
				api.docsScripts = []string{"/static/btprt/vendor.js"}
				opts.Username, opts.Password = testUsername, testPassword
			},
			wantMessage: "could not fetch API_CLIENT_ID",
		},
		{
			name: "login error payload",
			setup: func(api *fakeAPI, opts *Options) {
				api.loginBody = `{"detail": "Invalid credentials"}`
				opts.Username, opts.Password, opts.ClientID = testUsername, "wrong", testClientID
			},
			wantMessage: `{"detail": "Invalid credentials"}`,
		},
		{
			name: "invalid request on authorize",
			setup: func(api *fakeAPI, opts *Options) {
				api.authorizeBody = "<html><h1>Error</h1>\n<p>Invalid client_id parameter value.</p>\n<p>invalid_request</p></html>"
				opts.Username, opts.Password, opts.ClientID = testUsername, testPassword, "bogus"
			},
			wantMessage: "Beatport OAuth error: Invalid client_id parameter value.",
		},
		{
			name: "missing location",
			setup: func(api *fakeAPI, opts *Options) {
				api.noLocation = true
				opts.Username, opts.Password, opts.ClientID = testUsername, testPassword, testClientID
			},
			wantMessage: "missing Location header; status=200",
		},
		{
			name: "redirect without code",
			setup: func(api *fakeAPI, opts *Options) {
				api.noCode = true
				opts.Username, opts.Password, opts.ClientID = testUsername, testPassword, testClientID
			},
			wantMessage: "No authorization code in Beatport redirect: /v4/auth/o/post-message/?state=xyz",
		},
		{
			name: "unreachable API",
			setup: func(_ *fakeAPI, opts *Options) {
				opts.BaseURL = "http://127.0.0.1:1/v4"
				opts.Username, opts.Password, opts.ClientID = testUsername, testPassword, testClientID
			},
			wantMessage: "error connecting to Beatport during authorization",
		},
		{
			name: "token connection dropped",
			setup: func(api *fakeAPI, opts *Options) {
				api.dropToken = true
				opts.Username, opts.Password, opts.ClientID = testUsername, testPassword, testClientID
			},
			wantMessage: "error connecting to Beatport during authorization",
		},
		{
			name: "token endpoint rejects code",
			setup: func(api *fakeAPI, opts *Options) {
				api.tokenStatus = http.StatusBadRequest
				opts.Username, opts.Password, opts.ClientID = testUsername, testPassword, testClientID
			},
			wantMessage: "Beatport authorization failed with HTTP 400",
			wantStatus:  http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(t)
			opts := api.options()
			tt.setup(api, &opts)

			_, err := NewSession(context.Background(), opts)
			var authErr *AuthError
			if !errors.As(err, &authErr) {
				t.Fatalf("NewSession() error = %v, want AuthError", err)
			}
			if !strings.Contains(authErr.Error(), tt.wantMessage) {
				t.Errorf("AuthError = %q, want it to contain %q", authErr.Error(), tt.wantMessage)
			}
			if authErr.StatusCode != tt.wantStatus {
				t.Errorf("AuthError.StatusCode = %d, want %d", authErr.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestDocsScraperResolvesRelativeScripts(t *testing.T) {
	api := newFakeAPI(t)
	scraper := &DocsScraper{BaseURL: api.baseURL(), HTTPClient: http.DefaultClient, Logger: api.options().Logger}

	clientID, err := scraper.ResolveClientID(context.Background())
	if err != nil {
		t.Fatalf("ResolveClientID() error = %v", err)
	}
	if clientID != testClientID {
		t.Errorf("ResolveClientID() = %q, want %q", clientID, testClientID)
	}
}

func TestDocsScraperCarriesLastTransportError(t *testing.T) {
	api := newFakeAPI(t)
	api.docsScripts = []string{"http://127.0.0.1:1/static/unreachable.js"}
	scraper := &DocsScraper{
		BaseURL:    api.baseURL(),
		HTTPClient: &http.Client{Timeout: 2 * time.Second},
		Logger:     api.options().Logger,
	}

	_, err := scraper.ResolveClientID(context.Background())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("ResolveClientID() error = %v, want AuthError", err)
	}
	if authErr.Err == nil {
		t.Error("expected the last transport error to be carried")
	}
}

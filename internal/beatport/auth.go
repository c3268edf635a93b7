package beatport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"beatmeta/internal/core"
)

var htmlParagraphRegex = regexp.MustCompile(`<p>(.*)</p>`)

// Options configures a Session and the Client built on it.
type Options struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL    string
	HTTPClient *http.Client
	// Token is a previously stored token; it is verified before use.
	Token    *Token
	Username string
	Password string
	// ClientID skips scraping the docs page when set.
	ClientID string
	// ClientIDResolver overrides both ClientID and the docs scraper.
	ClientIDResolver ClientIDResolver
	Redactor         core.Redactor
	Observer         RequestObserver
	Logger           *zap.Logger
}

// Session holds exactly one verified or freshly issued token.
type Session struct {
	transport *transport
	token     *Token
	username  string
	password  string
	clientIDs ClientIDResolver
	redactor  core.Redactor
	logger    *zap.Logger
}

// NewSession establishes a session. A stored, unexpired token is verified
// against the account endpoint; otherwise, or when verification fails, the
// credentials are exchanged for a new token.
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	s := newSession(opts)

	if s.token != nil && !s.token.IsExpired() {
		s.logger.Debug("Trying stored Beatport token")
		account, err := s.Account(ctx)
		if err == nil {
			s.logger.Debug("Authorized with stored token",
				zap.String("username", s.redactor.Redact(account.Username)),
				zap.String("email", s.redactor.Redact(account.Email)))
			return s, nil
		}
		s.logger.Debug("Stored Beatport token invalid", zap.Error(err))
		if !s.hasCredentials() {
			return nil, &AuthError{Message: "stored Beatport token rejected and no username/password given", Err: err}
		}
		return s.authorizeInto(ctx)
	}

	if s.hasCredentials() {
		return s.authorizeInto(ctx)
	}

	return nil, &AuthError{Message: "Neither Beatport username/password, nor access token is given"}
}

func newSession(opts Options) *Session {
	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: core.DefaultHTTPTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	clientIDs := opts.ClientIDResolver
	switch {
	case clientIDs != nil:
	case opts.ClientID != "":
		clientIDs = StaticClientID(opts.ClientID)
	default:
		clientIDs = &DocsScraper{BaseURL: baseURL, HTTPClient: httpClient, Logger: logger}
	}

	return &Session{
		transport: &transport{baseURL: baseURL, httpClient: httpClient, observer: opts.Observer},
		token:     opts.Token,
		username:  opts.Username,
		password:  opts.Password,
		clientIDs: clientIDs,
		redactor:  opts.Redactor,
		logger:    logger,
	}
}

// Token returns the session token for persistence.
func (s *Session) Token() *Token {
	return s.token
}

// Account fetches the account owning the session token.
func (s *Session) Account(ctx context.Context) (*Account, error) {
	data, err := s.transport.getJSON(ctx, s.token, "account", "/my/account", nil)
	if err != nil {
		return nil, err
	}
	return DecodeAccount(data)
}

func (s *Session) hasCredentials() bool {
	return s.username != "" && s.password != ""
}

func (s *Session) authorizeInto(ctx context.Context) (*Session, error) {
	token, err := s.authorize(ctx)
	if err != nil {
		return nil, err
	}
	s.token = token
	return s, nil
}

// authorize runs login, authorize and code exchange in a cookie session.
func (s *Session) authorize(ctx context.Context) (*Token, error) {
	s.logger.Debug("Authorizing to the Beatport API with username and password")

	clientID, err := s.clientIDs.ResolveClientID(ctx)
	if err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, &AuthError{Message: "failed to create cookie jar", Err: err}
	}
	base := s.transport.httpClient
	session := &http.Client{Transport: base.Transport, Jar: jar, Timeout: base.Timeout}

	oauthConfig := &oauth2.Config{
		ClientID:    clientID,
		RedirectURL: s.transport.baseURL + "/auth/o/post-message/",
		Endpoint: oauth2.Endpoint{
			AuthURL:   s.transport.makeURL("/auth/o/authorize/", nil),
			TokenURL:  s.transport.makeURL("/auth/o/token/", nil),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	if err := s.login(ctx, session); err != nil {
		return nil, err
	}

	code, err := s.authorizationCode(ctx, session, oauthConfig)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Received authorization code", zap.String("code", s.redactor.Redact(code)))

	exchangeCtx := context.WithValue(ctx, oauth2.HTTPClient, session)
	oauthToken, err := oauthConfig.Exchange(exchangeCtx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return nil, &AuthError{
				Message: fmt.Sprintf("Beatport authorization failed with HTTP %d",
					retrieveErr.Response.StatusCode),
				StatusCode: retrieveErr.Response.StatusCode,
				Err:        err,
			}
		}
		return nil, &AuthError{Message: "error connecting to Beatport during authorization", Err: err}
	}

	token, err := tokenFromOAuth2(oauthToken)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Exchanged authorization code for an access token",
		zap.String("access_token", s.redactor.Redact(token.AccessToken)))
	return token, nil
}

// login opens the cookie session. A response without username and email is
// the provider's error payload.
func (s *Session) login(ctx context.Context, session *http.Client) error {
	payload, err := json.Marshal(map[string]string{
		"username": s.username,
		"password": s.password,
	})
	if err != nil {
		return &AuthError{Message: "failed to encode login request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.transport.makeURL("/auth/login/", nil), bytes.NewReader(payload))
	if err != nil {
		return &AuthError{Message: "failed to build login request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	body, status, err := doAuthRequest(session, req)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return &AuthError{
			Message:    fmt.Sprintf("Beatport authorization failed with HTTP %d", status),
			StatusCode: status,
		}
	}

	data := gjson.ParseBytes(body)
	if !gjson.ValidBytes(body) || !data.Get("username").Exists() || !data.Get("email").Exists() {
		s.logger.Debug("Beatport login error", zap.ByteString("body", body))
		return &AuthError{Message: string(body)}
	}

	s.logger.Debug("Logged in with username and password",
		zap.String("username", s.redactor.Redact(data.Get("username").String())),
		zap.String("email", s.redactor.Redact(data.Get("email").String())))
	return nil
}

// authorizationCode requests the authorize endpoint without following the
// redirect and takes the code from its Location header.
func (s *Session) authorizationCode(ctx context.Context, session *http.Client, cfg *oauth2.Config) (string, error) {
	noRedirect := *session
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.AuthCodeURL(""), http.NoBody)
	if err != nil {
		return "", &AuthError{Message: "failed to build authorize request", Err: err}
	}
	req.Header.Set("User-Agent", UserAgent)

	body, status, location, err := doAuthRequestWithLocation(&noRedirect, req)
	if err != nil {
		return "", err
	}

	if text := string(body); strings.Contains(text, "invalid_request") {
		message := text
		if match := htmlParagraphRegex.FindStringSubmatch(text); len(match) > 1 {
			message = match[1]
		}
		return "", &AuthError{Message: "Beatport OAuth error: " + message}
	}

	if location == "" {
		return "", &AuthError{
			Message: fmt.Sprintf("Beatport OAuth redirect missing Location header; status=%d", status),
		}
	}

	next, err := url.Parse(location)
	if err != nil {
		return "", &AuthError{Message: "invalid Beatport OAuth redirect", Err: err}
	}
	code := next.Query().Get("code")
	if code == "" {
		return "", &AuthError{Message: "No authorization code in Beatport redirect: " + location}
	}
	return code, nil
}

func doAuthRequest(client *http.Client, req *http.Request) ([]byte, int, error) {
	body, status, _, err := doAuthRequestWithLocation(client, req)
	return body, status, err
}

func doAuthRequestWithLocation(client *http.Client, req *http.Request) ([]byte, int, string, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, "", &AuthError{Message: "error connecting to Beatport during authorization", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, "", &AuthError{Message: "error reading Beatport authorization response", Err: err}
	}
	return body, resp.StatusCode, resp.Header.Get("Location"), nil
}

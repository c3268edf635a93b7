package beatport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var (
	scriptSrcRegex = regexp.MustCompile(`src=.(.*js)`)
	clientIDRegex  = regexp.MustCompile(`API_CLIENT_ID: '(.*)'`)
)

// ClientIDResolver provides the OAuth client id used by the authorization flow.
type ClientIDResolver interface {
	ResolveClientID(ctx context.Context) (string, error)
}

// StaticClientID is a configured client id.
type StaticClientID string

func (s StaticClientID) ResolveClientID(context.Context) (string, error) {
	return string(s), nil
}

// DocsScraper finds the client id embedded in the scripts of the public API docs page.
type DocsScraper struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func (d *DocsScraper) ResolveClientID(ctx context.Context) (string, error) {
	html, err := d.fetchText(ctx, strings.TrimSuffix(d.BaseURL, "/")+"/docs/")
	if err != nil {
		return "", &AuthError{Message: "error fetching Beatport docs page", Err: err}
	}

	origin, err := originOf(d.BaseURL)
	if err != nil {
		return "", &AuthError{Message: "invalid Beatport API base URL", Err: err}
	}

	var lastErr error
	for _, match := range scriptSrcRegex.FindAllStringSubmatch(html, -1) {
		scriptURL := match[1]
		if !strings.HasPrefix(scriptURL, "http") {
			scriptURL = origin + scriptURL
		}

		js, err := d.fetchText(ctx, scriptURL)
		if err != nil {
			d.Logger.Debug("Failed to fetch docs script",
				zap.String("url", scriptURL),
				zap.Error(err))
			lastErr = err
			continue
		}

		if ids := clientIDRegex.FindStringSubmatch(js); len(ids) > 1 {
			return ids[1], nil
		}
	}

	if lastErr != nil {
		return "", &AuthError{Message: "could not fetch API_CLIENT_ID", Err: lastErr}
	}
	return "", &AuthError{Message: "could not fetch API_CLIENT_ID"}
}

func (d *DocsScraper) fetchText(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func originOf(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("missing scheme or host in %q", baseURL)
	}
	return u.Scheme + "://" + u.Host, nil
}

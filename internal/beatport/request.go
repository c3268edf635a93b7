package beatport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	// DefaultBaseURL is the versioned API root.
	DefaultBaseURL = "https://api.beatport.com/v4"
	// UserAgent is sent with every request.
	UserAgent = "beatmeta/1.0"
)

// RequestObserver receives one call per catalog request.
// Status is "ok", the HTTP status code, or "error" for transport and body failures.
type RequestObserver interface {
	ObserveRequest(operation, status string, duration time.Duration)
}

// transport is the single authenticated GET primitive shared by the session
// and the catalog client.
type transport struct {
	baseURL    string
	httpClient *http.Client
	observer   RequestObserver
}

// makeURL joins the endpoint to the base URL with exactly one slash between them.
func (t *transport) makeURL(endpoint string, query url.Values) string {
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	if len(query) > 0 {
		return t.baseURL + endpoint + "?" + query.Encode()
	}
	return t.baseURL + endpoint
}

// getJSON fetches an API endpoint and unwraps a top-level "results" envelope.
func (t *transport) getJSON(
	ctx context.Context, token *Token, operation, endpoint string, query url.Values,
) (gjson.Result, error) {
	body, path, err := t.fetch(ctx, token, operation, t.makeURL(endpoint, query))
	if err != nil {
		return gjson.Result{}, err
	}

	if !gjson.ValidBytes(body) {
		return gjson.Result{}, &APIError{Message: fmt.Sprintf("invalid JSON in Beatport API response for '%s'", path)}
	}

	parsed := gjson.ParseBytes(body)
	if results := parsed.Get("results"); parsed.IsObject() && results.Exists() {
		return results, nil
	}
	return parsed, nil
}

// fetch performs an authenticated GET and returns the raw body and request path.
func (t *transport) fetch(ctx context.Context, token *Token, operation, rawURL string) ([]byte, string, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		apiErr := &APIError{Message: "error building Beatport API request", Err: err}
		t.observe(operation, apiErr, time.Since(start))
		return nil, "", apiErr
	}
	if token != nil {
		token.OAuth2().SetAuthHeader(req)
	}
	req.Header.Set("User-Agent", UserAgent)
	path := req.URL.RequestURI()

	resp, err := t.httpClient.Do(req)
	if err != nil {
		apiErr := &APIError{Message: "error connecting to Beatport API", Err: err}
		t.observe(operation, apiErr, time.Since(start))
		return nil, path, apiErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		apiErr := &APIError{Message: "error reading Beatport API response", Err: err}
		t.observe(operation, apiErr, time.Since(start))
		return nil, path, apiErr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			Message:    fmt.Sprintf("error %d for '%s'", resp.StatusCode, path),
			StatusCode: resp.StatusCode,
		}
		t.observe(operation, apiErr, time.Since(start))
		return nil, path, apiErr
	}

	t.observe(operation, nil, time.Since(start))
	return body, path, nil
}

func (t *transport) observe(operation string, err error, duration time.Duration) {
	if t.observer == nil {
		return
	}
	t.observer.ObserveRequest(operation, requestStatus(err), duration)
}

func requestStatus(err error) string {
	if err == nil {
		return "ok"
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode != 0 {
		return strconv.Itoa(apiErr.StatusCode)
	}
	return "error"
}

// Package platform implements the per-platform adapters for resolving and
// searching tracks on Spotify, Deezer and YouTube Music.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tunebridge/internal/core"
)

const (
	// commonUserAgent is the user agent string used for all HTTP requests.
	commonUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	// defaultHTTPTimeout is the default timeout for platform API requests.
	defaultHTTPTimeout = 10 * time.Second
	// defaultMaxRedirects bounds short-link redirect following.
	defaultMaxRedirects = 5
)

// newHTTPClient creates an HTTP client for API calls. Redirects are not
// followed automatically; short links go through resolveRedirects instead.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: defaultHTTPTimeout,
		CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// resolveRedirects follows a short-link redirect chain hop by hop and
// returns the final URL. It gives up with ErrTooManyRedirects after
// maxHops hops, and stops cleanly on the first non-redirect
// response, missing Location header or revisited URL.
func resolveRedirects(ctx context.Context, client *http.Client, rawURL string, maxHops int) (string, error) {
	current := rawURL
	seen := map[string]bool{current: true}

	for hop := 0; hop < maxHops; hop++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, current, http.NoBody)
		if err != nil {
			return "", err
		}
		req.Header.Set("User-Agent", commonUserAgent)

		resp, err := client.Do(req)
		if err != nil {
			return "", err
		}
		_ = resp.Body.Close()

		if resp.StatusCode < 300 || resp.StatusCode > 399 {
			return current, nil
		}

		location := resp.Header.Get("Location")
		if location == "" {
			return current, nil
		}

		next, err := resp.Request.URL.Parse(location)
		if err != nil {
			return "", err
		}

		current = next.String()
		if seen[current] {
			return "", fmt.Errorf("%w: redirect loop at %s", core.ErrTooManyRedirects, current)
		}
		seen[current] = true
	}

	return "", core.ErrTooManyRedirects
}

// getJSON performs a GET request and decodes the JSON body into dest.
// A 4xx response reports found=false without an error; 5xx responses,
// network failures and malformed bodies surface as *core.TransientError.
func getJSON(ctx context.Context, client *http.Client, reqURL string, platform core.Platform, dest any) (found bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return false, err
	}
	req.Header.Set("User-Agent", commonUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return false, &core.TransientError{Platform: platform, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 500:
		return false, &core.TransientError{
			Platform: platform,
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("server error"),
		}
	case resp.StatusCode >= 400:
		return false, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return false, &core.TransientError{
			Platform: platform,
			Err:      fmt.Errorf("failed to decode response: %w", err),
		}
	}

	return true, nil
}

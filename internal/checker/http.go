package checker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

var unhandledException = []byte("UnhandledException")

// Fetcher performs a single GET per URL and normalizes the outcome into a Result.
// It holds no per-request state; every call gets its own cookie jar.
type Fetcher struct {
	transport    http.RoundTripper
	timeout      time.Duration
	userAgent    string
	maxBodyBytes int64
}

// NewFetcher creates a Fetcher sending requests through transport.
// A nil transport uses http.DefaultTransport.
func NewFetcher(cfg Config, transport http.RoundTripper) *Fetcher {
	cfg = cfg.withDefaults()
	if transport == nil {
		transport = http.DefaultTransport
	}
	timeout := cfg.Timeout
	if timeout < 0 {
		timeout = 0
	}
	return &Fetcher{
		transport:    transport,
		timeout:      timeout,
		userAgent:    cfg.UserAgent,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
}

// Fetch checks rawURL. Transport failures are reported in Result.Error and
// never returned.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, cookies []*http.Cookie) Result {
	result := Result{URL: rawURL}

	target, err := url.Parse(rawURL)
	if err != nil {
		result.Error = fmt.Sprintf("parsing url: %v", errorMessage(err))
		return result
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		result.Error = fmt.Sprintf("creating cookie jar: %v", err)
		return result
	}
	if len(cookies) > 0 {
		jar.SetCookies(target, cookies)
	}

	client := &http.Client{
		Transport: f.transport,
		Jar:       jar,
		Timeout:   f.timeout,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		result.Error = fmt.Sprintf("creating request: %v", err)
		return result
	}
	// Accept-Encoding is left to the transport so gzip bodies are decoded
	// before the UnhandledException scan.
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := client.Do(req)
	if err != nil {
		result.Error = errorMessage(err)
		return result
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		result.Error = fmt.Sprintf("reading body: %v", errorMessage(err))
		return result
	}

	final := resp.Request.URL
	result.StatusCode = resp.StatusCode

	// Some ASP.NET servers answer 200 on their error page, or leak an
	// unhandled exception into an otherwise normal page.
	if strings.Contains(final.Path, "500.aspx") || bytes.Contains(body, unhandledException) {
		result.StatusCode = http.StatusInternalServerError
	}

	if final.String() != target.String() {
		result.RedirectURL = final.String()
	}

	return result
}

// errorMessage strips the "Get <url>:" prefix the client adds, since the URL
// is already part of the Result.
func errorMessage(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "unknown error"
}

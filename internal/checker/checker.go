// Package checker checks the HTTP status of batches of URLs with a bounded
// number of requests in flight, and compares result sets between runs.
package checker

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	// DefaultConcurrency caps simultaneous requests so target sites are not flooded.
	DefaultConcurrency = 5
	// DefaultTimeout bounds a single check, redirects and body read included.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxBodyBytes caps how much of a response body is scanned.
	DefaultMaxBodyBytes int64 = 10 << 20
	// DefaultUserAgent is a desktop Chrome UA; some sites block unknown agents.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_8_3) AppleWebKit/537.31 (KHTML, like Gecko) Chrome/26.0.1410.65 Safari/537.31"
)

var (
	// ErrNoURLs is returned when a Request carries no URL list at all.
	ErrNoURLs = errors.New("no url list given")
	// ErrInvalidCookie is returned when a cookie string cannot be parsed.
	ErrInvalidCookie = errors.New("invalid cookie")
)

// Config controls how URLs are checked. Zero values fall back to the defaults
// above, except Timeout: a negative Timeout disables the per-request limit.
type Config struct {
	Concurrency  int
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	// A negative Timeout stays negative so applying defaults twice keeps it
	// disabled.
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return c
}

// Request describes one batch of URLs to check.
type Request struct {
	// URLs are checked independently; duplicates are checked and reported
	// once per occurrence. A nil slice is rejected with ErrNoURLs.
	URLs []string
	// Cookies are raw "name=value" strings sent with every request, scoped
	// to each URL's host.
	Cookies []string
	// OnProgress, if set, is called once per URL as soon as its check
	// completes. Calls are serialized and follow completion order.
	OnProgress func(Result)
}

// ParseCookies parses raw "name=value" cookie strings.
func ParseCookies(raw []string) ([]*http.Cookie, error) {
	cookies := make([]*http.Cookie, 0, len(raw))
	for _, s := range raw {
		c, err := http.ParseSetCookie(s)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidCookie, s, err)
		}
		cookies = append(cookies, c)
	}
	return cookies, nil
}

func (r Request) validate() ([]*http.Cookie, error) {
	if r.URLs == nil {
		return nil, ErrNoURLs
	}
	return ParseCookies(r.Cookies)
}

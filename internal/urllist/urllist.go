// Package urllist reads newline-delimited URL lists with optional YAML front
// matter:
//
//	---
//	cookies:
//	  - Location=nz
//	---
//	https://example.com/
//	https://example.com/about/
//
// Lines that do not start with http:// or https:// are ignored.
package urllist

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var urlLine = regexp.MustCompile(`(?m)^https?://.*$`)

// List is a parsed URL list.
type List struct {
	URLs    []string
	Cookies []string
}

type frontMatter struct {
	Cookies []string `yaml:"cookies"`
}

// Parse reads a URL list from r. The returned URLs are never nil, so an input
// without any URL yields an empty list rather than a missing one.
func Parse(r io.Reader) (*List, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading url list: %w", err)
	}
	text := strings.TrimPrefix(string(data), "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var fm frontMatter
	body := text
	if attrs, rest, ok := splitFrontMatter(text); ok {
		if err := yaml.Unmarshal([]byte(attrs), &fm); err != nil {
			return nil, fmt.Errorf("parsing front matter: %w", err)
		}
		body = rest
	}

	urls := urlLine.FindAllString(body, -1)
	if urls == nil {
		urls = []string{}
	}
	return &List{URLs: urls, Cookies: fm.Cookies}, nil
}

// ReadFile parses the URL list stored at path.
func ReadFile(path string) (*List, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("file doesn't exist: %s", abs)
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("opening url list: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// splitFrontMatter separates a leading block fenced by "---" lines from the
// rest of text. The closing fence may also be "...".
func splitFrontMatter(text string) (attrs, body string, ok bool) {
	first, rest, found := strings.Cut(text, "\n")
	if !found || strings.TrimRight(first, " \t") != "---" {
		return "", text, false
	}

	var block []string
	for len(rest) > 0 {
		var line string
		line, rest, _ = strings.Cut(rest, "\n")
		switch strings.TrimRight(line, " \t") {
		case "---", "...":
			return strings.Join(block, "\n"), rest, true
		}
		block = append(block, line)
	}
	return "", text, false
}

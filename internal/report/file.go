// Package report reads and writes result files and renders check progress and
// status changes for terminals.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hazz-dev/urlmedic/internal/checker"
)

// WriteJSON writes v as indented JSON without HTML escaping, so URLs stay readable.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write json output: %w", err)
	}
	return nil
}

// WriteFile saves results to path in the format ReadFile loads.
func WriteFile(path string, results checker.Set) error {
	if results == nil {
		results = checker.Set{}
	}
	var buf bytes.Buffer
	if err := WriteJSON(&buf, results); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing results to %s: %w", path, err)
	}
	return nil
}

// ReadFile loads results previously saved with WriteFile.
func ReadFile(path string) (checker.Set, error) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("file doesn't exist: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading results: %w", err)
	}
	var results checker.Set
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("parsing results in %s: %w", path, err)
	}
	return results, nil
}

package report_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazz-dev/urlmedic/internal/checker"
	"github.com/hazz-dev/urlmedic/internal/report"
)

func TestWriteFile_ReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	results := checker.Set{
		{URL: "http://localhost/1/", StatusCode: 200},
		{URL: "http://localhost/2/", StatusCode: 200, RedirectURL: "http://localhost/3/?a=1&b=2"},
		{URL: "http://localhost/4/", Error: "connection refused"},
	}

	if err := report.WriteFile(path, results); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "\n  {\n    \"url\": \"http://localhost/1/\",\n    \"statusCode\": 200\n  },") {
		t.Errorf("expected two-space indented output, got:\n%s", raw)
	}
	if !strings.Contains(string(raw), "?a=1&b=2") {
		t.Errorf("expected URLs not to be HTML-escaped, got:\n%s", raw)
	}

	got, err := report.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got) != len(results) {
		t.Fatalf("expected %d results, got %d", len(results), len(got))
	}
	for i := range results {
		if got[i] != results[i] {
			t.Errorf("result %d: expected %+v, got %+v", i, results[i], got[i])
		}
	}
}

func TestWriteFile_EmptySetIsArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	if err := report.WriteFile(path, nil); err != nil {
		t.Fatal(err)
	}
	raw, _ := os.ReadFile(path)
	if string(raw) != "[]\n" {
		t.Errorf("expected '[]\\n', got %q", raw)
	}
}

func TestReadFile_Missing(t *testing.T) {
	_, err := report.ReadFile(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil || !strings.Contains(err.Error(), "file doesn't exist") {
		t.Errorf("expected missing file error, got %v", err)
	}
}

func TestReadFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte(`{"url": `), 0o644)
	if _, err := report.ReadFile(path); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestWriteJSON_CompareEntries(t *testing.T) {
	var buf bytes.Buffer
	err := report.WriteJSON(&buf, []checker.CompareEntry{{
		Previous: checker.Result{URL: "http://a/", StatusCode: 200},
		Current:  checker.Result{URL: "http://a/", Error: "timeout"},
	}})
	if err != nil {
		t.Fatal(err)
	}
	var raw []map[string]map[string]any
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if raw[0]["previous"]["statusCode"] != float64(200) {
		t.Errorf("unexpected previous: %v", raw[0]["previous"])
	}
	if raw[0]["current"]["error"] != "timeout" {
		t.Errorf("unexpected current: %v", raw[0]["current"])
	}
}

func TestPrinter_Progress(t *testing.T) {
	var buf bytes.Buffer
	p := report.NewPrinter(&buf, 2)
	p.Progress(checker.Result{URL: "http://localhost:15000/1/", StatusCode: 200})
	p.Progress(checker.Result{URL: "http://localhost:15000/2/", StatusCode: 200})

	want := "1/2  ✔  200  http://localhost:15000/1/\n" +
		"2/2  ✔  200  http://localhost:15000/2/\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestPrinter_ProgressIconsAndPadding(t *testing.T) {
	var buf bytes.Buffer
	p := report.NewPrinter(&buf, 10)
	p.Progress(checker.Result{URL: "http://a/", StatusCode: 400})
	p.Progress(checker.Result{URL: "http://b/", StatusCode: 500})
	p.Progress(checker.Result{URL: "http://c/", Error: "connection refused"})

	want := "01/10  ⚠  400  http://a/\n" +
		"02/10  ✖  500  http://b/\n" +
		"03/10  ✖  err  http://c/\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestPrinter_Changes(t *testing.T) {
	var buf bytes.Buffer
	p := report.NewPrinter(&buf, 1)
	p.Changes([]checker.CompareEntry{
		{
			Previous: checker.Result{URL: "http://localhost:15000/1/", StatusCode: 404},
			Current:  checker.Result{URL: "http://localhost:15000/1/", StatusCode: 200},
		},
		{
			Previous: checker.Result{URL: "http://localhost:15000/2/", StatusCode: 200},
			Current:  checker.Result{URL: "http://localhost:15000/2/", Error: "timeout"},
		},
	})

	want := "\nChanges\n\n" +
		"404 →  200  http://localhost:15000/1/\n" +
		"200 →  err  http://localhost:15000/2/\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestPrinter_NoChanges(t *testing.T) {
	var buf bytes.Buffer
	report.NewPrinter(&buf, 1).Changes(nil)
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

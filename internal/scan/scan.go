// Package scan extracts draft endpoints from backend source text.
//
// Scanning is lexical and best-effort: each line is matched against a small
// table of route-registration patterns. Paths assembled at runtime are
// missed, and strings that merely look like a registration are reported.
// Both are accepted limitations; callers enrich the drafts by hand.
package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Framework selects a pattern table.
type Framework string

const (
	// Express covers call-style registrations: app.get('/x'), r.GET("/x"),
	// router.route('/x').get(...).
	Express Framework = "express"
	// FastAPI covers decorator-style registrations: @app.get("/x").
	FastAPI Framework = "fastapi"
)

// ParseFramework maps a framework tag to its value.
func ParseFramework(tag string) (Framework, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "express", "expresslike":
		return Express, nil
	case "fastapi", "fastapilike":
		return FastAPI, nil
	}
	return "", fmt.Errorf("scan: unknown framework %q (allowed: express, fastapi)", tag)
}

// DetectFramework guesses the framework from a file name.
func DetectFramework(name string) (Framework, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".js", ".mjs", ".cjs", ".ts", ".mts", ".go":
		return Express, true
	case ".py":
		return FastAPI, true
	}
	return "", false
}

// Draft is a route found in source text, lacking any other metadata.
type Draft struct {
	Method string `json:"method" yaml:"method"`
	Path   string `json:"path" yaml:"path"`
	Line   int    `json:"line" yaml:"line"`
}

// Key identifies a draft by method and path.
func (d Draft) Key() string { return d.Method + " " + d.Path }

// Scan returns the drafts found in source in order of first appearance,
// without duplicates. An empty result means nothing was recognized.
func Scan(source string, fw Framework) []Draft {
	table := tables[fw]
	drafts := []Draft{}
	seen := map[string]struct{}{}
	strip := commentStripper(fw)

	for i, raw := range strings.Split(source, "\n") {
		line, ok := strip(raw)
		if !ok {
			continue
		}
		for _, p := range table {
			found := p.extract(line)
			if len(found) == 0 {
				continue
			}
			for _, d := range found {
				d.Line = i + 1
				if _, dup := seen[d.Key()]; dup {
					continue
				}
				seen[d.Key()] = struct{}{}
				drafts = append(drafts, d)
			}
			break
		}
	}
	return drafts
}

// ScanFile reads path and scans it. An empty fw selects the framework from
// the file extension.
func ScanFile(path string, fw Framework) ([]Draft, error) {
	if fw == "" {
		detected, ok := DetectFramework(path)
		if !ok {
			return nil, fmt.Errorf("scan: cannot infer framework for %s; pass one explicitly", path)
		}
		fw = detected
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scan: read %s: %w", path, err)
	}
	return Scan(string(data), fw), nil
}

// commentStripper returns a per-line filter that reports false for lines
// that are entirely comment. Express tracks /* */ blocks across lines.
func commentStripper(fw Framework) func(string) (string, bool) {
	if fw == FastAPI {
		return func(line string) (string, bool) {
			t := strings.TrimSpace(line)
			return t, t != "" && !strings.HasPrefix(t, "#")
		}
	}
	inBlock := false
	return func(line string) (string, bool) {
		t := strings.TrimSpace(line)
		if inBlock {
			end := strings.Index(t, "*/")
			if end < 0 {
				return "", false
			}
			inBlock = false
			t = strings.TrimSpace(t[end+2:])
		}
		if strings.HasPrefix(t, "/*") {
			end := strings.Index(t[2:], "*/")
			if end < 0 {
				inBlock = true
				return "", false
			}
			t = strings.TrimSpace(t[2+end+2:])
		}
		if t == "" || strings.HasPrefix(t, "//") || strings.HasPrefix(t, "*") {
			return "", false
		}
		return t, true
	}
}

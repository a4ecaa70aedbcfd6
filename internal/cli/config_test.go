package cli

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func captureInferConfig(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	var captured *Config
	inferRunner = func(cmd *cobra.Command, cfg *Config, path string) error {
		captured = cfg
		return nil
	}
	t.Cleanup(func() { inferRunner = runInfer })

	root.SetArgs(args)
	err := root.Execute()
	return captured, err
}

func TestConfigFromFlags(t *testing.T) {
	captured, err := captureInferConfig(t,
		"--verbose",
		"--format", "JSON",
		"infer",
		"--required", "all",
		"--detect-formats",
		"sample.json",
	)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if captured == nil {
		t.Fatalf("expected config to be captured")
	}
	if captured.Format != "json" {
		t.Errorf("format mismatch: got %q", captured.Format)
	}
	if captured.Required != "all" {
		t.Errorf("required mismatch: got %q", captured.Required)
	}
	if !captured.DetectFormats {
		t.Errorf("expected detect-formats true")
	}
	if !captured.Verbose {
		t.Errorf("expected verbose true")
	}
}

func TestConfigDefaults(t *testing.T) {
	captured, err := captureInferConfig(t, "infer", "sample.json")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if captured.Format != "yaml" || captured.Required != "non-null" || captured.DetectFormats || captured.Verbose {
		t.Fatalf("unexpected defaults: %+v", captured)
	}
}

func TestConfigPrecedence(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := strings.TrimSpace(`format: json
framework: fastapi
required: none
detect-formats: "yes"
out: from-config.yaml
verbose: true
`) + "\n"
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	captured, err := captureInferConfig(t,
		"--config", configPath,
		"infer",
		"--required", "all",
		"--verbose=false",
		"sample.json",
	)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if captured.ConfigPath != configPath {
		t.Errorf("config path: got %q", captured.ConfigPath)
	}
	if captured.Format != "json" {
		t.Errorf("format: want json got %q", captured.Format)
	}
	if captured.Framework != "fastapi" {
		t.Errorf("framework: want fastapi got %q", captured.Framework)
	}
	if captured.Required != "all" {
		t.Errorf("required: flag should win, got %q", captured.Required)
	}
	if !captured.DetectFormats {
		t.Errorf("detect formats: want true from config")
	}
	if captured.Out != "from-config.yaml" {
		t.Errorf("out: want from-config.yaml got %q", captured.Out)
	}
	if captured.Verbose {
		t.Errorf("verbose: flag should win")
	}
}

func TestConfigUnknownField(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("lang: go\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := captureInferConfig(t, "--config", configPath, "infer", "sample.json")
	if err == nil {
		t.Fatalf("expected error for unknown config field")
	}
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), `unknown field "lang"`) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	cases := map[string][]string{
		"format":   {"--format", "xml", "infer", "sample.json"},
		"required": {"infer", "--required", "most", "sample.json"},
	}
	for name, args := range cases {
		_, err := captureInferConfig(t, args...)
		if !errors.Is(err, ErrUsage) {
			t.Fatalf("%s: expected usage error, got %v", name, err)
		}
	}
}

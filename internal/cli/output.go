package cli

import (
	"fmt"
	"io"
	"log/slog"

	gojson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/oasbuilder/internal/session"
)

// newLogger writes text logs to w, at debug level when verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newSession(w io.Writer, cfg *Config) *session.Session {
	return session.New(
		session.WithLogger(newLogger(w, cfg.Verbose)),
		session.WithInferOptions(cfg.inferOptions()...),
	)
}

// writeValue prints v in the configured format.
func writeValue(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		data, err := gojson.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		return enc.Close()
	}
}

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/oasbuilder/internal/infer"
	"github.com/mark3labs/oasbuilder/internal/scan"
)

// Config captures the options shared by the commands after merging
// defaults, config file values, and CLI overrides.
type Config struct {
	ConfigPath    string
	Format        string
	Framework     string
	Required      string
	DetectFormats bool
	Out           string
	Verbose       bool
}

func defaultConfig() Config {
	return Config{Format: "yaml", Required: string(infer.RequiredNonNull)}
}

func resolveConfig(cmd *cobra.Command) (*Config, error) {
	cfg := defaultConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyFlagOverrides copies the flags the user set. Commands only define the
// flags they use, so absent flags are skipped.
func applyFlagOverrides(flags *pflag.FlagSet, cfg *Config) error {
	strs := map[string]*string{
		"format":    &cfg.Format,
		"framework": &cfg.Framework,
		"required":  &cfg.Required,
		"out":       &cfg.Out,
	}
	for name, dst := range strs {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			continue
		}
		value, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = strings.TrimSpace(value)
	}

	bools := map[string]*bool{
		"detect-formats": &cfg.DetectFormats,
		"verbose":        &cfg.Verbose,
	}
	for name, dst := range bools {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			continue
		}
		value, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = value
	}
	return nil
}

func (c *Config) normalize() {
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	if c.Format == "yml" {
		c.Format = "yaml"
	}
	c.Framework = strings.TrimSpace(c.Framework)
	c.Required = strings.ToLower(strings.TrimSpace(c.Required))
	c.Out = strings.TrimSpace(c.Out)
}

func (c *Config) validate() error {
	switch c.Format {
	case "", "yaml", "json":
		if c.Format == "" {
			c.Format = "yaml"
		}
	default:
		return newUsageError(fmt.Sprintf("unsupported --format %q (allowed: json, yaml)", c.Format))
	}
	if c.Framework != "" {
		if _, err := scan.ParseFramework(c.Framework); err != nil {
			return newUsageError(err.Error())
		}
	}
	if _, ok := infer.ParseRequiredPolicy(c.Required); !ok {
		return newUsageError(fmt.Sprintf("unsupported --required %q (allowed: non-null, all, none)", c.Required))
	}
	return nil
}

// inferOptions turns the inference settings into infer options.
func (c *Config) inferOptions() []infer.Option {
	policy, _ := infer.ParseRequiredPolicy(c.Required)
	return []infer.Option{infer.WithRequiredPolicy(policy), infer.WithFormatDetection(c.DetectFormats)}
}

func applyConfigFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	for key, value := range raw {
		var err error
		switch normalizeKey(key) {
		case "format":
			cfg.Format, err = valueAsString(value)
		case "framework":
			cfg.Framework, err = valueAsString(value)
		case "required":
			cfg.Required, err = valueAsString(value)
		case "detectformats":
			cfg.DetectFormats, err = valueAsBool(value)
		case "out":
			cfg.Out, err = valueAsString(value)
		case "verbose":
			cfg.Verbose, err = valueAsBool(value)
		default:
			return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
		}
		if err != nil {
			return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
		}
	}

	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n", "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

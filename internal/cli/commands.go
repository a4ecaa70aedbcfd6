package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/oasbuilder/internal/schema"
	"github.com/mark3labs/oasbuilder/internal/scan"
	"github.com/mark3labs/oasbuilder/internal/session"
	"github.com/mark3labs/oasbuilder/internal/value"
)

var (
	scanRunner    = runScan
	inferRunner   = runInfer
	convertRunner = runConvert
)

// schemaTarget is the --schema FILE | --document DOC --ref NAME pair shared by
// validate and example.
type schemaTarget struct {
	SchemaFile string
	Document   string
	Ref        string
}

func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().String("schema", "", "Schema file (YAML or JSON)")
	cmd.Flags().String("document", "", "OpenAPI document (path or URL) holding the schema")
	cmd.Flags().String("ref", "", "Schema name in --document")
}

func readTarget(cmd *cobra.Command) (schemaTarget, error) {
	var t schemaTarget
	var err error
	if t.SchemaFile, err = cmd.Flags().GetString("schema"); err != nil {
		return t, err
	}
	if t.Document, err = cmd.Flags().GetString("document"); err != nil {
		return t, err
	}
	if t.Ref, err = cmd.Flags().GetString("ref"); err != nil {
		return t, err
	}
	switch {
	case t.SchemaFile != "" && (t.Document != "" || t.Ref != ""):
		return t, newUsageError(cmd.Name() + ": pass either --schema or --document with --ref")
	case t.SchemaFile == "" && (t.Document == "" || t.Ref == ""):
		return t, newUsageError(cmd.Name() + ": --schema or --document with --ref is required")
	}
	return t, nil
}

// prepare loads the target into s and returns the inline schema, if any.
func (t schemaTarget) prepare(cmd *cobra.Command, s *session.Session) (*schema.Schema, error) {
	if t.Document != "" {
		if _, err := s.Execute(cmd.Context(), session.ImportDocument{Input: t.Document}); err != nil {
			return nil, explain(err)
		}
		return nil, nil
	}
	data, err := os.ReadFile(t.SchemaFile)
	if err != nil {
		return nil, newUsageError(fmt.Sprintf("%s: read schema: %v", cmd.Name(), err))
	}
	var inline schema.Schema
	if err := decodeStrict(data, &inline); err != nil {
		return nil, newUsageError(fmt.Sprintf("%s: parse schema %s: %v", cmd.Name(), t.SchemaFile, err))
	}
	return &inline, nil
}

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan FILE...",
		Short: "List the routes registered in backend source files",
		Long: "Scan backend source files for route registrations. Matching is lexical: dynamic paths are missed " +
			"and route-like strings are reported. The framework is detected from the file extension unless set.",
		Example: strings.TrimSpace(`  oasbuilder scan server.js routes/*.js
  oasbuilder scan --framework fastapi app/main.py`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return scanRunner(cmd, cfg, args)
		},
	}
	cmd.Flags().String("framework", "", "Route syntax (express|fastapi); detected from the extension when omitted")
	return cmd
}

type fileDrafts struct {
	File   string       `json:"file" yaml:"file"`
	Drafts []scan.Draft `json:"drafts" yaml:"drafts"`
}

func runScan(cmd *cobra.Command, cfg *Config, files []string) error {
	s := newSession(cmd.ErrOrStderr(), cfg)
	out := make([]fileDrafts, 0, len(files))
	for _, f := range files {
		res, err := s.Execute(cmd.Context(), session.ScanSource{File: f, Framework: cfg.Framework})
		if err != nil {
			return explain(err)
		}
		drafts := res.Drafts
		if drafts == nil {
			drafts = []scan.Draft{}
		}
		out = append(out, fileDrafts{File: f, Drafts: drafts})
	}
	return writeValue(cmd.OutOrStdout(), cfg.Format, out)
}

func newInferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "infer FILE",
		Short: "Infer a schema from a JSON or YAML sample",
		Long: "Infer a schema from one sample value. Requiredness is a guess from the sample: by default a key " +
			"is required when its value is not null.",
		Example: strings.TrimSpace(`  oasbuilder infer user.json
  oasbuilder infer --required all --detect-formats user.json`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return inferRunner(cmd, cfg, args[0])
		},
	}
	cmd.Flags().String("required", "", "Which sampled keys become required (non-null|all|none)")
	cmd.Flags().Bool("detect-formats", false, "Tag strings with detected formats (uuid, email, date-time, ...)")
	return cmd
}

func runInfer(cmd *cobra.Command, cfg *Config, path string) error {
	sample, err := readValue(path)
	if err != nil {
		return err
	}
	res, err := newSession(cmd.ErrOrStderr(), cfg).Execute(cmd.Context(), session.InferSchema{Value: sample})
	if err != nil {
		return explain(err)
	}
	return writeValue(cmd.OutOrStdout(), cfg.Format, res.Schema)
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate VALUE_FILE",
		Short: "Validate a JSON or YAML value against a schema",
		Example: strings.TrimSpace(`  oasbuilder validate user.json --schema user.schema.yaml
  oasbuilder validate user.json --document openapi.yaml --ref User`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			target, err := readTarget(cmd)
			if err != nil {
				return err
			}
			v, err := readValue(args[0])
			if err != nil {
				return err
			}
			s := newSession(cmd.ErrOrStderr(), cfg)
			inline, err := target.prepare(cmd, s)
			if err != nil {
				return err
			}
			res, err := s.Execute(cmd.Context(), session.ValidateValue{Value: v, Schema: inline, Ref: target.Ref})
			if err != nil {
				return explain(err)
			}
			if err := writeValue(cmd.OutOrStdout(), cfg.Format, res.Validation); err != nil {
				return err
			}
			if !res.Validation.Valid {
				return ErrInvalid
			}
			return nil
		},
	}
	addTargetFlags(cmd)
	return cmd
}

func newExampleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "example",
		Short: "Generate an example value for a schema",
		Example: strings.TrimSpace(`  oasbuilder example --document openapi.yaml --ref User
  oasbuilder example --schema user.schema.yaml --format json`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			target, err := readTarget(cmd)
			if err != nil {
				return err
			}
			s := newSession(cmd.ErrOrStderr(), cfg)
			inline, err := target.prepare(cmd, s)
			if err != nil {
				return err
			}
			res, err := s.Execute(cmd.Context(), session.GenerateExample{Schema: inline, Ref: target.Ref})
			if err != nil {
				return explain(err)
			}
			return writeValue(cmd.OutOrStdout(), cfg.Format, res.Example)
		},
	}
	addTargetFlags(cmd)
	return cmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check DOC",
		Short: "Import an OpenAPI or Swagger document and report integrity problems",
		Long: "Import an OpenAPI 3 or Swagger 2 document (path or http/https URL) and check that references " +
			"resolve, routes are unique and path templates match their parameters.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			s := newSession(cmd.ErrOrStderr(), cfg)
			if _, err := s.Execute(cmd.Context(), session.ImportDocument{Input: args[0]}); err != nil {
				return explain(err)
			}
			res, err := s.Execute(cmd.Context(), session.ValidateDocument{})
			if err != nil {
				return explain(err)
			}
			if err := writeValue(cmd.OutOrStdout(), cfg.Format, res.Report); err != nil {
				return err
			}
			if !res.Report.Valid {
				return ErrInvalid
			}
			return nil
		},
	}
}

func newConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert DOC",
		Short: "Re-export a document as OpenAPI 3.0.3",
		Long: "Import an OpenAPI 3 or Swagger 2 document and export it as OpenAPI 3.0.3, keeping the source " +
			"order of paths, schemas and properties. Writes to --out when set, otherwise to stdout.",
		Example: strings.TrimSpace(`  oasbuilder convert swagger.yaml --out openapi.yaml
  oasbuilder convert https://example.com/openapi.json --format json`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return convertRunner(cmd, cfg, args[0])
		},
	}
	cmd.Flags().String("out", "", "Write the converted document to this file")
	return cmd
}

func runConvert(cmd *cobra.Command, cfg *Config, input string) error {
	s := newSession(cmd.ErrOrStderr(), cfg)
	if _, err := s.Execute(cmd.Context(), session.ImportDocument{Input: input}); err != nil {
		return explain(err)
	}
	res, err := s.Execute(cmd.Context(), session.Export{Format: cfg.Format, Path: cfg.Out})
	if err != nil {
		return explain(err)
	}
	if cfg.Out != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", cfg.Out)
		return nil
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), res.Output)
	return err
}

func readValue(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newUsageError(fmt.Sprintf("read %s: %v", path, err))
	}
	v, err := value.Load(data)
	if err != nil {
		return nil, newUsageError(fmt.Sprintf("parse %s: %v", path, err))
	}
	return v, nil
}

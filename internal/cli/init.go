package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/oasbuilder/internal/spec"
)

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample oasbuilder configuration file",
		Long:  "Scaffold a commented oasbuilder configuration file that documents available options.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			return initRunner(cmd.OutOrStdout(), &InitConfig{OutputPath: out, Force: force})
		},
	}

	cmd.Flags().String("out", "oasbuilder.yaml", "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

	return cmd
}

func runInit(w io.Writer, cfg *InitConfig) error {
	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = "oasbuilder.yaml"
	}
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	if st, err := os.Stat(absPath); err == nil && !cfg.Force {
		if st.Mode().IsRegular() {
			return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
		}
	}

	content := strings.TrimSpace(sampleConfigYAML) + "\n"
	if err := spec.WriteFile(absPath, []byte(content)); err != nil {
		return newUsageError(fmt.Sprintf("init: %v\nHint: choose a different --out or check directory permissions.", err))
	}
	fmt.Fprintf(w, "Wrote sample config to %s\n", absPath)
	return nil
}

// sampleConfigYAML is a commented example config documenting available options.
const sampleConfigYAML = `# oasbuilder configuration (YAML)
# All fields are optional. Command-line flags override config values.

# Output format for results and converted documents (json|yaml).
# format: yaml

# Route syntax for scan (express|fastapi). Detected from the file
# extension when omitted.
# framework: express

# Which sampled keys infer marks as required (non-null|all|none).
# required: non-null

# Tag inferred strings with detected formats (uuid, email, date-time, ...).
# detectFormats: false

# Target file for convert.
# out: ./openapi.yaml

# Enable verbose logging.
# verbose: false
`

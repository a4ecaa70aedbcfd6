package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Execute runs the oasbuilder CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "oasbuilder",
		Short:         "Build, check and export OpenAPI documents",
		Long:          "oasbuilder builds OpenAPI 3.0 documents from batches of operations, infers schemas from samples, validates payloads and scans backend source for routes.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Convert Cobra flag errors (like unknown flags) into friendly usage errors
	// that also show the command's help text.
	cmd.SetFlagErrorFunc(flagUsageError)

	cmd.PersistentFlags().StringP("config", "c", "", "Config file path (YAML or JSON)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging output")
	cmd.PersistentFlags().String("format", "", "Output format (json|yaml); defaults to yaml")

	for _, sub := range []*cobra.Command{
		newRunCmd(),
		newScanCmd(),
		newInferCmd(),
		newValidateCmd(),
		newExampleCmd(),
		newCheckCmd(),
		newConvertCmd(),
		newInitCmd(),
	} {
		sub.SetFlagErrorFunc(flagUsageError)
		cmd.AddCommand(sub)
	}

	return cmd
}

func flagUsageError(c *cobra.Command, err error) error {
	return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
}

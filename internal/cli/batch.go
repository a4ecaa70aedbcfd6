package cli

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/oasbuilder/internal/session"
	"github.com/mark3labs/oasbuilder/internal/value"
)

var batchRunner = runBatch

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run OPS_FILE",
		Short: "Run a batch of operations against one document",
		Long: "Run a YAML or JSON list of operations against a single session. Each entry names its " +
			"operation with op (initialize, registerSchema, addEndpoint, export, ...) and carries its arguments " +
			"beside it. Execution stops at the first rejected operation.",
		Example: strings.TrimSpace(`  oasbuilder run ops.yaml
  oasbuilder --format json run ops.yaml`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return batchRunner(cmd, cfg, args[0])
		},
	}
}

func runBatch(cmd *cobra.Command, cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("run: read %s: %v", path, err))
	}
	cmds, err := parseBatch(data)
	if err != nil {
		return newUsageError(fmt.Sprintf("run: %s: %v", path, err))
	}

	s := newSession(cmd.ErrOrStderr(), cfg)
	results := make([]session.Result, 0, len(cmds))
	var failure error
	for i, c := range cmds {
		res, err := s.Execute(cmd.Context(), c)
		if err != nil {
			failure = fmt.Errorf("operation %d (%s): %w", i+1, session.Name(c), err)
			break
		}
		results = append(results, res)
	}
	if err := writeValue(cmd.OutOrStdout(), cfg.Format, results); err != nil {
		return err
	}
	if failure != nil {
		return explain(failure)
	}
	return nil
}

// parseBatch decodes a list of {op: name, ...args} entries. Unknown
// operations and unknown argument keys are rejected.
func parseBatch(data []byte) ([]session.Command, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	list := root.Content[0]
	if list.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("expected a list of operations")
	}
	out := make([]session.Command, 0, len(list.Content))
	for i, item := range list.Content {
		c, err := decodeCommand(item)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func decodeCommand(n *yaml.Node) (session.Command, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping")
	}
	op := ""
	args := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == "op" {
			op = n.Content[i+1].Value
			continue
		}
		args.Content = append(args.Content, n.Content[i], n.Content[i+1])
	}

	switch op {
	case "initialize":
		return decodeArgs[session.Initialize](args)
	case "registerSchema":
		return decodeArgs[session.RegisterSchema](args)
	case "registerSecurityScheme":
		return decodeArgs[session.RegisterSecurityScheme](args)
	case "addEndpoint":
		return decodeArgs[session.AddEndpoint](args)
	case "removeEndpoint":
		return decodeArgs[session.RemoveEndpoint](args)
	case "removeSchema":
		return decodeArgs[session.RemoveSchema](args)
	case "removeSecurityScheme":
		return decodeArgs[session.RemoveSecurityScheme](args)
	case "scanSource":
		return decodeArgs[session.ScanSource](args)
	case "validateValue":
		c, err := decodeArgs[session.ValidateValue](args)
		if err != nil {
			return nil, err
		}
		c.Value, err = orderedValue(args)
		return c, err
	case "validateDocument":
		return decodeArgs[session.ValidateDocument](args)
	case "generateExample":
		return decodeArgs[session.GenerateExample](args)
	case "inferSchema":
		c, err := decodeArgs[session.InferSchema](args)
		if err != nil {
			return nil, err
		}
		c.Value, err = orderedValue(args)
		return c, err
	case "export":
		return decodeArgs[session.Export](args)
	case "importDocument":
		return decodeArgs[session.ImportDocument](args)
	case "listSchemas":
		return decodeArgs[session.ListSchemas](args)
	case "listEndpoints":
		return decodeArgs[session.ListEndpoints](args)
	case "":
		return nil, fmt.Errorf("missing op")
	}
	return nil, fmt.Errorf("unknown op %q", op)
}

// decodeArgs decodes the argument mapping strictly into T.
func decodeArgs[T session.Command](args *yaml.Node) (T, error) {
	var out T
	raw, err := yaml.Marshal(args)
	if err != nil {
		return out, err
	}
	if err := decodeStrict(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

// decodeStrict decodes YAML or JSON, rejecting keys out has no field for.
func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}

// orderedValue re-reads the value argument keeping object key order, which
// plain YAML decoding into any loses.
func orderedValue(args *yaml.Node) (any, error) {
	for i := 0; i+1 < len(args.Content); i += 2 {
		if args.Content[i].Value == "value" {
			return value.FromNode(args.Content[i+1])
		}
	}
	return nil, nil
}

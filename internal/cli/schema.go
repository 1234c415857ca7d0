package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/rules"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/server"
)

// SchemaOptions holds flags for the schema command.
type SchemaOptions struct {
	*RootOptions
	Message string
	Out     string
}

type schemaTarget struct {
	value       any
	title       string
	description string
}

var schemaTargets = map[string]schemaTarget{
	"action": {
		value:       new(game.Action),
		title:       "Battle Action",
		description: "A player's command during their turn.",
	},
	"response": {
		value:       new(rules.Response),
		title:       "Request Response",
		description: "A player's answer to a pending request.",
	},
	"client": {
		value:       new(server.ClientMessage),
		title:       "Client Message",
		description: "A message sent by a player over the battle WebSocket.",
	},
	"server": {
		value:       new(server.ServerMessage),
		title:       "Server Message",
		description: "A message sent to a player over the battle WebSocket.",
	},
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of a client protocol message",
		Long: `Print the JSON schema of a battle protocol message.

Messages: action, response, client, server.

Examples:
  fightctl schema --message client
  fightctl schema --message action --out schemas/action.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Message, "message", "client", "message to describe")
	cmd.Flags().StringVar(&opts.Out, "out", "", "write the schema to this path instead of stdout")

	return cmd
}

func runSchema(opts *SchemaOptions, cmd *cobra.Command) error {
	target, ok := schemaTargets[opts.Message]
	if !ok {
		names := make([]string, 0, len(schemaTargets))
		for name := range schemaTargets {
			names = append(names, name)
		}
		slices.Sort(names)
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown message %q: must be one of %v", opts.Message, names))
	}

	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(target.value)
	schema.Title = target.title
	schema.Description = target.description

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to marshal schema", err)
	}
	data = append(data, '\n')

	if opts.Out == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := writeSchema(opts.Out, data); err != nil {
		return WrapExitError(ExitCommandError, "failed to write schema", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", opts.Out)
	return nil
}

// writeSchema replaces outPath through a temporary file.
func writeSchema(outPath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}
	return nil
}

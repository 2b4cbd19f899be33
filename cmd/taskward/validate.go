package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/taskward/taskward/internal/validation"
)

func validateCmd() *cobra.Command {
	var (
		file string
		op   string
	)

	cmd := &cobra.Command{
		Use:   "validate <model>",
		Short: "Validate a JSON payload against the configured database",
		Long: `Validate runs the full staged pipeline (model validation, foreign
keys, business rules) for one payload read from --file or stdin, and
exits non-zero when the payload is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			operation := validation.Op(op)
			if !operation.Valid() {
				return fmt.Errorf("invalid --op %q: must be create, update, or delete", op)
			}

			var reader io.Reader = os.Stdin
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				reader = f
			}

			var payload map[string]interface{}
			if err := json.NewDecoder(reader).Decode(&payload); err != nil {
				return fmt.Errorf("failed to decode payload: %w", err)
			}

			app, err := buildApp()
			if err != nil {
				return err
			}
			defer app.Close()

			vctx := &validation.Context{Operation: operation}
			result, err := app.system.ValidateModel(cmd.Context(), args[0], payload, vctx)
			if err != nil {
				return err
			}

			printModelResult(result.Valid, result.Errors, len(result.Warnings))
			for _, w := range result.Warnings {
				fmt.Printf("  %s %s: %s\n", color.YellowString("!"), w.Field, w.Message)
			}
			if !result.Valid {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "payload file (default: stdin)")
	cmd.Flags().StringVar(&op, "op", "create", "operation: create, update, or delete")

	return cmd
}

func printModelResult(valid bool, errors []string, warnings int) {
	if valid {
		fmt.Printf("%s payload is valid (%d warnings)\n", color.GreenString("✓"), warnings)
		return
	}
	fmt.Printf("%s payload is invalid:\n", color.RedString("✗"))
	for _, msg := range errors {
		fmt.Printf("  %s %s\n", color.RedString("✗"), msg)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/cfgdoc/internal/config/schema"
)

// loadSchema reads a JSON Schema file, or returns the built-in schema for
// an empty path.
func (a *app) loadSchema(path string) (*schema.Schema, error) {
	if path == "" {
		return schema.DefaultSchema(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := schema.ParseJSONSchema(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, w := range s.Warnings() {
		a.logger.Warn("schema constraint ignored", zap.String("schema", path), zap.String("problem", w))
	}
	return s, nil
}

// =============================================================================
// VALIDATE
// =============================================================================

func newValidateCmd(a *app) *cobra.Command {
	var from, schemaPath string
	var requiredOnly bool
	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check documents against a schema",
		Long: `Check each document against a schema: the built-in one by default, or a
JSON Schema file written by export-schema. With --required-only only the
"required" lists of the schema are checked. Invalid documents make the
command exit with status 1.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw []byte
			var s *schema.Schema
			var err error
			if requiredOnly {
				if schemaPath == "" {
					raw = schema.DefaultSchemaJSON()
				} else if raw, err = os.ReadFile(schemaPath); err != nil {
					return err
				}
			} else if s, err = a.loadSchema(schemaPath); err != nil {
				return err
			}

			invalid := 0
			for _, path := range args {
				c, err := a.open(path, from)
				if err != nil {
					fmt.Fprintf(a.stdout, "%s: %v\n", path, err)
					invalid++
					continue
				}
				var ok bool
				var errs []string
				if requiredOnly {
					ok, errs = c.ValidateJSONSchema(string(raw))
				} else {
					ok, errs = c.ValidateWithSchema(s)
				}
				c.Close()

				if ok {
					fmt.Fprintf(a.stdout, "%s: valid\n", path)
					continue
				}
				invalid++
				fmt.Fprintf(a.stdout, "%s: %d errors\n", path, len(errs))
				for _, e := range errs {
					fmt.Fprintf(a.stdout, "  %s\n", e)
				}
			}
			return findings(invalid, "invalid documents")
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "input format; inferred from each extension when empty")
	cmd.Flags().StringVar(&schemaPath, "schema", "", "JSON Schema file; the built-in schema when empty")
	cmd.Flags().BoolVar(&requiredOnly, "required-only", false, "check only required sections and parameters")
	return cmd
}

// =============================================================================
// EXPORT-SCHEMA
// =============================================================================

func newExportSchemaCmd(a *app) *cobra.Command {
	var schemaPath, output string
	cmd := &cobra.Command{
		Use:   "export-schema",
		Short: "Write a schema as draft-07 JSON Schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadSchema(schemaPath)
			if err != nil {
				return err
			}
			data, err := schema.ToJSONSchema(s)
			if err != nil {
				return err
			}
			if output == stdio {
				_, err = fmt.Fprintln(a.stdout, string(data))
				return err
			}
			return os.WriteFile(output, append(data, '\n'), 0o644)
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "JSON Schema file to normalize; the built-in schema when empty")
	cmd.Flags().StringVarP(&output, "output", "o", stdio, "output file")
	return cmd
}

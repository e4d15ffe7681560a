package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/cfgdoc/internal/config"
	"github.com/dshills/cfgdoc/internal/config/codec"
)

// =============================================================================
// PARSE
// =============================================================================

func newParseCmd(a *app) *cobra.Command {
	var from, to string
	var summary bool
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a document and print it, by default in the native format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.open(args[0], from)
			if err != nil {
				return err
			}
			defer c.Close()

			if summary {
				doc := c.Document()
				fmt.Fprintf(a.stdout, "%s: %d sections, %d parameters\n", args[0], doc.Len(), doc.ParameterCount())
				for _, s := range doc.Sections() {
					fmt.Fprintf(a.stdout, "  %s (%d)\n", s.Name(), s.Len())
				}
				return nil
			}
			return a.write(c, stdio, to, codec.FormatNative)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "input format; inferred from the extension when empty")
	cmd.Flags().StringVar(&to, "to", "", "output format (default oop)")
	cmd.Flags().BoolVar(&summary, "summary", false, "print section and parameter counts instead of the document")
	return cmd
}

// =============================================================================
// CONVERT
// =============================================================================

func newConvertCmd(a *app) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "convert <input> <output>",
		Short: "Convert a document between formats",
		Example: `  cfgdoc convert site.oop site.json
  cat site.yaml | cfgdoc convert --from yaml --to toml - -`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.open(args[0], from)
			if err != nil {
				return err
			}
			defer c.Close()
			return a.write(c, args[1], to, "")
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "input format; inferred from the extension when empty")
	cmd.Flags().StringVar(&to, "to", "", "output format; inferred from the extension when empty")
	return cmd
}

// =============================================================================
// GET / SET / PATHS
// =============================================================================

func newGetCmd(a *app) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "get <file> <path>",
		Short: "Print the value at a JSON pointer such as /section/key",
		Long: `Print the value at a JSON pointer. "/section/key" prints the parameter
literal, "/section" prints the section as a JSON object and "/" prints the
whole document. A path that does not resolve exits with status 1.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.open(args[0], from)
			if err != nil {
				return err
			}
			defer c.Close()

			if !c.HasPath(args[1]) {
				return &config.OpError{Op: "get", Target: args[1], Err: config.ErrNotFound}
			}
			fmt.Fprintln(a.stdout, c.GetValueByPath(args[1]))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "input format; inferred from the extension when empty")
	return cmd
}

func newSetCmd(a *app) *cobra.Command {
	var from, to, output string
	cmd := &cobra.Command{
		Use:   "set <file> <path> <value>",
		Short: "Set the parameter at /section/key and save the document",
		Long: `Set the parameter at /section/key, creating the section when needed, and
save the result back to <file>. Setting "/section" creates an empty section.
The value is a literal: quote strings that should stay strings, as in '"x"'.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.open(args[0], from)
			if err != nil {
				return err
			}
			defer c.Close()

			if !c.SetValueByPath(args[1], args[2]) {
				return c.Err()
			}
			dest := output
			if dest == "" {
				dest = args[0]
				if to == "" {
					to = string(inputFormat(args[0], from))
				}
			}
			return a.write(c, dest, to, inputFormat(args[0], from))
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "input format; inferred from the extension when empty")
	cmd.Flags().StringVar(&to, "to", "", "output format; defaults to the input format")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of <file>")
	return cmd
}

func newPathsCmd(a *app) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "paths <file>",
		Short: "List every section and parameter path in document order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.open(args[0], from)
			if err != nil {
				return err
			}
			defer c.Close()
			for _, p := range c.GetAllPaths() {
				fmt.Fprintln(a.stdout, p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "input format; inferred from the extension when empty")
	return cmd
}

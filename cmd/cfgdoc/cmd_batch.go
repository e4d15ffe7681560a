package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/cfgdoc/internal/config/batch"
	"github.com/dshills/cfgdoc/internal/config/codec"
	"github.com/dshills/cfgdoc/internal/config/merge"
	"github.com/dshills/cfgdoc/internal/logging"
)

func newBatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Validate, convert or merge many files at once",
		Long: `Batch commands keep going after a failing file and report one summary.
The command exits with status 1 when any file failed.`,
	}
	cmd.AddCommand(newBatchValidateCmd(a), newBatchConvertCmd(a), newBatchMergeCmd(a))
	return cmd
}

func (a *app) processor(opts ...batch.Option) *batch.Processor {
	opts = append([]batch.Option{batch.WithLogger(logging.For(a.logger, logging.ComponentBatch))}, opts...)
	return batch.New(opts...)
}

// report prints stats and turns failures into findings.
func (a *app) report(stats batch.Stats) error {
	fmt.Fprintln(a.stdout, stats)
	for _, e := range stats.Errors {
		fmt.Fprintf(a.stdout, "  %s\n", e)
	}
	return findings(stats.Failed, "files failed")
}

func newBatchValidateCmd(a *app) *cobra.Command {
	var schemaPath string
	var useSchema bool
	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check that every file loads, and optionally matches a schema",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []batch.Option
			if useSchema || schemaPath != "" {
				s, err := a.loadSchema(schemaPath)
				if err != nil {
					return err
				}
				opts = append(opts, batch.WithSchema(s))
			}
			return a.report(a.processor(opts...).ValidateAll(args))
		},
	}
	cmd.Flags().BoolVar(&useSchema, "use-schema", false, "also validate against the built-in schema")
	cmd.Flags().StringVar(&schemaPath, "schema", "", "also validate against this JSON Schema file")
	return cmd
}

func newBatchConvertCmd(a *app) *cobra.Command {
	var from, to, outDir string
	cmd := &cobra.Command{
		Use:     "convert <file>...",
		Short:   "Convert every file to one format",
		Example: `  cfgdoc batch convert --to json --out-dir build/ conf/*.oop`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := codec.ParseFormat(to)
			if err != nil {
				return err
			}
			var source codec.Format
			if from != "" {
				if source, err = codec.ParseFormat(from); err != nil {
					return err
				}
			}
			return a.report(a.processor().ConvertAll(args, source, target, outDir))
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "input format; inferred from each extension when empty")
	cmd.Flags().StringVar(&to, "to", "", "output format (required)")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "output directory; next to each input when empty")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newBatchMergeCmd(a *app) *cobra.Command {
	var output, strategy string
	cmd := &cobra.Command{
		Use:   "merge <file>...",
		Short: "Merge every file in order into one output file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := merge.ParseStrategy(strategy)
			if err != nil {
				return err
			}
			return a.report(a.processor().MergeAll(args, output, s))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (required)")
	cmd.Flags().StringVarP(&strategy, "strategy", "s", merge.Replace.String(), "merge strategy: replace, append or deep_merge")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

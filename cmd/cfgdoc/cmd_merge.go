package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/cfgdoc/internal/config/diff"
	"github.com/dshills/cfgdoc/internal/config/luaresolver"
	"github.com/dshills/cfgdoc/internal/config/merge"
	"github.com/dshills/cfgdoc/internal/logging"
)

// =============================================================================
// MERGE
// =============================================================================

type mergeOptions struct {
	from     string
	to       string
	output   string
	strategy string
	resolver string
	timeout  time.Duration
}

func newMergeCmd(a *app) *cobra.Command {
	var opts mergeOptions
	cmd := &cobra.Command{
		Use:   "merge <base> <other>...",
		Short: "Merge documents into a base document",
		Long: `Merge each <other> into <base> in order and write the result.

Strategies:
  replace     incoming values overwrite existing ones
  append      existing values win; only new keys and sections are added
  deep_merge  like replace; differing values are counted as conflicts
  custom      a Lua script settles each conflict (requires --resolver)`,
		Example: `  cfgdoc merge base.oop site.json -o merged.oop
  cfgdoc merge base.oop site.json --strategy custom --resolver prefer.lua`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMerge(args, opts)
		},
	}
	cmd.Flags().StringVar(&opts.from, "from", "", "input format for every file; inferred from each extension when empty")
	cmd.Flags().StringVar(&opts.to, "to", "", "output format; defaults to the format of <base>")
	cmd.Flags().StringVarP(&opts.output, "output", "o", stdio, "output file")
	cmd.Flags().StringVarP(&opts.strategy, "strategy", "s", merge.Replace.String(), "merge strategy")
	cmd.Flags().StringVar(&opts.resolver, "resolver", "", "Lua script defining resolve(c) for the custom strategy")
	cmd.Flags().DurationVar(&opts.timeout, "resolver-timeout", luaresolver.DefaultTimeout, "time limit for one resolve call")
	return cmd
}

func (a *app) runMerge(args []string, opts mergeOptions) error {
	strategy, err := merge.ParseStrategy(opts.strategy)
	if err != nil {
		return err
	}

	var r *luaresolver.Resolver
	if opts.resolver != "" {
		r, err = luaresolver.Load(opts.resolver,
			luaresolver.WithTimeout(opts.timeout),
			luaresolver.WithLogger(logging.For(a.logger, logging.ComponentLua)),
		)
		if err != nil {
			return err
		}
		defer r.Close()
		strategy = merge.Custom
	}
	if strategy == merge.Custom && r == nil {
		return fmt.Errorf("strategy %s requires --resolver", strategy)
	}

	base, err := a.open(args[0], opts.from)
	if err != nil {
		return err
	}
	defer base.Close()

	for _, path := range args[1:] {
		other, err := a.open(path, opts.from)
		if err != nil {
			return err
		}
		var ok bool
		if r != nil {
			ok = base.MergeWithResolver(other, r.Resolve)
		} else {
			ok = base.Merge(other, strategy)
		}
		other.Close()
		if !ok {
			return base.Err()
		}
		stats := base.LastMergeStats()
		a.logger.Info("merged", zap.String("path", path), zap.Stringer("stats", stats))
		fmt.Fprintf(a.stderr, "%s: %s\n", path, stats)
	}
	if r != nil {
		if err := r.Err(); err != nil {
			a.logger.Warn("resolver reported errors", zap.Error(err), zap.Int("calls", r.Calls()))
		}
	}
	return a.write(base, opts.output, opts.to, inputFormat(args[0], opts.from))
}

// =============================================================================
// DIFF
// =============================================================================

func newDiffCmd(a *app) *cobra.Command {
	var from string
	var asJSON, onlyChanges, exitCode bool
	cmd := &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Compare two documents parameter by parameter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldCfg, err := a.open(args[0], from)
			if err != nil {
				return err
			}
			defer oldCfg.Close()
			newCfg, err := a.open(args[1], from)
			if err != nil {
				return err
			}
			defer newCfg.Close()

			entries := oldCfg.Diff(newCfg)
			if asJSON {
				out := oldCfg.DiffAsJSON(newCfg)
				if out == "" {
					return oldCfg.Err()
				}
				fmt.Fprintln(a.stdout, out)
			} else {
				fmt.Fprint(a.stdout, diff.Report(entries, onlyChanges))
			}
			if exitCode {
				return findings(diff.Summarize(entries).Changed(), "differences")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "input format for both files; inferred from each extension when empty")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the differences as a JSON array")
	cmd.Flags().BoolVar(&onlyChanges, "only-changes", false, "leave unchanged parameters out of the report")
	cmd.Flags().BoolVar(&exitCode, "exit-code", false, "exit with status 1 when the documents differ")
	return cmd
}

package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/cfgdoc/internal/config"
	"github.com/dshills/cfgdoc/internal/config/codec"
	"github.com/dshills/cfgdoc/internal/config/ledger"
)

// EnvHistoryDB names the default history database.
const EnvHistoryDB = "CFGDOC_HISTORY_DB"

type historyOptions struct {
	db   string
	name string
}

// historySession is a facade resumed from a stored history.
type historySession struct {
	cfg      *config.Config
	store    *ledger.SQLiteStore
	versions int
}

func (s *historySession) Close() {
	s.cfg.Close()
	_ = s.store.Close()
}

// openHistory opens the database and loads the named history into a new
// facade. The document is the latest stored version.
func (a *app) openHistory(ctx context.Context, opts historyOptions) (*historySession, error) {
	store, err := ledger.OpenSQLiteStore(opts.db)
	if err != nil {
		return nil, err
	}
	c := a.newConfig(config.WithLedgerOptions(ledger.WithStore(store, opts.name)))
	n, ok := c.ResumeHistory(ctx)
	if !ok {
		err := c.Err()
		c.Close()
		_ = store.Close()
		return nil, err
	}
	a.logger.Debug("history resumed", zap.String("db", opts.db), zap.String("history", opts.name), zap.Int("version", n))
	return &historySession{cfg: c, store: store, versions: c.VersionCount()}, nil
}

func newHistoryCmd(a *app) *cobra.Command {
	var opts historyOptions
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Record and restore document versions in a SQLite history",
		Long: `History commands keep numbered versions of a document in a SQLite
database. One database holds any number of named histories.`,
		Example: `  cfgdoc history record site.oop -m "initial import"
  cfgdoc history list
  cfgdoc history restore 1 -o site.oop`,
	}
	cmd.PersistentFlags().StringVar(&opts.db, "db", envOr(EnvHistoryDB, "cfgdoc-history.db"), "history database; env "+EnvHistoryDB)
	cmd.PersistentFlags().StringVar(&opts.name, "name", "default", "history name")

	cmd.AddCommand(
		newHistoryRecordCmd(a, &opts),
		newHistoryListCmd(a, &opts),
		newHistoryRestoreCmd(a, &opts),
		newHistoryClearCmd(a, &opts),
		newHistoryNamesCmd(a, &opts),
	)
	return cmd
}

func newHistoryRecordCmd(a *app, opts *historyOptions) *cobra.Command {
	var from, message string
	cmd := &cobra.Command{
		Use:   "record <file>",
		Short: "Record a file as the next version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openHistory(cmd.Context(), *opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := a.load(s.cfg, args[0], from); err != nil {
				return err
			}
			if message == "" {
				message = args[0]
			}
			var ok bool
			if s.versions == 0 {
				ok = s.cfg.EnableVersioning(message)
			} else {
				ok = s.cfg.CreateVersion(message)
			}
			if !ok {
				return s.cfg.Err()
			}
			fmt.Fprintf(a.stdout, "%s: version %d\n", opts.name, s.cfg.CurrentVersion())
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "input format; inferred from the extension when empty")
	cmd.Flags().StringVarP(&message, "message", "m", "", "version description; the file name when empty")
	return cmd
}

func newHistoryListCmd(a *app, opts *historyOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the versions of a history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openHistory(cmd.Context(), *opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if asJSON {
				out := s.cfg.HistoryAsJSON()
				if out == "" && s.versions > 0 {
					return s.cfg.Err()
				}
				if out == "" {
					out = "[]"
				}
				fmt.Fprintln(a.stdout, strings.TrimSpace(out))
				return nil
			}
			if s.versions == 0 {
				fmt.Fprintf(a.stdout, "%s: no versions\n", opts.name)
				return nil
			}

			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tCREATED\tPARAMETERS\tDESCRIPTION")
			current := s.cfg.CurrentVersion()
			for _, e := range s.cfg.Ledger().History() {
				mark := " "
				if e.Version == current {
					mark = "*"
				}
				fmt.Fprintf(tw, "%s%d\t%s\t%d\t%s\n", mark, e.Version, e.FormattedTimestamp(), e.Snapshot.ParameterCount(), e.Description)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the history as JSON")
	return cmd
}

func newHistoryRestoreCmd(a *app, opts *historyOptions) *cobra.Command {
	var to, output string
	cmd := &cobra.Command{
		Use:   "restore <version>",
		Short: "Write a stored version to a file or standard output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("version %q: %w", args[0], err)
			}
			s, err := a.openHistory(cmd.Context(), *opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if !s.cfg.Rollback(v) {
				return s.cfg.Err()
			}
			return a.write(s.cfg, output, to, codec.FormatNative)
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "output format; inferred from the extension, oop on standard output")
	cmd.Flags().StringVarP(&output, "output", "o", stdio, "output file")
	return cmd
}

func newHistoryClearCmd(a *app, opts *historyOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Collapse a history to its latest version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openHistory(cmd.Context(), *opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if !s.cfg.ClearHistory() {
				return s.cfg.Err()
			}
			fmt.Fprintf(a.stdout, "%s: cleared, %d version kept\n", opts.name, s.cfg.VersionCount())
			return nil
		},
	}
}

func newHistoryNamesCmd(a *app, opts *historyOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "names",
		Short: "List the histories stored in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ledger.OpenSQLiteStore(opts.db)
			if err != nil {
				return err
			}
			defer store.Close()

			names, err := store.Histories(cmd.Context())
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(a.stdout, n)
			}
			return nil
		},
	}
}

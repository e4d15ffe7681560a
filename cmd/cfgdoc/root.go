package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/cfgdoc/internal/config"
	"github.com/dshills/cfgdoc/internal/config/codec"
	"github.com/dshills/cfgdoc/internal/logging"
)

// stdio names standard input or output in place of a file path.
const stdio = "-"

// app carries the state shared by every command of one invocation.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	logLevel  string
	logFormat string
	logger    *zap.Logger
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "cfgdoc",
		Short: "Inspect, convert, merge and version configuration documents",
		Long: `cfgdoc works on sectioned configuration documents stored as the native
"oop" format, JSON, XML, YAML, TOML or CSV. The format of a file is taken
from its extension unless --from or --to name it; "-" reads standard input
or writes standard output.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.NewWriter(a.stderr, a.logLevel, logging.Format(a.logFormat))
			if err != nil {
				return err
			}
			a.logger = logging.For(logger, logging.ComponentCLI)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", envOr(logging.EnvLevel, logging.DefaultLevel),
		"log level (debug, info, warn, error); env "+logging.EnvLevel)
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", envOr(logging.EnvFormat, string(logging.FormatConsole)),
		"log format (console, json); env "+logging.EnvFormat)

	root.AddCommand(
		newParseCmd(a),
		newConvertCmd(a),
		newGetCmd(a),
		newSetCmd(a),
		newPathsCmd(a),
		newMergeCmd(a),
		newDiffCmd(a),
		newLayersCmd(a),
		newValidateCmd(a),
		newExportSchemaCmd(a),
		newBatchCmd(a),
		newHistoryCmd(a),
		newWatchCmd(a),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// newConfig creates a facade logging through the command logger.
func (a *app) newConfig(opts ...config.Option) *config.Config {
	opts = append([]config.Option{config.WithLogger(logging.For(a.logger, logging.ComponentConfig))}, opts...)
	return config.New(opts...)
}

// formatFor resolves the format of path. An explicit name wins; stdio
// has no extension and needs one.
func formatFor(path, name, flag string) (codec.Format, error) {
	if name != "" {
		return codec.ParseFormat(name)
	}
	if path == stdio {
		return "", fmt.Errorf("%s required when using standard input or output", flag)
	}
	return codec.FormatFromPath(path)
}

// load replaces the document of c with path.
func (a *app) load(c *config.Config, path, from string) error {
	f, err := formatFor(path, from, "--from")
	if err != nil {
		return err
	}
	var ok bool
	if path == stdio {
		ok = c.LoadFrom(f, a.stdin)
	} else {
		ok = c.Load(f, path)
	}
	if !ok {
		return c.Err()
	}
	a.logger.Debug("loaded", zap.String("path", path), zap.String("format", string(f)), zap.Int("sections", c.SectionCount()))
	return nil
}

// open creates a facade holding path.
func (a *app) open(path, from string, opts ...config.Option) (*config.Config, error) {
	c := a.newConfig(opts...)
	if err := a.load(c, path, from); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// write saves the document of c to path. Without --to, standard output
// falls back to def.
func (a *app) write(c *config.Config, path, to string, def codec.Format) error {
	if to == "" && path == stdio && def != "" {
		to = string(def)
	}
	f, err := formatFor(path, to, "--to")
	if err != nil {
		return err
	}
	var ok bool
	if path == stdio {
		ok = c.SaveTo(f, a.stdout)
	} else {
		ok = c.Save(f, path)
	}
	if !ok {
		return c.Err()
	}
	return nil
}

// inputFormat returns the format path would be read as, or "" when it
// cannot be told.
func inputFormat(path, from string) codec.Format {
	f, err := formatFor(path, from, "--from")
	if err != nil {
		return ""
	}
	return f
}

// findings reports n problems as errFindings, or nil.
func findings(n int, what string) error {
	if n == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d %s", errFindings, n, what)
}

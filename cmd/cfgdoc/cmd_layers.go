package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/cfgdoc/internal/config"
	"github.com/dshills/cfgdoc/internal/config/codec"
	"github.com/dshills/cfgdoc/internal/config/document"
	"github.com/dshills/cfgdoc/internal/config/layer"
)

type layersOptions struct {
	from      string
	to        string
	defaults  string
	envPrefix string
	sets      []string
	explain   bool
}

func newLayersCmd(a *app) *cobra.Command {
	var opts layersOptions
	cmd := &cobra.Command{
		Use:   "layers <file>...",
		Short: "Stack documents by priority and print the effective result",
		Long: `Stack documents and print the effective document. From lowest to highest
priority the layers are: --defaults, each <file> in order, variables with
--env-prefix (PREFIX_SECTION__KEY=value), then every --set. A parameter in
a higher layer overrides the same parameter below it.`,
		Example: `  cfgdoc layers --defaults base.oop site.oop --env-prefix CFGDOC_ --explain
  cfgdoc layers site.json --set search.limit=50 --to yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLayers(args, opts)
		},
	}
	cmd.Flags().StringVar(&opts.from, "from", "", "input format for every file; inferred from each extension when empty")
	cmd.Flags().StringVar(&opts.to, "to", "", "output format (default oop)")
	cmd.Flags().StringVar(&opts.defaults, "defaults", "", "read-only document below every file")
	cmd.Flags().StringVar(&opts.envPrefix, "env-prefix", "", "add an environment layer from variables with this prefix")
	cmd.Flags().StringArrayVar(&opts.sets, "set", nil, "section.key=literal override, repeatable")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "list each effective parameter with the layer that supplies it")
	return cmd
}

func (a *app) runLayers(files []string, opts layersOptions) error {
	m := layer.NewManager()

	if opts.defaults != "" {
		doc, err := a.readDocument(opts.defaults, opts.from)
		if err != nil {
			return err
		}
		l := layer.NewStandard(layer.SourceDefaults, doc)
		l.Path, l.ReadOnly = opts.defaults, true
		m.AddLayer(l)
	}
	for i, path := range files {
		doc, err := a.readDocument(path, opts.from)
		if err != nil {
			return err
		}
		l := layer.New(path, layer.SourceFile, layer.PriorityFile+i, doc)
		l.Path = path
		m.AddLayer(l)
	}
	if opts.envPrefix != "" {
		m.AddLayer(layer.NewStandard(layer.SourceEnv, codec.NewEnvSource(opts.envPrefix).Load()))
	}
	for _, s := range opts.sets {
		target, literal, ok := strings.Cut(s, "=")
		section, key, ok2 := strings.Cut(target, ".")
		if !ok || !ok2 || section == "" || key == "" {
			return fmt.Errorf("--set %q: want section.key=literal", s)
		}
		m.SetInSession(section, key, literal)
	}

	if opts.explain {
		origins, err := m.Explain()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PARAMETER\tVALUE\tLAYER")
		for _, o := range origins {
			fmt.Fprintf(tw, "%s.%s\t%s\t%s\n", o.Section, o.Key, o.Literal, o.Layer)
		}
		return tw.Flush()
	}

	doc, err := m.Merge()
	if err != nil {
		return err
	}
	c := a.newConfig(config.WithDocument(doc))
	defer c.Close()
	return a.write(c, stdio, opts.to, codec.FormatNative)
}

// readDocument loads path into a document of its own.
func (a *app) readDocument(path, from string) (*document.Document, error) {
	c, err := a.open(path, from)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.Document().Clone(), nil
}

package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/cfgdoc/internal/config/codec"
	"github.com/dshills/cfgdoc/internal/config/notify"
	"github.com/dshills/cfgdoc/internal/config/watcher"
)

func newWatchCmd(a *app) *cobra.Command {
	var from, schemaPath string
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Reload a document whenever it changes and report the result",
		Long: `Load <file>, then reload it each time it is written until interrupted.
Every reload prints the section count, or the validation errors when
--schema is given. A reload that fails to parse keeps the previous
document and prints the error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var f codec.Format
			if from != "" {
				var err error
				if f, err = codec.ParseFormat(from); err != nil {
					return err
				}
			}
			c, err := a.open(args[0], from)
			if err != nil {
				return err
			}
			defer c.Close()

			if schemaPath != "" {
				s, err := a.loadSchema(schemaPath)
				if err != nil {
					return err
				}
				c.SetSchema(s)
			}

			// Reloads are reported from the watcher goroutine.
			var mu sync.Mutex
			printf := func(format string, args ...any) {
				mu.Lock()
				defer mu.Unlock()
				fmt.Fprintf(a.stdout, format, args...)
			}
			report := func() {
				if ok, errs := c.Validate(); !ok {
					printf("%s: %d errors\n", args[0], len(errs))
					for _, e := range errs {
						printf("  %s\n", e)
					}
					return
				}
				printf("%s: %d sections\n", args[0], c.SectionCount())
			}
			report()

			sub := c.Subscribe(func(ch notify.Change) {
				if ch.Type == notify.ChangeReload {
					report()
				}
			})
			defer sub.Unsubscribe()

			ctx := cmd.Context()
			if err := c.Watch(ctx, args[0], f, watcher.WithDebounce(debounce)); err != nil {
				return err
			}

			// Failed reloads only show up as a changed LastError.
			last := c.LastError()
			ticker := time.NewTicker(debounce + 50*time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if msg := c.LastError(); msg != "" && msg != last {
						printf("%s: reload failed: %s\n", args[0], msg)
						last = msg
					}
				}
			}
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "input format; inferred from the extension when empty")
	cmd.Flags().StringVar(&schemaPath, "schema", "", "validate each reload against this JSON Schema file")
	cmd.Flags().DurationVar(&debounce, "debounce", 100*time.Millisecond, "quiet period before a change is reloaded")
	return cmd
}

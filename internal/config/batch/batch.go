// Package batch runs load, convert and merge operations over lists of
// files and reports per-run statistics.
package batch

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/cfgdoc/internal/config/codec"
	"github.com/dshills/cfgdoc/internal/config/document"
	"github.com/dshills/cfgdoc/internal/config/merge"
	"github.com/dshills/cfgdoc/internal/config/schema"
)

// ErrNoFiles is recorded when MergeAll gets an empty file list.
var ErrNoFiles = errors.New("no input files")

// Stats summarizes one batch run.
type Stats struct {
	Total     int
	Succeeded int
	Failed    int
	// Errors holds one "path: reason" entry per failure.
	Errors   []string
	Duration time.Duration
}

// String renders the counts and duration on one line.
func (s Stats) String() string {
	return fmt.Sprintf("Total: %d, Succeeded: %d, Failed: %d (%s)",
		s.Total, s.Succeeded, s.Failed, s.Duration.Round(time.Microsecond))
}

func (s *Stats) fail(path string, err error) {
	s.Failed++
	s.Errors = append(s.Errors, path+": "+err.Error())
}

// Option configures a Processor.
type Option func(*Processor)

// WithFS replaces the OS file system.
func WithFS(fsys codec.FileSystem) Option {
	return func(p *Processor) {
		if fsys != nil {
			p.fsys = fsys
		}
	}
}

// WithSchema makes ValidateAll check every file against s.
func WithSchema(s *schema.Schema) Option {
	return func(p *Processor) {
		p.schema = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// Processor runs batch operations one file at a time.
type Processor struct {
	mu     sync.Mutex
	fsys   codec.FileSystem
	schema *schema.Schema
	logger *zap.Logger
	last   Stats
}

// New creates a Processor on the OS file system.
func New(opts ...Option) *Processor {
	p := &Processor{
		fsys:   codec.DefaultFS(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ValidateAll loads every file, inferring the format from its
// extension. With a schema, a file that loads but fails validation counts
// as failed.
func (p *Processor) ValidateAll(files []string) Stats {
	start := time.Now()
	stats := Stats{Total: len(files)}
	for _, path := range files {
		doc, err := p.load(path, "")
		if err != nil {
			stats.fail(path, err)
			continue
		}
		if p.schema != nil {
			if errs := schema.Validate(doc, p.schema, schema.WithLogger(p.logger)); len(errs) > 0 {
				stats.fail(path, errors.New(strings.Join(errs, "; ")))
				continue
			}
		}
		stats.Succeeded++
	}
	return p.finish("validate", stats, start)
}

// ConvertAll decodes each file as from and writes it as to, named after
// the input with the extension of to. An empty outDir writes next to the
// input; an empty from infers the format from each extension.
func (p *Processor) ConvertAll(files []string, from, to codec.Format, outDir string) Stats {
	start := time.Now()
	stats := Stats{Total: len(files)}

	out, err := codec.MustLookup(to)
	if err != nil {
		for _, path := range files {
			stats.fail(path, err)
		}
		return p.finish("convert", stats, start)
	}

	for _, path := range files {
		doc, err := p.load(path, from)
		if err != nil {
			stats.fail(path, err)
			continue
		}
		if err := codec.SaveFile(p.fsys, outputPath(path, outDir, to), out, doc); err != nil {
			stats.fail(path, err)
			continue
		}
		stats.Succeeded++
	}
	return p.finish("convert", stats, start)
}

func outputPath(input, outDir string, to codec.Format) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + to.Extension()
	if outDir == "" {
		return filepath.Join(filepath.Dir(input), base)
	}
	return filepath.Join(outDir, base)
}

// MergeAll merges files in order into the first one that loads and
// writes the result to output, in the format of its extension. Files
// that fail to load are counted and skipped. Nothing is written if no
// file loads.
func (p *Processor) MergeAll(files []string, output string, strategy merge.Strategy) Stats {
	start := time.Now()
	stats := Stats{Total: len(files)}
	if len(files) == 0 {
		stats.fail(output, ErrNoFiles)
		return p.finish("merge", stats, start)
	}
	if strategy == merge.Custom {
		// No resolver can be supplied here.
		for _, path := range files {
			stats.fail(path, merge.ErrNoResolver)
		}
		return p.finish("merge", stats, start)
	}

	var result *document.Document
	for _, path := range files {
		doc, err := p.load(path, "")
		if err != nil {
			stats.fail(path, err)
			continue
		}
		if result == nil {
			result = doc
			stats.Succeeded++
			continue
		}
		ms, err := merge.Merge(result, doc, strategy, nil)
		if err != nil {
			stats.fail(path, err)
			continue
		}
		p.logger.Debug("merged", zap.String("file", path), zap.Stringer("stats", ms))
		stats.Succeeded++
	}
	if result == nil {
		return p.finish("merge", stats, start)
	}

	if err := p.save(output, result); err != nil {
		stats.fail(output, err)
	}
	return p.finish("merge", stats, start)
}

// LastStats returns the statistics of the most recent run.
func (p *Processor) LastStats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.last
	s.Errors = append([]string(nil), p.last.Errors...)
	return s
}

// ClearStats resets LastStats to zero.
func (p *Processor) ClearStats() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = Stats{}
}

func (p *Processor) load(path string, f codec.Format) (*document.Document, error) {
	if f == "" {
		var err error
		if f, err = codec.FormatFromPath(path); err != nil {
			return nil, err
		}
	}
	c, err := codec.MustLookup(f)
	if err != nil {
		return nil, err
	}
	return codec.LoadFile(p.fsys, path, c)
}

func (p *Processor) save(path string, doc *document.Document) error {
	f, err := codec.FormatFromPath(path)
	if err != nil {
		return err
	}
	c, err := codec.MustLookup(f)
	if err != nil {
		return err
	}
	return codec.SaveFile(p.fsys, path, c, doc)
}

func (p *Processor) finish(op string, stats Stats, start time.Time) Stats {
	stats.Duration = time.Since(start)
	p.mu.Lock()
	p.last = stats
	p.mu.Unlock()

	p.logger.Info("batch finished",
		zap.String("op", op),
		zap.Int("total", stats.Total),
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed),
		zap.Duration("duration", stats.Duration),
	)
	return stats
}

// Package transform drives dead-code elimination from source text: parse,
// sweep, print. Batches run in parallel and results are cached by content.
package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/panbanda/eliminator/internal/cache"
	"github.com/panbanda/eliminator/internal/fileproc"
	"github.com/panbanda/eliminator/internal/scanner"
	"github.com/panbanda/eliminator/pkg/config"
	"github.com/panbanda/eliminator/pkg/dce"
	"github.com/panbanda/eliminator/pkg/parser"
	"github.com/panbanda/eliminator/pkg/printer"
)

// formatVersion is mixed into cache keys. Bump it when printed output or
// sweep semantics change.
const formatVersion = "1"

// Result is the outcome of transforming one source.
type Result struct {
	Path    string   `json:"path"`
	Output  string   `json:"output"`
	Removed []string `json:"removed"`
	Passes  int      `json:"passes"`
	Cached  bool     `json:"-"`
}

// Changed reports whether the sweep removed anything.
func (r *Result) Changed() bool {
	return len(r.Removed) > 0
}

// Write replaces the file at r.Path with the transformed output when
// something was removed. The file mode is preserved.
func (r *Result) Write() error {
	if !r.Changed() {
		return nil
	}
	info, err := os.Stat(r.Path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", r.Path, err)
	}
	if err := os.WriteFile(r.Path, []byte(r.Output), info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write %s: %w", r.Path, err)
	}
	return nil
}

// Transformer turns JavaScript module sources into their swept form.
// It is safe for concurrent use.
type Transformer struct {
	cfg         *config.Config
	cache       *cache.Cache
	logger      *slog.Logger
	onProgress  fileproc.ProgressFunc
	fingerprint uint64
}

// Option is a functional option for configuring Transformer.
type Option func(*Transformer)

// WithConfig sets the configuration. A nil config is ignored.
func WithConfig(cfg *config.Config) Option {
	return func(t *Transformer) {
		if cfg != nil {
			t.cfg = cfg
		}
	}
}

// WithCache sets the result cache. A nil cache is ignored.
func WithCache(c *cache.Cache) Option {
	return func(t *Transformer) {
		if c != nil {
			t.cache = c
		}
	}
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transformer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithProgress sets a callback run once per file in batch calls.
func WithProgress(fn func()) Option {
	return func(t *Transformer) {
		t.onProgress = fn
	}
}

// New creates a Transformer. Without options it uses the default config,
// no cache and a discarding logger.
func New(opts ...Option) *Transformer {
	t := &Transformer{
		cfg:    config.DefaultConfig(),
		cache:  cache.Disabled(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.fingerprint = fingerprint(t.cfg)
	return t
}

// NewFromConfig creates a Transformer whose cache is built from cfg.Cache.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Transformer, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	c, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, cfg.Cache.Enabled)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return New(append([]Option{WithConfig(cfg), WithCache(c)}, opts...)...), nil
}

// fingerprint digests every setting that changes output.
func fingerprint(cfg *config.Config) uint64 {
	keep := slices.Clone(cfg.DCE.KeepNames)
	slices.Sort(keep)
	return cache.Fingerprint(
		formatVersion,
		strconv.Itoa(cfg.DCE.MaxPasses),
		strings.Join(keep, "\x00"),
		strconv.FormatBool(cfg.DCE.PruneBeforeRest),
	)
}

func (t *Transformer) eliminator(path string) *dce.Eliminator {
	return dce.New(
		dce.WithLogger(t.logger.With("path", path)),
		dce.WithMaxPasses(t.cfg.DCE.MaxPasses),
		dce.WithKeepNames(t.cfg.DCE.KeepNames...),
		dce.WithPruneBeforeRest(t.cfg.DCE.PruneBeforeRest),
	)
}

// Transform sweeps a single module source. path is used for error
// messages, logging and Result.Path only.
func (t *Transformer) Transform(ctx context.Context, source []byte, path string) (*Result, error) {
	p := parser.New()
	defer p.Close()
	return t.transform(ctx, p, source, path)
}

// TransformFile reads and sweeps the file at path. The file is not modified.
func (t *Transformer) TransformFile(ctx context.Context, path string) (*Result, error) {
	p := parser.New()
	defer p.Close()
	return t.transformFile(ctx, p, path)
}

func (t *Transformer) transformFile(ctx context.Context, p *parser.Parser, path string) (*Result, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return t.transform(ctx, p, source, path)
}

func (t *Transformer) transform(ctx context.Context, p *parser.Parser, source []byte, path string) (*Result, error) {
	key := cache.Key(source, t.fingerprint)
	if r, ok := t.cached(key); ok {
		r.Path = path
		t.logger.Debug("cache hit", "path", path)
		return r, nil
	}

	parsed, err := p.ParseCtx(ctx, source, path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	swept, err := t.eliminator(path).Eliminate(parsed.Program)
	if err != nil {
		return nil, fmt.Errorf("failed to eliminate dead code in %s: %w", path, err)
	}

	r := &Result{
		Path:    path,
		Output:  printer.Print(parsed.Program),
		Removed: swept.Names(),
		Passes:  swept.Passes,
	}
	t.store(key, r)
	return r, nil
}

func (t *Transformer) cached(key string) (*Result, bool) {
	data, ok := t.cache.Get(key)
	if !ok {
		return nil, false
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, false
	}
	r.Cached = true
	return &r, true
}

func (t *Transformer) store(key string, r *Result) {
	if !t.cache.Enabled() {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		t.logger.Warn("failed to encode result", "path", r.Path, "error", err)
		return
	}
	if err := t.cache.Set(key, data); err != nil {
		t.logger.Warn("failed to cache result", "path", r.Path, "error", err)
	}
}

// TransformFiles sweeps files in parallel. Results keep the order of files;
// files that failed are omitted and reported in the returned
// *fileproc.ProcessingErrors.
func (t *Transformer) TransformFiles(ctx context.Context, files []string) ([]*Result, error) {
	opts := fileproc.Options{MaxWorkers: t.cfg.Workers.Max, OnProgress: t.onProgress}
	all, errs := fileproc.MapFiles(ctx, files, opts, func(p *parser.Parser, path string) (*Result, error) {
		return t.transformFile(ctx, p, path)
	})

	results := make([]*Result, 0, len(all))
	changed, cached := 0, 0
	for _, r := range all {
		if r == nil {
			continue
		}
		results = append(results, r)
		if r.Changed() {
			changed++
		}
		if r.Cached {
			cached++
		}
	}

	failed := 0
	if errs.HasErrors() {
		failed = len(errs.Errors)
	}
	t.logger.Info("transformed files",
		"files", len(files), "changed", changed, "cached", cached, "failed", failed)

	if errs.HasErrors() {
		return results, errs
	}
	return results, nil
}

// TransformDir scans root for source files using the configured extensions
// and exclusions, then sweeps them with TransformFiles.
func (t *Transformer) TransformDir(ctx context.Context, root string) ([]*Result, error) {
	files, err := scanner.NewScanner(t.cfg).ScanDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	t.logger.Debug("scanned directory", "root", root, "files", len(files))
	return t.TransformFiles(ctx, files)
}

// Config returns the configuration the Transformer was built with.
func (t *Transformer) Config() *config.Config {
	return t.cfg
}

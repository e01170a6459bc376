package transform

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/panbanda/eliminator/internal/cache"
	"github.com/panbanda/eliminator/internal/fileproc"
	"github.com/panbanda/eliminator/internal/testutil"
	"github.com/panbanda/eliminator/pkg/config"
	"github.com/panbanda/eliminator/pkg/dce"
	"github.com/panbanda/eliminator/pkg/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	cycleSrc  = "function a() { return b() }\nfunction b() { return a() }\n"
	importSrc = "import a, { b, c } from \"m\";\nref(b);\n"
)

func newCachedTransformer(t *testing.T, cfg *config.Config) *Transformer {
	t.Helper()
	c, err := cache.New(filepath.Join(t.TempDir(), "cache"), 24, true)
	require.NoError(t, err)
	return New(WithConfig(cfg), WithCache(c))
}

func TestTransform(t *testing.T) {
	tests := []struct {
		name        string
		src         string
		want        string
		wantRemoved []string
	}{
		{
			name:        "closed cycle",
			src:         cycleSrc,
			want:        "",
			wantRemoved: []string{"a", "b"},
		},
		{
			name:        "imports",
			src:         importSrc,
			want:        "import { b } from \"m\";\nref(b);\n",
			wantRemoved: []string{"a", "c"},
		},
		{
			name:        "nothing to remove",
			src:         "export const x = 1;\n",
			want:        "export const x = 1;\n",
			wantRemoved: []string{},
		},
	}

	tr := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := tr.Transform(context.Background(), []byte(tt.src), "in.js")
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Output)
			assert.ElementsMatch(t, tt.wantRemoved, r.Removed)
			assert.Equal(t, len(tt.wantRemoved) > 0, r.Changed())
			assert.Equal(t, "in.js", r.Path)
			assert.False(t, r.Cached)
		})
	}
}

func TestTransformIdempotent(t *testing.T) {
	tr := New()
	src := "let { a, b: [c, d] } = x;\nfunction f() { return g() }\nfunction g() { return f() }\nref(a, d);\n"

	once, err := tr.Transform(context.Background(), []byte(src), "in.js")
	require.NoError(t, err)
	require.True(t, once.Changed())

	twice, err := tr.Transform(context.Background(), []byte(once.Output), "in.js")
	require.NoError(t, err)
	assert.Equal(t, once.Output, twice.Output)
	assert.Empty(t, twice.Removed)
	assert.Equal(t, 1, twice.Passes)
}

func TestTransformConfig(t *testing.T) {
	t.Run("keep names", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.DCE.KeepNames = []string{"a"}

		r, err := New(WithConfig(cfg)).Transform(context.Background(), []byte(cycleSrc), "in.js")
		require.NoError(t, err)
		assert.Empty(t, r.Removed)
	})

	t.Run("prune before rest", func(t *testing.T) {
		src := "let { a, ...rest } = x;\nref(rest);\n"

		r, err := New().Transform(context.Background(), []byte(src), "in.js")
		require.NoError(t, err)
		assert.Equal(t, "let { a, ...rest } = x;\nref(rest);\n", r.Output)

		cfg := config.DefaultConfig()
		cfg.DCE.PruneBeforeRest = true
		r, err = New(WithConfig(cfg)).Transform(context.Background(), []byte(src), "in.js")
		require.NoError(t, err)
		assert.Equal(t, "let { ...rest } = x;\nref(rest);\n", r.Output)
	})

	t.Run("pass limit", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.DCE.MaxPasses = 1

		_, err := New(WithConfig(cfg)).Transform(context.Background(), []byte("let a = 1;\nlet b = a;\n"), "in.js")
		require.Error(t, err)
		assert.True(t, errors.Is(err, dce.ErrPassLimit))
		assert.Contains(t, err.Error(), "in.js")
	})
}

func TestTransformSyntaxError(t *testing.T) {
	_, err := New().Transform(context.Background(), []byte("let = ;"), "broken.js")
	require.Error(t, err)
	assert.True(t, errors.Is(err, parser.ErrSyntax))

	var syntaxErr *parser.SyntaxError
	assert.True(t, errors.As(err, &syntaxErr))
}

func TestTransformCache(t *testing.T) {
	cfg := config.DefaultConfig()
	tr := newCachedTransformer(t, cfg)

	first, err := tr.Transform(context.Background(), []byte(importSrc), "one.js")
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := tr.Transform(context.Background(), []byte(importSrc), "two.js")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, "two.js", second.Path, "path comes from the caller, not the cache")
	assert.Equal(t, first.Output, second.Output)
	assert.Equal(t, first.Removed, second.Removed)
	assert.Equal(t, first.Passes, second.Passes)
}

func TestTransformCacheKeyedBySettings(t *testing.T) {
	c, err := cache.New(filepath.Join(t.TempDir(), "cache"), 24, true)
	require.NoError(t, err)

	plain := New(WithCache(c))
	_, err = plain.Transform(context.Background(), []byte(cycleSrc), "in.js")
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.DCE.KeepNames = []string{"a"}
	keeping := New(WithConfig(cfg), WithCache(c))

	r, err := keeping.Transform(context.Background(), []byte(cycleSrc), "in.js")
	require.NoError(t, err)
	assert.False(t, r.Cached, "different settings must miss")
	assert.Empty(t, r.Removed)
}

func TestFingerprintIgnoresKeepNameOrder(t *testing.T) {
	a := config.DefaultConfig()
	a.DCE.KeepNames = []string{"x", "y"}
	b := config.DefaultConfig()
	b.DCE.KeepNames = []string{"y", "x"}
	c := config.DefaultConfig()
	c.DCE.MaxPasses = 3

	assert.Equal(t, fingerprint(a), fingerprint(b))
	assert.NotEqual(t, fingerprint(a), fingerprint(config.DefaultConfig()))
	assert.NotEqual(t, fingerprint(c), fingerprint(config.DefaultConfig()))
}

func TestTransformFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mod.js")
	testutil.WriteFile(t, path, importSrc)

	r, err := New().TransformFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, r.Path)
	assert.Equal(t, "import { b } from \"m\";\nref(b);\n", r.Output)
	assert.Equal(t, importSrc, testutil.ReadFile(t, path), "the file is not modified")

	_, err = New().TransformFile(context.Background(), filepath.Join(t.TempDir(), "missing.js"))
	assert.Error(t, err)
}

func TestTransformFiles(t *testing.T) {
	root := t.TempDir()
	files := []string{
		filepath.Join(root, "a.js"),
		filepath.Join(root, "broken.js"),
		filepath.Join(root, "c.js"),
	}
	testutil.WriteFile(t, files[0], cycleSrc)
	testutil.WriteFile(t, files[1], "let = ;\n")
	testutil.WriteFile(t, files[2], importSrc)

	results, err := New().TransformFiles(context.Background(), files)
	require.Error(t, err)

	var procErrs *fileproc.ProcessingErrors
	require.True(t, errors.As(err, &procErrs))
	assert.Equal(t, []string{files[1]}, procErrs.Paths())
	assert.True(t, errors.Is(err, parser.ErrSyntax))

	require.Len(t, results, 2)
	assert.Equal(t, files[0], results[0].Path)
	assert.Equal(t, "", results[0].Output)
	assert.Equal(t, files[2], results[1].Path)
}

func TestTransformFilesNoErrors(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.js")
	testutil.WriteFile(t, path, "export let a = 1;\n")

	results, err := New().TransformFiles(context.Background(), []string{path})
	assert.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = New().TransformFiles(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestTransformFilesProgress(t *testing.T) {
	root := t.TempDir()
	files := testutil.CreateFileTree(t, root, map[string]string{
		"a.js":      cycleSrc,
		"b.js":      importSrc,
		"broken.js": "let = ;\n",
	})

	var calls atomic.Int32
	cfg := config.DefaultConfig()
	cfg.Workers.Max = 2
	tr := New(WithConfig(cfg), WithProgress(func() { calls.Add(1) }))

	_, err := tr.TransformFiles(context.Background(), files)
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestTransformFilesCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.js")
	testutil.WriteFile(t, path, cycleSrc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := New().TransformFiles(ctx, []string{path})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, results)
}

func TestTransformDir(t *testing.T) {
	root := t.TempDir()
	testutil.CreateFileTree(t, root, map[string]string{
		"src/a.js":                  cycleSrc,
		"src/b.mjs":                 importSrc,
		"src/notes.txt":             "not code",
		"node_modules/dep/index.js": cycleSrc,
	})

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	results, err := New(WithLogger(logger)).TransformDir(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, filepath.Join(root, "src", "a.js"), results[0].Path)
	assert.Equal(t, filepath.Join(root, "src", "b.mjs"), results[1].Path)

	assert.Contains(t, buf.String(), "msg=\"transformed files\"")
	assert.Contains(t, buf.String(), "files=2")
	assert.Contains(t, buf.String(), "changed=2")

	_, err = New().TransformDir(context.Background(), filepath.Join(root, "missing"))
	assert.Error(t, err)
}

func TestResultWrite(t *testing.T) {
	root := t.TempDir()
	changed := filepath.Join(root, "changed.js")
	same := filepath.Join(root, "same.js")
	testutil.WriteFile(t, changed, importSrc)
	testutil.WriteFile(t, same, "export let a = 1;\n")
	require.NoError(t, os.Chmod(changed, 0600))

	results, err := New().TransformFiles(context.Background(), []string{changed, same})
	require.NoError(t, err)
	for _, r := range results {
		require.NoError(t, r.Write())
	}

	assert.Equal(t, "import { b } from \"m\";\nref(b);\n", testutil.ReadFile(t, changed))
	assert.Equal(t, "export let a = 1;\n", testutil.ReadFile(t, same), "unchanged files are not rewritten")

	info, err := os.Stat(changed)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Cache.Dir = filepath.Join(t.TempDir(), "cache")

	tr, err := NewFromConfig(cfg)
	require.NoError(t, err)
	assert.True(t, tr.cache.Enabled())

	_, err = tr.Transform(context.Background(), []byte(cycleSrc), "in.js")
	require.NoError(t, err)
	r, err := tr.Transform(context.Background(), []byte(cycleSrc), "in.js")
	require.NoError(t, err)
	assert.True(t, r.Cached)

	bad := config.DefaultConfig()
	bad.DCE.MaxPasses = -1
	_, err = NewFromConfig(bad)
	assert.Error(t, err)

	disabled := config.DefaultConfig()
	disabled.Cache.Enabled = false
	tr, err = NewFromConfig(disabled)
	require.NoError(t, err)
	assert.False(t, tr.cache.Enabled())
}

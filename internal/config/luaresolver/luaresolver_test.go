package luaresolver

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/dshills/cfgdoc/internal/config/document"
	"github.com/dshills/cfgdoc/internal/config/merge"
)

const maxScript = `
function resolve(c)
  local a, b = cfg.number(c.existing), cfg.number(c.incoming)
  if a == nil or b == nil then
    return nil
  end
  if a >= b then
    return c.existing
  end
  return c.incoming
end
`

func conflict(existing, incoming string) merge.Conflict {
	return merge.Conflict{Section: "search", Key: "max_magnitude", ExistingValue: existing, IncomingValue: incoming}
}

func newResolver(t *testing.T, script string, opts ...Option) *Resolver {
	t.Helper()
	r, err := New(script, opts...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(r.Close)
	return r
}

func TestResolver_Resolve(t *testing.T) {
	r := newResolver(t, maxScript)

	tests := []struct {
		existing, incoming string
		resolved           bool
		want               string
	}{
		{"16.0", "18.5", true, "18.5"},
		{"20", "18.5", true, "20"},
		{"'bright'", "18.5", false, ""},
	}
	for _, tt := range tests {
		got := r.Resolve(conflict(tt.existing, tt.incoming))
		if got.Resolved != tt.resolved || got.ResolvedValue != tt.want {
			t.Errorf("Resolve(%s, %s) = %v %q, want %v %q",
				tt.existing, tt.incoming, got.Resolved, got.ResolvedValue, tt.resolved, tt.want)
		}
	}
	if err := r.Err(); err != nil {
		t.Errorf("Err() = %v", err)
	}
	if r.Calls() != 3 {
		t.Errorf("Calls() = %d, want 3", r.Calls())
	}
}

func TestResolver_ResultTypes(t *testing.T) {
	r := newResolver(t, `
function resolve(c)
  if c.key == "n" then return 2.5 end
  if c.key == "b" then return true end
  if c.key == "t" then return {} end
  return cfg.kind(c.incoming) .. ":" .. cfg.unquote(c.incoming)
end
`)

	tests := []struct {
		key      string
		resolved bool
		want     string
	}{
		{"n", true, "2.5"},
		{"b", true, "true"},
		{"t", false, ""},
		{"s", true, "string:Vesta"},
	}
	for _, tt := range tests {
		got := r.Resolve(merge.Conflict{Section: "x", Key: tt.key, IncomingValue: "'Vesta'"})
		if got.Resolved != tt.resolved || got.ResolvedValue != tt.want {
			t.Errorf("key %s: got %v %q, want %v %q", tt.key, got.Resolved, got.ResolvedValue, tt.resolved, tt.want)
		}
	}
}

func TestResolver_WithMerge(t *testing.T) {
	r := newResolver(t, maxScript)

	dst := document.New()
	dst.SetParameter("search", "max_magnitude", "16.0")
	dst.SetParameter("search", "limit", "100")
	src := document.New()
	src.SetParameter("search", "max_magnitude", "18.0")
	src.SetParameter("search", "limit", "50")

	stats, err := merge.Merge(dst, src, merge.Custom, r.Resolve)
	if err != nil {
		t.Fatalf("Merge() error: %v", err)
	}
	if stats.Conflicts != 2 || stats.ParametersModified != 1 {
		t.Errorf("stats = %+v", stats)
	}

	mag, _ := dst.GetValue("search", "max_magnitude")
	limit, _ := dst.GetValue("search", "limit")
	if mag.Literal() != "18.0" || limit.Literal() != "100" {
		t.Errorf("max_magnitude = %q, limit = %q", mag.Literal(), limit.Literal())
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		script string
		want   error
	}{
		{`x = 1`, ErrNoFunction},
		{`function resolve(c`, nil},
		{`resolve = "not a function"`, ErrNoFunction},
	}
	for _, tt := range tests {
		_, err := New(tt.script)
		if err == nil {
			t.Errorf("New(%q) succeeded", tt.script)
			continue
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("New(%q) error = %v, want %v", tt.script, err, tt.want)
		}
	}
}

func TestResolver_Sandbox(t *testing.T) {
	for _, name := range []string{"os", "io", "dofile", "loadstring", "require", "debug"} {
		r := newResolver(t, `function resolve(c) return type(`+name+`) end`)
		if got := r.Resolve(conflict("1", "2")); got.ResolvedValue != "nil" {
			t.Errorf("type(%s) = %q, want nil", name, got.ResolvedValue)
		}
	}

	r := newResolver(t, `function resolve(c) os.exit(1) end`, WithLogger(zaptest.NewLogger(t)))
	if got := r.Resolve(conflict("1", "2")); got.Resolved {
		t.Error("call into a removed library resolved")
	}
	if r.Err() == nil {
		t.Error("Err() = nil after a script error")
	}
}

func TestResolver_Timeout(t *testing.T) {
	r := newResolver(t, `
function resolve(c)
  if c.key == "loop" then
    while true do end
  end
  return c.incoming
end
`, WithTimeout(50*time.Millisecond), WithLogger(zaptest.NewLogger(t)))

	start := time.Now()
	if got := r.Resolve(merge.Conflict{Key: "loop", IncomingValue: "1"}); got.Resolved {
		t.Error("looping script resolved")
	}
	if r.Err() == nil {
		t.Error("Err() = nil after a timeout")
	}
	if d := time.Since(start); d >= 5*time.Second {
		t.Errorf("timeout took %v", d)
	}

	// The state stays usable after a timeout.
	if got := r.Resolve(merge.Conflict{Key: "ok", IncomingValue: "1"}); !got.Resolved {
		t.Error("resolver unusable after a timeout")
	}
	if err := r.Err(); err != nil {
		t.Errorf("Err() = %v after a good call", err)
	}
}

func TestResolver_Close(t *testing.T) {
	r, err := New(maxScript)
	if err != nil {
		t.Fatal(err)
	}
	r.Close()
	r.Close()

	if got := r.Resolve(conflict("1", "2")); got.Resolved {
		t.Error("closed resolver resolved")
	}
	if !errors.Is(r.Err(), ErrClosed) {
		t.Errorf("Err() = %v, want ErrClosed", r.Err())
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "max.lua")
	if err := os.WriteFile(path, []byte(maxScript), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	defer r.Close()
	if !r.Resolve(conflict("1", "2")).Resolved {
		t.Error("loaded script did not resolve")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.lua")); err == nil {
		t.Error("Load() of a missing file succeeded")
	}
}

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/dshills/cfgdoc/internal/config"
)

const (
	siteJSON   = `{"object": {"id": "17030", "name": "Sierks"}}`
	validOop   = "object.\n\t.id = '17030'\n\t.name = 'Sierks'\ntime.\n\t.start_date = '2026-01-01'\n\t.end_date = '2026-02-01'\nsearch.\n\t.max_magnitude = 16.5\n"
	invalidOop = "object.\n\t.id = '17030'\nsearch.\n\t.max_magnitude = 25\n"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &out, &errOut)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

// expect fails the test now when r did not exit with code.
func (r result) expect(t *testing.T, code int) {
	t.Helper()
	if r.code != code {
		t.Fatalf("exit code = %d, want %d\nstdout:\n%s\nstderr:\n%s", r.code, code, r.stdout, r.stderr)
	}
}

func contains(t *testing.T, s string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
}

func lacks(t *testing.T, s, unwanted string) {
	t.Helper()
	if strings.Contains(s, unwanted) {
		t.Errorf("output contains %q:\n%s", unwanted, s)
	}
}

func equal[T comparable](t *testing.T, what string, got, want T) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %v, want %v", what, got, want)
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func loadConfig(t *testing.T, path string) *config.Config {
	t.Helper()
	c := config.New()
	t.Cleanup(c.Close)
	if !c.LoadFile(path) {
		t.Fatalf("LoadFile(%s): %s", path, c.LastError())
	}
	return c
}

// waitFor polls cond until it holds or timeout passes.
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestExitCodes(t *testing.T) {
	if exitSuccess != 0 || exitFindings != 1 || exitError != 2 {
		t.Errorf("exit codes = %d/%d/%d, want 0/1/2", exitSuccess, exitFindings, exitError)
	}
}

func TestRoot(t *testing.T) {
	r := runCLI(t, "", "--version")
	r.expect(t, exitSuccess)
	contains(t, r.stdout, "cfgdoc version dev")

	r = runCLI(t, "", "frobnicate")
	r.expect(t, exitError)
	contains(t, r.stderr, "unknown command")

	path := writeFile(t, t.TempDir(), "site.json", siteJSON)
	r = runCLI(t, "", "--log-level", "loud", "paths", path)
	r.expect(t, exitError)
	contains(t, r.stderr, "Error:")
}

func TestParse(t *testing.T) {
	path := writeFile(t, t.TempDir(), "site.json", siteJSON)

	r := runCLI(t, "", "parse", path)
	r.expect(t, exitSuccess)
	if !strings.HasPrefix(r.stdout, "object.\n") {
		t.Errorf("native output = %q", r.stdout)
	}
	contains(t, r.stdout, "Sierks")

	r = runCLI(t, "", "parse", "--summary", path)
	r.expect(t, exitSuccess)
	contains(t, r.stdout, "site.json: 1 sections, 2 parameters", "  object (2)")

	r = runCLI(t, "", "parse", "--to", "json", path)
	r.expect(t, exitSuccess)
	equal(t, "object.name", gjson.Get(r.stdout, "object.name").String(), "Sierks")

	r = runCLI(t, "", "parse", filepath.Join(t.TempDir(), "missing.json"))
	r.expect(t, exitError)
	contains(t, r.stderr, "missing.json")
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "site.json", siteJSON)
	out := filepath.Join(dir, "site.yaml")

	runCLI(t, "", "convert", in, out).expect(t, exitSuccess)
	name, err := loadConfig(t, out).GetString("object", "name")
	if err != nil || name != "Sierks" {
		t.Errorf("converted name = %q, %v", name, err)
	}

	r := runCLI(t, siteJSON, "convert", "--from", "json", "--to", "toml", "-", "-")
	r.expect(t, exitSuccess)
	if !strings.HasPrefix(r.stdout, "[object]\n") {
		t.Errorf("toml output = %q", r.stdout)
	}

	r = runCLI(t, siteJSON, "convert", "-", out)
	r.expect(t, exitError)
	contains(t, r.stderr, "--from required")

	runCLI(t, "", "convert", in, filepath.Join(dir, "site.ini")).expect(t, exitError)
}

func TestGetSetPaths(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "site.json", siteJSON)

	r := runCLI(t, "", "get", path, "/object/id")
	r.expect(t, exitSuccess)
	equal(t, "get /object/id", r.stdout, "17030\n")

	r = runCLI(t, "", "get", path, "/object")
	r.expect(t, exitSuccess)
	equal(t, "get /object name", gjson.Get(r.stdout, "name").String(), "Sierks")

	r = runCLI(t, "", "get", path, "/object/missing")
	r.expect(t, exitFindings)
	contains(t, r.stderr, "not found")

	runCLI(t, "", "set", path, "/observer/site", "Calern").expect(t, exitSuccess)
	if !loadConfig(t, path).HasPath("/observer/site") {
		t.Error("set did not write /observer/site back")
	}

	runCLI(t, "", "set", path, "/a/b/c", "x").expect(t, exitError)

	other := filepath.Join(dir, "copy.oop")
	runCLI(t, "", "set", "-o", other, path, "/object/type", "asteroid").expect(t, exitSuccess)
	if !loadConfig(t, other).HasPath("/object/type") {
		t.Error("set -o output lacks /object/type")
	}
	if loadConfig(t, path).HasPath("/object/type") {
		t.Error("set -o modified the input")
	}

	r = runCLI(t, "", "paths", path)
	r.expect(t, exitSuccess)
	equal(t, "paths", r.stdout, "/object\n/object/id\n/object/name\n/observer\n/observer/site\n")
}

func TestMerge(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "base.json", `{"object": {"id": "1", "name": "X"}}`)
	other := writeFile(t, dir, "other.json", `{"object": {"id": "2", "type": "Y"}}`)
	out := filepath.Join(dir, "merged.json")

	r := runCLI(t, "", "merge", base, other, "-o", out)
	r.expect(t, exitSuccess)
	contains(t, r.stderr, "other.json: ")
	data := readFile(t, out)
	equal(t, "object.id", gjson.GetBytes(data, "object.id").String(), "2")
	equal(t, "object.name", gjson.GetBytes(data, "object.name").String(), "X")
	equal(t, "object.type", gjson.GetBytes(data, "object.type").String(), "Y")

	r = runCLI(t, "", "merge", "-s", "append", base, other)
	r.expect(t, exitSuccess)
	equal(t, "appended object.id", gjson.Get(r.stdout, "object.id").String(), "1")

	r = runCLI(t, "", "merge", "-s", "custom", base, other)
	r.expect(t, exitError)
	contains(t, r.stderr, "requires --resolver")

	script := writeFile(t, dir, "keep.lua", "function resolve(c) return c.existing end\n")
	runCLI(t, "", "merge", "--resolver", script, base, other, "-o", out).expect(t, exitSuccess)
	data = readFile(t, out)
	equal(t, "resolved object.id", gjson.GetBytes(data, "object.id").String(), "1")
	equal(t, "resolved object.type", gjson.GetBytes(data, "object.type").String(), "Y")

	r = runCLI(t, "", "merge", "-s", "sideways", base, other)
	r.expect(t, exitError)
	contains(t, r.stderr, "unknown merge strategy")
}

func TestDiff(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.json", `{"object": {"id": "1", "name": "X"}}`)
	b := writeFile(t, dir, "b.json", `{"object": {"id": "2", "name": "X", "type": "Y"}}`)

	r := runCLI(t, "", "diff", "--only-changes", a, b)
	r.expect(t, exitSuccess)
	contains(t, r.stdout, "[~] object.id: 1 → 2", "[+] object.type = Y")
	lacks(t, r.stdout, "object.name")

	r = runCLI(t, "", "diff", "--json", a, b)
	r.expect(t, exitSuccess)
	equal(t, "entries", gjson.Get(r.stdout, "#").Int(), 3)

	runCLI(t, "", "diff", "--exit-code", a, b).expect(t, exitFindings)
	runCLI(t, "", "diff", "--exit-code", a, a).expect(t, exitSuccess)
}

func TestLayers(t *testing.T) {
	dir := t.TempDir()
	defaults := writeFile(t, dir, "defaults.json", `{"search": {"limit": 100, "mode": "fast"}}`)
	site := writeFile(t, dir, "site.json", `{"search": {"limit": 50}, "object": {"name": "Vesta"}}`)
	t.Setenv("CFGDOCLAYER_SEARCH__MODE", "slow")

	r := runCLI(t, "", "layers", "--defaults", defaults, site, "--env-prefix", "CFGDOCLAYER_", "--set", "object.name=Ceres", "--to", "json")
	r.expect(t, exitSuccess)
	equal(t, "search.limit", gjson.Get(r.stdout, "search.limit").Int(), 50)
	equal(t, "search.mode", gjson.Get(r.stdout, "search.mode").String(), "slow")
	equal(t, "object.name", gjson.Get(r.stdout, "object.name").String(), "Ceres")

	r = runCLI(t, "", "layers", "--defaults", defaults, site, "--explain")
	r.expect(t, exitSuccess)
	lines := strings.Split(strings.TrimSpace(r.stdout), "\n")
	if len(lines) != 4 {
		t.Fatalf("explain printed %d lines, want 4:\n%s", len(lines), r.stdout)
	}
	contains(t, lines[1], "search.limit", site)
	contains(t, lines[2], "defaults")

	r = runCLI(t, "", "layers", site, "--set", "nodot=1")
	r.expect(t, exitError)
	contains(t, r.stderr, "want section.key=literal")
}

func TestValidateAndExportSchema(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.oop", validOop)
	bad := writeFile(t, dir, "bad.oop", invalidOop)

	r := runCLI(t, "", "validate", good)
	r.expect(t, exitSuccess)
	contains(t, r.stdout, "good.oop: valid")

	r = runCLI(t, "", "validate", good, bad)
	r.expect(t, exitFindings)
	contains(t, r.stdout,
		"object.name: missing required parameter",
		"time: missing required section",
		"search.max_magnitude: value 25 failed validation: d < 20")

	r = runCLI(t, "", "validate", "--required-only", bad)
	r.expect(t, exitFindings)
	lacks(t, r.stdout, "max_magnitude")

	schemaPath := filepath.Join(dir, "schema.json")
	runCLI(t, "", "export-schema", "-o", schemaPath).expect(t, exitSuccess)
	data := readFile(t, schemaPath)
	equal(t, "title", gjson.GetBytes(data, "title").String(), "default")

	runCLI(t, "", "validate", "--schema", schemaPath, good).expect(t, exitSuccess)

	r = runCLI(t, "", "export-schema", "--schema", schemaPath)
	r.expect(t, exitSuccess)
	if got, want := pretty.Ugly([]byte(r.stdout)), pretty.Ugly(data); !bytes.Equal(got, want) {
		t.Errorf("re-exported schema differs:\n%s\n---\n%s", got, want)
	}

	runCLI(t, "", "validate", "--schema", filepath.Join(dir, "none.json"), good).expect(t, exitError)
}

func TestBatch(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.json", `{"object": {"id": "1"}}`)
	b := writeFile(t, dir, "b.json", `{"object": {"name": "X"}, "search": {"limit": 5}}`)
	missing := filepath.Join(dir, "missing.json")

	r := runCLI(t, "", "batch", "validate", a, missing)
	r.expect(t, exitFindings)
	contains(t, r.stdout, "Total: 2, Succeeded: 1, Failed: 1", "missing.json: ")

	r = runCLI(t, "", "batch", "validate", "--use-schema", a)
	r.expect(t, exitFindings)
	contains(t, r.stdout, "time: missing required section")

	outDir := filepath.Join(dir, "out")
	if err := os.Mkdir(outDir, 0o755); err != nil {
		t.Fatal(err)
	}
	runCLI(t, "", "batch", "convert", "--to", "yaml", "--out-dir", outDir, a, b).expect(t, exitSuccess)
	for _, name := range []string{"a.yaml", "b.yaml"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("converted file: %v", err)
		}
	}

	runCLI(t, "", "batch", "convert", a).expect(t, exitError)

	merged := filepath.Join(dir, "merged.oop")
	runCLI(t, "", "batch", "merge", "-o", merged, a, b).expect(t, exitSuccess)
	c := loadConfig(t, merged)
	for _, path := range []string{"/object/id", "/object/name", "/search/limit"} {
		if !c.HasPath(path) {
			t.Errorf("merged document lacks %s", path)
		}
	}
}

func TestHistory(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "history.db")
	site := writeFile(t, dir, "site.json", `{"object": {"name": "Sierks"}}`)

	r := runCLI(t, "", "history", "--db", db, "list")
	r.expect(t, exitSuccess)
	contains(t, r.stdout, "default: no versions")

	r = runCLI(t, "", "history", "--db", db, "record", site, "-m", "initial")
	r.expect(t, exitSuccess)
	equal(t, "first record", r.stdout, "default: version 1\n")

	writeFile(t, dir, "site.json", `{"object": {"name": "Vesta"}}`)
	r = runCLI(t, "", "history", "--db", db, "record", site, "-m", "renamed")
	r.expect(t, exitSuccess)
	equal(t, "second record", r.stdout, "default: version 2\n")

	r = runCLI(t, "", "history", "--db", db, "list")
	r.expect(t, exitSuccess)
	contains(t, r.stdout, "initial", "*2")

	r = runCLI(t, "", "history", "--db", db, "restore", "1", "--to", "json")
	r.expect(t, exitSuccess)
	equal(t, "restored name", gjson.Get(r.stdout, "object.name").String(), "Sierks")

	r = runCLI(t, "", "history", "--db", db, "restore", "9")
	r.expect(t, exitError)
	contains(t, r.stderr, "no such version")

	runCLI(t, "", "history", "--db", db, "--name", "other", "record", site).expect(t, exitSuccess)
	r = runCLI(t, "", "history", "--db", db, "names")
	r.expect(t, exitSuccess)
	equal(t, "names", r.stdout, "default\nother\n")

	runCLI(t, "", "history", "--db", db, "clear").expect(t, exitSuccess)
	r = runCLI(t, "", "history", "--db", db, "list", "--json")
	r.expect(t, exitSuccess)
	equal(t, "versions", gjson.Get(r.stdout, "#").Int(), 1)
	equal(t, "description", gjson.Get(r.stdout, "0.description").String(), "History cleared")
	equal(t, "snapshot name", gjson.Get(r.stdout, "0.snapshot.sections.0.parameters.0.value").String(), "Vesta")
}

// syncBuffer is a bytes.Buffer safe for the watcher goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "site.json", siteJSON)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var out, errOut syncBuffer
	done := make(chan int, 1)
	go func() {
		done <- run(ctx, []string{"watch", "--debounce", "20ms", path}, strings.NewReader(""), &out, &errOut)
	}()

	waitFor(t, 2*time.Second, "initial report", func() bool {
		return strings.Contains(out.String(), ": 1 sections")
	})

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "site.json", `{"object": {"id": "1"}, "time": {"start_date": "2026-01-01"}}`)
	waitFor(t, 3*time.Second, "reload report", func() bool {
		return strings.Contains(out.String(), ": 2 sections")
	})

	writeFile(t, dir, "site.json", `{"object": `)
	waitFor(t, 3*time.Second, "reload failure", func() bool {
		return strings.Contains(out.String(), "reload failed")
	})

	cancel()
	select {
	case code := <-done:
		if code != exitSuccess {
			t.Errorf("watch exit code = %d\n%s", code, errOut.String())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowmaker/pkg/cache"
	flowio "github.com/matzehuels/flowmaker/pkg/io"
	"github.com/matzehuels/flowmaker/pkg/pipeline"
)

const chainFlow = `
[[nodes]]
id = "a"
x = 130
y = 70
  [[nodes.ports]]
  direction = "source"
  types = ["number"]

[[nodes]]
id = "b"
  [[nodes.ports]]
  direction = "sink"
  types = ["number"]
  [[nodes.ports]]
  direction = "source"
  types = ["number"]

[[nodes]]
id = "c"
  [[nodes.ports]]
  direction = "sink"

[[nodes]]
id = "t"
  [[nodes.ports]]
  id = "in"
  direction = "sink"
  types = ["string"]

[[links]]
from = "a"
from_port = "right-0"
to = "b"
to_port = "left-0"

[[links]]
from = "b"
from_port = "right-0"
to = "c"
to_port = "left-0"
`

// testEnv holds a flow document and a config whose cache lives in a
// temporary directory.
type testEnv struct {
	dir      string
	flow     string
	config   string
	cacheDir string
}

func newTestEnv(t *testing.T, flowDoc string) testEnv {
	t.Helper()
	dir := t.TempDir()
	env := testEnv{
		dir:      dir,
		flow:     filepath.Join(dir, "chain.toml"),
		config:   filepath.Join(dir, "config.toml"),
		cacheDir: filepath.Join(dir, "cache"),
	}
	if err := os.WriteFile(env.flow, []byte(flowDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := "[layout]\ncell_width = 100\ncell_height = 50\n\n[cache]\ndir = \"" + filepath.ToSlash(env.cacheDir) + "\"\n"
	if err := os.WriteFile(env.config, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return env
}

func (e testEnv) run(t *testing.T, args ...string) error {
	t.Helper()
	captureStdout(t)
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetArgs(append(args, "--config", e.config))
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func readPositions(t *testing.T, path string) map[string][2]float64 {
	t.Helper()
	doc, err := flowio.ImportFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	out := make(map[string][2]float64)
	for _, n := range doc.Nodes {
		out[n.ID] = [2]float64{n.X, n.Y}
	}
	return out
}

func countCacheEntries(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() && strings.HasSuffix(path, ".json") {
			n++
		}
		return nil
	})
	return n
}

func TestLayoutCommand(t *testing.T) {
	env := newTestEnv(t, chainFlow)

	if err := env.run(t, "layout", env.flow); err != nil {
		t.Fatalf("layout: %v", err)
	}

	got := readPositions(t, filepath.Join(env.dir, "chain.layout.toml"))
	want := map[string][2]float64{
		"a": {50, 25},
		"b": {50, 75},
		"c": {50, 125},
		"t": {50, 175},
	}
	for id, w := range want {
		if got[id] != w {
			t.Errorf("%s at %v, want %v", id, got[id], w)
		}
	}
	if countCacheEntries(t, env.cacheDir) != 1 {
		t.Errorf("cache entries = %d, want 1", countCacheEntries(t, env.cacheDir))
	}
}

func TestLayoutCommandFlagsOverrideConfig(t *testing.T) {
	env := newTestEnv(t, chainFlow)
	out := filepath.Join(env.dir, "out.json")

	if err := env.run(t, "layout", env.flow, "-o", out, "--cell-width", "10", "--no-cache"); err != nil {
		t.Fatalf("layout: %v", err)
	}
	got := readPositions(t, out)
	// cell width from the flag, height from the config file
	if got["b"] != [2]float64{5, 75} {
		t.Errorf("b at %v, want [5 75]", got["b"])
	}
	if countCacheEntries(t, env.cacheDir) != 0 {
		t.Error("--no-cache wrote cache entries")
	}
}

func TestLayoutCommandRejectsRenderFormats(t *testing.T) {
	env := newTestEnv(t, chainFlow)
	if err := env.run(t, "layout", env.flow, "-f", "svg"); err == nil {
		t.Error("layout -f svg should fail")
	}
}

func TestSnapCommand(t *testing.T) {
	env := newTestEnv(t, chainFlow)

	if err := env.run(t, "snap", env.flow, "-f", "yaml"); err != nil {
		t.Fatalf("snap: %v", err)
	}
	got := readPositions(t, filepath.Join(env.dir, "chain.layout.yaml"))
	if got["a"] != [2]float64{150, 75} {
		t.Errorf("a at %v, want [150 75]", got["a"])
	}
	if got["b"] != [2]float64{50, 25} {
		t.Errorf("b at %v, want [50 25]", got["b"])
	}
}

func TestRenderCommand(t *testing.T) {
	env := newTestEnv(t, chainFlow)
	base := filepath.Join(env.dir, "diagram")

	if err := env.run(t, "render", env.flow, "-f", "dot,json", "-o", base, "--mode", "none"); err != nil {
		t.Fatalf("render: %v", err)
	}

	dot, err := os.ReadFile(base + ".dot")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(dot), "digraph") {
		t.Errorf("dot output = %q", dot)
	}
	// --mode none keeps the document positions
	if got := readPositions(t, base+".json"); got["a"] != [2]float64{130, 70} {
		t.Errorf("a at %v, want [130 70]", got["a"])
	}
}

func TestRenderCommandRefusesToOverwriteInput(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, chainFlow)
	input := filepath.Join(dir, "flow.json")
	doc, err := flowio.ImportFile(env.flow)
	if err != nil {
		t.Fatal(err)
	}
	if err := flowio.ExportFile(doc, input); err != nil {
		t.Fatal(err)
	}

	if err := env.run(t, "render", input, "-f", "json,dot"); err == nil {
		t.Error("render should refuse to overwrite its input")
	}
}

func TestCheckCommand(t *testing.T) {
	env := newTestEnv(t, chainFlow+`
[[links]]
from = "b"
from_port = "right-0"
to = "t"
to_port = "in"
`)

	if err := env.run(t, "check", env.flow); err != nil {
		t.Errorf("check without --strict: %v", err)
	}
	err := env.run(t, "check", env.flow, "--strict")
	if err == nil {
		t.Fatal("check --strict should fail on a rejected link")
	}
	// one rejected link and the unconnected sink of t
	if !strings.Contains(err.Error(), "2 problems") {
		t.Errorf("error = %v", err)
	}
}

func TestRunCheckFindsCycle(t *testing.T) {
	env := newTestEnv(t, `
[[nodes]]
id = "r"
  [[nodes.ports]]
  direction = "source"

[[nodes]]
id = "x"
  [[nodes.ports]]
  direction = "sink"
  [[nodes.ports]]
  id = "back"
  direction = "sink"
  optional = true
  [[nodes.ports]]
  direction = "source"

[[nodes]]
id = "y"
  [[nodes.ports]]
  direction = "sink"
  [[nodes.ports]]
  direction = "source"

[[links]]
from = "r"
from_port = "right-0"
to = "x"
to_port = "left-0"

[[links]]
from = "x"
from_port = "right-0"
to = "y"
to_port = "left-0"

[[links]]
from = "y"
from_port = "right-0"
to = "x"
to_port = "back"
`)
	c := New(io.Discard, LogInfo)
	report, _, err := c.runCheck(context.Background(), env.flow)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.cycles) != 1 || !strings.Contains(report.cycles[0].Error(), "r -> x -> y -> x") {
		t.Errorf("cycles = %v", report.cycles)
	}
	if len(report.rejected) != 0 || len(report.notRunning) != 0 {
		t.Errorf("report = %+v", report)
	}
}

func TestCacheClearCommand(t *testing.T) {
	env := newTestEnv(t, chainFlow)
	if err := env.run(t, "layout", env.flow); err != nil {
		t.Fatal(err)
	}
	if countCacheEntries(t, env.cacheDir) == 0 {
		t.Fatal("layout left no cache entries")
	}
	if err := env.run(t, "cache", "clear"); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if n := countCacheEntries(t, env.cacheDir); n != 0 {
		t.Errorf("cache entries after clear = %d", n)
	}
}

func TestBadConfigFails(t *testing.T) {
	env := newTestEnv(t, chainFlow)
	if err := os.WriteFile(env.config, []byte("[layout]\nmode = \"spiral\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := env.run(t, "cache", "path"); err == nil {
		t.Error("invalid config should fail the command")
	}
}

func TestNewCache(t *testing.T) {
	ctx := context.Background()
	c := New(io.Discard, LogInfo)
	c.cfg.Cache.Dir = t.TempDir()

	ch, keyer, err := c.newCache(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ch.(*cache.FileCache); !ok || keyer != nil {
		t.Errorf("newCache = %T, %v; want file cache with default keyer", ch, keyer)
	}

	ch, _, _ = c.newCache(ctx, true)
	if _, ok := ch.(cache.NullCache); !ok {
		t.Errorf("--no-cache gave %T", ch)
	}

	// an unreachable redis falls back to the file cache
	c.cfg.Cache.Redis.Addr = "127.0.0.1:1"
	ch, _, err = c.newCache(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ch.(*cache.FileCache); !ok {
		t.Errorf("unreachable redis gave %T", ch)
	}
}

func TestCacheDirXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/custom-cache")
	dir, err := cacheDir()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("/tmp/custom-cache", appName); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestCacheDirDefault(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	dir, err := cacheDir()
	if err != nil {
		t.Fatal(err)
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, ".cache", appName); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestApplyConfig(t *testing.T) {
	c := New(io.Discard, LogInfo)
	c.cfg.Layout.Mode = pipeline.ModeSnap
	c.cfg.Layout.CellWidth = 30
	c.cfg.Layout.CellHeight = 40

	opts := pipeline.Options{}
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().StringVar(&opts.Mode, "mode", pipeline.ModeAuto, "")
	addLayoutFlags(cmd, &opts)
	if err := cmd.Flags().Parse([]string{"--cell-height", "7"}); err != nil {
		t.Fatal(err)
	}

	c.applyConfig(cmd, &opts)
	if opts.Mode != pipeline.ModeSnap || opts.CellWidth != 30 || opts.CellHeight != 7 {
		t.Errorf("opts = mode %q, %vx%v; want snap, 30x7", opts.Mode, opts.CellWidth, opts.CellHeight)
	}
	if opts.Logger != c.Logger {
		t.Error("applyConfig should set the CLI logger")
	}
}

func TestOutputPaths(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		formats []string
		want    map[string]string
	}{
		{"derived", "", []string{"svg"}, map[string]string{"svg": "in/flow.svg"}},
		{"single explicit", "x/out.png", []string{"svg"}, map[string]string{"svg": "x/out.png"}},
		{"several from known ext", "x/out.svg", []string{"svg", "dot"}, map[string]string{"svg": "x/out.svg", "dot": "x/out.dot"}},
		{"several from base", "x/out", []string{"svg", "dot"}, map[string]string{"svg": "x/out.svg", "dot": "x/out.dot"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := outputPaths("in/flow.toml", tt.output, tt.formats)
			for f, w := range tt.want {
				if got[f] != w {
					t.Errorf("%s -> %q, want %q", f, got[f], w)
				}
			}
		})
	}
}

func TestParseFormats(t *testing.T) {
	if got := parseFormats(""); len(got) != 1 || got[0] != pipeline.FormatSVG {
		t.Errorf("parseFormats(\"\") = %v", got)
	}
	if got := parseFormats("svg, dot,"); strings.Join(got, ",") != "svg,dot" {
		t.Errorf("parseFormats = %v", got)
	}
}

func TestFormatFromOutput(t *testing.T) {
	tests := map[string]string{
		"a.toml": pipeline.FormatTOML,
		"a.YML":  pipeline.FormatYAML,
		"a.svg":  pipeline.FormatSVG,
		"a.txt":  "fallback",
		"a":      "fallback",
	}
	for path, want := range tests {
		if got := formatFromOutput(path, "fallback"); got != want {
			t.Errorf("formatFromOutput(%q) = %q, want %q", path, got, want)
		}
	}
}

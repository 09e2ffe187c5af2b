package cmd

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/fakeyudi/annotate/internal/workspace"
)

// executeCommand runs a cobra command with the given args and captures combined output.
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	_, err = root.ExecuteC()
	return buf.String(), err
}

// run resets flag state left by earlier executions, then runs args.
func run(args ...string) (string, error) {
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	reset(rootCmd.PersistentFlags())
	for _, c := range rootCmd.Commands() {
		reset(c.Flags())
	}
	return executeCommand(rootCmd, args...)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// setupDataset creates a dataset under the default data/ layout in a fresh
// working directory: a.png with a record holding one out-of-bounds box and
// b.png with no record. XDG directories point into the same tree.
func setupDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(orig) })

	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg", "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "xdg", "state"))
	xdg.Reload()

	for _, name := range []string{"a.png", "b.png"} {
		path := filepath.Join(dir, "data", "input", name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		f, err := os.Create(path)
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 20, 10))); err != nil {
			t.Fatal(err)
		}
		f.Close()
	}
	writeFile(t, filepath.Join(dir, "data", "output", "a.json"), `{"format_version": "1.0",
  "image": {"file_name": "a.png", "relative_path": "a.png", "width": 20, "height": 10},
  "detections": [{"id": 0, "bbox": [-5, 0, 10, 5], "score": 0.8}]}`)
	return dir
}

func TestCheckReportsPendingRepairs(t *testing.T) {
	dir := setupDataset(t)
	before, _ := os.ReadFile(filepath.Join(dir, "data", "output", "a.json"))

	out, err := run("check")
	if err == nil || !strings.Contains(err.Error(), "2 records need repair") {
		t.Fatalf("err = %v", err)
	}
	for _, want := range []string{"REPAIR a.png: 1 boxes clamped", "REPAIR b.png: no record", "checked 2 images"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	after, _ := os.ReadFile(filepath.Join(dir, "data", "output", "a.json"))
	if !bytes.Equal(before, after) {
		t.Error("check without --fix modified a record")
	}
}

func TestCheckFix(t *testing.T) {
	dir := setupDataset(t)

	out, err := run("check", "--fix", "--verbose")
	if err != nil {
		t.Fatalf("check --fix: %v\n%s", err, out)
	}
	if !strings.Contains(out, "FIXED  a.png") || !strings.Contains(out, "2 fixed") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "data", "output", "b.json")); err != nil {
		t.Errorf("missing record not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "xdg", "state", "annotate", "annotate.log")); err != nil {
		t.Errorf("log file not written: %v", err)
	}

	if out, err := run("check"); err != nil {
		t.Errorf("second check failed: %v\n%s", err, out)
	}
}

func TestSummaryPrintsMarkdown(t *testing.T) {
	setupDataset(t)

	out, err := run("summary")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	for _, want := range []string{"# Annotation Summary", "Records Needing Attention", "`a.png`"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSummaryToFile(t *testing.T) {
	dir := setupDataset(t)
	path := filepath.Join(dir, "summary.md")

	if _, err := run("summary", "--out", path); err != nil {
		t.Fatalf("summary: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || !strings.Contains(string(data), "# Annotation Summary") {
		t.Errorf("summary file: %v\n%s", err, data)
	}
}

func TestRenderWritesVisualizations(t *testing.T) {
	dir := setupDataset(t)

	out, err := run("render")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "rendered 1 of 2 images") {
		t.Errorf("unexpected output: %s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "data", "visual_output", "a.png")); err != nil {
		t.Errorf("visualization not written: %v", err)
	}
}

func TestConfigLayers(t *testing.T) {
	dir := setupDataset(t)
	writeFile(t, filepath.Join(dir, ".annotate.yaml"), "line_width: 5\nbox_color: '#ff0000'\n")
	writeFile(t, filepath.Join(dir, ".env"), "ANNOTATE_OUTPUT_DIR=labels\n")

	out, err := run("config", "--input", "frames")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	for _, want := range []string{"line_width: 5", "output_dir: labels", "input_dir: frames", "ff0000"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestInvalidConfigRejected(t *testing.T) {
	dir := setupDataset(t)
	writeFile(t, filepath.Join(dir, ".annotate.json"), `{"box_color": "green"}`)

	_, err := run("check")
	if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("err = %v", err)
	}
}

func TestMissingInputDir(t *testing.T) {
	setupDataset(t)

	if _, err := run("check", "--input", "nowhere"); err == nil {
		t.Error("expected an error for a missing input directory")
	}
}

func TestEditRequiresTerminal(t *testing.T) {
	setupDataset(t)

	_, err := run("edit")
	if !errors.Is(err, errNotTerminal) {
		t.Errorf("err = %v, want errNotTerminal", err)
	}
}

func TestFindEntry(t *testing.T) {
	entries := []workspace.Entry{{RelativePath: "a.png"}, {RelativePath: "cam/b.png"}}

	if i, err := findEntry(entries, filepath.Join("cam", "b.png")); err != nil || i != 1 {
		t.Errorf("findEntry = %d, %v", i, err)
	}
	if _, err := findEntry(entries, "c.png"); err == nil {
		t.Error("expected an error for an unknown image")
	}
}

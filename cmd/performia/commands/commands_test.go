package commands

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestMapClickAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.json")

	if _, err := runCLI(t, "map", "click", "--bpm", "100", "--beats", "32", "-o", path); err != nil {
		t.Fatalf("click: %v", err)
	}
	out, err := runCLI(t, "map", "validate", path)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "32 beats") {
		t.Errorf("validate output: %s", out)
	}
}

func TestMapConvertRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "song.json")
	bin := filepath.Join(dir, "song.smp")

	if _, err := runCLI(t, "map", "click", "--beats", "64", "-o", src); err != nil {
		t.Fatalf("click: %v", err)
	}
	if _, err := runCLI(t, "map", "convert", src, bin); err != nil {
		t.Fatalf("convert: %v", err)
	}
	out, err := runCLI(t, "map", "validate", bin)
	if err != nil {
		t.Fatalf("validate converted: %v", err)
	}
	if !strings.Contains(out, "64 beats") {
		t.Errorf("converted map lost content: %s", out)
	}
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "performia") {
		t.Errorf("version output: %s", out)
	}
}

func TestValidateRejectsMissingFile(t *testing.T) {
	if _, err := runCLI(t, "map", "validate", "/does/not/exist.json"); err == nil {
		t.Error("missing file accepted")
	}
}

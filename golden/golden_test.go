package golden

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lykit/lydiff/internal/gds"
	"github.com/lykit/lydiff/internal/types"
)

func writeLayout(t *testing.T, path string, extra bool) {
	t.Helper()
	lib := gds.NewLibrary("GOLD", 0.001)
	top := lib.NewCell("TOP")
	top.AddRect(types.Layer{Number: 1, Datatype: 0}, 0, 0, 100, 100)
	if extra {
		top.AddRect(types.Layer{Number: 1, Datatype: 0}, 500, 500, 600, 600)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := lib.WriteFile(path); err != nil {
		t.Fatalf("writing layout: %v", err)
	}
}

func TestStorePaths(t *testing.T) {
	s := NewStore("/tmp/root")
	if got := s.RefPath("dev", ".gds"); got != filepath.Join("/tmp/root", "ref_layouts", "dev.gds") {
		t.Errorf("RefPath = %q", got)
	}
	if got := s.RunPath("dev", ".gds"); got != filepath.Join("/tmp/root", "run_layouts", "dev.gds") {
		t.Errorf("RunPath = %q", got)
	}
}

func TestStoreReference(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)
	candidate := filepath.Join(root, "candidate.gds")
	writeLayout(t, candidate, false)

	if s.Has("dev", ".gds") {
		t.Fatal("golden exists before storing")
	}
	if err := s.StoreReference("dev", ".gds", candidate); err != nil {
		t.Fatalf("StoreReference: %v", err)
	}
	if !s.Has("dev", ".gds") {
		t.Error("golden missing after storing")
	}
}

func TestExt(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a/b/dev.gds", ".gds"},
		{"dev.oas", ".oas"},
		{"dev.gds.gz", ".gds.gz"},
		{"noext", ""},
	}
	for _, tt := range tests {
		if got := Ext(tt.in); got != tt.want {
			t.Errorf("Ext(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDiffTestBlessesNewGolden(t *testing.T) {
	t.Setenv(StoreEnv, "1")
	s := NewStore(t.TempDir())
	DiffTest(t, s, "fresh", ".gds", func(outPath string) error {
		writeLayout(t, outPath, false)
		return nil
	}, types.DefaultCompareOptions())
	if !s.Has("fresh", ".gds") {
		t.Error("golden not stored")
	}
}

func TestDiffTestMatchingCandidate(t *testing.T) {
	s := NewStore(t.TempDir())
	writeLayout(t, s.RefPath("dev", ".gds"), false)
	DiffTest(t, s, "dev", ".gds", func(outPath string) error {
		writeLayout(t, outPath, false)
		return nil
	}, types.DefaultCompareOptions())
}

func TestScriptProducer(t *testing.T) {
	dir := t.TempDir()
	produced := filepath.Join(dir, "generator-output.gds")
	src := filepath.Join(dir, "src.gds")
	writeLayout(t, src, true)

	produce := ScriptProducer(produced, "cp", src, produced)
	out := filepath.Join(dir, "collected.gds")
	if err := produce(out); err != nil {
		t.Fatalf("producer: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("collected file missing: %v", err)
	}
	if _, err := os.Stat(produced); !os.IsNotExist(err) {
		t.Error("generator scratch file not cleaned up")
	}
}

func TestScriptProducerFailure(t *testing.T) {
	produce := ScriptProducer("out.gds", "definitely-not-a-real-binary-name")
	if err := produce(filepath.Join(t.TempDir(), "x.gds")); err == nil {
		t.Error("missing generator binary did not error")
	}
}

// Package golden supplies the golden-file side of the regression workflow:
// a directory store for reference layouts and a test helper that produces a
// candidate layout, compares it to the stored golden and fails the test when
// they differ. The comparator only ever sees two file paths; how the
// candidate was produced (in-process writer or external generator) is the
// producer's business.
package golden

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lykit/lydiff/compare"
	"github.com/lykit/lydiff/internal/types"
)

// StoreEnv, when set to a non-empty value, blesses missing goldens instead of
// failing the test.
const StoreEnv = "LYDIFF_STORE"

const (
	refDir = "ref_layouts"
	runDir = "run_layouts"
)

// Store is a directory of reference layouts plus a scratch area for candidate
// files from the current run.
type Store struct {
	Root string
}

func NewStore(root string) *Store {
	return &Store{Root: root}
}

// RefPath returns where the golden for name lives. ext includes the dot
// (".gds", ".gds.gz").
func (s *Store) RefPath(name, ext string) string {
	return filepath.Join(s.Root, refDir, name+ext)
}

// RunPath returns where the current run's candidate for name is written.
func (s *Store) RunPath(name, ext string) string {
	return filepath.Join(s.Root, runDir, name+ext)
}

// Has reports whether a golden exists for name.
func (s *Store) Has(name, ext string) bool {
	_, err := os.Stat(s.RefPath(name, ext))
	return err == nil
}

// StoreReference copies candidate into the store as the new golden for name.
func (s *Store) StoreReference(name, ext, candidate string) error {
	dst := s.RefPath(name, ext)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return copyFile(candidate, dst)
}

// Ext returns the layout extension of path, keeping compound suffixes like
// ".gds.gz" intact.
func Ext(path string) string {
	if strings.HasSuffix(path, ".gz") {
		inner := filepath.Ext(strings.TrimSuffix(path, ".gz"))
		return inner + ".gz"
	}
	return filepath.Ext(path)
}

// Producer writes a candidate layout to outPath.
type Producer func(outPath string) error

// ScriptProducer runs an external generator command and moves the file it
// produced into place, mirroring generators that are separate processes
// rather than library calls. producedFile is where the command leaves its
// output.
func ScriptProducer(producedFile string, argv ...string) Producer {
	return func(outPath string) error {
		if len(argv) == 0 {
			return fmt.Errorf("script producer needs a command")
		}
		cmd := exec.Command(argv[0], argv[1:]...)
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("generator %v: %v", argv, err)
		}
		if err := copyFile(producedFile, outPath); err != nil {
			return fmt.Errorf("collecting generator output %s: %v", producedFile, err)
		}
		return os.Remove(producedFile)
	}
}

// DiffTest produces a candidate layout for name, then compares it against the
// stored golden with the process-wide engine. A missing golden fails the test
// with blessing instructions unless LYDIFF_STORE is set, in which case the
// candidate becomes the new golden.
func DiffTest(t *testing.T, store *Store, name, ext string, produce Producer, opts types.CompareOptions) {
	t.Helper()

	candidate := store.RunPath(name, ext)
	if err := os.MkdirAll(filepath.Dir(candidate), 0o755); err != nil {
		t.Fatalf("preparing run directory: %v", err)
	}
	if err := produce(candidate); err != nil {
		t.Fatalf("producing candidate layout %s: %v", name, err)
	}

	if !store.Has(name, ext) {
		if os.Getenv(StoreEnv) != "" {
			if err := store.StoreReference(name, ext, candidate); err != nil {
				t.Fatalf("storing new golden for %s: %v", name, err)
			}
			t.Logf("stored new golden %s", store.RefPath(name, ext))
			return
		}
		t.Fatalf("no golden layout for %s; rerun with %s=1 to bless %s", name, StoreEnv, candidate)
	}

	verdict, err := compare.Compare(store.RefPath(name, ext), candidate, opts)
	if err != nil {
		for _, d := range verdict.Diagnostics {
			t.Logf("differs in %s on layer %s (%d polygons)", d.TopCell, d.Layer, d.Count)
		}
		t.Fatalf("layout regression for %s: %v", name, err)
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

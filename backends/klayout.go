package backends

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/sirupsen/logrus"

	liberrors "github.com/lykit/lydiff/internal/errors"
	"github.com/lykit/lydiff/internal/types"
)

const defaultKLayoutBinary = "klayout"

//go:embed xor.py
var xorScript []byte

// KLayoutBackend shells out to a klayout batch process. It has no region
// access of its own: load, structural checks and the XOR sweep are fused into
// one subprocess invocation, so it satisfies only the whole-pair tier and
// per-layer diagnostics are limited to whatever klayout prints. The tolerance
// is rounded to whole database units, the grain of klayout's sizing
// operation. The call blocks for the duration of the subprocess; no timeout
// is imposed.
type KLayoutBackend struct {
	// Binary overrides the executable name. Empty means "klayout".
	Binary string
	// Stdout and Stderr receive subprocess output in verbose mode; nil means
	// the process-wide streams.
	Stdout io.Writer
	Stderr io.Writer
}

func init() {
	Register(&KLayoutBackend{})
}

func (b *KLayoutBackend) Name() string           { return "external klayout process" }
func (b *KLayoutBackend) Kind() types.EngineKind { return types.EngineKLayout }

func (b *KLayoutBackend) binary() string {
	if b.Binary != "" {
		return b.Binary
	}
	return defaultKLayoutBinary
}

func (b *KLayoutBackend) ComparePair(file1, file2 string, tolerance float64, verbose bool) error {
	bin := b.binary()
	if _, err := exec.LookPath(bin); err != nil {
		return liberrors.NewToolingError(
			fmt.Sprintf("klayout executable %q not found", bin),
			"Install klayout and make sure it is on your PATH, or set klayout_path in .lydiff.yaml.",
			err,
		)
	}

	script, err := materializeScript()
	if err != nil {
		return liberrors.NewToolingError("cannot write klayout comparison script", "Check that the temp directory is writable.", err)
	}
	defer os.Remove(script)

	args := []string{
		"-b",
		"-rd", "a=" + file1,
		"-rd", "b=" + file2,
		"-rd", fmt.Sprintf("tol=%d", toleranceDBU(tolerance)),
		"-r", script,
	}
	cmd := exec.Command(bin, args...)
	if verbose {
		cmd.Stdout = b.Stdout
		cmd.Stderr = b.Stderr
		if cmd.Stdout == nil {
			cmd.Stdout = os.Stdout
		}
		if cmd.Stderr == nil {
			cmd.Stderr = os.Stderr
		}
	}
	logrus.WithFields(logrus.Fields{
		"binary": bin,
		"args":   args,
	}).Debug("running klayout comparison")

	err = cmd.Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// The script exits nonzero only for an actual difference or a
		// structural mismatch it printed about; both are "the layouts are not
		// the same" to a whole-pair engine.
		return liberrors.NewGeometryDifference(file1, file2, 0)
	}
	return liberrors.NewToolingError(
		fmt.Sprintf("failed to launch %q: %v", bin, err),
		"Install klayout and make sure it is on your PATH, or set klayout_path in .lydiff.yaml.",
		err,
	)
}

// toleranceDBU rounds the tolerance to the whole database units klayout's
// sizing operation takes.
func toleranceDBU(tolerance float64) int {
	return int(math.Round(tolerance))
}

// materializeScript writes the embedded comparison script to a temp file so
// klayout can -r it. Removed by the caller after the run.
func materializeScript() (string, error) {
	f, err := os.CreateTemp("", "lydiff-xor-*.py")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(xorScript); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return filepath.Clean(f.Name()), nil
}

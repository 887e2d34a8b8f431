package compare

import (
	"sync"

	"github.com/lykit/lydiff/backends"
	"github.com/lykit/lydiff/internal/types"
)

var (
	bindOnce     sync.Once
	boundBackend backends.Backend
	bindErr      error
)

// BoundBackend returns the process-wide geometry engine, probing and
// selecting on first use. The binding is read-only for the rest of the
// process; callers that need a specific engine construct their own Comparator
// instead.
func BoundBackend() (backends.Backend, error) {
	bindOnce.Do(func() {
		boundBackend, bindErr = backends.Select(backends.Detect(""))
	})
	return boundBackend, bindErr
}

// Compare is the programmatic entry point: compare two layout files with the
// process-wide engine. Returns normally when the layouts match; otherwise the
// error is one of the typed comparison failures. Use
// types.DefaultCompareOptions() for the historical defaults (tolerance 10,
// non-verbose).
func Compare(file1, file2 string, opts types.CompareOptions) (types.Verdict, error) {
	backend, err := BoundBackend()
	if err != nil {
		return types.Verdict{}, err
	}
	c, err := New(backend, opts)
	if err != nil {
		return types.Verdict{}, err
	}
	return c.Compare(file1, file2)
}

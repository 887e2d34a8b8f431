package errors

import (
	"errors"
	"fmt"
)

// Kind categorizes comparison failures so callers can branch on them without
// parsing message text. Geometry comparison is deterministic, so no kind is
// ever retried.
type Kind string

const (
	// KindLoad means a layout file is missing or could not be parsed.
	KindLoad Kind = "load"
	// KindStructural means the two layouts are not comparable at all: their
	// layer sets, top-cell sets, or database units disagree.
	KindStructural Kind = "structural"
	// KindGeometry means the layouts are comparable and differ beyond the
	// tolerance. This is the expected "test failed" signal.
	KindGeometry Kind = "geometry"
	// KindTooling means a geometry engine was unavailable or failed to launch.
	KindTooling Kind = "tooling"
)

// DiffError is the one error type surfaced by the comparison engine. Check is
// set for structural mismatches ("layer", "topcell" or "dbu"); Path1/Path2
// name the layout files involved where known.
type DiffError struct {
	Kind       Kind
	Check      string
	Message    string
	Path1      string
	Path2      string
	Suggestion string
	Cause      error
}

func (e *DiffError) Error() string {
	if e.Check != "" {
		return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Check, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *DiffError) Unwrap() error {
	return e.Cause
}

// UserMessage returns the message with the actionable suggestion, if any,
// appended on a second line.
func (e *DiffError) UserMessage() string {
	if e.Suggestion == "" {
		return e.Message
	}
	return e.Message + "\n" + e.Suggestion
}

// NewLoadError reports that path could not be opened or parsed.
func NewLoadError(path string, cause error) *DiffError {
	return &DiffError{
		Kind:    KindLoad,
		Message: fmt.Sprintf("cannot load layout %s: %v", path, cause),
		Path1:   path,
		Cause:   cause,
	}
}

// NewStructuralMismatch reports that two layouts are not comparable. check is
// "layer", "topcell" or "dbu".
func NewStructuralMismatch(check, message, path1, path2 string) *DiffError {
	return &DiffError{
		Kind:    KindStructural,
		Check:   check,
		Message: message,
		Path1:   path1,
		Path2:   path2,
	}
}

// NewGeometryDifference reports that two comparable layouts differ beyond the
// tolerance on n (cell, layer) pairs. n may be 0 when the engine compares at
// whole-pair grain and cannot count.
func NewGeometryDifference(path1, path2 string, n int) *DiffError {
	msg := fmt.Sprintf("differences found between layouts %s and %s", path1, path2)
	if n > 0 {
		msg = fmt.Sprintf("%s (%d differing cell/layer pairs)", msg, n)
	}
	return &DiffError{
		Kind:    KindGeometry,
		Message: msg,
		Path1:   path1,
		Path2:   path2,
	}
}

// NewToolingError reports that a geometry engine is unavailable or failed to
// start. suggestion must tell the caller how to fix their environment.
func NewToolingError(message, suggestion string, cause error) *DiffError {
	return &DiffError{
		Kind:       KindTooling,
		Message:    message,
		Suggestion: suggestion,
		Cause:      cause,
	}
}

func is(err error, kind Kind) bool {
	var de *DiffError
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

// IsLoadError reports whether err is a layout load failure.
func IsLoadError(err error) bool { return is(err, KindLoad) }

// IsStructuralMismatch reports whether err is a structural incompatibility.
func IsStructuralMismatch(err error) bool { return is(err, KindStructural) }

// IsGeometryDifference reports whether err is a beyond-tolerance difference.
func IsGeometryDifference(err error) bool { return is(err, KindGeometry) }

// IsToolingError reports whether err is an engine availability failure.
func IsToolingError(err error) bool { return is(err, KindTooling) }

package gds

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// WriteFile serializes the library as a GDSII stream. A .gz suffix selects
// gzip compression. Used by the golden workflow and by tests that need real
// layout files on disk.
func (l *Library) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var w io.Writer = f
	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(f)
		w = gz
	}
	bw := bufio.NewWriter(w)
	if err := l.Write(bw); err != nil {
		return fmt.Errorf("writing %s: %v", path, err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if gz != nil {
		return gz.Close()
	}
	return nil
}

// Write emits the library as a minimal valid GDSII stream.
func (l *Library) Write(w io.Writer) error {
	if l.DBU <= 0 {
		return fmt.Errorf("library %q has no database unit", l.Name)
	}
	name := l.Name
	if name == "" {
		name = "LIB"
	}
	var timestamps [12]int16 // all-zero modification times

	steps := []func() error{
		func() error { return writeRecord(w, recHeader, dtInt16, encodeInt16s(600)) },
		func() error { return writeRecord(w, recBgnLib, dtInt16, encodeInt16s(timestamps[:]...)) },
		func() error { return writeRecord(w, recLibName, dtASCII, encodeASCII(name)) },
		func() error {
			// User unit is the micron: dbu in user units, then dbu in meters.
			return writeRecord(w, recUnits, dtReal64, encodeReal64s(l.DBU, l.DBU*1e-6))
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	for _, c := range l.Cells {
		if err := l.writeCell(w, c, timestamps[:]); err != nil {
			return fmt.Errorf("cell %q: %v", c.Name, err)
		}
	}
	return writeRecord(w, recEndLib, dtNone, nil)
}

func (l *Library) writeCell(w io.Writer, c *Cell, timestamps []int16) error {
	if err := writeRecord(w, recBgnStr, dtInt16, encodeInt16s(timestamps...)); err != nil {
		return err
	}
	if err := writeRecord(w, recStrName, dtASCII, encodeASCII(c.Name)); err != nil {
		return err
	}
	for _, s := range c.Shapes {
		if err := writeShape(w, s); err != nil {
			return err
		}
	}
	for _, r := range c.Refs {
		if err := writeRef(w, r); err != nil {
			return err
		}
	}
	return writeRecord(w, recEndStr, dtNone, nil)
}

func writeShape(w io.Writer, s Shape) error {
	var start byte
	dtRec := byte(recDatatype)
	switch s.Kind {
	case ShapeBoundary:
		start = recBoundary
	case ShapePath:
		start = recPath
	case ShapeBox:
		start = recBox
		dtRec = recBoxType
	default:
		return fmt.Errorf("unknown shape kind %q", s.Kind)
	}
	if err := writeRecord(w, start, dtNone, nil); err != nil {
		return err
	}
	if err := writeRecord(w, recLayer, dtInt16, encodeInt16s(s.Layer.Number)); err != nil {
		return err
	}
	if err := writeRecord(w, dtRec, dtInt16, encodeInt16s(s.Layer.Datatype)); err != nil {
		return err
	}
	if s.Kind == ShapePath {
		if s.PathType != 0 {
			if err := writeRecord(w, recPathType, dtInt16, encodeInt16s(s.PathType)); err != nil {
				return err
			}
		}
		if err := writeRecord(w, recWidth, dtInt32, encodeInt32s(s.Width)); err != nil {
			return err
		}
	}
	xy := s.XY
	if s.Kind != ShapePath {
		xy = closeLoop(xy)
	}
	if err := writeRecord(w, recXY, dtInt32, encodeInt32s(xy...)); err != nil {
		return err
	}
	return writeRecord(w, recEndEl, dtNone, nil)
}

func writeRef(w io.Writer, r Ref) error {
	arrayed := r.Cols > 0 || r.Rows > 0
	start := byte(recSRef)
	if arrayed {
		start = recARef
	}
	if err := writeRecord(w, start, dtNone, nil); err != nil {
		return err
	}
	if err := writeRecord(w, recSName, dtASCII, encodeASCII(r.Target)); err != nil {
		return err
	}
	if r.Reflect || r.Angle != 0 || (r.Mag != 0 && r.Mag != 1) {
		var bits int16
		if r.Reflect {
			bits = int16(-0x8000)
		}
		if err := writeRecord(w, recSTrans, dtBitArray, encodeInt16s(bits)); err != nil {
			return err
		}
		if r.Mag != 0 && r.Mag != 1 {
			if err := writeRecord(w, recMag, dtReal64, encodeReal64s(r.Mag)); err != nil {
				return err
			}
		}
		if r.Angle != 0 {
			if err := writeRecord(w, recAngle, dtReal64, encodeReal64s(r.Angle)); err != nil {
				return err
			}
		}
	}
	if arrayed {
		cols, rows := r.Cols, r.Rows
		if cols < 1 || rows < 1 {
			return fmt.Errorf("array reference to %q needs positive COLROW, got %dx%d", r.Target, cols, rows)
		}
		if err := writeRecord(w, recColRow, dtInt16, encodeInt16s(cols, rows)); err != nil {
			return err
		}
		xy := encodeInt32s(
			r.X, r.Y,
			r.X+int32(r.ColVec.X*float64(cols)), r.Y+int32(r.ColVec.Y*float64(cols)),
			r.X+int32(r.RowVec.X*float64(rows)), r.Y+int32(r.RowVec.Y*float64(rows)),
		)
		if err := writeRecord(w, recXY, dtInt32, xy); err != nil {
			return err
		}
	} else {
		if err := writeRecord(w, recXY, dtInt32, encodeInt32s(r.X, r.Y)); err != nil {
			return err
		}
	}
	return writeRecord(w, recEndEl, dtNone, nil)
}

// closeLoop appends the first point when the outline is not explicitly closed.
func closeLoop(xy []int32) []int32 {
	n := len(xy)
	if n < 2 || (xy[0] == xy[n-2] && xy[1] == xy[n-1]) {
		return xy
	}
	out := make([]int32, n, n+2)
	copy(out, xy)
	return append(out, xy[0], xy[1])
}

package gds

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"

	liberrors "github.com/lykit/lydiff/internal/errors"
	"github.com/lykit/lydiff/internal/types"
)

// ReadFile opens and parses a GDSII stream file. Gzip-compressed files
// (.gds.gz) are detected by magic bytes and decompressed transparently.
// Failures come back as a load error carrying the path.
func ReadFile(path string) (*Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, liberrors.NewLoadError(path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err != nil {
		return nil, liberrors.NewLoadError(path, fmt.Errorf("reading header: %v", err))
	}
	var src io.Reader = br
	if magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, liberrors.NewLoadError(path, fmt.Errorf("gzip: %v", err))
		}
		defer gz.Close()
		src = gz
	}

	lib, err := Read(src)
	if err != nil {
		return nil, liberrors.NewLoadError(path, err)
	}
	return lib, nil
}

// Read parses a GDSII stream. Records a comparison has no use for (texts,
// nodes, properties) are skipped.
func Read(r io.Reader) (*Library, error) {
	lib := NewLibrary("", 0)
	var cur *Cell
	sawUnits := false
	for {
		rec, err := readRecord(r)
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("unexpected end of stream before ENDLIB")
		}
		if err != nil {
			return nil, err
		}
		switch rec.typ {
		case recHeader, recBgnLib, recBgnStr:
			// Version and timestamps carry no geometry.
		case recLibName:
			lib.Name = rec.str()
		case recUnits:
			reals := rec.real64s()
			if len(reals) < 2 {
				return nil, fmt.Errorf("UNITS record with %d values, want 2", len(reals))
			}
			lib.DBU = reals[1] * 1e6 // meters per dbu -> microns per dbu
			sawUnits = true
		case recStrName:
			cur = &Cell{Name: rec.str()}
		case recEndStr:
			if cur == nil {
				return nil, fmt.Errorf("ENDSTR outside of a structure")
			}
			lib.addCell(cur)
			cur = nil
		case recBoundary, recPath, recBox:
			if cur == nil {
				return nil, fmt.Errorf("element record 0x%02x outside of a structure", rec.typ)
			}
			kind := ShapeBoundary
			switch rec.typ {
			case recPath:
				kind = ShapePath
			case recBox:
				kind = ShapeBox
			}
			shape, err := readShape(r, kind)
			if err != nil {
				return nil, err
			}
			cur.Shapes = append(cur.Shapes, shape)
		case recSRef, recARef:
			if cur == nil {
				return nil, fmt.Errorf("reference record outside of a structure")
			}
			ref, err := readRef(r, rec.typ == recARef)
			if err != nil {
				return nil, err
			}
			cur.Refs = append(cur.Refs, ref)
		case recText, recNode:
			if err := skipElement(r); err != nil {
				return nil, err
			}
		case recEndLib:
			if !sawUnits {
				return nil, fmt.Errorf("stream has no UNITS record")
			}
			return lib, nil
		default:
			// Unknown or irrelevant record; payload already consumed.
		}
	}
}

func readShape(r io.Reader, kind ShapeKind) (Shape, error) {
	s := Shape{Kind: kind}
	var layer, datatype int16
	for {
		rec, err := readRecord(r)
		if err != nil {
			return Shape{}, fmt.Errorf("inside %s element: %v", kind, err)
		}
		switch rec.typ {
		case recLayer:
			layer, err = firstInt16(rec)
		case recDatatype, recBoxType:
			datatype, err = firstInt16(rec)
		case recWidth:
			vals := rec.int32s()
			if len(vals) == 0 {
				err = fmt.Errorf("empty WIDTH record")
			} else {
				s.Width = vals[0]
			}
		case recPathType:
			s.PathType, err = firstInt16(rec)
		case recXY:
			s.XY = rec.int32s()
		case recEndEl:
			s.Layer = types.Layer{Number: layer, Datatype: datatype}
			return s, nil
		}
		if err != nil {
			return Shape{}, fmt.Errorf("inside %s element: %v", kind, err)
		}
	}
}

func readRef(r io.Reader, arrayed bool) (Ref, error) {
	ref := Ref{}
	var xy []int32
	for {
		rec, err := readRecord(r)
		if err != nil {
			return Ref{}, fmt.Errorf("inside reference element: %v", err)
		}
		switch rec.typ {
		case recSName:
			ref.Target = rec.str()
		case recSTrans:
			var bits int16
			bits, err = firstInt16(rec)
			ref.Reflect = uint16(bits)&0x8000 != 0
		case recMag:
			vals := rec.real64s()
			if len(vals) > 0 {
				ref.Mag = vals[0]
			}
		case recAngle:
			vals := rec.real64s()
			if len(vals) > 0 {
				ref.Angle = vals[0]
			}
		case recColRow:
			vals := rec.int16s()
			if len(vals) < 2 {
				err = fmt.Errorf("COLROW record with %d values, want 2", len(vals))
			} else {
				ref.Cols, ref.Rows = vals[0], vals[1]
			}
		case recXY:
			xy = rec.int32s()
		case recEndEl:
			if len(xy) < 2 {
				return Ref{}, fmt.Errorf("reference to %q has no placement point", ref.Target)
			}
			ref.X, ref.Y = xy[0], xy[1]
			if arrayed {
				if len(xy) < 6 || ref.Cols < 1 || ref.Rows < 1 {
					return Ref{}, fmt.Errorf("array reference to %q has malformed lattice", ref.Target)
				}
				ref.ColVec.X = float64(xy[2]-xy[0]) / float64(ref.Cols)
				ref.ColVec.Y = float64(xy[3]-xy[1]) / float64(ref.Cols)
				ref.RowVec.X = float64(xy[4]-xy[0]) / float64(ref.Rows)
				ref.RowVec.Y = float64(xy[5]-xy[1]) / float64(ref.Rows)
			}
			return ref, nil
		}
		if err != nil {
			return Ref{}, fmt.Errorf("inside reference element: %v", err)
		}
	}
}

func skipElement(r io.Reader) error {
	for {
		rec, err := readRecord(r)
		if err != nil {
			return err
		}
		if rec.typ == recEndEl {
			return nil
		}
	}
}

func firstInt16(rec *record) (int16, error) {
	vals := rec.int16s()
	if len(vals) == 0 {
		return 0, fmt.Errorf("empty record 0x%02x", rec.typ)
	}
	return vals[0], nil
}

package gds

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
)

// GDSII stream record types. Only the records a comparison needs are handled;
// everything else is skipped by the reader.
const (
	recHeader   = 0x00
	recBgnLib   = 0x01
	recLibName  = 0x02
	recUnits    = 0x03
	recEndLib   = 0x04
	recBgnStr   = 0x05
	recStrName  = 0x06
	recEndStr   = 0x07
	recBoundary = 0x08
	recPath     = 0x09
	recSRef     = 0x0a
	recARef     = 0x0b
	recText     = 0x0c
	recLayer    = 0x0d
	recDatatype = 0x0e
	recWidth    = 0x0f
	recXY       = 0x10
	recEndEl    = 0x11
	recSName    = 0x12
	recColRow   = 0x13
	recNode     = 0x15
	recTextType = 0x16
	recString   = 0x19
	recSTrans   = 0x1a
	recMag      = 0x1b
	recAngle    = 0x1c
	recPathType = 0x21
	recNodeType = 0x2a
	recBox      = 0x2d
	recBoxType  = 0x2e
)

// Data type codes from the record header.
const (
	dtNone     = 0
	dtBitArray = 1
	dtInt16    = 2
	dtInt32    = 3
	dtReal32   = 4
	dtReal64   = 5
	dtASCII    = 6
)

// record is one framed GDSII record: 2-byte total length (header included),
// record type, data type, payload.
type record struct {
	typ  byte
	dt   byte
	data []byte
}

func readRecord(r io.Reader) (*record, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint16(hdr[:2])
	if length < 4 || length%2 != 0 {
		return nil, fmt.Errorf("invalid record length %d", length)
	}
	rec := &record{typ: hdr[2], dt: hdr[3]}
	if length > 4 {
		rec.data = make([]byte, length-4)
		if _, err := io.ReadFull(r, rec.data); err != nil {
			return nil, fmt.Errorf("truncated record 0x%02x: %v", rec.typ, err)
		}
	}
	return rec, nil
}

func writeRecord(w io.Writer, typ, dt byte, data []byte) error {
	if len(data)+4 > math.MaxUint16 {
		return fmt.Errorf("record 0x%02x payload too large: %d bytes", typ, len(data))
	}
	var hdr [4]byte
	binary.BigEndian.PutUint16(hdr[:2], uint16(len(data)+4))
	hdr[2], hdr[3] = typ, dt
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func (r *record) int16s() []int16 {
	out := make([]int16, len(r.data)/2)
	for i := range out {
		out[i] = int16(binary.BigEndian.Uint16(r.data[2*i:]))
	}
	return out
}

func (r *record) int32s() []int32 {
	out := make([]int32, len(r.data)/4)
	for i := range out {
		out[i] = int32(binary.BigEndian.Uint32(r.data[4*i:]))
	}
	return out
}

func (r *record) real64s() []float64 {
	out := make([]float64, len(r.data)/8)
	for i := range out {
		out[i] = decodeReal64(binary.BigEndian.Uint64(r.data[8*i:]))
	}
	return out
}

func (r *record) str() string {
	return strings.TrimRight(string(r.data), "\x00")
}

// decodeReal64 decodes the GDSII excess-64 floating point format: sign bit,
// 7-bit base-16 exponent, 56-bit mantissa fraction.
func decodeReal64(bits uint64) float64 {
	if bits == 0 {
		return 0
	}
	sign := 1.0
	if bits&(1<<63) != 0 {
		sign = -1
	}
	exp := int((bits>>56)&0x7f) - 64
	mant := float64(bits&0x00ffffffffffffff) / float64(uint64(1)<<56)
	return sign * mant * math.Pow(16, float64(exp))
}

// encodeReal64 is the inverse of decodeReal64.
func encodeReal64(v float64) uint64 {
	if v == 0 {
		return 0
	}
	var sign uint64
	if v < 0 {
		sign = 1 << 63
		v = -v
	}
	exp := 64
	for v >= 1 {
		v /= 16
		exp++
	}
	for v < 1.0/16 {
		v *= 16
		exp--
	}
	mant := uint64(math.Round(v * float64(uint64(1)<<56)))
	if mant >= 1<<56 {
		mant >>= 4
		exp++
	}
	return sign | uint64(exp)<<56 | mant
}

func encodeInt16s(vals ...int16) []byte {
	out := make([]byte, 2*len(vals))
	for i, v := range vals {
		binary.BigEndian.PutUint16(out[2*i:], uint16(v))
	}
	return out
}

func encodeInt32s(vals ...int32) []byte {
	out := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.BigEndian.PutUint32(out[4*i:], uint32(v))
	}
	return out
}

func encodeReal64s(vals ...float64) []byte {
	out := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.BigEndian.PutUint64(out[8*i:], encodeReal64(v))
	}
	return out
}

func encodeASCII(s string) []byte {
	if len(s)%2 != 0 {
		s += "\x00"
	}
	return []byte(s)
}

package types

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Tuple is an immutable, positional row image: spec.md §3's "tuple is an
// immutable byte image interpreted by a schema", kept here as an
// in-memory Value slice with an Encode/Decode pair so TableHeap (the
// SPEC_FULL.md catalog supplement) can persist it through the buffer
// pool's byte-addressed pages.
type Tuple struct {
	Values []Value
}

// NewTuple builds a Tuple from values in schema-column order.
func NewTuple(values ...Value) Tuple { return Tuple{Values: values} }

// GetValue returns the value at column index i.
func (t Tuple) GetValue(i int) Value {
	if i < 0 || i >= len(t.Values) {
		panic(fmt.Sprintf("types: tuple column index %d out of range for %d values", i, len(t.Values)))
	}
	return t.Values[i]
}

// Project extracts the columns at indexes, in order, used to build an
// index key tuple from a table row.
func (t Tuple) Project(indexes []int) Tuple {
	out := make([]Value, len(indexes))
	for i, idx := range indexes {
		out[i] = t.GetValue(idx)
	}
	return Tuple{Values: out}
}

// Clone returns a deep-enough copy (Values reallocated; the scalar
// fields within each Value are already value types).
func (t Tuple) Clone() Tuple {
	out := make([]Value, len(t.Values))
	copy(out, t.Values)
	return Tuple{Values: out}
}

const (
	tagNull   = 0
	tagInt    = 1
	tagFloat  = 2
	tagString = 3
	tagBool   = 4
)

func encodeValue(buf []byte, v Value) []byte {
	switch v.Kind {
	case KindNull:
		return append(buf, tagNull)
	case KindInt:
		buf = append(buf, tagInt)
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], uint64(v.I))
		return append(buf, tmp[:]...)
	case KindFloat:
		buf = append(buf, tagFloat)
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v.F))
		return append(buf, tmp[:]...)
	case KindString:
		buf = append(buf, tagString)
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], uint32(len(v.S)))
		buf = append(buf, tmp[:]...)
		return append(buf, v.S...)
	case KindBool:
		buf = append(buf, tagBool)
		if v.B {
			return append(buf, 1)
		}
		return append(buf, 0)
	default:
		panic(fmt.Sprintf("types: cannot encode unknown Kind %d", uint8(v.Kind)))
	}
}

func decodeValue(buf []byte) (Value, []byte) {
	if len(buf) == 0 {
		panic("types: decodeValue on empty buffer")
	}
	tag, rest := buf[0], buf[1:]
	switch tag {
	case tagNull:
		return Null, rest
	case tagInt:
		v := int64(binary.LittleEndian.Uint64(rest[:8]))
		return NewInt(v), rest[8:]
	case tagFloat:
		bits := binary.LittleEndian.Uint64(rest[:8])
		return NewFloat(math.Float64frombits(bits)), rest[8:]
	case tagString:
		n := binary.LittleEndian.Uint32(rest[:4])
		rest = rest[4:]
		return NewString(string(rest[:n])), rest[n:]
	case tagBool:
		return NewBool(rest[0] != 0), rest[1:]
	default:
		panic(fmt.Sprintf("types: decodeValue: unknown tag %d", tag))
	}
}

// Encode serializes t to a self-describing byte slice (each value
// carries its own type tag, so Decode does not need a schema).
func (t Tuple) Encode() []byte {
	buf := make([]byte, 0, 16*len(t.Values))
	for _, v := range t.Values {
		buf = encodeValue(buf, v)
	}
	return buf
}

// DecodeTuple parses a byte slice produced by Encode back into a Tuple
// with n values.
func DecodeTuple(buf []byte, n int) Tuple {
	values := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		var v Value
		v, buf = decodeValue(buf)
		values = append(values, v)
	}
	return Tuple{Values: values}
}

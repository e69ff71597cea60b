// Package psftest builds synthetic PSF byte streams for tests, following
// the on-disk grammar exactly. It is deliberately separate from pkg/psf:
// the main package never gains write support, but testing the decoder's
// round trip needs fixtures built to the same bit-exact grammar it reads.
//
// The streaming-and-patch-the-length-placeholder technique mirrors a
// common section writer idiom (reserve space, fill the body, patch the
// recorded size once it's known), adapted here to an in-memory byte slice
// rather than a seekable file.
package psftest

import (
	"encoding/binary"
	"math"
)

// Tag and marker values, duplicated from pkg/psf's unexported constants
// since this package must build fixtures without importing decoder
// internals.
const (
	TagTypeDef       = 16
	TagGroup         = 17
	TagSubtypeMember = 18
	TagZeroPad       = 20
	TagPropString    = 33
	TagPropInt32     = 34
	TagPropDouble    = 35

	MarkerTypeStart  = 1
	MarkerSweepStart = 2
	MarkerTraceStart = 3
	MarkerValueStart = 4

	DTInt8          = 1
	DTString        = 2
	DTArray         = 3
	DTInt32         = 5
	DTDouble        = 11
	DTComplexDouble = 12
	DTStruct        = 16
)

// Builder accumulates a PSF byte stream.
type Builder struct {
	buf []byte
}

// New returns an empty Builder.
func New() *Builder { return &Builder{} }

// Bytes returns the accumulated stream.
func (b *Builder) Bytes() []byte { return b.buf }

// Len returns the current stream length.
func (b *Builder) Len() int { return len(b.buf) }

func (b *Builder) U32(v uint32) *Builder {
	b.buf = binary.BigEndian.AppendUint32(b.buf, v)
	return b
}

func (b *Builder) I32(v int32) *Builder { return b.U32(uint32(v)) }

// I8Word writes a full 4-byte word whose low byte is v, matching how
// read_i8 consumes a full word and keeps only the low byte.
func (b *Builder) I8Word(v int8) *Builder { return b.U32(uint32(uint8(v))) }

func (b *Builder) F64(v float64) *Builder {
	b.buf = binary.BigEndian.AppendUint64(b.buf, math.Float64bits(v))
	return b
}

// Str writes a length-prefixed, word-aligned string.
func (b *Builder) Str(s string) *Builder {
	b.U32(uint32(len(s)))
	b.buf = append(b.buf, s...)
	pad := (4 - len(s)%4) % 4
	for i := 0; i < pad; i++ {
		b.buf = append(b.buf, 0)
	}
	return b
}

// Raw appends p verbatim.
func (b *Builder) Raw(p []byte) *Builder {
	b.buf = append(b.buf, p...)
	return b
}

// Zeros appends n zero bytes.
func (b *Builder) Zeros(n int) *Builder {
	for i := 0; i < n; i++ {
		b.buf = append(b.buf, 0)
	}
	return b
}

// MajorSection writes a (code=21, end_pos) preamble, runs body, writes the
// end marker word, and patches end_pos to point just past that marker.
func (b *Builder) MajorSection(body func(*Builder)) *Builder {
	b.U32(21)
	placeholder := len(b.buf)
	b.U32(0)
	body(b)
	b.U32(0) // end marker; value not interpreted by the decoder
	endPos := uint32(len(b.buf))
	binary.BigEndian.PutUint32(b.buf[placeholder:placeholder+4], endPos)
	return b
}

// MinorPreamble writes a (code=22, sub_end_pos) preamble bounding body,
// patching sub_end_pos once body's length is known.
func (b *Builder) MinorPreamble(body func(*Builder)) *Builder {
	b.U32(22)
	placeholder := len(b.buf)
	b.U32(0)
	body(b)
	subEnd := uint32(len(b.buf))
	binary.BigEndian.PutUint32(b.buf[placeholder:placeholder+4], subEnd)
	return b
}

// IndexTrailer writes index_type, index_size_bytes, and entries (each
// wordsPerEntry uint32s), matching the read-and-discard trailer format.
func (b *Builder) IndexTrailer(wordsPerEntry int, entries [][]uint32) *Builder {
	b.U32(0) // index_type, not interpreted by the decoder
	entrySize := uint32(wordsPerEntry * 4)
	b.U32(entrySize * uint32(len(entries)))
	for _, e := range entries {
		for _, w := range e {
			b.U32(w)
		}
	}
	return b
}

// Prop* write one property entry each. Property lists are
// self-terminating: whatever tag follows the last one (naturally, by
// composition order) signals the end.

func (b *Builder) PropString(name, val string) *Builder {
	b.U32(TagPropString)
	b.Str(name)
	b.Str(val)
	return b
}

func (b *Builder) PropInt32(name string, val int32) *Builder {
	b.U32(TagPropInt32)
	b.Str(name)
	b.I32(val)
	return b
}

func (b *Builder) PropDouble(name string, val float64) *Builder {
	b.U32(TagPropDouble)
	b.Str(name)
	b.F64(val)
	return b
}

// SimpleType writes a non-struct TypeDef entry; props writes zero or more
// property entries for it.
func (b *Builder) SimpleType(id uint32, name string, dataTypeTag uint32, props func(*Builder)) *Builder {
	b.U32(TagTypeDef)
	b.U32(id)
	b.Str(name)
	b.U32(0) // array_type
	b.U32(dataTypeTag)
	if props != nil {
		props(b)
	}
	return b
}

// StructType writes a struct TypeDef entry; fields writes the tag-18
// prefixed subtype member list (via SubtypeMember); props writes this
// type's own properties.
func (b *Builder) StructType(id uint32, name string, fields func(*Builder), props func(*Builder)) *Builder {
	b.U32(TagTypeDef)
	b.U32(id)
	b.Str(name)
	b.U32(0)
	b.U32(DTStruct)
	if fields != nil {
		fields(b)
	}
	if props != nil {
		props(b)
	}
	return b
}

// SubtypeMember writes one tag-18-prefixed struct field, itself a full
// (non-struct) TypeDef.
func (b *Builder) SubtypeMember(id uint32, name string, dataTypeTag uint32) *Builder {
	b.U32(TagSubtypeMember)
	b.SimpleType(id, name, dataTypeTag, nil)
	return b
}

// SubtypeMemberStruct writes one tag-18-prefixed struct field whose own
// type is itself a struct (struct-of-struct nesting, spec.md §4.3's
// "recursion is bounded only by file contents").
func (b *Builder) SubtypeMemberStruct(id uint32, name string, fields func(*Builder)) *Builder {
	b.U32(TagSubtypeMember)
	b.StructType(id, name, fields, nil)
	return b
}

// Variable writes one Variable entry; props writes its properties.
func (b *Builder) Variable(id uint32, name string, typeID uint32, props func(*Builder)) *Builder {
	b.U32(TagTypeDef)
	b.U32(id)
	b.Str(name)
	b.U32(typeID)
	if props != nil {
		props(b)
	}
	return b
}

// GroupN writes one Group entry whose declared length is n; memberAt(i) is
// called for i in [0, n) to write each member Variable.
func (b *Builder) GroupN(id uint32, name string, n int, memberAt func(b *Builder, i int)) *Builder {
	b.U32(TagGroup)
	b.U32(id)
	b.Str(name)
	b.U32(uint32(n))
	for i := 0; i < n; i++ {
		memberAt(b, i)
	}
	return b
}

// NonsweepValue writes one NonsweepValue record.
func (b *Builder) NonsweepValue(id uint32, name string, typeID uint32, value []byte, props func(*Builder)) *Builder {
	b.U32(TagTypeDef)
	b.U32(id)
	b.Str(name)
	b.U32(typeID)
	b.Raw(value)
	if props != nil {
		props(b)
	}
	return b
}

// FlatSweepRecord writes one (record_code, var_id, value) triplet.
func (b *Builder) FlatSweepRecord(varID uint32, value []byte) *Builder {
	b.U32(0) // record_code, discarded by the decoder
	b.U32(varID)
	b.Raw(value)
	return b
}

// WindowHeader writes the per-window (window_code=16, size_word) pair,
// packing windowsRemaining/n into the high/low 16 bits of size_word.
func (b *Builder) WindowHeader(windowsRemaining uint16, n uint16) *Builder {
	b.U32(TagTypeDef)
	b.U32(uint32(windowsRemaining)<<16 | uint32(n))
	return b
}

// ZeroPadPrelude writes the value-section zero-padding prelude: an opaque
// (code, size) pair followed by size zero bytes.
func (b *Builder) ZeroPadPrelude(code uint32, size int) *Builder {
	b.U32(code)
	b.U32(uint32(size))
	return b.Zeros(size)
}

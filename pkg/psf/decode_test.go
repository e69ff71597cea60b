package psf

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"testing"

	"github.com/cadence-tools/psfdecode/pkg/psf/psftest"
	"github.com/cadence-tools/psfdecode/pkg/sink"
	"github.com/cadence-tools/psfdecode/pkg/sink/sinktest"
)

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

func beUint64(b []byte) uint64 { return binary.BigEndian.Uint64(b) }

func be32(b []byte) int32 { return int32(binary.BigEndian.Uint32(b)) }

// fileHeader writes the file magic word plus a header major section
// carrying props, leaving the stream ready for the next top-level marker.
func fileHeader(b *psftest.Builder, props func(*psftest.Builder)) {
	b.U32(0x01020304) // file magic, discarded by the decoder
	b.MajorSection(func(b *psftest.Builder) {
		if props != nil {
			props(b)
		}
	})
}

// emptyValueSection writes a VALUE_START marker and a NoSweep value
// section with zero records, matching the NonsweepValue grammar.
func emptyValueSection(b *psftest.Builder) {
	b.U32(psftest.MarkerValueStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.MinorPreamble(func(b *psftest.Builder) {})
		b.IndexTrailer(2, nil)
	})
}

func TestDecode_HeaderOnly(t *testing.T) {
	t.Parallel()

	b := psftest.New()
	fileHeader(b, func(b *psftest.Builder) {
		b.PropString("PSF version", "5.0")
	})
	emptyValueSection(b)

	s := sinktest.New()
	df, err := Decode(context.Background(), bytesReader(b.Bytes()), s)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if df.Types.byID == nil || len(df.Types.byID) != 0 {
		t.Fatalf("expected empty TypeMap, got %d entries", len(df.Types.byID))
	}
	if len(df.Sweeps) != 0 || len(df.Traces) != 0 {
		t.Fatalf("expected no sweeps/traces, got %d/%d", len(df.Sweeps), len(df.Traces))
	}
	if df.ValueMode.Kind != NoSweep {
		t.Fatalf("expected NoSweep mode, got %v", df.ValueMode.Kind)
	}
	if v, ok := df.Header.String("PSF version"); !ok || v != "5.0" {
		t.Fatalf("expected header property PSF version=5.0, got %q, ok=%v", v, ok)
	}
	if len(s.Datasets) != 0 {
		t.Fatalf("expected no datasets written, got %d", len(s.Datasets))
	}
	if !s.Finished {
		t.Fatalf("expected Finish to be called")
	}
}

func TestDecode_NonsweepSingleDouble(t *testing.T) {
	t.Parallel()

	b := psftest.New()
	fileHeader(b, nil)
	b.U32(psftest.MarkerTypeStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.MinorPreamble(func(b *psftest.Builder) {
			b.SimpleType(1, "double", psftest.DTDouble, nil)
		})
		b.IndexTrailer(2, nil)
	})
	b.U32(psftest.MarkerValueStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.MinorPreamble(func(b *psftest.Builder) {
			value := psftest.New().F64(3.5).Bytes()
			b.NonsweepValue(1, "x", 1, value, nil)
		})
		b.IndexTrailer(2, nil)
	})

	s := sinktest.New()
	df, err := Decode(context.Background(), bytesReader(b.Bytes()), s)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if df.ValueMode.Kind != NoSweep {
		t.Fatalf("expected NoSweep mode, got %v", df.ValueMode.Kind)
	}

	ds := s.ByName("x")
	if ds == nil {
		t.Fatalf("expected dataset %q", "x")
	}
	if ds.Length != 1 {
		t.Fatalf("expected length 1, got %d", ds.Length)
	}
	if !ds.Closed {
		t.Fatalf("expected dataset to be closed")
	}
	if len(ds.Properties) != 0 {
		t.Fatalf("expected no attributes, got %d", len(ds.Properties))
	}
	got := math.Float64frombits(beUint64(ds.Data))
	if got != 3.5 {
		t.Fatalf("expected value 3.5, got %v", got)
	}
}

// TestDecode_NonsweepInt8 drives an Int8 value through the real decode
// path: the on-disk value is a full 4-byte word with only the low byte
// significant (spec.md §3, §4.1 read_i8), so this pins the word shape the
// decoder hands to the sink even though sinktest itself only stores raw
// bytes and can't catch a sink-side misinterpretation of them.
func TestDecode_NonsweepInt8(t *testing.T) {
	t.Parallel()

	b := psftest.New()
	fileHeader(b, nil)
	b.U32(psftest.MarkerTypeStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.MinorPreamble(func(b *psftest.Builder) {
			b.SimpleType(1, "flag", psftest.DTInt8, nil)
		})
		b.IndexTrailer(2, nil)
	})
	b.U32(psftest.MarkerValueStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.MinorPreamble(func(b *psftest.Builder) {
			value := psftest.New().I8Word(-1).Bytes()
			b.NonsweepValue(1, "flag", 1, value, nil)
		})
		b.IndexTrailer(2, nil)
	})

	s := sinktest.New()
	_, err := Decode(context.Background(), bytesReader(b.Bytes()), s)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	ds := s.ByName("flag")
	if ds == nil {
		t.Fatalf("expected dataset %q", "flag")
	}
	if ds.Type.Kind != sink.Int8 {
		t.Fatalf("expected sink.Int8, got %v", ds.Type.Kind)
	}
	if len(ds.Data) != 4 {
		t.Fatalf("expected a full 4-byte word on the wire, got %d bytes", len(ds.Data))
	}
	if ds.Data[3] != 0xFF {
		t.Fatalf("expected low byte 0xFF, got %#x", ds.Data[3])
	}
}

func TestDecode_FlatSweep(t *testing.T) {
	t.Parallel()

	b := psftest.New()
	fileHeader(b, func(b *psftest.Builder) {
		b.PropInt32("PSF sweep points", 3)
	})
	b.U32(psftest.MarkerTypeStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.MinorPreamble(func(b *psftest.Builder) {
			b.SimpleType(1, "double", psftest.DTDouble, nil)
		})
		b.IndexTrailer(2, nil)
	})
	b.U32(psftest.MarkerSweepStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.Variable(10, "t", 1, nil)
	})
	b.U32(psftest.MarkerTraceStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.MinorPreamble(func(b *psftest.Builder) {
			b.Variable(11, "v", 1, nil)
		})
		b.IndexTrailer(4, nil)
	})
	b.U32(psftest.MarkerValueStart)
	tVals := []float64{0.0, 1.0, 2.0}
	vVals := []float64{10.0, 11.0, 12.0}
	b.MajorSection(func(b *psftest.Builder) {
		for i := range tVals {
			b.FlatSweepRecord(10, psftest.New().F64(tVals[i]).Bytes())
			b.FlatSweepRecord(11, psftest.New().F64(vVals[i]).Bytes())
		}
		b.IndexTrailer(2, nil)
	})

	s := sinktest.New()
	df, err := Decode(context.Background(), bytesReader(b.Bytes()), s)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if df.ValueMode.Kind != FlatSweep {
		t.Fatalf("expected FlatSweep mode, got %v", df.ValueMode.Kind)
	}
	if df.NumPoints != 3 {
		t.Fatalf("expected NumPoints=3, got %d", df.NumPoints)
	}

	for name, want := range map[string][]float64{"t": tVals, "v": vVals} {
		ds := s.ByName(name)
		if ds == nil {
			t.Fatalf("expected dataset %q", name)
		}
		if ds.Length != 3 {
			t.Fatalf("dataset %q: expected length 3, got %d", name, ds.Length)
		}
		for i, wantV := range want {
			got := math.Float64frombits(beUint64(ds.Data[i*8 : i*8+8]))
			if got != wantV {
				t.Fatalf("dataset %q[%d]: expected %v, got %v", name, i, wantV, got)
			}
		}
	}
}

func TestDecode_WindowedSweep(t *testing.T) {
	t.Parallel()

	b := psftest.New()
	fileHeader(b, func(b *psftest.Builder) {
		b.PropInt32("PSF sweep points", 5)
		b.PropInt32("PSF window size", 32)
	})
	b.U32(psftest.MarkerTypeStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.MinorPreamble(func(b *psftest.Builder) {
			b.SimpleType(1, "double", psftest.DTDouble, nil)
		})
		b.IndexTrailer(2, nil)
	})
	b.U32(psftest.MarkerSweepStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.Variable(10, "t", 1, nil)
	})
	b.U32(psftest.MarkerTraceStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.MinorPreamble(func(b *psftest.Builder) {
			b.Variable(11, "v", 1, nil)
		})
		b.IndexTrailer(4, nil)
	})
	b.U32(psftest.MarkerValueStart)

	tVals := []float64{0, 1, 2, 3, 4}
	vVals := []float64{100, 101, 102, 103, 104}

	b.MajorSection(func(b *psftest.Builder) {
		b.ZeroPadPrelude(20, 0)

		// window 1: N=4, full W=32 bytes per variable (4 doubles, no padding)
		b.WindowHeader(1, 4)
		for _, v := range tVals[0:4] {
			b.F64(v)
		}
		for _, v := range vVals[0:4] {
			b.F64(v)
		}

		// window 2: N=1, 8 bytes valid + 24 bytes padding per variable
		b.WindowHeader(0, 1)
		b.F64(tVals[4])
		b.Zeros(24)
		b.F64(vVals[4])
		b.Zeros(24)

		b.IndexTrailer(2, nil)
	})

	s := sinktest.New()
	df, err := Decode(context.Background(), bytesReader(b.Bytes()), s)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if df.ValueMode.Kind != WindowedSweep {
		t.Fatalf("expected WindowedSweep mode, got %v", df.ValueMode.Kind)
	}
	if df.ValueMode.WindowBytes != 32 {
		t.Fatalf("expected WindowBytes=32, got %d", df.ValueMode.WindowBytes)
	}

	for name, want := range map[string][]float64{"t": tVals, "v": vVals} {
		ds := s.ByName(name)
		if ds == nil {
			t.Fatalf("expected dataset %q", name)
		}
		if ds.Length != 5 {
			t.Fatalf("dataset %q: expected length 5, got %d", name, ds.Length)
		}
		for i, wantV := range want {
			got := math.Float64frombits(beUint64(ds.Data[i*8 : i*8+8]))
			if got != wantV {
				t.Fatalf("dataset %q[%d]: expected %v, got %v", name, i, wantV, got)
			}
		}
	}
}

func TestDecode_WindowedStruct(t *testing.T) {
	t.Parallel()

	b := psftest.New()
	fileHeader(b, func(b *psftest.Builder) {
		b.PropInt32("PSF sweep points", 2)
		b.PropInt32("PSF window size", 12)
	})
	b.U32(psftest.MarkerTypeStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.MinorPreamble(func(b *psftest.Builder) {
			b.SimpleType(1, "double", psftest.DTDouble, nil)
			b.StructType(2, "pair", func(b *psftest.Builder) {
				b.SubtypeMember(3, "a", psftest.DTInt32)
				b.SubtypeMember(4, "b", psftest.DTDouble)
			}, nil)
		})
		b.IndexTrailer(2, nil)
	})
	b.U32(psftest.MarkerSweepStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.Variable(10, "t", 2, nil)
	})
	b.U32(psftest.MarkerTraceStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.MinorPreamble(func(b *psftest.Builder) {
			b.Variable(11, "p", 2, nil)
		})
		b.IndexTrailer(4, nil)
	})
	b.U32(psftest.MarkerValueStart)

	// W=12 equals one pair's on-disk size exactly, so each window holds a
	// single valid point (N=1); two windows cover num_points=2.
	b.MajorSection(func(b *psftest.Builder) {
		b.ZeroPadPrelude(20, 0)

		b.WindowHeader(1, 1)
		b.I32(1)
		b.F64(10.5) // sweep slab, window 1
		b.I32(1)
		b.F64(10.5) // trace "p" slab, window 1

		b.WindowHeader(0, 1)
		b.I32(2)
		b.F64(20.5) // sweep slab, window 2
		b.I32(2)
		b.F64(20.5) // trace "p" slab, window 2

		b.IndexTrailer(2, nil)
	})

	s := sinktest.New()
	_, err := Decode(context.Background(), bytesReader(b.Bytes()), s)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	ds := s.ByName("p")
	if ds == nil {
		t.Fatalf("expected dataset %q", "p")
	}
	if ds.Length != 2 {
		t.Fatalf("expected length 2, got %d", ds.Length)
	}
	a0 := be32(ds.Data[0:4])
	b0 := math.Float64frombits(beUint64(ds.Data[4:12]))
	a1 := be32(ds.Data[12:16])
	b1 := math.Float64frombits(beUint64(ds.Data[16:24]))
	if a0 != 1 || b0 != 10.5 || a1 != 2 || b1 != 20.5 {
		t.Fatalf("unexpected struct contents: %d %v %d %v", a0, b0, a1, b1)
	}
}

// TestDecode_NestedStructUnsupportedFieldPropagates pins spec.md §8's
// tested property "a struct containing an unsupported field makes the
// enclosing struct unsupported" two levels deep: "outer" has a supported
// Int32 field and a nested struct field "inner", and only "inner"'s own
// field is unsupported (a String). "outer" must still come out unsupported
// as a whole, not just "inner".
func TestDecode_NestedStructUnsupportedFieldPropagates(t *testing.T) {
	t.Parallel()

	b := psftest.New()
	fileHeader(b, func(b *psftest.Builder) {
		b.PropInt32("PSF sweep points", 1)
	})
	b.U32(psftest.MarkerTypeStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.MinorPreamble(func(b *psftest.Builder) {
			b.SimpleType(1, "double", psftest.DTDouble, nil)
			b.StructType(2, "outer", func(b *psftest.Builder) {
				b.SubtypeMember(3, "a", psftest.DTInt32)
				b.SubtypeMemberStruct(4, "inner", func(b *psftest.Builder) {
					b.SubtypeMember(5, "x", psftest.DTString)
				})
			}, nil)
		})
		b.IndexTrailer(2, nil)
	})
	b.U32(psftest.MarkerSweepStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.Variable(10, "t", 1, nil)
	})
	b.U32(psftest.MarkerTraceStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.MinorPreamble(func(b *psftest.Builder) {
			b.Variable(11, "o", 2, nil)
		})
		b.IndexTrailer(4, nil)
	})
	b.U32(psftest.MarkerValueStart)

	s := sinktest.New()
	_, err := Decode(context.Background(), bytesReader(b.Bytes()), s)
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestDecode_MultipleSweepsIsFatal(t *testing.T) {
	t.Parallel()

	b := psftest.New()
	fileHeader(b, func(b *psftest.Builder) {
		b.PropInt32("PSF sweep points", 1)
	})
	b.U32(psftest.MarkerTypeStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.MinorPreamble(func(b *psftest.Builder) {
			b.SimpleType(1, "double", psftest.DTDouble, nil)
		})
		b.IndexTrailer(2, nil)
	})
	b.U32(psftest.MarkerSweepStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.Variable(10, "t1", 1, nil)
		b.Variable(11, "t2", 1, nil)
	})

	s := sinktest.New()
	_, err := Decode(context.Background(), bytesReader(b.Bytes()), s)
	if err == nil {
		t.Fatalf("expected an error for multiple sweep variables")
	}
	if !errors.Is(err, ErrMultipleSweeps) {
		t.Fatalf("expected ErrMultipleSweeps, got %v", err)
	}
}

func TestDecode_MissingSweepPointsIsFatal(t *testing.T) {
	t.Parallel()

	b := psftest.New()
	fileHeader(b, nil)
	b.U32(psftest.MarkerTypeStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.MinorPreamble(func(b *psftest.Builder) {
			b.SimpleType(1, "double", psftest.DTDouble, nil)
		})
		b.IndexTrailer(2, nil)
	})
	b.U32(psftest.MarkerSweepStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.Variable(10, "t", 1, nil)
	})
	b.U32(psftest.MarkerValueStart)

	s := sinktest.New()
	_, err := Decode(context.Background(), bytesReader(b.Bytes()), s)
	if !errors.Is(err, ErrMissingSweepPoints) {
		t.Fatalf("expected ErrMissingSweepPoints, got %v", err)
	}
}

func TestDecode_TraceGroupIsFlattened(t *testing.T) {
	t.Parallel()

	b := psftest.New()
	fileHeader(b, func(b *psftest.Builder) {
		b.PropInt32("PSF sweep points", 2)
	})
	b.U32(psftest.MarkerTypeStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.MinorPreamble(func(b *psftest.Builder) {
			b.SimpleType(1, "double", psftest.DTDouble, nil)
		})
		b.IndexTrailer(2, nil)
	})
	b.U32(psftest.MarkerSweepStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.Variable(10, "t", 1, nil)
	})
	b.U32(psftest.MarkerTraceStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.MinorPreamble(func(b *psftest.Builder) {
			b.GroupN(20, "outputs", 2, func(b *psftest.Builder, i int) {
				b.Variable(uint32(21+i), fmt.Sprintf("v%d", i), 1, nil)
			})
			b.Variable(30, "standalone", 1, nil)
		})
		b.IndexTrailer(4, nil)
	})
	b.U32(psftest.MarkerValueStart)
	b.MajorSection(func(b *psftest.Builder) {
		for point := uint32(0); point < 2; point++ {
			for i := 0; i < 4; i++ {
				value := psftest.New().F64(float64(point)).Bytes()
				b.FlatSweepRecord(1, value)
			}
		}
		b.IndexTrailer(2, nil)
	})

	s := sinktest.New()
	df, err := Decode(context.Background(), bytesReader(b.Bytes()), s)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(df.Traces) != 3 {
		t.Fatalf("expected group flattened to 3 trace variables, got %d", len(df.Traces))
	}
	wantNames := []string{"v0", "v1", "standalone"}
	for i, v := range df.Traces {
		if v.Name != wantNames[i] {
			t.Fatalf("trace[%d]: expected name %q, got %q", i, wantNames[i], v.Name)
		}
	}
	for _, name := range wantNames {
		if ds := s.ByName(name); ds == nil {
			t.Fatalf("expected dataset %q", name)
		}
	}
}

func TestDecode_MalformedGroupIsFatal(t *testing.T) {
	t.Parallel()

	b := psftest.New()
	fileHeader(b, nil)
	b.U32(psftest.MarkerTypeStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.MinorPreamble(func(b *psftest.Builder) {
			b.SimpleType(1, "double", psftest.DTDouble, nil)
		})
		b.IndexTrailer(2, nil)
	})
	b.U32(psftest.MarkerTraceStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.MinorPreamble(func(b *psftest.Builder) {
			b.GroupN(20, "outputs", 2, func(b *psftest.Builder, i int) {
				if i == 0 {
					b.Variable(21, "v0", 1, nil)
				}
				// declared length 2 but only one member is actually written;
				// the next bytes (index trailer) don't parse as a Variable.
			})
		})
		b.IndexTrailer(4, nil)
	})
	b.U32(psftest.MarkerValueStart)

	s := sinktest.New()
	_, err := Decode(context.Background(), bytesReader(b.Bytes()), s)
	if !errors.Is(err, ErrMalformedGroup) {
		t.Fatalf("expected ErrMalformedGroup, got %v", err)
	}
}

func TestDecode_ZeroSweepPointsYieldsEmptyDatasets(t *testing.T) {
	t.Parallel()

	b := psftest.New()
	fileHeader(b, func(b *psftest.Builder) {
		b.PropInt32("PSF sweep points", 0)
	})
	b.U32(psftest.MarkerTypeStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.MinorPreamble(func(b *psftest.Builder) {
			b.SimpleType(1, "double", psftest.DTDouble, nil)
		})
		b.IndexTrailer(2, nil)
	})
	b.U32(psftest.MarkerSweepStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.Variable(10, "t", 1, nil)
	})
	b.U32(psftest.MarkerTraceStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.MinorPreamble(func(b *psftest.Builder) {
			b.Variable(11, "v", 1, nil)
		})
		b.IndexTrailer(4, nil)
	})
	b.U32(psftest.MarkerValueStart)
	b.MajorSection(func(b *psftest.Builder) {
		b.IndexTrailer(2, nil)
	})

	s := sinktest.New()
	df, err := Decode(context.Background(), bytesReader(b.Bytes()), s)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if df.NumPoints != 0 {
		t.Fatalf("expected NumPoints=0, got %d", df.NumPoints)
	}
	for _, name := range []string{"t", "v"} {
		ds := s.ByName(name)
		if ds == nil {
			t.Fatalf("expected dataset %q", name)
		}
		if ds.Length != 0 {
			t.Fatalf("dataset %q: expected length 0, got %d", name, ds.Length)
		}
	}
}

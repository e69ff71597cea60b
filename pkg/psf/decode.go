package psf

import (
	"context"
	"io"

	"github.com/cadence-tools/psfdecode/pkg/sink"
)

// Decode reads one PSF file from r, front to back, and streams its
// variables to s, returning the fully decoded header/type/variable
// metadata. ctx is only consulted for cancellation between
// top-level sections; the decoder performs no I/O of its own beyond r.
// s.Finish is called exactly once, whether decoding succeeds or fails.
func Decode(ctx context.Context, r io.Reader, s sink.Sink) (_ *DecodedFile, err error) {
	finished := false
	defer func() {
		if err != nil && !finished {
			_ = s.Finish()
		}
	}()

	rd := newReader(r)

	if _, err := rd.readU32(); err != nil { // file magic, discarded
		return nil, err
	}

	header, err := readHeaderSection(rd)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	types := newTypeMap()
	if matched, err := consumeMarkerIfPresent(rd, markerTypeStart); err != nil {
		return nil, err
	} else if matched {
		if err := readTypeSection(rd, types); err != nil {
			return nil, err
		}
	}

	var sweeps []Variable
	if matched, err := consumeMarkerIfPresent(rd, markerSweepStart); err != nil {
		return nil, err
	} else if matched {
		sweeps, err = readSweepSection(rd)
		if err != nil {
			return nil, err
		}
	}
	if len(sweeps) > 1 {
		return nil, decodeErrf(rd.currentOffset(), ErrMultipleSweeps,
			"sweep section declares %d sweep variables, at most 1 is allowed", len(sweeps))
	}

	var traces []Variable
	if matched, err := consumeMarkerIfPresent(rd, markerTraceStart); err != nil {
		return nil, err
	} else if matched {
		traces, err = readTraceSection(rd)
		if err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	marker, err := rd.readU32()
	if err != nil {
		return nil, err
	}
	if sectionMarker(marker) != markerValueStart {
		return nil, decodeErrf(rd.currentOffset(), ErrBadTag,
			"expected value section marker %d, got %d", markerValueStart, marker)
	}

	mode, numPoints, err := resolveValueMode(rd.currentOffset(), header, types, sweeps, traces)
	if err != nil {
		return nil, err
	}

	df := &DecodedFile{
		Header:    header,
		Types:     types,
		Sweeps:    sweeps,
		Traces:    traces,
		ValueMode: mode,
		NumPoints: numPoints,
	}

	switch mode.Kind {
	case NoSweep:
		if err := decodeNonsweepValues(rd, types, s); err != nil {
			return nil, err
		}
	case FlatSweep:
		if err := decodeFlatSweep(rd, types, sweeps[0], traces, numPoints, s); err != nil {
			return nil, err
		}
	case WindowedSweep:
		if err := decodeWindowedSweep(rd, types, sweeps[0], traces, mode.WindowBytes, numPoints, s); err != nil {
			return nil, err
		}
	}

	finished = true
	if err := s.Finish(); err != nil {
		return nil, err
	}

	return df, nil
}

// consumeMarkerIfPresent peeks the next top-level section marker word; if
// it equals want, it is consumed and true is returned; otherwise the
// stream is left positioned before it (via unreadU32) and false is
// returned.
func consumeMarkerIfPresent(rd *reader, want sectionMarker) (bool, error) {
	v, err := rd.readU32()
	if err != nil {
		return false, err
	}
	if sectionMarker(v) == want {
		return true, nil
	}
	rd.unreadU32(v)
	return false, nil
}

func readHeaderSection(rd *reader) (*PropertyMap, error) {
	pre, err := readMajorPreamble(rd)
	if err != nil {
		return nil, err
	}
	props, err := readProperties(rd)
	if err != nil {
		return nil, err
	}
	if err := checkSectionEnd(rd, pre.endPos); err != nil {
		return nil, err
	}
	return props, nil
}

func readTypeSection(rd *reader, tm *TypeMap) error {
	pre, err := readMajorPreamble(rd)
	if err != nil {
		return err
	}
	if _, err := readMinorPreamble(rd); err != nil {
		return err
	}
	for {
		_, ok, err := readTypeDef(rd, tm)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}
	if err := readIndexTrailer(rd, indexTrailerTwoWord); err != nil {
		return err
	}
	return checkSectionEnd(rd, pre.endPos)
}

func readSweepSection(rd *reader) ([]Variable, error) {
	pre, err := readMajorPreamble(rd)
	if err != nil {
		return nil, err
	}
	sweeps, err := readSweepList(rd)
	if err != nil {
		return nil, err
	}
	if err := checkSectionEnd(rd, pre.endPos); err != nil {
		return nil, err
	}
	return sweeps, nil
}

func readTraceSection(rd *reader) ([]Variable, error) {
	pre, err := readMajorPreamble(rd)
	if err != nil {
		return nil, err
	}
	if _, err := readMinorPreamble(rd); err != nil {
		return nil, err
	}
	traces, err := readVariableList(rd)
	if err != nil {
		return nil, err
	}
	if err := readIndexTrailer(rd, indexTrailerFourWord); err != nil {
		return nil, err
	}
	if err := checkSectionEnd(rd, pre.endPos); err != nil {
		return nil, err
	}
	return traces, nil
}

// resolveValueMode enforces the global invariants governing which
// value-region layout applies. offset is the stream position reported in
// any error it returns.
func resolveValueMode(offset int64, header *PropertyMap, types *TypeMap, sweeps []Variable, traces []Variable) (ValueMode, uint32, error) {
	if len(sweeps) == 0 {
		return ValueMode{Kind: NoSweep}, 0, nil
	}

	sweep := sweeps[0]
	pointsVal, ok := header.Int(propSweepPoints)
	if !ok {
		return ValueMode{}, 0, decodeErrf(offset, ErrMissingSweepPoints,
			"sweep variable %q present but header has no integer %q property", sweep.Name, propSweepPoints)
	}
	numPoints := uint32(pointsVal)

	sweepDef, ok := types.Lookup(sweep.TypeID)
	if !ok || !sweepDef.Supported {
		return ValueMode{}, 0, decodeErrf(offset, ErrUnsupportedType,
			"sweep variable %q resolves to unsupported type %d", sweep.Name, sweep.TypeID)
	}

	for _, tr := range traces {
		trDef, ok := types.Lookup(tr.TypeID)
		if !ok || !trDef.Supported {
			return ValueMode{}, 0, decodeErrf(offset, ErrUnsupportedType,
				"trace variable %q resolves to unsupported type %d", tr.Name, tr.TypeID)
		}
	}

	if w, ok := header.Int(propWindowSize); ok && w > 0 {
		for _, tr := range traces {
			trDef, _ := types.Lookup(tr.TypeID)
			if trDef.OnDiskSize != sweepDef.OnDiskSize {
				return ValueMode{}, 0, decodeErrf(offset, ErrTypeSizeMismatch,
					"trace %q on-disk size %d differs from sweep %q size %d",
					tr.Name, trDef.OnDiskSize, sweep.Name, sweepDef.OnDiskSize)
			}
		}
		return ValueMode{Kind: WindowedSweep, WindowBytes: uint32(w)}, numPoints, nil
	}

	return ValueMode{Kind: FlatSweep}, numPoints, nil
}

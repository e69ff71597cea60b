package psf

import "github.com/cadence-tools/psfdecode/pkg/sink"

// decodeFlatSweep implements the FlatSweep value-region layout: for
// each of numPoints sample indices, and for each variable in
// [sweep]++traces order, one (record_code, var_id, value) triplet.
func decodeFlatSweep(rd *reader, tm *TypeMap, sweep Variable, traces []Variable, numPoints uint32, s sink.Sink) error {
	pre, err := readMajorPreamble(rd)
	if err != nil {
		return err
	}

	handles, sizes, err := createSweepTraceDatasets(tm, sweep, traces, numPoints, s)
	if err != nil {
		return err
	}

	vars := append([]Variable{sweep}, traces...)
	for point := uint32(0); point < numPoints; point++ {
		for i, v := range vars {
			if _, err := rd.readU32(); err != nil { // record_code, discarded
				return err
			}
			if _, err := rd.readU32(); err != nil { // var_id, discarded (positional order is authoritative)
				return err
			}
			value, err := rd.readSizedBytes(sizes[i])
			if err != nil {
				return err
			}
			if err := s.WriteSlab(handles[i], point, 1, value); err != nil {
				return decodeErrf(rd.currentOffset(), ErrUnsupportedType,
					"writing flat-sweep sample %d for %q: %v", point, v.Name, err)
			}
		}
	}

	if err := closeDatasets(handles, s); err != nil {
		return err
	}
	if err := readIndexTrailer(rd, indexTrailerTwoWord); err != nil {
		return err
	}
	return checkSectionEnd(rd, pre.endPos)
}

// createSweepTraceDatasets creates one dataset per variable in
// [sweep]++traces order, attaching each
// variable's properties immediately after creation, and returns the
// handles and resolved on-disk element sizes in the same order.
func createSweepTraceDatasets(tm *TypeMap, sweep Variable, traces []Variable, numPoints uint32, s sink.Sink) ([]sink.Handle, []uint32, error) {
	vars := append([]Variable{sweep}, traces...)
	handles := make([]sink.Handle, len(vars))
	sizes := make([]uint32, len(vars))

	for i, v := range vars {
		def, ok := tm.Lookup(v.TypeID)
		if !ok || !def.Supported {
			return nil, nil, decodeErrf(0, ErrUnsupportedType,
				"variable %d (%q) resolves to unsupported type %d", v.ID, v.Name, v.TypeID)
		}
		h, err := s.CreateDataset(v.Name, toSinkType(def.Logical), numPoints)
		if err != nil {
			return nil, nil, err
		}
		if err := attachProperties(s, h, v.Properties); err != nil {
			return nil, nil, err
		}
		handles[i] = h
		sizes[i] = def.OnDiskSize
	}
	return handles, sizes, nil
}

func closeDatasets(handles []sink.Handle, s sink.Sink) error {
	for _, h := range handles {
		if err := s.CloseDataset(h); err != nil {
			return err
		}
	}
	return nil
}

package psf

import "github.com/cadence-tools/psfdecode/pkg/sink"

// decodeWindowedSweep implements the WindowedSweep value-region layout: a
// zero-padding prelude (skipped, treated as opaque), then one or more
// fixed-W-byte-per-variable windows, each carrying up to
// W/on_disk_size(sweep_type) valid samples plus padding.
//
// The window header (window_code, size_word) is read once per window,
// inside the loop, rather than once up front — windows can vary in how
// many valid points they carry, so the header must be re-read each time.
func decodeWindowedSweep(rd *reader, tm *TypeMap, sweep Variable, traces []Variable, windowBytes uint32, numPoints uint32, s sink.Sink) error {
	pre, err := readMajorPreamble(rd)
	if err != nil {
		return err
	}

	if err := skipZeroPadPrelude(rd); err != nil {
		return err
	}

	handles, sizes, err := createSweepTraceDatasets(tm, sweep, traces, numPoints, s)
	if err != nil {
		return err
	}

	var pointsWritten uint32
	for pointsWritten < numPoints {
		n, err := readWindowHeader(rd)
		if err != nil {
			return err
		}
		if err := decodeOneWindow(rd, handles, sizes, windowBytes, n, pointsWritten, s); err != nil {
			return err
		}
		pointsWritten += n
	}

	if err := closeDatasets(handles, s); err != nil {
		return err
	}
	if err := readIndexTrailer(rd, indexTrailerTwoWord); err != nil {
		return err
	}
	return checkSectionEnd(rd, pre.endPos)
}

// skipZeroPadPrelude reads (code, size) and discards size bytes without
// validating code: some producers write a major section preamble here,
// others a literal 20; treat the pair as opaque.
func skipZeroPadPrelude(rd *reader) error {
	if _, err := rd.readU32(); err != nil { // zero_pad_code, not interpreted
		return err
	}
	size, err := rd.readU32()
	if err != nil {
		return err
	}
	return rd.skip(int(size))
}

// readWindowHeader reads window_code (must be tagTypeDef) and size_word,
// returning N, the number of valid points in this window (low 16 bits).
func readWindowHeader(rd *reader) (uint32, error) {
	code, err := rd.readU32()
	if err != nil {
		return 0, err
	}
	if code != tagTypeDef {
		return 0, decodeErrf(rd.currentOffset(), ErrBadTag, "expected window record code %d, got %d", tagTypeDef, code)
	}
	sizeWord, err := rd.readU32()
	if err != nil {
		return 0, err
	}
	n := sizeWord & 0xFFFF
	return n, nil
}

// decodeOneWindow reads, for sweep then each trace, a full windowBytes
// slab; writes the valid n*elemSize prefix to the dataset at offset
// pointsWritten; and discards the remaining padding bytes.
func decodeOneWindow(rd *reader, handles []sink.Handle, sizes []uint32, windowBytes uint32, n uint32, pointsWritten uint32, s sink.Sink) error {
	for i := range handles {
		slab, err := rd.readSizedBytes(windowBytes)
		if err != nil {
			return err
		}
		validBytes := n * sizes[i]
		if validBytes > windowBytes {
			return decodeErrf(rd.currentOffset(), ErrTypeSizeMismatch,
				"window claims %d valid points but window size %d can't hold them at element size %d", n, windowBytes, sizes[i])
		}
		if err := s.WriteSlab(handles[i], pointsWritten, n, slab[:validBytes]); err != nil {
			return err
		}
		// slab[validBytes:] is padding; already consumed by readSizedBytes,
		// nothing further to do with it.
	}
	return nil
}

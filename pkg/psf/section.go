package psf

// majorPreamble is the (code=21, end_pos) pair at the start of every
// top-level section. end_pos is the absolute offset of the byte
// immediately following the section's end marker word.
type majorPreamble struct {
	endPos uint32
}

func readMajorPreamble(rd *reader) (majorPreamble, error) {
	code, err := rd.readU32()
	if err != nil {
		return majorPreamble{}, err
	}
	if code != majorPreambleCode {
		return majorPreamble{}, decodeErrf(rd.currentOffset(), ErrBadSectionCode,
			"expected major preamble code %d, got %d", majorPreambleCode, code)
	}
	endPos, err := rd.readU32()
	if err != nil {
		return majorPreamble{}, err
	}
	return majorPreamble{endPos: endPos}, nil
}

// minorPreamble is the (code=22, sub_end_pos) pair bounding a section body
// that is followed by an index trailer.
type minorPreamble struct {
	subEndPos uint32
}

func readMinorPreamble(rd *reader) (minorPreamble, error) {
	code, err := rd.readU32()
	if err != nil {
		return minorPreamble{}, err
	}
	if code != minorPreambleCode {
		return minorPreamble{}, decodeErrf(rd.currentOffset(), ErrBadSectionCode,
			"expected minor preamble code %d, got %d", minorPreambleCode, code)
	}
	subEndPos, err := rd.readU32()
	if err != nil {
		return minorPreamble{}, err
	}
	return minorPreamble{subEndPos: subEndPos}, nil
}

// indexTrailerShape distinguishes the type section's 2-word index
// entries from the trace section's 4-word entries.
type indexTrailerShape int

const (
	indexTrailerTwoWord  indexTrailerShape = 2
	indexTrailerFourWord indexTrailerShape = 4
)

// readIndexTrailer reads and discards index_type, index_size_bytes, and
// the index entries themselves; the index is never used because decoding
// is sequential.
func readIndexTrailer(rd *reader, shape indexTrailerShape) error {
	if _, err := rd.readU32(); err != nil { // index_type
		return err
	}
	indexSizeBytes, err := rd.readU32() // index_size_bytes
	if err != nil {
		return err
	}
	wordsPerEntry := int(shape)
	entrySize := uint32(wordsPerEntry * 4)
	if entrySize == 0 || indexSizeBytes%entrySize != 0 {
		return rd.skip(int(indexSizeBytes))
	}
	entryCount := int(indexSizeBytes / entrySize)
	for i := 0; i < entryCount; i++ {
		for w := 0; w < wordsPerEntry; w++ {
			if _, err := rd.readU32(); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkSectionEnd reads the section's end marker word and verifies the
// stream position matches the preamble's declared end_pos.
func checkSectionEnd(rd *reader, endPos uint32) error {
	if _, err := rd.readU32(); err != nil { // end marker, value not interpreted
		return err
	}
	if uint32(rd.currentOffset()) != endPos {
		return decodeErrf(rd.currentOffset(), ErrBadSectionEnd,
			"expected end position %d, got %d", endPos, rd.currentOffset())
	}
	return nil
}

package psf

import "github.com/cadence-tools/psfdecode/pkg/sink"

// decodeNonsweepValues implements the NoSweep value-region layout: a run
// of NonsweepValue records, each a single-element dataset. Any
// invariant checks beyond "type resolves" belong to the caller; this
// function enforces the per-record decode grammar and fails with
// ErrUnsupportedType if a record's resolved type can't be decoded.
func decodeNonsweepValues(rd *reader, tm *TypeMap, s sink.Sink) error {
	pre, err := readMajorPreamble(rd)
	if err != nil {
		return err
	}
	if _, err := readMinorPreamble(rd); err != nil {
		return err
	}

	for {
		tag, err := rd.readU32()
		if err != nil {
			return err
		}
		if tag != tagTypeDef {
			rd.unreadU32(tag)
			break
		}
		if err := decodeOneNonsweepRecord(rd, tm, s); err != nil {
			return err
		}
	}

	if err := readIndexTrailer(rd, indexTrailerTwoWord); err != nil {
		return err
	}
	return checkSectionEnd(rd, pre.endPos)
}

func decodeOneNonsweepRecord(rd *reader, tm *TypeMap, s sink.Sink) error {
	id, err := rd.readU32()
	if err != nil {
		return err
	}
	name, err := rd.readString()
	if err != nil {
		return err
	}
	typeID, err := rd.readU32()
	if err != nil {
		return err
	}

	def, ok := tm.Lookup(typeID)
	if !ok || !def.Supported {
		return decodeErrf(rd.currentOffset(), ErrUnsupportedType,
			"nonsweep value %d (%q) resolves to unsupported type %d", id, name, typeID)
	}

	value, err := rd.readSizedBytes(def.OnDiskSize)
	if err != nil {
		return err
	}
	props, err := readProperties(rd)
	if err != nil {
		return err
	}

	h, err := s.CreateDataset(name, toSinkType(def.Logical), 1)
	if err != nil {
		return err
	}
	if err := s.WriteSlab(h, 0, 1, value); err != nil {
		return err
	}
	if err := attachProperties(s, h, props); err != nil {
		return err
	}
	return s.CloseDataset(h)
}

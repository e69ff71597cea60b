package sink

import (
	"encoding/binary"
	"testing"
)

// TestHDF5SinkInt8Decoding exercises decodeElement directly (via
// CreateDataset/WriteSlab, without touching the cgo HDF5 library) to guard
// the Int8 on-disk shape: a full 4-byte word, low byte significant, the
// upper three bytes not a valid sign-extension.
func TestHDF5SinkInt8Decoding(t *testing.T) {
	s := &HDF5Sink{datasets: make(map[int]*hdf5PendingDataset)}
	h, err := s.CreateDataset("flags", Type{Kind: Int8}, 3)
	if err != nil {
		t.Fatalf("CreateDataset: %v", err)
	}

	buf := make([]byte, 12)
	// word 0: low byte 0xFF (-1 as int8), garbage upper bytes that would
	// make a naive full-word reinterpretation wildly wrong.
	binary.BigEndian.PutUint32(buf[0:4], 0xAABBCCFF)
	// word 1: low byte 0x07 (7), zeroed upper bytes.
	binary.BigEndian.PutUint32(buf[4:8], 0x00000007)
	// word 2: low byte 0x80 (-128 as int8), nonzero upper bytes again.
	binary.BigEndian.PutUint32(buf[8:12], 0x11223380)

	if err := s.WriteSlab(h, 0, 3, buf); err != nil {
		t.Fatalf("WriteSlab: %v", err)
	}

	pd, err := s.lookup(h)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	want := []int32{-1, 7, -128}
	for i, w := range want {
		got, ok := pd.buf.Index(i).Interface().(int32)
		if !ok {
			t.Fatalf("element %d: not an int32: %v", i, pd.buf.Index(i).Interface())
		}
		if got != w {
			t.Fatalf("element %d: got %d, want %d", i, got, w)
		}
	}
}

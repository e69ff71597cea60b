package psf

import (
	"encoding/binary"
	"io"
	"math"
)

// reader is the primitive reader: big-endian fixed-width reads,
// word-aligned string reads, and one-word lookahead, over a forward-only
// io.Reader. It never seeks — the source is consumed once, front to back.
type reader struct {
	r      io.Reader
	offset int64

	// pushback holds one unread word (and whether it's valid) so that
	// peek_u32 / unread_u32 can be implemented without a real seek.
	pushed   bool
	pushWord uint32
}

func newReader(r io.Reader) *reader {
	return &reader{r: r}
}

func (rd *reader) currentOffset() int64 {
	return rd.offset
}

func (rd *reader) readFull(buf []byte) error {
	n, err := io.ReadFull(rd.r, buf)
	rd.offset += int64(n)
	if err != nil {
		return decodeErrf(rd.offset, ErrUnexpectedEOF, "short read: wanted %d bytes, got %d", len(buf), n)
	}
	return nil
}

// readU32 consumes 4 bytes, big-endian. If a word was pushed back via
// unreadU32, that word is returned instead and no bytes are consumed.
func (rd *reader) readU32() (uint32, error) {
	if rd.pushed {
		rd.pushed = false
		return rd.pushWord, nil
	}
	var buf [4]byte
	if err := rd.readFull(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func (rd *reader) readI32() (int32, error) {
	v, err := rd.readU32()
	return int32(v), err
}

// readI8 reads a full 4-byte word and keeps only the low byte, sign
// extended to 32 bits.
func (rd *reader) readI8() (int32, error) {
	v, err := rd.readU32()
	if err != nil {
		return 0, err
	}
	return int32(int8(byte(v))), nil
}

func (rd *reader) readF64() (float64, error) {
	var buf [8]byte
	if err := rd.readFull(buf[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(buf[:])), nil
}

// readString reads a u32 length, the payload bytes (preserved raw, not
// interpreted as UTF-8), and word-alignment padding.
func (rd *reader) readString() (string, error) {
	length, err := rd.readU32()
	if err != nil {
		return "", err
	}
	payload := make([]byte, length)
	if length > 0 {
		if err := rd.readFull(payload); err != nil {
			return "", err
		}
	}
	pad := (4 - int(length)%4) % 4
	if pad > 0 {
		var padBuf [4]byte
		if err := rd.readFull(padBuf[:pad]); err != nil {
			return "", err
		}
	}
	return string(payload), nil
}

// peekU32 returns the next word without consuming it.
func (rd *reader) peekU32() (uint32, error) {
	if rd.pushed {
		return rd.pushWord, nil
	}
	v, err := rd.readU32()
	if err != nil {
		return 0, err
	}
	rd.unreadU32(v)
	return v, nil
}

// unreadU32 pushes one word back for the next readU32/peekU32 call.
// At most one word of lookahead is supported.
func (rd *reader) unreadU32(v uint32) {
	rd.pushed = true
	rd.pushWord = v
}

// readSizedBytes reads exactly n raw bytes (the on-disk value of a typed
// field, left byte-swapped/interpreted by the caller).
func (rd *reader) readSizedBytes(n uint32) ([]byte, error) {
	buf := make([]byte, n)
	if n > 0 {
		if err := rd.readFull(buf); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// skip consumes and discards n bytes, still advancing current_offset.
func (rd *reader) skip(n int) error {
	if n <= 0 {
		return nil
	}
	const chunk = 4096
	buf := make([]byte, min(n, chunk))
	remaining := n
	for remaining > 0 {
		want := min(remaining, len(buf))
		if err := rd.readFull(buf[:want]); err != nil {
			return err
		}
		remaining -= want
	}
	return nil
}

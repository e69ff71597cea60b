package psf

import (
	"bufio"
	"context"
	"os"

	"github.com/cadence-tools/psfdecode/pkg/sink"
)

// DecodeFile opens path and decodes it into s, closing the file when done.
// Grounded in the forward-only, io.ReadFull-based style of reading a
// sectioned binary container from a plain *os.File (rather than mmap):
// this decoder never revisits a byte, so there is nothing for
// random-access mapping to buy here.
func DecodeFile(ctx context.Context, path string, s sink.Sink) (*DecodedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return Decode(ctx, bufio.NewReaderSize(f, 64*1024), s)
}

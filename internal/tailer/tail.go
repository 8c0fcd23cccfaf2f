package tailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/atikulmunna/sharetail/internal/bounded"
)

// tailLines scans the window s backwards in chunks of chunkSize and returns
// its last maxLines non-blank lines in file order. Only as much of s is read
// as the line budget needs, so tailing a huge file costs a few chunk reads.
func tailLines(ctx context.Context, s *io.SectionReader, maxLines int, chunkSize int64, dec *Decoder) ([]string, error) {
	lines := make([]string, 0, min(maxLines, 256)) // newest first
	var buf []byte
	pos := s.Size()

	for pos > 0 && len(lines) < maxLines {
		n := min(chunkSize, pos)
		pos -= n

		chunk := make([]byte, n)
		at := pos
		got, err := bounded.Do(ctx, 0, func() (int, error) { return s.ReadAt(chunk, at) })
		if err != nil && !(errors.Is(err, io.EOF) && int64(got) == n) {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("file shrank during read at offset %d", at)
			}
			return nil, err
		}

		buf = append(chunk, buf...)
		for len(lines) < maxLines {
			i := bytes.LastIndexByte(buf, '\n')
			if i < 0 {
				break
			}
			if line, ok := dec.decodeLine(buf[i+1:]); ok {
				lines = append(lines, line)
			}
			buf = buf[:i]
		}
	}

	// Whatever precedes the first newline of the window is a line too.
	if pos == 0 && len(lines) < maxLines {
		if line, ok := dec.decodeLine(buf); ok {
			lines = append(lines, line)
		}
	}

	slices.Reverse(lines)
	return lines, nil
}

package surface

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/smazurov/sevenseg/internal/logging"
)

// Stream is the byte stream front end.
type Stream struct {
	digit  Digit
	logger *slog.Logger
}

// NewStream returns a stream over digit.
func NewStream(digit Digit, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = logging.GetLogger("surface")
	}
	return &Stream{digit: digit, logger: logger}
}

// Open returns a handle positioned at 0.
func (s *Stream) Open() *File {
	s.logger.Debug("Stream opened")
	return &File{stream: s}
}

// File is one open handle on a Stream. Each handle has its own position.
// A File is safe for concurrent use.
type File struct {
	stream *Stream

	mu     sync.Mutex
	pos    int64
	closed bool
}

var (
	_ io.ReadWriteSeeker = (*File)(nil)
	_ io.Closer          = (*File)(nil)
)

// Read returns "<digit>\n" when positioned at 0 and moves past the end of
// the data. At any other position it returns 0, io.EOF until the file is
// seeked back to 0. p must hold at least two bytes.
func (f *File) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, os.ErrClosed
	}
	if f.pos != 0 {
		return 0, io.EOF
	}
	if len(p) < 2 {
		return 0, fmt.Errorf("%w: read buffer of %d bytes", ErrInvalidInput, len(p))
	}

	d := f.stream.digit.Get()
	p[0] = byte('0' + d)
	p[1] = '\n'
	f.pos += 2
	return 2, nil
}

// Write consumes exactly one byte of p, which must be '0'..'9'. Further
// bytes are left for the caller to write again. The position is unchanged.
func (f *File) Write(p []byte) (int, error) {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()

	if closed {
		return 0, os.ErrClosed
	}
	if len(p) == 0 {
		return 0, fmt.Errorf("%w: empty write", ErrInvalidInput)
	}

	c := p[0]
	if c < '0' || c > '9' {
		f.stream.logger.Debug("Rejected stream write", "byte", c)
		return 0, fmt.Errorf("%w: byte %q is not a digit", ErrInvalidInput, c)
	}
	if err := f.stream.digit.Set(int(c - '0')); err != nil {
		return 0, err
	}
	return 1, nil
}

// Seek sets the position. The stream reports a size of 0, so io.SeekEnd is
// relative to 0.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, os.ErrClosed
	}

	var pos int64
	switch whence {
	case io.SeekStart, io.SeekEnd:
		pos = offset
	case io.SeekCurrent:
		pos = f.pos + offset
	default:
		return 0, fmt.Errorf("%w: whence %d", ErrInvalidInput, whence)
	}
	if pos < 0 {
		return 0, fmt.Errorf("%w: negative position %d", ErrInvalidInput, pos)
	}
	f.pos = pos
	return pos, nil
}

// Position returns the current position.
func (f *File) Position() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos
}

// Close releases the handle. Later calls fail with os.ErrClosed.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return os.ErrClosed
	}
	f.closed = true
	f.stream.logger.Debug("Stream closed")
	return nil
}

package eventlog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
)

var (
	// ErrSourceNotFound is returned by Open when the log file does not exist.
	ErrSourceNotFound = errors.New("log source not found")
	// ErrSourceUnreadable wraps any other failure to open or read the source.
	ErrSourceUnreadable = errors.New("log source unreadable")
	// ErrLineTooLong marks a line longer than maxLineSize. The line is
	// discarded and reading resumes at the next one.
	ErrLineTooLong = errors.New("line exceeds maximum length")
)

const maxLineSize = 4 << 20

// Reader yields the records of a single pass over a log stream.
type Reader struct {
	br     *bufio.Reader
	closer io.Closer
}

// Open opens a log file for reading.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}
	r := NewReader(f)
	r.closer = f
	return r, nil
}

// NewReader reads records from r. The caller owns r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 64*1024)}
}

// readLine returns the next line without its terminator. A line longer than
// maxLineSize is consumed in full but not kept, and tooLong is set.
func (r *Reader) readLine() (line []byte, tooLong bool, err error) {
	for {
		chunk, err := r.br.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > maxLineSize+1 {
				tooLong, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		line = bytes.TrimSuffix(line, []byte("\n"))
		return bytes.TrimSuffix(line, []byte("\r")), tooLong, err
	}
}

// Records returns the record sequence. Malformed lines yield a *ParseError
// and iteration continues; a read failure yields a final non-ParseError.
// The sequence can only be ranged over once.
func (r *Reader) Records() iter.Seq2[LogRecord, error] {
	return func(yield func(LogRecord, error) bool) {
		line := 0
		for {
			text, tooLong, err := r.readLine()
			if err != nil && err != io.EOF {
				yield(LogRecord{}, fmt.Errorf("%w: %w", ErrSourceUnreadable, err))
				return
			}
			if err == io.EOF && len(text) == 0 && !tooLong {
				return
			}
			line++

			switch {
			case tooLong:
				if !yield(LogRecord{}, &ParseError{Line: line, Err: ErrLineTooLong}) {
					return
				}
			case len(bytes.TrimSpace(text)) == 0:
			default:
				rec, perr := ParseLine(text)
				if perr != nil {
					if !yield(LogRecord{}, &ParseError{Line: line, Err: perr}) {
						return
					}
				} else if !yield(rec, nil) {
					return
				}
			}

			if err == io.EOF {
				return
			}
		}
	}
}

// Close releases the underlying file, if Open created one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Collect materialises a record sequence. Parse errors are returned
// separately; any other error stops collection.
func Collect(seq iter.Seq2[LogRecord, error]) ([]LogRecord, []*ParseError, error) {
	var (
		records   []LogRecord
		malformed []*ParseError
	)
	for rec, err := range seq {
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) {
				malformed = append(malformed, perr)
				continue
			}
			return records, malformed, err
		}
		records = append(records, rec)
	}
	return records, malformed, nil
}

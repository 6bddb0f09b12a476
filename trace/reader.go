package trace

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
	"github.com/rigado/isoal"
)

var errShort = errors.New("not enough bytes")

// Source yields PDUs until io.EOF.
type Source interface {
	Next() (*isoal.PDU, error)
}

// Reader assembles binary records from a byte stream. Reads may split or
// join records arbitrarily; garbage between records is skipped.
type Reader struct {
	r     io.Reader
	b     []byte
	chunk []byte

	// Skipped counts bytes dropped while looking for a record.
	Skipped int
}

func NewReader(r io.Reader) *Reader {
	return &Reader{
		r:     r,
		b:     make([]byte, 0, 512),
		chunk: make([]byte, 256),
	}
}

// Next returns the next record. At the end of the stream it returns io.EOF,
// or io.ErrUnexpectedEOF if a record was cut short.
func (r *Reader) Next() (*isoal.PDU, error) {
	for {
		r.sync()

		p, n, err := Unmarshal(r.b)
		switch {
		case err == nil:
			r.shift(n)
			return p, nil
		case err != errShort:
			// not a record after all; look for the next indicator
			r.shift(1)
			r.Skipped++
			continue
		}

		m, rerr := r.r.Read(r.chunk)
		r.b = append(r.b, r.chunk[:m]...)
		if rerr == io.EOF {
			if m > 0 {
				continue
			}
			if len(r.b) > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, io.EOF
		}
		if rerr != nil {
			return nil, errors.Wrap(rerr, "can't read trace")
		}
	}
}

// sync drops everything before the first indicator byte.
func (r *Reader) sync() {
	i := bytes.IndexByte(r.b, Indicator)
	if i < 0 {
		r.Skipped += len(r.b)
		r.b = r.b[:0]
		return
	}
	r.Skipped += i
	r.shift(i)
}

func (r *Reader) shift(n int) {
	rem := copy(r.b, r.b[n:])
	r.b = r.b[:rem]
}

// Writer writes binary records.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) Write(p *isoal.PDU) error {
	b, err := Marshal(p)
	if err != nil {
		return err
	}
	_, err = w.w.Write(b)
	return errors.Wrap(err, "can't write trace")
}

package trace

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/rigado/isoal"
)

// jsonRecord is one line of a JSON trace.
type jsonRecord struct {
	LLID          uint8  `json:"llid"`
	Status        uint8  `json:"status"`
	Timestamp     uint32 `json:"timestamp"`
	PayloadNumber uint64 `json:"payload_number"`
	Payload       string `json:"payload"`
}

// JSONReader reads a JSON trace, one object per line. Blank lines are
// ignored.
type JSONReader struct {
	sc   *bufio.Scanner
	line int
}

func NewJSONReader(r io.Reader) *JSONReader {
	return &JSONReader{sc: bufio.NewScanner(r)}
}

func (r *JSONReader) Next() (*isoal.PDU, error) {
	var line []byte
	for len(line) == 0 {
		if !r.sc.Scan() {
			if err := r.sc.Err(); err != nil {
				return nil, errors.Wrap(err, "can't read trace")
			}
			return nil, io.EOF
		}
		r.line++
		line = bytes.TrimSpace(r.sc.Bytes())
	}

	var rec jsonRecord
	if err := jsoniter.Unmarshal(line, &rec); err != nil {
		return nil, errors.Wrapf(err, "line %d", r.line)
	}
	if rec.LLID > 0x03 {
		return nil, errors.Errorf("line %d: invalid llid %d", r.line, rec.LLID)
	}
	b, err := hex.DecodeString(rec.Payload)
	if err != nil {
		return nil, errors.Wrapf(err, "line %d: payload", r.line)
	}

	return &isoal.PDU{
		LLID:          isoal.LLID(rec.LLID),
		Status:        isoal.PDUStatus(rec.Status),
		Timestamp:     rec.Timestamp,
		PayloadNumber: rec.PayloadNumber,
		Payload:       append([]byte{}, b...),
	}, nil
}

// JSONWriter writes a JSON trace.
type JSONWriter struct {
	w io.Writer
}

func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{w: w}
}

func (w *JSONWriter) Write(p *isoal.PDU) error {
	rec := jsonRecord{
		LLID:          uint8(p.LLID),
		Status:        uint8(p.Status),
		Timestamp:     p.Timestamp,
		PayloadNumber: p.PayloadNumber,
		Payload:       hex.EncodeToString(p.Payload),
	}
	b, err := jsoniter.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = w.w.Write(append(b, '\n'))
	return errors.Wrap(err, "can't write trace")
}

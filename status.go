package isoal

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Status is the result of a registry or recombination call.
// Codes combine with |; a call that hit several failures returns their union.
type Status uint8

const (
	StatusOK             Status = 0x00
	StatusErrSinkAlloc   Status = 0x01 // sink pool exhausted
	StatusErrSDUAlloc    Status = 0x02 // SDU buffer allocation failed, or the sink rejects input
	StatusErrSDUEmit     Status = 0x04 // host failed to accept an emitted SDU
	StatusErrUnspecified Status = 0x08
)

var statusNames = []struct {
	s    Status
	name string
}{
	{StatusErrSinkAlloc, "sink-alloc"},
	{StatusErrSDUAlloc, "sdu-alloc"},
	{StatusErrSDUEmit, "sdu-emit"},
	{StatusErrUnspecified, "unspecified"},
}

// Has reports whether every flag in f is set in s.
func (s Status) Has(f Status) bool { return s&f == f }

func (s Status) String() string {
	if s == StatusOK {
		return "ok"
	}
	var parts []string
	for _, n := range statusNames {
		if s&n.s != 0 {
			parts = append(parts, n.name)
		}
	}
	if rest := s &^ (StatusErrSinkAlloc | StatusErrSDUAlloc | StatusErrSDUEmit | StatusErrUnspecified); rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%02x", uint8(rest)))
	}
	return strings.Join(parts, "|")
}

// Err returns nil for StatusOK, a *StatusError otherwise.
func (s Status) Err() error {
	if s == StatusOK {
		return nil
	}
	return &StatusError{Status: s}
}

// StatusError carries a non-OK Status through error returns.
type StatusError struct {
	Status Status
}

func (e *StatusError) Error() string {
	return "isoal: " + e.Status.String()
}

// statusOf maps a host callback error onto a Status. Errors that carry their
// own status (anything with a Status() Status method) keep it.
func statusOf(err error, fallback Status) Status {
	if err == nil {
		return StatusOK
	}
	var se interface{ Status() Status }
	if errors.As(err, &se) {
		return se.Status()
	}
	var st *StatusError
	if errors.As(err, &st) {
		return st.Status
	}
	return fallback
}

// PDUStatus is the link layer's verdict on a received PDU.
type PDUStatus uint8

const (
	PDUStatusValid    PDUStatus = 0x00
	PDUStatusErrors   PDUStatus = 0x01 // CRC error
	PDUStatusLostData PDUStatus = 0x10 // not received
)

func (p PDUStatus) String() string {
	switch p {
	case PDUStatusValid:
		return "valid"
	case PDUStatusErrors:
		return "errors"
	case PDUStatusLostData:
		return "lost-data"
	default:
		return SDUStatus(p).String()
	}
}

// SDUStatus is the accumulated condition of a produced SDU. Flags combine
// with |; the bit values match PDUStatus so a PDU's status folds in directly.
type SDUStatus uint8

const (
	SDUStatusValid    SDUStatus = 0x00
	SDUStatusErrors   SDUStatus = 0x01
	SDUStatusLostData SDUStatus = 0x10
)

func (s SDUStatus) Has(f SDUStatus) bool { return s&f == f }

func (s SDUStatus) String() string {
	if s == SDUStatusValid {
		return "valid"
	}
	var parts []string
	if s&SDUStatusErrors != 0 {
		parts = append(parts, "errors")
	}
	if s&SDUStatusLostData != 0 {
		parts = append(parts, "lost-data")
	}
	if rest := s &^ (SDUStatusErrors | SDUStatusLostData); rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%02x", uint8(rest)))
	}
	return strings.Join(parts, "|")
}

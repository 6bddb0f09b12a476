// Package trace reads and writes captures of received ISO Data PDUs.
//
// The binary format is a stream of records, as a sniffer or a controller's
// debug UART would emit them:
//
//	offset size
//	0      1    indicator 0xE5
//	1      1    LLID
//	2      1    PDU status
//	3      4    timestamp, little endian
//	7      8    payload number, little endian
//	15     1    payload length
//	16     n    payload
package trace

import (
	"encoding/binary"
	"fmt"

	"github.com/rigado/isoal"
)

const (
	Indicator = 0xE5

	headerOffsetLLID          = 1
	headerOffsetStatus        = 2
	headerOffsetTimestamp     = 3
	headerOffsetPayloadNumber = 7
	headerOffsetLength        = 15
	headerLength              = 16

	MaxPayload = 0xff
)

// Marshal encodes one record.
func Marshal(p *isoal.PDU) ([]byte, error) {
	if len(p.Payload) > MaxPayload {
		return nil, fmt.Errorf("payload of %d bytes exceeds %d", len(p.Payload), MaxPayload)
	}
	if p.LLID > 0x03 {
		return nil, fmt.Errorf("invalid llid %d", p.LLID)
	}

	b := make([]byte, headerLength+len(p.Payload))
	b[0] = Indicator
	b[headerOffsetLLID] = byte(p.LLID)
	b[headerOffsetStatus] = byte(p.Status)
	binary.LittleEndian.PutUint32(b[headerOffsetTimestamp:], p.Timestamp)
	binary.LittleEndian.PutUint64(b[headerOffsetPayloadNumber:], p.PayloadNumber)
	b[headerOffsetLength] = byte(len(p.Payload))
	copy(b[headerLength:], p.Payload)

	return b, nil
}

// Unmarshal decodes the record at the start of b and returns the number of
// bytes it used.
func Unmarshal(b []byte) (*isoal.PDU, int, error) {
	if len(b) < headerLength {
		return nil, 0, errShort
	}
	if b[0] != Indicator {
		return nil, 0, fmt.Errorf("bad indicator 0x%02x", b[0])
	}
	if b[headerOffsetLLID] > 0x03 {
		return nil, 0, fmt.Errorf("invalid llid %d", b[headerOffsetLLID])
	}

	n := headerLength + int(b[headerOffsetLength])
	if len(b) < n {
		return nil, 0, errShort
	}

	p := &isoal.PDU{
		LLID:          isoal.LLID(b[headerOffsetLLID]),
		Status:        isoal.PDUStatus(b[headerOffsetStatus]),
		Timestamp:     binary.LittleEndian.Uint32(b[headerOffsetTimestamp:]),
		PayloadNumber: binary.LittleEndian.Uint64(b[headerOffsetPayloadNumber:]),
		Payload:       make([]byte, n-headerLength),
	}
	copy(p.Payload, b[headerLength:n])

	return p, n, nil
}

package isoal

import (
	"encoding/binary"
	"errors"
)

// Framed PDU segmentation header [Vol 6, Part G, 6.1].
//
//	byte 0   bit 0 SC, bit 1 CMPLT, bits 2..7 RFU
//	byte 1   length of what follows the 2 byte header
//	byte 2-4 Time_Offset, little endian, only when SC = 0
const (
	SegmentHeaderSize     = 2
	SegmentTimeOffsetSize = 3

	segFlagSC    = 0x01
	segFlagCmplt = 0x02

	maxTimeOffset = 1<<24 - 1
)

var (
	ErrSegmentTruncated = errors.New("segment header exceeds pdu")
	ErrSegmentLength    = errors.New("segment length shorter than time offset")
)

// SegmentHeader is a decoded segmentation header.
type SegmentHeader struct {
	SC         bool // continuation of an SDU started in an earlier segment
	Cmplt      bool // last segment of the SDU
	Length     uint8
	TimeOffset uint32 // valid only when SC is false
}

// DecodeSegmentHeader reads the header at the start of b. b runs to the end of
// the PDU payload; the whole segment described by the header must fit in it.
func DecodeSegmentHeader(b []byte) (SegmentHeader, error) {
	var h SegmentHeader
	if len(b) < SegmentHeaderSize {
		return h, ErrSegmentTruncated
	}

	h.SC = b[0]&segFlagSC != 0
	h.Cmplt = b[0]&segFlagCmplt != 0
	h.Length = b[1]

	if SegmentHeaderSize+int(h.Length) > len(b) {
		return h, ErrSegmentTruncated
	}

	if !h.SC {
		if h.Length < SegmentTimeOffsetSize {
			return h, ErrSegmentLength
		}
		o := b[SegmentHeaderSize:]
		h.TimeOffset = uint32(o[0]) | uint32(o[1])<<8 | uint32(o[2])<<16
	}

	return h, nil
}

// dataOffset is where SDU data starts, relative to the header.
func (h SegmentHeader) dataOffset() int {
	if h.SC {
		return SegmentHeaderSize
	}
	return SegmentHeaderSize + SegmentTimeOffsetSize
}

// dataLen is the number of SDU bytes the segment carries.
func (h SegmentHeader) dataLen() int {
	return SegmentHeaderSize + int(h.Length) - h.dataOffset()
}

// AppendSegment appends a segment carrying data to dst. Length is derived from
// data, which must fit the 8 bit length field; TimeOffset is written only
// for a start segment.
func AppendSegment(dst []byte, h SegmentHeader, data []byte) []byte {
	var flags byte
	if h.SC {
		flags |= segFlagSC
	}
	if h.Cmplt {
		flags |= segFlagCmplt
	}

	l := len(data)
	if !h.SC {
		l += SegmentTimeOffsetSize
	}

	dst = append(dst, flags, byte(l))
	if !h.SC {
		var o [4]byte
		binary.LittleEndian.PutUint32(o[:], h.TimeOffset&maxTimeOffset)
		dst = append(dst, o[:SegmentTimeOffsetSize]...)
	}
	return append(dst, data...)
}

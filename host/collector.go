// Package host is a reference upper layer for isoal sinks: it hands out
// fixed-size buffers, appends written bytes and keeps every emitted SDU.
package host

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/rigado/isoal"
)

// DefaultBufSize fits the largest unframed PDU payload.
const DefaultBufSize = 251

var ErrOverflow = errors.New("sdu buffer overflow")

// Buffer is the destination behind an isoal.SDUBuffer.
type Buffer struct {
	b    []byte
	size int
}

func (b *Buffer) Bytes() []byte { return b.b }

// Record is one emitted SDU buffer, or one reassembled SDU.
type Record struct {
	Sink      isoal.SinkHandle
	Conn      uint16
	Data      []byte
	Fragment  isoal.Fragment
	Status    isoal.SDUStatus
	Timestamp uint32
	Seqn      uint32
}

// Collector implements isoal.Host.
type Collector struct {
	mu sync.Mutex

	bufSize   int
	fragments []Record
	sdus      []Record
	pending   map[isoal.SinkHandle]*Record
	discard   bool

	onSDU func(Record)
}

// New returns a collector allocating bufSize byte buffers, unless the sink's
// configuration carries an SDU size hint.
func New(bufSize int) *Collector {
	if bufSize <= 0 {
		bufSize = DefaultBufSize
	}
	return &Collector{
		bufSize: bufSize,
		pending: map[isoal.SinkHandle]*Record{},
	}
}

// OnSDU registers f to be called with every reassembled SDU.
func (c *Collector) OnSDU(f func(Record)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSDU = f
}

// Discard stops the collector keeping records; only the OnSDU callback sees
// them. Long captures use this.
func (c *Collector) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discard = true
	c.fragments = nil
	c.sdus = nil
}

func (c *Collector) AllocSDU(s *isoal.Sink, pdu *isoal.PDU) (isoal.SDUBuffer, error) {
	size := c.bufSize
	if hint := s.Param().SDUSizeMax; hint > 0 {
		size = hint
	}
	return isoal.SDUBuffer{Buf: &Buffer{b: make([]byte, 0, size), size: size}, Size: size}, nil
}

func (c *Collector) WriteSDU(dst isoal.SDUBuffer, src []byte) error {
	buf, ok := dst.Buf.(*Buffer)
	if !ok {
		return fmt.Errorf("foreign sdu buffer %T", dst.Buf)
	}
	if len(buf.b)+len(src) > buf.size {
		return errors.Wrapf(ErrOverflow, "write %d bytes at %d of %d", len(src), len(buf.b), buf.size)
	}
	buf.b = append(buf.b, src...)
	return nil
}

func (c *Collector) EmitSDU(s *isoal.Sink, sdu *isoal.SDU) error {
	buf, ok := sdu.Contents.Buf.(*Buffer)
	if !ok {
		return fmt.Errorf("foreign sdu buffer %T", sdu.Contents.Buf)
	}

	rec := Record{
		Sink:      s.Handle(),
		Conn:      s.Session().Handle,
		Data:      buf.b,
		Fragment:  sdu.Fragment,
		Status:    sdu.Status,
		Timestamp: sdu.Timestamp,
		Seqn:      sdu.Seqn,
	}

	c.mu.Lock()
	whole, done := c.reassemble(rec)
	if !c.discard {
		c.fragments = append(c.fragments, rec)
		if done {
			c.sdus = append(c.sdus, whole)
		}
	}
	f := c.onSDU
	c.mu.Unlock()

	if done && f != nil {
		f(whole)
	}
	return nil
}

// reassemble joins START/CONT/END buffers of one sink back into an SDU. The
// status of the last buffer wins since the sink accumulates it.
func (c *Collector) reassemble(rec Record) (Record, bool) {
	switch rec.Fragment {
	case isoal.FragmentSingle:
		rec.Data = append([]byte(nil), rec.Data...)
		return rec, true

	case isoal.FragmentStart:
		p := rec
		p.Data = append([]byte(nil), rec.Data...)
		c.pending[rec.Sink] = &p
		return Record{}, false

	case isoal.FragmentCont, isoal.FragmentEnd:
		p, ok := c.pending[rec.Sink]
		if !ok {
			// start never seen; deliver what we have
			p = &Record{Sink: rec.Sink, Conn: rec.Conn, Timestamp: rec.Timestamp, Seqn: rec.Seqn}
			c.pending[rec.Sink] = p
		}
		p.Data = append(p.Data, rec.Data...)
		p.Status = rec.Status
		if rec.Fragment == isoal.FragmentCont {
			return Record{}, false
		}
		delete(c.pending, rec.Sink)
		p.Fragment = isoal.FragmentSingle
		return *p, true
	}

	return Record{}, false
}

// Fragments returns every emitted buffer in order.
func (c *Collector) Fragments() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Record(nil), c.fragments...)
}

// SDUs returns every reassembled SDU in order.
func (c *Collector) SDUs() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Record(nil), c.sdus...)
}

// Reset drops everything collected so far.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fragments = nil
	c.sdus = nil
	c.pending = map[isoal.SinkHandle]*Record{}
}

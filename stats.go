package isoal

import "sync/atomic"

// Stats is a point-in-time copy of a sink's counters.
type Stats struct {
	PDUs      uint64 // PDUs consumed while enabled
	Rejected  uint64 // PDUs offered while disabled
	SDUs      uint64 // emit calls
	Buffers   uint64 // SDU buffers allocated
	SeqErrors uint64 // payload number gaps
	PDUErrors uint64 // PDUs with a non-valid status
}

// sinkStats may be read from another goroutine (e.g. a metrics scrape) while
// the owning context keeps recombining.
type sinkStats struct {
	pdus      atomic.Uint64
	rejected  atomic.Uint64
	sdus      atomic.Uint64
	buffers   atomic.Uint64
	seqErrors atomic.Uint64
	pduErrors atomic.Uint64
}

func (s *sinkStats) snapshot() Stats {
	return Stats{
		PDUs:      s.pdus.Load(),
		Rejected:  s.rejected.Load(),
		SDUs:      s.sdus.Load(),
		Buffers:   s.buffers.Load(),
		SeqErrors: s.seqErrors.Load(),
		PDUErrors: s.pduErrors.Load(),
	}
}

func (s *sinkStats) reset() {
	s.pdus.Store(0)
	s.rejected.Store(0)
	s.sdus.Store(0)
	s.buffers.Store(0)
	s.seqErrors.Store(0)
	s.pduErrors.Store(0)
}

package isoal

import (
	"fmt"
	"sync/atomic"
)

// SinkHandle indexes a sink in its registry.
type SinkHandle uint8

type productionMode uint32

const (
	modeDisabled productionMode = iota
	modeEnabled
)

// rxState is the recombination state of a sink.
type rxState uint8

const (
	rxStart    rxState = iota // expecting the first PDU or segment of an SDU
	rxContinue                // mid-SDU
	rxErrSpool                // discarding until the next SDU boundary
)

func (s rxState) String() string {
	switch s {
	case rxStart:
		return "start"
	case rxContinue:
		return "continue"
	case rxErrSpool:
		return "err-spool"
	default:
		return fmt.Sprintf("rxState(%d)", uint8(s))
	}
}

// SinkConfig is the caller-owned configuration of a sink. Changing it after
// creation does not alter the derived Session.
type SinkConfig struct {
	Label      string `json:"label,omitempty"`
	ConnHandle uint16 `json:"conn_handle"`
	Role       Role   `json:"role"`
	Timing     Timing `json:"timing"`

	// SDUSizeMax is a hint for hosts sizing their buffers; 0 means no hint.
	SDUSizeMax int `json:"sdu_size_max,omitempty"`
}

// production is the SDU production bookkeeping, zeroed on every Enable.
type production struct {
	fsm    rxState
	marker Fragment

	sdu       SDU // accumulator; sdu.Written counts bytes in the current buffer
	available int // bytes left in the current buffer

	status    SDUStatus // accumulated status of the SDU being built
	timestamp uint32    // reconstructed timestamp of the SDU being built
	done      bool      // the SDU being built has been emitted with its end

	// framed: a loss was already reported since the last start segment
	errReported bool

	pduCnt    uint32
	prevPDUID uint64
	seenPDU   bool
}

// Sink recombines the PDUs of one isochronous connection into SDUs.
type Sink struct {
	handle  SinkHandle
	mode    atomic.Uint32
	session Session
	param   SinkConfig
	prod    production
	log     Logger
	stats   sinkStats
}

func (s *Sink) Handle() SinkHandle { return s.handle }

// Param returns the sink's configuration; see Registry.ParamRef.
func (s *Sink) Param() *SinkConfig { return &s.param }

// Session returns the sink's derived session parameters.
func (s *Sink) Session() *Session { return &s.session }

// Stats returns a copy of the sink's counters. Safe to call concurrently
// with Recombine.
func (s *Sink) Stats() Stats { return s.stats.snapshot() }

func (s *Sink) enabled() bool {
	return productionMode(s.mode.Load()) == modeEnabled
}

func (s *Sink) assert(cond bool, format string, args ...interface{}) {
	if cond {
		return
	}
	msg := fmt.Sprintf(format, args...)
	s.log.Errorf("invariant violated: %s", msg)
	panic("isoal: " + msg)
}

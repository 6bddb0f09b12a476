package isoal

// SDUBuffer describes a destination buffer handed out by the host.
// Buf is opaque to the sink; Size must be greater than zero.
type SDUBuffer struct {
	Buf  interface{}
	Size int
}

// SDU is a produced SDU as handed to Host.EmitSDU.
type SDU struct {
	Contents  SDUBuffer
	Written   int
	Status    SDUStatus
	Timestamp uint32
	Seqn      uint32
	Fragment  Fragment
}

// Host is the upper layer a sink produces SDUs for. The sink calls it
// synchronously from Recombine and never re-enters it.
type Host interface {
	// AllocSDU returns a fresh buffer. The PDU that needs the space is passed
	// so the host may size or tag the buffer after it.
	AllocSDU(s *Sink, pdu *PDU) (SDUBuffer, error)

	// WriteSDU appends src to dst.
	WriteSDU(dst SDUBuffer, src []byte) error

	// EmitSDU delivers a completed buffer.
	EmitSDU(s *Sink, sdu *SDU) error
}

// HostFuncs adapts three functions to the Host interface.
type HostFuncs struct {
	Alloc func(s *Sink, pdu *PDU) (SDUBuffer, error)
	Write func(dst SDUBuffer, src []byte) error
	Emit  func(s *Sink, sdu *SDU) error
}

func (h HostFuncs) AllocSDU(s *Sink, pdu *PDU) (SDUBuffer, error) { return h.Alloc(s, pdu) }
func (h HostFuncs) WriteSDU(dst SDUBuffer, src []byte) error      { return h.Write(dst, src) }
func (h HostFuncs) EmitSDU(s *Sink, sdu *SDU) error               { return h.Emit(s, sdu) }

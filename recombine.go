package isoal

// Recombine consumes one received PDU on sink h, emitting every SDU it
// completes through the sink's host.
//
// A disabled or destroyed sink drops the PDU and returns StatusErrSDUAlloc;
// only a disabled one counts it as rejected. Otherwise the result is the union
// of the host failures met along the way; a non-OK result means some SDUs may
// be incomplete, but the PDU has been fully processed.
func (r *Registry) Recombine(h SinkHandle, pdu *PDU) Status {
	if int(h) >= len(r.sinks) {
		panic("isoal: sink handle out of range")
	}
	if r.allocated[h] != allocTaken {
		return StatusErrSDUAlloc
	}
	return r.sinks[h].recombine(pdu)
}

func (s *Sink) recombine(pdu *PDU) Status {
	if pdu == nil {
		panic("isoal: nil pdu")
	}

	if !s.enabled() {
		s.stats.rejected.Add(1)
		return StatusErrSDUAlloc
	}

	if pdu.LLID == LLIDFramed {
		return s.framedConsume(pdu)
	}
	return s.unframedConsume(pdu)
}

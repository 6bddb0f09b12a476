package isoal

// allocateSDU gets a new host buffer if the previous one was filled (and so
// emitted). The accumulator is stamped from the sink's bookkeeping.
func (s *Sink) allocateSDU(pdu *PDU) Status {
	p := &s.prod
	if p.available != 0 {
		return StatusOK
	}

	buf, err := s.session.host.AllocSDU(s, pdu)
	st := statusOf(err, StatusErrSDUAlloc)
	s.assert(buf.Size > 0, "host allocated a %d byte sdu buffer", buf.Size)
	s.stats.buffers.Add(1)

	p.sdu = SDU{
		Contents:  buf,
		Status:    p.status,
		Timestamp: p.timestamp,
		Seqn:      s.session.seqn,
	}
	p.available = buf.Size

	return st
}

// tryEmitSDU emits the current buffer if it is full or if endOfSDU is set,
// and advances the fragment marker.
//
//	marker  end   emitted as  next
//	START   yes   SINGLE      START
//	START   no    START       CONT
//	CONT    yes   END         START
//	CONT    no    CONT        CONT
func (s *Sink) tryEmitSDU(endOfSDU bool) Status {
	p := &s.prod
	if endOfSDU {
		p.available = 0
	}
	if p.available != 0 {
		return StatusOK
	}

	var emitAs, next Fragment
	switch p.marker {
	case FragmentStart:
		if endOfSDU {
			emitAs, next = FragmentSingle, FragmentStart
		} else {
			emitAs, next = FragmentStart, FragmentCont
		}
	case FragmentCont:
		if endOfSDU {
			emitAs, next = FragmentEnd, FragmentStart
		} else {
			emitAs, next = FragmentCont, FragmentCont
		}
	default:
		s.assert(false, "fragment marker %v at emit", p.marker)
	}

	p.sdu.Fragment = emitAs
	p.sdu.Status = p.status
	err := s.session.host.EmitSDU(s, &p.sdu)
	s.stats.sdus.Add(1)

	p.marker = next
	if endOfSDU {
		p.done = true
	}

	return statusOf(err, StatusErrSDUEmit)
}

// appendToSDU feeds b, a byte range of pdu, into SDU buffers, emitting every
// buffer that fills up. When endFragment is set the last buffer touched is
// emitted as the end of the SDU; an empty b with endFragment still forces
// that emit, which is how an SDU is terminated after an error.
func (s *Sink) appendToSDU(pdu *PDU, b []byte, endFragment bool) Status {
	st := StatusOK
	p := &s.prod
	forceEnd := endFragment && len(b) == 0

	for len(b) > 0 || forceEnd {
		st |= s.allocateSDU(pdu)

		n := len(b)
		if n > p.available {
			n = p.available
		}

		if n > 0 {
			// errored PDUs are accounted for but never copied
			if pdu.valid() {
				err := s.session.host.WriteSDU(p.sdu.Contents, b[:n])
				st |= statusOf(err, StatusErrUnspecified)
			}
			b = b[n:]
			p.sdu.Written += n
			p.available -= n
		}

		st |= s.tryEmitSDU(len(b) == 0 && endFragment)
		forceEnd = false
	}

	return st
}

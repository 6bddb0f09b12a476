package isoal

// framedConsume walks the segments of a framed PDU.
//
// A missing or corrupt PDU, or a gap in payload numbers, terminates the SDU
// in progress with the error flagged and spools until the next start segment.
func (s *Sink) framedConsume(pdu *PDU) Status {
	st := StatusOK
	p := &s.prod

	pduErr := !pdu.valid()
	seqErr := p.seenPDU && pdu.PayloadNumber != p.prevPDUID+1

	switch {
	case pduErr || seqErr:
		flags := SDUStatusLostData
		if pduErr {
			flags = SDUStatus(pdu.Status)
			s.stats.pduErrors.Add(1)
		} else {
			s.stats.seqErrors.Add(1)
		}
		st |= s.abortFramed(pdu, flags)
		s.log.Debugf("framed: spooling from pdu %d (%v, seq err %v)", pdu.PayloadNumber, pdu.Status, seqErr)

	case len(pdu.Payload) == 0:
		// padding

	default:
		st |= s.framedSegments(pdu)
	}

	s.stats.pdus.Add(1)
	p.prevPDUID = pdu.PayloadNumber
	p.seenPDU = true

	return st
}

// abortFramed terminates the SDU in progress with flags and starts spooling.
// With no SDU in progress the loss is reported as an empty SDU of its own,
// once per run of errors between two start segments.
func (s *Sink) abortFramed(pdu *PDU, flags SDUStatus) Status {
	st := StatusOK
	p := &s.prod

	switch {
	case p.fsm == rxContinue:
		p.status |= flags
		st = s.appendToSDU(pdu, nil, true)
		p.errReported = true

	case !p.errReported:
		p.status = flags
		p.marker = FragmentStart
		p.done = false
		s.session.seqn++
		p.timestamp = pdu.Timestamp + s.session.LatencyFramed
		st = s.appendToSDU(pdu, nil, true)
		p.errReported = true
	}

	p.fsm = rxErrSpool
	return st
}

func (s *Sink) framedSegments(pdu *PDU) Status {
	st := StatusOK
	p := &s.prod

	for b := pdu.Payload; len(b) > 0; {
		h, err := DecodeSegmentHeader(b)
		if err != nil {
			s.log.Warnf("framed: pdu %d, segment at %d: %v", pdu.PayloadNumber, len(pdu.Payload)-len(b), err)
			return st | s.abortFramed(pdu, SDUStatusErrors) | StatusErrUnspecified
		}

		if p.fsm == rxContinue && !h.SC {
			// a new SDU starts before the last one completed
			p.status |= SDUStatusErrors
			st |= s.appendToSDU(pdu, nil, true)
			p.fsm = rxStart
		}

		var next rxState
		appendData := true
		switch {
		case !h.SC:
			// start segment, in START or ERR_SPOOL
			p.status = SDUStatusValid
			p.marker = FragmentStart
			p.done = false
			p.errReported = false
			s.session.seqn++
			p.timestamp = pdu.Timestamp + s.session.LatencyFramed - h.TimeOffset

			next = rxContinue
			if h.Cmplt {
				next = rxStart
			}
		case p.fsm == rxContinue:
			next = rxContinue
			if h.Cmplt {
				next = rxStart
			}
		case p.fsm == rxStart, p.fsm == rxErrSpool:
			// continuation of an SDU whose start we never saw
			appendData = false
			next = rxErrSpool
		default:
			s.assert(false, "framed rx state %v", p.fsm)
		}

		if appendData {
			off := h.dataOffset()
			st |= s.appendToSDU(pdu, b[off:off+h.dataLen()], h.Cmplt)
		}

		p.fsm = next
		b = b[SegmentHeaderSize+int(h.Length):]
	}

	return st
}

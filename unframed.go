package isoal

// unframedConsume copies an unframed PDU into the SDU being built and emits
// whatever completes.
//
// A PDU ends the SDU when it carries LLID complete/end or when it is the
// PDUsPerSDU'th PDU of the SDU (the SDU boundary). Errored PDUs and padding
// are never copied; if the boundary is reached before the SDU was emitted,
// what was gathered so far is emitted with its error flags.
func (s *Sink) unframedConsume(pdu *PDU) Status {
	st := StatusOK
	p := &s.prod
	ss := &s.session

	llid := pdu.LLID
	pduErr := !pdu.valid()
	errStatus := SDUStatus(pdu.Status)
	if llid != LLIDCompleteEnd && llid != LLIDStartContinue {
		pduErr = true
		errStatus |= SDUStatusErrors
	}
	padding := len(pdu.Payload) == 0 && llid == LLIDStartContinue

	seqErr := false
	if p.fsm == rxStart {
		p.status = SDUStatusValid
		p.marker = FragmentStart
		p.done = false
		p.pduCnt = 1
		ss.seqn++

		// TODO: use the CIS reference anchor point once the link layer reports it
		p.timestamp = pdu.Timestamp + ss.LatencyUnframed
	} else {
		p.pduCnt++
		seqErr = pdu.PayloadNumber != p.prevPDUID+1
	}

	lastPDU := p.pduCnt >= ss.PDUsPerSDU
	endOfPacket := llid == LLIDCompleteEnd || lastPDU

	var next rxState
	switch p.fsm {
	case rxStart, rxContinue:
		switch {
		case pduErr || seqErr:
			next = rxErrSpool
			if lastPDU {
				next = rxStart
			}
		case llid == LLIDStartContinue:
			// no end fragment on the last PDU is flagged below
			next = rxContinue
			if lastPDU {
				next = rxStart
			}
		default:
			// complete/end before the boundary: padding follows
			next = rxErrSpool
			if lastPDU {
				next = rxStart
			}
		}
	case rxErrSpool:
		next = rxErrSpool
		if lastPDU {
			next = rxStart
		}
	default:
		s.assert(false, "unframed rx state %v", p.fsm)
	}

	switch {
	case pduErr && !padding:
		p.status |= errStatus
	case lastPDU && llid != LLIDCompleteEnd && p.fsm != rxErrSpool:
		// end fragment never seen
		p.status |= SDUStatusErrors
	case seqErr:
		p.status |= SDUStatusLostData
	}

	if !padding && !pduErr {
		st |= s.appendToSDU(pdu, pdu.Payload, endOfPacket)
	}
	if next == rxStart && !p.done {
		st |= s.appendToSDU(pdu, nil, true)
	}

	s.stats.pdus.Add(1)
	if pduErr {
		s.stats.pduErrors.Add(1)
	}
	if seqErr {
		s.stats.seqErrors.Add(1)
	}
	if next == rxErrSpool && p.fsm != rxErrSpool {
		s.log.Debugf("unframed: spooling from pdu %d (%v, seq err %v)", pdu.PayloadNumber, pdu.Status, seqErr)
	}

	p.fsm = next
	p.prevPDUID = pdu.PayloadNumber
	p.seenPDU = true

	return st
}

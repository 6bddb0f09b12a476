package isoal

// LLID of a CIS/BIS Data PDU [Vol 6, Part B, 2.6].
type LLID uint8

const (
	LLIDCompleteEnd   LLID = 0x00 // unframed: complete SDU or end fragment
	LLIDStartContinue LLID = 0x01 // unframed: start or continuation fragment
	LLIDFramed        LLID = 0x02 // framed: one or more segments
	llidReserved      LLID = 0x03
)

func (l LLID) String() string {
	switch l {
	case LLIDCompleteEnd:
		return "complete-end"
	case LLIDStartContinue:
		return "start-continue"
	case LLIDFramed:
		return "framed"
	default:
		return "reserved"
	}
}

// PDU is one received ISO Data PDU plus the metadata the link layer attaches to it.
// The payload length is len(Payload).
type PDU struct {
	LLID          LLID
	Payload       []byte
	Status        PDUStatus
	Timestamp     uint32 // anchor point, microseconds
	PayloadNumber uint64
}

func (p *PDU) valid() bool { return p.Status == PDUStatusValid }

// Fragment marks an emitted SDU buffer's place within a host-level SDU.
// Values follow the HCI ISO Data packet PB_Flag [Vol 4, Part E, 5.4.5].
type Fragment uint8

const (
	FragmentStart  Fragment = 0x00
	FragmentCont   Fragment = 0x01
	FragmentEnd    Fragment = 0x02
	FragmentSingle Fragment = 0x03
)

func (f Fragment) String() string {
	switch f {
	case FragmentStart:
		return "start"
	case FragmentCont:
		return "cont"
	case FragmentEnd:
		return "end"
	case FragmentSingle:
		return "single"
	default:
		return "invalid"
	}
}

package isoal

import (
	"fmt"
)

// Role of the local device on the CIS.
type Role uint8

const (
	RoleCentral    Role = 0x00
	RolePeripheral Role = 0x01
)

func (r Role) String() string {
	switch r {
	case RoleCentral:
		return "central"
	case RolePeripheral:
		return "peripheral"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// Timing holds the link layer parameters a sink derives its session from.
type Timing struct {
	BurstNumber  uint8  `json:"burst_number"`
	FlushTimeout uint8  `json:"flush_timeout"`
	SDUInterval  uint32 `json:"sdu_interval"` // microseconds
	ISOInterval  uint16 `json:"iso_interval"` // N * 1.25 msec
	CISSyncDelay uint32 `json:"cis_sync_delay"`
	CIGSyncDelay uint32 `json:"cig_sync_delay"`
}

const (
	isoIntervalMin = 0x0004
	isoIntervalMax = 0x0c80
	sduIntervalMin = 0x0000ff
	sduIntervalMax = 0x0fffff
)

// Validate reports parameters outside the ranges the controller accepts.
func (t Timing) Validate() error {
	if t.ISOInterval < isoIntervalMin || t.ISOInterval > isoIntervalMax {
		return fmt.Errorf("iso interval %d out of range [%d, %d]", t.ISOInterval, isoIntervalMin, isoIntervalMax)
	}
	if t.SDUInterval < sduIntervalMin || t.SDUInterval > sduIntervalMax {
		return fmt.Errorf("sdu interval %d out of range [%d, %d]", t.SDUInterval, sduIntervalMin, sduIntervalMax)
	}
	if t.BurstNumber == 0 {
		return fmt.Errorf("burst number must be at least 1")
	}
	if t.FlushTimeout == 0 {
		return fmt.Errorf("flush timeout must be at least 1")
	}
	return nil
}

// Session is fixed when the sink is created and lives until it is destroyed.
type Session struct {
	Handle          uint16 // connection handle
	Role            Role
	PDUsPerSDU      uint32
	LatencyUnframed uint32
	LatencyFramed   uint32

	seqn uint32
	host Host
}

// Seqn is the sequence number of the SDU most recently started.
func (s *Session) Seqn() uint32 { return s.seqn }

// deriveSession computes the session constants. All arithmetic is modulo 2^32,
// so a central whose CIG sync delay exceeds the CIS sync delay wraps just as
// the controller's timers do.
func deriveSession(handle uint16, role Role, t Timing, host Host) Session {
	s := Session{
		Handle: handle,
		Role:   role,
		host:   host,
	}

	sduInterval := t.SDUInterval
	isoInterval := uint32(t.ISOInterval)
	ft := uint32(t.FlushTimeout)

	// sdu_interval is in us, iso_interval in units of 1.25 ms
	s.PDUsPerSDU = uint32(t.BurstNumber) * (sduInterval / (isoInterval * 1250))

	// SDU synchronization reference [Vol 6, Part G, 3.2 and 3.3]:
	//
	// unframed, peripheral:
	//   anchor + CIS_Sync_Delay + (FT - 1) * ISO_Interval
	// unframed, central:
	//   anchor + CIS_Sync_Delay - CIG_Sync_Delay - ((ISO_Interval / SDU_Interval) - 1) * ISO_Interval
	// framed, peripheral:
	//   anchor + CIS_Sync_Delay + SDU_Interval + FT * ISO_Interval - Time_Offset
	// framed, central:
	//   anchor + CIS_Sync_Delay - CIG_Sync_Delay - Time_Offset
	if role == RolePeripheral {
		s.LatencyUnframed = t.CISSyncDelay + (ft-1)*isoInterval
		s.LatencyFramed = t.CISSyncDelay + sduInterval + ft*isoInterval
	} else {
		s.LatencyUnframed = t.CISSyncDelay - t.CIGSyncDelay - ((isoInterval/sduInterval)-1)*isoInterval
		s.LatencyFramed = t.CISSyncDelay - t.CIGSyncDelay
	}

	return s
}

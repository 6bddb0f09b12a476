package isoal

import (
	"bytes"
	"testing"
)

type testBuf struct {
	b []byte
}

type emitted struct {
	data []byte
	sdu  SDU
}

// recHost hands out fixed-size buffers and records every emit.
type recHost struct {
	size int

	allocErr error
	writeErr error
	emitErr  error

	allocs int
	writes int
	sdus   []emitted
}

func (h *recHost) AllocSDU(s *Sink, pdu *PDU) (SDUBuffer, error) {
	h.allocs++
	return SDUBuffer{Buf: &testBuf{}, Size: h.size}, h.allocErr
}

func (h *recHost) WriteSDU(dst SDUBuffer, src []byte) error {
	h.writes++
	tb := dst.Buf.(*testBuf)
	tb.b = append(tb.b, src...)
	return h.writeErr
}

func (h *recHost) EmitSDU(s *Sink, sdu *SDU) error {
	tb := sdu.Contents.Buf.(*testBuf)
	h.sdus = append(h.sdus, emitted{data: append([]byte(nil), tb.b...), sdu: *sdu})
	return h.emitErr
}

// timing with pdusPerSDU PDUs per SDU: one SDU every ISO interval of 10 ms.
func testTiming(pdusPerSDU uint8) Timing {
	return Timing{
		BurstNumber:  pdusPerSDU,
		FlushTimeout: 2,
		SDUInterval:  10000,
		ISOInterval:  8,
		CISSyncDelay: 1000,
		CIGSyncDelay: 400,
	}
}

const (
	testLatencyUnframed = 1000 + 1*8          // peripheral, FT 2
	testLatencyFramed   = 1000 + 10000 + 2*8 // peripheral, FT 2
)

func newTestSink(t *testing.T, pdusPerSDU uint8, bufSize int) (*Registry, SinkHandle, *recHost) {
	t.Helper()

	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	host := &recHost{size: bufSize}
	h, st := r.Create(0x0010, RolePeripheral, testTiming(pdusPerSDU), host)
	if st != StatusOK {
		t.Fatalf("create: %v", st)
	}
	r.Enable(h)

	return r, h, host
}

func unframed(llid LLID, pn uint64, payload ...byte) *PDU {
	return &PDU{LLID: llid, Payload: payload, Status: PDUStatusValid, Timestamp: 5000, PayloadNumber: pn}
}

func framedPDU(pn uint64, payload []byte) *PDU {
	return &PDU{LLID: LLIDFramed, Payload: payload, Status: PDUStatusValid, Timestamp: 5000, PayloadNumber: pn}
}

func mustRecombine(t *testing.T, r *Registry, h SinkHandle, pdu *PDU) {
	t.Helper()
	if st := r.Recombine(h, pdu); st != StatusOK {
		t.Fatalf("recombine pdu %d: %v", pdu.PayloadNumber, st)
	}
}

func expectSDU(t *testing.T, got emitted, data []byte, frag Fragment, status SDUStatus) {
	t.Helper()
	if !bytes.Equal(got.data, data) {
		t.Fatalf("sdu data: want %x, got %x", data, got.data)
	}
	if got.sdu.Written != len(data) {
		t.Fatalf("sdu written: want %d, got %d", len(data), got.sdu.Written)
	}
	if got.sdu.Fragment != frag {
		t.Fatalf("sdu fragment: want %v, got %v", frag, got.sdu.Fragment)
	}
	if got.sdu.Status != status {
		t.Fatalf("sdu status: want %v, got %v", status, got.sdu.Status)
	}
}

func expectPanic(t *testing.T, what string, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("%s: expected panic", what)
		}
	}()
	f()
}

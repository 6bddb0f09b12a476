package isoal

import (
	"errors"
	"testing"
)

func TestUnframedSingle(t *testing.T) {
	r, h, host := newTestSink(t, 1, 16)

	mustRecombine(t, r, h, unframed(LLIDCompleteEnd, 0, 1, 2, 3))

	if len(host.sdus) != 1 {
		t.Fatalf("want 1 sdu, got %d", len(host.sdus))
	}
	got := host.sdus[0]
	expectSDU(t, got, []byte{1, 2, 3}, FragmentSingle, SDUStatusValid)
	if got.sdu.Timestamp != 5000+testLatencyUnframed {
		t.Fatalf("timestamp: want %d, got %d", 5000+testLatencyUnframed, got.sdu.Timestamp)
	}
	if got.sdu.Seqn != 1 {
		t.Fatalf("seqn: want 1, got %d", got.sdu.Seqn)
	}
	if r.Sink(h).prod.fsm != rxStart {
		t.Fatalf("fsm: want start, got %v", r.Sink(h).prod.fsm)
	}
}

func TestUnframedMultiPDU(t *testing.T) {
	r, h, host := newTestSink(t, 3, 16)

	mustRecombine(t, r, h, unframed(LLIDStartContinue, 10, 1, 2))
	if r.Sink(h).prod.fsm != rxContinue {
		t.Fatalf("fsm: want continue, got %v", r.Sink(h).prod.fsm)
	}
	mustRecombine(t, r, h, unframed(LLIDStartContinue, 11, 3))
	mustRecombine(t, r, h, unframed(LLIDCompleteEnd, 12, 4, 5))

	if len(host.sdus) != 1 {
		t.Fatalf("want 1 sdu, got %d", len(host.sdus))
	}
	expectSDU(t, host.sdus[0], []byte{1, 2, 3, 4, 5}, FragmentSingle, SDUStatusValid)

	mustRecombine(t, r, h, unframed(LLIDCompleteEnd, 13, 6))
	if len(host.sdus) != 2 || host.sdus[1].sdu.Seqn != 2 {
		t.Fatalf("second sdu missing or wrong seqn: %+v", host.sdus)
	}
}

func TestUnframedSeqGap(t *testing.T) {
	r, h, host := newTestSink(t, 3, 16)

	mustRecombine(t, r, h, unframed(LLIDStartContinue, 0, 1, 2))
	mustRecombine(t, r, h, unframed(LLIDStartContinue, 2, 3, 4))
	if r.Sink(h).prod.fsm != rxErrSpool {
		t.Fatalf("fsm: want err-spool, got %v", r.Sink(h).prod.fsm)
	}
	if len(host.sdus) != 0 {
		t.Fatalf("emitted before the sdu boundary")
	}

	mustRecombine(t, r, h, unframed(LLIDCompleteEnd, 3, 5))
	if r.Sink(h).prod.fsm != rxStart {
		t.Fatalf("fsm: want start at the boundary, got %v", r.Sink(h).prod.fsm)
	}

	if len(host.sdus) != 1 {
		t.Fatalf("want 1 sdu, got %d", len(host.sdus))
	}
	if !host.sdus[0].sdu.Status.Has(SDUStatusLostData) {
		t.Fatalf("status: want lost-data, got %v", host.sdus[0].sdu.Status)
	}
	if s := r.Stats(h); s.SeqErrors != 1 {
		t.Fatalf("seq errors: want 1, got %d", s.SeqErrors)
	}
}

func TestUnframedSeqGapOnLastPDU(t *testing.T) {
	r, h, host := newTestSink(t, 2, 16)

	mustRecombine(t, r, h, unframed(LLIDStartContinue, 0, 1))
	mustRecombine(t, r, h, unframed(LLIDCompleteEnd, 5, 2))

	if r.Sink(h).prod.fsm != rxStart {
		t.Fatalf("fsm: want start, got %v", r.Sink(h).prod.fsm)
	}
	expectSDU(t, host.sdus[0], []byte{1, 2}, FragmentSingle, SDUStatusLostData)

	// next sdu is clean
	mustRecombine(t, r, h, unframed(LLIDStartContinue, 6, 3))
	mustRecombine(t, r, h, unframed(LLIDCompleteEnd, 7, 4))
	expectSDU(t, host.sdus[1], []byte{3, 4}, FragmentSingle, SDUStatusValid)
}

func TestUnframedLostLastPDU(t *testing.T) {
	r, h, host := newTestSink(t, 2, 16)

	mustRecombine(t, r, h, unframed(LLIDStartContinue, 0, 1, 2))
	lost := &PDU{LLID: LLIDCompleteEnd, Status: PDUStatusLostData, Timestamp: 5000, PayloadNumber: 1}
	mustRecombine(t, r, h, lost)

	if len(host.sdus) != 1 {
		t.Fatalf("partial sdu not flushed at the boundary")
	}
	expectSDU(t, host.sdus[0], []byte{1, 2}, FragmentSingle, SDUStatusLostData)
	if r.Stats(h).PDUErrors != 1 {
		t.Fatalf("pdu errors not counted")
	}
}

func TestUnframedErrorMidSDU(t *testing.T) {
	r, h, host := newTestSink(t, 3, 16)

	mustRecombine(t, r, h, unframed(LLIDStartContinue, 0, 1, 2))
	crc := &PDU{LLID: LLIDStartContinue, Payload: []byte{9, 9}, Status: PDUStatusErrors, Timestamp: 5000, PayloadNumber: 1}
	mustRecombine(t, r, h, crc)
	if r.Sink(h).prod.fsm != rxErrSpool {
		t.Fatalf("fsm: want err-spool, got %v", r.Sink(h).prod.fsm)
	}
	mustRecombine(t, r, h, unframed(LLIDCompleteEnd, 2, 3))

	if len(host.sdus) != 1 {
		t.Fatalf("want 1 sdu, got %d", len(host.sdus))
	}
	// the errored PDU is never copied
	expectSDU(t, host.sdus[0], []byte{1, 2, 3}, FragmentSingle, SDUStatusErrors)
}

func TestUnframedMissingEnd(t *testing.T) {
	r, h, host := newTestSink(t, 2, 16)

	mustRecombine(t, r, h, unframed(LLIDStartContinue, 0, 1))
	mustRecombine(t, r, h, unframed(LLIDStartContinue, 1, 2))

	if len(host.sdus) != 1 {
		t.Fatalf("want 1 sdu, got %d", len(host.sdus))
	}
	expectSDU(t, host.sdus[0], []byte{1, 2}, FragmentSingle, SDUStatusErrors)
	if r.Sink(h).prod.fsm != rxStart {
		t.Fatalf("fsm: want start, got %v", r.Sink(h).prod.fsm)
	}
}

func TestUnframedPaddingAfterEnd(t *testing.T) {
	r, h, host := newTestSink(t, 3, 16)

	mustRecombine(t, r, h, unframed(LLIDCompleteEnd, 0, 1, 2))
	if r.Sink(h).prod.fsm != rxErrSpool {
		t.Fatalf("fsm: want err-spool while padding follows, got %v", r.Sink(h).prod.fsm)
	}
	mustRecombine(t, r, h, unframed(LLIDStartContinue, 1))
	mustRecombine(t, r, h, unframed(LLIDStartContinue, 2))
	if r.Sink(h).prod.fsm != rxStart {
		t.Fatalf("fsm: want start, got %v", r.Sink(h).prod.fsm)
	}

	if len(host.sdus) != 1 {
		t.Fatalf("padding produced sdus: %d", len(host.sdus))
	}
	expectSDU(t, host.sdus[0], []byte{1, 2}, FragmentSingle, SDUStatusValid)

	mustRecombine(t, r, h, unframed(LLIDCompleteEnd, 3, 7))
	if len(host.sdus) != 2 || host.sdus[1].sdu.Seqn != 2 {
		t.Fatalf("next sdu missing or wrong seqn")
	}
}

func TestUnframedFragmentedOutput(t *testing.T) {
	r, h, host := newTestSink(t, 2, 2)

	mustRecombine(t, r, h, unframed(LLIDStartContinue, 0, 1, 2, 3))
	mustRecombine(t, r, h, unframed(LLIDCompleteEnd, 1, 4, 5, 6))

	want := []struct {
		data []byte
		frag Fragment
	}{
		{[]byte{1, 2}, FragmentStart},
		{[]byte{3, 4}, FragmentCont},
		{[]byte{5, 6}, FragmentEnd},
	}
	if len(host.sdus) != len(want) {
		t.Fatalf("want %d buffers, got %d", len(want), len(host.sdus))
	}
	for i, w := range want {
		expectSDU(t, host.sdus[i], w.data, w.frag, SDUStatusValid)
		if host.sdus[i].sdu.Seqn != 1 || host.sdus[i].sdu.Timestamp != 5000+testLatencyUnframed {
			t.Fatalf("buffer %d: seqn/timestamp not carried: %+v", i, host.sdus[i].sdu)
		}
	}
	if host.allocs != 3 {
		t.Fatalf("allocs: want 3, got %d", host.allocs)
	}
}

func TestUnframedExactFitEndsWithEmptyBuffer(t *testing.T) {
	r, h, host := newTestSink(t, 1, 2)

	mustRecombine(t, r, h, unframed(LLIDCompleteEnd, 0, 1, 2))
	if len(host.sdus) != 1 {
		t.Fatalf("want 1 sdu, got %d", len(host.sdus))
	}
	expectSDU(t, host.sdus[0], []byte{1, 2}, FragmentSingle, SDUStatusValid)
}

func TestUnframedEmptySDU(t *testing.T) {
	r, h, host := newTestSink(t, 1, 8)

	// a lone padding PDU on a one-PDU SDU: the SDU never arrived
	mustRecombine(t, r, h, unframed(LLIDStartContinue, 0))
	if len(host.sdus) != 1 {
		t.Fatalf("want 1 sdu, got %d", len(host.sdus))
	}
	expectSDU(t, host.sdus[0], nil, FragmentSingle, SDUStatusErrors)
	if host.writes != 0 {
		t.Fatalf("padding was written")
	}
}

func TestUnframedReservedLLID(t *testing.T) {
	r, h, host := newTestSink(t, 1, 8)

	mustRecombine(t, r, h, &PDU{LLID: llidReserved, Payload: []byte{1}, Timestamp: 5000})
	if len(host.sdus) != 1 {
		t.Fatalf("want 1 sdu, got %d", len(host.sdus))
	}
	expectSDU(t, host.sdus[0], nil, FragmentSingle, SDUStatusErrors)
}

func TestUnframedZeroPDUsPerSDU(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	host := &recHost{size: 8}
	tm := testTiming(1)
	tm.SDUInterval = 5000
	h, st := r.Create(1, RolePeripheral, tm, host)
	if st != StatusOK {
		t.Fatal(st)
	}
	r.Enable(h)

	// every PDU is taken as a boundary
	mustRecombine(t, r, h, unframed(LLIDCompleteEnd, 0, 1))
	mustRecombine(t, r, h, unframed(LLIDCompleteEnd, 1, 2))
	if len(host.sdus) != 2 {
		t.Fatalf("want 2 sdus, got %d", len(host.sdus))
	}
}

type statusErr struct{ st Status }

func (e statusErr) Error() string  { return e.st.String() }
func (e statusErr) Status() Status { return e.st }

func TestUnframedHostFailuresAccumulate(t *testing.T) {
	r, h, host := newTestSink(t, 1, 2)
	host.writeErr = errors.New("write failed")
	host.emitErr = errors.New("emit failed")

	st := r.Recombine(h, unframed(LLIDCompleteEnd, 0, 1, 2, 3))
	if !st.Has(StatusErrUnspecified | StatusErrSDUEmit) {
		t.Fatalf("status: want unspecified|sdu-emit, got %v", st)
	}
	if st.Err() == nil {
		t.Fatal("non-ok status without error")
	}
	// processing carried on through both buffers
	if len(host.sdus) != 2 {
		t.Fatalf("want 2 buffers, got %d", len(host.sdus))
	}

	host.writeErr = nil
	host.emitErr = nil
	host.allocErr = statusErr{StatusErrSDUAlloc}
	if st := r.Recombine(h, unframed(LLIDCompleteEnd, 1, 4)); st != StatusErrSDUAlloc {
		t.Fatalf("status: want sdu-alloc, got %v", st)
	}
}

func TestZeroSizeBufferPanics(t *testing.T) {
	r, h, _ := newTestSink(t, 1, 0)
	expectPanic(t, "zero size buffer", func() { r.Recombine(h, unframed(LLIDCompleteEnd, 0, 1)) })
}

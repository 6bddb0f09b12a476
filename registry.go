package isoal

import (
	"fmt"
)

// DefaultSinks is the registry capacity used when OptCapacity is not given.
const DefaultSinks = 4

type allocState uint8

const (
	allocFree allocState = iota
	allocTaken
)

// Registry is a fixed-capacity pool of sinks. It is not safe for concurrent
// use: all calls come from the one context that processes received PDUs.
// Only Sink.Stats may be called from elsewhere.
type Registry struct {
	capacity  int
	allocated []allocState
	sinks     []Sink

	log Logger
}

// NewRegistry returns a registry with every slot free.
func NewRegistry(opts ...Option) (*Registry, error) {
	r := &Registry{
		capacity: DefaultSinks,
		log:      GetLogger(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	r.allocated = make([]allocState, r.capacity)
	r.sinks = make([]Sink, r.capacity)
	return r, nil
}

// SetCapacity sets the pool size. Handles are 8 bit, so at most 256 sinks.
func (r *Registry) SetCapacity(n int) error {
	if n < 1 || n > 256 {
		return fmt.Errorf("invalid sink capacity %d", n)
	}
	if r.sinks != nil {
		return fmt.Errorf("capacity is fixed once the registry is built")
	}
	r.capacity = n
	return nil
}

func (r *Registry) SetLogger(l Logger) error {
	if l == nil {
		return fmt.Errorf("nil logger")
	}
	r.log = l
	return nil
}

// Capacity returns the number of slots in the pool.
func (r *Registry) Capacity() int { return r.capacity }

// Reset frees every sink and zeroes all state.
func (r *Registry) Reset() {
	for i := range r.sinks {
		r.allocated[i] = allocFree
		r.sinks[i].mode.Store(uint32(modeDisabled))
		r.sinks[i].session = Session{}
		r.sinks[i].param = SinkConfig{}
		r.sinks[i].prod = production{}
		r.sinks[i].stats.reset()
	}
}

// allocate takes the first free slot. The pool is tiny, so a linear scan it is.
// The slot has no host until Create fills in its session.
func (r *Registry) allocate() (SinkHandle, Status) {
	for i := range r.allocated {
		if r.allocated[i] == allocFree {
			r.allocated[i] = allocTaken

			s := &r.sinks[i]
			s.handle = SinkHandle(i)
			s.mode.Store(uint32(modeDisabled))
			s.session = Session{}
			s.param = SinkConfig{}
			s.prod = production{}
			s.stats.reset()
			s.log = sinkLogger(r.log, s.handle)

			return SinkHandle(i), StatusOK
		}
	}

	return 0, StatusErrSinkAlloc
}

func (r *Registry) deallocate(h SinkHandle) {
	r.allocated[h] = allocFree
}

// Create allocates a sink for connection handle and derives its session.
// The sink starts disabled.
func (r *Registry) Create(handle uint16, role Role, t Timing, host Host) (SinkHandle, Status) {
	if host == nil {
		panic("isoal: nil host")
	}
	if t.ISOInterval == 0 || (role != RolePeripheral && t.SDUInterval == 0) {
		panic(fmt.Sprintf("isoal: zero interval in %+v", t))
	}

	h, st := r.allocate()
	if st != StatusOK {
		r.log.Warnf("no free sink for connection 0x%04x", handle)
		return h, st
	}

	s := &r.sinks[h]
	s.session = deriveSession(handle, role, t, host)
	s.param = SinkConfig{ConnHandle: handle, Role: role, Timing: t}
	s.log = sinkLogger(r.log, h, handle)

	s.log.Debugf("created: role %v, pdus/sdu %d, latency unframed %d framed %d",
		role, s.session.PDUsPerSDU, s.session.LatencyUnframed, s.session.LatencyFramed)

	return h, StatusOK
}

// CreateFromConfig creates a sink from a stored configuration and keeps the
// configuration as the sink's parameters.
func (r *Registry) CreateFromConfig(cfg SinkConfig, host Host) (SinkHandle, Status) {
	h, st := r.Create(cfg.ConnHandle, cfg.Role, cfg.Timing, host)
	if st != StatusOK {
		return h, st
	}
	r.sinks[h].param = cfg
	return h, StatusOK
}

// sink returns the taken sink at h. Handles that are out of range or free are
// a caller bug.
func (r *Registry) sink(h SinkHandle) *Sink {
	if int(h) >= len(r.sinks) {
		panic(fmt.Sprintf("isoal: sink handle %d out of range", h))
	}
	if r.allocated[h] != allocTaken {
		panic(fmt.Sprintf("isoal: sink handle %d is not allocated", h))
	}
	return &r.sinks[h]
}

// Sink returns the sink behind h.
func (r *Registry) Sink(h SinkHandle) *Sink { return r.sink(h) }

// ParamRef returns the sink's configuration for the caller to fill in. The
// reference must not be used after Destroy.
func (r *Registry) ParamRef(h SinkHandle) *SinkConfig {
	return &r.sink(h).param
}

// Enable resets the production bookkeeping and then enables the sink. The
// mode flag is published last, so Recombine sees either a disabled sink or a
// fully reset one.
func (r *Registry) Enable(h SinkHandle) {
	s := r.sink(h)
	s.assert(s.session.host != nil, "enable of sink %d without a host", h)
	s.prod = production{}
	s.mode.Store(uint32(modeEnabled))
}

// Disable stops the sink accepting PDUs. A partially built SDU is abandoned.
func (r *Registry) Disable(h SinkHandle) {
	r.sink(h).mode.Store(uint32(modeDisabled))
}

// Destroy disables the sink and returns its slot to the pool.
func (r *Registry) Destroy(h SinkHandle) {
	r.Disable(h)
	r.deallocate(h)
}

// Stats returns a copy of the sink's counters.
func (r *Registry) Stats(h SinkHandle) Stats {
	return r.sink(h).stats.snapshot()
}

// Handles lists the handles currently allocated.
func (r *Registry) Handles() []SinkHandle {
	var hh []SinkHandle
	for i, a := range r.allocated {
		if a == allocTaken {
			hh = append(hh, SinkHandle(i))
		}
	}
	return hh
}

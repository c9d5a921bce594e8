package combinators

import (
	"sync/atomic"

	"github.com/vic/godetach/pkg/term"
)

type EventKind int

const (
	EventUnknown EventKind = iota
	EventExtracted
	EventPreserved
	EventKeptSimple
)

func (k EventKind) String() string {
	switch k {
	case EventExtracted:
		return "extracted"
	case EventPreserved:
		return "preserved"
	case EventKeptSimple:
		return "kept-simple"
	default:
		return "unknown"
	}
}

// TraceEvent records what happened to one lambda.
type TraceEvent struct {
	Step   uint64
	Kind   EventKind
	Def    term.Name
	Binder term.Name
	Depth  int
}

// Stats holds pass statistics, summed over every run of the pass.
type Stats struct {
	Rules      uint64
	Extracted  uint64
	Preserved  uint64
	KeptSimple uint64
	Rewrites   uint64
	Uses       [numCombinators]uint64
}

// Total returns the number of combinator references emitted.
func (s Stats) Total() uint64 {
	var n uint64
	for _, u := range s.Uses {
		n += u
	}
	return n
}

type counters struct {
	rules      uint64
	extracted  uint64
	preserved  uint64
	keptSimple uint64
	rewrites   uint64
	uses       [numCombinators]uint64

	traceBuf []TraceEvent
	traceCap uint64
	traceIdx uint64
	traceOn  uint32
}

// EnableTrace keeps the first capacity events of each following run.
// A capacity <= 0 turns tracing off.
func (p *Pass) EnableTrace(capacity int) {
	if capacity <= 0 {
		atomic.StoreUint32(&p.c.traceOn, 0)
		return
	}
	p.c.traceBuf = make([]TraceEvent, capacity)
	p.c.traceCap = uint64(capacity)
	atomic.StoreUint64(&p.c.traceIdx, 0)
	atomic.StoreUint32(&p.c.traceOn, 1)
}

// resetTrace starts the buffer over; runs do not share events.
func (p *Pass) resetTrace() {
	atomic.StoreUint64(&p.c.traceIdx, 0)
}

func (p *Pass) TraceSnapshot() []TraceEvent {
	if atomic.LoadUint32(&p.c.traceOn) == 0 {
		return nil
	}
	count := atomic.LoadUint64(&p.c.traceIdx)
	if count > p.c.traceCap {
		count = p.c.traceCap
	}
	res := make([]TraceEvent, count)
	copy(res, p.c.traceBuf[:count])
	return res
}

func (p *Pass) recordTrace(kind EventKind, def, binder term.Name, depth int) {
	if atomic.LoadUint32(&p.c.traceOn) == 0 || p.c.traceCap == 0 {
		return
	}
	idx := atomic.AddUint64(&p.c.traceIdx, 1) - 1
	if idx >= p.c.traceCap {
		return
	}
	p.c.traceBuf[idx] = TraceEvent{
		Step:   idx,
		Kind:   kind,
		Def:    def,
		Binder: binder,
		Depth:  depth,
	}
}

func (p *Pass) GetStats() Stats {
	s := Stats{
		Rules:      atomic.LoadUint64(&p.c.rules),
		Extracted:  atomic.LoadUint64(&p.c.extracted),
		Preserved:  atomic.LoadUint64(&p.c.preserved),
		KeptSimple: atomic.LoadUint64(&p.c.keptSimple),
		Rewrites:   atomic.LoadUint64(&p.c.rewrites),
	}
	for i := range s.Uses {
		s.Uses[i] = atomic.LoadUint64(&p.c.uses[i])
	}
	return s
}

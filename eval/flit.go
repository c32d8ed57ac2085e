// Package eval implements the traffic-eval engine: flit lifecycle, the
// random and netrace generation strategies, the phase state machine, and
// the statistics collector driven once per cycle per port by the two
// tick entry points in tick.go.
package eval

// Flit is the atomic flow-control unit injected into and ejected from
// the DUT. It is immutable after creation: every field is set once by
// InjectFlitsForPacket and never mutated thereafter.
type Flit struct {
	UniqueID  int64
	Ingress   int
	Egress    int
	Head      bool
	Tail      bool
	CreatedAt uint64
}

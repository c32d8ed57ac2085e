package eval

// Strategy is the capability set a traffic-generation model provides.
// There is no need for a vtable or an enum-keyed dispatch in Go — an
// interface with two methods is the idiomatic equivalent of the
// inheritance-based strategy hierarchy the original evaluator used.
type Strategy interface {
	// IngressTick drives one cycle of generation/dequeue for ingress.
	// If ready and the queue is nonempty, it returns the dequeued head
	// flit and true; otherwise it returns the zero Flit and false.
	IngressTick(ingress int, currentCycle uint64, ready bool, genPackets bool) (Flit, bool)

	// EgressTick delivers a flit at egress. valid indicates the DUT
	// actually has a flit to deliver this cycle.
	EgressTick(egress int, currentCycle uint64, valid bool, f Flit)
}

package eval

import (
	"github.com/sirupsen/logrus"

	"github.com/noc-traffic-eval/traffic-eval/netrace"
)

// NetraceStrategy replays a netrace.Reader's trace in issue-cycle order
// while respecting its inter-packet dependency DAG. Packets
// whose dependencies are not yet satisfied sit in a per-ingress waiting
// list; packets whose src/dst fall outside the configured topology are
// set aside in a dead-packet list and freed as soon as their own
// dependencies clear, without ever being injected.
type NetraceStrategy struct {
	eval   *Evaluator
	reader netrace.Reader

	cycleOffset uint64
	nextPacket  *netrace.Packet

	waitingQueues [][]waitingPacket
	deadPackets   []netrace.Packet
	packetByTail  map[int64]netrace.Packet

	ignoreDependencies bool
	lastAdvancedCycle  *uint64
}

// NewNetraceStrategy opens reader per the configured region/dependency
// settings, prefetches the first trace packet, and sets cycle_offset to
// the sum of num_cycles across the regions preceding the chosen one.
func NewNetraceStrategy(e *Evaluator, reader netrace.Reader) *NetraceStrategy {
	if e.Params.Netrace.IgnoreDependencies {
		reader.DisableDependencies()
	}
	if err := reader.SeekRegion(e.Params.Netrace.Region); err != nil {
		logrus.Fatalf("netrace: seek region %d: %v", e.Params.Netrace.Region, err)
	}

	header := reader.Header()
	var offset uint64
	for i := 0; i < e.Params.Netrace.Region; i++ {
		offset += uint64(header.Regions[i].NumCycles)
	}

	s := &NetraceStrategy{
		eval:               e,
		reader:             reader,
		cycleOffset:        offset,
		waitingQueues:      make([][]waitingPacket, e.Params.NumIngresses),
		packetByTail:       make(map[int64]netrace.Packet),
		ignoreDependencies: e.Params.Netrace.IgnoreDependencies,
	}
	s.prefetch()
	return s
}

func (s *NetraceStrategy) prefetch() {
	if pkt, ok := s.reader.Next(); ok {
		s.nextPacket = &pkt
	} else {
		s.nextPacket = nil
	}
}

// AdvanceCycle performs the once-per-cycle trace-advance work: idle
// fast-forward, draining due trace packets into waiting queues,
// completing dead packets, and promoting waiting packets whose
// dependencies have cleared. It is idempotent per cycle so it is safe
// to call both from IngressTick's ingress-0 guard and from a host
// simulator's dedicated per-cycle hook.
func (s *NetraceStrategy) AdvanceCycle(cycle uint64) {
	if s.lastAdvancedCycle != nil && *s.lastAdvancedCycle == cycle {
		return
	}
	s.lastAdvancedCycle = &cycle

	// Idle fast-forward: skip wall-clock-wasting gaps in the trace.
	if s.nextPacket != nil && uint64(s.nextPacket.Cycle) > s.cycleOffset &&
		s.eval.NoInflightFlits() && len(s.deadPackets) == 0 {
		s.cycleOffset = uint64(s.nextPacket.Cycle)
	}

	// Drain trace into waiting queues (or the dead list) up to the
	// current cycle.
	for s.nextPacket != nil && uint64(s.nextPacket.Cycle) <= cycle+s.cycleOffset {
		pkt := *s.nextPacket
		if pkt.Src >= s.eval.Params.NumIngresses || pkt.Dst >= s.eval.Params.NumEgresses {
			s.deadPackets = append(s.deadPackets, pkt)
		} else {
			s.waitingQueues[pkt.Src] = append(s.waitingQueues[pkt.Src], waitingPacket{pkt: pkt, start: 0})
		}
		s.prefetch()
	}

	// Complete dead packets whose dependencies have cleared.
	remaining := s.deadPackets[:0]
	for _, pkt := range s.deadPackets {
		if s.reader.DependenciesCleared(pkt) {
			s.reader.ClearAndFree(pkt)
		} else {
			remaining = append(remaining, pkt)
		}
	}
	s.deadPackets = remaining

	// Promote ready waiting packets into real flit injections.
	for ingress := range s.waitingQueues {
		queue := s.waitingQueues[ingress]
		keep := queue[:0]
		for _, wp := range queue {
			if s.ignoreDependencies || s.reader.DependenciesCleared(wp.pkt) {
				tailID := s.eval.InjectFlitsForPacket(wp.pkt.Src, wp.pkt.Dst, cycle)
				s.packetByTail[tailID] = wp.pkt
			} else {
				keep = append(keep, wp)
			}
		}
		s.waitingQueues[ingress] = keep
	}
}

// IngressTick implements Strategy. On ingress 0, it performs the
// once-per-cycle trace-advance work before the shared dequeue logic.
func (s *NetraceStrategy) IngressTick(ingress int, currentCycle uint64, ready bool, genPackets bool) (Flit, bool) {
	if genPackets && ingress == 0 {
		s.AdvanceCycle(currentCycle)
	}

	if !ready || s.eval.Queues[ingress].Empty() {
		return Flit{}, false
	}
	id, _ := s.eval.Queues[ingress].Pop()
	f, _ := s.eval.InFlight.Lookup(id)
	return f, true
}

// EgressTick implements Strategy: on a valid tail delivery, clears the
// packet's dependency in the trace library before ejecting the flit.
func (s *NetraceStrategy) EgressTick(egress int, currentCycle uint64, valid bool, f Flit) {
	if !valid {
		return
	}
	if f.Tail {
		pkt, ok := s.packetByTail[f.UniqueID]
		if !ok {
			logrus.Fatalf("netrace: tail flit %d delivered with no tracked packet", f.UniqueID)
		}
		s.reader.ClearAndFree(pkt)
		delete(s.packetByTail, f.UniqueID)
	}

	countRecvd := s.eval.Params.Phase.InMeasurement(currentCycle)
	s.eval.EjectFlits(f.Head, f.Tail, f.Ingress, egress, f.UniqueID, currentCycle, countRecvd)
}

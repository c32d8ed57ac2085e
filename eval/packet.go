package eval

import "github.com/noc-traffic-eval/traffic-eval/netrace"

// waitingPacket is a trace packet held in an ingress's waiting list
// until its dependencies clear, alongside a start cycle. The netrace
// strategy always records start as 0 and never reads it; the field only
// keeps the waiting entries as (packet, start_cycle) pairs.
type waitingPacket struct {
	pkt   netrace.Packet
	start uint64
}

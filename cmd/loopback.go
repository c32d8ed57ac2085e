package cmd

import (
	"github.com/noc-traffic-eval/traffic-eval/eval"
)

// inFlightDelivery is a flit dequeued from an ingress, scheduled for
// loopback delivery at its matching egress after loopbackLag cycles.
type inFlightDelivery struct {
	flit      eval.Flit
	deliverAt uint64
}

// runLoopback drives the evaluator for up to maxCycles cycles against
// an in-process loopback DUT: ready is always asserted, and every
// dequeued flit is echoed back at its destination egress after a fixed
// delay. It returns the exported success/fatal signal.
func runLoopback(configPath string, maxCycles, loopbackLag uint64) (success, fatal bool) {
	rt := eval.InitRuntime(configPath)
	numIngresses, numEgresses := rt.Params.NumIngresses, rt.Params.NumEgresses
	if numIngresses == 0 {
		numIngresses = 1
	}
	if numEgresses == 0 {
		numEgresses = 1
	}

	var pending []inFlightDelivery

	for cycle := uint64(0); cycle < maxCycles; cycle++ {
		for ingress := 0; ingress < numIngresses; ingress++ {
			if f, ok := eval.IngressTick(configPath, ingress, cycle, true); ok {
				pending = append(pending, inFlightDelivery{flit: f, deliverAt: cycle + loopbackLag})
			}
		}

		due := pending[:0]
		delivered := make(map[int]bool, numEgresses)
		for _, d := range pending {
			if d.deliverAt <= cycle && !delivered[d.flit.Egress] {
				delivered[d.flit.Egress] = true
				result := eval.EgressTick(configPath, d.flit.Egress, cycle, true, d.flit)
				if result.Success {
					return true, false
				}
				if result.Fatal {
					return false, true
				}
			} else {
				due = append(due, d)
			}
		}
		pending = due

		for egress := 0; egress < numEgresses; egress++ {
			if delivered[egress] {
				continue
			}
			result := eval.EgressTick(configPath, egress, cycle, false, eval.Flit{})
			if result.Success {
				return true, false
			}
			if result.Fatal {
				return false, true
			}
		}
	}
	return false, false
}

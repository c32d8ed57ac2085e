package eval

import (
	"testing"

	"github.com/noc-traffic-eval/traffic-eval/netrace"
)

// driveLoopback runs an already-constructed Runtime through an
// in-process loopback DUT for up to maxCycles cycles: every dequeued
// flit is echoed back at its destination egress after loopbackLag
// cycles, at most one delivery per egress per cycle. It mirrors the
// CLI's loopback harness but operates directly against rt so tests can
// construct Params/Strategy combinations GetRuntime's singleton can't.
func driveLoopback(rt *Runtime, maxCycles, loopbackLag uint64) (success, fatal bool) {
	type delivery struct {
		flit      Flit
		deliverAt uint64
	}
	numIngresses, numEgresses := rt.Params.NumIngresses, rt.Params.NumEgresses

	var pending []delivery
	for cycle := uint64(0); cycle < maxCycles; cycle++ {
		genPackets := rt.Params.Phase.InWarmup(cycle) || rt.Params.Phase.InMeasurement(cycle)
		for ingress := 0; ingress < numIngresses; ingress++ {
			if f, ok := rt.Strategy.IngressTick(ingress, cycle, true, genPackets); ok {
				pending = append(pending, delivery{flit: f, deliverAt: cycle + loopbackLag})
			}
		}

		due := pending[:0]
		delivered := make(map[int]bool, numEgresses)
		for _, d := range pending {
			if d.deliverAt <= cycle && !delivered[d.flit.Egress] {
				delivered[d.flit.Egress] = true
				rt.Strategy.EgressTick(d.flit.Egress, cycle, true, d.flit)
			} else {
				due = append(due, d)
			}
		}
		pending = due

		for egress := 0; egress < numEgresses; egress++ {
			if !delivered[egress] {
				rt.Strategy.EgressTick(egress, cycle, false, Flit{})
			}
			if egress == 0 {
				result := checkCompletion(rt, cycle)
				if result.Success {
					return true, false
				}
				if result.Fatal {
					return false, true
				}
			}
		}
	}
	return false, false
}

func newDriveRuntime(p Params) *Runtime {
	e := NewEvaluator(p)
	return &Runtime{Params: p, Evaluator: e, Strategy: NewRandomStrategy(e)}
}

func TestDriveLoopback_SingleFlowCompletesWithoutLoss(t *testing.T) {
	defer func() { reported = false }()
	reported = false

	p := Params{
		Phase:          PhaseConfig{Warmup: 2, Measurement: 5, DrainTimeout: 20},
		FlitsPerPacket: 1,
		NumIngresses:   1,
		NumEgresses:    1,
		Flows:          []Flow{{Ingress: 0, Egress: 0, Rate: 1}},
		Thresholds:     ThresholdConfig{RequiredThroughput: 0, RequiredMedianLatency: 99999, RequiredMaxLatency: 99999},
	}
	rt := newDriveRuntime(p)

	success, fatal := driveLoopback(rt, 40, 1)

	if !success || fatal {
		t.Fatalf("driveLoopback = (success=%v, fatal=%v), want (true, false)", success, fatal)
	}
	if !rt.Evaluator.NoInflightFlits() {
		t.Error("no flits should remain in flight once the run completes")
	}
}

func TestDriveLoopback_ThresholdViolationIsFatal(t *testing.T) {
	defer func() { reported = false }()
	reported = false

	p := Params{
		Phase:          PhaseConfig{Warmup: 2, Measurement: 5, DrainTimeout: 20},
		FlitsPerPacket: 1,
		NumIngresses:   1,
		NumEgresses:    1,
		Flows:          []Flow{{Ingress: 0, Egress: 0, Rate: 1}},
		Thresholds:     ThresholdConfig{RequiredThroughput: 2.0, RequiredMedianLatency: 99999, RequiredMaxLatency: 99999},
	}
	rt := newDriveRuntime(p)

	// WHEN every flit is delivered but the configured throughput threshold
	// is unattainable (> 1.0 per flit)
	success, fatal := driveLoopback(rt, 40, 1)

	// THEN the run reports failure, not success
	if success || !fatal {
		t.Fatalf("driveLoopback = (success=%v, fatal=%v), want (false, true)", success, fatal)
	}
}

func TestDriveLoopback_DrainTimeoutIsFatal(t *testing.T) {
	defer func() { reported = false }()
	reported = false

	p := Params{
		Phase:          PhaseConfig{Warmup: 2, Measurement: 5, DrainTimeout: 5},
		FlitsPerPacket: 1,
		NumIngresses:   1,
		NumEgresses:    1,
		Flows:          []Flow{{Ingress: 0, Egress: 0, Rate: 1}},
		Thresholds:     ThresholdConfig{RequiredThroughput: 0, RequiredMedianLatency: 99999, RequiredMaxLatency: 99999},
	}
	rt := newDriveRuntime(p)

	// WHEN flits are injected but never echoed back (loopbackLag far
	// exceeds the run length, so nothing is ever delivered)
	success, fatal := driveLoopback(rt, 30, 1000)

	// THEN the drain window expires with flits still in flight
	if success || !fatal {
		t.Fatalf("driveLoopback = (success=%v, fatal=%v), want (false, true)", success, fatal)
	}
	if rt.Evaluator.NoInflightFlits() {
		t.Error("expected flits still in flight at timeout")
	}
}

func TestDriveLoopback_TwoFlowsIndependentThroughput(t *testing.T) {
	defer func() { reported = false }()
	reported = false

	p := Params{
		Phase:          PhaseConfig{Warmup: 2, Measurement: 10, DrainTimeout: 30},
		FlitsPerPacket: 2,
		NumIngresses:   2,
		NumEgresses:    2,
		Flows: []Flow{
			{Ingress: 0, Egress: 0, Rate: 2},
			{Ingress: 1, Egress: 1, Rate: 2},
		},
		Thresholds: ThresholdConfig{RequiredThroughput: 0, RequiredMedianLatency: 99999, RequiredMaxLatency: 99999},
	}
	rt := newDriveRuntime(p)

	success, fatal := driveLoopback(rt, 80, 1)

	if !success || fatal {
		t.Fatalf("driveLoopback = (success=%v, fatal=%v), want (true, false)", success, fatal)
	}
	t0, t1 := rt.Evaluator.Stats.Throughput(0, 0), rt.Evaluator.Stats.Throughput(1, 1)
	if t0 <= 0 || t1 <= 0 {
		t.Errorf("expected both flows to make progress, got throughputs %v and %v", t0, t1)
	}
}

func TestDriveLoopback_NetraceDependencyOrderPreservesDelivery(t *testing.T) {
	defer func() { reported = false }()
	reported = false

	p := Params{
		Phase:          PhaseConfig{Warmup: 0, Measurement: 10, DrainTimeout: 30},
		FlitsPerPacket: 1,
		NumIngresses:   1,
		NumEgresses:    1,
		Netrace:        NetraceConfig{Enable: true},
	}
	e := NewEvaluator(p)
	r := newFakeReader([]fakePacket{
		{pkt: netrace.Packet{Cycle: 0, Src: 0, Dst: 0}},
		{pkt: netrace.Packet{Cycle: 1, Src: 0, Dst: 0}, deps: []int{0}},
	}, [5]int64{1000, 0, 0, 0, 0})
	rt := &Runtime{Params: p, Evaluator: e, Strategy: NewNetraceStrategy(e, r)}

	success, fatal := driveLoopback(rt, 50, 1)

	if !success || fatal {
		t.Fatalf("driveLoopback = (success=%v, fatal=%v), want (true, false)", success, fatal)
	}
	if got := e.GetFlitsReceived(Flow{Ingress: 0, Egress: 0}); got != 2 {
		t.Errorf("GetFlitsReceived = %d, want 2 (both trace packets delivered)", got)
	}
}

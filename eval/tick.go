package eval

import (
	"os"

	"github.com/sirupsen/logrus"
)

// defaultFallbackConfig is the fallback directive stream used when the
// RTL simulator doesn't supply +EVAL_PARAMS/+eval_params.
const defaultFallbackConfig = `
warmup 1000
measurement 2000
drain 500
flits_per_packet 4
flow 0 0 0.5
`

// TickResult carries the port-protocol outputs the two tick entry
// points share: the one-shot success/fatal signal.
type TickResult struct {
	Success bool
	Fatal   bool
}

// reported latches true once the results CSV has been emitted, so
// Success/Fatal remain one-shot signals even if EgressTick(0, ...) is
// invoked again after completion (the outer simulator is expected to
// terminate on the first true, but must not be required to).
var reported bool

// InitRuntime lazily constructs (or returns) the process-wide Runtime
// from configPath, falling back to the built-in default directive
// stream when configPath is empty. Both tick entry points call this on
// every invocation; it is also exported so a host harness can size its
// port arrays from the configured topology before the first tick.
func InitRuntime(configPath string) *Runtime {
	return GetRuntime(configPath, fallbackOrDefault(configPath), OpenTraceFile)
}

// IngressTick is the per-cycle, per-ingress entry point. On the very
// first call (across either entry point) it lazily constructs the
// process-wide Runtime from configPath (or fallback if configPath is
// empty). It returns the flit the DUT should accept this cycle, if any.
func IngressTick(configPath string, ingress int, currentCycle uint64, ready bool) (Flit, bool) {
	rt := InitRuntime(configPath)
	genPackets := rt.Params.Phase.InWarmup(currentCycle) || rt.Params.Phase.InMeasurement(currentCycle)
	return rt.Strategy.IngressTick(ingress, currentCycle, ready, genPackets)
}

// EgressTick is the per-cycle, per-egress entry point. It always
// accepts (flit_in_ready is always asserted). On egress 0
// it additionally runs the once-per-cycle phase/completion check and
// returns the outer simulator's termination signal.
func EgressTick(configPath string, egress int, currentCycle uint64, valid bool, f Flit) TickResult {
	rt := InitRuntime(configPath)
	rt.Strategy.EgressTick(egress, currentCycle, valid, f)

	if egress != 0 {
		return TickResult{}
	}
	return checkCompletion(rt, currentCycle)
}

func fallbackOrDefault(configPath string) string {
	if configPath != "" {
		return ""
	}
	return defaultFallbackConfig
}

// checkCompletion implements the once-per-cycle completion dispatch:
// timeout first, then drain-and-empty, else no signal.
func checkCompletion(rt *Runtime, currentCycle uint64) TickResult {
	if reported {
		return TickResult{}
	}

	phase := rt.Params.Phase
	if phase.TimedOut(currentCycle) {
		logrus.Errorf("eval: drain timeout at cycle %d (%d in-flight flits never delivered)",
			currentCycle, rt.Evaluator.NumInflightFlits())
		reported = true
		return TickResult{Fatal: true}
	}

	if phase.InDrain(currentCycle) && rt.Evaluator.NoInflightFlits() {
		success := emitResults(rt)
		reported = true
		return TickResult{Success: success, Fatal: !success}
	}

	return TickResult{}
}

// emitResults writes the Results CSV to stdout and compares the run
// against configured thresholds. Returns true iff every threshold is met.
func emitResults(rt *Runtime) bool {
	stats := rt.Evaluator.Stats
	stats.Report(os.Stdout, rt.Params.Flows, rt.Params.NumIngresses, rt.Params.NumEgresses)

	_, _, minThroughput := stats.MinThroughputFlow(rt.Params.Flows)
	medianLatency := stats.OverallMedianLatency()
	maxLatency := stats.OverallMaxLatency()

	thresholds := rt.Params.Thresholds
	ok := true
	if minThroughput < thresholds.RequiredThroughput {
		logrus.Warnf("eval: min throughput %.4f below required %.4f", minThroughput, thresholds.RequiredThroughput)
		ok = false
	}
	if medianLatency > thresholds.RequiredMedianLatency {
		logrus.Warnf("eval: median latency %d above required %d", medianLatency, thresholds.RequiredMedianLatency)
		ok = false
	}
	if maxLatency > thresholds.RequiredMaxLatency {
		logrus.Warnf("eval: max latency %d above required %d", maxLatency, thresholds.RequiredMaxLatency)
		ok = false
	}

	if ok {
		logrus.Info("eval: run complete, all thresholds met")
	}
	return ok
}

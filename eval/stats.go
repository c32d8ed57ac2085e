package eval

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/stat"
)

// FlowStats accumulates per-(ingress,egress) counters and latency
// samples. Only measurement-phase activity is recorded here; warmup and
// drain traffic never reaches these counters.
type FlowStats struct {
	sent     map[[2]int]int64
	received map[[2]int]int64
	perFlow  map[[2]int]*LatencyHistogram
	overall  *LatencyHistogram
}

// NewFlowStats returns an empty stats collector.
func NewFlowStats() *FlowStats {
	return &FlowStats{
		sent:     make(map[[2]int]int64),
		received: make(map[[2]int]int64),
		perFlow:  make(map[[2]int]*LatencyHistogram),
		overall:  NewLatencyHistogram(),
	}
}

// RecordSent increments the sent counter for (ingress, egress) by count.
func (s *FlowStats) RecordSent(ingress, egress int, count int64) {
	s.sent[[2]int{ingress, egress}] += count
}

// RecordReceived increments the received counter for (ingress, egress)
// by one and inserts latency into both the per-flow and overall histograms.
func (s *FlowStats) RecordReceived(ingress, egress int, latency int64) {
	key := [2]int{ingress, egress}
	s.received[key]++
	h, ok := s.perFlow[key]
	if !ok {
		h = NewLatencyHistogram()
		s.perFlow[key] = h
	}
	h.Insert(latency)
	s.overall.Insert(latency)
}

// Sent returns the sent count for (ingress, egress).
func (s *FlowStats) Sent(ingress, egress int) int64 {
	return s.sent[[2]int{ingress, egress}]
}

// Received returns the received count for (ingress, egress).
func (s *FlowStats) Received(ingress, egress int) int64 {
	return s.received[[2]int{ingress, egress}]
}

// Throughput returns received/sent for (ingress, egress), or 0 if
// nothing was ever sent on that flow.
func (s *FlowStats) Throughput(ingress, egress int) float64 {
	sent := s.Sent(ingress, egress)
	if sent == 0 {
		return 0
	}
	return float64(s.Received(ingress, egress)) / float64(sent)
}

// MedianLatency returns the per-flow median latency, 0 if no samples.
func (s *FlowStats) MedianLatency(ingress, egress int) int64 {
	h, ok := s.perFlow[[2]int{ingress, egress}]
	if !ok {
		return 0
	}
	return h.Median()
}

// MaxLatency returns the per-flow max latency, 0 if no samples.
func (s *FlowStats) MaxLatency(ingress, egress int) int64 {
	h, ok := s.perFlow[[2]int{ingress, egress}]
	if !ok {
		return 0
	}
	return h.Max()
}

// OverallMedianLatency returns the median latency across all flows.
func (s *FlowStats) OverallMedianLatency() int64 {
	return s.overall.Median()
}

// OverallMaxLatency returns the max latency across all flows.
func (s *FlowStats) OverallMaxLatency() int64 {
	return s.overall.Max()
}

// OverallLatencyCount returns how many samples were recorded at exactly
// the given latency, across all flows.
func (s *FlowStats) OverallLatencyCount(latency int64) int64 {
	return s.overall.Count(latency)
}

// MinThroughputFlow scans every configured flow and returns the one
// with the smallest received/sent ratio — the headline pass/fail metric.
func (s *FlowStats) MinThroughputFlow(flows []Flow) (ingress, egress int, throughput float64) {
	throughput = 1.0
	first := true
	for _, f := range flows {
		t := s.Throughput(f.Ingress, f.Egress)
		if first || t < throughput {
			throughput = t
			ingress = f.Ingress
			egress = f.Egress
			first = false
		}
	}
	return ingress, egress, throughput
}

// Report renders the per-flow Results CSV to w, followed by a
// supplemental mean/stddev diagnostics block (not part of the
// pass/fail contract, purely informational).
func (s *FlowStats) Report(w io.Writer, flows []Flow, numIngresses, numEgresses int) {
	fmt.Fprintln(w, "Results CSV:")
	fmt.Fprintln(w, "ingress_id, egress_id, received, sent, throughput, median_latency, max_latency")
	for i := 0; i < numIngresses; i++ {
		for e := 0; e < numEgresses; e++ {
			sent := s.Sent(i, e)
			if sent == 0 && s.Received(i, e) == 0 {
				continue
			}
			fmt.Fprintf(w, "%d, %d, %d, %d, %.4f, %d, %d\n",
				i, e, s.Received(i, e), sent, s.Throughput(i, e), s.MedianLatency(i, e), s.MaxLatency(i, e))
		}
	}

	minIngress, minEgress, minThroughput := s.MinThroughputFlow(flows)
	fmt.Fprintf(w, "Min throughput: %d, %d, %.4f\n", minIngress, minEgress, minThroughput)
	fmt.Fprintf(w, "Median latency: %d\n", s.OverallMedianLatency())
	fmt.Fprintf(w, "Max latency: %d\n", s.OverallMaxLatency())

	fmt.Fprint(w, "Latency hist:  ")
	for _, b := range s.overall.Buckets(10) {
		fmt.Fprintf(w, " %d-%d: %d  ", b.Low, b.High, b.Count)
	}
	fmt.Fprintln(w)

	s.reportDiagnostics(w)
}

// reportDiagnostics prints the overall (all flows combined) mean/stddev latency using gonum's
// stat package, a supplemental enrichment beyond the required CSV.
func (s *FlowStats) reportDiagnostics(w io.Writer) {
	samples := s.overall.Samples()
	if len(samples) == 0 {
		return
	}
	mean, stddev := stat.MeanStdDev(samples, nil)
	fmt.Fprintf(w, "Latency mean/stddev (overall): %.2f / %.2f\n", mean, stddev)
}

package eval

import "github.com/sirupsen/logrus"

// Evaluator is the shared state every strategy operates against: flit-id
// issuance, per-ingress queues, the in-flight map, and measurement-phase
// statistics. Strategies (random, netrace) hold a *Evaluator and add
// their own generation logic on top of InjectFlitsForPacket/EjectFlits.
type Evaluator struct {
	Params   Params
	Queues   []IngressQueue
	InFlight *InFlightMap
	Stats    *FlowStats

	nextUniqueID int64
}

// NewEvaluator builds an Evaluator sized to the configured topology.
func NewEvaluator(p Params) *Evaluator {
	return &Evaluator{
		Params:   p,
		Queues:   make([]IngressQueue, p.NumIngresses),
		InFlight: NewInFlightMap(),
		Stats:    NewFlowStats(),
	}
}

// InjectFlitsForPacket allocates FlitsPerPacket flits for a new packet
// from ingress to egress created at cycle, sets head on the first and
// tail on the last, assigns each a fresh unique id, inserts each into
// the in-flight map, and appends each to the ingress queue. Returns the
// tail flit's unique id (the netrace strategy needs this to key its
// packet-dependency map). If cycle falls in the measurement phase,
// FlitsPerPacket is added to the flow's sent counter.
func (e *Evaluator) InjectFlitsForPacket(ingress, egress int, cycle uint64) int64 {
	count := e.Params.FlitsPerPacket
	var tailID int64

	for i := 0; i < count; i++ {
		id := e.nextUniqueID
		e.nextUniqueID++

		f := Flit{
			UniqueID:  id,
			Ingress:   ingress,
			Egress:    egress,
			Head:      i == 0,
			Tail:      i == count-1,
			CreatedAt: cycle,
		}
		e.InFlight.Insert(f)
		e.Queues[ingress].Enqueue(id)
		if f.Tail {
			tailID = id
		}
	}

	if e.Params.Phase.InMeasurement(cycle) {
		e.Stats.RecordSent(ingress, egress, int64(count))
	}
	return tailID
}

// EjectFlits matches a flit delivered at an egress against the
// in-flight map. It is fatal if the flit is absent ("Lost flit") or if
// the delivered head/tail/ingress don't match the creation-time record
// — both indicate a DUT bug and are never recovered from.
// If countRecvd, the flow's received counter and both latency
// histograms are updated.
func (e *Evaluator) EjectFlits(head, tail bool, ingress, egress int, uniqueID int64, cycle uint64, countRecvd bool) {
	f, ok := e.InFlight.Lookup(uniqueID)
	if !ok {
		err := &InvariantError{UniqueID: uniqueID, Reason: "Lost flit: delivered at egress but not in the in-flight map"}
		logrus.Fatal(err)
	}
	if f.Head != head || f.Tail != tail || f.Ingress != ingress {
		err := &InvariantError{
			UniqueID: uniqueID,
			Reason:   "delivered head/tail/ingress does not match creation-time record",
		}
		logrus.Fatal(err)
	}
	if !e.InFlight.Remove(uniqueID) {
		err := &InvariantError{UniqueID: uniqueID, Reason: "in-flight map removal returned zero after successful lookup"}
		logrus.Fatal(err)
	}

	if countRecvd {
		e.Stats.RecordReceived(ingress, egress, int64(cycle-f.CreatedAt))
	}
}

// NoInflightFlits reports whether the in-flight map is empty.
func (e *Evaluator) NoInflightFlits() bool {
	return e.InFlight.Empty()
}

// NumInflightFlits returns the number of in-flight flits.
func (e *Evaluator) NumInflightFlits() int {
	return e.InFlight.Len()
}

// GetFlitsReceived returns the measurement-phase received count for flow f.
func (e *Evaluator) GetFlitsReceived(f Flow) int64 {
	return e.Stats.Received(f.Ingress, f.Egress)
}

// GetFlitsSent returns the measurement-phase sent count for flow f.
func (e *Evaluator) GetFlitsSent(f Flow) int64 {
	return e.Stats.Sent(f.Ingress, f.Egress)
}

// GetMaxLatency returns the max latency observed for flow f.
func (e *Evaluator) GetMaxLatency(f Flow) int64 {
	return e.Stats.MaxLatency(f.Ingress, f.Egress)
}

// GetOverallMaxLatency returns the max latency observed across all flows.
func (e *Evaluator) GetOverallMaxLatency() int64 {
	return e.Stats.OverallMaxLatency()
}

// GetMedianLatency returns the median latency observed for flow f.
func (e *Evaluator) GetMedianLatency(f Flow) int64 {
	return e.Stats.MedianLatency(f.Ingress, f.Egress)
}

// GetOverallMedianLatency returns the median latency across all flows.
func (e *Evaluator) GetOverallMedianLatency() int64 {
	return e.Stats.OverallMedianLatency()
}

// GetOverallLatencyCount returns how many samples fall at exactly lat
// cycles of latency, across all flows.
func (e *Evaluator) GetOverallLatencyCount(lat int64) int64 {
	return e.Stats.OverallLatencyCount(lat)
}

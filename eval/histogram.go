package eval

import "sort"

// LatencyHistogram is a sparse, ordered latency_cycles → count mapping.
// Sparseness matters at NoC scale: runs with millions of flits but a
// narrow latency spread must not pay for a dense array sized to the
// maximum observed latency.
type LatencyHistogram struct {
	counts map[int64]int64
	total  int64
}

// NewLatencyHistogram returns an empty histogram.
func NewLatencyHistogram() *LatencyHistogram {
	return &LatencyHistogram{counts: make(map[int64]int64)}
}

// Insert records one occurrence of the given latency.
func (h *LatencyHistogram) Insert(latency int64) {
	h.counts[latency]++
	h.total++
}

// Total returns the number of samples recorded.
func (h *LatencyHistogram) Total() int64 {
	return h.total
}

// Count returns how many samples were recorded at exactly this latency.
func (h *LatencyHistogram) Count(latency int64) int64 {
	return h.counts[latency]
}

// sortedKeys returns the distinct latencies in ascending order.
func (h *LatencyHistogram) sortedKeys() []int64 {
	keys := make([]int64, 0, len(h.counts))
	for k := range h.counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Median walks the histogram in ascending key order, accumulating
// counts, and returns the first bucket whose running sum reaches
// total/2. Returns 0 for an empty histogram.
func (h *LatencyHistogram) Median() int64 {
	if h.total == 0 {
		return 0
	}
	half := h.total / 2
	var running int64
	for _, k := range h.sortedKeys() {
		running += h.counts[k]
		if running >= half {
			return k
		}
	}
	return 0
}

// Max returns the largest recorded latency, or 0 if empty.
func (h *LatencyHistogram) Max() int64 {
	if h.total == 0 {
		return 0
	}
	keys := h.sortedKeys()
	return keys[len(keys)-1]
}

// Buckets groups the histogram into fixed-width (width-cycle) buckets
// spanning [0, max], in ascending order, for the CSV "Latency hist" row.
// Low/High are printed as "lo-hi" the way the original prints
// "i << "-" << i + bucket_size", so High is Low+width, not Low+width-1.
func (h *LatencyHistogram) Buckets(width int64) []LatencyBucket {
	max := h.Max()
	if width <= 0 || h.total == 0 {
		return nil
	}
	numBuckets := int(max/width) + 1
	buckets := make([]LatencyBucket, numBuckets)
	for i := range buckets {
		buckets[i].Low = int64(i) * width
		buckets[i].High = buckets[i].Low + width
	}
	for k, c := range h.counts {
		idx := int(k / width)
		if idx >= len(buckets) {
			idx = len(buckets) - 1
		}
		buckets[idx].Count += c
	}
	return buckets
}

// LatencyBucket is one [Low, High) latency range and its sample count.
type LatencyBucket struct {
	Low, High int64
	Count     int64
}

// Samples materializes every recorded sample as a flat slice, latency
// repeated Count times. Only used for the supplemental mean/stddev
// diagnostics in stats.go — Median/Max are computed by partial sum, not
// from this slice.
func (h *LatencyHistogram) Samples() []float64 {
	out := make([]float64, 0, h.total)
	for _, k := range h.sortedKeys() {
		for i := int64(0); i < h.counts[k]; i++ {
			out = append(out, float64(k))
		}
	}
	return out
}

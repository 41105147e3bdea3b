package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// MetricType represents the type of metric
type MetricType int

const (
	CounterType MetricType = iota
	HistogramType
)

// Metric represents a generic metric interface
type Metric interface {
	Type() MetricType
	Name() string
	Help() string
	Labels() map[string]string
}

// Counter represents a monotonic counter metric
type Counter struct {
	name   string
	help   string
	labels map[string]string
	value  float64
	mu     sync.RWMutex
}

// Inc increments the counter by 1
func (c *Counter) Inc() {
	c.Add(1)
}

// Add adds a non-negative delta to the counter
func (c *Counter) Add(delta float64) {
	if delta < 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value += delta
}

// Value returns the current counter value
func (c *Counter) Value() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

func (c *Counter) Type() MetricType          { return CounterType }
func (c *Counter) Name() string              { return c.name }
func (c *Counter) Help() string              { return c.help }
func (c *Counter) Labels() map[string]string { return c.labels }

// DefaultDurationBuckets suits fetch and rule timings, in seconds
var DefaultDurationBuckets = []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900}

// Histogram counts observations into cumulative buckets
type Histogram struct {
	name    string
	help    string
	labels  map[string]string
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
	mu      sync.RWMutex
}

// Observe adds an observation to the histogram
func (h *Histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sum += value
	h.count++
	for i, bucket := range h.buckets {
		if value <= bucket {
			h.counts[i]++
		}
	}
}

// Count returns the total count of observations
func (h *Histogram) Count() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Sum returns the sum of all observations
func (h *Histogram) Sum() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sum
}

func (h *Histogram) Type() MetricType          { return HistogramType }
func (h *Histogram) Name() string              { return h.name }
func (h *Histogram) Help() string              { return h.help }
func (h *Histogram) Labels() map[string]string { return h.labels }

// MetricsRegistry holds the metrics of one run. Metrics are created on
// first use and identified by name plus labels.
type MetricsRegistry struct {
	mu      sync.Mutex
	prefix  string
	metrics map[string]Metric
}

// NewMetricsRegistry creates a new metrics registry
func NewMetricsRegistry(prefix string) *MetricsRegistry {
	return &MetricsRegistry{
		prefix:  prefix,
		metrics: make(map[string]Metric),
	}
}

func (r *MetricsRegistry) fullName(name string) string {
	if r.prefix == "" {
		return name
	}
	return r.prefix + "_" + name
}

// Counter returns the counter for name and labels, creating it if needed.
// It panics if the name is already used by a different metric type.
func (r *MetricsRegistry) Counter(name, help string, labels map[string]string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	name = r.fullName(name)
	key := name + formatLabels(labels)
	if m, ok := r.metrics[key]; ok {
		c, ok := m.(*Counter)
		if !ok {
			panic(fmt.Sprintf("metric %s is not a counter", key))
		}
		return c
	}
	c := &Counter{name: name, help: help, labels: copyLabels(labels)}
	r.metrics[key] = c
	return c
}

// Histogram returns the histogram for name and labels, creating it with
// buckets if needed
func (r *MetricsRegistry) Histogram(name, help string, labels map[string]string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	name = r.fullName(name)
	key := name + formatLabels(labels)
	if m, ok := r.metrics[key]; ok {
		h, ok := m.(*Histogram)
		if !ok {
			panic(fmt.Sprintf("metric %s is not a histogram", key))
		}
		return h
	}
	if len(buckets) == 0 {
		buckets = DefaultDurationBuckets
	}
	sorted := append([]float64(nil), buckets...)
	sort.Float64s(sorted)
	h := &Histogram{
		name:    name,
		help:    help,
		labels:  copyLabels(labels),
		buckets: sorted,
		counts:  make([]uint64, len(sorted)),
	}
	r.metrics[key] = h
	return h
}

// GetCounter looks up an existing counter
func (r *MetricsRegistry) GetCounter(name string, labels map[string]string) (*Counter, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.metrics[r.fullName(name)+formatLabels(labels)].(*Counter)
	return c, ok
}

// GetHistogram looks up an existing histogram
func (r *MetricsRegistry) GetHistogram(name string, labels map[string]string) (*Histogram, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.metrics[r.fullName(name)+formatLabels(labels)].(*Histogram)
	return h, ok
}

// WriteText writes every metric in the Prometheus text exposition format,
// grouped by name in sorted order
func (r *MetricsRegistry) WriteText(w io.Writer) error {
	r.mu.Lock()
	keys := make([]string, 0, len(r.metrics))
	for k := range r.metrics {
		keys = append(keys, k)
	}
	metrics := make(map[string]Metric, len(r.metrics))
	for k, m := range r.metrics {
		metrics[k] = m
	}
	r.mu.Unlock()

	sort.Strings(keys)

	var b strings.Builder
	described := make(map[string]bool)
	for _, k := range keys {
		m := metrics[k]
		if !described[m.Name()] {
			described[m.Name()] = true
			kind := "counter"
			if m.Type() == HistogramType {
				kind = "histogram"
			}
			fmt.Fprintf(&b, "# HELP %s %s\n", m.Name(), m.Help())
			fmt.Fprintf(&b, "# TYPE %s %s\n", m.Name(), kind)
		}

		switch x := m.(type) {
		case *Counter:
			fmt.Fprintf(&b, "%s%s %g\n", x.Name(), formatLabels(x.Labels()), x.Value())
		case *Histogram:
			writeHistogram(&b, x)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeHistogram(b *strings.Builder, h *Histogram) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for i, bucket := range h.buckets {
		labels := copyLabels(h.labels)
		labels["le"] = fmt.Sprintf("%g", bucket)
		fmt.Fprintf(b, "%s_bucket%s %d\n", h.name, formatLabels(labels), h.counts[i])
	}
	labels := copyLabels(h.labels)
	labels["le"] = "+Inf"
	fmt.Fprintf(b, "%s_bucket%s %d\n", h.name, formatLabels(labels), h.count)
	fmt.Fprintf(b, "%s_sum%s %g\n", h.name, formatLabels(h.labels), h.sum)
	fmt.Fprintf(b, "%s_count%s %d\n", h.name, formatLabels(h.labels), h.count)
}

// formatLabels renders labels in sorted key order
func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf(`%s=%q`, k, labels[k])
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func copyLabels(labels map[string]string) map[string]string {
	out := make(map[string]string, len(labels)+1)
	for k, v := range labels {
		out[k] = v
	}
	return out
}

// Package metrics records per-operation measurements as a single structured
// zerolog event. A Recorder accumulates dimensions, metric values and free
// properties, then Flush writes them in one line so latency and outcome of a
// measurement request can be filtered from the log file.
package metrics

import (
	"sort"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Metric units.
const (
	UnitMilliseconds = "Milliseconds"
	UnitCount        = "Count"
	UnitBytes        = "Bytes"
	UnitNone         = "None"
)

type metricDef struct {
	Unit  string
	Value float64
}

// Recorder accumulates dimensions, metrics, and properties for a single flush.
// It is NOT safe for concurrent use from multiple goroutines; create one per operation.
type Recorder struct {
	namespace  string
	logger     *zerolog.Logger
	dimensions map[string]string
	metrics    map[string]metricDef
	properties map[string]interface{}
}

// New creates a Recorder that flushes to the global logger.
func New(namespace string) *Recorder {
	return NewWithLogger(namespace, &log.Logger)
}

// NewWithLogger creates a Recorder that flushes to logger.
func NewWithLogger(namespace string, logger *zerolog.Logger) *Recorder {
	return &Recorder{
		namespace:  namespace,
		logger:     logger,
		dimensions: make(map[string]string),
		metrics:    make(map[string]metricDef),
		properties: make(map[string]interface{}),
	}
}

// Dimension adds a dimension key-value pair.
func (r *Recorder) Dimension(key, value string) *Recorder {
	r.dimensions[key] = value
	return r
}

// Metric records a named metric value with a unit.
func (r *Recorder) Metric(name string, value float64, unit string) *Recorder {
	r.metrics[name] = metricDef{Unit: unit, Value: value}
	return r
}

// Count is a convenience for recording a count metric (value = 1).
func (r *Recorder) Count(name string) *Recorder {
	return r.Metric(name, 1, UnitCount)
}

// Property adds a non-metric field to the event.
func (r *Recorder) Property(key string, value interface{}) *Recorder {
	r.properties[key] = value
	return r
}

// Flush writes the event at info level. Recorders without metrics write
// nothing. After flushing, the Recorder should not be reused.
func (r *Recorder) Flush() {
	if len(r.metrics) == 0 {
		return
	}

	evt := r.logger.Info().Str("namespace", r.namespace)

	if len(r.dimensions) > 0 {
		d := zerolog.Dict()
		for _, k := range sortedKeys(r.dimensions) {
			d = d.Str(k, r.dimensions[k])
		}
		evt = evt.Dict("dimensions", d)
	}

	m := zerolog.Dict()
	units := zerolog.Dict()
	for _, k := range sortedKeys(r.metrics) {
		m = m.Float64(k, r.metrics[k].Value)
		units = units.Str(k, r.metrics[k].Unit)
	}
	evt = evt.Dict("metrics", m).Dict("units", units)

	for _, k := range sortedKeys(r.properties) {
		evt = evt.Interface(k, r.properties[k])
	}

	evt.Msg("metrics")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

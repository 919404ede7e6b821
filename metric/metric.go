// Package metric exposes expvar counters of pipeline modules. Counters are
// aggregated per module type, so all nodes bound to the same module type
// share them.
package metric

import (
	"expvar"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dudk/cochlea/signal"
)

const modulesLabel = "cochlea.modules"

const (
	// TickCounter measures number of executed ticks.
	TickCounter = "Ticks"
	// SampleCounter measures number of produced samples.
	SampleCounter = "Samples"
	// PrepareCounter measures number of prepare calls.
	PrepareCounter = "Prepares"
	// LatencyCounter measures time of the latest run call.
	LatencyCounter = "Latency"
	// DurationCounter counts what's the duration of produced signal.
	DurationCounter = "Duration"
	// NodeCounter counts number of metered nodes.
	NodeCounter = "Nodes"
)

var (
	modules = metrics{
		m: make(map[string]metric),
	}

	counters = []string{
		TickCounter,
		SampleCounter,
		PrepareCounter,
		LatencyCounter,
		DurationCounter,
		NodeCounter,
	}
)

// Get metrics values for provided module type.
func Get(module interface{}) map[string]string {
	return getCounters(getType(module))
}

// GetAll returns counters for all measured module types.
func GetAll() map[string]map[string]string {
	m := make(map[string]map[string]string)
	modules.Lock()
	defer modules.Unlock()
	for module := range modules.m {
		m[module] = getCounters(module)
	}
	return m
}

func getCounters(moduleType string) map[string]string {
	m := make(map[string]string)
	for _, counter := range counters {
		v := expvar.Get(key(moduleType, counter))
		if v != nil {
			m[counter] = v.String()
		}
	}
	return m
}

// Meter captures metrics of a single node.
type Meter struct {
	metric metric
}

// MeasureFunc captures metrics when a run call returns. Run started at
// provided time and produced samples with sample interval dt.
type MeasureFunc func(start time.Time, samples int64, dt float64)

// New creates new meter for the module type.
func New(module interface{}) *Meter {
	m := modules.get(getType(module))
	m.nodes.Add(1)
	return &Meter{metric: m}
}

// Run returns a closure to capture run counters.
func (m *Meter) Run() MeasureFunc {
	if m == nil {
		return func(time.Time, int64, float64) {}
	}
	var (
		samples  int64
		dt       float64
		duration time.Duration
	)
	return func(start time.Time, s int64, d float64) {
		m.metric.latency.set(time.Since(start))
		m.metric.ticks.Add(1)
		m.metric.samples.Add(s)
		// recalculate duration only when shape has changed
		if samples != s || dt != d {
			samples, dt = s, d
			duration = signal.DurationOf(d, s)
		}
		m.metric.duration.add(duration)
	}
}

// Prepared counts a prepare call.
func (m *Meter) Prepared() {
	if m == nil {
		return
	}
	m.metric.prepares.Add(1)
}

type metrics struct {
	sync.Mutex
	m map[string]metric
}

func (m *metrics) get(moduleType string) metric {
	m.Lock()
	defer m.Unlock()
	if metric, ok := m.m[moduleType]; ok {
		return metric
	}
	metric := newMetric(moduleType)
	m.m[moduleType] = metric
	return metric
}

type metric struct {
	nodes    *expvar.Int
	ticks    *expvar.Int
	samples  *expvar.Int
	prepares *expvar.Int
	latency  *duration
	duration *duration
}

func newMetric(moduleType string) metric {
	m := metric{
		nodes:    expvar.NewInt(key(moduleType, NodeCounter)),
		ticks:    expvar.NewInt(key(moduleType, TickCounter)),
		samples:  expvar.NewInt(key(moduleType, SampleCounter)),
		prepares: expvar.NewInt(key(moduleType, PrepareCounter)),
		latency:  &duration{},
		duration: &duration{},
	}
	expvar.Publish(key(moduleType, LatencyCounter), m.latency)
	expvar.Publish(key(moduleType, DurationCounter), m.duration)
	return m
}

func key(moduleType, counter string) string {
	return fmt.Sprintf("%s.%s.%s", modulesLabel, moduleType, counter)
}

func getType(module interface{}) string {
	rv := reflect.ValueOf(module)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	return rv.Type().String()
}

// duration allows to format time.Duration metric values.
type duration struct {
	d int64
}

func (v *duration) String() string {
	return fmt.Sprintf("%q", time.Duration(atomic.LoadInt64(&v.d)))
}

func (v *duration) add(delta time.Duration) {
	atomic.AddInt64(&v.d, int64(delta))
}

func (v *duration) set(value time.Duration) {
	atomic.StoreInt64(&v.d, int64(value))
}

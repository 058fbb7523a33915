package store

import (
	"fmt"
	"io"
	"time"

	vm "github.com/VictoriaMetrics/metrics"
	gometrics "github.com/rcrowley/go-metrics"
)

// --------------------------------------------------------------------------
// Store Metrics
// --------------------------------------------------------------------------

/*
	Two metric sinks are kept per database:

	- a VictoriaMetrics set, exported in Prometheus text format (WritePrometheus)
	- a go-metrics registry, read back in-process by Database.Info
*/

// Operation names used as the op label
const (
	opInsert = "insert"
	opUpdate = "update"
	opDelete = "delete"
	opSweep  = "sweep"
)

type storeMetrics struct {
	set *vm.Set

	registry     gometrics.Registry
	persistTimer gometrics.Timer
	persistErrs  gometrics.Counter
	sweepRuns    gometrics.Counter
	sweepEvicted gometrics.Counter
	sweepErrs    gometrics.Counter
}

func newStoreMetrics() *storeMetrics {
	r := gometrics.NewRegistry()
	return &storeMetrics{
		set:          vm.NewSet(),
		registry:     r,
		persistTimer: gometrics.GetOrRegisterTimer("persist", r),
		persistErrs:  gometrics.GetOrRegisterCounter("persist.errors", r),
		sweepRuns:    gometrics.GetOrRegisterCounter("sweep.runs", r),
		sweepEvicted: gometrics.GetOrRegisterCounter("sweep.evicted", r),
		sweepErrs:    gometrics.GetOrRegisterCounter("sweep.errors", r),
	}
}

// countOp counts n documents affected by a successful mutating operation
func (m *storeMetrics) countOp(op, collection string, n int) {
	m.set.GetOrCreateCounter(fmt.Sprintf(`ddoc_documents_total{op=%q,collection=%q}`, op, collection)).Add(n)
}

// observePersist records the duration and outcome of one snapshot write
func (m *storeMetrics) observePersist(collection string, start time.Time, err error) {
	m.persistTimer.UpdateSince(start)
	m.set.GetOrCreateHistogram(fmt.Sprintf(`ddoc_persist_duration_seconds{collection=%q}`, collection)).UpdateDuration(start)
	if err != nil {
		m.persistErrs.Inc(1)
		m.set.GetOrCreateCounter(fmt.Sprintf(`ddoc_persist_errors_total{collection=%q}`, collection)).Inc()
	}
}

// observeSweep records one sweep pass
func (m *storeMetrics) observeSweep(evicted int, err error) {
	m.sweepRuns.Inc(1)
	m.sweepEvicted.Inc(int64(evicted))
	m.set.GetOrCreateCounter(`ddoc_sweep_runs_total`).Inc()
	m.set.GetOrCreateCounter(`ddoc_sweep_evicted_total`).Add(evicted)
	if err != nil {
		m.sweepErrs.Inc(1)
		m.set.GetOrCreateCounter(`ddoc_sweep_errors_total`).Inc()
	}
}

// writePrometheus writes all metrics of the set in Prometheus text format
func (m *storeMetrics) writePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
}

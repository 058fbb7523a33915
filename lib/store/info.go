package store

import "time"

// CollectionInfo describes one registered collection
type CollectionInfo struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Documents int    `json:"documents"`
	Poisoned  bool   `json:"poisoned"`
}

// PersistInfo summarizes the snapshot writes since the database was opened
type PersistInfo struct {
	Count  int64         `json:"count"`
	Errors int64         `json:"errors"`
	Mean   time.Duration `json:"mean_ns"`
	P99    time.Duration `json:"p99_ns"`
	Max    time.Duration `json:"max_ns"`
}

// SweepInfo summarizes the TTL sweeps since the database was opened
type SweepInfo struct {
	Running  bool          `json:"running"`
	Interval time.Duration `json:"interval_ns"`
	Runs     int64         `json:"runs"`
	Evicted  int64         `json:"evicted"`
	Errors   int64         `json:"errors"`
}

// Info reports the state of a database.
// The values are read without stopping writers and may be slightly stale.
type Info struct {
	Root        string           `json:"root"`
	Collections []CollectionInfo `json:"collections"`
	Documents   int              `json:"documents"`
	Persist     PersistInfo      `json:"persist"`
	Sweep       SweepInfo        `json:"sweep"`
}

// Info returns statistics about the database
func (d *Database) Info() Info {
	info := Info{
		Root:        d.root,
		Collections: []CollectionInfo{},
	}

	for _, name := range d.Collections() {
		var col *Collection
		_ = d.read(func() {
			col = d.collections[name]
		})
		if col == nil {
			continue // dropped in the meantime
		}

		ci := CollectionInfo{
			Name:     name,
			Path:     col.Path(),
			Poisoned: col.Poisoned(),
		}
		if n, err := col.Len(); err == nil {
			ci.Documents = n
			info.Documents += n
		}
		info.Collections = append(info.Collections, ci)
	}

	timer := d.metrics.persistTimer.Snapshot()
	info.Persist = PersistInfo{
		Count:  timer.Count(),
		Errors: d.metrics.persistErrs.Count(),
		Mean:   time.Duration(timer.Mean()),
		P99:    time.Duration(timer.Percentile(0.99)),
		Max:    time.Duration(timer.Max()),
	}

	d.sweeperMu.Lock()
	if d.sweeper != nil {
		info.Sweep.Running = d.sweeper.Running()
		info.Sweep.Interval = d.sweeper.Interval()
	}
	d.sweeperMu.Unlock()
	info.Sweep.Runs = d.metrics.sweepRuns.Count()
	info.Sweep.Evicted = d.metrics.sweepEvicted.Count()
	info.Sweep.Errors = d.metrics.sweepErrs.Count()

	return info
}

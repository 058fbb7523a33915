package store

import (
	"sync"
	"sync/atomic"
	"time"
)

// Sweeper periodically evicts expired documents from every collection of a
// Database. It is owned by the database (see Database.StartTTLCleaner) and
// runs until Stop or Database.Close is called.
//
// A pass that takes longer than the interval delays the next one; missed ticks
// are not caught up. Expired documents stay visible until the next pass.
type Sweeper struct {
	db       *Database
	interval time.Duration

	running  atomic.Bool
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newSweeper(db *Database, interval time.Duration) *Sweeper {
	return &Sweeper{
		db:       db,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// start launches the sweep loop
// if the sweeper is already running, this function does nothing
func (s *Sweeper) start() {
	if s.running.CompareAndSwap(false, true) {
		Logger.Infof("starting ttl sweeper (interval %s)", s.interval)
		go s.loop()
	}
}

// Stop signals the sweep loop to exit and waits until it has.
// A pass in progress is finished first. Stop is idempotent and a stopped
// sweeper can not be restarted; call Database.StartTTLCleaner again instead.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
}

// Running reports whether the sweep loop is active.
func (s *Sweeper) Running() bool {
	return s.running.Load()
}

// Done is closed once the sweep loop has exited.
func (s *Sweeper) Done() <-chan struct{} {
	return s.done
}

// Interval returns the time between two sweep passes.
func (s *Sweeper) Interval() time.Duration {
	return s.interval
}

// loop is the main sweep loop
// WARNING: this method should never be called directly! use start() and Stop()
func (s *Sweeper) loop() {
	defer func() {
		s.running.Store(false)
		close(s.done)
		Logger.Infof("ttl sweeper stopped")
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			evicted, err := s.db.Sweep()
			if err != nil {
				Logger.Errorf("ttl sweep failed: %v", err)
			}
			if evicted > 0 {
				Logger.Infof("ttl sweep evicted %d documents", evicted)
			}
		}
	}
}

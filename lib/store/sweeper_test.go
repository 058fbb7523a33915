package store

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestSweep(t *testing.T) {
	t.Run("EvictsExpired", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		clock := newTestClock()
		database := openMemDB(t, fs, clock)
		col := mustCollection(t, database, "sessions")

		short := mustInsert(t, col, `{"s":1}`, ttl(1))
		long := mustInsert(t, col, `{"s":2}`, ttl(3600))
		forever := mustInsert(t, col, `{"s":3}`, nil)

		evicted, err := database.Sweep()
		if err != nil || evicted != 0 {
			t.Fatalf("Expected nothing to expire yet, got %d err=%v", evicted, err)
		}

		clock.Advance(2 * time.Second)
		evicted, err = database.Sweep()
		if err != nil {
			t.Fatalf("Sweep failed: %v", err)
		}
		if evicted != 1 {
			t.Errorf("Expected 1 evicted document, got %d", evicted)
		}

		if _, ok, _ := col.Find(short.ID); ok {
			t.Errorf("Expected %s to be evicted", short.ID)
		}
		for _, id := range []string{long.ID, forever.ID} {
			if _, ok, _ := col.Find(id); !ok {
				t.Errorf("Expected %s to survive the sweep", id)
			}
		}

		raw, err := afero.ReadFile(fs, col.Path())
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}
		if strings.Contains(string(raw), short.ID) {
			t.Errorf("Expected snapshot not to contain the evicted document")
		}
		if !strings.Contains(string(raw), long.ID) {
			t.Errorf("Expected snapshot to contain the surviving document")
		}

		info := database.Info()
		if info.Sweep.Runs != 2 || info.Sweep.Evicted != 1 {
			t.Errorf("Expected 2 runs and 1 eviction, got %+v", info.Sweep)
		}
	})

	t.Run("ExpiryIsInclusive", func(t *testing.T) {
		clock := newTestClock()
		database := openMemDB(t, afero.NewMemMapFs(), clock)
		col := mustCollection(t, database, "sessions")

		mustInsert(t, col, `{}`, ttl(10))
		clock.Advance(10 * time.Second)

		if evicted, _ := database.Sweep(); evicted != 1 {
			t.Errorf("Expected document expiring exactly now to be evicted, got %d", evicted)
		}
	})

	t.Run("SkipsPoisoned", func(t *testing.T) {
		clock := newTestClock()
		database := openMemDB(t, afero.NewMemMapFs(), clock)

		bad := mustCollection(t, database, "bad")
		good := mustCollection(t, database, "good")
		mustInsert(t, bad, `{}`, ttl(0))
		mustInsert(t, good, `{}`, ttl(0))
		_ = bad.write(func() error { panic("boom") })

		evicted, err := database.Sweep()
		if CodeOf(err) != ErrCLockPoisoned {
			t.Errorf("Expected the poisoned collection to be reported, got %v", err)
		}
		if evicted != 1 {
			t.Errorf("Expected the healthy collection to be swept, got %d", evicted)
		}
		if info := database.Info(); info.Sweep.Errors != 1 {
			t.Errorf("Expected 1 sweep error, got %d", info.Sweep.Errors)
		}
	})
}

func TestTTLCleaner(t *testing.T) {
	clock := newTestClock()
	database := openMemDB(t, afero.NewMemMapFs(), clock)
	col := mustCollection(t, database, "sessions")

	doc := mustInsert(t, col, `{}`, ttl(5))
	clock.Advance(10 * time.Second)

	sweeper := database.StartTTLCleaner(10 * time.Millisecond)
	if !sweeper.Running() {
		t.Fatalf("Expected sweeper to run")
	}
	if again := database.StartTTLCleaner(time.Hour); again != sweeper {
		t.Errorf("Expected StartTTLCleaner to return the running sweeper")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, ok, _ := col.Find(doc.ID); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Expected %s to be evicted by the background sweeper", doc.ID)
		}
		time.Sleep(5 * time.Millisecond)
	}

	sweeper.Stop()
	sweeper.Stop() // idempotent
	select {
	case <-sweeper.Done():
	default:
		t.Errorf("Expected Done to be closed after Stop")
	}
	if sweeper.Running() {
		t.Errorf("Expected sweeper to be stopped")
	}

	// Close after an explicit Stop must not block
	if err := database.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	restarted := database.StartTTLCleaner(0)
	if restarted == sweeper || restarted.Interval() != defaultSweepInterval {
		t.Errorf("Expected a new sweeper with the default interval, got %v", restarted.Interval())
	}
	_ = database.Close()
}

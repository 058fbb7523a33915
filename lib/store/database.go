package store

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/spf13/afero"
)

var Logger = logger.GetLogger("store")

// validName restricts collection names to what maps 1:1 onto a snapshot file
var validName = regexp.MustCompile(`^[A-Za-z0-9_-][A-Za-z0-9_.-]*$`)

// Database is a registry of collections rooted at one directory.
//
// Lookups share the registry lock; registering, dropping and reopening a
// collection hold it exclusively. At most one *Collection exists per name, so
// all callers of Collection(name) observe the same instance.
//
// Thread-safety: All exported methods are thread-safe.
type Database struct {
	root    string
	fs      afero.Fs
	now     func() time.Time
	metrics *storeMetrics

	mu          *xsync.RBMutex
	poisoned    atomic.Bool
	collections map[string]*Collection

	sweeperMu sync.Mutex
	sweeper   *Sweeper
}

// Open creates a database rooted at root with the specified options (optional).
// Every snapshot found in root is loaded and registered unless Options.SkipExisting
// is set; skipped collections are still loaded lazily by Collection.
func Open(root string, opts *Options) (*Database, error) {
	o := opts.withDefaults()
	Logger.Infof("initializing database at %s", root)

	d := &Database{
		root:        root,
		fs:          o.Fs,
		now:         o.Clock,
		metrics:     newStoreMetrics(),
		mu:          xsync.NewRBMutex(),
		collections: make(map[string]*Collection),
	}

	if !o.SkipExisting {
		if err := d.loadExisting(); err != nil {
			return nil, err
		}
	}

	d.metrics.set.NewGauge(`ddoc_collections`, func() float64 {
		return float64(len(d.Collections()))
	})

	return d, nil
}

// loadExisting registers every snapshot in the root directory.
func (d *Database) loadExisting() error {
	exists, err := afero.DirExists(d.fs, d.root)
	if err != nil {
		return ioError("failed to stat data directory "+d.root, err)
	}
	if !exists {
		return nil
	}

	entries, err := afero.ReadDir(d.fs, d.root)
	if err != nil {
		return ioError("failed to list data directory "+d.root, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), snapshotExt) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), snapshotExt)
		if validateName(name) != nil {
			Logger.Warningf("skipping %s: not a valid collection name", filepath.Join(d.root, entry.Name()))
			continue
		}

		col, err := newCollection(name, d.root, d.fs, d.now, d.metrics)
		if err != nil {
			return err
		}
		d.collections[name] = col
	}

	Logger.Infof("loaded %d collections from %s", len(d.collections), d.root)
	return nil
}

// Root returns the data directory of the database.
func (d *Database) Root() string {
	return d.root
}

// --------------------------------------------------------------------------
// Registry Operations
// --------------------------------------------------------------------------

// Collection returns the registered collection with the given name, loading it
// from its snapshot (or creating it empty) on first use.
func (d *Database) Collection(name string) (*Collection, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	var col *Collection
	if err := d.read(func() {
		col = d.collections[name]
	}); err != nil {
		return nil, err
	}
	if col != nil {
		return col, nil
	}

	err := d.write(func() error {
		// re-check: another caller may have registered it in the meantime
		if existing, ok := d.collections[name]; ok {
			col = existing
			return nil
		}

		created, err := newCollection(name, d.root, d.fs, d.now, d.metrics)
		if err != nil {
			return err
		}
		d.collections[name] = created
		col = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return col, nil
}

// CreateCollection returns the collection with the given name like Collection,
// and makes sure a snapshot exists on disk so the collection survives a restart
// before its first document is inserted.
func (d *Database) CreateCollection(name string) (*Collection, error) {
	col, err := d.Collection(name)
	if err != nil {
		return nil, err
	}
	if err := col.ensurePersisted(); err != nil {
		return nil, err
	}
	Logger.Infof("created collection %s", name)
	return col, nil
}

// DropCollection unregisters the collection and deletes its snapshot.
// Handles to the dropped collection held by other callers fail with
// ErrCCollectionNotFound afterwards.
func (d *Database) DropCollection(name string) error {
	err := d.write(func() error {
		col, ok := d.collections[name]
		if !ok {
			return NewError(ErrCCollectionNotFound, fmt.Sprintf("collection %s not found", name), nil)
		}
		if err := col.retire(true); err != nil {
			return err
		}
		delete(d.collections, name)
		return nil
	})
	if err != nil {
		return err
	}

	Logger.Infof("dropped collection %s", name)
	return nil
}

// Reopen replaces the registered collection with a fresh instance loaded from
// its snapshot. This is the only way to recover a collection whose lock was
// poisoned; the old instance is retired.
func (d *Database) Reopen(name string) (*Collection, error) {
	var col *Collection
	err := d.write(func() error {
		old, ok := d.collections[name]
		if !ok {
			return NewError(ErrCCollectionNotFound, fmt.Sprintf("collection %s not found", name), nil)
		}

		// load while holding the old lock so no acknowledged write is missed
		err := old.retireAfter(func() error {
			fresh, err := newCollection(name, d.root, d.fs, d.now, d.metrics)
			if err != nil {
				return err
			}
			col = fresh
			return nil
		})
		if err != nil {
			return err
		}
		d.collections[name] = col
		return nil
	})
	if err != nil {
		return nil, err
	}

	Logger.Warningf("reopened collection %s from %s", name, col.Path())
	return col, nil
}

// Collections returns the names of all registered collections in sorted order.
func (d *Database) Collections() []string {
	var names []string
	_ = d.read(func() {
		names = make([]string, 0, len(d.collections))
		for name := range d.collections {
			names = append(names, name)
		}
	})
	sort.Strings(names)
	return names
}

// --------------------------------------------------------------------------
// TTL Operations
// --------------------------------------------------------------------------

// Sweep runs one sweep pass over all registered collections and returns the
// number of evicted documents. The registry lock is shared for the whole pass,
// so collections can not be created or dropped while a pass is running.
// A failing collection does not stop the pass; all errors are joined.
func (d *Database) Sweep() (int, error) {
	var (
		evicted int
		errs    []error
	)
	err := d.read(func() {
		for _, col := range d.collections {
			n, err := col.sweep(d.now().UTC())
			evicted += n
			if err != nil {
				errs = append(errs, err)
			}
		}
	})
	if err != nil {
		errs = append(errs, err)
	}

	err = errors.Join(errs...)
	d.metrics.observeSweep(evicted, err)
	return evicted, err
}

// StartTTLCleaner starts the background sweeper with the given interval
// (0 = use default: 60 sec). If a sweeper is already running it is returned.
func (d *Database) StartTTLCleaner(interval time.Duration) *Sweeper {
	d.sweeperMu.Lock()
	defer d.sweeperMu.Unlock()

	if d.sweeper != nil && d.sweeper.Running() {
		return d.sweeper
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	d.sweeper = newSweeper(d, interval)
	d.sweeper.start()
	return d.sweeper
}

// Close stops the background sweeper (if any) and waits for it to exit.
func (d *Database) Close() error {
	d.sweeperMu.Lock()
	defer d.sweeperMu.Unlock()

	if d.sweeper != nil {
		d.sweeper.Stop()
		d.sweeper = nil
	}
	return nil
}

// WritePrometheus writes the database metrics in Prometheus text format.
func (d *Database) WritePrometheus(w io.Writer) {
	d.metrics.writePrometheus(w)
}

// --------------------------------------------------------------------------
// Locking Helpers
// --------------------------------------------------------------------------

// read runs fn under the shared registry lock.
func (d *Database) read(fn func()) error {
	if d.poisoned.Load() {
		return d.poisonedErr(nil)
	}

	t := d.mu.RLock()
	defer d.mu.RUnlock(t)

	if d.poisoned.Load() {
		return d.poisonedErr(nil)
	}
	fn()
	return nil
}

// write runs fn under the exclusive registry lock. A panic inside fn poisons
// the registry permanently and is returned as an ErrCLockPoisoned error.
func (d *Database) write(fn func() error) (err error) {
	if d.poisoned.Load() {
		return d.poisonedErr(nil)
	}

	d.mu.Lock()
	defer func() {
		if r := recover(); r != nil {
			d.poisoned.Store(true)
			Logger.Errorf("panic while holding registry lock: %v", r)
			err = d.poisonedErr(fmt.Errorf("panic: %v", r))
		}
		d.mu.Unlock()
	}()

	if d.poisoned.Load() {
		return d.poisonedErr(nil)
	}
	return fn()
}

func (d *Database) poisonedErr(cause error) error {
	return NewError(ErrCLockPoisoned, "registry lock is poisoned", cause)
}

// validateName checks that name can be used as a snapshot file name.
func validateName(name string) error {
	if len(name) == 0 || len(name) > maxCollectionNameSize || !validName.MatchString(name) {
		return NewError(ErrCInvalidName, fmt.Sprintf("invalid collection name %q", name), nil)
	}
	return nil
}

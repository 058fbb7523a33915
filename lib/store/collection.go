package store

import (
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/spf13/afero"
)

// Collection owns the documents of one name and their on-disk snapshot.
//
// Reads (Find, FindAll, Len) share the collection lock. Writes (Insert, Update,
// Delete and the TTL sweep) hold it exclusively, including the snapshot write,
// so the snapshot always reflects the in-memory documents once a write returns.
// Every write costs one full rewrite of the snapshot: O(collection size).
//
// Thread-safety: All exported methods are thread-safe.
type Collection struct {
	name    string
	path    string
	fs      afero.Fs
	now     func() time.Time
	metrics *storeMetrics

	mu       *xsync.RBMutex
	poisoned atomic.Bool // set when a panic escaped a write critical section
	retired  bool        // set (under mu) when dropped or replaced; guarded by mu
	docs     map[string]Document
	expiry   *expiryIndex // documents with an ExpiresAt, guarded by mu
}

// newCollection loads the collection from its snapshot in root, or starts
// empty and creates root if no snapshot exists.
func newCollection(name, root string, fs afero.Fs, now func() time.Time, m *storeMetrics) (*Collection, error) {
	path := snapshotPath(root, name)
	Logger.Debugf("initializing collection %s at %s", name, path)

	docs, found, err := readSnapshot(fs, path)
	if err != nil {
		return nil, err
	}
	if found {
		Logger.Infof("loaded collection %s (%d documents)", name, len(docs))
	} else {
		if err := fs.MkdirAll(root, snapshotDirPerm); err != nil {
			return nil, ioError("failed to create data directory "+root, err)
		}
		docs = make(map[string]Document)
	}

	return &Collection{
		name:    name,
		path:    path,
		fs:      fs,
		now:     now,
		metrics: m,
		mu:      xsync.NewRBMutex(),
		docs:    docs,
		expiry:  newExpiryIndexFrom(docs),
	}, nil
}

func snapshotPath(root, name string) string {
	return filepath.Join(root, name+snapshotExt)
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// Path returns the location of the collection snapshot.
func (c *Collection) Path() string {
	return c.path
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

// Insert stores data as a new document with a freshly generated id.
// If ttl is not nil the document expires ttl seconds from now; zero or negative
// values produce a document that is already eligible for the next sweep.
// The returned document is a copy.
func (c *Collection) Insert(data json.RawMessage, ttl *int64) (Document, error) {
	payload, err := compactJSON(data)
	if err != nil {
		return Document{}, err
	}

	var out Document
	err = c.write(func() error {
		now := c.timestamp()
		doc := Document{
			ID:        c.newID(),
			Data:      payload,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if ttl != nil {
			exp := now.Add(ttlDuration(*ttl))
			doc.ExpiresAt = &exp
		}

		c.docs[doc.ID] = doc
		if doc.ExpiresAt != nil {
			c.expiry.add(doc.ID, *doc.ExpiresAt)
		}
		if err := c.persistLocked(); err != nil {
			delete(c.docs, doc.ID)
			c.expiry.remove(doc.ID)
			return err
		}

		out = doc.Clone()
		return nil
	})
	if err != nil {
		return Document{}, err
	}

	c.metrics.countOp(opInsert, c.name, 1)
	Logger.Debugf("inserted document %s into %s", out.ID, c.name)
	return out, nil
}

// Update replaces the data of document id and advances its update time.
// The id, creation time and expiry are left untouched.
func (c *Collection) Update(id string, data json.RawMessage) (Document, error) {
	payload, err := compactJSON(data)
	if err != nil {
		return Document{}, err
	}

	var out Document
	err = c.write(func() error {
		old, ok := c.docs[id]
		if !ok {
			return NewError(ErrCNotFound, fmt.Sprintf("document %s not found in %s", id, c.name), nil)
		}

		doc := old
		doc.Data = payload
		doc.UpdatedAt = c.timestamp()
		if doc.UpdatedAt.Before(doc.CreatedAt) {
			doc.UpdatedAt = doc.CreatedAt
		}

		c.docs[id] = doc
		if err := c.persistLocked(); err != nil {
			c.docs[id] = old
			return err
		}

		out = doc.Clone()
		return nil
	})
	if err != nil {
		return Document{}, err
	}

	c.metrics.countOp(opUpdate, c.name, 1)
	Logger.Debugf("updated document %s in %s", id, c.name)
	return out, nil
}

// Delete removes document id.
func (c *Collection) Delete(id string) error {
	err := c.write(func() error {
		old, ok := c.docs[id]
		if !ok {
			return NewError(ErrCNotFound, fmt.Sprintf("document %s not found in %s", id, c.name), nil)
		}

		delete(c.docs, id)
		c.expiry.remove(id)
		if err := c.persistLocked(); err != nil {
			c.docs[id] = old
			if old.ExpiresAt != nil {
				c.expiry.add(id, *old.ExpiresAt)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.metrics.countOp(opDelete, c.name, 1)
	Logger.Debugf("deleted document %s from %s", id, c.name)
	return nil
}

// sweep removes every document that expired at or before now and persists
// the collection if anything was removed.
func (c *Collection) sweep(now time.Time) (int, error) {
	var removed int
	err := c.write(func() error {
		var expired []Document
		for _, id := range c.expiry.popExpired(now) {
			if doc, ok := c.docs[id]; ok {
				expired = append(expired, doc)
				delete(c.docs, id)
			}
		}
		if len(expired) == 0 {
			return nil
		}

		if err := c.persistLocked(); err != nil {
			for _, doc := range expired {
				c.docs[doc.ID] = doc
				c.expiry.add(doc.ID, *doc.ExpiresAt)
			}
			return err
		}
		removed = len(expired)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		c.metrics.countOp(opSweep, c.name, removed)
		Logger.Debugf("swept %d expired documents from %s", removed, c.name)
	}
	return removed, nil
}

// ensurePersisted writes an empty snapshot if none exists yet.
func (c *Collection) ensurePersisted() error {
	return c.write(func() error {
		exists, err := afero.Exists(c.fs, c.path)
		if err != nil {
			return ioError("failed to stat snapshot "+c.path, err)
		}
		if exists {
			return nil
		}
		return c.persistLocked()
	})
}

// --------------------------------------------------------------------------
// Read Operations
// --------------------------------------------------------------------------

// Find returns a copy of document id. The boolean is false if no such
// document exists.
func (c *Collection) Find(id string) (Document, bool, error) {
	var (
		doc Document
		ok  bool
	)
	err := c.read(func() {
		if d, found := c.docs[id]; found {
			doc, ok = d.Clone(), true
		}
	})
	return doc, ok, err
}

// FindAll returns a copy of every document in no particular order.
func (c *Collection) FindAll() ([]Document, error) {
	var out []Document
	err := c.read(func() {
		out = make([]Document, 0, len(c.docs))
		for _, doc := range c.docs {
			out = append(out, doc.Clone())
		}
	})
	return out, err
}

// Len returns the number of documents in the collection.
func (c *Collection) Len() (int, error) {
	var n int
	err := c.read(func() {
		n = len(c.docs)
	})
	return n, err
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// retire marks the collection as no longer registered. If removeFile is set
// the snapshot is deleted as well. A poisoned collection can still be retired.
func (c *Collection) retire(removeFile bool) error {
	return c.retireAfter(func() error {
		if removeFile {
			return removeSnapshot(c.fs, c.path)
		}
		return nil
	})
}

// retireAfter runs fn under the exclusive lock and retires the collection if
// fn succeeds. Writes in flight finish before fn runs and later writes see the
// collection as retired, so fn observes the final snapshot.
func (c *Collection) retireAfter(fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := fn(); err != nil {
		return err
	}
	c.retired = true
	return nil
}

// Poisoned reports whether a panic left the collection lock unusable.
func (c *Collection) Poisoned() bool {
	return c.poisoned.Load()
}

// --------------------------------------------------------------------------
// Locking and Persistence Helpers
// --------------------------------------------------------------------------

// read runs fn under the shared lock.
func (c *Collection) read(fn func()) error {
	if c.poisoned.Load() {
		return c.poisonedErr(nil)
	}

	t := c.mu.RLock()
	defer c.mu.RUnlock(t)

	if c.poisoned.Load() {
		return c.poisonedErr(nil)
	}
	if c.retired {
		return c.retiredErr()
	}
	fn()
	return nil
}

// write runs fn under the exclusive lock. A panic inside fn poisons the
// collection and is returned as an ErrCLockPoisoned error.
func (c *Collection) write(fn func() error) (err error) {
	if c.poisoned.Load() {
		return c.poisonedErr(nil)
	}

	c.mu.Lock()
	defer func() {
		if r := recover(); r != nil {
			c.poisoned.Store(true)
			Logger.Errorf("panic while holding lock of collection %s: %v", c.name, r)
			err = c.poisonedErr(fmt.Errorf("panic: %v", r))
		}
		c.mu.Unlock()
	}()

	if c.poisoned.Load() {
		return c.poisonedErr(nil)
	}
	if c.retired {
		return c.retiredErr()
	}
	return fn()
}

func (c *Collection) retiredErr() error {
	return NewError(ErrCCollectionNotFound, fmt.Sprintf("collection %s was dropped or reopened", c.name), nil)
}

func (c *Collection) poisonedErr(cause error) error {
	return NewError(ErrCLockPoisoned, fmt.Sprintf("lock of collection %s is poisoned", c.name), cause)
}

// persistLocked rewrites the snapshot. The caller must hold the exclusive lock.
func (c *Collection) persistLocked() error {
	start := time.Now()
	err := writeSnapshot(c.fs, c.path, c.docs)
	c.metrics.observePersist(c.name, start, err)
	if err != nil {
		Logger.Errorf("failed to persist collection %s: %v", c.name, err)
		return err
	}
	Logger.Debugf("persisted collection %s (%d documents)", c.name, len(c.docs))
	return nil
}

// timestamp returns the current time in UTC.
func (c *Collection) timestamp() time.Time {
	return c.now().UTC()
}

// newID returns a random 128-bit id that is not used in the collection.
// The caller must hold the exclusive lock.
func (c *Collection) newID() string {
	for {
		id := uuid.NewString()
		if _, exists := c.docs[id]; !exists {
			return id
		}
	}
}

// ttlDuration converts ttl seconds to a duration, saturating instead of
// overflowing for very large values.
func ttlDuration(seconds int64) time.Duration {
	const maxSeconds = int64(math.MaxInt64 / int64(time.Second))
	switch {
	case seconds > maxSeconds:
		return time.Duration(math.MaxInt64)
	case seconds < -maxSeconds:
		return time.Duration(math.MinInt64)
	default:
		return time.Duration(seconds) * time.Second
	}
}

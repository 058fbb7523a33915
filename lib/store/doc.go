// Package store implements an embeddable, in-process document store.
//
// Documents are schema-less JSON values grouped into named collections. Each
// document is addressed by a generated identifier, carries creation and update
// timestamps and may expire after a time-to-live. Collections are durable
// across process restarts: every collection is backed by one snapshot file.
//
// Key Components:
//
//   - Document: A plain record holding the opaque JSON payload and its
//     metadata (id, created_at, updated_at and the optional expires_at).
//
//   - Collection: Owns the documents of one name and their snapshot. All
//     mutation and persistence logic lives here. Reads share a reader-biased
//     lock (xsync.RBMutex); writes hold it exclusively, including the snapshot
//     write.
//
//   - Database: A registry of collections rooted at one directory. It creates
//     or loads collections lazily, drops them, and owns the TTL sweeper.
//
//   - Sweeper: A background task that periodically evicts expired documents
//     from every registered collection. It is started with
//     Database.StartTTLCleaner and stopped with Sweeper.Stop or Database.Close.
//
// Persistence:
//
//   - Snapshot strategy: every successful Insert, Update, Delete and every sweep
//     that evicts documents rewrites the whole collection file
//     (<root>/<name>.json, pretty-printed JSON mapping id to document). The cost
//     of a write is therefore O(collection size); the store targets small and
//     medium collections with a moderate write rate.
//   - Atomic replace: the new snapshot is written to a temporary file, synced,
//     and renamed over the old one. A crash mid-write leaves the old snapshot.
//   - Consistency: the snapshot write happens while the exclusive collection lock
//     is held, and a failed write rolls back the in-memory change. Once a write
//     returns successfully, the snapshot reflects exactly the documents in
//     memory.
//
// Errors:
//
// All operations return a *Error carrying an ErrCode (NotFound,
// CollectionNotFound, Serialization, Io, LockPoisoned, InvalidName). Use
// errors.Is with the exported sentinels (ErrNotFound, ...) or CodeOf to
// classify an error. The store never retries an operation.
//
// Lock Poisoning:
//
// A panic inside a write critical section is recovered, the lock is marked
// poisoned and the operation returns ErrCLockPoisoned. All later operations on
// the poisoned collection fail the same way until Database.Reopen rebuilds it
// from its snapshot. Recovery is never automatic.
//
// Example usage:
//
//	database, err := store.Open("data", nil)
//	if err != nil {
//		return err
//	}
//	defer database.Close()
//	database.StartTTLCleaner(time.Minute)
//
//	users, err := database.Collection("users")
//	if err != nil {
//		return err
//	}
//	doc, err := users.Insert(json.RawMessage(`{"name":"a"}`), nil)
package store

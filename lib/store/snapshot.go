package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// --------------------------------------------------------------------------
// Snapshot Format
// --------------------------------------------------------------------------

/*
	A snapshot is a pretty-printed JSON object mapping document id to document:

	{
	  "0b6c...": {
	    "id": "0b6c...",
	    "data": {"name": "a"},
	    "created_at": "2026-01-02T15:04:05.999999999Z",
	    "updated_at": "2026-01-02T15:04:05.999999999Z"
	  }
	}

	Every persist rewrites the whole file. The new content is written to a
	temporary file in the same directory, synced and renamed over the old
	snapshot, so a crash mid-write leaves either the old or the new snapshot.
*/

// readSnapshot loads the snapshot at path.
// The boolean is false if no snapshot exists.
func readSnapshot(fs afero.Fs, path string) (map[string]Document, bool, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, false, ioError("failed to stat snapshot "+path, err)
	}
	if !exists {
		return nil, false, nil
	}

	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, false, ioError("failed to read snapshot "+path, err)
	}

	docs := make(map[string]Document)
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, false, serializationError("failed to parse snapshot "+path, err)
	}

	for id, doc := range docs {
		if doc.ID == "" {
			doc.ID = id
		}
		if doc.ID != id {
			return nil, false, serializationError(fmt.Sprintf("snapshot %s: key %q holds document %q", path, id, doc.ID), nil)
		}

		// normalize data so that reloaded documents are byte-equal to the ones persisted
		if doc.Data != nil {
			data, err := compactJSON(doc.Data)
			if err != nil {
				return nil, false, err
			}
			doc.Data = data
		}
		docs[id] = doc
	}

	return docs, true, nil
}

// writeSnapshot atomically replaces the snapshot at path with docs.
func writeSnapshot(fs afero.Fs, path string, docs map[string]Document) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(docs); err != nil {
		return serializationError("failed to encode snapshot "+path, err)
	}
	raw := buf.Bytes()

	dir := filepath.Dir(path)
	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return ioError("failed to create temporary snapshot in "+dir, err)
	}
	tmpName := tmp.Name()

	// cleanup removes the temporary file if anything below fails
	cleanup := func(cause error, msg string) error {
		_ = tmp.Close()
		_ = fs.Remove(tmpName)
		return ioError(msg, cause)
	}

	if _, err := tmp.Write(raw); err != nil {
		return cleanup(err, "failed to write snapshot "+path)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err, "failed to sync snapshot "+path)
	}
	if err := tmp.Close(); err != nil {
		_ = fs.Remove(tmpName)
		return ioError("failed to close snapshot "+path, err)
	}
	if err := fs.Chmod(tmpName, snapshotFilePerm); err != nil {
		_ = fs.Remove(tmpName)
		return ioError("failed to set permissions on snapshot "+path, err)
	}
	if err := fs.Rename(tmpName, path); err != nil {
		_ = fs.Remove(tmpName)
		return ioError("failed to replace snapshot "+path, err)
	}
	return nil
}

// removeSnapshot deletes the snapshot at path if it exists.
func removeSnapshot(fs afero.Fs, path string) error {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return ioError("failed to stat snapshot "+path, err)
	}
	if !exists {
		return nil
	}
	if err := fs.Remove(path); err != nil {
		return ioError("failed to remove snapshot "+path, err)
	}
	return nil
}

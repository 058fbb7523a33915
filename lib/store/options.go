package store

import (
	"time"

	"github.com/spf13/afero"
)

// Constants for database behavior
const (
	snapshotExt           = ".json"          // File extension of collection snapshots
	defaultSweepInterval  = 60 * time.Second // Default interval between TTL sweeps
	snapshotFilePerm      = 0o644
	snapshotDirPerm       = 0o755
	maxCollectionNameSize = 200
)

// Options configures a Database during initialization
type Options struct {
	Fs           afero.Fs         // Filesystem holding the snapshots (nil = OS filesystem)
	Clock        func() time.Time // Time source for timestamps and expiry (nil = time.Now)
	SkipExisting bool             // Do not register the snapshots found in the root on Open
}

// DefaultOptions returns the default database options
func DefaultOptions() *Options {
	return &Options{
		Fs:    afero.NewOsFs(),
		Clock: time.Now,
	}
}

// withDefaults fills unset fields from DefaultOptions
func (o *Options) withDefaults() Options {
	def := DefaultOptions()
	if o == nil {
		return *def
	}
	out := *o
	if out.Fs == nil {
		out.Fs = def.Fs
	}
	if out.Clock == nil {
		out.Clock = def.Clock
	}
	return out
}

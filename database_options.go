package versebase

import (
	"runtime"

	"github.com/hupe1980/versebase/archive"
	"github.com/hupe1980/versebase/resource"
)

type dbOptions struct {
	indexes     bool
	concurrency int
	resource    resource.Config
	compression archive.Compression
	tableOpts   []Option
}

// DatabaseOption configures OpenDatabase.
type DatabaseOption func(*dbOptions)

// WithIndexes controls whether tables get a primary index file (default true).
func WithIndexes(enabled bool) DatabaseOption {
	return func(o *dbOptions) {
		o.indexes = enabled
	}
}

// WithConcurrency bounds how many tables Verify and Backup process at once.
// Values below 1 select GOMAXPROCS.
func WithConcurrency(n int) DatabaseOption {
	return func(o *dbOptions) {
		if n < 1 {
			n = runtime.GOMAXPROCS(0)
		}
		o.concurrency = n
	}
}

// WithResourceConfig sets buffer and throughput limits for Backup and Restore.
// MaxWorkers defaults to the configured concurrency.
func WithResourceConfig(cfg resource.Config) DatabaseOption {
	return func(o *dbOptions) {
		o.resource = cfg
	}
}

// WithCompression selects the archive compression used by Backup (default zstd).
func WithCompression(c archive.Compression) DatabaseOption {
	return func(o *dbOptions) {
		o.compression = c
	}
}

// WithTableOptions passes options to every table the database opens, for
// example WithLogger or WithMetricsCollector. WithIndex is managed by the
// database and is overridden.
func WithTableOptions(opts ...Option) DatabaseOption {
	return func(o *dbOptions) {
		o.tableOpts = append(o.tableOpts, opts...)
	}
}

func applyDatabaseOptions(optFns []DatabaseOption) dbOptions {
	o := dbOptions{
		indexes:     true,
		concurrency: runtime.GOMAXPROCS(0),
		compression: archive.Zstd,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.resource.MaxWorkers <= 0 {
		o.resource.MaxWorkers = int64(o.concurrency)
	}
	return o
}

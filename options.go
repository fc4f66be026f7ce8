package versebase

import (
	"log/slog"

	"github.com/hupe1980/versebase/internal/fs"
)

type options struct {
	fs               fs.FileSystem
	indexPath        string
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Open.
type Option func(*options)

// WithIndex enables the primary index, persisted at path.
//
// Without an index every Get and Create scans the row file.
func WithIndex(path string) Option {
	return func(o *options) {
		o.indexPath = path
	}
}

// WithoutIndex disables the primary index.
func WithoutIndex() Option {
	return func(o *options) {
		o.indexPath = ""
	}
}

// WithFileSystem sets the file system used for the row and index files.
//
// If nil is passed, the local file system is used.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		if fsys == nil {
			fsys = fs.Default
		}
		o.fs = fsys
	}
}

// WithMetricsCollector sets a metrics collector for monitoring operations.
//
// Example:
//
//	collector := &versebase.BasicMetricsCollector{}
//	tbl, err := versebase.Open("songs.tbl", songs,
//	    versebase.WithMetricsCollector(collector),
//	)
//	// ... use tbl ...
//	stats := collector.GetStats()
//	fmt.Printf("Creates: %d, Gets: %d\n", stats.CreateCount, stats.GetCount)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger sets a structured logger.
//
// If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithLogLevel logs text to stderr at the given level.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		fs:               fs.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

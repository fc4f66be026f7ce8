// Package fs provides the filesystem abstraction used by the row store and the
// primary index.
//
// The package defines two interfaces:
//
//   - [File]: an open file with positional reads, writes, truncation and sync
//   - [FileSystem]: filesystem operations (open, remove, rename, stat, mkdir)
//
// [ReplaceFile] swaps a whole file atomically through a synced temporary file.
//
// # Implementations
//
//   - [LocalFS]: production implementation on top of the os package
//   - [FaultyFS]: test utility that injects write, truncate, sync and close failures
//
// Production code uses fs.Default:
//
//	file, err := fs.Default.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
//
// Tests inject [FaultyFS] to simulate failures:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".idx", fs.Fault{FailOnSync: true})
//
// [SyncData] flushes file contents durably, using fdatasync where the platform
// offers it.
//
// Operations take no context.Context; local file operations are not
// interruptible at the syscall level.
package fs

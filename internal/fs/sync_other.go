//go:build !linux

package fs

// SyncData flushes the contents of f to stable storage.
func SyncData(f File) error {
	return f.Sync()
}

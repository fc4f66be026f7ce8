//go:build linux

package fs

import "golang.org/x/sys/unix"

type fder interface {
	Fd() uintptr
}

// SyncData flushes the contents of f to stable storage.
//
// Files backed by a descriptor use fdatasync, which skips the metadata-only
// flush fsync would add. Other implementations fall back to Sync.
func SyncData(f File) error {
	if d, ok := f.(fder); ok {
		for {
			err := unix.Fdatasync(int(d.Fd()))
			if err != unix.EINTR {
				return err
			}
		}
	}
	return f.Sync()
}

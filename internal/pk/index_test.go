package pk

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/hupe1980/versebase/internal/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openIndex(t *testing.T, path string) *Index {
	t.Helper()
	idx, err := Open(nil, path)
	require.NoError(t, err)
	return idx
}

func TestIndex_SetGetDelete(t *testing.T) {
	idx := openIndex(t, filepath.Join(t.TempDir(), "songs.idx"))
	defer idx.Close()

	assert.Equal(t, 0, idx.Len())
	assert.False(t, idx.Exists(1))

	require.NoError(t, idx.Set(1, 0))
	require.NoError(t, idx.Set(2, 40))

	off, ok := idx.Get(2)
	assert.True(t, ok)
	assert.Equal(t, uint64(40), off)
	assert.True(t, idx.Exists(1))

	require.NoError(t, idx.Set(2, 80))
	off, _ = idx.Get(2)
	assert.Equal(t, uint64(80), off)
	assert.Equal(t, 2, idx.Len())

	off, ok, err := idx.Delete(1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(0), off)
	assert.False(t, idx.Exists(1))

	_, ok, err = idx.Delete(1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIndex_FileMirrorsMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artists.idx")
	idx := openIndex(t, path)

	require.NoError(t, idx.Set(7, 700))
	require.NoError(t, idx.Set(-3, 30))
	require.NoError(t, idx.Set(2, 20))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, 3*RecordSize)

	var ids []int32
	for i := 0; i < len(data); i += RecordSize {
		ids = append(ids, int32(binary.NativeEndian.Uint32(data[i:i+4])))
	}
	assert.Equal(t, []int32{-3, 2, 7}, ids, "records are dumped in ascending id order")
	assert.Equal(t, uint64(30), binary.NativeEndian.Uint64(data[4:12]))

	require.NoError(t, idx.Close())

	reopened := openIndex(t, path)
	defer reopened.Close()
	assert.Equal(t, map[int32]uint64{-3: 30, 2: 20, 7: 700}, reopened.Snapshot())
}

func TestIndex_LoadIgnoresOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.idx")

	var data []byte
	for _, e := range []struct {
		id  int32
		off uint64
	}{{9, 90}, {1, 10}, {5, 50}} {
		data = binary.NativeEndian.AppendUint32(data, uint32(e.id))
		data = binary.NativeEndian.AppendUint64(data, e.off)
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))

	idx := openIndex(t, path)
	defer idx.Close()

	var ids []int32
	for id := range idx.All() {
		ids = append(ids, id)
	}
	assert.Equal(t, []int32{1, 5, 9}, ids)
	off, _ := idx.Get(9)
	assert.Equal(t, uint64(90), off)
}

func TestIndex_TruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "torn.idx")

	data := binary.NativeEndian.AppendUint32(nil, 4)
	data = binary.NativeEndian.AppendUint64(data, 44)
	data = append(data, 1, 2, 3)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	idx, err := Open(nil, path)
	require.ErrorIs(t, err, ErrTruncated)
	require.NotNil(t, idx)
	defer idx.Close()

	assert.Equal(t, map[int32]uint64{4: 44}, idx.Snapshot())
}

func TestIndex_Reset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.idx")
	idx := openIndex(t, path)
	defer idx.Close()

	require.NoError(t, idx.Set(1, 1))
	require.NoError(t, idx.Reset(map[int32]uint64{10: 100, 20: 200}))

	assert.False(t, idx.Exists(1))
	assert.Equal(t, 2, idx.Len())

	require.NoError(t, idx.Load())
	assert.Equal(t, map[int32]uint64{10: 100, 20: 200}, idx.Snapshot())
}

func TestIndex_AllStopsEarly(t *testing.T) {
	idx := openIndex(t, filepath.Join(t.TempDir(), "s.idx"))
	defer idx.Close()
	require.NoError(t, idx.Reset(map[int32]uint64{1: 1, 2: 2, 3: 3}))

	var seen []int32
	for id := range idx.All() {
		seen = append(seen, id)
		if id == 2 {
			break
		}
	}
	assert.True(t, slices.Equal([]int32{1, 2}, seen))
}

func TestIndex_CloseDumps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.idx")
	idx := openIndex(t, path)

	idx.put(42, 4200)
	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close(), "second close is a no-op")

	reopened := openIndex(t, path)
	defer reopened.Close()
	off, ok := reopened.Get(42)
	assert.True(t, ok)
	assert.Equal(t, uint64(4200), off)
}

func TestIndex_DumpFailure(t *testing.T) {
	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule(".idx", fs.Fault{FailAfterBytes: -1, FailOnSync: true})

	idx, err := Open(ffs, filepath.Join(t.TempDir(), "f.idx"))
	require.NoError(t, err)

	err = idx.Set(1, 10)
	assert.ErrorIs(t, err, fs.ErrInjected)
	assert.True(t, idx.Exists(1), "map keeps the entry even when persisting fails")

	assert.ErrorIs(t, idx.Close(), fs.ErrInjected)
}

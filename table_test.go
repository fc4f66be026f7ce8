package versebase

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hupe1980/versebase/codec"
	"github.com/hupe1980/versebase/field"
	"github.com/hupe1980/versebase/internal/fs"
	"github.com/hupe1980/versebase/internal/rowstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_CreateGet(t *testing.T) {
	indexModes(t, func(t *testing.T, open func(...Option) *Table[Artist]) {
		tbl := open()

		require.NoError(t, tbl.Create(Artist{ID: 1, Name: "Slayer"}))
		require.NoError(t, tbl.Create(Artist{ID: 2, Name: "Kasabian"}))

		a, err := tbl.Get(2)
		require.NoError(t, err)
		assert.Equal(t, Artist{ID: 2, Name: "Kasabian"}, a)

		a, err = tbl.Get(1)
		require.NoError(t, err)
		assert.Equal(t, "Slayer", a.Name)

		n, err := tbl.Len()
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}

func TestTable_GetEmpty(t *testing.T) {
	indexModes(t, func(t *testing.T, open func(...Option) *Table[Artist]) {
		tbl := open()

		_, err := tbl.Get(1)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, KindNotFound, KindOf(err))

		var e *Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, "get", e.Op)
		assert.Equal(t, "artists", e.Table)
	})
}

func TestTable_DuplicateCreate(t *testing.T) {
	indexModes(t, func(t *testing.T, open func(...Option) *Table[Artist]) {
		tbl := open()
		require.NoError(t, tbl.Create(Artist{ID: 1, Name: "Slayer"}))
		size := tbl.Size()

		err := tbl.Create(Artist{ID: 1, Name: "Impostor"})
		assert.ErrorIs(t, err, ErrAlreadyExists)
		assert.Equal(t, KindAlreadyExists, KindOf(err))
		assert.Equal(t, size, tbl.Size())

		a, err := tbl.Get(1)
		require.NoError(t, err)
		assert.Equal(t, "Slayer", a.Name)
	})
}

func TestTable_DeleteThenGet(t *testing.T) {
	indexModes(t, func(t *testing.T, open func(...Option) *Table[Artist]) {
		tbl := open()
		require.NoError(t, tbl.Create(Artist{ID: 1, Name: "Slayer"}))
		require.NoError(t, tbl.Create(Artist{ID: 2, Name: "Kasabian"}))

		require.NoError(t, tbl.Delete(1))

		_, err := tbl.Get(1)
		assert.ErrorIs(t, err, ErrNotFound)

		a, err := tbl.Get(2)
		require.NoError(t, err)
		assert.Equal(t, Artist{ID: 2, Name: "Kasabian"}, a)

		// A rescan from offset 0 never yields the deleted id.
		for row, err := range tbl.All() {
			require.NoError(t, err)
			assert.NotEqual(t, int32(1), row.ID)
		}
		require.NoError(t, tbl.Verify())
	})
}

func TestTable_DeleteAbsent(t *testing.T) {
	indexModes(t, func(t *testing.T, open func(...Option) *Table[Artist]) {
		tbl := open()
		require.NoError(t, tbl.Create(Artist{ID: 1, Name: "Slayer"}))
		size := tbl.Size()

		err := tbl.Delete(42)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, size, tbl.Size())
	})
}

func TestTable_Update(t *testing.T) {
	indexModes(t, func(t *testing.T, open func(...Option) *Table[Artist]) {
		tbl := open()
		require.NoError(t, tbl.Create(Artist{ID: 1, Name: "Slayer"}))
		require.NoError(t, tbl.Create(Artist{ID: 2, Name: "Kasabian"}))

		require.NoError(t, tbl.Update(Artist{ID: 1, Name: "Slayer (remastered)"}))

		a, err := tbl.Get(1)
		require.NoError(t, err)
		assert.Equal(t, "Slayer (remastered)", a.Name)

		// Update appends, so the updated row moves to the end.
		rows, err := tbl.Select(nil)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, int32(2), rows[0].ID)
		assert.Equal(t, int32(1), rows[1].ID)

		assert.ErrorIs(t, tbl.Update(Artist{ID: 9, Name: "nobody"}), ErrNotFound)
	})
}

func TestTable_Select(t *testing.T) {
	dir := t.TempDir()
	songs, err := Open(filepath.Join(dir, "songs.tbl"), songSchema, WithIndex(filepath.Join(dir, "songs.idx")))
	require.NoError(t, err)
	defer songs.Close()

	for _, s := range []Song{
		{ID: 1, Name: "Seasons In The Abyss", ArtistID: 1},
		{ID: 2, Name: "Underdog", ArtistID: 2},
		{ID: 3, Name: "Club Foot", ArtistID: 2},
	} {
		require.NoError(t, songs.Create(s))
	}

	all, err := songs.Select(field.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, s := range all {
		assert.Equal(t, int32(i+1), s.ID, "insertion order")
	}

	byArtist, err := songs.Select(field.Eq("artist_id", field.Int32(2)))
	require.NoError(t, err)
	require.Len(t, byArtist, 2)
	assert.Equal(t, "Underdog", byArtist[0].Name)
	assert.Equal(t, "Club Foot", byArtist[1].Name)

	both, err := songs.Select(field.Eq("artist_id", field.Int32(2)).And("name", field.String("Club Foot")))
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, int32(3), both[0].ID)

	none, err := songs.Select(field.Eq("artist_id", field.Int32(7)))
	require.NoError(t, err)
	assert.Empty(t, none)

	// A filter on an unknown column or with the wrong kind matches nothing.
	none, err = songs.Select(field.Eq("genre", field.String("thrash")))
	require.NoError(t, err)
	assert.Empty(t, none)
	none, err = songs.Select(field.Eq("artist_id", field.String("2")))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTable_ResolveArtist(t *testing.T) {
	dir := t.TempDir()
	artists, err := Open(filepath.Join(dir, "artists.tbl"), artistSchema, WithIndex(filepath.Join(dir, "artists.idx")))
	require.NoError(t, err)
	defer artists.Close()
	songs, err := Open(filepath.Join(dir, "songs.tbl"), songSchema, WithIndex(filepath.Join(dir, "songs.idx")))
	require.NoError(t, err)
	defer songs.Close()

	require.NoError(t, artists.Create(Artist{ID: 1, Name: "Slayer"}))
	require.NoError(t, artists.Create(Artist{ID: 2, Name: "Kasabian"}))
	require.NoError(t, songs.Create(Song{ID: 1, Name: "Seasons In The Abyss", ArtistID: 1}))

	song, err := songs.Get(1)
	require.NoError(t, err)
	artist, err := artists.Get(song.ArtistID)
	require.NoError(t, err)
	assert.Equal(t, Artist{ID: 1, Name: "Slayer"}, artist)
}

func TestTable_IndexConsistency(t *testing.T) {
	dir := t.TempDir()
	path, idxPath := filepath.Join(dir, "artists.tbl"), filepath.Join(dir, "artists.idx")

	tbl, err := Open(path, artistSchema, WithIndex(idxPath))
	require.NoError(t, err)

	live := map[int32]string{}
	for i := int32(1); i <= 30; i++ {
		name := strings.Repeat("x", int(i%7)+1)
		require.NoError(t, tbl.Create(Artist{ID: i, Name: name}))
		live[i] = name
		if i%3 == 0 {
			require.NoError(t, tbl.Delete(i-1))
			delete(live, i-1)
		}
	}
	require.NoError(t, tbl.Delete(1))
	delete(live, 1)
	require.NoError(t, tbl.Verify())

	// Every indexed offset is the begin offset of the row carrying that id.
	for id, off := range tbl.index.All() {
		_, err := tbl.store.Seek(int64(off))
		require.NoError(t, err)
		fields, _, err := tbl.store.ReadRow()
		require.NoError(t, err)
		assert.Equal(t, id, field.DecodeInt32(fields[0].Data))
	}
	require.NoError(t, tbl.Close())

	tbl, err = Open(path, artistSchema, WithIndex(idxPath))
	require.NoError(t, err)
	defer tbl.Close()

	n, err := tbl.Len()
	require.NoError(t, err)
	assert.Equal(t, len(live), n)
	for id, name := range live {
		a, err := tbl.Get(id)
		require.NoError(t, err)
		assert.Equal(t, name, a.Name)
	}
}

func TestTable_StaleIndexFileIsRebuilt(t *testing.T) {
	dir := t.TempDir()
	path, idxPath := filepath.Join(dir, "artists.tbl"), filepath.Join(dir, "artists.idx")

	tbl, err := Open(path, artistSchema, WithIndex(idxPath))
	require.NoError(t, err)
	require.NoError(t, tbl.Create(Artist{ID: 1, Name: "Slayer"}))
	require.NoError(t, tbl.Create(Artist{ID: 2, Name: "Kasabian"}))
	require.NoError(t, tbl.Close())

	// Garbage plus a torn record.
	require.NoError(t, os.WriteFile(idxPath, []byte{9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 1, 2, 3}, 0o644))

	tbl, err = Open(path, artistSchema, WithIndex(idxPath))
	require.NoError(t, err)
	defer tbl.Close()
	require.NoError(t, tbl.Verify())

	a, err := tbl.Get(2)
	require.NoError(t, err)
	assert.Equal(t, "Kasabian", a.Name)
}

func TestTable_CorruptRowDelimiter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artists.tbl")
	tbl, err := Open(path, artistSchema, WithIndex(filepath.Join(dir, "artists.idx")))
	require.NoError(t, err)
	defer tbl.Close()

	require.NoError(t, tbl.Create(Artist{ID: 1, Name: "Slayer"}))
	require.NoError(t, tbl.Create(Artist{ID: 2, Name: "Kasabian"}))
	off, ok := tbl.index.Get(2)
	require.True(t, ok)

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte{0xAA}, int64(off)-1)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = tbl.Get(2)
	assert.ErrorIs(t, err, ErrFilePointerCorrupt)
	assert.Equal(t, KindFilePointerCorrupt, KindOf(err))
}

func TestTable_IndexMismatch(t *testing.T) {
	dir := t.TempDir()
	tbl, err := Open(filepath.Join(dir, "artists.tbl"), artistSchema, WithIndex(filepath.Join(dir, "artists.idx")))
	require.NoError(t, err)
	defer tbl.Close()

	require.NoError(t, tbl.Create(Artist{ID: 1, Name: "Slayer"}))
	require.NoError(t, tbl.Create(Artist{ID: 2, Name: "Kasabian"}))

	// Point id 2 at id 1's row.
	require.NoError(t, tbl.index.Set(2, 0))

	_, err = tbl.Get(2)
	assert.ErrorIs(t, err, ErrIndexMismatch)
	assert.ErrorIs(t, tbl.Verify(), ErrIndexMismatch)
}

func TestTable_IndexOffsetPastEOF(t *testing.T) {
	dir := t.TempDir()
	tbl, err := Open(filepath.Join(dir, "artists.tbl"), artistSchema, WithIndex(filepath.Join(dir, "artists.idx")))
	require.NoError(t, err)
	defer tbl.Close()

	require.NoError(t, tbl.Create(Artist{ID: 1, Name: "Slayer"}))
	require.NoError(t, tbl.index.Set(9, uint64(tbl.Size())+100))

	_, err = tbl.Get(9)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, ErrIndexMismatch)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestTable_DelimiterInPayload(t *testing.T) {
	indexModes(t, func(t *testing.T, open func(...Option) *Table[Artist]) {
		tbl := open()

		err := tbl.Create(Artist{ID: 1, Name: string(rowstore.RowDelimiter[:])})
		assert.ErrorIs(t, err, ErrDelimiterInPayload)
		assert.Equal(t, int64(0), tbl.Size())

		_, err = tbl.Get(1)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestTable_Timestamps(t *testing.T) {
	dir := t.TempDir()
	liked, err := Open(filepath.Join(dir, "liked_songs.tbl"), likedSongSchema)
	require.NoError(t, err)
	defer liked.Close()

	at := time.Date(2024, 3, 1, 12, 30, 0, 123456789, time.UTC)
	require.NoError(t, liked.Create(LikedSong{ID: 1, SongID: 3, UserID: 7, CreatedAt: at}))

	got, err := liked.Get(1)
	require.NoError(t, err)
	assert.True(t, at.Equal(got.CreatedAt))

	rows, err := liked.Select(field.Eq("created_at", field.Timestamp(at)))
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestTable_Closed(t *testing.T) {
	indexModes(t, func(t *testing.T, open func(...Option) *Table[Artist]) {
		tbl := open()
		require.NoError(t, tbl.Close())
		require.NoError(t, tbl.Close())

		_, err := tbl.Get(1)
		assert.ErrorIs(t, err, ErrClosed)
		assert.ErrorIs(t, tbl.Create(Artist{ID: 1}), ErrClosed)
		assert.ErrorIs(t, tbl.Delete(1), ErrClosed)
		require.NoError(t, tbl.Flush())
	})
}

func TestTable_ExportJSON(t *testing.T) {
	indexModes(t, func(t *testing.T, open func(...Option) *Table[Artist]) {
		tbl := open()
		require.NoError(t, tbl.Create(Artist{ID: 1, Name: "Slayer"}))
		require.NoError(t, tbl.Create(Artist{ID: 2, Name: "Kasabian"}))

		var buf bytes.Buffer
		require.NoError(t, tbl.ExportJSON(&buf, codec.StdJSON{}))

		var rows []map[string]any
		for row, err := range codec.ReadLines[map[string]any](&buf, nil) {
			require.NoError(t, err)
			rows = append(rows, row)
		}
		assert.Equal(t, []map[string]any{
			{"id": float64(1), "name": "Slayer"},
			{"id": float64(2), "name": "Kasabian"},
		}, rows)
	})
}

func TestTable_Metrics(t *testing.T) {
	indexModes(t, func(t *testing.T, open func(...Option) *Table[Artist]) {
		mc := &BasicMetricsCollector{}
		tbl := open(WithMetricsCollector(mc))

		require.NoError(t, tbl.Create(Artist{ID: 1, Name: "Slayer"}))
		_ = tbl.Create(Artist{ID: 1, Name: "again"})
		_, _ = tbl.Get(1)
		_, _ = tbl.Get(5)
		_, _ = tbl.Select(nil)
		require.NoError(t, tbl.Delete(1))

		stats := mc.GetStats()
		assert.Equal(t, int64(2), stats.CreateCount)
		assert.Equal(t, int64(1), stats.CreateErrors)
		assert.Equal(t, int64(2), stats.GetCount)
		assert.Equal(t, int64(1), stats.GetMisses)
		assert.Equal(t, int64(1), stats.SelectCount)
		assert.Equal(t, int64(1), stats.SelectRows)
		assert.Equal(t, int64(1), stats.DeleteCount)
	})
}

func TestTable_IndexWriteFailure(t *testing.T) {
	dir := t.TempDir()
	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule("artists.idx", fs.Fault{FailAfterBytes: -1, FailOnTruncate: true})

	tbl, err := Open(filepath.Join(dir, "artists.tbl"), artistSchema,
		WithIndex(filepath.Join(dir, "artists.idx")),
		WithFileSystem(ffs),
	)
	// The rebuild at open dumps the index, which truncates first.
	require.Error(t, err)
	assert.Nil(t, tbl)
	assert.Equal(t, KindIo, KindOf(err))
}

func TestTable_EraseFailureRealignsIndex(t *testing.T) {
	dir := t.TempDir()
	ffs := fs.NewFaultyFS(nil)
	// Three rows are 26+28+26 bytes; rewriting the tail on delete exceeds the limit.
	ffs.AddRule("artists.tbl", fs.Fault{FailAfterBytes: 80})

	tbl, err := Open(filepath.Join(dir, "artists.tbl"), artistSchema,
		WithIndex(filepath.Join(dir, "artists.idx")),
		WithFileSystem(ffs),
	)
	require.NoError(t, err)
	defer tbl.Close()

	for i, name := range []string{"Slayer", "Kasabian", "Pixies"} {
		require.NoError(t, tbl.Create(Artist{ID: int32(i + 1), Name: name}))
	}

	err = tbl.Delete(1)
	require.ErrorIs(t, err, fs.ErrInjected)

	// The rows after the erased span are lost, and the index says so.
	_, err = tbl.Get(2)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrIndexMismatch)
	assert.NoError(t, tbl.Verify())

	n, err := tbl.Len()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestTable_GetWhileIterating(t *testing.T) {
	indexModes(t, func(t *testing.T, open func(...Option) *Table[Artist]) {
		tbl := open()
		for i, name := range []string{"Slayer", "Kasabian", "Pixies"} {
			require.NoError(t, tbl.Create(Artist{ID: int32(i + 1), Name: name}))
		}

		var seen []int32
		for a, err := range tbl.All() {
			require.NoError(t, err)
			seen = append(seen, a.ID)
			if a.ID == 1 {
				got, err := tbl.Get(3)
				require.NoError(t, err)
				assert.Equal(t, "Pixies", got.Name)
			}
		}
		assert.Equal(t, []int32{1, 2, 3}, seen)
	})
}

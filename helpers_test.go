package versebase

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/hupe1980/versebase/schema"
	"github.com/stretchr/testify/require"
)

type Artist struct {
	ID   int32
	Name string
}

type Song struct {
	ID       int32
	Name     string
	ArtistID int32
}

type LikedSong struct {
	ID        int32
	SongID    int32
	UserID    int32
	CreatedAt time.Time
}

var (
	artistSchema = schema.MustDefine("artists",
		schema.Int32("id", func(a *Artist) *int32 { return &a.ID }),
		schema.String("name", func(a *Artist) *string { return &a.Name }),
	)
	songSchema = schema.MustDefine("songs",
		schema.Int32("id", func(s *Song) *int32 { return &s.ID }),
		schema.String("name", func(s *Song) *string { return &s.Name }),
		schema.Int32("artist_id", func(s *Song) *int32 { return &s.ArtistID }),
	)
	likedSongSchema = schema.MustDefine("liked_songs",
		schema.Int32("id", func(l *LikedSong) *int32 { return &l.ID }),
		schema.Int32("song_id", func(l *LikedSong) *int32 { return &l.SongID }),
		schema.Int32("user_id", func(l *LikedSong) *int32 { return &l.UserID }),
		schema.Timestamp("created_at", func(l *LikedSong) *time.Time { return &l.CreatedAt }),
	)
)

// indexModes runs fn once against an indexed table and once against a
// scan-only table.
func indexModes(t *testing.T, fn func(t *testing.T, open func(opts ...Option) *Table[Artist])) {
	t.Helper()
	for _, indexed := range []bool{true, false} {
		name := "scan"
		if indexed {
			name = "indexed"
		}
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			fn(t, func(opts ...Option) *Table[Artist] {
				t.Helper()
				if indexed {
					opts = append([]Option{WithIndex(filepath.Join(dir, "artists.idx"))}, opts...)
				}
				tbl, err := Open(filepath.Join(dir, "artists.tbl"), artistSchema, opts...)
				require.NoError(t, err)
				t.Cleanup(func() { _ = tbl.Close() })
				return tbl
			})
		})
	}
}

func bytesReader(b []byte) *bytes.Reader { return bytes.NewReader(b) }

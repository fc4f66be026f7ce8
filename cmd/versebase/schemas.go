package main

import (
	"time"

	"github.com/hupe1980/versebase"
	"github.com/hupe1980/versebase/schema"
)

// User is a listener account.
type User struct {
	ID        int32
	Email     string
	Password  string
	Salt      string
	Language  string
	LastLogin time.Time
}

// Artist performs songs.
type Artist struct {
	ID   int32
	Name string
}

// Song belongs to one artist.
type Song struct {
	ID       int32
	Name     string
	ArtistID int32
}

// Artist resolves the song's artist.
func (s Song) Artist(artists *versebase.Table[Artist]) (Artist, error) {
	return artists.Get(s.ArtistID)
}

// Lyric is the text of a song in one language.
type Lyric struct {
	ID       int32
	Text     string
	Language string
	SongID   int32
}

// LikedSong records that a user liked a song.
type LikedSong struct {
	ID        int32
	SongID    int32
	UserID    int32
	CreatedAt time.Time
}

var (
	userSchema = schema.MustDefine("users",
		schema.Int32("id", func(u *User) *int32 { return &u.ID }),
		schema.String("email", func(u *User) *string { return &u.Email }),
		schema.String("password", func(u *User) *string { return &u.Password }),
		schema.String("salt", func(u *User) *string { return &u.Salt }),
		schema.String("language", func(u *User) *string { return &u.Language }),
		schema.Timestamp("last_login", func(u *User) *time.Time { return &u.LastLogin }),
	)
	artistSchema = schema.MustDefine("artists",
		schema.Int32("id", func(a *Artist) *int32 { return &a.ID }),
		schema.String("name", func(a *Artist) *string { return &a.Name }),
	)
	songSchema = schema.MustDefine("songs",
		schema.Int32("id", func(s *Song) *int32 { return &s.ID }),
		schema.String("name", func(s *Song) *string { return &s.Name }),
		schema.Int32("artist_id", func(s *Song) *int32 { return &s.ArtistID }),
	)
	lyricSchema = schema.MustDefine("lyrics",
		schema.Int32("id", func(l *Lyric) *int32 { return &l.ID }),
		schema.String("text", func(l *Lyric) *string { return &l.Text }),
		schema.String("language", func(l *Lyric) *string { return &l.Language }),
		schema.Int32("song_id", func(l *Lyric) *int32 { return &l.SongID }),
	)
	likedSongSchema = schema.MustDefine("liked_songs",
		schema.Int32("id", func(l *LikedSong) *int32 { return &l.ID }),
		schema.Int32("song_id", func(l *LikedSong) *int32 { return &l.SongID }),
		schema.Int32("user_id", func(l *LikedSong) *int32 { return &l.UserID }),
		schema.Timestamp("created_at", func(l *LikedSong) *time.Time { return &l.CreatedAt }),
	)
)

// Package versebase is an embedded row store that keeps schema-typed records
// in one flat file per table, optionally accelerated by a persisted primary
// key index.
//
// # Quick Start
//
//	type Artist struct {
//	    ID   int32
//	    Name string
//	}
//
//	artists := schema.MustDefine("artists",
//	    schema.Int32("id", func(a *Artist) *int32 { return &a.ID }),
//	    schema.String("name", func(a *Artist) *string { return &a.Name }),
//	)
//
//	tbl, err := versebase.Open("artists.tbl", artists, versebase.WithIndex("artists.idx"))
//	if err != nil {
//	    return err
//	}
//	defer tbl.Close()
//
//	_ = tbl.Create(Artist{ID: 1, Name: "Nirvana"})
//	a, err := tbl.Get(1)
//	rows, err := tbl.Select(field.Eq("name", field.String("Nirvana")))
//
// # File Format
//
// A row file holds rows back to back. Fields of a row are joined by the
// 8-byte field delimiter FF 00 FF 00 FF 00 FF 00 and every row ends with the
// row delimiter 00 7F 00 FF 00 7F 00 FF. There is no header and no length
// prefix; integers are native-endian. A row whose encoded fields would
// contain a delimiter is rejected by Create with ErrDelimiterInPayload.
//
// The index file is a sequence of 12-byte records: a native-endian int32 id
// followed by the uint64 offset of the row's first byte. It is a hint only:
// Open rebuilds it from the row file, and so does every Delete, because
// erasing a row shifts the offsets of all rows after it.
//
// # Consistency
//
// Every mutating step syncs before returning, but a Create (row write, then
// index write) or an Update (Delete, then Create) is not atomic. A crash
// between steps leaves at most a stale index, which the next Open repairs.
//
// A Table is single-threaded. Database lets several tables share a directory
// and adds concurrent Verify, and Backup/Restore through a blobstore.Store.
//
// # Errors
//
// Failures are returned as *Error carrying the operation, table and Kind.
// Use errors.Is with ErrNotFound, ErrAlreadyExists or ErrFilePointerCorrupt,
// or KindOf to classify any error.
package versebase

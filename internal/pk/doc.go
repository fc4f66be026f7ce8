// Package pk implements the persisted primary-key index of a table.
//
// The index maps a row id (int32) to the byte offset at which the row starts in
// the row file. It lives in memory as a sorted map and is mirrored to a
// dedicated file of fixed 12-byte records:
//
//	[id: 4 bytes, native-endian int32][offset: 8 bytes, native-endian uint64]
//
// Every mutation rewrites the whole file in ascending id order, so the file is
// always a complete snapshot; the exposure to a crash is one truncate+rewrite.
// Readers rebuild the map from all records and do not rely on their order.
//
// Ids are kept ordered in a Roaring bitmap. Ids are sign-flipped into uint32
// space so that unsigned bitmap order equals signed id order.
//
// An Index is not safe for concurrent use.
package pk

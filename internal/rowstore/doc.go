// Package rowstore implements the flat-file row engine of a table.
//
// A row file is a plain sequence of rows with no header. Each row is its
// fields' bytes joined by an 8-byte field delimiter and terminated by an
// 8-byte row delimiter:
//
//	field0 FD field1 FD ... fieldN RD
//
//	FD = FF 00 FF 00 FF 00 FF 00
//	RD = 00 7F 00 FF 00 7F 00 FF
//
// There are no length prefixes and no escaping: boundaries exist only where a
// delimiter is found by scanning. WriteRow refuses payloads that would be
// split differently on the way back in.
//
// Offsets never leave this package except as [Span] values, which the caller
// hands back to [Store.Erase] or stores as opaque positions for [Store.Seek].
//
// A Store is not safe for concurrent use.
package rowstore

// Package archive packs a table's row file into a compressed, checksummed
// blob for backup, and unpacks it again.
//
// An archive is a fixed 20-byte little-endian header followed by the body:
//
//	offset size field
//	0      4    magic "VBAR"
//	4      1    version (1)
//	5      1    compression
//	6      2    reserved, zero
//	8      4    CRC32-Castagnoli of the raw row file
//	12     8    raw length in bytes
//	20     ...  body, compressed as announced
//
// The checksum covers the decompressed bytes, so a restore detects both a
// damaged body and a wrong codec.
package archive

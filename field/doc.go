// Package field implements the scalar field types of a versebase row.
//
// Three kinds are supported:
//
//   - [KindInt32]: 4 bytes, native-endian two's complement
//   - [KindString]: raw UTF-8 bytes
//   - [KindTimestamp]: 8 bytes, native-endian signed nanoseconds since the Unix epoch
//
// The codec functions never fail. Malformed input decodes to a neutral value
// instead: invalid UTF-8 becomes [InvalidString], and fixed-width input of the
// wrong length becomes zero. Callers that need strict validation must check
// lengths themselves.
//
// [Value] is the tagged union used wherever a field is handled independently of
// the static row type, most notably by [Filter].
package field

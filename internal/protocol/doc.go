// Package protocol owns the VICI wire contract and parsing primitives.
//
// Ownership boundary:
// - frame primitives (length prefix, limits)
// - packet envelope (type tag, name, payload)
// - message document codec (sections, lists, key/values)
// - session exchanges built on the above
package protocol

// Package journal records the raw stream exactly as received, in CRC-framed
// segment files, so that a session can be replayed into a fresh handler for
// debugging and cross-validation. It is not used to recover book state.
package journal

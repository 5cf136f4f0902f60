// Package persist implements the snapshot codec (spec §4.7): the
// legacy version-0 typed binary encoding, the current version-3
// wire-JSON encoding, in-place defragmentation, and a bbolt-backed
// key-space store for the standalone harness.
package persist

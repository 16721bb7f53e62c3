// Package sync is the sync core: the slot stream, ancestor finder, rollback
// executor, slot synchronizer and the outer sync loop that drives them.
package sync

import "errors"

// ReorgedDuringGather is returned by the slot synchronizer when the live
// state root at a slot changes between the first and second read during a
// single gather. The outer loop treats this as a normal trigger for the
// rollback path, not a fatal error.
type ReorgedDuringGather struct {
	Slot string
}

func (e *ReorgedDuringGather) Error() string {
	return "reorged during gather at slot " + e.Slot
}

// MissingParent means a fetched block references a parent_root unknown to
// the store. It indicates a data-model violation and is always fatal.
type MissingParent struct {
	ParentRoot string
}

func (e *MissingParent) Error() string {
	return "block references unknown parent " + e.ParentRoot
}

// ErrAncestorNotFound means the ancestor finder walked back to slot 0
// without finding agreement between the stored and live state roots. Fatal:
// the chain is considered unrecoverable without manual intervention.
var ErrAncestorNotFound = errors.New("ancestor finder reached slot 0 without a match")

// ErrLiveStateRootMissing means the beacon node has no opinion about a slot
// we expected it to (e.g. a slot from our own stream that somehow isn't
// known to the node anymore). Always fatal.
var ErrLiveStateRootMissing = errors.New("live state root missing for slot")

// errBlockNotFound means the node returned a header but no block for its
// root: a hard inconsistency on the node's side, always fatal.
var errBlockNotFound = errors.New("beacon node has a header but no matching block")

package record

import "github.com/ether/revlog/lib/patch"

// ChangeSet is one append-only history entry. Applying Operations to
// the snapshot at Version-1 yields the snapshot at Version, version 1
// always builds on the empty document.
type ChangeSet struct {
	ParentId   string
	Version    int
	Operations patch.Patch
	Metadata   any
	CreatedAt  *int64
}

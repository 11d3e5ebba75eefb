package model

import (
	"io/fs"
	"time"
)

// Backup is an immutable snapshot of a file taken before the first
// mutating fix of a pass. It exists purely for rollback and is never
// itself mutated.
type Backup struct {
	ID        string
	Origin    Path
	Location  Path
	Mode      fs.FileMode
	Checksum  uint64 // xxhash of the snapshot contents
	CreatedAt time.Time
}

package database

import (
	"fmt"
	"time"
)

// Filter selects stored records. Start and End are inclusive calendar days;
// undated records are matched as if they carried the repository default
// date. An empty Regions set matches nothing. Markets are OR-ed; an empty
// set applies no market restriction.
type Filter struct {
	Regions []string
	Start   time.Time
	End     time.Time
	Markets []string
}

// StorageError reports a failed store operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

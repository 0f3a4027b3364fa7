package events

import (
	"github.com/ether/revlog/lib/models/record"
)

// ChangeSetAppendedContext is the context for the changeSetAppended hook.
// Record carries the state the save produced, ChangeSet the delta that was
// written to the log.
type ChangeSetAppendedContext struct {
	Collection string
	LogId      string
	Record     *record.Record
	ChangeSet  *record.ChangeSet
}

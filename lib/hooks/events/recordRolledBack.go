package events

// RecordRolledBackContext is the context for the recordRolledBack hook.
// NewVersion is nil and Deleted is true when rolling back the first version
// removed the record entirely.
type RecordRolledBackContext struct {
	Collection     string
	LogId          string
	RecordId       string
	RemovedVersion int
	NewVersion     *int
	Deleted        bool
}

package migration

// Database reads records out of a legacy store in key order.
type Database interface {
	// GetNextRecords returns the records found in up to limit rows whose key
	// sorts after lastKey, together with the key of the last row scanned.
	// An empty lastKey starts from the beginning, an empty returned key means
	// the store is exhausted. The two can differ in length because rows whose
	// key is not record-shaped are skipped.
	GetNextRecords(lastKey string, limit int) ([]LegacyRecord, string, error)
	Close() error
}

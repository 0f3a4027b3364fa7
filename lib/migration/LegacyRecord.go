package migration

import "github.com/ether/revlog/lib/models/record"

// LegacyRecord is one row of a pre-versioning store. The key carries the
// identity, the value is the raw document.
type LegacyRecord struct {
	Collection string
	RecordId   string
	Doc        record.Document
}

package record

// Record is the live row of a versioned collection. Version and
// VersionDate are nil for rows written before versioning was enabled,
// the save path backfills them on the next write.
type Record struct {
	Id          string
	Version     *int
	VersionDate *int64
	Doc         Document
}

// CurrentVersion returns the record's version or 0 when the record has
// never been versioned.
func (r *Record) CurrentVersion() int {
	if r.Version == nil {
		return 0
	}
	return *r.Version
}

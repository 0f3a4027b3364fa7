package exception

import "fmt"

// InvalidVersionError is returned when a requested version lies outside
// the range a record actually has, i.e. below 1 or above its current
// version.
type InvalidVersionError struct {
	*AppError
	Requested int
	Current   int
}

func NewInvalidVersionError(requested int, current int) *InvalidVersionError {
	return &InvalidVersionError{
		AppError: &AppError{
			Code:    "INVALID_VERSION",
			Message: fmt.Sprintf("version %d is out of range, record is at version %d", requested, current),
		},
		Requested: requested,
		Current:   current,
	}
}

// VersionConflictError signals that another writer appended the same
// version first. The caller owns the retry decision, the log never
// retries on its own.
type VersionConflictError struct {
	*AppError
	RecordId string
	Version  int
}

func NewVersionConflictError(recordId string, version int) *VersionConflictError {
	return &VersionConflictError{
		AppError: &AppError{
			Code:    "VERSION_CONFLICT",
			Message: fmt.Sprintf("version %d of record '%s' was already written by someone else", version, recordId),
		},
		RecordId: recordId,
		Version:  version,
	}
}

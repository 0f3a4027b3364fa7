package exception

import "fmt"

type RecordNotFoundError struct {
	*AppError
	RecordId string
}

func NewRecordNotFoundError(recordId string) *RecordNotFoundError {
	return &RecordNotFoundError{
		AppError: &AppError{
			Code:    "RECORD_NOT_FOUND",
			Message: fmt.Sprintf("record with id '%s' does not exist", recordId),
		},
		RecordId: recordId,
	}
}

// NoPreviousVersionError is returned by rollback when there is nothing
// older to fall back to.
type NoPreviousVersionError struct {
	*AppError
	RecordId string
}

func NewNoPreviousVersionError(recordId string) *NoPreviousVersionError {
	return &NoPreviousVersionError{
		AppError: &AppError{
			Code:    "NO_PREVIOUS_VERSION",
			Message: fmt.Sprintf("record with id '%s' has no previous version", recordId),
		},
		RecordId: recordId,
	}
}

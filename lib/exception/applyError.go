package exception

import "fmt"

// ApplyError is returned when a patch operation cannot be applied to a
// document, for example a move whose source path does not exist.
type ApplyError struct {
	*AppError
	Kind string
	Path string
}

func NewApplyError(kind string, path string, reason string) *ApplyError {
	return &ApplyError{
		AppError: &AppError{
			Code:    "PATCH_APPLY_FAILED",
			Message: fmt.Sprintf("cannot apply %s at '%s': %s", kind, path, reason),
		},
		Kind: kind,
		Path: path,
	}
}

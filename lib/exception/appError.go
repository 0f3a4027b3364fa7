package exception

// AppError is the base for all typed errors. Concrete errors embed a
// pointer to it so errors.As can match on the concrete type while the
// Code stays machine readable.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

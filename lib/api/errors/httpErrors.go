package errors

var InvalidVersionError = Error{
	Message: "Invalid version number",
	Error:   400,
}

var InvalidRequestError = Error{
	Message: "Invalid request",
	Error:   400,
}

func NewInvalidParamError(paramName string) Error {
	return Error{
		Message: "Invalid parameter: " + paramName,
		Error:   400,
	}
}

func NewMissingParamError(paramName string) Error {
	return Error{
		Message: "Missing parameter: " + paramName,
		Error:   400,
	}
}

var RecordNotFoundError = Error{
	Message: "Record not found",
	Error:   404,
}

var VersionConflictError = Error{
	Message: "Version was already written by another writer",
	Error:   409,
}

var NoPreviousVersionError = Error{
	Message: "Record has no previous version",
	Error:   409,
}

var InternalServerError = Error{
	Message: "Internal server error",
	Error:   500,
}

var ValidationError = Error{
	Message: "Validation failed",
	Error:   422,
}

package result

// Machine-readable codes carried by warning and error results.
const (
	CodeAlreadyCreated       = "ALREADY_CREATED"
	CodeNotCreated           = "NOT_CREATED"
	CodeObjectDeleted        = "OBJECT_DELETED"
	CodeNotFound             = "NOT_FOUND"
	CodeStorage              = "STORAGE_ERROR"
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeInvalidPassword      = "INVALID_PASSWORD"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeConfirmationRequired = "CONFIRMATION_REQUIRED"
)

package services

import "errors"

type ServiceError struct {
	Status  int
	Message string
}

func (e ServiceError) Error() string {
	return e.Message
}

func ErrNotFound(msg string) error {
	return ServiceError{Status: 404, Message: msg}
}

func ErrBadRequest(msg string) error {
	return ServiceError{Status: 400, Message: msg}
}

func ErrForbidden(msg string) error {
	return ServiceError{Status: 403, Message: msg}
}

func ErrUnauthorized(msg string) error {
	return ServiceError{Status: 401, Message: msg}
}

// FieldIssue points at a single invalid field in a request payload.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError rejects a payload with an itemized issue list. A batch
// request that carries one invalid record fails as a whole with the issues
// for every offending record.
type ValidationError struct {
	Message string
	Issues  []FieldIssue
}

func (e ValidationError) Error() string {
	return e.Message
}

func NewValidationError(msg string, issues ...FieldIssue) error {
	return ValidationError{Message: msg, Issues: issues}
}

func AsValidationError(err error) (ValidationError, bool) {
	var verr ValidationError
	ok := errors.As(err, &verr)
	return verr, ok
}


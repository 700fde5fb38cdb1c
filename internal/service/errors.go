package service

import "errors"

// Failure kinds. Handlers translate these to HTTP status codes; the message
// carried by the concrete error becomes the response body.
var (
	ErrValidation = errors.New("validation failed")
	ErrAuth       = errors.New("authentication failed")
	ErrNotFound   = errors.New("not found")
)

type apiError struct {
	kind error
	msg  string
}

func (e *apiError) Error() string { return e.msg }

func (e *apiError) Unwrap() error { return e.kind }

func validationErr(msg string) error {
	return &apiError{kind: ErrValidation, msg: msg}
}

func authErr(msg string) error {
	return &apiError{kind: ErrAuth, msg: msg}
}

func notFoundErr(msg string) error {
	return &apiError{kind: ErrNotFound, msg: msg}
}

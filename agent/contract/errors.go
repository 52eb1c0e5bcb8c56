package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrValidation      = errors.New("validation failed")
	ErrStorage         = errors.New("storage operation failed")
	ErrNotFound        = errors.New("record not found")
)

package collection

import "errors"

var (
	ErrAlreadyCounted   = errors.New("account already counted")
	ErrAccountNotFound  = errors.New("account not found")
	ErrDuplicateAccount = errors.New("account code already exists")
	ErrInvalidRecord    = errors.New("invalid collection record")
	ErrInvalidAccount   = errors.New("invalid account opening")
)

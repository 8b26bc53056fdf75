package core

import "errors"

var (
	ErrBranchNotFound         = errors.New("branch not found")
	ErrEmployeeNotFound       = errors.New("employee not found")
	ErrCommissionTypeNotFound = errors.New("commission type not found")
	ErrDuplicateCode          = errors.New("code already exists")
	ErrInvalidTerm            = errors.New("term must be positive")
	ErrInvalidRate            = errors.New("rate must not be negative")
)

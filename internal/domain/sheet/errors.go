package sheet

import "errors"

var (
	ErrSheetNotFound  = errors.New("salary sheet not found")
	ErrEntryNotFound  = errors.New("salary entry not found")
	ErrSheetFinalized = errors.New("salary sheet is finalized")
	ErrNoEmployees    = errors.New("branch has no active employees")
)

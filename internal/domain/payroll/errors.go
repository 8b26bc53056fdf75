package payroll

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMonth  = errors.New("month must be in YYYY-MM format")
	ErrUnknownField  = errors.New("unknown salary entry field")
	ErrFieldReadOnly = errors.New("salary entry field is derived and cannot be edited")
	ErrInvalidTerm   = errors.New("term must be a positive number of years")
)

// Scan rejection sentinels. A *Rejection matches exactly one of them with errors.Is.
var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountNotOwned      = errors.New("account belongs to another employee")
	ErrAccountOtherBranch   = errors.New("account belongs to another branch")
	ErrAccountDuplicateScan = errors.New("account already scanned in this sheet")
	ErrAccountUsed          = errors.New("account already used")
	ErrAccountBelowFloor    = errors.New("account collection below bonus floor")
	ErrAccountExpired       = errors.New("account bonus window expired")
	ErrAccountOrdering      = errors.New("sheet month precedes account opening")
)

type RejectReason string

const (
	ReasonNotFound          RejectReason = "not_found"
	ReasonOwnershipMismatch RejectReason = "ownership_mismatch"
	ReasonBranchMismatch    RejectReason = "branch_mismatch"
	ReasonDuplicateInSheet  RejectReason = "duplicate_in_sheet"
	ReasonAlreadyUsed       RejectReason = "already_used"
	ReasonBelowFloor        RejectReason = "below_amount_floor"
	ReasonWindowExpired     RejectReason = "window_expired"
	ReasonOrderingError     RejectReason = "ordering_error"
)

var reasonErrors = map[RejectReason]error{
	ReasonNotFound:          ErrAccountNotFound,
	ReasonOwnershipMismatch: ErrAccountNotOwned,
	ReasonBranchMismatch:    ErrAccountOtherBranch,
	ReasonDuplicateInSheet:  ErrAccountDuplicateScan,
	ReasonAlreadyUsed:       ErrAccountUsed,
	ReasonBelowFloor:        ErrAccountBelowFloor,
	ReasonWindowExpired:     ErrAccountExpired,
	ReasonOrderingError:     ErrAccountOrdering,
}

// Rejection explains why an account code cannot be credited to a sheet.
type Rejection struct {
	Reason       RejectReason `json:"reason"`
	AccountCode  string       `json:"accountCode"`
	CountedMonth string       `json:"countedMonth,omitempty"`
}

func (r *Rejection) Error() string {
	base := reasonErrors[r.Reason]
	if base == nil {
		return fmt.Sprintf("account %s rejected: %s", r.AccountCode, r.Reason)
	}
	if r.Reason == ReasonAlreadyUsed && r.CountedMonth != "" {
		return fmt.Sprintf("%s in %s", base.Error(), r.CountedMonth)
	}
	return base.Error()
}

func (r *Rejection) Is(target error) bool {
	return reasonErrors[r.Reason] == target
}

func reject(reason RejectReason, code string) *Rejection {
	return &Rejection{Reason: reason, AccountCode: code}
}

// AsRejection reports whether err carries a scan rejection.
func AsRejection(err error) (*Rejection, bool) {
	var rejection *Rejection
	if errors.As(err, &rejection) {
		return rejection, true
	}
	return nil, false
}

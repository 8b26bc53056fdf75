package shared

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"fieldpay/internal/domain/auth"
	"fieldpay/internal/domain/collection"
	"fieldpay/internal/domain/core"
	"fieldpay/internal/domain/payroll"
	"fieldpay/internal/domain/sheet"
	"fieldpay/internal/platform/jobs"
	"fieldpay/internal/transport/http/api"
)

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{core.ErrBranchNotFound, http.StatusNotFound, "branch_not_found"},
	{core.ErrEmployeeNotFound, http.StatusNotFound, "employee_not_found"},
	{core.ErrCommissionTypeNotFound, http.StatusNotFound, "commission_type_not_found"},
	{sheet.ErrSheetNotFound, http.StatusNotFound, "sheet_not_found"},
	{sheet.ErrEntryNotFound, http.StatusNotFound, "entry_not_found"},
	{collection.ErrAccountNotFound, http.StatusNotFound, "account_not_found"},
	{jobs.ErrRunNotFound, http.StatusNotFound, "job_run_not_found"},

	{sheet.ErrSheetFinalized, http.StatusConflict, "sheet_finalized"},
	{collection.ErrAlreadyCounted, http.StatusConflict, "account_already_counted"},
	{collection.ErrDuplicateAccount, http.StatusConflict, "account_exists"},
	{core.ErrDuplicateCode, http.StatusConflict, "code_exists"},
	{auth.ErrEmailTaken, http.StatusConflict, "email_exists"},

	{payroll.ErrUnknownField, http.StatusBadRequest, "unknown_field"},
	{payroll.ErrFieldReadOnly, http.StatusBadRequest, "field_read_only"},
	{payroll.ErrInvalidMonth, http.StatusBadRequest, "invalid_month"},
	{core.ErrInvalidTerm, http.StatusBadRequest, "invalid_term"},
	{payroll.ErrInvalidTerm, http.StatusBadRequest, "invalid_term"},
	{core.ErrInvalidRate, http.StatusBadRequest, "invalid_rate"},
	{collection.ErrInvalidRecord, http.StatusBadRequest, "invalid_record"},
	{collection.ErrInvalidAccount, http.StatusBadRequest, "invalid_account"},
	{auth.ErrInvalidRole, http.StatusBadRequest, "invalid_role"},
	{sheet.ErrNoEmployees, http.StatusUnprocessableEntity, "no_active_employees"},
	{jobs.ErrQueueFull, http.StatusServiceUnavailable, "job_queue_full"},

	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
}

// WriteError maps a domain error onto the response envelope. Unknown errors are logged
// and reported as internal without leaking their text.
func WriteError(w http.ResponseWriter, err error, requestID string) {
	if rejection, ok := payroll.AsRejection(err); ok {
		details := map[string]any{"reason": rejection.Reason, "accountCode": rejection.AccountCode}
		if rejection.CountedMonth != "" {
			details["countedMonth"] = rejection.CountedMonth
		}
		api.FailWithDetails(w, http.StatusUnprocessableEntity, "account_rejected", rejection.Error(), details, requestID)
		return
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			api.Fail(w, m.status, m.code, err.Error(), requestID)
			return
		}
	}
	zap.L().Error("request failed", zap.String("request_id", requestID), zap.Error(err))
	api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestID)
}

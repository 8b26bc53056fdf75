package collectionhandler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fieldpay/internal/domain/audit"
	"fieldpay/internal/domain/auth"
	"fieldpay/internal/domain/payroll"
	"fieldpay/internal/transport/http/api"
	"fieldpay/internal/transport/http/middleware"
	"fieldpay/internal/transport/http/shared"
)

const maxImportRecords = 5000

type Service interface {
	RecordCollection(ctx context.Context, r payroll.CollectionRecord) (payroll.CollectionRecord, error)
	BulkImport(ctx context.Context, records []payroll.CollectionRecord) ([]payroll.CollectionRecord, error)
	ListBranchRecords(ctx context.Context, branchID string, month payroll.Month) ([]payroll.CollectionRecord, error)
	ListEmployeeRecords(ctx context.Context, employeeID string, month payroll.Month) ([]payroll.CollectionRecord, error)
	OpenAccount(ctx context.Context, a payroll.AccountOpening) (payroll.AccountOpening, error)
	ListAccounts(ctx context.Context, branchID string) ([]payroll.AccountOpening, error)
}

type Handler struct {
	Service Service
	Audit   shared.Auditor
}

func NewHandler(service Service, auditor shared.Auditor) *Handler {
	if auditor == nil {
		auditor = shared.NopAuditor{}
	}
	return &Handler{Service: service, Audit: auditor}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/collections", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermCollectionsRead)).Get("/", h.handleListRecords)
		r.With(middleware.RequirePermission(auth.PermCollectionsWrite)).Post("/", h.handleRecord)
		r.With(middleware.RequirePermission(auth.PermCollectionsWrite)).Post("/import", h.handleImport)
	})
	r.Route("/accounts", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermCollectionsRead)).Get("/", h.handleListAccounts)
		r.With(middleware.RequirePermission(auth.PermCollectionsWrite)).Post("/", h.handleOpenAccount)
	})
}

type recordRequest struct {
	EmployeeID string     `json:"employeeId" validate:"required"`
	BranchID   string     `json:"branchId" validate:"required"`
	CenterCode string     `json:"centerCode" validate:"required,max=32"`
	Amount     float64    `json:"amount" validate:"gte=0"`
	LoanAmount float64    `json:"loanAmount" validate:"gte=0"`
	CreatedAt  *time.Time `json:"createdAt"`
}

func (p recordRequest) record() payroll.CollectionRecord {
	rec := payroll.CollectionRecord{
		EmployeeID: p.EmployeeID,
		BranchID:   p.BranchID,
		CenterCode: p.CenterCode,
		Amount:     p.Amount,
		LoanAmount: p.LoanAmount,
	}
	if p.CreatedAt != nil {
		rec.CreatedAt = *p.CreatedAt
	}
	return rec
}

type importRequest struct {
	Records []recordRequest `json:"records" validate:"required,min=1,dive"`
}

type accountRequest struct {
	AccountCode      string  `json:"accountCode" validate:"required,max=64"`
	EmployeeID       string  `json:"employeeId" validate:"required"`
	BranchID         string  `json:"branchId" validate:"required"`
	Term             float64 `json:"term" validate:"gt=0"`
	CollectionAmount float64 `json:"collectionAmount" validate:"gte=0"`
	OpeningDate      string  `json:"openingDate" validate:"required,isodate"`
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload recordRequest
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	if !middleware.RequireBranch(w, r, payload.BranchID) {
		return
	}
	rec, err := h.Service.RecordCollection(r.Context(), payload.record())
	if err != nil {
		shared.WriteError(w, err, reqID)
		return
	}
	h.Audit.Log(r.Context(), middleware.AuditEntry(r, audit.ActionCreate, "collection", rec.ID, nil, rec))
	api.Created(w, rec, reqID)
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload importRequest
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	if len(payload.Records) > maxImportRecords {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "records", Reason: "too many records"}})
		return
	}
	records := make([]payroll.CollectionRecord, 0, len(payload.Records))
	for _, p := range payload.Records {
		if !middleware.RequireBranch(w, r, p.BranchID) {
			return
		}
		records = append(records, p.record())
	}
	saved, err := h.Service.BulkImport(r.Context(), records)
	if err != nil {
		shared.WriteError(w, err, reqID)
		return
	}
	h.Audit.Log(r.Context(), middleware.AuditEntry(r, audit.ActionCreate, "collection_import", "", nil, map[string]int{"records": len(saved)}))
	api.Created(w, map[string]any{"imported": len(saved), "records": saved}, reqID)
}

// handleListRecords lists a branch month, or one employee's month when employeeId is set.
func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	month, err := shared.QueryMonth(r)
	if err != nil {
		shared.WriteError(w, err, reqID)
		return
	}
	branchID := r.URL.Query().Get("branchId")
	if !middleware.RequireBranch(w, r, branchID) {
		return
	}
	var records []payroll.CollectionRecord
	if employeeID := r.URL.Query().Get("employeeId"); employeeID != "" {
		all, err := h.Service.ListEmployeeRecords(r.Context(), employeeID, month)
		if err != nil {
			shared.WriteError(w, err, reqID)
			return
		}
		for _, rec := range all {
			if rec.BranchID == branchID {
				records = append(records, rec)
			}
		}
	} else {
		records, err = h.Service.ListBranchRecords(r.Context(), branchID, month)
		if err != nil {
			shared.WriteError(w, err, reqID)
			return
		}
	}
	if records == nil {
		records = []payroll.CollectionRecord{}
	}
	api.Success(w, records, reqID)
}

func (h *Handler) handleOpenAccount(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload accountRequest
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	if !middleware.RequireBranch(w, r, payload.BranchID) {
		return
	}
	account, err := h.Service.OpenAccount(r.Context(), payroll.AccountOpening{
		AccountCode:      payload.AccountCode,
		EmployeeID:       payload.EmployeeID,
		BranchID:         payload.BranchID,
		Term:             payroll.Term(payload.Term),
		CollectionAmount: payload.CollectionAmount,
		OpeningDate:      payload.OpeningDate,
	})
	if err != nil {
		shared.WriteError(w, err, reqID)
		return
	}
	h.Audit.Log(r.Context(), middleware.AuditEntry(r, audit.ActionCreate, "account", account.ID, nil, account))
	api.Created(w, account, reqID)
}

func (h *Handler) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	branchID := r.URL.Query().Get("branchId")
	if !middleware.RequireBranch(w, r, branchID) {
		return
	}
	accounts, err := h.Service.ListAccounts(r.Context(), branchID)
	if err != nil {
		shared.WriteError(w, err, reqID)
		return
	}
	api.Success(w, accounts, reqID)
}

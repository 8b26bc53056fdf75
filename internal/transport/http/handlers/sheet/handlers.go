package sheethandler

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"fieldpay/internal/domain/audit"
	"fieldpay/internal/domain/auth"
	"fieldpay/internal/domain/payroll"
	"fieldpay/internal/domain/sheet"
	"fieldpay/internal/platform/jobs"
	"fieldpay/internal/transport/http/api"
	"fieldpay/internal/transport/http/middleware"
	"fieldpay/internal/transport/http/shared"
)

type Service interface {
	GenerateSheet(ctx context.Context, branchID string, month payroll.Month) (sheet.Detail, error)
	GetSheet(ctx context.Context, sheetID string) (sheet.Detail, error)
	ListSheets(ctx context.Context, branchID string) ([]sheet.Sheet, error)
	EntrySheet(ctx context.Context, entryID string) (sheet.Sheet, error)
	UpdateEntry(ctx context.Context, entryID, field, raw string) (payroll.SalaryEntry, error)
	RefreshCollections(ctx context.Context, entryID string) (payroll.SalaryEntry, error)
	ScanAccount(ctx context.Context, entryID, code string) (sheet.ScanResult, error)
	FinalizeSheet(ctx context.Context, sheetID string) (sheet.Detail, error)
	ExportCSV(ctx context.Context, sheetID string, w io.Writer) (sheet.Sheet, error)
	ExportXLSX(ctx context.Context, sheetID string, w io.Writer) (sheet.Sheet, error)
	ExportPDF(ctx context.Context, sheetID string, w io.Writer) (sheet.Sheet, error)
}

type Enqueuer interface {
	Enqueue(jobType, scope string, run jobs.Func) error
}

type Handler struct {
	Service  Service
	Jobs     Enqueuer
	Branches jobs.BranchLister
	Audit    shared.Auditor
}

func NewHandler(service Service, queue Enqueuer, branches jobs.BranchLister, auditor shared.Auditor) *Handler {
	if auditor == nil {
		auditor = shared.NopAuditor{}
	}
	return &Handler{Service: service, Jobs: queue, Branches: branches, Audit: auditor}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sheets", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermSheetsRead)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermSheetsWrite)).Post("/", h.handleGenerate)
		r.With(middleware.RequirePermission(auth.PermSheetsRun)).Post("/generate-all", h.handleGenerateAll)
		r.Route("/{sheetID}", func(r chi.Router) {
			r.With(middleware.RequirePermission(auth.PermSheetsRead)).Get("/", h.handleGet)
			r.With(middleware.RequirePermission(auth.PermSheetsRead)).Get("/export", h.handleExport)
			r.With(middleware.RequirePermission(auth.PermSheetsFinalize)).Post("/finalize", h.handleFinalize)
		})
	})
	r.Route("/entries/{entryID}", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermSheetsWrite)).Patch("/", h.handleUpdateEntry)
		r.With(middleware.RequirePermission(auth.PermSheetsWrite)).Post("/refresh", h.handleRefresh)
		r.With(middleware.RequirePermission(auth.PermSheetsWrite)).Post("/scan", h.handleScan)
	})
}

type generateRequest struct {
	BranchID string `json:"branchId" validate:"required"`
	Month    string `json:"month" validate:"required,month"`
}

type generateAllRequest struct {
	Month string `json:"month" validate:"required,month"`
}

// updateEntryRequest carries the raw form value; numeric coercion happens in the engine.
type updateEntryRequest struct {
	Field string `json:"field" validate:"required,max=64"`
	Value string `json:"value"`
}

type scanRequest struct {
	AccountCode string `json:"accountCode" validate:"required,max=64"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	branchID := r.URL.Query().Get("branchId")
	if !middleware.RequireBranch(w, r, branchID) {
		return
	}
	sheets, err := h.Service.ListSheets(r.Context(), branchID)
	if err != nil {
		shared.WriteError(w, err, reqID)
		return
	}
	api.Success(w, sheets, reqID)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload generateRequest
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	if !middleware.RequireBranch(w, r, payload.BranchID) {
		return
	}
	month, err := payroll.ParseMonth(payload.Month)
	if err != nil {
		shared.WriteError(w, err, reqID)
		return
	}
	detail, err := h.Service.GenerateSheet(r.Context(), payload.BranchID, month)
	if err != nil {
		shared.WriteError(w, err, reqID)
		return
	}
	h.Audit.Log(r.Context(), middleware.AuditEntry(r, audit.ActionGenerate, "salary_sheet", detail.ID, nil, detail.Sheet))
	api.Created(w, detail, reqID)
}

func (h *Handler) handleGenerateAll(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload generateAllRequest
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	month, err := payroll.ParseMonth(payload.Month)
	if err != nil {
		shared.WriteError(w, err, reqID)
		return
	}
	if err := h.Jobs.Enqueue(jobs.JobSheetGeneration, month.String(), jobs.GenerateAllSheets(h.Branches, h.Service, month)); err != nil {
		shared.WriteError(w, err, reqID)
		return
	}
	h.Audit.Log(r.Context(), middleware.AuditEntry(r, audit.ActionGenerate, "salary_sheet_batch", month.String(), nil, nil))
	api.Accepted(w, map[string]string{"jobType": jobs.JobSheetGeneration, "month": month.String()}, reqID)
}

// loadSheet fetches a sheet and enforces branch scope. It writes the failure itself.
func (h *Handler) loadSheet(w http.ResponseWriter, r *http.Request) (sheet.Detail, bool) {
	detail, err := h.Service.GetSheet(r.Context(), chi.URLParam(r, "sheetID"))
	if err != nil {
		shared.WriteError(w, err, middleware.GetRequestID(r.Context()))
		return sheet.Detail{}, false
	}
	if !middleware.RequireBranch(w, r, detail.BranchID) {
		return sheet.Detail{}, false
	}
	return detail, true
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	detail, ok := h.loadSheet(w, r)
	if !ok {
		return
	}
	api.Success(w, detail, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	before, ok := h.loadSheet(w, r)
	if !ok {
		return
	}
	detail, err := h.Service.FinalizeSheet(r.Context(), before.ID)
	if err != nil {
		shared.WriteError(w, err, reqID)
		return
	}
	h.Audit.Log(r.Context(), middleware.AuditEntry(r, audit.ActionFinalize, "salary_sheet", detail.ID, before.Sheet, detail.Sheet))
	api.Success(w, detail, reqID)
}

var exportFormats = map[string]string{
	"csv":  "text/csv; charset=utf-8",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"pdf":  "application/pdf",
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	contentType, ok := exportFormats[format]
	if !ok {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "format", Reason: "must be one of csv xlsx pdf"}})
		return
	}

	export := h.Service.ExportCSV
	switch format {
	case "xlsx":
		export = h.Service.ExportXLSX
	case "pdf":
		export = h.Service.ExportPDF
	}
	var buf bytes.Buffer
	sh, err := export(r.Context(), chi.URLParam(r, "sheetID"), &buf)
	if err != nil {
		shared.WriteError(w, err, reqID)
		return
	}
	if !middleware.RequireBranch(w, r, sh.BranchID) {
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+sheet.ExportFilename(sh, format)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// entryScope enforces branch scope for an entry route. It writes the failure itself.
func (h *Handler) entryScope(w http.ResponseWriter, r *http.Request) (string, bool) {
	entryID := chi.URLParam(r, "entryID")
	sh, err := h.Service.EntrySheet(r.Context(), entryID)
	if err != nil {
		shared.WriteError(w, err, middleware.GetRequestID(r.Context()))
		return "", false
	}
	if !middleware.RequireBranch(w, r, sh.BranchID) {
		return "", false
	}
	return entryID, true
}

func (h *Handler) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	entryID, ok := h.entryScope(w, r)
	if !ok {
		return
	}
	var payload updateEntryRequest
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	entry, err := h.Service.UpdateEntry(r.Context(), entryID, payload.Field, payload.Value)
	if err != nil {
		shared.WriteError(w, err, reqID)
		return
	}
	h.Audit.Log(r.Context(), middleware.AuditEntry(r, audit.ActionUpdate, "salary_entry", entryID, nil, payload))
	api.Success(w, entry, reqID)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	entryID, ok := h.entryScope(w, r)
	if !ok {
		return
	}
	entry, err := h.Service.RefreshCollections(r.Context(), entryID)
	if err != nil {
		shared.WriteError(w, err, reqID)
		return
	}
	api.Success(w, entry, reqID)
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	entryID, ok := h.entryScope(w, r)
	if !ok {
		return
	}
	var payload scanRequest
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	result, err := h.Service.ScanAccount(r.Context(), entryID, payload.AccountCode)
	if err != nil {
		shared.WriteError(w, err, reqID)
		return
	}
	h.Audit.Log(r.Context(), middleware.AuditEntry(r, audit.ActionScan, "account", result.Account.ID, nil, result.Account))
	api.Success(w, result, reqID)
}

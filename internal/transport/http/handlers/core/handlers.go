package corehandler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fieldpay/internal/domain/audit"
	"fieldpay/internal/domain/auth"
	"fieldpay/internal/domain/core"
	"fieldpay/internal/domain/payroll"
	"fieldpay/internal/transport/http/api"
	"fieldpay/internal/transport/http/middleware"
	"fieldpay/internal/transport/http/shared"
)

type Service interface {
	ListBranches(ctx context.Context) ([]core.Branch, error)
	GetBranch(ctx context.Context, branchID string) (core.Branch, error)
	CreateBranch(ctx context.Context, b core.Branch) (core.Branch, error)
	ListEmployees(ctx context.Context, branchID string) ([]core.Employee, error)
	GetEmployee(ctx context.Context, employeeID string) (core.Employee, error)
	CreateEmployee(ctx context.Context, emp core.Employee) (core.Employee, error)
	UpdateEmployee(ctx context.Context, emp core.Employee) (core.Employee, error)
	ListCenters(ctx context.Context, branchID string) ([]payroll.Center, error)
	UpsertCenter(ctx context.Context, c payroll.Center) error
	ListCommissionStructures(ctx context.Context) ([]payroll.CommissionStructure, error)
	UpsertCommissionStructure(ctx context.Context, cs payroll.CommissionStructure) error
	DeleteCommissionStructure(ctx context.Context, typeCode string) error
	ListBookTiers(ctx context.Context) ([]payroll.BookTier, error)
	UpsertBookTier(ctx context.Context, tier payroll.BookTier) error
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
	r.Route("/branches", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermOrgRead)).Get("/", h.handleListBranches)
		r.With(middleware.RequirePermission(auth.PermOrgWrite)).Post("/", h.handleCreateBranch)
		r.Route("/{branchID}", func(r chi.Router) {
			r.With(middleware.RequirePermission(auth.PermOrgRead)).Get("/", h.handleGetBranch)
			r.With(middleware.RequirePermission(auth.PermEmployeesRead)).Get("/employees", h.handleListEmployees)
			r.With(middleware.RequirePermission(auth.PermOrgRead)).Get("/centers", h.handleListCenters)
		})
	})
	r.Route("/employees", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite)).Post("/", h.handleCreateEmployee)
		r.Route("/{employeeID}", func(r chi.Router) {
			r.With(middleware.RequirePermission(auth.PermEmployeesRead)).Get("/", h.handleGetEmployee)
			r.With(middleware.RequirePermission(auth.PermEmployeesWrite)).Put("/", h.handleUpdateEmployee)
		})
	})
	r.With(middleware.RequirePermission(auth.PermOrgWrite)).Put("/centers", h.handleUpsertCenter)
	r.Route("/commission-structures", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermOrgRead)).Get("/", h.handleListCommissionStructures)
		r.With(middleware.RequirePermission(auth.PermRatesWrite)).Put("/{typeCode}", h.handleUpsertCommissionStructure)
		r.With(middleware.RequirePermission(auth.PermRatesWrite)).Delete("/{typeCode}", h.handleDeleteCommissionStructure)
	})
	r.Route("/book-tiers", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermOrgRead)).Get("/", h.handleListBookTiers)
		r.With(middleware.RequirePermission(auth.PermRatesWrite)).Put("/{term}", h.handleUpsertBookTier)
	})
}

type branchRequest struct {
	Code string `json:"code" validate:"required,max=32"`
	Name string `json:"name" validate:"required,max=128"`
}

type employeeRequest struct {
	BranchID        string   `json:"branchId" validate:"required"`
	Name            string   `json:"name" validate:"required,max=128"`
	Designation     string   `json:"designation" validate:"max=64"`
	BaseSalary      *float64 `json:"baseSalary" validate:"omitempty,gte=0"`
	CommissionType  string   `json:"commissionType"`
	IsBranchManager bool     `json:"isBranchManager"`
	Status          string   `json:"status" validate:"omitempty,oneof=active inactive"`
}

func (p employeeRequest) employee() core.Employee {
	return core.Employee{
		BranchID:        p.BranchID,
		Name:            p.Name,
		Designation:     p.Designation,
		BaseSalary:      p.BaseSalary,
		CommissionType:  p.CommissionType,
		IsBranchManager: p.IsBranchManager,
		Status:          p.Status,
	}
}

type centerRequest struct {
	BranchID           string `json:"branchId"`
	CenterCode         string `json:"centerCode" validate:"required,max=32"`
	AssignedEmployeeID string `json:"assignedEmployeeId"`
	Type               string `json:"type" validate:"omitempty,oneof=OFFICE"`
}

type rateRequest struct {
	OwnRatePercent    float64 `json:"ownRatePercent" validate:"gte=0,lte=100"`
	OfficeRatePercent float64 `json:"officeRatePercent" validate:"gte=0,lte=100"`
}

type tierRequest struct {
	Amount float64 `json:"amount" validate:"gte=0"`
}

func (h *Handler) handleListBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.Service.ListBranches(r.Context())
	if err != nil {
		shared.WriteError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	user, _ := middleware.GetUser(r.Context())
	visible := make([]core.Branch, 0, len(branches))
	for _, b := range branches {
		if middleware.CanAccessBranch(user, b.ID) {
			visible = append(visible, b)
		}
	}
	api.Success(w, visible, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetBranch(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "branchID")
	if !middleware.RequireBranch(w, r, branchID) {
		return
	}
	branch, err := h.Service.GetBranch(r.Context(), branchID)
	if err != nil {
		shared.WriteError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, branch, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateBranch(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload branchRequest
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	branch, err := h.Service.CreateBranch(r.Context(), core.Branch{Code: payload.Code, Name: payload.Name})
	if err != nil {
		shared.WriteError(w, err, reqID)
		return
	}
	h.Audit.Log(r.Context(), middleware.AuditEntry(r, audit.ActionCreate, "branch", branch.ID, nil, branch))
	api.Created(w, branch, reqID)
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "branchID")
	if !middleware.RequireBranch(w, r, branchID) {
		return
	}
	employees, err := h.Service.ListEmployees(r.Context(), branchID)
	if err != nil {
		shared.WriteError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	user, _ := middleware.GetUser(r.Context())
	for i := range employees {
		core.FilterEmployeeFields(&employees[i], user.Role)
	}
	api.Success(w, employees, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Service.GetEmployee(r.Context(), chi.URLParam(r, "employeeID"))
	if err != nil {
		shared.WriteError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if !middleware.RequireBranch(w, r, emp.BranchID) {
		return
	}
	user, _ := middleware.GetUser(r.Context())
	core.FilterEmployeeFields(&emp, user.Role)
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload employeeRequest
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	if !middleware.RequireBranch(w, r, payload.BranchID) {
		return
	}
	emp, err := h.Service.CreateEmployee(r.Context(), payload.employee())
	if err != nil {
		shared.WriteError(w, err, reqID)
		return
	}
	h.Audit.Log(r.Context(), middleware.AuditEntry(r, audit.ActionCreate, "employee", emp.ID, nil, emp))
	api.Created(w, emp, reqID)
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	before, err := h.Service.GetEmployee(r.Context(), chi.URLParam(r, "employeeID"))
	if err != nil {
		shared.WriteError(w, err, reqID)
		return
	}
	if !middleware.RequireBranch(w, r, before.BranchID) {
		return
	}
	var payload employeeRequest
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	if !middleware.RequireBranch(w, r, payload.BranchID) {
		return
	}
	emp := payload.employee()
	emp.ID = before.ID
	if emp.BaseSalary == nil {
		emp.BaseSalary = before.BaseSalary
	}
	updated, err := h.Service.UpdateEmployee(r.Context(), emp)
	if err != nil {
		shared.WriteError(w, err, reqID)
		return
	}
	h.Audit.Log(r.Context(), middleware.AuditEntry(r, audit.ActionUpdate, "employee", updated.ID, before, updated))
	api.Success(w, updated, reqID)
}

func (h *Handler) handleListCenters(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "branchID")
	if !middleware.RequireBranch(w, r, branchID) {
		return
	}
	centers, err := h.Service.ListCenters(r.Context(), branchID)
	if err != nil {
		shared.WriteError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, centers, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpsertCenter(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload centerRequest
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	center := payroll.Center{
		BranchID:           payload.BranchID,
		CenterCode:         payload.CenterCode,
		AssignedEmployeeID: payload.AssignedEmployeeID,
		Type:               payload.Type,
	}
	if center.BranchID != "" && !middleware.RequireBranch(w, r, center.BranchID) {
		return
	}
	if center.BranchID == "" && center.AssignedEmployeeID == "" {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "branchId", Reason: "is required without an assigned employee"}})
		return
	}
	if err := h.Service.UpsertCenter(r.Context(), center); err != nil {
		shared.WriteError(w, err, reqID)
		return
	}
	h.Audit.Log(r.Context(), middleware.AuditEntry(r, audit.ActionUpdate, "center", center.BranchID+"/"+center.CenterCode, nil, center))
	api.Success(w, center, reqID)
}

func (h *Handler) handleListCommissionStructures(w http.ResponseWriter, r *http.Request) {
	structures, err := h.Service.ListCommissionStructures(r.Context())
	if err != nil {
		shared.WriteError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, structures, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpsertCommissionStructure(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload rateRequest
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	cs := payroll.CommissionStructure{
		TypeCode:          chi.URLParam(r, "typeCode"),
		OwnRatePercent:    payload.OwnRatePercent,
		OfficeRatePercent: payload.OfficeRatePercent,
	}
	if err := h.Service.UpsertCommissionStructure(r.Context(), cs); err != nil {
		shared.WriteError(w, err, reqID)
		return
	}
	h.Audit.Log(r.Context(), middleware.AuditEntry(r, audit.ActionUpdate, "commission_structure", cs.TypeCode, nil, cs))
	api.Success(w, cs, reqID)
}

func (h *Handler) handleDeleteCommissionStructure(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	typeCode := chi.URLParam(r, "typeCode")
	if err := h.Service.DeleteCommissionStructure(r.Context(), typeCode); err != nil {
		shared.WriteError(w, err, reqID)
		return
	}
	h.Audit.Log(r.Context(), middleware.AuditEntry(r, audit.ActionDelete, "commission_structure", typeCode, nil, nil))
	api.Success(w, map[string]string{"typeCode": typeCode}, reqID)
}

func (h *Handler) handleListBookTiers(w http.ResponseWriter, r *http.Request) {
	tiers, err := h.Service.ListBookTiers(r.Context())
	if err != nil {
		shared.WriteError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, tiers, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpsertBookTier(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	term, err := payroll.ParseTerm(chi.URLParam(r, "term"))
	if err != nil {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "term", Reason: "must be a positive number of years"}})
		return
	}
	var payload tierRequest
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	tier := payroll.BookTier{Term: term, Amount: payload.Amount}
	if err := h.Service.UpsertBookTier(r.Context(), tier); err != nil {
		shared.WriteError(w, err, reqID)
		return
	}
	h.Audit.Log(r.Context(), middleware.AuditEntry(r, audit.ActionUpdate, "book_tier", term.String(), nil, tier))
	api.Success(w, tier, reqID)
}

package reportshandler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"fieldpay/internal/domain/auth"
	"fieldpay/internal/domain/payroll"
	"fieldpay/internal/domain/reports"
	"fieldpay/internal/platform/jobs"
	"fieldpay/internal/transport/http/api"
	"fieldpay/internal/transport/http/middleware"
	"fieldpay/internal/transport/http/shared"
)

type Service interface {
	BranchCollection(ctx context.Context, branchID string, month payroll.Month) (reports.BranchCollectionReport, error)
}

type RunLister interface {
	ListRuns(ctx context.Context, filter jobs.RunFilter, limit, offset int) ([]jobs.Run, error)
	CountRuns(ctx context.Context, filter jobs.RunFilter) (int, error)
	GetRun(ctx context.Context, id string) (jobs.Run, error)
}

type Handler struct {
	Service Service
	Runs    RunLister
}

func NewHandler(service Service, runs RunLister) *Handler {
	return &Handler{Service: service, Runs: runs}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermReportsRead)).Get("/reports/collections", h.handleBranchCollection)
	r.Route("/jobs/runs", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermSheetsRun)).Get("/", h.handleListRuns)
		r.With(middleware.RequirePermission(auth.PermSheetsRun)).Get("/{runID}", h.handleGetRun)
	})
}

func (h *Handler) handleBranchCollection(w http.ResponseWriter, r *http.Request) {
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
	report, err := h.Service.BranchCollection(r.Context(), branchID, month)
	if err != nil {
		shared.WriteError(w, err, reqID)
		return
	}
	api.Success(w, report, reqID)
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	page := shared.ParsePagination(r, 50, 200)
	filter := jobs.RunFilter{JobType: r.URL.Query().Get("jobType"), Status: r.URL.Query().Get("status")}

	total, err := h.Runs.CountRuns(r.Context(), filter)
	if err != nil {
		zap.L().Warn("job runs count failed", zap.String("request_id", reqID), zap.Error(err))
	}
	runs, err := h.Runs.ListRuns(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		shared.WriteError(w, err, reqID)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, runs, reqID)
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	run, err := h.Runs.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		shared.WriteError(w, err, reqID)
		return
	}
	api.Success(w, run, reqID)
}

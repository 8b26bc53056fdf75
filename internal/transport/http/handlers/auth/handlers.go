package authhandler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fieldpay/internal/domain/audit"
	"fieldpay/internal/domain/auth"
	"fieldpay/internal/transport/http/api"
	"fieldpay/internal/transport/http/middleware"
	"fieldpay/internal/transport/http/shared"
)

type Service interface {
	Login(ctx context.Context, email, password string) (auth.Session, error)
	CreateUser(ctx context.Context, email, password, role, branchID string) (auth.User, error)
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

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type createUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=10"`
	Role     string `json:"role" validate:"required,oneof=admin manager officer"`
	BranchID string `json:"branchId"`
}

// RegisterPublicRoutes mounts the routes reachable without a token.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/auth/login", h.HandleLogin)
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.HandleMe)
	r.With(middleware.RequirePermission(auth.PermUsersWrite)).Post("/users", h.HandleCreateUser)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload loginRequest
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}

	session, err := h.Service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		shared.WriteError(w, err, reqID)
		return
	}
	api.Success(w, session, reqID)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{
		"id":          user.ID,
		"role":        user.Role,
		"branchId":    user.BranchID,
		"permissions": auth.RolePermissions[user.Role],
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload createUserRequest
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	if payload.Role != auth.RoleAdmin && payload.BranchID == "" {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "branchId", Reason: "is required for branch roles"}})
		return
	}

	user, err := h.Service.CreateUser(r.Context(), payload.Email, payload.Password, payload.Role, payload.BranchID)
	if err != nil {
		shared.WriteError(w, err, reqID)
		return
	}
	h.Audit.Log(r.Context(), middleware.AuditEntry(r, audit.ActionCreate, "user", user.ID, nil, user))
	api.Created(w, user, reqID)
}

package authhandler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldpay/internal/domain/audit"
	"fieldpay/internal/domain/auth"
	"fieldpay/internal/transport/http/api"
	"fieldpay/internal/transport/http/middleware"
)

type fakeService struct {
	created []string
}

func (f *fakeService) Login(_ context.Context, email, password string) (auth.Session, error) {
	if email != "admin@example.com" || password != "correct horse" {
		return auth.Session{}, auth.ErrInvalidCredentials
	}
	return auth.Session{Token: "tok", ExpiresAt: time.Now().Add(time.Hour), User: auth.User{ID: "u1", Email: email, Role: auth.RoleAdmin}}, nil
}

func (f *fakeService) CreateUser(_ context.Context, email, _, role, branchID string) (auth.User, error) {
	f.created = append(f.created, email)
	return auth.User{ID: "u2", Email: email, Role: role, BranchID: branchID}, nil
}

type recordingAuditor struct {
	entries []audit.Entry
}

func (a *recordingAuditor) Log(_ context.Context, e audit.Entry) {
	a.entries = append(a.entries, e)
}

func router(h *Handler, user *middleware.User) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if user != nil {
				req = req.WithContext(middleware.WithUser(req.Context(), *user))
			}
			next.ServeHTTP(w, req)
		})
	})
	h.RegisterPublicRoutes(r)
	h.RegisterRoutes(r)
	return r
}

func do(t *testing.T, handler http.Handler, method, path, body string) (*httptest.ResponseRecorder, api.Envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	var env api.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestLogin(t *testing.T) {
	h := NewHandler(&fakeService{}, nil)

	rec, env := do(t, router(h, nil), http.MethodPost, "/auth/login", `{"email":"admin@example.com","password":"correct horse"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	rec, env = do(t, router(h, nil), http.MethodPost, "/auth/login", `{"email":"admin@example.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", env.Error.Code)

	rec, _ = do(t, router(h, nil), http.MethodPost, "/auth/login", `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateUserRequiresPermission(t *testing.T) {
	svc := &fakeService{}
	h := NewHandler(svc, nil)
	body := `{"email":"officer@example.com","password":"long-enough-pw","role":"officer","branchId":"b1"}`

	rec, _ := do(t, router(h, &middleware.User{ID: "m1", Role: auth.RoleManager}), http.MethodPost, "/users", body)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, svc.created)
}

func TestCreateUserAudited(t *testing.T) {
	svc := &fakeService{}
	auditor := &recordingAuditor{}
	h := NewHandler(svc, auditor)
	body := `{"email":"officer@example.com","password":"long-enough-pw","role":"officer","branchId":"b1"}`

	rec, _ := do(t, router(h, &middleware.User{ID: "a1", Role: auth.RoleAdmin}), http.MethodPost, "/users", body)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, auditor.entries, 1)
	assert.Equal(t, "a1", auditor.entries[0].ActorID)
	assert.Equal(t, "u2", auditor.entries[0].EntityID)
}

func TestCreateBranchUserNeedsBranch(t *testing.T) {
	h := NewHandler(&fakeService{}, nil)

	rec, env := do(t, router(h, &middleware.User{ID: "a1", Role: auth.RoleAdmin}), http.MethodPost, "/users",
		`{"email":"officer@example.com","password":"long-enough-pw","role":"officer"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", env.Error.Code)
}

func TestMe(t *testing.T) {
	h := NewHandler(&fakeService{}, nil)

	rec, env := do(t, router(h, &middleware.User{ID: "o1", Role: auth.RoleOfficer, BranchID: "b1"}), http.MethodGet, "/me", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	data := env.Data.(map[string]any)
	assert.Equal(t, "b1", data["branchId"])
}

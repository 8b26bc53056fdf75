package sheethandler

import (
	"bytes"
	"context"
	"io"
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
	"fieldpay/internal/domain/core"
	"fieldpay/internal/domain/payroll"
	"fieldpay/internal/domain/sheet"
	"fieldpay/internal/platform/jobs"
	"fieldpay/internal/transport/http/api"
	"fieldpay/internal/transport/http/middleware"
)

var march = payroll.Month{Year: 2024, Month: time.March}

type fakeService struct {
	sheets    map[string]sheet.Sheet
	entries   map[string]string
	updates   []string
	scanned   []string
	generated []string
}

func newFakeService() *fakeService {
	return &fakeService{
		sheets: map[string]sheet.Sheet{
			"s1": {ID: "s1", BranchID: "b1", Month: march, Status: sheet.StatusDraft},
			"s2": {ID: "s2", BranchID: "b2", Month: march, Status: sheet.StatusDraft},
		},
		entries: map[string]string{"e1": "s1", "e2": "s2"},
	}
}

func (f *fakeService) GenerateSheet(_ context.Context, branchID string, month payroll.Month) (sheet.Detail, error) {
	if branchID == "empty" {
		return sheet.Detail{}, sheet.ErrNoEmployees
	}
	f.generated = append(f.generated, branchID)
	sh := sheet.Sheet{ID: "s9", BranchID: branchID, Month: month, Status: sheet.StatusDraft}
	f.sheets[sh.ID] = sh
	return sheet.Detail{Sheet: sh}, nil
}

func (f *fakeService) GetSheet(_ context.Context, id string) (sheet.Detail, error) {
	sh, ok := f.sheets[id]
	if !ok {
		return sheet.Detail{}, sheet.ErrSheetNotFound
	}
	return sheet.Detail{Sheet: sh}, nil
}

func (f *fakeService) ListSheets(_ context.Context, branchID string) ([]sheet.Sheet, error) {
	var out []sheet.Sheet
	for _, sh := range f.sheets {
		if sh.BranchID == branchID {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (f *fakeService) EntrySheet(_ context.Context, entryID string) (sheet.Sheet, error) {
	id, ok := f.entries[entryID]
	if !ok {
		return sheet.Sheet{}, sheet.ErrEntryNotFound
	}
	return f.sheets[id], nil
}

func (f *fakeService) UpdateEntry(_ context.Context, entryID, field, raw string) (payroll.SalaryEntry, error) {
	if field == "finalSalary" {
		return payroll.SalaryEntry{}, payroll.ErrFieldReadOnly
	}
	f.updates = append(f.updates, field+"="+raw)
	return payroll.SalaryEntry{ID: entryID}, nil
}

func (f *fakeService) RefreshCollections(_ context.Context, entryID string) (payroll.SalaryEntry, error) {
	return payroll.SalaryEntry{ID: entryID}, nil
}

func (f *fakeService) ScanAccount(_ context.Context, entryID, code string) (sheet.ScanResult, error) {
	if code == "USED" {
		return sheet.ScanResult{}, &payroll.Rejection{Reason: payroll.ReasonAlreadyUsed, AccountCode: code, CountedMonth: "2024-02"}
	}
	f.scanned = append(f.scanned, code)
	return sheet.ScanResult{Entry: payroll.SalaryEntry{ID: entryID}, Account: payroll.AccountOpening{ID: "acc-1", AccountCode: code}}, nil
}

func (f *fakeService) FinalizeSheet(_ context.Context, id string) (sheet.Detail, error) {
	sh := f.sheets[id]
	if sh.Finalized() {
		return sheet.Detail{}, sheet.ErrSheetFinalized
	}
	sh.Status = sheet.StatusFinalized
	f.sheets[id] = sh
	return sheet.Detail{Sheet: sh}, nil
}

func (f *fakeService) export(id, body string, w io.Writer) (sheet.Sheet, error) {
	sh, ok := f.sheets[id]
	if !ok {
		return sheet.Sheet{}, sheet.ErrSheetNotFound
	}
	_, err := io.WriteString(w, body)
	return sh, err
}

func (f *fakeService) ExportCSV(_ context.Context, id string, w io.Writer) (sheet.Sheet, error) {
	return f.export(id, "Employee\n", w)
}

func (f *fakeService) ExportXLSX(_ context.Context, id string, w io.Writer) (sheet.Sheet, error) {
	return f.export(id, "PK", w)
}

func (f *fakeService) ExportPDF(_ context.Context, id string, w io.Writer) (sheet.Sheet, error) {
	return f.export(id, "%PDF-1.3", w)
}

type fakeQueue struct {
	jobs []jobs.Func
	full bool
}

func (q *fakeQueue) Enqueue(_, _ string, run jobs.Func) error {
	if q.full {
		return jobs.ErrQueueFull
	}
	q.jobs = append(q.jobs, run)
	return nil
}

type fakeBranches []core.Branch

func (b fakeBranches) ListBranches(context.Context) ([]core.Branch, error) { return b, nil }

type recordingAuditor struct {
	entries []audit.Entry
}

func (a *recordingAuditor) Log(_ context.Context, e audit.Entry) {
	a.entries = append(a.entries, e)
}

var (
	admin   = &middleware.User{ID: "a1", Role: auth.RoleAdmin}
	manager = &middleware.User{ID: "m1", Role: auth.RoleManager, BranchID: "b1"}
	officer = &middleware.User{ID: "o1", Role: auth.RoleOfficer, BranchID: "b1"}
)

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
	h.RegisterRoutes(r)
	return r
}

func send(handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func do(t *testing.T, handler http.Handler, method, path, body string) (*httptest.ResponseRecorder, api.Envelope) {
	t.Helper()
	rec := send(handler, method, path, body)
	var env api.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestGenerateSheet(t *testing.T) {
	svc := newFakeService()
	auditor := &recordingAuditor{}
	h := NewHandler(svc, &fakeQueue{}, nil, auditor)

	rec, env := do(t, router(h, manager), http.MethodPost, "/sheets", `{"branchId":"b1","month":"2024-03"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "s9", env.Data.(map[string]any)["id"])
	require.Len(t, auditor.entries, 1)
	assert.Equal(t, audit.ActionGenerate, auditor.entries[0].Action)

	rec, _ = do(t, router(h, manager), http.MethodPost, "/sheets", `{"branchId":"b2","month":"2024-03"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = do(t, router(h, manager), http.MethodPost, "/sheets", `{"branchId":"b1","month":"03/2024"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", env.Error.Code)

	rec, env = do(t, router(h, admin), http.MethodPost, "/sheets", `{"branchId":"empty","month":"2024-03"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "no_active_employees", env.Error.Code)
}

func TestOfficerCannotGenerate(t *testing.T) {
	h := NewHandler(newFakeService(), &fakeQueue{}, nil, nil)

	rec, _ := do(t, router(h, officer), http.MethodPost, "/sheets", `{"branchId":"b1","month":"2024-03"}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGenerateAllEnqueuesJob(t *testing.T) {
	svc := newFakeService()
	queue := &fakeQueue{}
	h := NewHandler(svc, queue, fakeBranches{{ID: "b1"}, {ID: "empty"}}, nil)

	rec, _ := do(t, router(h, manager), http.MethodPost, "/sheets/generate-all", `{"month":"2024-03"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, queue.jobs, 1)

	out, err := queue.jobs[0](context.Background())
	require.NoError(t, err)
	result := out.(jobs.GenerationResult)
	assert.Equal(t, "2024-03", result.Month)
	assert.Equal(t, []string{"b1"}, svc.generated)

	queue.full = true
	rec, env := do(t, router(h, manager), http.MethodPost, "/sheets/generate-all", `{"month":"2024-03"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "job_queue_full", env.Error.Code)
}

func TestGetSheetScopedToBranch(t *testing.T) {
	h := NewHandler(newFakeService(), &fakeQueue{}, nil, nil)

	rec, _ := do(t, router(h, officer), http.MethodGet, "/sheets/s1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, router(h, officer), http.MethodGet, "/sheets/s2", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := do(t, router(h, officer), http.MethodGet, "/sheets/s404", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "sheet_not_found", env.Error.Code)
}

func TestFinalizeAdminOnlyAndOnce(t *testing.T) {
	svc := newFakeService()
	auditor := &recordingAuditor{}
	h := NewHandler(svc, &fakeQueue{}, nil, auditor)

	rec, _ := do(t, router(h, manager), http.MethodPost, "/sheets/s1/finalize", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := do(t, router(h, admin), http.MethodPost, "/sheets/s1/finalize", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sheet.StatusFinalized, env.Data.(map[string]any)["status"])
	require.Len(t, auditor.entries, 1)
	assert.Equal(t, audit.ActionFinalize, auditor.entries[0].Action)

	rec, env = do(t, router(h, admin), http.MethodPost, "/sheets/s1/finalize", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "sheet_finalized", env.Error.Code)
}

func TestExportFormats(t *testing.T) {
	h := NewHandler(newFakeService(), &fakeQueue{}, nil, nil)

	rec := send(router(h, officer), http.MethodGet, "/sheets/s1/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="salary-sheet-2024-03-s1.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "Employee\n", rec.Body.String())

	rec = send(router(h, officer), http.MethodGet, "/sheets/s1/export?format=pdf", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "%PDF")

	rec = send(router(h, officer), http.MethodGet, "/sheets/s1/export?format=doc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send(router(h, officer), http.MethodGet, "/sheets/s2/export?format=xlsx", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateEntry(t *testing.T) {
	svc := newFakeService()
	h := NewHandler(svc, &fakeQueue{}, nil, nil)

	rec, _ := do(t, router(h, manager), http.MethodPatch, "/entries/e1", `{"field":"centerCollection","value":"1,000"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"centerCollection=1,000"}, svc.updates)

	rec, env := do(t, router(h, manager), http.MethodPatch, "/entries/e1", `{"field":"finalSalary","value":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "field_read_only", env.Error.Code)

	rec, _ = do(t, router(h, manager), http.MethodPatch, "/entries/e2", `{"field":"lateHours","value":"1"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = do(t, router(h, manager), http.MethodPatch, "/entries/nope", `{"field":"lateHours","value":"1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "entry_not_found", env.Error.Code)
}

func TestScanAccount(t *testing.T) {
	svc := newFakeService()
	auditor := &recordingAuditor{}
	h := NewHandler(svc, &fakeQueue{}, nil, auditor)

	rec, _ := do(t, router(h, manager), http.MethodPost, "/entries/e1/scan", `{"accountCode":"SAV-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"SAV-1"}, svc.scanned)
	require.Len(t, auditor.entries, 1)
	assert.Equal(t, audit.ActionScan, auditor.entries[0].Action)

	rec, env := do(t, router(h, manager), http.MethodPost, "/entries/e1/scan", `{"accountCode":"USED"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "account_rejected", env.Error.Code)
	details := env.Error.Details.(map[string]any)
	assert.Equal(t, string(payroll.ReasonAlreadyUsed), details["reason"])
	assert.Equal(t, "2024-02", details["countedMonth"])
	assert.Len(t, auditor.entries, 1)
}

func TestRefreshEntry(t *testing.T) {
	h := NewHandler(newFakeService(), &fakeQueue{}, nil, nil)

	rec, env := do(t, router(h, manager), http.MethodPost, "/entries/e1/refresh", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "e1", env.Data.(map[string]any)["id"])
}

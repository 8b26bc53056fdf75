package collection

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"fieldpay/internal/domain/payroll"
	"fieldpay/internal/platform/logging"
)

const openingDateLayout = "2006-01-02"

type LedgerStore interface {
	InsertRecord(ctx context.Context, r payroll.CollectionRecord) (payroll.CollectionRecord, error)
	InsertRecords(ctx context.Context, records []payroll.CollectionRecord) ([]payroll.CollectionRecord, error)
	ListBranchRecords(ctx context.Context, branchID string, month payroll.Month) ([]payroll.CollectionRecord, error)
	ListEmployeeRecords(ctx context.Context, employeeID string, month payroll.Month) ([]payroll.CollectionRecord, error)
	InsertAccount(ctx context.Context, a payroll.AccountOpening) (payroll.AccountOpening, error)
	ListAccounts(ctx context.Context, branchID string) ([]payroll.AccountOpening, error)
	FindAccountsByCode(ctx context.Context, code string) ([]payroll.AccountOpening, error)
	MarkCounted(ctx context.Context, accountID string, month payroll.Month, sheetID string) error
}

type CenterSource interface {
	CenterDirectory(ctx context.Context) (*payroll.CenterDirectory, error)
}

type Service struct {
	store   LedgerStore
	centers CenterSource
	now     func() time.Time
	logger  *zap.Logger
}

func NewService(store LedgerStore, centers CenterSource, logger ...*zap.Logger) *Service {
	return &Service{store: store, centers: centers, now: time.Now, logger: logging.Named("collection.service", logger...)}
}

func (s *Service) prepareRecord(r payroll.CollectionRecord, dir *payroll.CenterDirectory) (payroll.CollectionRecord, error) {
	r.CenterCode = strings.TrimSpace(r.CenterCode)
	if r.EmployeeID == "" || r.BranchID == "" || r.CenterCode == "" {
		return r, fmt.Errorf("%w: employee, branch and center code are required", ErrInvalidRecord)
	}
	r.Amount = payroll.Sanitize(r.Amount)
	r.LoanAmount = payroll.Sanitize(r.LoanAmount)
	if r.Amount < 0 || r.LoanAmount < 0 {
		return r, fmt.Errorf("%w: amounts must not be negative", ErrInvalidRecord)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.RecordedType = payroll.ResolveOwnership(r, dir)
	return r, nil
}

// RecordCollection persists an immutable record. RecordedType is stamped from current
// master data for display only; aggregation always re-resolves ownership.
func (s *Service) RecordCollection(ctx context.Context, r payroll.CollectionRecord) (payroll.CollectionRecord, error) {
	dir, err := s.centers.CenterDirectory(ctx)
	if err != nil {
		return payroll.CollectionRecord{}, err
	}
	r, err = s.prepareRecord(r, dir)
	if err != nil {
		return payroll.CollectionRecord{}, err
	}
	saved, err := s.store.InsertRecord(ctx, r)
	if err != nil {
		s.logger.Error("insert collection record failed", zap.String("employee_id", r.EmployeeID), zap.Error(err))
		return payroll.CollectionRecord{}, err
	}
	return saved, nil
}

// BulkImport validates every record first, then inserts them in one transaction.
func (s *Service) BulkImport(ctx context.Context, records []payroll.CollectionRecord) ([]payroll.CollectionRecord, error) {
	dir, err := s.centers.CenterDirectory(ctx)
	if err != nil {
		return nil, err
	}
	prepared := make([]payroll.CollectionRecord, 0, len(records))
	for i, r := range records {
		p, err := s.prepareRecord(r, dir)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		prepared = append(prepared, p)
	}
	saved, err := s.store.InsertRecords(ctx, prepared)
	if err != nil {
		return nil, err
	}
	s.logger.Info("collection records imported", zap.Int("count", len(saved)))
	return saved, nil
}

func (s *Service) OpenAccount(ctx context.Context, a payroll.AccountOpening) (payroll.AccountOpening, error) {
	a.AccountCode = strings.TrimSpace(a.AccountCode)
	a.OpeningDate = strings.TrimSpace(a.OpeningDate)
	if a.AccountCode == "" || a.EmployeeID == "" || a.BranchID == "" {
		return payroll.AccountOpening{}, fmt.Errorf("%w: code, employee and branch are required", ErrInvalidAccount)
	}
	if a.Term <= 0 {
		return payroll.AccountOpening{}, fmt.Errorf("%w: term must be positive", ErrInvalidAccount)
	}
	if a.CollectionAmount = payroll.Sanitize(a.CollectionAmount); a.CollectionAmount < 0 {
		return payroll.AccountOpening{}, fmt.Errorf("%w: collection amount must not be negative", ErrInvalidAccount)
	}
	if a.OpeningDate == "" {
		a.OpeningDate = s.now().UTC().Format(openingDateLayout)
	}
	if _, err := time.Parse(openingDateLayout, a.OpeningDate); err != nil {
		return payroll.AccountOpening{}, fmt.Errorf("%w: opening date must be YYYY-MM-DD", ErrInvalidAccount)
	}
	a.IsCounted = false
	a.CountedMonth = ""
	a.SalarySheetID = ""
	return s.store.InsertAccount(ctx, a)
}

func (s *Service) ListBranchRecords(ctx context.Context, branchID string, month payroll.Month) ([]payroll.CollectionRecord, error) {
	return s.store.ListBranchRecords(ctx, branchID, month)
}

func (s *Service) ListEmployeeRecords(ctx context.Context, employeeID string, month payroll.Month) ([]payroll.CollectionRecord, error) {
	return s.store.ListEmployeeRecords(ctx, employeeID, month)
}

func (s *Service) ListAccounts(ctx context.Context, branchID string) ([]payroll.AccountOpening, error) {
	return s.store.ListAccounts(ctx, branchID)
}

func (s *Service) FindAccountsByCode(ctx context.Context, code string) ([]payroll.AccountOpening, error) {
	return s.store.FindAccountsByCode(ctx, code)
}

func (s *Service) MarkCounted(ctx context.Context, accountID string, month payroll.Month, sheetID string) error {
	return s.store.MarkCounted(ctx, accountID, month, sheetID)
}

// Summarize runs the aggregator over an employee's records for month.
func (s *Service) Summarize(ctx context.Context, employeeID string, month payroll.Month) (payroll.CollectionSummary, error) {
	records, err := s.store.ListEmployeeRecords(ctx, employeeID, month)
	if err != nil {
		return payroll.CollectionSummary{}, err
	}
	dir, err := s.centers.CenterDirectory(ctx)
	if err != nil {
		return payroll.CollectionSummary{}, err
	}
	return payroll.AggregateCollections(employeeID, month, records, dir), nil
}

// BranchTotal is the branch-wide collection for month plus pending center collections.
func (s *Service) BranchTotal(ctx context.Context, branchID string, month payroll.Month, pending ...float64) (float64, error) {
	records, err := s.store.ListBranchRecords(ctx, branchID, month)
	if err != nil {
		return 0, err
	}
	return payroll.BranchTotalCollection(branchID, month, records, pending...), nil
}

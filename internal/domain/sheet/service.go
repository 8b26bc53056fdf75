package sheet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fieldpay/internal/domain/core"
	"fieldpay/internal/domain/payroll"
	"fieldpay/internal/platform/events"
	"fieldpay/internal/platform/logging"
	"fieldpay/internal/platform/metrics"
)

type SheetStore interface {
	CreateSheet(ctx context.Context, sh Sheet, entries []payroll.SalaryEntry) (Sheet, []payroll.SalaryEntry, error)
	GetSheet(ctx context.Context, sheetID string) (Sheet, error)
	ListSheets(ctx context.Context, branchID string) ([]Sheet, error)
	ListLines(ctx context.Context, sheetID string) ([]Line, error)
	GetEntry(ctx context.Context, entryID string) (payroll.SalaryEntry, error)
	MutateEntry(ctx context.Context, entryID string, fn EntryMutation) error
	Finalize(ctx context.Context, sheetID string, at time.Time) (Sheet, error)
}

// EntryChange is what an entry mutation persists: the recalculated entries and, for an
// accepted scan, the account to mark counted.
type EntryChange struct {
	Entries   []payroll.SalaryEntry
	AccountID string
}

// EntryMutation derives a change from the entry as it is stored once the sheet is locked.
type EntryMutation func(ctx context.Context, sh Sheet, entry payroll.SalaryEntry) (EntryChange, error)

// Directory is the master data the sheet service reads.
type Directory interface {
	GetBranch(ctx context.Context, branchID string) (core.Branch, error)
	ListEmployees(ctx context.Context, branchID string) ([]core.Employee, error)
	ActiveEmployees(ctx context.Context, branchID string) ([]core.Employee, error)
	GetEmployee(ctx context.Context, employeeID string) (core.Employee, error)
	RateSnapshot(ctx context.Context) (core.RateSnapshot, error)
}

// Ledger is the collection data the sheet service reads.
type Ledger interface {
	Summarize(ctx context.Context, employeeID string, month payroll.Month) (payroll.CollectionSummary, error)
	BranchTotal(ctx context.Context, branchID string, month payroll.Month, pending ...float64) (float64, error)
	FindAccountsByCode(ctx context.Context, code string) ([]payroll.AccountOpening, error)
}

type Service struct {
	store     SheetStore
	directory Directory
	ledger    Ledger
	rules     payroll.Rules
	publisher events.Publisher
	metrics   *metrics.Collector
	now       func() time.Time
	logger    *zap.Logger
}

type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = logging.Named("sheet.service", l) }
}

func NewService(store SheetStore, directory Directory, ledger Ledger, rules payroll.Rules, opts ...Option) *Service {
	s := &Service{
		store:     store,
		directory: directory,
		ledger:    ledger,
		rules:     rules,
		publisher: events.NopPublisher{},
		now:       time.Now,
		logger:    logging.Named("sheet.service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) calculator(ctx context.Context) (payroll.Calculator, payroll.BookTierSchedule, error) {
	snap, err := s.directory.RateSnapshot(ctx)
	if err != nil {
		return payroll.Calculator{}, nil, fmt.Errorf("load rates: %w", err)
	}
	schedule := snap.Schedule()
	return payroll.NewCalculator(s.rules, snap.Rates(), schedule), schedule, nil
}

func recalc(calc payroll.Calculator, entry payroll.SalaryEntry, emp core.Employee, branchTotal float64) payroll.SalaryEntry {
	return calc.Recalculate(entry, emp.Salary(), emp.CommissionType, &payroll.ManagerContext{
		IsManager:             emp.IsBranchManager,
		BranchTotalCollection: branchTotal,
	})
}

// GenerateSheet opens a new draft sheet with one entry per active employee, filled from
// the month's collection records. Generating again creates another sheet.
func (s *Service) GenerateSheet(ctx context.Context, branchID string, month payroll.Month) (Detail, error) {
	if _, err := s.directory.GetBranch(ctx, branchID); err != nil {
		return Detail{}, err
	}
	employees, err := s.directory.ActiveEmployees(ctx, branchID)
	if err != nil {
		return Detail{}, err
	}
	if len(employees) == 0 {
		return Detail{}, ErrNoEmployees
	}
	calc, _, err := s.calculator(ctx)
	if err != nil {
		return Detail{}, err
	}
	branchTotal, err := s.ledger.BranchTotal(ctx, branchID, month)
	if err != nil {
		return Detail{}, err
	}

	entries := make([]payroll.SalaryEntry, 0, len(employees))
	for _, emp := range employees {
		summary, err := s.ledger.Summarize(ctx, emp.ID, month)
		if err != nil {
			return Detail{}, fmt.Errorf("aggregate collections for %s: %w", emp.ID, err)
		}
		entry := payroll.SalaryEntry{
			EmployeeID:  emp.ID,
			BasicSalary: emp.Salary(),
			BookCounts:  map[payroll.Term]int{},
		}
		entries = append(entries, recalc(calc, applySummary(entry, summary), emp, branchTotal))
	}

	sh, saved, err := s.store.CreateSheet(ctx, Sheet{BranchID: branchID, Month: month, Status: StatusDraft}, entries)
	if err != nil {
		s.logger.Error("create sheet failed", zap.String("branch_id", branchID), zap.Stringer("month", month), zap.Error(err))
		return Detail{}, err
	}
	s.logger.Info("salary sheet generated",
		zap.String("sheet_id", sh.ID), zap.String("branch_id", branchID),
		zap.Stringer("month", month), zap.Int("entries", len(saved)))

	lines := make([]Line, len(saved))
	byID := make(map[string]core.Employee, len(employees))
	for _, emp := range employees {
		byID[emp.ID] = emp
	}
	for i, e := range saved {
		lines[i] = Line{SalaryEntry: e, EmployeeName: byID[e.EmployeeID].Name, Designation: byID[e.EmployeeID].Designation}
	}
	return Detail{Sheet: sh, Lines: lines, Totals: totalsOf(lines)}, nil
}

func applySummary(entry payroll.SalaryEntry, summary payroll.CollectionSummary) payroll.SalaryEntry {
	entry.OwnSomityCollection = summary.OwnCollection
	entry.OwnSomityCount = summary.OwnCenterCount
	entry.OfficeSomityCollection = summary.OfficeCollection
	entry.OfficeSomityCount = summary.OfficeCenterCount
	entry.TotalLoanCollection = summary.TotalLoanCollection
	return entry
}

func (s *Service) GetSheet(ctx context.Context, sheetID string) (Detail, error) {
	sh, err := s.store.GetSheet(ctx, sheetID)
	if err != nil {
		return Detail{}, err
	}
	lines, err := s.store.ListLines(ctx, sheetID)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Sheet: sh, Lines: lines, Totals: totalsOf(lines)}, nil
}

func (s *Service) ListSheets(ctx context.Context, branchID string) ([]Sheet, error) {
	return s.store.ListSheets(ctx, branchID)
}

// EntrySheet returns the sheet that owns entryID.
func (s *Service) EntrySheet(ctx context.Context, entryID string) (Sheet, error) {
	entry, err := s.store.GetEntry(ctx, entryID)
	if err != nil {
		return Sheet{}, err
	}
	return s.store.GetSheet(ctx, entry.SheetID)
}

// recompute recalculates target with the branch total of the sheet and returns it along
// with every manager entry whose convenience depends on that total.
func (s *Service) recompute(ctx context.Context, sh Sheet, calc payroll.Calculator, target payroll.SalaryEntry) (payroll.SalaryEntry, []payroll.SalaryEntry, error) {
	lines, err := s.store.ListLines(ctx, sh.ID)
	if err != nil {
		return payroll.SalaryEntry{}, nil, err
	}
	pending := make([]float64, 0, len(lines))
	for _, line := range lines {
		if line.ID == target.ID {
			pending = append(pending, target.CenterCollection)
			continue
		}
		pending = append(pending, line.CenterCollection)
	}
	branchTotal, err := s.ledger.BranchTotal(ctx, sh.BranchID, sh.Month, pending...)
	if err != nil {
		return payroll.SalaryEntry{}, nil, err
	}

	employees, err := s.employeeIndex(ctx, sh.BranchID)
	if err != nil {
		return payroll.SalaryEntry{}, nil, err
	}
	emp, err := s.lookupEmployee(ctx, employees, target.EmployeeID)
	if err != nil {
		return payroll.SalaryEntry{}, nil, err
	}
	updated := recalc(calc, target, emp, branchTotal)

	var managers []payroll.SalaryEntry
	for _, line := range lines {
		if line.ID == target.ID {
			continue
		}
		other, ok := employees[line.EmployeeID]
		if !ok || !other.IsBranchManager {
			continue
		}
		managers = append(managers, recalc(calc, line.SalaryEntry, other, branchTotal))
	}
	return updated, managers, nil
}

func (s *Service) employeeIndex(ctx context.Context, branchID string) (map[string]core.Employee, error) {
	employees, err := s.directory.ListEmployees(ctx, branchID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]core.Employee, len(employees))
	for _, emp := range employees {
		out[emp.ID] = emp
	}
	return out, nil
}

// lookupEmployee falls back to a direct read for employees moved to another branch.
func (s *Service) lookupEmployee(ctx context.Context, index map[string]core.Employee, employeeID string) (core.Employee, error) {
	if emp, ok := index[employeeID]; ok {
		return emp, nil
	}
	return s.directory.GetEmployee(ctx, employeeID)
}

// UpdateEntry coerces a raw form value into field, recalculates and persists the entry.
// Book counters accept only terms present in the book tier schedule.
func (s *Service) UpdateEntry(ctx context.Context, entryID, field, raw string) (payroll.SalaryEntry, error) {
	var updated payroll.SalaryEntry
	err := s.store.MutateEntry(ctx, entryID, func(ctx context.Context, sh Sheet, entry payroll.SalaryEntry) (EntryChange, error) {
		calc, schedule, err := s.calculator(ctx)
		if err != nil {
			return EntryChange{}, err
		}
		edited, err := payroll.ApplyScheduledField(entry, field, raw, schedule)
		if err != nil {
			return EntryChange{}, err
		}
		var managers []payroll.SalaryEntry
		updated, managers, err = s.recompute(ctx, sh, calc, edited)
		if err != nil {
			return EntryChange{}, err
		}
		return EntryChange{Entries: append([]payroll.SalaryEntry{updated}, managers...)}, nil
	})
	if err != nil {
		return payroll.SalaryEntry{}, err
	}
	s.logger.Debug("entry updated", zap.String("sheet_id", updated.SheetID), zap.String("entry_id", entryID), zap.String("field", field))
	return updated, nil
}

// RefreshCollections re-aggregates the entry's collections against current center
// assignments.
func (s *Service) RefreshCollections(ctx context.Context, entryID string) (payroll.SalaryEntry, error) {
	var updated payroll.SalaryEntry
	err := s.store.MutateEntry(ctx, entryID, func(ctx context.Context, sh Sheet, entry payroll.SalaryEntry) (EntryChange, error) {
		calc, _, err := s.calculator(ctx)
		if err != nil {
			return EntryChange{}, err
		}
		summary, err := s.ledger.Summarize(ctx, entry.EmployeeID, sh.Month)
		if err != nil {
			return EntryChange{}, err
		}
		var managers []payroll.SalaryEntry
		updated, managers, err = s.recompute(ctx, sh, calc, applySummary(entry.Clone(), summary))
		if err != nil {
			return EntryChange{}, err
		}
		return EntryChange{Entries: append([]payroll.SalaryEntry{updated}, managers...)}, nil
	})
	if err != nil {
		return payroll.SalaryEntry{}, err
	}
	return updated, nil
}

// ScanAccount credits a new account to the entry's book counters. A rejected scan
// returns a *payroll.Rejection and changes nothing. The credit and the account mark
// commit together, against the entry as stored when the sheet lock was taken.
func (s *Service) ScanAccount(ctx context.Context, entryID, code string) (ScanResult, error) {
	var (
		sh          Sheet
		updated     payroll.SalaryEntry
		eligibility payroll.Eligibility
	)
	err := s.store.MutateEntry(ctx, entryID, func(ctx context.Context, locked Sheet, entry payroll.SalaryEntry) (EntryChange, error) {
		sh = locked
		calc, schedule, err := s.calculator(ctx)
		if err != nil {
			return EntryChange{}, err
		}
		accounts, err := s.ledger.FindAccountsByCode(ctx, code)
		if err != nil {
			return EntryChange{}, err
		}
		eligibility, err = payroll.NewAccountValidator(s.rules, schedule).Validate(code, entry.EmployeeID, sh.BranchID, sh.Month, accounts)
		if err != nil {
			return EntryChange{}, err
		}
		updated, _, err = s.recompute(ctx, sh, calc, eligibility.Credit(entry))
		if err != nil {
			return EntryChange{}, err
		}
		return EntryChange{Entries: []payroll.SalaryEntry{updated}, AccountID: eligibility.Account.ID}, nil
	})
	if err != nil {
		if rejection, ok := payroll.AsRejection(err); ok {
			s.recordRejection(rejection)
			s.logger.Info("account scan rejected",
				zap.String("sheet_id", sh.ID), zap.String("entry_id", entryID),
				zap.String("account_code", code), zap.String("reason", string(rejection.Reason)))
			return ScanResult{}, err
		}
		s.logger.Warn("account scan failed", zap.String("entry_id", entryID), zap.String("account_code", code), zap.Error(err))
		return ScanResult{}, err
	}
	if s.metrics != nil {
		s.metrics.ScanAccepted()
	}

	account := payroll.MarkCounted(eligibility.Account, sh.Month, sh.ID)
	s.publish(ctx, events.AccountCountedTopic, account.ID, events.EventAccountCounted, events.AccountCountedEvent{
		EventID:      uuid.NewString(),
		EventType:    events.EventAccountCounted,
		AccountID:    account.ID,
		AccountCode:  account.AccountCode,
		EmployeeID:   updated.EmployeeID,
		BranchID:     sh.BranchID,
		SheetID:      sh.ID,
		CountedMonth: account.CountedMonth,
		NoBonus:      eligibility.Bucket.NoBonus,
		OccurredAt:   s.now().UTC(),
	})
	return ScanResult{Entry: updated, Account: account, Bucket: eligibility.Bucket, MonthDiff: eligibility.MonthDiff}, nil
}

func (s *Service) recordRejection(rejection *payroll.Rejection) {
	if s.metrics != nil {
		s.metrics.ScanRejected(string(rejection.Reason))
	}
}

// FinalizeSheet locks the sheet against further edits.
func (s *Service) FinalizeSheet(ctx context.Context, sheetID string) (Detail, error) {
	sh, err := s.store.Finalize(ctx, sheetID, s.now().UTC())
	if err != nil {
		return Detail{}, err
	}
	lines, err := s.store.ListLines(ctx, sheetID)
	if err != nil {
		return Detail{}, err
	}
	detail := Detail{Sheet: sh, Lines: lines, Totals: totalsOf(lines)}
	if s.metrics != nil {
		s.metrics.SheetFinalized()
	}
	s.logger.Info("salary sheet finalized", zap.String("sheet_id", sh.ID), zap.String("branch_id", sh.BranchID))
	s.publish(ctx, events.SheetFinalizedTopic, sh.ID, events.EventSheetFinalized, events.SheetFinalizedEvent{
		EventID:     uuid.NewString(),
		EventType:   events.EventSheetFinalized,
		SheetID:     sh.ID,
		BranchID:    sh.BranchID,
		Month:       sh.Month.String(),
		EntryCount:  len(lines),
		TotalPayout: detail.Totals.FinalSalary,
		OccurredAt:  s.now().UTC(),
	})
	return detail, nil
}

// publish is best effort; the database is the source of truth.
func (s *Service) publish(ctx context.Context, topic, key, eventType string, payload any) {
	if err := s.publisher.Publish(ctx, topic, key, eventType, payload); err != nil {
		s.logger.Warn("event publish failed", zap.String("topic", topic), zap.String("key", key), zap.Error(err))
	}
}

func totalsOf(lines []Line) Totals {
	commission, bonus, convenience, deductions, final := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	books := 0
	for _, line := range lines {
		commission = commission.Add(decimal.NewFromFloat(line.Commission))
		bonus = bonus.Add(decimal.NewFromFloat(line.Bonus))
		convenience = convenience.Add(decimal.NewFromFloat(line.ManagerConvenience))
		deductions = deductions.Add(decimal.NewFromFloat(line.TotalDeductions))
		final = final.Add(decimal.NewFromFloat(line.FinalSalary))
		books += line.TotalBooks
	}
	return Totals{
		Commission:      commission.InexactFloat64(),
		Bonus:           bonus.InexactFloat64(),
		Convenience:     convenience.InexactFloat64(),
		TotalDeductions: deductions.InexactFloat64(),
		FinalSalary:     final.InexactFloat64(),
		TotalBooks:      books,
	}
}

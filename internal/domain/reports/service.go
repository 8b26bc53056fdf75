package reports

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fieldpay/internal/domain/core"
	"fieldpay/internal/domain/payroll"
	"fieldpay/internal/platform/logging"
)

type Directory interface {
	GetBranch(ctx context.Context, branchID string) (core.Branch, error)
	ListEmployees(ctx context.Context, branchID string) ([]core.Employee, error)
	CenterDirectory(ctx context.Context) (*payroll.CenterDirectory, error)
}

type Ledger interface {
	ListBranchRecords(ctx context.Context, branchID string, month payroll.Month) ([]payroll.CollectionRecord, error)
}

type Row struct {
	payroll.CollectionSummary
	Name            string  `json:"name"`
	Designation     string  `json:"designation"`
	IsBranchManager bool    `json:"isBranchManager"`
	SomityTotal     float64 `json:"somityTotal"`
}

type BranchCollectionReport struct {
	BranchID              string        `json:"branchId"`
	Month                 payroll.Month `json:"month"`
	Rows                  []Row         `json:"rows"`
	OwnTotal              float64       `json:"ownTotal"`
	OfficeTotal           float64       `json:"officeTotal"`
	LoanTotal             float64       `json:"loanTotal"`
	BranchTotalCollection float64       `json:"branchTotalCollection"`
}

type Service struct {
	directory Directory
	ledger    Ledger
	logger    *zap.Logger
}

func NewService(directory Directory, ledger Ledger, logger ...*zap.Logger) *Service {
	return &Service{directory: directory, ledger: ledger, logger: logging.Named("reports", logger...)}
}

// BranchCollection recomputes every employee's own/office split against the current
// center assignments. Stored record classifications are never read. Rows and totals
// both come from the branch's own records, so a row never includes collections the
// employee booked at another branch.
func (s *Service) BranchCollection(ctx context.Context, branchID string, month payroll.Month) (BranchCollectionReport, error) {
	if _, err := s.directory.GetBranch(ctx, branchID); err != nil {
		return BranchCollectionReport{}, err
	}
	employees, err := s.directory.ListEmployees(ctx, branchID)
	if err != nil {
		return BranchCollectionReport{}, err
	}
	centers, err := s.directory.CenterDirectory(ctx)
	if err != nil {
		return BranchCollectionReport{}, err
	}
	records, err := s.ledger.ListBranchRecords(ctx, branchID, month)
	if err != nil {
		return BranchCollectionReport{}, fmt.Errorf("list collections for branch %s: %w", branchID, err)
	}

	report := BranchCollectionReport{BranchID: branchID, Month: month, Rows: make([]Row, 0, len(employees))}
	own, office, loan := decimal.Zero, decimal.Zero, decimal.Zero
	for _, emp := range employees {
		summary := payroll.AggregateCollections(emp.ID, month, records, centers)
		ownAmount := decimal.NewFromFloat(summary.OwnCollection)
		officeAmount := decimal.NewFromFloat(summary.OfficeCollection)
		report.Rows = append(report.Rows, Row{
			CollectionSummary: summary,
			Name:              emp.Name,
			Designation:       emp.Designation,
			IsBranchManager:   emp.IsBranchManager,
			SomityTotal:       ownAmount.Add(officeAmount).InexactFloat64(),
		})
		own = own.Add(ownAmount)
		office = office.Add(officeAmount)
		loan = loan.Add(decimal.NewFromFloat(summary.TotalLoanCollection))
	}
	report.OwnTotal = own.InexactFloat64()
	report.OfficeTotal = office.InexactFloat64()
	report.LoanTotal = loan.InexactFloat64()
	report.BranchTotalCollection = payroll.BranchTotalCollection(branchID, month, records)

	s.logger.Debug("branch collection report built",
		zap.String("branch_id", branchID), zap.Stringer("month", month),
		zap.Int("rows", len(report.Rows)), zap.Int("records", len(records)))
	return report, nil
}

package core

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"fieldpay/internal/domain/payroll"
	"fieldpay/internal/platform/cache"
	"fieldpay/internal/platform/logging"
)

const rateSnapshotKey = "rates:snapshot"

type MasterStore interface {
	ListBranches(ctx context.Context) ([]Branch, error)
	GetBranch(ctx context.Context, branchID string) (Branch, error)
	CreateBranch(ctx context.Context, b Branch) (Branch, error)
	ListEmployees(ctx context.Context, branchID string, activeOnly bool) ([]Employee, error)
	GetEmployee(ctx context.Context, employeeID string) (Employee, error)
	CreateEmployee(ctx context.Context, emp Employee) (Employee, error)
	UpdateEmployee(ctx context.Context, emp Employee) (Employee, error)
	ListCenters(ctx context.Context, branchID string) ([]payroll.Center, error)
	UpsertCenter(ctx context.Context, c payroll.Center) error
	ListCommissionStructures(ctx context.Context) ([]payroll.CommissionStructure, error)
	UpsertCommissionStructure(ctx context.Context, cs payroll.CommissionStructure) error
	DeleteCommissionStructure(ctx context.Context, typeCode string) error
	ListBookTiers(ctx context.Context) ([]payroll.BookTier, error)
	UpsertBookTier(ctx context.Context, tier payroll.BookTier) error
}

type Service struct {
	store  MasterStore
	cache  *cache.JSONCache
	logger *zap.Logger
}

func NewService(store MasterStore, rateCache *cache.JSONCache, logger ...*zap.Logger) *Service {
	return &Service{store: store, cache: rateCache, logger: logging.Named("core.service", logger...)}
}

func (s *Service) ListBranches(ctx context.Context) ([]Branch, error) {
	return s.store.ListBranches(ctx)
}

func (s *Service) GetBranch(ctx context.Context, branchID string) (Branch, error) {
	return s.store.GetBranch(ctx, branchID)
}

func (s *Service) CreateBranch(ctx context.Context, b Branch) (Branch, error) {
	b.Code = strings.TrimSpace(b.Code)
	b.Name = strings.TrimSpace(b.Name)
	return s.store.CreateBranch(ctx, b)
}

func (s *Service) ListEmployees(ctx context.Context, branchID string) ([]Employee, error) {
	return s.store.ListEmployees(ctx, branchID, false)
}

// ActiveEmployees lists the employees that receive a salary entry on a new sheet.
func (s *Service) ActiveEmployees(ctx context.Context, branchID string) ([]Employee, error) {
	return s.store.ListEmployees(ctx, branchID, true)
}

func (s *Service) GetEmployee(ctx context.Context, employeeID string) (Employee, error) {
	return s.store.GetEmployee(ctx, employeeID)
}

func (s *Service) CreateEmployee(ctx context.Context, emp Employee) (Employee, error) {
	if _, err := s.store.GetBranch(ctx, emp.BranchID); err != nil {
		return Employee{}, err
	}
	if emp.Status == "" {
		emp.Status = EmployeeStatusActive
	}
	emp.Name = strings.TrimSpace(emp.Name)
	return s.store.CreateEmployee(ctx, emp)
}

func (s *Service) UpdateEmployee(ctx context.Context, emp Employee) (Employee, error) {
	if _, err := s.store.GetBranch(ctx, emp.BranchID); err != nil {
		return Employee{}, err
	}
	if emp.Status == "" {
		emp.Status = EmployeeStatusActive
	}
	return s.store.UpdateEmployee(ctx, emp)
}

func (s *Service) ListCenters(ctx context.Context, branchID string) ([]payroll.Center, error) {
	return s.store.ListCenters(ctx, branchID)
}

// UpsertCenter creates or reassigns a center. Reassignment reclassifies every past
// collection at that center on the next aggregation.
func (s *Service) UpsertCenter(ctx context.Context, c payroll.Center) error {
	if c.AssignedEmployeeID != "" {
		emp, err := s.store.GetEmployee(ctx, c.AssignedEmployeeID)
		if err != nil {
			return err
		}
		if c.BranchID == "" {
			c.BranchID = emp.BranchID
		}
	}
	if err := s.store.UpsertCenter(ctx, c); err != nil {
		return err
	}
	s.logger.Info("center upserted",
		zap.String("branch_id", c.BranchID),
		zap.String("center_code", c.CenterCode),
		zap.String("assigned_employee_id", c.AssignedEmployeeID))
	return nil
}

// CenterDirectory snapshots the full center table for ownership resolution.
func (s *Service) CenterDirectory(ctx context.Context) (*payroll.CenterDirectory, error) {
	centers, err := s.store.ListCenters(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("load centers: %w", err)
	}
	return payroll.NewCenterDirectory(centers), nil
}

func (s *Service) ListCommissionStructures(ctx context.Context) ([]payroll.CommissionStructure, error) {
	return s.store.ListCommissionStructures(ctx)
}

func (s *Service) UpsertCommissionStructure(ctx context.Context, cs payroll.CommissionStructure) error {
	cs.TypeCode = strings.TrimSpace(cs.TypeCode)
	if cs.OwnRatePercent < 0 || cs.OfficeRatePercent < 0 {
		return ErrInvalidRate
	}
	if err := s.store.UpsertCommissionStructure(ctx, cs); err != nil {
		return err
	}
	s.invalidateRates(ctx)
	return nil
}

func (s *Service) DeleteCommissionStructure(ctx context.Context, typeCode string) error {
	if err := s.store.DeleteCommissionStructure(ctx, typeCode); err != nil {
		return err
	}
	s.invalidateRates(ctx)
	return nil
}

func (s *Service) ListBookTiers(ctx context.Context) ([]payroll.BookTier, error) {
	return s.store.ListBookTiers(ctx)
}

func (s *Service) UpsertBookTier(ctx context.Context, tier payroll.BookTier) error {
	if tier.Term <= 0 {
		return ErrInvalidTerm
	}
	if tier.Amount < 0 {
		return ErrInvalidRate
	}
	if err := s.store.UpsertBookTier(ctx, tier); err != nil {
		return err
	}
	s.invalidateRates(ctx)
	return nil
}

// RateSnapshot reads both rate tables through the cache.
func (s *Service) RateSnapshot(ctx context.Context) (RateSnapshot, error) {
	return cache.GetOrLoad(ctx, s.cache, rateSnapshotKey, func(ctx context.Context) (RateSnapshot, error) {
		structures, err := s.store.ListCommissionStructures(ctx)
		if err != nil {
			return RateSnapshot{}, fmt.Errorf("load commission structures: %w", err)
		}
		tiers, err := s.store.ListBookTiers(ctx)
		if err != nil {
			return RateSnapshot{}, fmt.Errorf("load book tiers: %w", err)
		}
		return RateSnapshot{Structures: structures, Tiers: tiers}, nil
	})
}

func (s *Service) invalidateRates(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, rateSnapshotKey); err != nil {
		s.logger.Warn("rate cache invalidation failed", zap.Error(err))
	}
}

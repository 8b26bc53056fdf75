package core

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"fieldpay/internal/domain/payroll"
	"fieldpay/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *Store) ListBranches(ctx context.Context) ([]Branch, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, code, name, created_at
    FROM branches
    ORDER BY code
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Branch
	for rows.Next() {
		var b Branch
		if err := rows.Scan(&b.ID, &b.Code, &b.Name, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) GetBranch(ctx context.Context, branchID string) (Branch, error) {
	var b Branch
	err := s.DB.QueryRow(ctx, `
    SELECT id, code, name, created_at
    FROM branches
    WHERE id = $1
  `, branchID).Scan(&b.ID, &b.Code, &b.Name, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Branch{}, ErrBranchNotFound
	}
	return b, err
}

func (s *Store) CreateBranch(ctx context.Context, b Branch) (Branch, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO branches (code, name)
    VALUES ($1,$2)
    RETURNING id, created_at
  `, b.Code, b.Name).Scan(&b.ID, &b.CreatedAt)
	if isUniqueViolation(err) {
		return Branch{}, ErrDuplicateCode
	}
	return b, err
}

const employeeColumns = `id, branch_id, name, designation, base_salary, commission_type, is_branch_manager, status, created_at, updated_at`

func scanEmployee(row pgx.Row) (Employee, error) {
	var emp Employee
	var salary float64
	if err := row.Scan(
		&emp.ID, &emp.BranchID, &emp.Name, &emp.Designation, &salary, &emp.CommissionType,
		&emp.IsBranchManager, &emp.Status, &emp.CreatedAt, &emp.UpdatedAt,
	); err != nil {
		return Employee{}, err
	}
	emp.BaseSalary = &salary
	return emp, nil
}

func (s *Store) ListEmployees(ctx context.Context, branchID string, activeOnly bool) ([]Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE branch_id = $1`
	if activeOnly {
		query += ` AND status = 'active'`
	}
	query += ` ORDER BY name`
	rows, err := s.DB.Query(ctx, query, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *Store) GetEmployee(ctx context.Context, employeeID string) (Employee, error) {
	emp, err := scanEmployee(s.DB.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, employeeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrEmployeeNotFound
	}
	return emp, err
}

func (s *Store) CreateEmployee(ctx context.Context, emp Employee) (Employee, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO employees (branch_id, name, designation, base_salary, commission_type, is_branch_manager, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id, created_at, updated_at
  `, emp.BranchID, emp.Name, emp.Designation, emp.Salary(), emp.CommissionType, emp.IsBranchManager, emp.Status,
	).Scan(&emp.ID, &emp.CreatedAt, &emp.UpdatedAt)
	return emp, err
}

func (s *Store) UpdateEmployee(ctx context.Context, emp Employee) (Employee, error) {
	err := s.DB.QueryRow(ctx, `
    UPDATE employees
    SET branch_id = $2, name = $3, designation = $4, base_salary = $5, commission_type = $6,
        is_branch_manager = $7, status = $8, updated_at = now()
    WHERE id = $1
    RETURNING created_at, updated_at
  `, emp.ID, emp.BranchID, emp.Name, emp.Designation, emp.Salary(), emp.CommissionType, emp.IsBranchManager, emp.Status,
	).Scan(&emp.CreatedAt, &emp.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrEmployeeNotFound
	}
	return emp, err
}

// ListCenters returns every center when branchID is empty.
func (s *Store) ListCenters(ctx context.Context, branchID string) ([]payroll.Center, error) {
	query := `SELECT branch_id, center_code, COALESCE(assigned_employee_id::text, ''), type FROM centers`
	var args []any
	if branchID != "" {
		query += ` WHERE branch_id = $1`
		args = append(args, branchID)
	}
	query += ` ORDER BY branch_id, center_code`
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []payroll.Center
	for rows.Next() {
		var c payroll.Center
		if err := rows.Scan(&c.BranchID, &c.CenterCode, &c.AssignedEmployeeID, &c.Type); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpsertCenter(ctx context.Context, c payroll.Center) error {
	var assigned any
	if c.AssignedEmployeeID != "" {
		assigned = c.AssignedEmployeeID
	}
	_, err := s.DB.Exec(ctx, `
    INSERT INTO centers (branch_id, center_code, assigned_employee_id, type)
    VALUES ($1,$2,$3,$4)
    ON CONFLICT (branch_id, center_code)
    DO UPDATE SET assigned_employee_id = EXCLUDED.assigned_employee_id, type = EXCLUDED.type, updated_at = now()
  `, c.BranchID, strings.TrimSpace(c.CenterCode), assigned, strings.ToUpper(strings.TrimSpace(c.Type)))
	return err
}

func (s *Store) ListCommissionStructures(ctx context.Context) ([]payroll.CommissionStructure, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT type_code, own_rate_percent, office_rate_percent
    FROM commission_structures
    ORDER BY type_code
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []payroll.CommissionStructure
	for rows.Next() {
		var cs payroll.CommissionStructure
		if err := rows.Scan(&cs.TypeCode, &cs.OwnRatePercent, &cs.OfficeRatePercent); err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

func (s *Store) UpsertCommissionStructure(ctx context.Context, cs payroll.CommissionStructure) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO commission_structures (type_code, own_rate_percent, office_rate_percent)
    VALUES ($1,$2,$3)
    ON CONFLICT (type_code)
    DO UPDATE SET own_rate_percent = EXCLUDED.own_rate_percent, office_rate_percent = EXCLUDED.office_rate_percent
  `, cs.TypeCode, cs.OwnRatePercent, cs.OfficeRatePercent)
	return err
}

func (s *Store) DeleteCommissionStructure(ctx context.Context, typeCode string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM commission_structures WHERE type_code = $1`, typeCode)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCommissionTypeNotFound
	}
	return nil
}

func (s *Store) ListBookTiers(ctx context.Context) ([]payroll.BookTier, error) {
	rows, err := s.DB.Query(ctx, `SELECT term, amount FROM book_tiers ORDER BY term`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []payroll.BookTier
	for rows.Next() {
		var term, amount float64
		if err := rows.Scan(&term, &amount); err != nil {
			return nil, err
		}
		out = append(out, payroll.BookTier{Term: payroll.Term(term), Amount: amount})
	}
	return out, rows.Err()
}

func (s *Store) UpsertBookTier(ctx context.Context, tier payroll.BookTier) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO book_tiers (term, amount)
    VALUES ($1,$2)
    ON CONFLICT (term) DO UPDATE SET amount = EXCLUDED.amount
  `, float64(tier.Term), tier.Amount)
	return err
}

package collection

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"fieldpay/internal/domain/payroll"
	"fieldpay/internal/platform/querier"
)

type Store struct {
	DB querier.TxBeginner
}

func NewStore(db querier.TxBeginner) *Store {
	return &Store{DB: db}
}

func insertRecord(ctx context.Context, q querier.Querier, r payroll.CollectionRecord) (payroll.CollectionRecord, error) {
	err := q.QueryRow(ctx, `
    INSERT INTO collection_records (employee_id, branch_id, center_code, amount, loan_amount, recorded_type, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id
  `, r.EmployeeID, r.BranchID, r.CenterCode, r.Amount, r.LoanAmount, string(r.RecordedType), r.CreatedAt).Scan(&r.ID)
	return r, err
}

func (s *Store) InsertRecord(ctx context.Context, r payroll.CollectionRecord) (payroll.CollectionRecord, error) {
	return insertRecord(ctx, s.DB, r)
}

// InsertRecords writes all records or none.
func (s *Store) InsertRecords(ctx context.Context, records []payroll.CollectionRecord) ([]payroll.CollectionRecord, error) {
	out := make([]payroll.CollectionRecord, 0, len(records))
	err := querier.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		for _, r := range records {
			saved, err := insertRecord(ctx, tx, r)
			if err != nil {
				return err
			}
			out = append(out, saved)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

const recordColumns = `id, employee_id, branch_id, center_code, amount, loan_amount, recorded_type, created_at`

func scanRecords(rows pgx.Rows) ([]payroll.CollectionRecord, error) {
	defer rows.Close()
	var out []payroll.CollectionRecord
	for rows.Next() {
		var r payroll.CollectionRecord
		var recorded string
		if err := rows.Scan(&r.ID, &r.EmployeeID, &r.BranchID, &r.CenterCode, &r.Amount, &r.LoanAmount, &recorded, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.RecordedType = payroll.Ownership(recorded)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) ListBranchRecords(ctx context.Context, branchID string, month payroll.Month) ([]payroll.CollectionRecord, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+recordColumns+`
    FROM collection_records
    WHERE branch_id = $1 AND created_at >= $2 AND created_at < $3
    ORDER BY created_at
  `, branchID, month.Start(), month.End())
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func (s *Store) ListEmployeeRecords(ctx context.Context, employeeID string, month payroll.Month) ([]payroll.CollectionRecord, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+recordColumns+`
    FROM collection_records
    WHERE employee_id = $1 AND created_at >= $2 AND created_at < $3
    ORDER BY created_at
  `, employeeID, month.Start(), month.End())
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func (s *Store) InsertAccount(ctx context.Context, a payroll.AccountOpening) (payroll.AccountOpening, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO account_openings (account_code, employee_id, branch_id, term, collection_amount, opening_date)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id
  `, a.AccountCode, a.EmployeeID, a.BranchID, float64(a.Term), a.CollectionAmount, a.OpeningDate).Scan(&a.ID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return payroll.AccountOpening{}, ErrDuplicateAccount
	}
	return a, err
}

const accountColumns = `id, account_code, employee_id, branch_id, term, collection_amount, opening_date, is_counted, counted_month, COALESCE(salary_sheet_id::text, '')`

func scanAccounts(rows pgx.Rows) ([]payroll.AccountOpening, error) {
	defer rows.Close()
	var out []payroll.AccountOpening
	for rows.Next() {
		var a payroll.AccountOpening
		var term float64
		if err := rows.Scan(&a.ID, &a.AccountCode, &a.EmployeeID, &a.BranchID, &term, &a.CollectionAmount,
			&a.OpeningDate, &a.IsCounted, &a.CountedMonth, &a.SalarySheetID); err != nil {
			return nil, err
		}
		a.Term = payroll.Term(term)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) ListAccounts(ctx context.Context, branchID string) ([]payroll.AccountOpening, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+accountColumns+`
    FROM account_openings
    WHERE branch_id = $1
    ORDER BY created_at DESC
  `, branchID)
	if err != nil {
		return nil, err
	}
	return scanAccounts(rows)
}

// FindAccountsByCode matches the code case-insensitively across all branches.
func (s *Store) FindAccountsByCode(ctx context.Context, code string) ([]payroll.AccountOpening, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+accountColumns+`
    FROM account_openings
    WHERE lower(account_code) = lower(trim($1))
  `, code)
	if err != nil {
		return nil, err
	}
	return scanAccounts(rows)
}

// MarkAccountCounted flips an uncounted account to counted. It runs on any querier so
// callers can join it to a wider transaction.
func MarkAccountCounted(ctx context.Context, q querier.Querier, accountID string, month payroll.Month, sheetID string) error {
	var sheet any
	if sheetID != "" {
		sheet = sheetID
	}
	tag, err := q.Exec(ctx, `
    UPDATE account_openings
    SET is_counted = true, counted_month = $2, salary_sheet_id = $3
    WHERE id = $1 AND is_counted = false
  `, accountID, month.String(), sheet)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM account_openings WHERE id = $1)`, accountID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrAccountNotFound
		}
		return ErrAlreadyCounted
	}
	return nil
}

func (s *Store) MarkCounted(ctx context.Context, accountID string, month payroll.Month, sheetID string) error {
	return MarkAccountCounted(ctx, s.DB, accountID, month, sheetID)
}

package sheet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"

	"fieldpay/internal/domain/collection"
	"fieldpay/internal/domain/payroll"
	"fieldpay/internal/platform/querier"
)

type Store struct {
	DB querier.TxBeginner
}

func NewStore(db querier.TxBeginner) *Store {
	return &Store{DB: db}
}

const entryColumns = `
  id, sheet_id, employee_id,
  basic_salary, own_somity_collection, own_somity_count, office_somity_collection, office_somity_count,
  center_collection, center_count, total_loan_collection, book_counts, no_bonus_books,
  late_hours, absent_days, cash_advance, misconduct, unlawful, tours, other_deductions, manager_convenience,
  total_books, total_collection, collection_commission, book_commission, commission, bonus,
  late_deduction, absent_deduction, total_deductions, final_salary`

func entryFields(e *payroll.SalaryEntry, books *[]byte) []any {
	return []any{
		&e.ID, &e.SheetID, &e.EmployeeID,
		&e.BasicSalary, &e.OwnSomityCollection, &e.OwnSomityCount, &e.OfficeSomityCollection, &e.OfficeSomityCount,
		&e.CenterCollection, &e.CenterCount, &e.TotalLoanCollection, books, &e.NoBonusBooks,
		&e.LateHours, &e.AbsentDays, &e.CashAdvance, &e.Misconduct, &e.Unlawful, &e.Tours, &e.OtherDeductions, &e.ManagerConvenience,
		&e.TotalBooks, &e.TotalCollection, &e.CollectionCommission, &e.BookCommission, &e.Commission, &e.Bonus,
		&e.LateDeduction, &e.AbsentDeduction, &e.TotalDeductions, &e.FinalSalary,
	}
}

func decodeBooks(raw []byte) (map[payroll.Term]int, error) {
	books := map[payroll.Term]int{}
	if len(raw) == 0 {
		return books, nil
	}
	if err := json.Unmarshal(raw, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func encodeBooks(books map[payroll.Term]int) ([]byte, error) {
	if books == nil {
		books = map[payroll.Term]int{}
	}
	return json.Marshal(books)
}

func insertEntry(ctx context.Context, q querier.Querier, e payroll.SalaryEntry) (payroll.SalaryEntry, error) {
	books, err := encodeBooks(e.BookCounts)
	if err != nil {
		return e, err
	}
	err = q.QueryRow(ctx, `
    INSERT INTO salary_entries (
      sheet_id, employee_id,
      basic_salary, own_somity_collection, own_somity_count, office_somity_collection, office_somity_count,
      center_collection, center_count, total_loan_collection, book_counts, no_bonus_books,
      late_hours, absent_days, cash_advance, misconduct, unlawful, tours, other_deductions, manager_convenience,
      total_books, total_collection, collection_commission, book_commission, commission, bonus,
      late_deduction, absent_deduction, total_deductions, final_salary)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30)
    RETURNING id
  `, e.SheetID, e.EmployeeID,
		e.BasicSalary, e.OwnSomityCollection, e.OwnSomityCount, e.OfficeSomityCollection, e.OfficeSomityCount,
		e.CenterCollection, e.CenterCount, e.TotalLoanCollection, books, e.NoBonusBooks,
		e.LateHours, e.AbsentDays, e.CashAdvance, e.Misconduct, e.Unlawful, e.Tours, e.OtherDeductions, e.ManagerConvenience,
		e.TotalBooks, e.TotalCollection, e.CollectionCommission, e.BookCommission, e.Commission, e.Bonus,
		e.LateDeduction, e.AbsentDeduction, e.TotalDeductions, e.FinalSalary,
	).Scan(&e.ID)
	return e, err
}

func updateEntry(ctx context.Context, q querier.Querier, e payroll.SalaryEntry) error {
	books, err := encodeBooks(e.BookCounts)
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx, `
    UPDATE salary_entries SET
      basic_salary = $2, own_somity_collection = $3, own_somity_count = $4, office_somity_collection = $5,
      office_somity_count = $6, center_collection = $7, center_count = $8, total_loan_collection = $9,
      book_counts = $10, no_bonus_books = $11, late_hours = $12, absent_days = $13, cash_advance = $14,
      misconduct = $15, unlawful = $16, tours = $17, other_deductions = $18, manager_convenience = $19,
      total_books = $20, total_collection = $21, collection_commission = $22, book_commission = $23,
      commission = $24, bonus = $25, late_deduction = $26, absent_deduction = $27, total_deductions = $28,
      final_salary = $29, updated_at = now()
    WHERE id = $1
  `, e.ID,
		e.BasicSalary, e.OwnSomityCollection, e.OwnSomityCount, e.OfficeSomityCollection,
		e.OfficeSomityCount, e.CenterCollection, e.CenterCount, e.TotalLoanCollection,
		books, e.NoBonusBooks, e.LateHours, e.AbsentDays, e.CashAdvance,
		e.Misconduct, e.Unlawful, e.Tours, e.OtherDeductions, e.ManagerConvenience,
		e.TotalBooks, e.TotalCollection, e.CollectionCommission, e.BookCommission,
		e.Commission, e.Bonus, e.LateDeduction, e.AbsentDeduction, e.TotalDeductions,
		e.FinalSalary,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// CreateSheet inserts the sheet and all its entries in one transaction.
func (s *Store) CreateSheet(ctx context.Context, sh Sheet, entries []payroll.SalaryEntry) (Sheet, []payroll.SalaryEntry, error) {
	saved := make([]payroll.SalaryEntry, 0, len(entries))
	err := querier.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
      INSERT INTO salary_sheets (branch_id, month, status)
      VALUES ($1,$2,$3)
      RETURNING id, created_at
    `, sh.BranchID, sh.Month.String(), sh.Status).Scan(&sh.ID, &sh.CreatedAt); err != nil {
			return err
		}
		for _, e := range entries {
			e.SheetID = sh.ID
			out, err := insertEntry(ctx, tx, e)
			if err != nil {
				return err
			}
			saved = append(saved, out)
		}
		return nil
	})
	if err != nil {
		return Sheet{}, nil, err
	}
	return sh, saved, nil
}

func scanSheet(row pgx.Row) (Sheet, error) {
	var sh Sheet
	var month string
	if err := row.Scan(&sh.ID, &sh.BranchID, &month, &sh.Status, &sh.CreatedAt, &sh.FinalizedAt); err != nil {
		return Sheet{}, err
	}
	parsed, err := payroll.ParseMonth(month)
	if err != nil {
		return Sheet{}, err
	}
	sh.Month = parsed
	return sh, nil
}

const sheetColumns = `id, branch_id, month, status, created_at, finalized_at`

func getSheet(ctx context.Context, q querier.Querier, sheetID string) (Sheet, error) {
	sh, err := scanSheet(q.QueryRow(ctx, `SELECT `+sheetColumns+` FROM salary_sheets WHERE id = $1`, sheetID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Sheet{}, ErrSheetNotFound
	}
	return sh, err
}

func (s *Store) GetSheet(ctx context.Context, sheetID string) (Sheet, error) {
	return getSheet(ctx, s.DB, sheetID)
}

func (s *Store) ListSheets(ctx context.Context, branchID string) ([]Sheet, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+sheetColumns+`
    FROM salary_sheets
    WHERE branch_id = $1
    ORDER BY month DESC, created_at DESC
  `, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Sheet
	for rows.Next() {
		sh, err := scanSheet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

func (s *Store) ListLines(ctx context.Context, sheetID string) ([]Line, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+prefixed("se", entryColumns)+`, e.name, e.designation
    FROM salary_entries se
    JOIN employees e ON e.id = se.employee_id
    WHERE se.sheet_id = $1
    ORDER BY e.name
  `, sheetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var line Line
		var books []byte
		dest := append(entryFields(&line.SalaryEntry, &books), &line.EmployeeName, &line.Designation)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if line.BookCounts, err = decodeBooks(books); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

func getEntry(ctx context.Context, q querier.Querier, entryID string, forUpdate bool) (payroll.SalaryEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM salary_entries WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var e payroll.SalaryEntry
	var books []byte
	err := q.QueryRow(ctx, query, entryID).Scan(entryFields(&e, &books)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return payroll.SalaryEntry{}, ErrEntryNotFound
	}
	if err != nil {
		return payroll.SalaryEntry{}, err
	}
	if e.BookCounts, err = decodeBooks(books); err != nil {
		return payroll.SalaryEntry{}, err
	}
	return e, nil
}

func (s *Store) GetEntry(ctx context.Context, entryID string) (payroll.SalaryEntry, error) {
	return getEntry(ctx, s.DB, entryID, false)
}

// MutateEntry serializes writers on a sheet. It locks the draft sheet, re-reads the
// entry row under that lock and hands it to fn. The entries fn returns, and the account
// it names, are written in the same transaction.
func (s *Store) MutateEntry(ctx context.Context, entryID string, fn EntryMutation) error {
	return querier.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		var sheetID string
		err := tx.QueryRow(ctx, `SELECT sheet_id FROM salary_entries WHERE id = $1`, entryID).Scan(&sheetID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrEntryNotFound
		}
		if err != nil {
			return err
		}
		if err := lockDraft(ctx, tx, sheetID); err != nil {
			return err
		}
		sh, err := getSheet(ctx, tx, sheetID)
		if err != nil {
			return err
		}
		entry, err := getEntry(ctx, tx, entryID, true)
		if err != nil {
			return err
		}

		change, err := fn(ctx, sh, entry)
		if err != nil {
			return err
		}
		if change.AccountID != "" {
			if err := collection.MarkAccountCounted(ctx, tx, change.AccountID, sh.Month, sh.ID); err != nil {
				return err
			}
		}
		for _, e := range change.Entries {
			if e.SheetID != sh.ID {
				return fmt.Errorf("entry %s does not belong to sheet %s", e.ID, sh.ID)
			}
			if err := updateEntry(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Finalize(ctx context.Context, sheetID string, at time.Time) (Sheet, error) {
	var out Sheet
	err := querier.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		if err := lockDraft(ctx, tx, sheetID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
      UPDATE salary_sheets SET status = $2, finalized_at = $3 WHERE id = $1
    `, sheetID, StatusFinalized, at); err != nil {
			return err
		}
		sh, err := getSheet(ctx, tx, sheetID)
		out = sh
		return err
	})
	return out, err
}

func lockDraft(ctx context.Context, tx pgx.Tx, sheetID string) error {
	var status string
	err := tx.QueryRow(ctx, `SELECT status FROM salary_sheets WHERE id = $1 FOR UPDATE`, sheetID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrSheetNotFound
	}
	if err != nil {
		return err
	}
	if status != StatusDraft {
		return ErrSheetFinalized
	}
	return nil
}

func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

package sheet

import (
	"time"

	"fieldpay/internal/domain/payroll"
)

const (
	StatusDraft     = "draft"
	StatusFinalized = "finalized"
)

type Sheet struct {
	ID          string        `json:"id"`
	BranchID    string        `json:"branchId"`
	Month       payroll.Month `json:"month"`
	Status      string        `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	FinalizedAt *time.Time    `json:"finalizedAt,omitempty"`
}

func (s Sheet) Finalized() bool {
	return s.Status == StatusFinalized
}

// Line is a salary entry joined with the employee columns shown on the sheet.
type Line struct {
	payroll.SalaryEntry
	EmployeeName string `json:"employeeName"`
	Designation  string `json:"designation"`
}

type Detail struct {
	Sheet
	Lines  []Line `json:"lines"`
	Totals Totals `json:"totals"`
}

type Totals struct {
	Commission      float64 `json:"commission"`
	Bonus           float64 `json:"bonus"`
	Convenience     float64 `json:"managerConvenience"`
	TotalDeductions float64 `json:"totalDeductions"`
	FinalSalary     float64 `json:"finalSalary"`
	TotalBooks      int     `json:"totalBooks"`
}

type ScanResult struct {
	Entry     payroll.SalaryEntry    `json:"entry"`
	Account   payroll.AccountOpening `json:"account"`
	Bucket    payroll.Bucket         `json:"bucket"`
	MonthDiff int                    `json:"monthDiff"`
}

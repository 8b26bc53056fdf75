package events

import "time"

const (
	AccountCountedTopic = "fieldpay.payroll.account.counted.v1"
	SheetFinalizedTopic = "fieldpay.payroll.sheet.finalized.v1"

	EventAccountCounted = "account_counted"
	EventSheetFinalized = "sheet_finalized"
)

type AccountCountedEvent struct {
	EventID      string    `json:"event_id"`
	EventType    string    `json:"event_type"`
	AccountID    string    `json:"account_id"`
	AccountCode  string    `json:"account_code"`
	EmployeeID   string    `json:"employee_id"`
	BranchID     string    `json:"branch_id"`
	SheetID      string    `json:"sheet_id"`
	CountedMonth string    `json:"counted_month"`
	NoBonus      bool      `json:"no_bonus"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type SheetFinalizedEvent struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	SheetID     string    `json:"sheet_id"`
	BranchID    string    `json:"branch_id"`
	Month       string    `json:"month"`
	EntryCount  int       `json:"entry_count"`
	TotalPayout float64   `json:"total_payout"`
	OccurredAt  time.Time `json:"occurred_at"`
}

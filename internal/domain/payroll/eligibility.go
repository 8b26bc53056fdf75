package payroll

import (
	"strings"
	"time"
)

const openingDateLayout = "2006-01-02"

// Bucket is the book counter an accepted account is credited to.
type Bucket struct {
	Term    Term    `json:"term"`
	NoBonus bool    `json:"noBonus"`
	Amount  float64 `json:"amount"`
}

// Eligibility is an accepted scan: the matched account and its bucket.
type Eligibility struct {
	Account   AccountOpening `json:"account"`
	Bucket    Bucket         `json:"bucket"`
	MonthDiff int            `json:"monthDiff"`
}

// AccountValidator decides whether an account code may be credited to a sheet.
type AccountValidator struct {
	Rules    Rules
	Schedule BookTierSchedule
}

func NewAccountValidator(rules Rules, schedule BookTierSchedule) AccountValidator {
	return AccountValidator{Rules: rules, Schedule: schedule}
}

// Validate checks code against accounts for the scanning employee. The first failing
// check wins; a failure is returned as a *Rejection. Validation never marks the
// account counted.
func (v AccountValidator) Validate(code, employeeID, branchID string, sheetMonth Month, accounts []AccountOpening) (Eligibility, error) {
	account, ok := findAccount(code, accounts)
	if !ok {
		return Eligibility{}, reject(ReasonNotFound, code)
	}
	if account.EmployeeID != employeeID {
		return Eligibility{}, reject(ReasonOwnershipMismatch, account.AccountCode)
	}
	if account.BranchID != branchID {
		return Eligibility{}, reject(ReasonBranchMismatch, account.AccountCode)
	}
	if account.IsCounted {
		if account.CountedMonth == sheetMonth.String() {
			return Eligibility{}, reject(ReasonDuplicateInSheet, account.AccountCode)
		}
		rejection := reject(ReasonAlreadyUsed, account.AccountCode)
		rejection.CountedMonth = account.CountedMonth
		return Eligibility{}, rejection
	}
	if Sanitize(account.CollectionAmount) < v.Rules.MinBookCollection {
		return Eligibility{}, reject(ReasonBelowFloor, account.AccountCode)
	}

	opened, err := time.Parse(openingDateLayout, strings.TrimSpace(account.OpeningDate))
	if err != nil {
		return Eligibility{}, reject(ReasonOrderingError, account.AccountCode)
	}
	diff := sheetMonth.Sub(Month{Year: opened.Year(), Month: opened.Month()})
	if diff < 0 {
		return Eligibility{}, reject(ReasonOrderingError, account.AccountCode)
	}
	if diff > v.Rules.BonusWindowMonths {
		return Eligibility{}, reject(ReasonWindowExpired, account.AccountCode)
	}

	return Eligibility{Account: account, Bucket: v.bucketFor(account.Term), MonthDiff: diff}, nil
}

func (v AccountValidator) bucketFor(term Term) Bucket {
	if amount, ok := v.Schedule.Amount(term); ok {
		return Bucket{Term: term, Amount: amount}
	}
	return Bucket{Term: term, NoBonus: true}
}

// Credit increments the entry's book counter for the bucket.
func (e Eligibility) Credit(entry SalaryEntry) SalaryEntry {
	out := entry.Clone()
	if e.Bucket.NoBonus {
		out.NoBonusBooks++
		return out
	}
	out.BookCounts[e.Bucket.Term]++
	return out
}

// MarkCounted stamps an account as credited to a sheet.
func MarkCounted(account AccountOpening, sheetMonth Month, sheetID string) AccountOpening {
	account.IsCounted = true
	account.CountedMonth = sheetMonth.String()
	account.SalarySheetID = sheetID
	return account
}

func findAccount(code string, accounts []AccountOpening) (AccountOpening, bool) {
	needle := strings.TrimSpace(code)
	if needle == "" {
		return AccountOpening{}, false
	}
	for _, account := range accounts {
		if strings.EqualFold(strings.TrimSpace(account.AccountCode), needle) {
			return account, true
		}
	}
	return AccountOpening{}, false
}

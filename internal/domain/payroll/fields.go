package payroll

import (
	"fmt"
	"strings"
)

type amountSetter func(*SalaryEntry, float64)
type countSetter func(*SalaryEntry, int)

var amountFields = map[string]amountSetter{
	"basicSalary":            func(e *SalaryEntry, v float64) { e.BasicSalary = v },
	"ownSomityCollection":    func(e *SalaryEntry, v float64) { e.OwnSomityCollection = v },
	"officeSomityCollection": func(e *SalaryEntry, v float64) { e.OfficeSomityCollection = v },
	"centerCollection":       func(e *SalaryEntry, v float64) { e.CenterCollection = v },
	"totalLoanCollection":    func(e *SalaryEntry, v float64) { e.TotalLoanCollection = v },
	"lateHours":              func(e *SalaryEntry, v float64) { e.LateHours = v },
	"absentDays":             func(e *SalaryEntry, v float64) { e.AbsentDays = v },
	"cashAdvance":            func(e *SalaryEntry, v float64) { e.CashAdvance = v },
	"misconduct":             func(e *SalaryEntry, v float64) { e.Misconduct = v },
	"unlawful":               func(e *SalaryEntry, v float64) { e.Unlawful = v },
	"tours":                  func(e *SalaryEntry, v float64) { e.Tours = v },
	"otherDeductions":        func(e *SalaryEntry, v float64) { e.OtherDeductions = v },
}

var countFields = map[string]countSetter{
	"ownSomityCount":    func(e *SalaryEntry, v int) { e.OwnSomityCount = v },
	"officeSomityCount": func(e *SalaryEntry, v int) { e.OfficeSomityCount = v },
	"centerCount":       func(e *SalaryEntry, v int) { e.CenterCount = v },
	"noBonusBooks":      func(e *SalaryEntry, v int) { e.NoBonusBooks = v },
}

var derivedFields = map[string]struct{}{
	"totalBooks":           {},
	"totalCollection":      {},
	"collectionCommission": {},
	"bookCommission":       {},
	"commission":           {},
	"bonus":                {},
	"lateDeduction":        {},
	"absentDeduction":      {},
	"totalDeductions":      {},
	"finalSalary":          {},
	"managerConvenience":   {},
}

// ApplyField sets one editable field from a raw form value. Non-numeric input is zero.
// Book counters are addressed as "book_<term>", e.g. "book_1.5".
func ApplyField(entry SalaryEntry, field, raw string) (SalaryEntry, error) {
	field = strings.TrimSpace(field)
	out := entry.Clone()
	if setter, ok := amountFields[field]; ok {
		setter(&out, ParseAmount(raw))
		return out, nil
	}
	if setter, ok := countFields[field]; ok {
		setter(&out, ParseCount(raw))
		return out, nil
	}
	if term, ok, err := bookTerm(field); ok {
		if err != nil {
			return entry, err
		}
		count := ParseCount(raw)
		if count == 0 {
			delete(out.BookCounts, term)
		} else {
			out.BookCounts[term] = count
		}
		return out, nil
	}
	if _, ok := derivedFields[field]; ok {
		return entry, fmt.Errorf("%w: %s", ErrFieldReadOnly, field)
	}
	return entry, fmt.Errorf("%w: %s", ErrUnknownField, field)
}

// ApplyScheduledField is ApplyField restricted to book counters whose term has a tier in
// schedule.
func ApplyScheduledField(entry SalaryEntry, field, raw string, schedule BookTierSchedule) (SalaryEntry, error) {
	field = strings.TrimSpace(field)
	if term, ok, err := bookTerm(field); ok {
		if err != nil {
			return entry, err
		}
		if _, known := schedule.Amount(term); !known {
			return entry, fmt.Errorf("%w: %s has no book tier", ErrUnknownField, field)
		}
	}
	return ApplyField(entry, field, raw)
}

// bookTerm reports whether field addresses a book counter and, if so, its term.
func bookTerm(field string) (Term, bool, error) {
	if !strings.HasPrefix(field, bookFieldPrefix) {
		return 0, false, nil
	}
	term, err := ParseTerm(strings.TrimPrefix(field, bookFieldPrefix))
	if err != nil {
		return 0, true, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return term, true, nil
}

// BookField is the editable field name of a term's book counter.
func BookField(term Term) string {
	return bookFieldPrefix + term.String()
}

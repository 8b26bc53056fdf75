package payroll

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

type Ownership string

// Term is an account tenor in years. It marshals as its shortest decimal text so it
// can key JSON objects ("1.5", "3").
type Term float64

// ParseTerm accepts finite positive tenors only.
func ParseTerm(raw string) (Term, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, ErrInvalidTerm
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return 0, ErrInvalidTerm
	}
	return Term(value), nil
}

func (t Term) String() string {
	return strconv.FormatFloat(float64(t), 'f', -1, 64)
}

func (t Term) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Term) UnmarshalText(text []byte) error {
	parsed, err := ParseTerm(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

type CommissionStructure struct {
	TypeCode          string  `json:"typeCode"`
	OwnRatePercent    float64 `json:"ownRatePercent"`
	OfficeRatePercent float64 `json:"officeRatePercent"`
}

// CommissionRates is keyed by commission type code.
type CommissionRates map[string]CommissionStructure

func NewCommissionRates(structures []CommissionStructure) CommissionRates {
	rates := make(CommissionRates, len(structures))
	for _, structure := range structures {
		rates[structure.TypeCode] = structure
	}
	return rates
}

// Lookup returns zero rates for an unknown type; historical entries may reference a
// commission type that has since been removed.
func (r CommissionRates) Lookup(typeCode string) CommissionStructure {
	if structure, ok := r[typeCode]; ok {
		return structure
	}
	return CommissionStructure{TypeCode: typeCode}
}

type BookTier struct {
	Term   Term    `json:"term"`
	Amount float64 `json:"amount"`
}

// BookTierSchedule maps a term to the flat commission paid per qualifying account.
type BookTierSchedule map[Term]float64

func NewBookTierSchedule(tiers []BookTier) BookTierSchedule {
	schedule := make(BookTierSchedule, len(tiers))
	for _, tier := range tiers {
		schedule[tier.Term] = tier.Amount
	}
	return schedule
}

func (s BookTierSchedule) Terms() []Term {
	terms := make([]Term, 0, len(s))
	for term := range s {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i] < terms[j] })
	return terms
}

func (s BookTierSchedule) Amount(term Term) (float64, bool) {
	amount, ok := s[term]
	return amount, ok
}

type Center struct {
	BranchID           string `json:"branchId"`
	CenterCode         string `json:"centerCode"`
	AssignedEmployeeID string `json:"assignedEmployeeId"`
	Type               string `json:"type,omitempty"`
}

// CollectionRecord is an immutable collection fact. RecordedType is the classification
// computed when the record was written and is never used for attribution.
type CollectionRecord struct {
	ID           string    `json:"id"`
	EmployeeID   string    `json:"employeeId"`
	BranchID     string    `json:"branchId"`
	CenterCode   string    `json:"centerCode"`
	Amount       float64   `json:"amount"`
	LoanAmount   float64   `json:"loanAmount"`
	CreatedAt    time.Time `json:"createdAt"`
	RecordedType Ownership `json:"recordedType,omitempty"`
}

type AccountOpening struct {
	ID               string  `json:"id"`
	AccountCode      string  `json:"accountCode"`
	EmployeeID       string  `json:"employeeId"`
	BranchID         string  `json:"branchId"`
	Term             Term    `json:"term"`
	CollectionAmount float64 `json:"collectionAmount"`
	OpeningDate      string  `json:"openingDate"`
	IsCounted        bool    `json:"isCounted"`
	CountedMonth     string  `json:"countedMonth,omitempty"`
	SalarySheetID    string  `json:"salarySheetId,omitempty"`
}

// SalaryEntry is the per-employee accumulator of one salary sheet. Fields below the
// derived marker are overwritten by every recalculation.
type SalaryEntry struct {
	ID         string `json:"id"`
	SheetID    string `json:"sheetId"`
	EmployeeID string `json:"employeeId"`

	BasicSalary            float64      `json:"basicSalary"`
	OwnSomityCollection    float64      `json:"ownSomityCollection"`
	OwnSomityCount         int          `json:"ownSomityCount"`
	OfficeSomityCollection float64      `json:"officeSomityCollection"`
	OfficeSomityCount      int          `json:"officeSomityCount"`
	CenterCollection       float64      `json:"centerCollection"`
	CenterCount            int          `json:"centerCount"`
	TotalLoanCollection    float64      `json:"totalLoanCollection"`
	BookCounts             map[Term]int `json:"bookCounts"`
	NoBonusBooks           int          `json:"noBonusBooks"`
	LateHours              float64      `json:"lateHours"`
	AbsentDays             float64      `json:"absentDays"`
	CashAdvance            float64      `json:"cashAdvance"`
	Misconduct             float64      `json:"misconduct"`
	Unlawful               float64      `json:"unlawful"`
	Tours                  float64      `json:"tours"`
	OtherDeductions        float64      `json:"otherDeductions"`
	ManagerConvenience     float64      `json:"managerConvenience"`

	// derived
	TotalBooks           int     `json:"totalBooks"`
	TotalCollection      float64 `json:"totalCollection"`
	CollectionCommission float64 `json:"collectionCommission"`
	BookCommission       float64 `json:"bookCommission"`
	Commission           float64 `json:"commission"`
	Bonus                float64 `json:"bonus"`
	LateDeduction        float64 `json:"lateDeduction"`
	AbsentDeduction      float64 `json:"absentDeduction"`
	TotalDeductions      float64 `json:"totalDeductions"`
	FinalSalary          float64 `json:"finalSalary"`
}

// Clone returns a copy that shares no mutable state with e.
func (e SalaryEntry) Clone() SalaryEntry {
	out := e
	out.BookCounts = make(map[Term]int, len(e.BookCounts))
	for term, count := range e.BookCounts {
		out.BookCounts[term] = count
	}
	return out
}

type ManagerContext struct {
	IsManager             bool
	BranchTotalCollection float64
}

package payroll

import "github.com/shopspring/decimal"

// CollectionSummary is one employee's collection attribution for a month.
type CollectionSummary struct {
	EmployeeID          string  `json:"employeeId"`
	Month               Month   `json:"month"`
	OwnCollection       float64 `json:"ownCollection"`
	OwnCenterCount      int     `json:"ownCenterCount"`
	OfficeCollection    float64 `json:"officeCollection"`
	OfficeCenterCount   int     `json:"officeCenterCount"`
	TotalLoanCollection float64 `json:"totalLoanCollection"`
	RecordCount         int     `json:"recordCount"`
}

// AggregateCollections folds an employee's records for month into own/office sums.
// Center counts are distinct center codes per bucket, not record counts. Loan
// collection is summed regardless of classification.
func AggregateCollections(employeeID string, month Month, records []CollectionRecord, centers CenterLookup) CollectionSummary {
	summary := CollectionSummary{EmployeeID: employeeID, Month: month}
	own, office, loan := decimal.Zero, decimal.Zero, decimal.Zero
	ownCenters := map[string]struct{}{}
	officeCenters := map[string]struct{}{}

	for _, record := range records {
		if record.EmployeeID != employeeID || !month.Contains(record.CreatedAt) {
			continue
		}
		summary.RecordCount++
		amount := money(record.Amount)
		code := normalizeCode(record.CenterCode)
		switch ResolveOwnership(record, centers) {
		case OwnershipOwn:
			own = own.Add(amount)
			ownCenters[code] = struct{}{}
		default:
			office = office.Add(amount)
			officeCenters[code] = struct{}{}
		}
		loan = loan.Add(money(record.LoanAmount))
	}

	summary.OwnCollection = own.InexactFloat64()
	summary.OwnCenterCount = len(ownCenters)
	summary.OfficeCollection = office.InexactFloat64()
	summary.OfficeCenterCount = len(officeCenters)
	summary.TotalLoanCollection = loan.InexactFloat64()
	return summary
}

// BranchTotalCollection sums amount and loan amount of every record in the branch for
// month, plus center collections typed into sheet entries that are not yet records.
func BranchTotalCollection(branchID string, month Month, records []CollectionRecord, pendingCenterCollections ...float64) float64 {
	total := decimal.Zero
	for _, record := range records {
		if record.BranchID != branchID || !month.Contains(record.CreatedAt) {
			continue
		}
		total = total.Add(money(record.Amount)).Add(money(record.LoanAmount))
	}
	for _, pending := range pendingCenterCollections {
		total = total.Add(money(pending))
	}
	return total.InexactFloat64()
}

func money(value float64) decimal.Decimal {
	return decimal.NewFromFloat(Sanitize(value))
}

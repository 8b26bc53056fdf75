package payroll

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Calculator turns a salary entry's counters into commission, bonus, deductions,
// manager incentive and final salary. It holds configuration only and is safe for
// concurrent use.
type Calculator struct {
	Rules    Rules
	Rates    CommissionRates
	Schedule BookTierSchedule
}

func NewCalculator(rules Rules, rates CommissionRates, schedule BookTierSchedule) Calculator {
	return Calculator{Rules: rules, Rates: rates, Schedule: schedule}
}

// Recalculate returns a copy of entry with every derived field replaced.
//
// Deduction rates come from contractualBaseSalary while the payout starts from the
// entry's BasicSalary, which may have been edited by hand. A nil or non-manager ctx
// forces ManagerConvenience to zero.
func (c Calculator) Recalculate(entry SalaryEntry, contractualBaseSalary float64, commissionType string, ctx *ManagerContext) SalaryEntry {
	out := entry.Clone()

	out.TotalBooks = out.NoBonusBooks
	for _, count := range out.BookCounts {
		out.TotalBooks += count
	}

	ownSomity := money(out.OwnSomityCollection)
	officeSomity := money(out.OfficeSomityCollection)
	center := money(out.CenterCollection)
	out.TotalCollection = ownSomity.Add(officeSomity).Add(center).InexactFloat64()

	rates := c.Rates.Lookup(commissionType)
	collectionCommission := ownSomity.Mul(money(rates.OwnRatePercent).Div(hundred)).
		Add(officeSomity.Mul(money(rates.OfficeRatePercent).Div(hundred)))

	bookCommission := decimal.Zero
	for term, count := range out.BookCounts {
		amount, ok := c.Schedule.Amount(term)
		if !ok {
			continue
		}
		bookCommission = bookCommission.Add(decimal.NewFromInt(int64(count)).Mul(money(amount)))
	}
	commission := collectionCommission.Add(bookCommission)
	out.CollectionCommission = collectionCommission.InexactFloat64()
	out.BookCommission = bookCommission.InexactFloat64()
	out.Commission = commission.InexactFloat64()

	bonus := decimal.Zero
	if out.TotalBooks >= c.Rules.BonusBookThreshold {
		bonus = money(c.Rules.BonusFlatAmount)
	}
	out.Bonus = bonus.InexactFloat64()

	dailyRate := divide(money(contractualBaseSalary), money(c.Rules.DeductionDivisorDays))
	hourlyRate := divide(dailyRate, money(c.Rules.DeductionDivisorHours))
	lateDeduction := money(out.LateHours).Mul(hourlyRate)
	absentDeduction := money(out.AbsentDays).Mul(dailyRate)
	totalDeductions := money(out.CashAdvance).
		Add(lateDeduction).
		Add(absentDeduction).
		Add(money(out.Misconduct)).
		Add(money(out.Unlawful)).
		Add(money(out.Tours)).
		Add(money(out.OtherDeductions))
	out.LateDeduction = lateDeduction.InexactFloat64()
	out.AbsentDeduction = absentDeduction.InexactFloat64()
	out.TotalDeductions = totalDeductions.InexactFloat64()

	convenience := decimal.Zero
	if ctx != nil && ctx.IsManager {
		managerOwn := ownSomity.Add(officeSomity).Add(money(out.TotalLoanCollection)).Add(center)
		convenience = money(ctx.BranchTotalCollection).Sub(managerOwn).
			Mul(money(c.Rules.ManagerIncentiveRatePercent).Div(hundred))
		if convenience.IsNegative() {
			convenience = decimal.Zero
		}
	}
	out.ManagerConvenience = convenience.InexactFloat64()

	out.FinalSalary = money(out.BasicSalary).
		Add(commission).
		Add(bonus).
		Add(convenience).
		Sub(totalDeductions).
		InexactFloat64()
	return out
}

// divide yields zero for a zero divisor instead of panicking.
func divide(numerator, divisor decimal.Decimal) decimal.Decimal {
	if divisor.IsZero() {
		return decimal.Zero
	}
	return numerator.Div(divisor)
}

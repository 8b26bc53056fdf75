package payroll

const (
	OwnershipOwn    Ownership = "OWN"
	OwnershipOffice Ownership = "OFFICE"

	// CenterTypeOffice on a center master entry forces OFFICE classification.
	CenterTypeOffice = "OFFICE"

	DefaultBonusBookThreshold          = 50
	DefaultBonusFlatAmount             = 500
	DefaultManagerIncentiveRatePercent = 2
	DefaultDeductionDivisorDays        = 26
	DefaultDeductionDivisorHours       = 8
	DefaultMinBookCollection           = 600
	DefaultBonusWindowMonths           = 2

	bookFieldPrefix = "book_"
)

// DefaultBookTerms is the enumerated tenor set (years) seeded into the book tier schedule.
var DefaultBookTerms = []Term{1.5, 3, 5, 8, 10, 12}

package payroll

// Rules carries the tunable thresholds of the commission engine.
type Rules struct {
	BonusBookThreshold          int     `json:"bonusBookThreshold"`
	BonusFlatAmount             float64 `json:"bonusFlatAmount"`
	ManagerIncentiveRatePercent float64 `json:"managerIncentiveRatePercent"`
	DeductionDivisorDays        float64 `json:"deductionDivisorDays"`
	DeductionDivisorHours       float64 `json:"deductionDivisorHours"`
	MinBookCollection           float64 `json:"minBookCollection"`
	BonusWindowMonths           int     `json:"bonusWindowMonths"`
}

func DefaultRules() Rules {
	return Rules{
		BonusBookThreshold:          DefaultBonusBookThreshold,
		BonusFlatAmount:             DefaultBonusFlatAmount,
		ManagerIncentiveRatePercent: DefaultManagerIncentiveRatePercent,
		DeductionDivisorDays:        DefaultDeductionDivisorDays,
		DeductionDivisorHours:       DefaultDeductionDivisorHours,
		MinBookCollection:           DefaultMinBookCollection,
		BonusWindowMonths:           DefaultBonusWindowMonths,
	}
}

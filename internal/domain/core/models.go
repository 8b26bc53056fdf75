package core

import (
	"time"

	"fieldpay/internal/domain/payroll"
)

const (
	EmployeeStatusActive   = "active"
	EmployeeStatusInactive = "inactive"
)

type Branch struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type Employee struct {
	ID              string    `json:"id"`
	BranchID        string    `json:"branchId"`
	Name            string    `json:"name"`
	Designation     string    `json:"designation"`
	BaseSalary      *float64  `json:"baseSalary,omitempty"`
	CommissionType  string    `json:"commissionType"`
	IsBranchManager bool      `json:"isBranchManager"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Salary returns the contractual base salary, zero when hidden or unset.
func (e Employee) Salary() float64 {
	if e.BaseSalary == nil {
		return 0
	}
	return *e.BaseSalary
}

// RateSnapshot is the cached pair of rate tables read by the commission engine.
type RateSnapshot struct {
	Structures []payroll.CommissionStructure `json:"structures"`
	Tiers      []payroll.BookTier            `json:"tiers"`
}

func (r RateSnapshot) Rates() payroll.CommissionRates {
	return payroll.NewCommissionRates(r.Structures)
}

func (r RateSnapshot) Schedule() payroll.BookTierSchedule {
	return payroll.NewBookTierSchedule(r.Tiers)
}

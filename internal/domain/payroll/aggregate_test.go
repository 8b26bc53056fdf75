package payroll

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func marchRecord(employeeID, branchID, code string, amount, loan float64, day int) CollectionRecord {
	return CollectionRecord{
		EmployeeID: employeeID,
		BranchID:   branchID,
		CenterCode: code,
		Amount:     amount,
		LoanAmount: loan,
		CreatedAt:  time.Date(2024, 3, day, 10, 0, 0, 0, time.UTC),
	}
}

func TestAggregateCollectionsSplitsAndCountsDistinctCenters(t *testing.T) {
	dir := NewCenterDirectory([]Center{
		{BranchID: "b1", CenterCode: "2", AssignedEmployeeID: "e1"},
		{BranchID: "b1", CenterCode: "4", AssignedEmployeeID: "e1"},
		{BranchID: "b1", CenterCode: "6", AssignedEmployeeID: "e2"},
	})
	records := []CollectionRecord{
		marchRecord("e1", "b1", "2", 100, 1000, 1),
		marchRecord("e1", "b1", "2", 150, 0, 8),
		marchRecord("e1", "b1", "4", 50.5, 0, 15),
		marchRecord("e1", "b1", "6", 70, 300, 15),
		marchRecord("e1", "b1", "6", 30, 0, 22),
		marchRecord("e2", "b1", "6", 999, 999, 22),
		{EmployeeID: "e1", BranchID: "b1", CenterCode: "2", Amount: 5000, LoanAmount: 5000, CreatedAt: time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC)},
	}

	got := AggregateCollections("e1", Month{Year: 2024, Month: time.March}, records, dir)

	assert.Equal(t, 300.5, got.OwnCollection)
	assert.Equal(t, 2, got.OwnCenterCount)
	assert.Equal(t, 100.0, got.OfficeCollection)
	assert.Equal(t, 1, got.OfficeCenterCount)
	assert.Equal(t, 1300.0, got.TotalLoanCollection)
	assert.Equal(t, 5, got.RecordCount)
}

func TestAggregateCollectionsEmpty(t *testing.T) {
	got := AggregateCollections("e1", Month{Year: 2024, Month: time.March}, nil, nil)

	assert.Zero(t, got.OwnCollection)
	assert.Zero(t, got.OfficeCollection)
	assert.Zero(t, got.OwnCenterCount)
	assert.Zero(t, got.OfficeCenterCount)
	assert.Zero(t, got.TotalLoanCollection)
}

func TestBranchTotalCollectionIncludesLoansAndPendingCenters(t *testing.T) {
	records := []CollectionRecord{
		marchRecord("e1", "b1", "1", 100, 1000, 3),
		marchRecord("e2", "b1", "2", 200, 0, 4),
		marchRecord("e3", "b2", "3", 700, 700, 5),
		{EmployeeID: "e1", BranchID: "b1", CenterCode: "1", Amount: 50, CreatedAt: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)},
	}

	got := BranchTotalCollection("b1", Month{Year: 2024, Month: time.March}, records, 25, 75)

	assert.Equal(t, 1400.0, got)
}

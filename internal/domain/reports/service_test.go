package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldpay/internal/domain/core"
	"fieldpay/internal/domain/payroll"
)

var march = payroll.Month{Year: 2024, Month: time.March}

type fakeDirectory struct {
	employees   []core.Employee
	centers     []payroll.Center
	centerLoads int
}

func (f *fakeDirectory) GetBranch(_ context.Context, id string) (core.Branch, error) {
	if id != "b1" {
		return core.Branch{}, core.ErrBranchNotFound
	}
	return core.Branch{ID: id}, nil
}

func (f *fakeDirectory) ListEmployees(context.Context, string) ([]core.Employee, error) {
	return f.employees, nil
}

func (f *fakeDirectory) CenterDirectory(context.Context) (*payroll.CenterDirectory, error) {
	f.centerLoads++
	return payroll.NewCenterDirectory(f.centers), nil
}

type fakeLedger struct {
	records []payroll.CollectionRecord
	reads   int
	err     error
}

func (f *fakeLedger) ListBranchRecords(_ context.Context, branchID string, _ payroll.Month) ([]payroll.CollectionRecord, error) {
	f.reads++
	if f.err != nil {
		return nil, f.err
	}
	var out []payroll.CollectionRecord
	for _, r := range f.records {
		if r.BranchID == branchID {
			out = append(out, r)
		}
	}
	return out, nil
}

func record(employeeID, branchID, center string, amount, loan float64) payroll.CollectionRecord {
	return payroll.CollectionRecord{
		EmployeeID: employeeID, BranchID: branchID, CenterCode: center,
		Amount: amount, LoanAmount: loan, CreatedAt: time.Date(2024, time.March, 12, 10, 0, 0, 0, time.UTC),
	}
}

func TestBranchCollectionReport(t *testing.T) {
	dir := &fakeDirectory{
		employees: []core.Employee{
			{ID: "e1", Name: "Rahim"},
			{ID: "e2", Name: "Karim", IsBranchManager: true},
		},
		centers: []payroll.Center{
			{BranchID: "b1", CenterCode: "C1", AssignedEmployeeID: "e1"},
			{BranchID: "b1", CenterCode: "C2", AssignedEmployeeID: "e2"},
		},
	}
	ledger := &fakeLedger{records: []payroll.CollectionRecord{
		record("e1", "b1", "C1", 100.1, 500),
		record("e1", "b1", "C2", 0.2, 0),
		record("e2", "b1", "C2", 50, 25),
	}}
	svc := NewService(dir, ledger)

	report, err := svc.BranchCollection(context.Background(), "b1", march)

	require.NoError(t, err)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, 100.1, report.Rows[0].OwnCollection)
	assert.Equal(t, 0.2, report.Rows[0].OfficeCollection)
	assert.Equal(t, 100.3, report.Rows[0].SomityTotal)
	assert.True(t, report.Rows[1].IsBranchManager)
	assert.Equal(t, 150.1, report.OwnTotal)
	assert.Equal(t, 0.2, report.OfficeTotal)
	assert.Equal(t, 525.0, report.LoanTotal)
	assert.Equal(t, 675.3, report.BranchTotalCollection)
}

func TestBranchCollectionRowsExcludeOtherBranches(t *testing.T) {
	dir := &fakeDirectory{
		employees: []core.Employee{{ID: "e1", Name: "Rahim"}},
		centers: []payroll.Center{
			{BranchID: "b1", CenterCode: "C1", AssignedEmployeeID: "e1"},
			{BranchID: "b2", CenterCode: "C9", AssignedEmployeeID: "e1"},
		},
	}
	ledger := &fakeLedger{records: []payroll.CollectionRecord{
		record("e1", "b1", "C1", 200, 40),
		record("e1", "b2", "C9", 900, 300),
	}}
	svc := NewService(dir, ledger)

	report, err := svc.BranchCollection(context.Background(), "b1", march)

	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, 200.0, report.Rows[0].OwnCollection)
	assert.Equal(t, 40.0, report.Rows[0].TotalLoanCollection)
	assert.Equal(t, 1, report.Rows[0].RecordCount)
	assert.Equal(t, 240.0, report.BranchTotalCollection)
	assert.Equal(t, report.OwnTotal+report.OfficeTotal+report.LoanTotal, report.BranchTotalCollection)
}

func TestBranchCollectionLoadsSharedDataOnce(t *testing.T) {
	dir := &fakeDirectory{employees: []core.Employee{{ID: "e1"}, {ID: "e2"}, {ID: "e3"}, {ID: "e4"}}}
	ledger := &fakeLedger{}
	svc := NewService(dir, ledger)

	report, err := svc.BranchCollection(context.Background(), "b1", march)

	require.NoError(t, err)
	assert.Len(t, report.Rows, 4)
	assert.Equal(t, 1, dir.centerLoads)
	assert.Equal(t, 1, ledger.reads)
}

func TestBranchCollectionReportLedgerFailure(t *testing.T) {
	boom := errors.New("connection reset")
	svc := NewService(&fakeDirectory{}, &fakeLedger{err: boom})

	_, err := svc.BranchCollection(context.Background(), "b1", march)

	assert.ErrorIs(t, err, boom)
}

func TestBranchCollectionReportUnknownBranch(t *testing.T) {
	svc := NewService(&fakeDirectory{}, &fakeLedger{})

	_, err := svc.BranchCollection(context.Background(), "nope", march)

	assert.ErrorIs(t, err, core.ErrBranchNotFound)
}

package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldpay/internal/domain/payroll"
	"fieldpay/internal/platform/cache"
)

type fakeMasterStore struct {
	MasterStore

	branches     map[string]Branch
	employees    map[string]Employee
	centers      []payroll.Center
	structures   []payroll.CommissionStructure
	tiers        []payroll.BookTier
	structLoads  int
	upsertedCS   []payroll.CommissionStructure
	upsertedTier []payroll.BookTier
}

func (f *fakeMasterStore) GetBranch(_ context.Context, id string) (Branch, error) {
	b, ok := f.branches[id]
	if !ok {
		return Branch{}, ErrBranchNotFound
	}
	return b, nil
}

func (f *fakeMasterStore) GetEmployee(_ context.Context, id string) (Employee, error) {
	emp, ok := f.employees[id]
	if !ok {
		return Employee{}, ErrEmployeeNotFound
	}
	return emp, nil
}

func (f *fakeMasterStore) CreateEmployee(_ context.Context, emp Employee) (Employee, error) {
	emp.ID = "new"
	return emp, nil
}

func (f *fakeMasterStore) ListCenters(_ context.Context, branchID string) ([]payroll.Center, error) {
	return f.centers, nil
}

func (f *fakeMasterStore) UpsertCenter(_ context.Context, c payroll.Center) error {
	f.centers = append(f.centers, c)
	return nil
}

func (f *fakeMasterStore) ListCommissionStructures(context.Context) ([]payroll.CommissionStructure, error) {
	f.structLoads++
	return f.structures, nil
}

func (f *fakeMasterStore) UpsertCommissionStructure(_ context.Context, cs payroll.CommissionStructure) error {
	f.upsertedCS = append(f.upsertedCS, cs)
	return nil
}

func (f *fakeMasterStore) ListBookTiers(context.Context) ([]payroll.BookTier, error) {
	return f.tiers, nil
}

func (f *fakeMasterStore) UpsertBookTier(_ context.Context, tier payroll.BookTier) error {
	f.upsertedTier = append(f.upsertedTier, tier)
	return nil
}

func TestRateSnapshotWithoutRedisLoadsFromStore(t *testing.T) {
	store := &fakeMasterStore{
		structures: []payroll.CommissionStructure{{TypeCode: "A", OwnRatePercent: 10, OfficeRatePercent: 6}},
		tiers:      []payroll.BookTier{{Term: 1.5, Amount: 20}, {Term: 5, Amount: 50}},
	}
	svc := NewService(store, cache.New(nil, "fp:", time.Minute))

	snap, err := svc.RateSnapshot(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 10.0, snap.Rates().Lookup("A").OwnRatePercent)
	amount, ok := snap.Schedule().Amount(1.5)
	assert.True(t, ok)
	assert.Equal(t, 20.0, amount)
	assert.Equal(t, 1, store.structLoads)
}

func TestUpsertCommissionStructureInvalidatesRateCache(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectDel("fp:" + rateSnapshotKey).SetVal(1)
	store := &fakeMasterStore{}
	svc := NewService(store, cache.New(rdb, "fp:", time.Minute))

	err := svc.UpsertCommissionStructure(context.Background(), payroll.CommissionStructure{TypeCode: " B ", OwnRatePercent: 8, OfficeRatePercent: 4})

	require.NoError(t, err)
	require.Len(t, store.upsertedCS, 1)
	assert.Equal(t, "B", store.upsertedCS[0].TypeCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRatesValidation(t *testing.T) {
	svc := NewService(&fakeMasterStore{}, cache.New(nil, "fp:", time.Minute))

	err := svc.UpsertCommissionStructure(context.Background(), payroll.CommissionStructure{TypeCode: "A", OwnRatePercent: -1})
	assert.ErrorIs(t, err, ErrInvalidRate)

	err = svc.UpsertBookTier(context.Background(), payroll.BookTier{Term: 0, Amount: 10})
	assert.ErrorIs(t, err, ErrInvalidTerm)
}

func TestUpsertCenterDefaultsBranchFromAssignee(t *testing.T) {
	store := &fakeMasterStore{employees: map[string]Employee{"e1": {ID: "e1", BranchID: "b1"}}}
	svc := NewService(store, cache.New(nil, "fp:", time.Minute))

	require.NoError(t, svc.UpsertCenter(context.Background(), payroll.Center{CenterCode: "12", AssignedEmployeeID: "e1"}))
	require.Len(t, store.centers, 1)
	assert.Equal(t, "b1", store.centers[0].BranchID)

	err := svc.UpsertCenter(context.Background(), payroll.Center{BranchID: "b1", CenterCode: "13", AssignedEmployeeID: "ghost"})
	assert.True(t, errors.Is(err, ErrEmployeeNotFound))

	dir, err := svc.CenterDirectory(context.Background())
	require.NoError(t, err)
	_, ok := dir.Lookup("b1", "12")
	assert.True(t, ok)
}

func TestCreateEmployeeRequiresBranch(t *testing.T) {
	store := &fakeMasterStore{branches: map[string]Branch{"b1": {ID: "b1"}}}
	svc := NewService(store, cache.New(nil, "fp:", time.Minute))

	_, err := svc.CreateEmployee(context.Background(), Employee{BranchID: "b2", Name: "x"})
	assert.ErrorIs(t, err, ErrBranchNotFound)

	emp, err := svc.CreateEmployee(context.Background(), Employee{BranchID: "b1", Name: "  Karim "})
	require.NoError(t, err)
	assert.Equal(t, "Karim", emp.Name)
	assert.Equal(t, EmployeeStatusActive, emp.Status)
}

package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldpay/internal/domain/core"
	"fieldpay/internal/domain/payroll"
	"fieldpay/internal/domain/sheet"
)

type finished struct {
	id      string
	status  string
	details []byte
}

type memRuns struct {
	mu       sync.Mutex
	started  []string
	finished []finished
	done     chan struct{}
}

func (m *memRuns) StartRun(_ context.Context, jobType, scope string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, jobType+":"+scope)
	return "run-1", nil
}

func (m *memRuns) FinishRun(_ context.Context, id, status string, details []byte) error {
	m.mu.Lock()
	m.finished = append(m.finished, finished{id: id, status: status, details: details})
	m.mu.Unlock()
	if m.done != nil {
		m.done <- struct{}{}
	}
	return nil
}

func TestRunNowRecordsOutcome(t *testing.T) {
	runs := &memRuns{}
	svc := New(runs)

	_, err := svc.RunNow(context.Background(), "noop", "all", func(context.Context) (any, error) {
		return map[string]int{"n": 1}, nil
	})
	require.NoError(t, err)

	_, err = svc.RunNow(context.Background(), "noop", "all", func(context.Context) (any, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)

	require.Len(t, runs.finished, 2)
	assert.Equal(t, StatusCompleted, runs.finished[0].status)
	assert.JSONEq(t, `{"n":1}`, string(runs.finished[0].details))
	assert.Equal(t, StatusFailed, runs.finished[1].status)
	assert.Equal(t, []string{"noop:all", "noop:all"}, runs.started)
}

func TestWorkerDrainsQueue(t *testing.T) {
	runs := &memRuns{done: make(chan struct{}, 1)}
	svc := New(runs)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	require.NoError(t, svc.Enqueue("noop", "b1", func(context.Context) (any, error) { return nil, nil }))

	select {
	case <-runs.done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not run")
	}
}

func TestEnqueueReportsFullQueue(t *testing.T) {
	svc := New(&memRuns{})
	run := func(context.Context) (any, error) { return nil, nil }
	for i := 0; i < cap(svc.queue); i++ {
		require.NoError(t, svc.Enqueue("noop", "", run))
	}

	assert.ErrorIs(t, svc.Enqueue("noop", "", run), ErrQueueFull)
}

type branchList []core.Branch

func (b branchList) ListBranches(context.Context) ([]core.Branch, error) { return b, nil }

type generatorFunc func(branchID string) (sheet.Detail, error)

func (f generatorFunc) GenerateSheet(_ context.Context, branchID string, _ payroll.Month) (sheet.Detail, error) {
	return f(branchID)
}

func TestGenerateAllSheets(t *testing.T) {
	gen := generatorFunc(func(branchID string) (sheet.Detail, error) {
		switch branchID {
		case "b2":
			return sheet.Detail{}, sheet.ErrNoEmployees
		case "b3":
			return sheet.Detail{}, errors.New("db down")
		}
		return sheet.Detail{Sheet: sheet.Sheet{ID: "s-" + branchID}, Lines: make([]sheet.Line, 3)}, nil
	})
	run := GenerateAllSheets(branchList{{ID: "b1"}, {ID: "b2"}, {ID: "b3"}}, gen, payroll.Month{Year: 2024, Month: time.March})

	out, err := run(context.Background())

	require.Error(t, err)
	result := out.(GenerationResult)
	assert.Equal(t, "2024-03", result.Month)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Sheets, 3)
	assert.Equal(t, GeneratedSheet{BranchID: "b1", SheetID: "s-b1", Entries: 3}, result.Sheets[0])
	assert.NotEmpty(t, result.Sheets[1].Skipped)
	assert.Equal(t, "db down", result.Sheets[2].Error)
}

func TestBuildRunsQuery(t *testing.T) {
	query, args := buildRunsQuery("SELECT COUNT(1)", RunFilter{Status: StatusFailed})

	assert.Equal(t, "SELECT COUNT(1) FROM job_runs WHERE 1=1 AND status = $1", query)
	assert.Equal(t, []any{StatusFailed}, args)
}

func TestDecodeDetails(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{"failed": 0})
	assert.Equal(t, map[string]any{"failed": float64(0)}, decodeDetails(raw))
	assert.Equal(t, map[string]any{"raw": "{"}, decodeDetails([]byte("{")))
	assert.Empty(t, decodeDetails(nil))
}

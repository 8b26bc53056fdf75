package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"fieldpay/internal/domain/core"
	"fieldpay/internal/domain/payroll"
	"fieldpay/internal/domain/sheet"
	"fieldpay/internal/platform/logging"
)

const (
	JobSheetGeneration = "sheet_generation"

	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var ErrQueueFull = errors.New("job queue full")

type RunStore interface {
	StartRun(ctx context.Context, jobType, scope string) (string, error)
	FinishRun(ctx context.Context, id, status string, details []byte) error
}

type Func func(context.Context) (any, error)

type job struct {
	Type  string
	Scope string
	Run   Func
}

type Service struct {
	runs   RunStore
	queue  chan job
	logger *zap.Logger
}

func New(runs RunStore, logger ...*zap.Logger) *Service {
	return &Service{
		runs:   runs,
		queue:  make(chan job, 128),
		logger: logging.Named("jobs", logger...),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
}

func (s *Service) Enqueue(jobType, scope string, run Func) error {
	select {
	case s.queue <- job{Type: jobType, Scope: scope, Run: run}:
		return nil
	default:
		s.logger.Warn("job queue full", zap.String("job_type", jobType), zap.String("scope", scope))
		return ErrQueueFull
	}
}

func (s *Service) RunNow(ctx context.Context, jobType, scope string, run Func) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Scope: scope, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				s.logger.Warn("job run failed", zap.String("job_type", j.Type), zap.String("scope", j.Scope), zap.Error(err))
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID, err := s.runs.StartRun(ctx, j.Type, j.Scope)
	if err != nil {
		s.logger.Warn("job run insert failed", zap.String("job_type", j.Type), zap.Error(err))
	}

	details, err := j.Run(ctx)
	status := StatusCompleted
	if err != nil {
		status = StatusFailed
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		s.logger.Warn("job details marshal failed", zap.Error(marshalErr))
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if updErr := s.runs.FinishRun(ctx, runID, status, detailsJSON); updErr != nil {
			s.logger.Warn("job run update failed", zap.String("run_id", runID), zap.Error(updErr))
		}
	}
	return details, err
}

type BranchLister interface {
	ListBranches(ctx context.Context) ([]core.Branch, error)
}

type SheetGenerator interface {
	GenerateSheet(ctx context.Context, branchID string, month payroll.Month) (sheet.Detail, error)
}

type GeneratedSheet struct {
	BranchID string `json:"branchId"`
	SheetID  string `json:"sheetId,omitempty"`
	Entries  int    `json:"entries,omitempty"`
	Skipped  string `json:"skipped,omitempty"`
	Error    string `json:"error,omitempty"`
}

type GenerationResult struct {
	Month  string           `json:"month"`
	Sheets []GeneratedSheet `json:"sheets"`
	Failed int              `json:"failed"`
}

// GenerateAllSheets opens a draft sheet for month in every branch. Branches without
// active employees are skipped; other failures are collected and reported together.
func GenerateAllSheets(branches BranchLister, sheets SheetGenerator, month payroll.Month) Func {
	return func(ctx context.Context) (any, error) {
		list, err := branches.ListBranches(ctx)
		if err != nil {
			return nil, err
		}
		result := GenerationResult{Month: month.String(), Sheets: make([]GeneratedSheet, 0, len(list))}
		for _, b := range list {
			detail, err := sheets.GenerateSheet(ctx, b.ID, month)
			switch {
			case errors.Is(err, sheet.ErrNoEmployees):
				result.Sheets = append(result.Sheets, GeneratedSheet{BranchID: b.ID, Skipped: err.Error()})
			case err != nil:
				result.Failed++
				result.Sheets = append(result.Sheets, GeneratedSheet{BranchID: b.ID, Error: err.Error()})
			default:
				result.Sheets = append(result.Sheets, GeneratedSheet{BranchID: b.ID, SheetID: detail.ID, Entries: len(detail.Lines)})
			}
		}
		if result.Failed > 0 {
			return result, fmt.Errorf("%d of %d branches failed", result.Failed, len(list))
		}
		return result, nil
	}
}

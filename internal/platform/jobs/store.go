package jobs

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"

	"fieldpay/internal/platform/querier"
)

var ErrRunNotFound = errors.New("job run not found")

type Run struct {
	ID          string         `json:"id"`
	JobType     string         `json:"jobType"`
	Scope       string         `json:"scope"`
	Status      string         `json:"status"`
	Details     map[string]any `json:"details"`
	StartedAt   time.Time      `json:"startedAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
}

type RunFilter struct {
	JobType string
	Status  string
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) StartRun(ctx context.Context, jobType, scope string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, scope, status)
    VALUES ($1,$2,$3)
    RETURNING id
  `, jobType, scope, StatusRunning).Scan(&id)
	return id, err
}

func (s *Store) FinishRun(ctx context.Context, id, status string, details []byte) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE job_runs
    SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, details, id)
	return err
}

const runColumns = "id, job_type, scope, status, COALESCE(details_json, '{}'::jsonb), started_at, completed_at"

func scanRun(row pgx.Row) (Run, error) {
	var (
		r   Run
		raw []byte
	)
	if err := row.Scan(&r.ID, &r.JobType, &r.Scope, &r.Status, &raw, &r.StartedAt, &r.CompletedAt); err != nil {
		return Run{}, err
	}
	r.Details = decodeDetails(raw)
	return r, nil
}

func (s *Store) ListRuns(ctx context.Context, filter RunFilter, limit, offset int) ([]Run, error) {
	query, args := buildRunsQuery("SELECT "+runColumns, filter)
	query += " ORDER BY started_at DESC LIMIT $" + strconv.Itoa(len(args)+1) + " OFFSET $" + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *Store) CountRuns(ctx context.Context, filter RunFilter) (int, error) {
	query, args := buildRunsQuery("SELECT COUNT(1)", filter)
	var total int
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	r, err := scanRun(s.DB.QueryRow(ctx, "SELECT "+runColumns+" FROM job_runs WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	return r, err
}

func buildRunsQuery(prefix string, filter RunFilter) (string, []any) {
	query := prefix + " FROM job_runs WHERE 1=1"
	var args []any
	if value := strings.TrimSpace(filter.JobType); value != "" {
		args = append(args, value)
		query += " AND job_type = $" + strconv.Itoa(len(args))
	}
	if value := strings.TrimSpace(filter.Status); value != "" {
		args = append(args, value)
		query += " AND status = $" + strconv.Itoa(len(args))
	}
	return query, args
}

func decodeDetails(raw []byte) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	details := map[string]any{}
	if err := json.Unmarshal(raw, &details); err != nil {
		return map[string]any{"raw": string(raw)}
	}
	return details
}

package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"ugcfactory/internal/domain"
)

// RunLogRepositoryPG implements domain.RunLogRepository using PostgreSQL.
type RunLogRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewRunLogRepository constructs a new run log repository instance.
func NewRunLogRepository(pool *pgxpool.Pool) *RunLogRepositoryPG {
	return &RunLogRepositoryPG{pool: pool}
}

// Append inserts one audit record. Run logs are never updated or deleted.
func (r *RunLogRepositoryPG) Append(ctx context.Context, log *domain.RunLog) error {
	query := `
INSERT INTO run_logs (id, job_id, step, provider, status, request, response, error_text)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`
	_, err := r.pool.Exec(ctx, query,
		log.ID,
		log.JobID,
		log.Step,
		log.Provider,
		log.Status,
		log.Request,
		log.Response,
		log.ErrorText,
	)
	return err
}

// ListByJobID returns the job's audit trail in insertion order.
func (r *RunLogRepositoryPG) ListByJobID(ctx context.Context, jobID string) ([]domain.RunLog, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, job_id, step, provider, status, request, response, error_text, created_at
FROM run_logs
WHERE job_id = $1
ORDER BY created_at ASC;
`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []domain.RunLog
	for rows.Next() {
		var log domain.RunLog
		if err := rows.Scan(&log.ID, &log.JobID, &log.Step, &log.Provider, &log.Status, &log.Request, &log.Response, &log.ErrorText, &log.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

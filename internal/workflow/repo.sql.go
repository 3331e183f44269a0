package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-hr/meridian-hr/internal/platform/db"
)

// PGRepository provides PostgreSQL backed persistence for the workflow.
type PGRepository struct {
	pool *pgxpool.Pool
	queries
}

// NewPGRepository constructs a repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool, queries: queries{db: pool}}
}

// WithTx runs fn against a transactional repository view.
func (r *PGRepository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, queries{db: tx})
	})
}

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// queries implements the SQL shared by pool-backed and tx-backed access.
type queries struct {
	db dbtx
}

var _ TxRepository = queries{}

const requestColumns = `id, type, status, target_user_id, requester_name, email,
requested_role, target_division_id, requested_by, approved_by, notes, submitted_at, processed_at`

const stepColumns = `id, request_id, level, approver_id, status, comments, processed_at`

func (q queries) CreateRequest(ctx context.Context, req *Request) error {
	return q.db.QueryRow(ctx, `INSERT INTO requests
(type, status, target_user_id, requester_name, email, requested_role,
 target_division_id, requested_by, notes, submitted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
RETURNING id, submitted_at`,
		req.Type, StatusPending, req.TargetUserID, req.RequesterName, req.Email,
		req.RequestedRole, req.TargetDivisionID, req.RequestedBy, req.Notes).
		Scan(&req.ID, &req.SubmittedAt)
}

func (q queries) CreateSteps(ctx context.Context, steps []ApprovalStep) ([]ApprovalStep, error) {
	created := make([]ApprovalStep, 0, len(steps))
	for _, step := range steps {
		err := q.db.QueryRow(ctx, `INSERT INTO approval_steps
(request_id, level, approver_id, status) VALUES ($1, $2, $3, $4) RETURNING id`,
			step.RequestID, step.Level, step.ApproverID, StatusPending).Scan(&step.ID)
		if err != nil {
			return nil, fmt.Errorf("workflow: create step level %d: %w", step.Level, err)
		}
		step.Status = StatusPending
		created = append(created, step)
	}
	return created, nil
}

func (q queries) GetRequest(ctx context.Context, id int64) (Request, error) {
	row := q.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id=$1`, id)
	return scanRequest(row)
}

func (q queries) GetStep(ctx context.Context, stepID int64) (ApprovalStep, error) {
	row := q.db.QueryRow(ctx, `SELECT `+stepColumns+` FROM approval_steps WHERE id=$1`, stepID)
	return scanStep(row)
}

func (q queries) ListSteps(ctx context.Context, requestID int64) ([]ApprovalStep, error) {
	rows, err := q.db.Query(ctx, `SELECT `+stepColumns+` FROM approval_steps
WHERE request_id=$1 ORDER BY level`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var steps []ApprovalStep
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// ApproveStepGated folds ownership, idempotence and level ordering into one
// conditional update so concurrent decisions cannot interleave around a
// read-then-write gap.
func (q queries) ApproveStepGated(ctx context.Context, stepID, approverID int64, comment string) (bool, error) {
	tag, err := q.db.Exec(ctx, `UPDATE approval_steps SET
status=$3, comments=$4, processed_at=NOW()
WHERE id=$1 AND approver_id=$2 AND status=$5
AND NOT EXISTS (
  SELECT 1 FROM approval_steps lower
  WHERE lower.request_id = approval_steps.request_id
    AND lower.level < approval_steps.level
    AND lower.status <> $3
)`, stepID, approverID, StatusApproved, comment, StatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (q queries) RejectStepPending(ctx context.Context, stepID, approverID int64, comment string) (bool, error) {
	tag, err := q.db.Exec(ctx, `UPDATE approval_steps SET
status=$3, comments=$4, processed_at=NOW()
WHERE id=$1 AND approver_id=$2 AND status=$5`,
		stepID, approverID, StatusRejected, comment, StatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (q queries) CascadeRejectPending(ctx context.Context, requestID int64) (int64, error) {
	tag, err := q.db.Exec(ctx, `UPDATE approval_steps SET
status=$2, comments=$3, processed_at=NOW()
WHERE request_id=$1 AND status=$4`,
		requestID, StatusRejected, CascadeComment, StatusPending)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q queries) ApproveAllPending(ctx context.Context, requestID int64, comment string) (int64, error) {
	tag, err := q.db.Exec(ctx, `UPDATE approval_steps SET
status=$2, comments=$3, processed_at=NOW()
WHERE request_id=$1 AND status=$4`,
		requestID, StatusApproved, comment, StatusPending)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q queries) CountNotApproved(ctx context.Context, requestID int64) (int, error) {
	var count int
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM approval_steps
WHERE request_id=$1 AND status <> $2`, requestID, StatusApproved).Scan(&count)
	return count, err
}

func (q queries) MarkRequestProcessed(ctx context.Context, requestID int64, status Status, actorID int64) (bool, error) {
	tag, err := q.db.Exec(ctx, `UPDATE requests SET
status=$2, approved_by=$3, processed_at=NOW()
WHERE id=$1 AND status=$4`,
		requestID, status, actorID, StatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListRequests returns requests newest first, optionally filtered.
func (r *PGRepository) ListRequests(ctx context.Context, filter ListFilter) ([]Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE 1=1`
	args := []any{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status=$%d", len(args))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(" AND type=$%d", len(args))
	}
	if filter.RequestedBy != 0 {
		args = append(args, filter.RequestedBy)
		query += fmt.Sprintf(" AND requested_by=$%d", len(args))
	}
	query += " ORDER BY submitted_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

// ListActionableForApprover returns pending requests with a step the approver
// can decide right now.
func (r *PGRepository) ListActionableForApprover(ctx context.Context, approverID int64) ([]Request, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+requestColumns+` FROM requests
WHERE status=$2 AND EXISTS (
  SELECT 1 FROM approval_steps s
  WHERE s.request_id = requests.id AND s.approver_id=$1 AND s.status=$2
  AND NOT EXISTS (
    SELECT 1 FROM approval_steps lower
    WHERE lower.request_id = s.request_id AND lower.level < s.level AND lower.status <> $3
  )
)
ORDER BY submitted_at ASC`, approverID, StatusPending, StatusApproved)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

func collectRequests(rows pgx.Rows) ([]Request, error) {
	var result []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, req)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (Request, error) {
	var req Request
	var typ, status string
	err := row.Scan(&req.ID, &typ, &status, &req.TargetUserID, &req.RequesterName,
		&req.Email, &req.RequestedRole, &req.TargetDivisionID, &req.RequestedBy,
		&req.ApprovedBy, &req.Notes, &req.SubmittedAt, &req.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, ErrNotFound
		}
		return Request{}, err
	}
	req.Type = RequestType(typ)
	req.Status = Status(status)
	return req, nil
}

func scanStep(row rowScanner) (ApprovalStep, error) {
	var step ApprovalStep
	var status string
	err := row.Scan(&step.ID, &step.RequestID, &step.Level, &step.ApproverID,
		&status, &step.Comments, &step.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ApprovalStep{}, ErrNotFound
		}
		return ApprovalStep{}, err
	}
	step.Status = Status(status)
	return step, nil
}

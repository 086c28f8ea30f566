package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-vendor-onboarding/internal/apperr"
	"github.com/pesio-ai/be-vendor-onboarding/internal/database"
)

const approvalColumns = `id, vendor_id, approver_id, level, status, comments,
	       approved_at, created_at, updated_at`

// ApprovalRepository is the approval ledger: at most one row per
// (vendor_id, level), enforced by a unique constraint.
type ApprovalRepository struct {
	q database.Querier
}

// NewApprovalRepository creates a new ApprovalRepository bound to a pool or tx.
func NewApprovalRepository(q database.Querier) *ApprovalRepository {
	return &ApprovalRepository{q: q}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *ApprovalRepository) WithTx(tx pgx.Tx) *ApprovalRepository {
	return &ApprovalRepository{q: tx}
}

// Upsert writes the ledger entry for (vendor_id, level), creating it on first
// decision and overwriting it on re-decision. approved_at is stamped only
// when the stored status is approved, and cleared otherwise, so retrying the
// same call converges on the same row state.
func (r *ApprovalRepository) Upsert(ctx context.Context, a *Approval) error {
	query := `
		INSERT INTO vendor_approvals (vendor_id, approver_id, level, status, comments, approved_at)
		VALUES ($1, $2, $3::approval_level, $4::approval_status, $5,
		        CASE WHEN $4 = 'approved' THEN NOW() END)
		ON CONFLICT (vendor_id, level) DO UPDATE
		SET approver_id = EXCLUDED.approver_id,
		    status      = EXCLUDED.status,
		    comments    = EXCLUDED.comments,
		    approved_at = CASE WHEN EXCLUDED.status = 'approved' THEN NOW() END,
		    updated_at  = NOW()
		RETURNING id, approved_at, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		a.VendorID,
		a.ApproverID,
		a.Level,
		a.Status,
		a.Comments,
	).Scan(&a.ID, &a.ApprovedAt, &a.CreatedAt, &a.UpdatedAt)

	if err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "failed to upsert approval")
	}
	return nil
}

// GetByVendorAndLevel returns the ledger entry for one level, or nil when no
// decision has been recorded yet.
func (r *ApprovalRepository) GetByVendorAndLevel(ctx context.Context, vendorID int64, level ApprovalLevel) (*Approval, error) {
	query := fmt.Sprintf(`SELECT %s FROM vendor_approvals WHERE vendor_id = $1 AND level = $2::approval_level`,
		approvalColumns)

	a, err := r.scanApproval(r.q.QueryRow(ctx, query, vendorID, level))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to get approval")
	}
	return a, nil
}

// ListByVendor returns the full current approval set for a vendor, ordered
// by level for stable output. The aggregator is order-independent, the
// ordering is for readers.
func (r *ApprovalRepository) ListByVendor(ctx context.Context, vendorID int64) ([]*Approval, error) {
	query := fmt.Sprintf(`SELECT %s FROM vendor_approvals WHERE vendor_id = $1 ORDER BY level ASC`,
		approvalColumns)

	rows, err := r.q.Query(ctx, query, vendorID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to list approvals")
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// ListPendingForApprover returns pending ledger entries owned by an approver,
// optionally narrowed to one level, oldest first.
func (r *ApprovalRepository) ListPendingForApprover(ctx context.Context, approverID string, level *ApprovalLevel, limit, offset int) ([]*Approval, error) {
	query := fmt.Sprintf(`SELECT %s FROM vendor_approvals WHERE approver_id = $1 AND status = 'pending'`,
		approvalColumns)

	args := []any{approverID}
	argCount := 2

	if level != nil {
		query += fmt.Sprintf(" AND level = $%d::approval_level", argCount)
		args = append(args, *level)
		argCount++
	}

	query += fmt.Sprintf(" ORDER BY created_at ASC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to list pending approvals")
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// StatsForApprover counts ledger entries by decision for one approver.
func (r *ApprovalRepository) StatsForApprover(ctx context.Context, approverID string) (*ApproverStats, error) {
	query := `
		SELECT
		    COUNT(*) FILTER (WHERE status = 'pending'),
		    COUNT(*) FILTER (WHERE status = 'approved'),
		    COUNT(*) FILTER (WHERE status = 'rejected')
		FROM vendor_approvals
		WHERE approver_id = $1
	`

	stats := &ApproverStats{}
	err := r.q.QueryRow(ctx, query, approverID).Scan(&stats.Pending, &stats.Approved, &stats.Rejected)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to get approver stats")
	}
	stats.Total = stats.Pending + stats.Approved + stats.Rejected
	return stats, nil
}

// ── scan helpers ──────────────────────────────────────────────────────────────

type approvalScanner interface {
	Scan(dest ...any) error
}

func (r *ApprovalRepository) scanApproval(row approvalScanner) (*Approval, error) {
	a := &Approval{}
	err := row.Scan(
		&a.ID,
		&a.VendorID,
		&a.ApproverID,
		&a.Level,
		&a.Status,
		&a.Comments,
		&a.ApprovedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *ApprovalRepository) scanRows(rows pgx.Rows) ([]*Approval, error) {
	approvals := make([]*Approval, 0)
	for rows.Next() {
		a, err := r.scanApproval(rows)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to scan approval")
		}
		approvals = append(approvals, a)
	}
	return approvals, nil
}

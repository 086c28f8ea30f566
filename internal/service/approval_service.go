package service

import (
	"context"

	"github.com/pesio-ai/be-vendor-onboarding/internal/apperr"
	"github.com/pesio-ai/be-vendor-onboarding/internal/logger"
	"github.com/pesio-ai/be-vendor-onboarding/internal/repository"
)

// ApprovalService records per-level approval decisions and keeps the vendor
// lifecycle status consistent with the ledger.
type ApprovalService struct {
	store  Store
	events EventPublisher
	log    *logger.Logger
}

// NewApprovalService creates a new ApprovalService.
func NewApprovalService(store Store, events EventPublisher, log *logger.Logger) *ApprovalService {
	return &ApprovalService{store: store, events: events, log: log}
}

// SubmitDecisionRequest is a single approval decision for one vendor level.
type SubmitDecisionRequest struct {
	VendorID int64
	Level    repository.ApprovalLevel
	ActorID  string
	Decision repository.ApprovalStatus
	Comments *string
}

// SubmitDecision creates or overwrites the ledger entry for (vendor, level),
// re-derives the vendor status from the full updated approval set, and writes
// it when it changed. The ledger upsert, aggregation and status write run as
// one atomic unit under the vendor row lock; two approvers deciding different
// levels of the same vendor are serialized and each sees the other's entry.
func (s *ApprovalService) SubmitDecision(ctx context.Context, req *SubmitDecisionRequest) (*repository.Approval, error) {
	if req.ActorID == "" {
		return nil, apperr.InvalidInput("actor_id", "actor id is required")
	}
	if !repository.ValidApprovalLevel(req.Level) {
		return nil, apperr.InvalidInput("level", "invalid approval level")
	}
	if !repository.ValidApprovalStatus(req.Decision) {
		return nil, apperr.InvalidInput("status", "invalid approval status")
	}

	var (
		stored       *repository.Approval
		statusBefore repository.VendorStatus
		statusAfter  repository.VendorStatus
		prevDecision *repository.ApprovalStatus
	)

	err := s.store.InVendorTx(ctx, req.VendorID, func(tx repository.VendorTx) error {
		vendor := tx.Vendor()
		statusBefore = vendor.Status
		statusAfter = vendor.Status

		existing, err := tx.GetApproval(ctx, req.Level)
		if err != nil {
			return err
		}
		if existing != nil {
			prev := existing.Status
			prevDecision = &prev
			// A decided entry belongs to its approver. A pending entry left
			// by someone else may be claimed: ownership transfers to the
			// first actor who actually decides it.
			if existing.ApproverID != req.ActorID && existing.Status != repository.ApprovalStatusPending {
				return apperr.Forbidden("only the assigned approver may update their own decision")
			}
		}

		stored = &repository.Approval{
			VendorID:   req.VendorID,
			ApproverID: req.ActorID,
			Level:      req.Level,
			Status:     req.Decision,
			Comments:   req.Comments,
		}
		if err := tx.UpsertApproval(ctx, stored); err != nil {
			return err
		}

		if req.Decision != repository.ApprovalStatusApproved && req.Decision != repository.ApprovalStatusRejected {
			return nil
		}

		// Suspension is an administrative override; the aggregate is not
		// written back until the vendor is reinstated.
		if vendor.Status == repository.VendorStatusSuspended {
			return nil
		}

		approvals, err := tx.ListApprovals(ctx)
		if err != nil {
			return err
		}

		derived, ok := DeriveStatus(approvals)
		if !ok || derived == vendor.Status {
			return nil
		}

		if derived == repository.VendorStatusApproved {
			// The triggering actor is the one whose decision completed the
			// set, not necessarily the final-level approver.
			if err := tx.SetApproved(ctx, req.ActorID); err != nil {
				return err
			}
		} else {
			if err := tx.SetStatus(ctx, derived); err != nil {
				return err
			}
		}
		statusAfter = derived
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("vendor_id", req.VendorID).
		Str("level", string(req.Level)).
		Str("decision", string(req.Decision)).
		Str("actor_id", req.ActorID).
		Str("vendor_status", string(statusAfter)).
		Msg("Approval decision recorded")

	before := string(statusBefore)
	after := string(statusAfter)
	metadata := map[string]interface{}{
		"level":    string(req.Level),
		"decision": string(req.Decision),
	}
	if prevDecision != nil {
		metadata["previous_decision"] = string(*prevDecision)
	}
	s.appendAudit(ctx, &repository.AuditEntry{
		VendorID:     &req.VendorID,
		Action:       "approval_decision",
		PerformedBy:  req.ActorID,
		StatusBefore: &before,
		StatusAfter:  &after,
		Metadata:     metadata,
	})
	s.publish(ctx, "approval_decision", &req.VendorID, req.ActorID, metadata)

	return stored, nil
}

// GetVendorApprovals returns the full current approval set for a vendor.
func (s *ApprovalService) GetVendorApprovals(ctx context.Context, vendorID int64) ([]*repository.Approval, error) {
	if _, err := s.store.GetVendor(ctx, vendorID); err != nil {
		return nil, err
	}
	return s.store.ListApprovals(ctx, vendorID)
}

// GetPendingApprovals returns ledger entries awaiting a decision from an
// approver, optionally narrowed to one level.
func (s *ApprovalService) GetPendingApprovals(ctx context.Context, approverID string, level *repository.ApprovalLevel, page, pageSize int) ([]*repository.Approval, error) {
	if approverID == "" {
		return nil, apperr.InvalidInput("approver_id", "approver id is required")
	}
	if level != nil && !repository.ValidApprovalLevel(*level) {
		return nil, apperr.InvalidInput("level", "invalid approval level")
	}
	offset := (page - 1) * pageSize
	return s.store.ListPendingApprovals(ctx, approverID, level, pageSize, offset)
}

// GetApproverStats returns decision counts for one approver.
func (s *ApprovalService) GetApproverStats(ctx context.Context, approverID string) (*repository.ApproverStats, error) {
	if approverID == "" {
		return nil, apperr.InvalidInput("approver_id", "approver id is required")
	}
	return s.store.ApproverStats(ctx, approverID)
}

// GetWorkflowStats returns the onboarding dashboard counters.
func (s *ApprovalService) GetWorkflowStats(ctx context.Context) (*repository.WorkflowStats, error) {
	return s.store.WorkflowStats(ctx)
}

// appendAudit writes an audit entry and logs a warning on failure; audit
// writes never fail the caller.
func (s *ApprovalService) appendAudit(ctx context.Context, entry *repository.AuditEntry) {
	if err := s.store.AppendAudit(ctx, entry); err != nil {
		s.log.Warn().Err(err).
			Str("action", entry.Action).
			Msg("Failed to write audit log entry")
	}
}

func (s *ApprovalService) publish(ctx context.Context, action string, vendorID *int64, actorID string, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, action, vendorID, actorID, payload)
}

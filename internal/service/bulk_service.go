package service

import (
	"context"
	"strings"

	"github.com/pesio-ai/be-vendor-onboarding/internal/apperr"
	"github.com/pesio-ai/be-vendor-onboarding/internal/export"
	"github.com/pesio-ai/be-vendor-onboarding/internal/logger"
	"github.com/pesio-ai/be-vendor-onboarding/internal/repository"
)

// BulkService applies administrative operations across many vendors with
// isolate-and-continue semantics: a failure on one id never aborts the rest,
// and every call reports exactly which ids succeeded and which failed.
type BulkService struct {
	store  Store
	events EventPublisher
	log    *logger.Logger
}

// NewBulkService creates a new BulkService.
func NewBulkService(store Store, events EventPublisher, log *logger.Logger) *BulkService {
	return &BulkService{store: store, events: events, log: log}
}

// BulkFailure is one per-item failure in a bulk operation.
type BulkFailure struct {
	VendorID int64  `json:"vendor_id"`
	Reason   string `json:"reason"`
}

// BulkOperationResult summarizes a bulk operation. It is returned even when
// every item failed; only a structurally invalid request is an error.
type BulkOperationResult struct {
	RequestedIDs []int64       `json:"requested_ids"`
	SucceededIDs []int64       `json:"succeeded_ids"`
	FailedItems  []BulkFailure `json:"failed_items"`
	Succeeded    int           `json:"succeeded"`
	Failed       int           `json:"failed"`
}

func newBulkResult(ids []int64) *BulkOperationResult {
	return &BulkOperationResult{
		RequestedIDs: ids,
		SucceededIDs: make([]int64, 0, len(ids)),
		FailedItems:  make([]BulkFailure, 0),
	}
}

func (r *BulkOperationResult) succeed(id int64) {
	r.SucceededIDs = append(r.SucceededIDs, id)
	r.Succeeded++
}

func (r *BulkOperationResult) fail(id int64, reason string) {
	r.FailedItems = append(r.FailedItems, BulkFailure{VendorID: id, Reason: reason})
	r.Failed++
}

// failRemaining marks ids[from:] as failed; used when the caller cancels
// mid-run. Items already committed stay committed.
func (r *BulkOperationResult) failRemaining(ids []int64, from int, reason string) {
	for _, id := range ids[from:] {
		r.fail(id, reason)
	}
}

// itemReason converts a per-item error into a failure-list entry.
func itemReason(err error) string {
	if apperr.IsNotFound(err) {
		return "vendor not found"
	}
	return err.Error()
}

// ── Bulk status update ────────────────────────────────────────────────────────

// BulkStatusUpdateRequest is an administrative status override across vendors.
type BulkStatusUpdateRequest struct {
	VendorIDs []int64
	Status    repository.VendorStatus
	Reason    string
	ActorID   string
}

// BulkStatusUpdate overwrites the status of each vendor directly, bypassing
// the aggregator and leaving the approval ledger untouched. Each vendor is
// its own short transaction, which is what yields per-item isolation.
func (s *BulkService) BulkStatusUpdate(ctx context.Context, req *BulkStatusUpdateRequest) (*BulkOperationResult, error) {
	if len(req.VendorIDs) == 0 {
		return nil, apperr.InvalidInput("vendor_ids", "vendor id list must not be empty")
	}
	if !repository.ValidVendorStatus(req.Status) {
		return nil, apperr.InvalidInput("status", "invalid vendor status")
	}
	if req.ActorID == "" {
		return nil, apperr.InvalidInput("actor_id", "actor id is required")
	}

	result := newBulkResult(req.VendorIDs)

	for i, id := range req.VendorIDs {
		if ctx.Err() != nil {
			result.failRemaining(req.VendorIDs, i, "operation canceled")
			break
		}

		vendor, err := s.store.GetVendor(ctx, id)
		if err != nil {
			result.fail(id, itemReason(err))
			continue
		}

		if req.Status == repository.VendorStatusApproved {
			err = s.store.ApproveVendor(ctx, id, req.ActorID)
		} else {
			err = s.store.UpdateVendorStatus(ctx, id, req.Status)
		}
		if err != nil {
			result.fail(id, itemReason(err))
			continue
		}

		result.succeed(id)

		before, after := string(vendor.Status), string(req.Status)
		vendorID := id
		s.appendAudit(ctx, &repository.AuditEntry{
			VendorID:     &vendorID,
			Action:       "bulk_status_update",
			PerformedBy:  req.ActorID,
			StatusBefore: &before,
			StatusAfter:  &after,
			Metadata:     map[string]interface{}{"reason": req.Reason},
		})
	}

	s.finish(ctx, "bulk_status_update", req.ActorID, result, map[string]interface{}{
		"status": string(req.Status),
		"reason": req.Reason,
	})
	return result, nil
}

// ── Bulk delete ───────────────────────────────────────────────────────────────

// BulkDeleteRequest removes a set of vendors and their owned approvals.
type BulkDeleteRequest struct {
	VendorIDs []int64
	Reason    string
	ActorID   string
}

// BulkDelete deletes each existing vendor, snapshotting code and name into
// the audit log before the row disappears. Missing ids are reported as
// failures, not fatal errors.
func (s *BulkService) BulkDelete(ctx context.Context, req *BulkDeleteRequest) (*BulkOperationResult, error) {
	if len(req.VendorIDs) == 0 {
		return nil, apperr.InvalidInput("vendor_ids", "vendor id list must not be empty")
	}
	if req.ActorID == "" {
		return nil, apperr.InvalidInput("actor_id", "actor id is required")
	}

	result := newBulkResult(req.VendorIDs)

	for i, id := range req.VendorIDs {
		if ctx.Err() != nil {
			result.failRemaining(req.VendorIDs, i, "operation canceled")
			break
		}

		vendor, err := s.store.GetVendor(ctx, id)
		if err != nil {
			result.fail(id, itemReason(err))
			continue
		}

		// Snapshot before delete; the FK on the audit table is SET NULL so
		// this entry survives the cascade.
		vendorID := id
		s.appendAudit(ctx, &repository.AuditEntry{
			VendorID:    &vendorID,
			Action:      "bulk_delete",
			PerformedBy: req.ActorID,
			Metadata: map[string]interface{}{
				"vendor_code":  vendor.VendorCode,
				"company_name": vendor.CompanyName,
				"reason":       req.Reason,
			},
		})

		if err := s.store.DeleteVendor(ctx, id); err != nil {
			result.fail(id, itemReason(err))
			continue
		}

		result.succeed(id)
	}

	s.finish(ctx, "bulk_delete", req.ActorID, result, map[string]interface{}{
		"reason": req.Reason,
	})
	return result, nil
}

// ── Bulk export ───────────────────────────────────────────────────────────────

// Export formats accepted by BulkExport.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// BulkExportRequest selects vendors and a serialization format.
type BulkExportRequest struct {
	VendorIDs []int64
	Format    string
}

// BulkExportResult carries the projection alongside the per-item summary.
type BulkExportResult struct {
	Result  *BulkOperationResult
	Format  string
	Records []export.VendorRecord
}

// BulkExport reads the requested vendors and builds their projection in
// input order. Pure read: no ledger or vendor mutation, no audit entries per
// vendor, only the summary.
func (s *BulkService) BulkExport(ctx context.Context, req *BulkExportRequest) (*BulkExportResult, error) {
	if len(req.VendorIDs) == 0 {
		return nil, apperr.InvalidInput("vendor_ids", "vendor id list must not be empty")
	}
	format := strings.ToLower(req.Format)
	if format != FormatJSON && format != FormatCSV {
		return nil, apperr.InvalidInput("format", "unsupported export format")
	}

	vendors, err := s.store.ListVendorsByIDs(ctx, req.VendorIDs)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*repository.Vendor, len(vendors))
	for _, v := range vendors {
		byID[v.ID] = v
	}

	result := newBulkResult(req.VendorIDs)
	records := make([]export.VendorRecord, 0, len(req.VendorIDs))

	for _, id := range req.VendorIDs {
		v, ok := byID[id]
		if !ok {
			result.fail(id, "vendor not found")
			continue
		}
		records = append(records, export.FromVendor(v))
		result.succeed(id)
	}

	s.log.Info().
		Int("requested", len(req.VendorIDs)).
		Int("exported", result.Succeeded).
		Str("format", format).
		Msg("Bulk export completed")

	return &BulkExportResult{Result: result, Format: format, Records: records}, nil
}

// ── Bulk import ───────────────────────────────────────────────────────────────

// VendorImportRecord is one pre-parsed row of a vendor import; file parsing
// is the transport's concern.
type VendorImportRecord struct {
	CompanyName       string  `json:"company_name"`
	BusinessVertical  string  `json:"business_vertical"`
	CountryOrigin     string  `json:"country_origin"`
	ContactPersonName string  `json:"contact_person_name"`
	Email             string  `json:"email"`
	PhoneNumber       string  `json:"phone_number"`
	SupplierType      *string `json:"supplier_type,omitempty"`
}

// BulkImportRequest creates vendors from pre-parsed records.
type BulkImportRequest struct {
	Records []VendorImportRecord
	ActorID string
}

// BulkImportResult reports per-row outcomes by row index.
type BulkImportResult struct {
	Requested   int           `json:"requested"`
	CreatedIDs  []int64       `json:"created_ids"`
	FailedItems []ImportError `json:"failed_items"`
	Succeeded   int           `json:"succeeded"`
	Failed      int           `json:"failed"`
}

// ImportError is one failed import row.
type ImportError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// BulkImport creates one draft vendor per record with isolate-and-continue
// semantics; duplicate emails and invalid rows are per-row failures.
func (s *BulkService) BulkImport(ctx context.Context, req *BulkImportRequest) (*BulkImportResult, error) {
	if len(req.Records) == 0 {
		return nil, apperr.InvalidInput("records", "record list must not be empty")
	}
	if req.ActorID == "" {
		return nil, apperr.InvalidInput("actor_id", "actor id is required")
	}

	result := &BulkImportResult{
		Requested:   len(req.Records),
		CreatedIDs:  make([]int64, 0, len(req.Records)),
		FailedItems: make([]ImportError, 0),
	}

	for i, rec := range req.Records {
		if ctx.Err() != nil {
			for j := i; j < len(req.Records); j++ {
				result.FailedItems = append(result.FailedItems, ImportError{Row: j, Reason: "operation canceled"})
				result.Failed++
			}
			break
		}

		if rec.CompanyName == "" || rec.Email == "" || !strings.Contains(rec.Email, "@") {
			result.FailedItems = append(result.FailedItems, ImportError{Row: i, Reason: "company name and a valid email are required"})
			result.Failed++
			continue
		}

		vendor := &repository.Vendor{
			VendorCode:        generateVendorCode(),
			CompanyName:       rec.CompanyName,
			BusinessVertical:  rec.BusinessVertical,
			CountryOrigin:     rec.CountryOrigin,
			ContactPersonName: rec.ContactPersonName,
			Email:             rec.Email,
			PhoneNumber:       rec.PhoneNumber,
			SupplierType:      rec.SupplierType,
			Status:            repository.VendorStatusDraft,
		}

		if err := s.store.CreateVendor(ctx, vendor); err != nil {
			result.FailedItems = append(result.FailedItems, ImportError{Row: i, Reason: err.Error()})
			result.Failed++
			continue
		}

		result.CreatedIDs = append(result.CreatedIDs, vendor.ID)
		result.Succeeded++

		vendorID := vendor.ID
		s.appendAudit(ctx, &repository.AuditEntry{
			VendorID:    &vendorID,
			Action:      "bulk_import",
			PerformedBy: req.ActorID,
			Metadata:    map[string]interface{}{"vendor_code": vendor.VendorCode, "row": i},
		})
	}

	s.log.Info().
		Int("requested", result.Requested).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Msg("Bulk import completed")

	s.appendAudit(ctx, &repository.AuditEntry{
		Action:      "bulk_import_summary",
		PerformedBy: req.ActorID,
		Metadata: map[string]interface{}{
			"requested": result.Requested,
			"succeeded": result.Succeeded,
			"failed":    result.Failed,
		},
	})
	return result, nil
}

// ── shared helpers ────────────────────────────────────────────────────────────

// finish logs the outcome, writes the summary audit entry and publishes the
// summary event for a bulk operation.
func (s *BulkService) finish(ctx context.Context, action, actorID string, result *BulkOperationResult, extra map[string]interface{}) {
	s.log.Info().
		Str("operation", action).
		Int("requested", len(result.RequestedIDs)).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Msg("Bulk operation completed")

	metadata := map[string]interface{}{
		"requested": len(result.RequestedIDs),
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	}
	for k, v := range extra {
		metadata[k] = v
	}

	s.appendAudit(ctx, &repository.AuditEntry{
		Action:      action + "_summary",
		PerformedBy: actorID,
		Metadata:    metadata,
	})
	if s.events != nil {
		s.events.Publish(ctx, action, nil, actorID, metadata)
	}
}

func (s *BulkService) appendAudit(ctx context.Context, entry *repository.AuditEntry) {
	if err := s.store.AppendAudit(ctx, entry); err != nil {
		s.log.Warn().Err(err).
			Str("action", entry.Action).
			Msg("Failed to write audit log entry")
	}
}

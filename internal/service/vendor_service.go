package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/pesio-ai/be-vendor-onboarding/internal/apperr"
	"github.com/pesio-ai/be-vendor-onboarding/internal/logger"
	"github.com/pesio-ai/be-vendor-onboarding/internal/repository"
)

// VendorService handles vendor registration and the manual lifecycle
// transitions (submit, suspend, reinstate) that bypass the aggregator.
type VendorService struct {
	store  Store
	events EventPublisher
	log    *logger.Logger
}

// NewVendorService creates a new VendorService.
func NewVendorService(store Store, events EventPublisher, log *logger.Logger) *VendorService {
	return &VendorService{store: store, events: events, log: log}
}

// CreateVendorRequest represents a vendor registration.
type CreateVendorRequest struct {
	CompanyName         string
	BusinessVertical    string
	CountryOrigin       string
	ContactPersonName   string
	Email               string
	PhoneNumber         string
	Website             *string
	YearEstablished     *int
	BusinessDescription *string
	SupplierType        *string
	ActorID             string
}

// UpdateVendorRequest carries the mutable profile fields; nil fields keep
// their current value.
type UpdateVendorRequest struct {
	VendorID            int64
	CompanyName         *string
	BusinessVertical    *string
	CountryOrigin       *string
	ContactPersonName   *string
	Email               *string
	PhoneNumber         *string
	Website             *string
	YearEstablished     *int
	BusinessDescription *string
	SupplierType        *string
	ActorID             string
}

// generateVendorCode mints an immutable vendor code, e.g. VND1A2B3C4D.
func generateVendorCode() string {
	return "VND" + strings.ToUpper(uuid.NewString()[:8])
}

// CreateVendor registers a new vendor in draft status with a generated code.
func (s *VendorService) CreateVendor(ctx context.Context, req *CreateVendorRequest) (*repository.Vendor, error) {
	if req.CompanyName == "" {
		return nil, apperr.InvalidInput("company_name", "company name is required")
	}
	if req.BusinessVertical == "" {
		return nil, apperr.InvalidInput("business_vertical", "business vertical is required")
	}
	if req.CountryOrigin == "" {
		return nil, apperr.InvalidInput("country_origin", "country of origin is required")
	}
	if req.ContactPersonName == "" {
		return nil, apperr.InvalidInput("contact_person_name", "contact person name is required")
	}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return nil, apperr.InvalidInput("email", "a valid email is required")
	}
	if req.PhoneNumber == "" {
		return nil, apperr.InvalidInput("phone_number", "phone number is required")
	}

	exists, err := s.store.VendorEmailExists(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.Conflict("vendor with this email already exists")
	}

	vendor := &repository.Vendor{
		VendorCode:          generateVendorCode(),
		CompanyName:         req.CompanyName,
		BusinessVertical:    req.BusinessVertical,
		CountryOrigin:       req.CountryOrigin,
		ContactPersonName:   req.ContactPersonName,
		Email:               req.Email,
		PhoneNumber:         req.PhoneNumber,
		Website:             req.Website,
		YearEstablished:     req.YearEstablished,
		BusinessDescription: req.BusinessDescription,
		SupplierType:        req.SupplierType,
		Status:              repository.VendorStatusDraft,
	}

	if err := s.store.CreateVendor(ctx, vendor); err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("vendor_id", vendor.ID).
		Str("vendor_code", vendor.VendorCode).
		Str("company_name", vendor.CompanyName).
		Msg("Vendor created")

	s.appendAudit(ctx, &repository.AuditEntry{
		VendorID:    &vendor.ID,
		Action:      "vendor_created",
		PerformedBy: req.ActorID,
		Metadata:    map[string]interface{}{"vendor_code": vendor.VendorCode},
	})
	s.publish(ctx, "vendor_created", &vendor.ID, req.ActorID, map[string]interface{}{
		"vendor_code": vendor.VendorCode,
	})

	return vendor, nil
}

// GetVendor retrieves a vendor by id.
func (s *VendorService) GetVendor(ctx context.Context, id int64) (*repository.Vendor, error) {
	return s.store.GetVendor(ctx, id)
}

// ListVendors lists vendors with filtering and pagination.
func (s *VendorService) ListVendors(ctx context.Context, status *repository.VendorStatus, search *string, page, pageSize int) ([]*repository.Vendor, int64, error) {
	if status != nil && !repository.ValidVendorStatus(*status) {
		return nil, 0, apperr.InvalidInput("status", "invalid vendor status")
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 25
	}
	return s.store.ListVendors(ctx, repository.VendorFilter{
		Status: status,
		Search: search,
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
}

// UpdateVendor overwrites the supplied profile fields.
func (s *VendorService) UpdateVendor(ctx context.Context, req *UpdateVendorRequest) (*repository.Vendor, error) {
	vendor, err := s.store.GetVendor(ctx, req.VendorID)
	if err != nil {
		return nil, err
	}

	if req.CompanyName != nil {
		vendor.CompanyName = *req.CompanyName
	}
	if req.BusinessVertical != nil {
		vendor.BusinessVertical = *req.BusinessVertical
	}
	if req.CountryOrigin != nil {
		vendor.CountryOrigin = *req.CountryOrigin
	}
	if req.ContactPersonName != nil {
		vendor.ContactPersonName = *req.ContactPersonName
	}
	if req.Email != nil {
		if !strings.Contains(*req.Email, "@") {
			return nil, apperr.InvalidInput("email", "a valid email is required")
		}
		vendor.Email = *req.Email
	}
	if req.PhoneNumber != nil {
		vendor.PhoneNumber = *req.PhoneNumber
	}
	if req.Website != nil {
		vendor.Website = req.Website
	}
	if req.YearEstablished != nil {
		vendor.YearEstablished = req.YearEstablished
	}
	if req.BusinessDescription != nil {
		vendor.BusinessDescription = req.BusinessDescription
	}
	if req.SupplierType != nil {
		vendor.SupplierType = req.SupplierType
	}

	if err := s.store.UpdateVendor(ctx, vendor); err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("vendor_id", vendor.ID).
		Str("vendor_code", vendor.VendorCode).
		Msg("Vendor updated")

	return vendor, nil
}

// SubmitVendor moves a draft vendor into pending; the one manual transition
// on the happy path.
func (s *VendorService) SubmitVendor(ctx context.Context, vendorID int64, actorID string) error {
	err := s.store.InVendorTx(ctx, vendorID, func(tx repository.VendorTx) error {
		vendor := tx.Vendor()
		if vendor.Status != repository.VendorStatusDraft {
			return apperr.Conflict("only draft vendors can be submitted")
		}
		return tx.SetStatus(ctx, repository.VendorStatusPending)
	})
	if err != nil {
		return err
	}

	s.log.Info().Int64("vendor_id", vendorID).Str("actor_id", actorID).Msg("Vendor submitted for review")

	before, after := string(repository.VendorStatusDraft), string(repository.VendorStatusPending)
	s.appendAudit(ctx, &repository.AuditEntry{
		VendorID:     &vendorID,
		Action:       "submitted",
		PerformedBy:  actorID,
		StatusBefore: &before,
		StatusAfter:  &after,
	})
	s.publish(ctx, "submitted", &vendorID, actorID, nil)
	return nil
}

// SuspendVendor administratively overrides the vendor status to suspended.
// While suspended the vendor is excluded from re-aggregation: decisions still
// land in the ledger but the status stays suspended until reinstatement.
func (s *VendorService) SuspendVendor(ctx context.Context, vendorID int64, actorID, reason string) error {
	var before repository.VendorStatus

	err := s.store.InVendorTx(ctx, vendorID, func(tx repository.VendorTx) error {
		vendor := tx.Vendor()
		if vendor.Status == repository.VendorStatusSuspended {
			return apperr.Conflict("vendor is already suspended")
		}
		before = vendor.Status
		return tx.SetStatus(ctx, repository.VendorStatusSuspended)
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Int64("vendor_id", vendorID).
		Str("actor_id", actorID).
		Str("reason", reason).
		Msg("Vendor suspended")

	b, a := string(before), string(repository.VendorStatusSuspended)
	s.appendAudit(ctx, &repository.AuditEntry{
		VendorID:     &vendorID,
		Action:       "suspended",
		PerformedBy:  actorID,
		StatusBefore: &b,
		StatusAfter:  &a,
		Metadata:     map[string]interface{}{"reason": reason},
	})
	s.publish(ctx, "suspended", &vendorID, actorID, map[string]interface{}{"reason": reason})
	return nil
}

// ReinstateVendor lifts a suspension and re-derives the status from the
// current ledger; a vendor with no recorded decisions returns to pending.
func (s *VendorService) ReinstateVendor(ctx context.Context, vendorID int64, actorID string) error {
	var after repository.VendorStatus

	err := s.store.InVendorTx(ctx, vendorID, func(tx repository.VendorTx) error {
		vendor := tx.Vendor()
		if vendor.Status != repository.VendorStatusSuspended {
			return apperr.Conflict("vendor is not suspended")
		}

		approvals, err := tx.ListApprovals(ctx)
		if err != nil {
			return err
		}

		derived, ok := DeriveStatus(approvals)
		if !ok {
			derived = repository.VendorStatusPending
		}
		after = derived

		if derived == repository.VendorStatusApproved {
			return tx.SetApproved(ctx, actorID)
		}
		return tx.SetStatus(ctx, derived)
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Int64("vendor_id", vendorID).
		Str("actor_id", actorID).
		Str("vendor_status", string(after)).
		Msg("Vendor reinstated")

	b, a := string(repository.VendorStatusSuspended), string(after)
	s.appendAudit(ctx, &repository.AuditEntry{
		VendorID:     &vendorID,
		Action:       "reinstated",
		PerformedBy:  actorID,
		StatusBefore: &b,
		StatusAfter:  &a,
	})
	s.publish(ctx, "reinstated", &vendorID, actorID, nil)
	return nil
}

// DeleteVendor removes one vendor and its owned approvals. The audit entry
// snapshots code and name before the row disappears.
func (s *VendorService) DeleteVendor(ctx context.Context, vendorID int64, actorID string) error {
	vendor, err := s.store.GetVendor(ctx, vendorID)
	if err != nil {
		return err
	}

	s.appendAudit(ctx, &repository.AuditEntry{
		VendorID:    &vendorID,
		Action:      "deleted",
		PerformedBy: actorID,
		Metadata: map[string]interface{}{
			"vendor_code":  vendor.VendorCode,
			"company_name": vendor.CompanyName,
		},
	})

	if err := s.store.DeleteVendor(ctx, vendorID); err != nil {
		return err
	}

	s.log.Info().
		Int64("vendor_id", vendorID).
		Str("vendor_code", vendor.VendorCode).
		Msg("Vendor deleted")

	s.publish(ctx, "deleted", &vendorID, actorID, map[string]interface{}{
		"vendor_code": vendor.VendorCode,
	})
	return nil
}

// GetAuditTrail returns the audit log for one vendor.
func (s *VendorService) GetAuditTrail(ctx context.Context, vendorID int64) ([]*repository.AuditEntry, error) {
	if _, err := s.store.GetVendor(ctx, vendorID); err != nil {
		return nil, err
	}
	return s.store.ListAudit(ctx, vendorID)
}

func (s *VendorService) appendAudit(ctx context.Context, entry *repository.AuditEntry) {
	if err := s.store.AppendAudit(ctx, entry); err != nil {
		s.log.Warn().Err(err).
			Str("action", entry.Action).
			Msg("Failed to write audit log entry")
	}
}

func (s *VendorService) publish(ctx context.Context, action string, vendorID *int64, actorID string, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, action, vendorID, actorID, payload)
}

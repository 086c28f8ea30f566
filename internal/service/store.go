package service

import (
	"context"

	"github.com/pesio-ai/be-vendor-onboarding/internal/repository"
)

// Store is the persistence surface the services depend on. The production
// implementation is repository.Store; tests substitute an in-memory fake.
type Store interface {
	CreateVendor(ctx context.Context, v *repository.Vendor) error
	GetVendor(ctx context.Context, id int64) (*repository.Vendor, error)
	VendorEmailExists(ctx context.Context, email string) (bool, error)
	ListVendors(ctx context.Context, filter repository.VendorFilter) ([]*repository.Vendor, int64, error)
	ListVendorsByIDs(ctx context.Context, ids []int64) ([]*repository.Vendor, error)
	UpdateVendor(ctx context.Context, v *repository.Vendor) error
	UpdateVendorStatus(ctx context.Context, id int64, status repository.VendorStatus) error
	ApproveVendor(ctx context.Context, id int64, approvedBy string) error
	DeleteVendor(ctx context.Context, id int64) error
	WorkflowStats(ctx context.Context) (*repository.WorkflowStats, error)

	ListApprovals(ctx context.Context, vendorID int64) ([]*repository.Approval, error)
	ListPendingApprovals(ctx context.Context, approverID string, level *repository.ApprovalLevel, limit, offset int) ([]*repository.Approval, error)
	ApproverStats(ctx context.Context, approverID string) (*repository.ApproverStats, error)

	AppendAudit(ctx context.Context, entry *repository.AuditEntry) error
	ListAudit(ctx context.Context, vendorID int64) ([]*repository.AuditEntry, error)

	// InVendorTx runs fn with the vendor row locked; the ledger upsert,
	// aggregation and status write execute as one atomic unit inside it.
	InVendorTx(ctx context.Context, vendorID int64, fn func(tx repository.VendorTx) error) error
}

// EventPublisher emits audit/approval events to the message bus. Publishing
// is fire-and-forget; implementations never return errors to the caller.
type EventPublisher interface {
	Publish(ctx context.Context, action string, vendorID *int64, actorID string, payload map[string]interface{})
}

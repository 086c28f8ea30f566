package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-vendor-onboarding/internal/database"
)

// VendorTx is the write surface handed to a vendor-scoped transaction
// callback. The vendor row is locked for the life of the transaction, so the
// upsert → aggregate → status-write sequence cannot interleave with a
// concurrent decision on the same vendor.
type VendorTx interface {
	// Vendor returns the row-locked snapshot read when the transaction opened.
	Vendor() *Vendor
	GetApproval(ctx context.Context, level ApprovalLevel) (*Approval, error)
	UpsertApproval(ctx context.Context, a *Approval) error
	ListApprovals(ctx context.Context) ([]*Approval, error)
	SetStatus(ctx context.Context, status VendorStatus) error
	SetApproved(ctx context.Context, approvedBy string) error
}

// Store binds the repositories to one database and provides the
// vendor-scoped transaction boundary the services run inside.
type Store struct {
	db        *database.DB
	Vendors   *VendorRepository
	Approvals *ApprovalRepository
	Audit     *AuditRepository
}

// NewStore creates a Store over the given database.
func NewStore(db *database.DB) *Store {
	return &Store{
		db:        db,
		Vendors:   NewVendorRepository(db.Pool()),
		Approvals: NewApprovalRepository(db.Pool()),
		Audit:     NewAuditRepository(db.Pool()),
	}
}

// InVendorTx opens a transaction, locks the vendor row, and runs fn against
// transaction-bound repositories. Returns NotFound without invoking fn when
// the vendor does not exist.
func (s *Store) InVendorTx(ctx context.Context, vendorID int64, fn func(tx VendorTx) error) error {
	return s.db.InTransaction(ctx, func(tx pgx.Tx) error {
		vendors := s.Vendors.WithTx(tx)

		vendor, err := vendors.GetForUpdate(ctx, vendorID)
		if err != nil {
			return err
		}

		return fn(&vendorTx{
			vendor:    vendor,
			vendors:   vendors,
			approvals: s.Approvals.WithTx(tx),
		})
	})
}

// ── Store-level delegates (pool-bound, no explicit transaction) ──────────────

func (s *Store) CreateVendor(ctx context.Context, v *Vendor) error { return s.Vendors.Create(ctx, v) }

func (s *Store) GetVendor(ctx context.Context, id int64) (*Vendor, error) {
	return s.Vendors.GetByID(ctx, id)
}

func (s *Store) VendorEmailExists(ctx context.Context, email string) (bool, error) {
	return s.Vendors.ExistsByEmail(ctx, email)
}

func (s *Store) ListVendors(ctx context.Context, filter VendorFilter) ([]*Vendor, int64, error) {
	return s.Vendors.List(ctx, filter)
}

func (s *Store) ListVendorsByIDs(ctx context.Context, ids []int64) ([]*Vendor, error) {
	return s.Vendors.ListByIDs(ctx, ids)
}

func (s *Store) UpdateVendor(ctx context.Context, v *Vendor) error { return s.Vendors.Update(ctx, v) }

// UpdateVendorStatus is the administrative status write used by manual and
// bulk transitions. A single UPDATE is serialized by the row lock in
// Postgres, so each bulk item is its own short transaction.
func (s *Store) UpdateVendorStatus(ctx context.Context, id int64, status VendorStatus) error {
	return s.Vendors.UpdateStatus(ctx, id, status)
}

func (s *Store) ApproveVendor(ctx context.Context, id int64, approvedBy string) error {
	return s.Vendors.SetApproved(ctx, id, approvedBy)
}

func (s *Store) DeleteVendor(ctx context.Context, id int64) error { return s.Vendors.Delete(ctx, id) }

func (s *Store) WorkflowStats(ctx context.Context) (*WorkflowStats, error) {
	return s.Vendors.WorkflowStats(ctx)
}

func (s *Store) ListApprovals(ctx context.Context, vendorID int64) ([]*Approval, error) {
	return s.Approvals.ListByVendor(ctx, vendorID)
}

func (s *Store) ListPendingApprovals(ctx context.Context, approverID string, level *ApprovalLevel, limit, offset int) ([]*Approval, error) {
	return s.Approvals.ListPendingForApprover(ctx, approverID, level, limit, offset)
}

func (s *Store) ApproverStats(ctx context.Context, approverID string) (*ApproverStats, error) {
	return s.Approvals.StatsForApprover(ctx, approverID)
}

func (s *Store) AppendAudit(ctx context.Context, entry *AuditEntry) error {
	return s.Audit.Append(ctx, entry)
}

func (s *Store) ListAudit(ctx context.Context, vendorID int64) ([]*AuditEntry, error) {
	return s.Audit.ListByVendor(ctx, vendorID)
}

// ── vendorTx ──────────────────────────────────────────────────────────────────

type vendorTx struct {
	vendor    *Vendor
	vendors   *VendorRepository
	approvals *ApprovalRepository
}

func (t *vendorTx) Vendor() *Vendor { return t.vendor }

func (t *vendorTx) GetApproval(ctx context.Context, level ApprovalLevel) (*Approval, error) {
	return t.approvals.GetByVendorAndLevel(ctx, t.vendor.ID, level)
}

func (t *vendorTx) UpsertApproval(ctx context.Context, a *Approval) error {
	a.VendorID = t.vendor.ID
	return t.approvals.Upsert(ctx, a)
}

func (t *vendorTx) ListApprovals(ctx context.Context) ([]*Approval, error) {
	return t.approvals.ListByVendor(ctx, t.vendor.ID)
}

func (t *vendorTx) SetStatus(ctx context.Context, status VendorStatus) error {
	return t.vendors.UpdateStatus(ctx, t.vendor.ID, status)
}

func (t *vendorTx) SetApproved(ctx context.Context, approvedBy string) error {
	return t.vendors.SetApproved(ctx, t.vendor.ID, approvedBy)
}

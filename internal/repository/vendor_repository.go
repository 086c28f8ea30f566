package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pesio-ai/be-vendor-onboarding/internal/apperr"
	"github.com/pesio-ai/be-vendor-onboarding/internal/database"
)

const vendorColumns = `id, vendor_code, company_name, business_vertical, country_origin,
	       contact_person_name, email, phone_number, website, year_established,
	       business_description, supplier_type, status,
	       approved_at, approved_by, created_at, updated_at`

// VendorRepository handles vendor record persistence.
type VendorRepository struct {
	q database.Querier
}

// NewVendorRepository creates a new VendorRepository bound to a pool or tx.
func NewVendorRepository(q database.Querier) *VendorRepository {
	return &VendorRepository{q: q}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *VendorRepository) WithTx(tx pgx.Tx) *VendorRepository {
	return &VendorRepository{q: tx}
}

// Create inserts a vendor. Duplicate email or vendor code is a conflict.
func (r *VendorRepository) Create(ctx context.Context, v *Vendor) error {
	query := `
		INSERT INTO vendors (vendor_code, company_name, business_vertical, country_origin,
		                     contact_person_name, email, phone_number, website, year_established,
		                     business_description, supplier_type, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::vendor_status)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		v.VendorCode,
		v.CompanyName,
		v.BusinessVertical,
		v.CountryOrigin,
		v.ContactPersonName,
		v.Email,
		v.PhoneNumber,
		v.Website,
		v.YearEstablished,
		v.BusinessDescription,
		v.SupplierType,
		v.Status,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)

	if isUniqueViolation(err) {
		return apperr.Conflict("vendor with this email or code already exists")
	}
	if err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "failed to create vendor")
	}
	return nil
}

// GetByID retrieves a vendor by primary key.
func (r *VendorRepository) GetByID(ctx context.Context, id int64) (*Vendor, error) {
	query := fmt.Sprintf(`SELECT %s FROM vendors WHERE id = $1`, vendorColumns)

	v, err := r.scanVendor(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("vendor", id)
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to get vendor")
	}
	return v, nil
}

// GetForUpdate retrieves a vendor with a row lock. Only meaningful inside a
// transaction; the lock serializes concurrent approval writes per vendor.
func (r *VendorRepository) GetForUpdate(ctx context.Context, id int64) (*Vendor, error) {
	query := fmt.Sprintf(`SELECT %s FROM vendors WHERE id = $1 FOR UPDATE`, vendorColumns)

	v, err := r.scanVendor(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("vendor", id)
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to lock vendor")
	}
	return v, nil
}

// ExistsByEmail reports whether any vendor already uses the given email.
func (r *VendorRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM vendors WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, apperr.Wrap(err, apperr.CodeInternal, "failed to check vendor email")
	}
	return exists, nil
}

// List retrieves vendors with filtering and pagination, newest first.
func (r *VendorRepository) List(ctx context.Context, filter VendorFilter) ([]*Vendor, int64, error) {
	query := fmt.Sprintf(`SELECT %s FROM vendors WHERE 1=1`, vendorColumns)
	countQuery := `SELECT COUNT(*) FROM vendors WHERE 1=1`

	args := []any{}
	argCount := 1

	if filter.Status != nil {
		clause := fmt.Sprintf(" AND status = $%d::vendor_status", argCount)
		query += clause
		countQuery += clause
		args = append(args, *filter.Status)
		argCount++
	}

	if filter.Search != nil {
		clause := fmt.Sprintf(" AND (company_name ILIKE $%d OR vendor_code ILIKE $%d OR email ILIKE $%d)",
			argCount, argCount, argCount)
		query += clause
		countQuery += clause
		args = append(args, "%"+*filter.Search+"%")
		argCount++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	queryArgs := append(args, filter.Limit, filter.Offset)

	var total int64
	if err := r.q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Wrap(err, apperr.CodeInternal, "failed to count vendors")
	}

	rows, err := r.q.Query(ctx, query, queryArgs...)
	if err != nil {
		return nil, 0, apperr.Wrap(err, apperr.CodeInternal, "failed to list vendors")
	}
	defer rows.Close()

	vendors, err := r.scanRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return vendors, total, nil
}

// ListByIDs retrieves the vendors whose ids appear in ids. Missing ids are
// simply absent from the result; callers decide how to report them.
func (r *VendorRepository) ListByIDs(ctx context.Context, ids []int64) ([]*Vendor, error) {
	query := fmt.Sprintf(`SELECT %s FROM vendors WHERE id = ANY($1)`, vendorColumns)

	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to list vendors by ids")
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// Update overwrites the mutable profile fields of a vendor. Status and the
// approval stamps are owned by the status writers and never touched here.
func (r *VendorRepository) Update(ctx context.Context, v *Vendor) error {
	query := `
		UPDATE vendors
		SET company_name         = $2,
		    business_vertical    = $3,
		    country_origin       = $4,
		    contact_person_name  = $5,
		    email                = $6,
		    phone_number         = $7,
		    website              = $8,
		    year_established     = $9,
		    business_description = $10,
		    supplier_type        = $11,
		    updated_at           = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query,
		v.ID,
		v.CompanyName,
		v.BusinessVertical,
		v.CountryOrigin,
		v.ContactPersonName,
		v.Email,
		v.PhoneNumber,
		v.Website,
		v.YearEstablished,
		v.BusinessDescription,
		v.SupplierType,
	).Scan(&v.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("vendor", v.ID)
	}
	if isUniqueViolation(err) {
		return apperr.Conflict("vendor with this email already exists")
	}
	if err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "failed to update vendor")
	}
	return nil
}

// UpdateStatus writes the vendor lifecycle status. Transitions out of
// approved clear the approval stamps so they only ever describe the current
// status.
func (r *VendorRepository) UpdateStatus(ctx context.Context, id int64, status VendorStatus) error {
	query := `
		UPDATE vendors
		SET status      = $2::vendor_status,
		    approved_at = NULL,
		    approved_by = NULL,
		    updated_at  = NOW()
		WHERE id = $1
		RETURNING id
	`

	var returnedID int64
	err := r.q.QueryRow(ctx, query, id, status).Scan(&returnedID)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("vendor", id)
	}
	if err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "failed to update vendor status")
	}
	return nil
}

// SetApproved transitions a vendor into approved, stamping approved_at and
// the actor whose decision completed the approval set.
func (r *VendorRepository) SetApproved(ctx context.Context, id int64, approvedBy string) error {
	query := `
		UPDATE vendors
		SET status      = 'approved'::vendor_status,
		    approved_at = NOW(),
		    approved_by = $2,
		    updated_at  = NOW()
		WHERE id = $1
		RETURNING id
	`

	var returnedID int64
	err := r.q.QueryRow(ctx, query, id, approvedBy).Scan(&returnedID)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("vendor", id)
	}
	if err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "failed to approve vendor")
	}
	return nil
}

// Delete removes a vendor. Approvals cascade; audit rows keep their snapshot
// with vendor_id nulled.
func (r *VendorRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM vendors WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "failed to delete vendor")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("vendor", id)
	}
	return nil
}

// WorkflowStats returns the dashboard counters.
func (r *VendorRepository) WorkflowStats(ctx context.Context) (*WorkflowStats, error) {
	query := `
		SELECT
		    COUNT(*) FILTER (WHERE status = 'pending'),
		    COUNT(*) FILTER (WHERE status = 'under_review'),
		    COUNT(*) FILTER (WHERE status = 'approved' AND approved_at >= date_trunc('day', NOW())),
		    COUNT(*) FILTER (WHERE status = 'rejected' AND updated_at >= NOW() - INTERVAL '7 days')
		FROM vendors
	`

	stats := &WorkflowStats{}
	err := r.q.QueryRow(ctx, query).Scan(
		&stats.PendingLevel1,
		&stats.PendingLevel2,
		&stats.ApprovedToday,
		&stats.RejectedThisWeek,
	)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to get workflow stats")
	}
	return stats, nil
}

// ── scan helpers ──────────────────────────────────────────────────────────────

type vendorScanner interface {
	Scan(dest ...any) error
}

func (r *VendorRepository) scanVendor(row vendorScanner) (*Vendor, error) {
	v := &Vendor{}
	err := row.Scan(
		&v.ID,
		&v.VendorCode,
		&v.CompanyName,
		&v.BusinessVertical,
		&v.CountryOrigin,
		&v.ContactPersonName,
		&v.Email,
		&v.PhoneNumber,
		&v.Website,
		&v.YearEstablished,
		&v.BusinessDescription,
		&v.SupplierType,
		&v.Status,
		&v.ApprovedAt,
		&v.ApprovedBy,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *VendorRepository) scanRows(rows pgx.Rows) ([]*Vendor, error) {
	vendors := make([]*Vendor, 0)
	for rows.Next() {
		v, err := r.scanVendor(rows)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to scan vendor")
		}
		vendors = append(vendors, v)
	}
	return vendors, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

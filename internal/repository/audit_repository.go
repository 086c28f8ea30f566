package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-vendor-onboarding/internal/apperr"
	"github.com/pesio-ai/be-vendor-onboarding/internal/database"
)

// AuditRepository appends and reads immutable audit log entries. The table
// has a delete-prevention trigger so Append is the only mutation exposed.
type AuditRepository struct {
	q database.Querier
}

// NewAuditRepository creates a new AuditRepository bound to a pool or tx.
func NewAuditRepository(q database.Querier) *AuditRepository {
	return &AuditRepository{q: q}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *AuditRepository) WithTx(tx pgx.Tx) *AuditRepository {
	return &AuditRepository{q: tx}
}

// Append inserts one audit entry.
func (r *AuditRepository) Append(ctx context.Context, entry *AuditEntry) error {
	var metadataJSON []byte
	if entry.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return apperr.Wrap(err, apperr.CodeInternal, "failed to marshal audit metadata")
		}
	}

	query := `
		INSERT INTO vendor_audit_log
		    (vendor_id, action, performed_by, status_before, status_after, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, performed_at
	`

	err := r.q.QueryRow(ctx, query,
		entry.VendorID,
		entry.Action,
		entry.PerformedBy,
		entry.StatusBefore,
		entry.StatusAfter,
		metadataJSON,
	).Scan(&entry.ID, &entry.PerformedAt)

	if err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "failed to append audit entry")
	}
	return nil
}

// ListByVendor returns the audit trail for a vendor ordered oldest-first.
func (r *AuditRepository) ListByVendor(ctx context.Context, vendorID int64) ([]*AuditEntry, error) {
	query := `
		SELECT id, vendor_id, action, performed_by, performed_at,
		       status_before, status_after, metadata
		FROM vendor_audit_log
		WHERE vendor_id = $1
		ORDER BY performed_at ASC
	`

	rows, err := r.q.Query(ctx, query, vendorID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to list audit entries")
	}
	defer rows.Close()

	entries := make([]*AuditEntry, 0)
	for rows.Next() {
		entry := &AuditEntry{}
		var metadataJSON []byte

		err := rows.Scan(
			&entry.ID,
			&entry.VendorID,
			&entry.Action,
			&entry.PerformedBy,
			&entry.PerformedAt,
			&entry.StatusBefore,
			&entry.StatusAfter,
			&metadataJSON,
		)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to scan audit entry")
		}

		if metadataJSON != nil {
			if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
				return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to unmarshal audit metadata")
			}
		}

		entries = append(entries, entry)
	}
	return entries, nil
}

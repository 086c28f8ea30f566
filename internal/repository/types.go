package repository

import "time"

// ── Closed enumerations ───────────────────────────────────────────────────────

// VendorStatus is the vendor lifecycle status.
type VendorStatus string

const (
	VendorStatusDraft       VendorStatus = "draft"
	VendorStatusPending     VendorStatus = "pending"
	VendorStatusUnderReview VendorStatus = "under_review"
	VendorStatusApproved    VendorStatus = "approved"
	VendorStatusRejected    VendorStatus = "rejected"
	VendorStatusSuspended   VendorStatus = "suspended"
)

var vendorStatuses = map[VendorStatus]bool{
	VendorStatusDraft:       true,
	VendorStatusPending:     true,
	VendorStatusUnderReview: true,
	VendorStatusApproved:    true,
	VendorStatusRejected:    true,
	VendorStatusSuspended:   true,
}

// ValidVendorStatus reports whether s is a member of the vendor status enum.
func ValidVendorStatus(s VendorStatus) bool { return vendorStatuses[s] }

// ApprovalLevel is one of the fixed decision slots a vendor accumulates.
type ApprovalLevel string

const (
	ApprovalLevel1     ApprovalLevel = "level_1"
	ApprovalLevel2     ApprovalLevel = "level_2"
	ApprovalLevel3     ApprovalLevel = "level_3"
	ApprovalLevelFinal ApprovalLevel = "final"
)

var approvalLevels = map[ApprovalLevel]bool{
	ApprovalLevel1:     true,
	ApprovalLevel2:     true,
	ApprovalLevel3:     true,
	ApprovalLevelFinal: true,
}

// ValidApprovalLevel reports whether l is a member of the approval level enum.
func ValidApprovalLevel(l ApprovalLevel) bool { return approvalLevels[l] }

// ApprovalStatus is the decision recorded on one approval ledger entry.
type ApprovalStatus string

const (
	ApprovalStatusPending             ApprovalStatus = "pending"
	ApprovalStatusApproved            ApprovalStatus = "approved"
	ApprovalStatusRejected            ApprovalStatus = "rejected"
	ApprovalStatusReturnedForRevision ApprovalStatus = "returned_for_revision"
)

var approvalStatuses = map[ApprovalStatus]bool{
	ApprovalStatusPending:             true,
	ApprovalStatusApproved:            true,
	ApprovalStatusRejected:            true,
	ApprovalStatusReturnedForRevision: true,
}

// ValidApprovalStatus reports whether s is a member of the approval status enum.
func ValidApprovalStatus(s ApprovalStatus) bool { return approvalStatuses[s] }

// ── Domain types ──────────────────────────────────────────────────────────────

// Vendor is a third-party vendor record. VendorCode is immutable once created.
type Vendor struct {
	ID                  int64
	VendorCode          string
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
	Status              VendorStatus
	ApprovedAt          *time.Time
	ApprovedBy          *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Approval is one ledger entry; at most one exists per (vendor, level).
// Re-deciding a level overwrites the entry in place, the audit log keeps
// the history.
type Approval struct {
	ID         int64
	VendorID   int64
	ApproverID string
	Level      ApprovalLevel
	Status     ApprovalStatus
	Comments   *string
	ApprovedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AuditEntry is one immutable record in the audit log. VendorID is nil for
// entries summarizing a bulk operation.
type AuditEntry struct {
	ID           int64
	VendorID     *int64
	Action       string
	PerformedBy  string
	PerformedAt  time.Time
	StatusBefore *string
	StatusAfter  *string
	Metadata     map[string]interface{}
}

// VendorFilter narrows a vendor listing.
type VendorFilter struct {
	Status *VendorStatus
	Search *string
	Limit  int
	Offset int
}

// ApproverStats aggregates ledger entries owned by one approver.
type ApproverStats struct {
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Total    int64 `json:"total"`
}

// WorkflowStats feeds the onboarding dashboard.
type WorkflowStats struct {
	PendingLevel1    int64 `json:"pendingLevel1"`
	PendingLevel2    int64 `json:"pendingLevel2"`
	ApprovedToday    int64 `json:"approvedToday"`
	RejectedThisWeek int64 `json:"rejectedWeek"`
}

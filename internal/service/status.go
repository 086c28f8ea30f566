package service

import "github.com/pesio-ai/be-vendor-onboarding/internal/repository"

// DeriveStatus computes the vendor lifecycle status from the current approval
// set. It is a pure function of the snapshot: no history, no ordering, so
// recomputing after every ledger mutation is always safe.
//
// Rules, in precedence order:
//   - any rejected entry → rejected (absorbing: one rejection overrides any
//     number of approvals until that entry itself is re-decided)
//   - all entries approved → approved
//   - otherwise → under_review
//
// An empty set returns ok=false and the caller keeps the existing status.
// "All recorded levels approved" is deliberately sufficient: there is no
// required minimum level set, so a vendor whose only ledger entry is an
// approved level_1 derives approved.
func DeriveStatus(approvals []*repository.Approval) (repository.VendorStatus, bool) {
	if len(approvals) == 0 {
		return "", false
	}

	allApproved := true
	for _, a := range approvals {
		switch a.Status {
		case repository.ApprovalStatusRejected:
			return repository.VendorStatusRejected, true
		case repository.ApprovalStatusApproved:
			// keeps allApproved
		default:
			allApproved = false
		}
	}

	if allApproved {
		return repository.VendorStatusApproved, true
	}
	return repository.VendorStatusUnderReview, true
}

package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pesio-ai/be-vendor-onboarding/internal/repository"
)

func approval(level repository.ApprovalLevel, status repository.ApprovalStatus) *repository.Approval {
	return &repository.Approval{Level: level, Status: status}
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name      string
		approvals []*repository.Approval
		want      repository.VendorStatus
		wantOK    bool
	}{
		{
			name:      "empty set keeps existing status",
			approvals: nil,
			wantOK:    false,
		},
		{
			name: "single approved entry is sufficient",
			approvals: []*repository.Approval{
				approval(repository.ApprovalLevel1, repository.ApprovalStatusApproved),
			},
			want:   repository.VendorStatusApproved,
			wantOK: true,
		},
		{
			name: "all levels approved",
			approvals: []*repository.Approval{
				approval(repository.ApprovalLevel1, repository.ApprovalStatusApproved),
				approval(repository.ApprovalLevel2, repository.ApprovalStatusApproved),
				approval(repository.ApprovalLevelFinal, repository.ApprovalStatusApproved),
			},
			want:   repository.VendorStatusApproved,
			wantOK: true,
		},
		{
			name: "one rejection overrides any number of approvals",
			approvals: []*repository.Approval{
				approval(repository.ApprovalLevel1, repository.ApprovalStatusApproved),
				approval(repository.ApprovalLevel2, repository.ApprovalStatusRejected),
				approval(repository.ApprovalLevel3, repository.ApprovalStatusApproved),
				approval(repository.ApprovalLevelFinal, repository.ApprovalStatusApproved),
			},
			want:   repository.VendorStatusRejected,
			wantOK: true,
		},
		{
			name: "pending entry keeps vendor under review",
			approvals: []*repository.Approval{
				approval(repository.ApprovalLevel1, repository.ApprovalStatusApproved),
				approval(repository.ApprovalLevel2, repository.ApprovalStatusPending),
			},
			want:   repository.VendorStatusUnderReview,
			wantOK: true,
		},
		{
			name: "returned for revision keeps vendor under review",
			approvals: []*repository.Approval{
				approval(repository.ApprovalLevel1, repository.ApprovalStatusReturnedForRevision),
			},
			want:   repository.VendorStatusUnderReview,
			wantOK: true,
		},
		{
			name: "rejected beats pending",
			approvals: []*repository.Approval{
				approval(repository.ApprovalLevel1, repository.ApprovalStatusPending),
				approval(repository.ApprovalLevel2, repository.ApprovalStatusRejected),
			},
			want:   repository.VendorStatusRejected,
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DeriveStatus(tt.approvals)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

// The derivation is a pure function of the snapshot: entry order must never
// change the result.
func TestDeriveStatusOrderIndependent(t *testing.T) {
	entries := []*repository.Approval{
		approval(repository.ApprovalLevel1, repository.ApprovalStatusApproved),
		approval(repository.ApprovalLevel2, repository.ApprovalStatusRejected),
		approval(repository.ApprovalLevel3, repository.ApprovalStatusPending),
	}

	permutations := [][]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}
	for _, p := range permutations {
		shuffled := []*repository.Approval{entries[p[0]], entries[p[1]], entries[p[2]]}
		got, ok := DeriveStatus(shuffled)
		assert.True(t, ok)
		assert.Equal(t, repository.VendorStatusRejected, got)
	}
}

package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-vendor-onboarding/internal/apperr"
	"github.com/pesio-ai/be-vendor-onboarding/internal/repository"
)

func newVendorService(store *memStore) *VendorService {
	return NewVendorService(store, nopPublisher{}, testLogger())
}

func validCreateRequest() *CreateVendorRequest {
	return &CreateVendorRequest{
		CompanyName:       "Acme Manufacturing",
		BusinessVertical:  "industrial",
		CountryOrigin:     "DE",
		ContactPersonName: "Alex Schmidt",
		Email:             "alex@acme.example",
		PhoneNumber:       "+49 30 1234",
		ActorID:           "admin-1",
	}
}

func TestCreateVendor(t *testing.T) {
	store := newMemStore()
	svc := newVendorService(store)
	ctx := context.Background()

	v, err := svc.CreateVendor(ctx, validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, repository.VendorStatusDraft, v.Status)
	assert.True(t, strings.HasPrefix(v.VendorCode, "VND"))
	assert.Len(t, v.VendorCode, 11)
	assert.Equal(t, strings.ToUpper(v.VendorCode), v.VendorCode)

	entries := store.auditByAction("vendor_created")
	require.Len(t, entries, 1)
	assert.Equal(t, "admin-1", entries[0].PerformedBy)
}

func TestCreateVendorValidation(t *testing.T) {
	store := newMemStore()
	svc := newVendorService(store)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateVendorRequest)
	}{
		{"missing company name", func(r *CreateVendorRequest) { r.CompanyName = "" }},
		{"missing business vertical", func(r *CreateVendorRequest) { r.BusinessVertical = "" }},
		{"missing country", func(r *CreateVendorRequest) { r.CountryOrigin = "" }},
		{"missing contact person", func(r *CreateVendorRequest) { r.ContactPersonName = "" }},
		{"missing email", func(r *CreateVendorRequest) { r.Email = "" }},
		{"malformed email", func(r *CreateVendorRequest) { r.Email = "not-an-email" }},
		{"missing phone", func(r *CreateVendorRequest) { r.PhoneNumber = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(req)
			_, err := svc.CreateVendor(ctx, req)
			assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))
		})
	}
}

func TestCreateVendorDuplicateEmail(t *testing.T) {
	store := newMemStore()
	svc := newVendorService(store)
	ctx := context.Background()

	_, err := svc.CreateVendor(ctx, validCreateRequest())
	require.NoError(t, err)

	_, err = svc.CreateVendor(ctx, validCreateRequest())
	assert.True(t, apperr.IsConflict(err))
}

func TestUpdateVendorMergesFields(t *testing.T) {
	store := newMemStore()
	svc := newVendorService(store)
	ctx := context.Background()

	v, err := svc.CreateVendor(ctx, validCreateRequest())
	require.NoError(t, err)

	name := "Acme Global"
	updated, err := svc.UpdateVendor(ctx, &UpdateVendorRequest{
		VendorID:    v.ID,
		CompanyName: &name,
		ActorID:     "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Global", updated.CompanyName)
	// Untouched fields keep their value.
	assert.Equal(t, v.Email, updated.Email)
	assert.Equal(t, v.VendorCode, updated.VendorCode)
}

func TestSubmitVendorTransitions(t *testing.T) {
	store := newMemStore()
	svc := newVendorService(store)
	ctx := context.Background()

	v, err := svc.CreateVendor(ctx, validCreateRequest())
	require.NoError(t, err)

	require.NoError(t, svc.SubmitVendor(ctx, v.ID, "admin-1"))

	got, err := store.GetVendor(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.VendorStatusPending, got.Status)

	// Only draft vendors can be submitted.
	err = svc.SubmitVendor(ctx, v.ID, "admin-1")
	assert.True(t, apperr.IsConflict(err))
}

func TestSuspendAndReinstate(t *testing.T) {
	store := newMemStore()
	vendorSvc := newVendorService(store)
	approvalSvc := NewApprovalService(store, nopPublisher{}, testLogger())
	ctx := context.Background()

	v := seedVendor(t, store, repository.VendorStatusPending)

	require.NoError(t, vendorSvc.SuspendVendor(ctx, v.ID, "admin-1", "compliance hold"))
	got, err := store.GetVendor(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.VendorStatusSuspended, got.Status)

	err = vendorSvc.SuspendVendor(ctx, v.ID, "admin-1", "again")
	assert.True(t, apperr.IsConflict(err))

	// Decisions recorded while suspended apply on reinstatement.
	_, err = approvalSvc.SubmitDecision(ctx, decide(v.ID, repository.ApprovalLevel1, "rev-1", repository.ApprovalStatusApproved))
	require.NoError(t, err)
	got, err = store.GetVendor(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.VendorStatusSuspended, got.Status)

	require.NoError(t, vendorSvc.ReinstateVendor(ctx, v.ID, "admin-1"))
	got, err = store.GetVendor(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.VendorStatusApproved, got.Status)
	require.NotNil(t, got.ApprovedBy)
	assert.Equal(t, "admin-1", *got.ApprovedBy)
}

func TestReinstateWithEmptyLedgerReturnsToPending(t *testing.T) {
	store := newMemStore()
	svc := newVendorService(store)
	ctx := context.Background()

	v := seedVendor(t, store, repository.VendorStatusSuspended)

	require.NoError(t, svc.ReinstateVendor(ctx, v.ID, "admin-1"))
	got, err := store.GetVendor(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.VendorStatusPending, got.Status)
}

func TestReinstateRequiresSuspension(t *testing.T) {
	store := newMemStore()
	svc := newVendorService(store)
	ctx := context.Background()

	v := seedVendor(t, store, repository.VendorStatusPending)
	err := svc.ReinstateVendor(ctx, v.ID, "admin-1")
	assert.True(t, apperr.IsConflict(err))
}

func TestDeleteVendorSnapshotsAudit(t *testing.T) {
	store := newMemStore()
	svc := newVendorService(store)
	ctx := context.Background()

	v, err := svc.CreateVendor(ctx, validCreateRequest())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteVendor(ctx, v.ID, "admin-1"))

	_, err = store.GetVendor(ctx, v.ID)
	assert.True(t, apperr.IsNotFound(err))

	entries := store.auditByAction("deleted")
	require.Len(t, entries, 1)
	assert.Equal(t, v.VendorCode, entries[0].Metadata["vendor_code"])
	assert.Equal(t, v.CompanyName, entries[0].Metadata["company_name"])
}

func TestListVendorsClampsPagination(t *testing.T) {
	store := newMemStore()
	svc := newVendorService(store)
	ctx := context.Background()

	seedVendor(t, store, repository.VendorStatusPending)

	vendors, total, err := svc.ListVendors(ctx, nil, nil, -3, 9999)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, vendors, 1)

	bad := repository.VendorStatus("bogus")
	_, _, err = svc.ListVendors(ctx, &bad, nil, 1, 25)
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))
}

package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pesio-ai/be-vendor-onboarding/internal/apperr"
	"github.com/pesio-ai/be-vendor-onboarding/internal/repository"
)

// memStore is an in-memory Store implementation for service tests. Per-vendor
// mutexes give InVendorTx the same serialization the row lock provides in
// Postgres.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	vendors   map[int64]*repository.Vendor
	approvals map[int64]map[repository.ApprovalLevel]*repository.Approval
	audit     []*repository.AuditEntry
	locks     map[int64]*sync.Mutex
}

func newMemStore() *memStore {
	return &memStore{
		nextID:    1,
		vendors:   make(map[int64]*repository.Vendor),
		approvals: make(map[int64]map[repository.ApprovalLevel]*repository.Approval),
		locks:     make(map[int64]*sync.Mutex),
	}
}

func copyVendor(v *repository.Vendor) *repository.Vendor {
	c := *v
	return &c
}

func (m *memStore) vendorLock(id int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

func (m *memStore) CreateVendor(ctx context.Context, v *repository.Vendor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.vendors {
		if existing.Email == v.Email {
			return apperr.Conflict("vendor with this email already exists")
		}
	}
	v.ID = m.nextID
	m.nextID++
	v.CreatedAt = time.Now()
	v.UpdatedAt = v.CreatedAt
	m.vendors[v.ID] = copyVendor(v)
	return nil
}

func (m *memStore) GetVendor(ctx context.Context, id int64) (*repository.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vendors[id]
	if !ok {
		return nil, apperr.NotFound("vendor", id)
	}
	return copyVendor(v), nil
}

func (m *memStore) VendorEmailExists(ctx context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.vendors {
		if v.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListVendors(ctx context.Context, filter repository.VendorFilter) ([]*repository.Vendor, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*repository.Vendor, 0)
	for _, v := range m.vendors {
		if filter.Status != nil && v.Status != *filter.Status {
			continue
		}
		if filter.Search != nil && !strings.Contains(strings.ToLower(v.CompanyName), strings.ToLower(*filter.Search)) {
			continue
		}
		out = append(out, copyVendor(v))
	}
	return out, int64(len(out)), nil
}

func (m *memStore) ListVendorsByIDs(ctx context.Context, ids []int64) ([]*repository.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*repository.Vendor, 0, len(ids))
	for _, id := range ids {
		if v, ok := m.vendors[id]; ok {
			out = append(out, copyVendor(v))
		}
	}
	return out, nil
}

func (m *memStore) UpdateVendor(ctx context.Context, v *repository.Vendor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vendors[v.ID]; !ok {
		return apperr.NotFound("vendor", v.ID)
	}
	v.UpdatedAt = time.Now()
	m.vendors[v.ID] = copyVendor(v)
	return nil
}

func (m *memStore) UpdateVendorStatus(ctx context.Context, id int64, status repository.VendorStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vendors[id]
	if !ok {
		return apperr.NotFound("vendor", id)
	}
	v.Status = status
	v.ApprovedAt = nil
	v.ApprovedBy = nil
	v.UpdatedAt = time.Now()
	return nil
}

func (m *memStore) ApproveVendor(ctx context.Context, id int64, approvedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vendors[id]
	if !ok {
		return apperr.NotFound("vendor", id)
	}
	now := time.Now()
	v.Status = repository.VendorStatusApproved
	v.ApprovedAt = &now
	v.ApprovedBy = &approvedBy
	v.UpdatedAt = now
	return nil
}

func (m *memStore) DeleteVendor(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vendors[id]; !ok {
		return apperr.NotFound("vendor", id)
	}
	delete(m.vendors, id)
	delete(m.approvals, id)
	return nil
}

func (m *memStore) WorkflowStats(ctx context.Context) (*repository.WorkflowStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &repository.WorkflowStats{}
	for _, v := range m.vendors {
		switch v.Status {
		case repository.VendorStatusPending:
			stats.PendingLevel1++
		case repository.VendorStatusUnderReview:
			stats.PendingLevel2++
		case repository.VendorStatusApproved:
			stats.ApprovedToday++
		case repository.VendorStatusRejected:
			stats.RejectedThisWeek++
		}
	}
	return stats, nil
}

func (m *memStore) ListApprovals(ctx context.Context, vendorID int64) ([]*repository.Approval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listApprovalsLocked(vendorID), nil
}

func (m *memStore) listApprovalsLocked(vendorID int64) []*repository.Approval {
	out := make([]*repository.Approval, 0)
	for _, a := range m.approvals[vendorID] {
		c := *a
		out = append(out, &c)
	}
	return out
}

func (m *memStore) ListPendingApprovals(ctx context.Context, approverID string, level *repository.ApprovalLevel, limit, offset int) ([]*repository.Approval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*repository.Approval, 0)
	for _, byLevel := range m.approvals {
		for _, a := range byLevel {
			if a.ApproverID != approverID || a.Status != repository.ApprovalStatusPending {
				continue
			}
			if level != nil && a.Level != *level {
				continue
			}
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memStore) ApproverStats(ctx context.Context, approverID string) (*repository.ApproverStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &repository.ApproverStats{}
	for _, byLevel := range m.approvals {
		for _, a := range byLevel {
			if a.ApproverID != approverID {
				continue
			}
			stats.Total++
			switch a.Status {
			case repository.ApprovalStatusPending:
				stats.Pending++
			case repository.ApprovalStatusApproved:
				stats.Approved++
			case repository.ApprovalStatusRejected:
				stats.Rejected++
			}
		}
	}
	return stats, nil
}

func (m *memStore) AppendAudit(ctx context.Context, entry *repository.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = int64(len(m.audit) + 1)
	entry.PerformedAt = time.Now()
	c := *entry
	m.audit = append(m.audit, &c)
	return nil
}

func (m *memStore) ListAudit(ctx context.Context, vendorID int64) ([]*repository.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*repository.AuditEntry, 0)
	for _, e := range m.audit {
		if e.VendorID != nil && *e.VendorID == vendorID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

// auditByAction returns recorded audit entries matching action.
func (m *memStore) auditByAction(action string) []*repository.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*repository.AuditEntry, 0)
	for _, e := range m.audit {
		if e.Action == action {
			c := *e
			out = append(out, &c)
		}
	}
	return out
}

func (m *memStore) InVendorTx(ctx context.Context, vendorID int64, fn func(tx repository.VendorTx) error) error {
	lock := m.vendorLock(vendorID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	v, ok := m.vendors[vendorID]
	if !ok {
		m.mu.Unlock()
		return apperr.NotFound("vendor", vendorID)
	}
	snapshot := copyVendor(v)
	m.mu.Unlock()

	return fn(&memVendorTx{store: m, vendor: snapshot})
}

type memVendorTx struct {
	store  *memStore
	vendor *repository.Vendor
}

func (t *memVendorTx) Vendor() *repository.Vendor { return t.vendor }

func (t *memVendorTx) GetApproval(ctx context.Context, level repository.ApprovalLevel) (*repository.Approval, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	a, ok := t.store.approvals[t.vendor.ID][level]
	if !ok {
		return nil, nil
	}
	c := *a
	return &c, nil
}

func (t *memVendorTx) UpsertApproval(ctx context.Context, a *repository.Approval) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	byLevel, ok := t.store.approvals[t.vendor.ID]
	if !ok {
		byLevel = make(map[repository.ApprovalLevel]*repository.Approval)
		t.store.approvals[t.vendor.ID] = byLevel
	}

	now := time.Now()
	if existing, ok := byLevel[a.Level]; ok {
		a.ID = existing.ID
		a.CreatedAt = existing.CreatedAt
	} else {
		a.ID = t.store.nextID
		t.store.nextID++
		a.CreatedAt = now
	}
	a.VendorID = t.vendor.ID
	a.UpdatedAt = now
	if a.Status == repository.ApprovalStatusApproved {
		a.ApprovedAt = &now
	} else {
		a.ApprovedAt = nil
	}

	c := *a
	byLevel[a.Level] = &c
	return nil
}

func (t *memVendorTx) ListApprovals(ctx context.Context) ([]*repository.Approval, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return t.store.listApprovalsLocked(t.vendor.ID), nil
}

func (t *memVendorTx) SetStatus(ctx context.Context, status repository.VendorStatus) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	v := t.store.vendors[t.vendor.ID]
	v.Status = status
	v.ApprovedAt = nil
	v.ApprovedBy = nil
	v.UpdatedAt = time.Now()
	return nil
}

func (t *memVendorTx) SetApproved(ctx context.Context, approvedBy string) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	v := t.store.vendors[t.vendor.ID]
	now := time.Now()
	v.Status = repository.VendorStatusApproved
	v.ApprovedAt = &now
	v.ApprovedBy = &approvedBy
	v.UpdatedAt = now
	return nil
}

// nopPublisher satisfies EventPublisher for tests.
type nopPublisher struct{}

func (nopPublisher) Publish(ctx context.Context, action string, vendorID *int64, actorID string, payload map[string]interface{}) {
}

package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/pesio-ai/be-vendor-onboarding/internal/apperr"
	"github.com/pesio-ai/be-vendor-onboarding/internal/export"
	"github.com/pesio-ai/be-vendor-onboarding/internal/logger"
	"github.com/pesio-ai/be-vendor-onboarding/internal/repository"
	"github.com/pesio-ai/be-vendor-onboarding/internal/service"
)

// HTTPHandler handles HTTP requests for the vendor, approval and bulk
// services. The acting user comes from the X-Actor-ID header; authentication
// happens upstream and this service only sees the resolved identity.
type HTTPHandler struct {
	vendors   *service.VendorService
	approvals *service.ApprovalService
	bulk      *service.BulkService
	log       *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(
	vendors *service.VendorService,
	approvals *service.ApprovalService,
	bulk *service.BulkService,
	log *logger.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		vendors:   vendors,
		approvals: approvals,
		bulk:      bulk,
		log:       log,
	}
}

func actorID(r *http.Request) string {
	return r.Header.Get("X-Actor-ID")
}

type vendorResponse struct {
	ID                  int64      `json:"id"`
	VendorCode          string     `json:"vendor_code"`
	CompanyName         string     `json:"company_name"`
	BusinessVertical    string     `json:"business_vertical"`
	CountryOrigin       string     `json:"country_origin"`
	ContactPersonName   string     `json:"contact_person_name"`
	Email               string     `json:"email"`
	PhoneNumber         string     `json:"phone_number"`
	Website             *string    `json:"website,omitempty"`
	YearEstablished     *int       `json:"year_established,omitempty"`
	BusinessDescription *string    `json:"business_description,omitempty"`
	SupplierType        *string    `json:"supplier_type,omitempty"`
	Status              string     `json:"status"`
	ApprovedAt          *time.Time `json:"approved_at,omitempty"`
	ApprovedBy          *string    `json:"approved_by,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func toVendorResponse(v *repository.Vendor) *vendorResponse {
	return &vendorResponse{
		ID:                  v.ID,
		VendorCode:          v.VendorCode,
		CompanyName:         v.CompanyName,
		BusinessVertical:    v.BusinessVertical,
		CountryOrigin:       v.CountryOrigin,
		ContactPersonName:   v.ContactPersonName,
		Email:               v.Email,
		PhoneNumber:         v.PhoneNumber,
		Website:             v.Website,
		YearEstablished:     v.YearEstablished,
		BusinessDescription: v.BusinessDescription,
		SupplierType:        v.SupplierType,
		Status:              string(v.Status),
		ApprovedAt:          v.ApprovedAt,
		ApprovedBy:          v.ApprovedBy,
		CreatedAt:           v.CreatedAt,
		UpdatedAt:           v.UpdatedAt,
	}
}

func toVendorResponses(vendors []*repository.Vendor) []*vendorResponse {
	out := make([]*vendorResponse, 0, len(vendors))
	for _, v := range vendors {
		out = append(out, toVendorResponse(v))
	}
	return out
}

type approvalResponse struct {
	ID         int64      `json:"id"`
	VendorID   int64      `json:"vendor_id"`
	ApproverID string     `json:"approver_id"`
	Level      string     `json:"level"`
	Status     string     `json:"status"`
	Comments   *string    `json:"comments,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func toApprovalResponse(a *repository.Approval) *approvalResponse {
	return &approvalResponse{
		ID:         a.ID,
		VendorID:   a.VendorID,
		ApproverID: a.ApproverID,
		Level:      string(a.Level),
		Status:     string(a.Status),
		Comments:   a.Comments,
		ApprovedAt: a.ApprovedAt,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func toApprovalResponses(approvals []*repository.Approval) []*approvalResponse {
	out := make([]*approvalResponse, 0, len(approvals))
	for _, a := range approvals {
		out = append(out, toApprovalResponse(a))
	}
	return out
}

type auditResponse struct {
	ID           int64                  `json:"id"`
	VendorID     *int64                 `json:"vendor_id,omitempty"`
	Action       string                 `json:"action"`
	PerformedBy  string                 `json:"performed_by"`
	PerformedAt  time.Time              `json:"performed_at"`
	StatusBefore *string                `json:"status_before,omitempty"`
	StatusAfter  *string                `json:"status_after,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Warn().Err(err).Msg("Failed to encode response")
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperr.CodeOf(err) {
	case apperr.CodeNotFound:
		status = http.StatusNotFound
	case apperr.CodeInvalidInput:
		status = http.StatusBadRequest
	case apperr.CodeForbidden:
		status = http.StatusForbidden
	case apperr.CodeConflict:
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func queryInt64(r *http.Request, key string) (int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, apperr.InvalidInput(key, "is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.InvalidInput(key, "must be an integer")
	}
	return id, nil
}

type createVendorRequest struct {
	CompanyName         string  `json:"company_name"`
	BusinessVertical    string  `json:"business_vertical"`
	CountryOrigin       string  `json:"country_origin"`
	ContactPersonName   string  `json:"contact_person_name"`
	Email               string  `json:"email"`
	PhoneNumber         string  `json:"phone_number"`
	Website             *string `json:"website"`
	YearEstablished     *int    `json:"year_established"`
	BusinessDescription *string `json:"business_description"`
	SupplierType        *string `json:"supplier_type"`
}

// CreateVendor handles vendor registration requests.
func (h *HTTPHandler) CreateVendor(w http.ResponseWriter, r *http.Request) {
	var req createVendorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.InvalidInput("body", "invalid request body"))
		return
	}

	vendor, err := h.vendors.CreateVendor(r.Context(), &service.CreateVendorRequest{
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
		ActorID:             actorID(r),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, toVendorResponse(vendor))
}

// GetVendor handles single-vendor lookup by id.
func (h *HTTPHandler) GetVendor(w http.ResponseWriter, r *http.Request) {
	id, err := queryInt64(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	vendor, err := h.vendors.GetVendor(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toVendorResponse(vendor))
}

// ListVendors handles vendor listing with filters and pagination.
func (h *HTTPHandler) ListVendors(w http.ResponseWriter, r *http.Request) {
	var status *repository.VendorStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := repository.VendorStatus(raw)
		status = &s
	}

	var search *string
	if raw := r.URL.Query().Get("search"); raw != "" {
		search = &raw
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	vendors, total, err := h.vendors.ListVendors(r.Context(), status, search, page, pageSize)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"vendors": toVendorResponses(vendors),
		"total":   total,
	})
}

type updateVendorRequest struct {
	ID                  int64   `json:"id"`
	CompanyName         *string `json:"company_name"`
	BusinessVertical    *string `json:"business_vertical"`
	CountryOrigin       *string `json:"country_origin"`
	ContactPersonName   *string `json:"contact_person_name"`
	Email               *string `json:"email"`
	PhoneNumber         *string `json:"phone_number"`
	Website             *string `json:"website"`
	YearEstablished     *int    `json:"year_established"`
	BusinessDescription *string `json:"business_description"`
	SupplierType        *string `json:"supplier_type"`
}

// UpdateVendor handles vendor profile updates. Absent fields keep their
// current value.
func (h *HTTPHandler) UpdateVendor(w http.ResponseWriter, r *http.Request) {
	var req updateVendorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.InvalidInput("body", "invalid request body"))
		return
	}

	vendor, err := h.vendors.UpdateVendor(r.Context(), &service.UpdateVendorRequest{
		VendorID:            req.ID,
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
		ActorID:             actorID(r),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toVendorResponse(vendor))
}

// DeleteVendor handles single-vendor deletion.
func (h *HTTPHandler) DeleteVendor(w http.ResponseWriter, r *http.Request) {
	id, err := queryInt64(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.vendors.DeleteVendor(r.Context(), id, actorID(r)); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type vendorActionRequest struct {
	ID     int64  `json:"id"`
	Reason string `json:"reason"`
}

// SubmitVendor moves a draft vendor into review.
func (h *HTTPHandler) SubmitVendor(w http.ResponseWriter, r *http.Request) {
	var req vendorActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.InvalidInput("body", "invalid request body"))
		return
	}

	if err := h.vendors.SubmitVendor(r.Context(), req.ID, actorID(r)); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "submitted"})
}

// SuspendVendor applies the administrative suspension override.
func (h *HTTPHandler) SuspendVendor(w http.ResponseWriter, r *http.Request) {
	var req vendorActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.InvalidInput("body", "invalid request body"))
		return
	}

	if err := h.vendors.SuspendVendor(r.Context(), req.ID, actorID(r), req.Reason); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "suspended"})
}

// ReinstateVendor lifts a suspension and re-derives the status from the
// approval ledger.
func (h *HTTPHandler) ReinstateVendor(w http.ResponseWriter, r *http.Request) {
	var req vendorActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.InvalidInput("body", "invalid request body"))
		return
	}

	if err := h.vendors.ReinstateVendor(r.Context(), req.ID, actorID(r)); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "reinstated"})
}

// GetVendorAudit returns the audit trail for one vendor.
func (h *HTTPHandler) GetVendorAudit(w http.ResponseWriter, r *http.Request) {
	id, err := queryInt64(r, "vendor_id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	entries, err := h.vendors.GetAuditTrail(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]*auditResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, &auditResponse{
			ID:           e.ID,
			VendorID:     e.VendorID,
			Action:       e.Action,
			PerformedBy:  e.PerformedBy,
			PerformedAt:  e.PerformedAt,
			StatusBefore: e.StatusBefore,
			StatusAfter:  e.StatusAfter,
			Metadata:     e.Metadata,
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}

type submitDecisionRequest struct {
	VendorID int64   `json:"vendor_id"`
	Level    string  `json:"level"`
	Status   string  `json:"status"`
	Comments *string `json:"comments"`
}

// SubmitDecision records an approval decision for one vendor level.
func (h *HTTPHandler) SubmitDecision(w http.ResponseWriter, r *http.Request) {
	var req submitDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.InvalidInput("body", "invalid request body"))
		return
	}

	approval, err := h.approvals.SubmitDecision(r.Context(), &service.SubmitDecisionRequest{
		VendorID: req.VendorID,
		Level:    repository.ApprovalLevel(req.Level),
		ActorID:  actorID(r),
		Decision: repository.ApprovalStatus(req.Status),
		Comments: req.Comments,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toApprovalResponse(approval))
}

// GetVendorApprovals returns the current approval set for a vendor.
func (h *HTTPHandler) GetVendorApprovals(w http.ResponseWriter, r *http.Request) {
	id, err := queryInt64(r, "vendor_id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	approvals, err := h.approvals.GetVendorApprovals(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toApprovalResponses(approvals))
}

// GetPendingApprovals returns ledger entries awaiting a decision from the
// calling approver.
func (h *HTTPHandler) GetPendingApprovals(w http.ResponseWriter, r *http.Request) {
	var level *repository.ApprovalLevel
	if raw := r.URL.Query().Get("level"); raw != "" {
		l := repository.ApprovalLevel(raw)
		level = &l
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 25
	}

	approvals, err := h.approvals.GetPendingApprovals(r.Context(), actorID(r), level, page, pageSize)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toApprovalResponses(approvals))
}

// GetApproverStats returns decision counts for the calling approver.
func (h *HTTPHandler) GetApproverStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.approvals.GetApproverStats(r.Context(), actorID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// GetWorkflowStats returns the onboarding dashboard counters.
func (h *HTTPHandler) GetWorkflowStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.approvals.GetWorkflowStats(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

type bulkStatusUpdateRequest struct {
	VendorIDs []int64 `json:"vendor_ids"`
	Status    string  `json:"status"`
	Reason    string  `json:"reason"`
}

// BulkStatusUpdate applies an administrative status override to many vendors.
func (h *HTTPHandler) BulkStatusUpdate(w http.ResponseWriter, r *http.Request) {
	var req bulkStatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.InvalidInput("body", "invalid request body"))
		return
	}

	result, err := h.bulk.BulkStatusUpdate(r.Context(), &service.BulkStatusUpdateRequest{
		VendorIDs: req.VendorIDs,
		Status:    repository.VendorStatus(req.Status),
		Reason:    req.Reason,
		ActorID:   actorID(r),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

type bulkDeleteRequest struct {
	VendorIDs []int64 `json:"vendor_ids"`
	Reason    string  `json:"reason"`
}

// BulkDelete removes many vendors in one call.
func (h *HTTPHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.InvalidInput("body", "invalid request body"))
		return
	}

	result, err := h.bulk.BulkDelete(r.Context(), &service.BulkDeleteRequest{
		VendorIDs: req.VendorIDs,
		Reason:    req.Reason,
		ActorID:   actorID(r),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

type bulkExportRequest struct {
	VendorIDs []int64 `json:"vendor_ids"`
	Format    string  `json:"format"`
}

// BulkExport streams the requested vendors in the chosen format. The
// per-item summary travels in headers so the body stays a clean document.
func (h *HTTPHandler) BulkExport(w http.ResponseWriter, r *http.Request) {
	var req bulkExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.InvalidInput("body", "invalid request body"))
		return
	}

	res, err := h.bulk.BulkExport(r.Context(), &service.BulkExportRequest{
		VendorIDs: req.VendorIDs,
		Format:    req.Format,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("X-Export-Succeeded", strconv.Itoa(res.Result.Succeeded))
	w.Header().Set("X-Export-Failed", strconv.Itoa(res.Result.Failed))

	switch res.Format {
	case service.FormatCSV:
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="vendors.csv"`)
		if err := export.WriteCSV(w, res.Records); err != nil {
			h.log.Warn().Err(err).Msg("Failed to write CSV export")
		}
	default:
		w.Header().Set("Content-Type", "application/json")
		if err := export.WriteJSON(w, res.Records); err != nil {
			h.log.Warn().Err(err).Msg("Failed to write JSON export")
		}
	}
}

type bulkImportRequest struct {
	Records []service.VendorImportRecord `json:"records"`
}

// BulkImport creates draft vendors from pre-parsed records.
func (h *HTTPHandler) BulkImport(w http.ResponseWriter, r *http.Request) {
	var req bulkImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.InvalidInput("body", "invalid request body"))
		return
	}

	result, err := h.bulk.BulkImport(r.Context(), &service.BulkImportRequest{
		Records: req.Records,
		ActorID: actorID(r),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// Package export renders vendor projections for bulk export. Field order is
// fixed so repeated exports of the same vendors are byte-stable.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/pesio-ai/be-vendor-onboarding/internal/repository"
)

// VendorRecord is the flat, complete projection of one vendor.
type VendorRecord struct {
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

// FromVendor builds the export projection of a vendor.
func FromVendor(v *repository.Vendor) VendorRecord {
	return VendorRecord{
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

var csvHeader = []string{
	"id", "vendor_code", "company_name", "business_vertical", "country_origin",
	"contact_person_name", "email", "phone_number", "website", "year_established",
	"business_description", "supplier_type", "status", "approved_at", "approved_by",
	"created_at", "updated_at",
}

// WriteJSON writes records as a JSON array, input order preserved.
func WriteJSON(w io.Writer, records []VendorRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// WriteCSV writes records as CSV with a header row, input order preserved.
func WriteCSV(w io.Writer, records []VendorRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, r := range records {
		row := []string{
			strconv.FormatInt(r.ID, 10),
			r.VendorCode,
			r.CompanyName,
			r.BusinessVertical,
			r.CountryOrigin,
			r.ContactPersonName,
			r.Email,
			r.PhoneNumber,
			strDeref(r.Website),
			intDeref(r.YearEstablished),
			strDeref(r.BusinessDescription),
			strDeref(r.SupplierType),
			r.Status,
			timeDeref(r.ApprovedAt),
			strDeref(r.ApprovedBy),
			r.CreatedAt.Format(time.RFC3339),
			r.UpdatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intDeref(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

func timeDeref(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

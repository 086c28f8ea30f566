package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-vendor-onboarding/internal/repository"
)

func sampleVendor() *repository.Vendor {
	website := "https://acme.example"
	approvedBy := "rev-1"
	approvedAt := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return &repository.Vendor{
		ID:                7,
		VendorCode:        "VND1A2B3C4D",
		CompanyName:       "Acme Manufacturing",
		BusinessVertical:  "industrial",
		CountryOrigin:     "DE",
		ContactPersonName: "Alex Schmidt",
		Email:             "alex@acme.example",
		PhoneNumber:       "+49 30 1234",
		Website:           &website,
		Status:            repository.VendorStatusApproved,
		ApprovedAt:        &approvedAt,
		ApprovedBy:        &approvedBy,
		CreatedAt:         time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC),
		UpdatedAt:         time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	records := []VendorRecord{FromVendor(sampleVendor())}

	require.NoError(t, WriteJSON(&buf, records))

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "VND1A2B3C4D", decoded[0]["vendor_code"])
	assert.Equal(t, "approved", decoded[0]["status"])
	assert.Equal(t, "rev-1", decoded[0]["approved_by"])
}

func TestWriteJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, []VendorRecord{}))
	assert.Equal(t, "[]", string(bytes.TrimSpace(buf.Bytes())))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	v := sampleVendor()
	records := []VendorRecord{FromVendor(v)}

	require.NoError(t, WriteCSV(&buf, records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "7", rows[1][0])
	assert.Equal(t, "VND1A2B3C4D", rows[1][1])
	assert.Equal(t, "approved", rows[1][12])
	assert.Equal(t, "2026-03-14T09:00:00Z", rows[1][13])
	assert.Equal(t, "rev-1", rows[1][14])
}

func TestWriteCSVNilOptionalFields(t *testing.T) {
	var buf bytes.Buffer
	v := sampleVendor()
	v.Website = nil
	v.ApprovedAt = nil
	v.ApprovedBy = nil
	v.Status = repository.VendorStatusPending

	require.NoError(t, WriteCSV(&buf, []VendorRecord{FromVendor(v)}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "", rows[1][8])  // website
	assert.Equal(t, "", rows[1][13]) // approved_at
	assert.Equal(t, "", rows[1][14]) // approved_by
}

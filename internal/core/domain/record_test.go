package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRow_MapsAndHashes(t *testing.T) {
	row := SourceRow{
		"Reg_no":              "MUM/T(A)/25/000123",
		"RegDate":             "2025-01-02",
		"Report_Release_Date": "2025-01-10",
		"Released":            "Y",
		"Test_End_Date":       "2025-01-08",
		"Invoicing_Type":      "STANDARD",
		"Test_Report_Stage":   "FINAL",
		"InvoiceDate":         "2025-01-11",
		"Buyer":               "Acme Exports",
		"InvoiceNo":           "INV-991",
		"modifieddt":          "2025-01-11 10:00:00",
	}

	rec, err := NormalizeRow(row)
	require.NoError(t, err)

	assert.Equal(t, "MUM/T(A)/25/000123", rec.RegNo)
	assert.Equal(t, "Acme Exports", rec.Buyer)
	assert.Equal(t, "2025-01-11 10:00:00", rec.ModifiedAt)
	assert.NotZero(t, rec.HashValue)
	assert.Equal(t, rec.Hash(), rec.HashValue)
}

func TestNormalizeRow_DropsUnmappedColumns(t *testing.T) {
	rec, err := NormalizeRow(SourceRow{
		"Reg_no":          "R-1",
		"Buyer":           "Acme",
		"internal_rowver": 42, // not in the mapping
	})
	require.NoError(t, err)

	same, err := NormalizeRow(SourceRow{
		"Reg_no": "R-1",
		"Buyer":  "Acme",
	})
	require.NoError(t, err)

	assert.Equal(t, same.HashValue, rec.HashValue)
}

func TestNormalizeRow_MissingKey(t *testing.T) {
	_, err := NormalizeRow(SourceRow{"Buyer": "Acme"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)

	// NULL key is the same as a missing one.
	_, err = NormalizeRow(SourceRow{"Reg_no": nil, "Buyer": "Acme"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNormalizeRow_CoercesValueTypes(t *testing.T) {
	ts := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	rec, err := NormalizeRow(SourceRow{
		"Reg_no":     "R-2",
		"Released":   true,
		"InvoiceNo":  int64(991),
		"modifieddt": ts,
		"Buyer":      []byte("Acme"),
		"RegDate":    nil,
	})
	require.NoError(t, err)

	assert.Equal(t, "true", rec.Released)
	assert.Equal(t, "991", rec.InvoiceNo)
	assert.Equal(t, "2025-03-04T05:06:07Z", rec.ModifiedAt)
	assert.Equal(t, "Acme", rec.Buyer)
	assert.Equal(t, "", rec.RegDate)
}

func TestHashFields_OrderIndependent(t *testing.T) {
	// Maps with identical pairs hash identically regardless of how
	// they were built.
	a := map[string]string{"x": "1", "y": "2", "z": "3"}
	b := map[string]string{}
	b["z"] = "3"
	b["x"] = "1"
	b["y"] = "2"

	assert.Equal(t, HashFields(a), HashFields(b))
}

func TestHashFields_Deterministic(t *testing.T) {
	fields := map[string]string{"reg_no": "R-1", "buyer": "Acme"}
	first := HashFields(fields)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, HashFields(fields))
	}
}

func TestHashFields_SentinelZero(t *testing.T) {
	assert.Equal(t, uint32(0), HashFields(nil))
	assert.Equal(t, uint32(0), HashFields(map[string]string{}))
}

func TestRecordHash_ChangesWithSingleField(t *testing.T) {
	rec, err := NormalizeRow(SourceRow{"Reg_no": "R-1", "Buyer": "Acme"})
	require.NoError(t, err)

	changed := rec
	changed.Buyer = "Acme Ltd"
	assert.NotEqual(t, rec.Hash(), changed.Hash())

	// The hash excludes itself: rewriting HashValue must not feed back.
	changed.HashValue = 12345
	assert.NotEqual(t, rec.Hash(), changed.Hash())
	changed.Buyer = "Acme"
	assert.Equal(t, rec.Hash(), changed.Hash())
}

func TestSourceColumns_CoversMapping(t *testing.T) {
	cols := SourceColumns()
	assert.Len(t, cols, len(columnMapping))
	assert.Contains(t, cols, "Reg_no")
	assert.Contains(t, cols, "modifieddt")
}

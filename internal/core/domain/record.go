package domain

import (
	"fmt"
	"hash/crc32"
	"sort"
	"strconv"
	"time"
)

// SourceRow is one raw record from the remote source, keyed by the
// source's own column names. Immutable once fetched.
type SourceRow map[string]any

// Record is the canonical cache row for one registration. RegNo is the
// natural primary key; HashValue is a CRC32 fingerprint of the mapped
// field values and is the sole change detector for the cache.
type Record struct {
	RegNo             string
	RegDate           string
	ReportReleaseDate string
	Released          string
	TestEndDate       string
	InvoicingType     string
	TestReportStage   string
	InvoiceDate       string
	Buyer             string
	InvoiceNo         string
	ModifiedAt        string
	HashValue         uint32
}

// Canonical field names, as stored in the cache and written to exports.
const (
	FieldRegNo             = "reg_no"
	FieldRegDate           = "reg_date"
	FieldReportReleaseDate = "report_release_date"
	FieldReleased          = "released"
	FieldTestEndDate       = "test_end_date"
	FieldInvoicingType     = "invoicing_type"
	FieldTestReportStage   = "test_report_stage"
	FieldInvoiceDate       = "invoice_date"
	FieldBuyer             = "buyer"
	FieldInvoiceNo         = "invoice_no"
	FieldModifiedAt        = "modifieddt"
)

// columnMapping remaps source column names to canonical field names.
// Source columns not present here are dropped during normalisation.
var columnMapping = map[string]string{
	"Reg_no":              FieldRegNo,
	"RegDate":             FieldRegDate,
	"Report_Release_Date": FieldReportReleaseDate,
	"Released":            FieldReleased,
	"Test_End_Date":       FieldTestEndDate,
	"Invoicing_Type":      FieldInvoicingType,
	"Test_Report_Stage":   FieldTestReportStage,
	"InvoiceDate":         FieldInvoiceDate,
	"Buyer":               FieldBuyer,
	"InvoiceNo":           FieldInvoiceNo,
	"modifieddt":          FieldModifiedAt,
}

// SourceColumns returns the source column names the extractor selects.
func SourceColumns() []string {
	cols := make([]string, 0, len(columnMapping))
	for src := range columnMapping {
		cols = append(cols, src)
	}
	sort.Strings(cols)
	return cols
}

// NormalizeRow remaps a raw source row to a canonical Record and
// computes its hash. Source columns absent from the mapping are
// dropped. Returns ErrInvalidInput if the natural key is missing.
func NormalizeRow(row SourceRow) (Record, error) {
	fields := make(map[string]string, len(columnMapping))
	for col, val := range row {
		canonical, ok := columnMapping[col]
		if !ok {
			continue
		}
		fields[canonical] = canonicalString(val)
	}

	if fields[FieldRegNo] == "" {
		return Record{}, fmt.Errorf("row has no %s column: %w", FieldRegNo, ErrInvalidInput)
	}

	rec := Record{
		RegNo:             fields[FieldRegNo],
		RegDate:           fields[FieldRegDate],
		ReportReleaseDate: fields[FieldReportReleaseDate],
		Released:          fields[FieldReleased],
		TestEndDate:       fields[FieldTestEndDate],
		InvoicingType:     fields[FieldInvoicingType],
		TestReportStage:   fields[FieldTestReportStage],
		InvoiceDate:       fields[FieldInvoiceDate],
		Buyer:             fields[FieldBuyer],
		InvoiceNo:         fields[FieldInvoiceNo],
		ModifiedAt:        fields[FieldModifiedAt],
	}
	rec.HashValue = HashFields(fields)
	return rec, nil
}

// HashFields computes a CRC32 checksum over the field values
// concatenated in ascending field-name order, UTF-8 encoded. The
// result is independent of map iteration order. A nil or empty input
// yields the sentinel hash 0. This is a change detector, not a
// security primitive.
func HashFields(fields map[string]string) uint32 {
	if len(fields) == 0 {
		return 0
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf []byte
	for _, name := range names {
		buf = append(buf, fields[name]...)
	}
	return crc32.ChecksumIEEE(buf)
}

// Hash recomputes the record's fingerprint from its current field
// values. It does not include HashValue itself.
func (r Record) Hash() uint32 {
	return HashFields(r.Fields())
}

// Fields returns the record's mapped values keyed by canonical field
// name, excluding the hash.
func (r Record) Fields() map[string]string {
	return map[string]string{
		FieldRegNo:             r.RegNo,
		FieldRegDate:           r.RegDate,
		FieldReportReleaseDate: r.ReportReleaseDate,
		FieldReleased:          r.Released,
		FieldTestEndDate:       r.TestEndDate,
		FieldInvoicingType:     r.InvoicingType,
		FieldTestReportStage:   r.TestReportStage,
		FieldInvoiceDate:       r.InvoiceDate,
		FieldBuyer:             r.Buyer,
		FieldInvoiceNo:         r.InvoiceNo,
		FieldModifiedAt:        r.ModifiedAt,
	}
}

// canonicalString coerces a raw source value to its canonical string
// form. SQL NULLs become the empty string.
func canonicalString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}

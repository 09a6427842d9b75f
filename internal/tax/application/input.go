package application

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sebuszqo/TaxManager/internal/apperrors"
	"github.com/shopspring/decimal"
)

const maxLabelLength = 255

// NUMERIC(18,2) holds up to 16 integer digits.
var maxEntryValue = decimal.New(1, 16)

// Bounds on parsed numbers. Comparing or formatting a decimal rescales its
// coefficient, so the exponent must be checked before any arithmetic.
const (
	maxNumberLength   = 64
	minNumberExponent = -20
	maxNumberExponent = 16
)

// EntryInput is the body of the create and update entry endpoints. Value and meta
// stay raw so that a wrong type becomes a field error rather than a decode failure.
type EntryInput struct {
	Label        *string         `json:"label"`
	Value        json.RawMessage `json:"value"`
	TaxpayerType string          `json:"taxpayer_type"`
	Meta         json.RawMessage `json:"meta"`
}

// BatchItem updates the entry with ID or creates a new one when ID is empty.
type BatchItem struct {
	ID string `json:"id"`
	EntryInput
}

type SummaryInput struct {
	TaxableIncome json.RawMessage `json:"taxableIncome"`
	TaxDue        json.RawMessage `json:"taxDue"`
	RateApplied   json.RawMessage `json:"rateApplied"`
	VATOutput     json.RawMessage `json:"vatOutput"`
	VATInput      json.RawMessage `json:"vatInput"`
	VATPayable    json.RawMessage `json:"vatPayable"`
	Type          json.RawMessage `json:"type"`
	UpdatedAt     json.RawMessage `json:"updatedAt"`
}

// validatedEntry is an EntryInput that passed validation.
type validatedEntry struct {
	label *string
	value decimal.Decimal
	meta  json.RawMessage
}

func isMissing(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// parseNumber accepts JSON numbers and numeric strings.
func parseNumber(v *apperrors.ValidationError, field string, raw json.RawMessage) decimal.Decimal {
	if isMissing(raw) {
		v.Add(field, fmt.Sprintf("The %s field is required.", field))
		return decimal.Zero
	}

	text := string(bytes.TrimSpace(raw))
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal([]byte(text), &s); err != nil {
			v.Add(field, fmt.Sprintf("The %s field must be a number.", field))
			return decimal.Zero
		}
		text = strings.TrimSpace(s)
		if text == "" {
			v.Add(field, fmt.Sprintf("The %s field is required.", field))
			return decimal.Zero
		}
	}

	if len(text) > maxNumberLength {
		v.Add(field, fmt.Sprintf("The %s field is out of range.", field))
		return decimal.Zero
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		v.Add(field, fmt.Sprintf("The %s field must be a number.", field))
		return decimal.Zero
	}
	if exp := d.Exponent(); exp < minNumberExponent || exp > maxNumberExponent {
		v.Add(field, fmt.Sprintf("The %s field is out of range.", field))
		return decimal.Zero
	}
	return d
}

func parseString(v *apperrors.ValidationError, field string, raw json.RawMessage) string {
	if isMissing(raw) {
		v.Add(field, fmt.Sprintf("The %s field is required.", field))
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		v.Add(field, fmt.Sprintf("The %s field must be a string.", field))
		return ""
	}
	if strings.TrimSpace(s) == "" {
		v.Add(field, fmt.Sprintf("The %s field is required.", field))
	}
	return s
}

func validateLabel(v *apperrors.ValidationError, field string, label *string, required bool) *string {
	if label == nil {
		if required {
			v.Add(field, fmt.Sprintf("The %s field is required.", field))
		}
		return nil
	}
	trimmed := strings.TrimSpace(*label)
	if trimmed == "" {
		v.Add(field, fmt.Sprintf("The %s field is required.", field))
		return nil
	}
	if utf8.RuneCountInString(trimmed) > maxLabelLength {
		v.Add(field, fmt.Sprintf("The %s field must not be greater than %d characters.", field, maxLabelLength))
		return nil
	}
	return &trimmed
}

func validateMeta(v *apperrors.ValidationError, field string, raw json.RawMessage) json.RawMessage {
	if isMissing(raw) {
		return nil
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		v.Add(field, fmt.Sprintf("The %s field must be an object.", field))
		return nil
	}
	compact := new(bytes.Buffer)
	if err := json.Compact(compact, raw); err != nil {
		v.Add(field, fmt.Sprintf("The %s field must be an object.", field))
		return nil
	}
	return compact.Bytes()
}

// validateEntry checks one entry body. prefix is prepended to field names so batch
// items report as entries.<i>.<field>.
func validateEntry(v *apperrors.ValidationError, prefix string, in EntryInput, labelRequired bool) validatedEntry {
	out := validatedEntry{
		label: validateLabel(v, prefix+"label", in.Label, labelRequired),
		meta:  validateMeta(v, prefix+"meta", in.Meta),
	}

	before := len(v.Fields[prefix+"value"])
	value := parseNumber(v, prefix+"value", in.Value)
	if len(v.Fields[prefix+"value"]) == before {
		if value.Abs().GreaterThanOrEqual(maxEntryValue) {
			v.Add(prefix+"value", fmt.Sprintf("The %svalue field is out of range.", prefix))
		}
		out.value = value.Round(2)
	}
	return out
}

package domain

import (
	"github.com/sebuszqo/TaxManager/internal/apperrors"
)

type TaxpayerType string

const (
	Individual  TaxpayerType = "individual"
	Corporation TaxpayerType = "corporation"
)

// ParseTaxpayerType treats an empty value as Individual.
func ParseTaxpayerType(raw string) (TaxpayerType, error) {
	switch TaxpayerType(raw) {
	case "":
		return Individual, nil
	case Individual, Corporation:
		return TaxpayerType(raw), nil
	default:
		return "", apperrors.NewValidationError("type", "The selected type is invalid.")
	}
}

func (t TaxpayerType) String() string {
	return string(t)
}

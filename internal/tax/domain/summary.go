package domain

import "time"

// Summary is the snapshot kept on the user's profile. It is replaced wholesale on save.
type Summary struct {
	Result
	Type      TaxpayerType `json:"type"`
	UpdatedAt string       `json:"updatedAt"`
}

func NewSummary(res Result, taxpayerType TaxpayerType, at time.Time) Summary {
	return Summary{
		Result:    res,
		Type:      taxpayerType,
		UpdatedAt: at.UTC().Format(time.RFC3339),
	}
}

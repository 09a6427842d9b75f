package domain

import (
	"github.com/shopspring/decimal"
)

var (
	vatRate = decimal.RequireFromString("0.12")

	corporateRegularRate   = decimal.RequireFromString("0.20")
	corporateHigherRate    = decimal.RequireFromString("0.25")
	corporateIncomeFloor   = decimal.NewFromInt(5_000_000)
	corporateAssetsFloor   = decimal.NewFromInt(100_000_000)
	individualTopBracket   = bracket{floor: decimal.NewFromInt(8_000_000), base: decimal.NewFromInt(2_202_500), rate: decimal.RequireFromString("0.35")}
	individualLowerBracket = []bracket{
		{ceiling: decimal.NewFromInt(250_000)},
		{ceiling: decimal.NewFromInt(400_000), floor: decimal.NewFromInt(250_000), rate: decimal.RequireFromString("0.15")},
		{ceiling: decimal.NewFromInt(800_000), floor: decimal.NewFromInt(400_000), base: decimal.NewFromInt(22_500), rate: decimal.RequireFromString("0.20")},
		{ceiling: decimal.NewFromInt(2_000_000), floor: decimal.NewFromInt(800_000), base: decimal.NewFromInt(102_500), rate: decimal.RequireFromString("0.25")},
		{ceiling: decimal.NewFromInt(8_000_000), floor: decimal.NewFromInt(2_000_000), base: decimal.NewFromInt(402_500), rate: decimal.RequireFromString("0.30")},
	}
)

// bracket taxes income above floor at rate, on top of the fixed base.
type bracket struct {
	ceiling decimal.Decimal
	floor   decimal.Decimal
	base    decimal.Decimal
	rate    decimal.Decimal
}

func (b bracket) tax(income decimal.Decimal) decimal.Decimal {
	return b.base.Add(income.Sub(b.floor).Mul(b.rate))
}

// Inputs are the labeled values the calculation reads. Anything missing is zero.
type Inputs struct {
	Sales         decimal.Decimal
	VATInput      decimal.Decimal
	OtherExpense  decimal.Decimal
	Asset         decimal.Decimal
	AssetPurchase decimal.Decimal
}

// InputsFromEntries picks the known labels out of entries. When a label repeats,
// the first entry in slice order is used and unknown labels are ignored.
func InputsFromEntries(entries []Entry) Inputs {
	var in Inputs
	seen := make(map[string]bool, len(DefaultLabels))
	for _, e := range entries {
		if seen[e.Label] {
			continue
		}
		switch e.Label {
		case LabelSales:
			in.Sales = e.Value
		case LabelVATInput:
			in.VATInput = e.Value
		case LabelOtherExpense:
			in.OtherExpense = e.Value
		case LabelAsset:
			in.Asset = e.Value
		case LabelAssetPurchase:
			in.AssetPurchase = e.Value
		default:
			continue
		}
		seen[e.Label] = true
	}
	return in
}

func (in Inputs) Assets() decimal.Decimal {
	return in.Asset.Add(in.AssetPurchase)
}

type Result struct {
	TaxableIncome decimal.Decimal `json:"taxableIncome"`
	TaxDue        decimal.Decimal `json:"taxDue"`
	RateApplied   decimal.Decimal `json:"rateApplied"`
	VATOutput     decimal.Decimal `json:"vatOutput"`
	VATInput      decimal.Decimal `json:"vatInput"`
	VATPayable    decimal.Decimal `json:"vatPayable"`
}

// Calculate derives VAT and income tax figures for one taxpayer type.
func Calculate(in Inputs, taxpayerType TaxpayerType) Result {
	vatOutput := in.Sales.Mul(vatRate)
	vatPayable := decimal.Max(vatOutput.Sub(in.VATInput), decimal.Zero)
	taxableIncome := decimal.Max(in.Sales.Sub(vatOutput).Sub(in.OtherExpense), decimal.Zero)

	res := Result{
		TaxableIncome: taxableIncome,
		RateApplied:   decimal.Zero,
		VATOutput:     vatOutput,
		VATInput:      in.VATInput,
		VATPayable:    vatPayable,
	}

	if taxpayerType == Corporation {
		rate := CorporateRate(taxableIncome, in.Assets())
		res.RateApplied = rate
		res.TaxDue = taxableIncome.Mul(rate)
		return res
	}

	res.TaxDue = IndividualTax(taxableIncome)
	return res
}

// CalculateEntries is Calculate over a user's stored entries.
func CalculateEntries(entries []Entry, taxpayerType TaxpayerType) Result {
	return Calculate(InputsFromEntries(entries), taxpayerType)
}

// IndividualTax applies the graduated schedule to taxable income.
func IndividualTax(taxableIncome decimal.Decimal) decimal.Decimal {
	for _, b := range individualLowerBracket {
		if taxableIncome.LessThanOrEqual(b.ceiling) {
			return b.tax(taxableIncome)
		}
	}
	return individualTopBracket.tax(taxableIncome)
}

// CorporateRate is 25% only when both income and assets reach their floors.
func CorporateRate(taxableIncome, assets decimal.Decimal) decimal.Decimal {
	if taxableIncome.GreaterThanOrEqual(corporateIncomeFloor) && assets.GreaterThanOrEqual(corporateAssetsFloor) {
		return corporateHigherRate
	}
	return corporateRegularRate
}

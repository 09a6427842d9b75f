package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "expected %s, got %s %v", want, got.String(), msgAndArgs)
}

func TestCalculate_VATAndTaxableIncomeIdentities(t *testing.T) {
	cases := []struct {
		sales, vatInput, otherExpense string
	}{
		{"0", "0", "0"},
		{"500000", "20000", "100000"},
		{"1000", "500", "0"},
		{"1000", "0", "5000"},
		{"123456.78", "1000.50", "2500.25"},
	}

	for _, tc := range cases {
		in := Inputs{Sales: dec(tc.sales), VATInput: dec(tc.vatInput), OtherExpense: dec(tc.otherExpense)}
		res := Calculate(in, Individual)

		vatOutput := in.Sales.Mul(dec("0.12"))
		assert.True(t, vatOutput.Equal(res.VATOutput), tc)
		assert.True(t, decimal.Max(vatOutput.Sub(in.VATInput), decimal.Zero).Equal(res.VATPayable), tc)
		assert.True(t, decimal.Max(in.Sales.Sub(vatOutput).Sub(in.OtherExpense), decimal.Zero).Equal(res.TaxableIncome), tc)
		assert.True(t, in.VATInput.Equal(res.VATInput), tc)
		assert.False(t, res.VATPayable.IsNegative(), tc)
		assert.False(t, res.TaxableIncome.IsNegative(), tc)
	}
}

func TestCalculate_IndividualScenario(t *testing.T) {
	entries := []Entry{
		{Label: LabelSales, Value: dec("500000")},
		{Label: LabelVATInput, Value: dec("20000")},
		{Label: LabelOtherExpense, Value: dec("100000")},
		{Label: LabelAsset, Value: dec("0")},
		{Label: LabelAssetPurchase, Value: dec("0")},
	}

	res := CalculateEntries(entries, Individual)

	assertDecimal(t, "60000", res.VATOutput)
	assertDecimal(t, "40000", res.VATPayable)
	assertDecimal(t, "340000", res.TaxableIncome)
	assertDecimal(t, "13500", res.TaxDue)
	assertDecimal(t, "0", res.RateApplied)
}

func TestIndividualTax_ContinuousAtBracketBoundaries(t *testing.T) {
	boundaries := []struct {
		at   string
		want string
	}{
		{"250000", "0"},
		{"400000", "22500"},
		{"800000", "102500"},
		{"2000000", "402500"},
		{"8000000", "2202500"},
	}

	cent := dec("0.01")
	for _, b := range boundaries {
		x := dec(b.at)
		assertDecimal(t, b.want, IndividualTax(x), "at", b.at)

		// Just above the boundary the next bracket starts from the same amount.
		above := IndividualTax(x.Add(cent))
		assert.True(t, above.Sub(IndividualTax(x)).LessThan(cent), b.at)
		assert.True(t, above.GreaterThanOrEqual(IndividualTax(x)), b.at)
	}
}

func TestIndividualTax_Schedule(t *testing.T) {
	cases := []struct {
		income string
		want   string
	}{
		{"0", "0"},
		{"100000", "0"},
		{"300000", "7500"},
		{"500000", "42500"},
		{"1000000", "152500"},
		{"3000000", "702500"},
		{"10000000", "2902500"},
	}
	for _, tc := range cases {
		assertDecimal(t, tc.want, IndividualTax(dec(tc.income)), tc.income)
	}
}

func TestCalculate_CorporationRate(t *testing.T) {
	cases := []struct {
		name          string
		asset         string
		assetPurchase string
		wantRate      string
		wantTax       string
	}{
		{"large assets", "100000000", "50000000", "0.25", "1500000"},
		{"assets below threshold", "30000000", "20000000", "0.20", "1200000"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rate := CorporateRate(dec("6000000"), dec(tc.asset).Add(dec(tc.assetPurchase)))
			assertDecimal(t, tc.wantRate, rate)
			assertDecimal(t, tc.wantTax, dec("6000000").Mul(rate))
		})
	}
}

func TestCalculate_CorporationFromEntries(t *testing.T) {
	entries := []Entry{
		{Label: LabelSales, Value: dec("10000000")},
		{Label: LabelOtherExpense, Value: dec("2800000")},
		{Label: LabelAsset, Value: dec("60000000")},
		{Label: LabelAssetPurchase, Value: dec("40000000")},
	}

	res := CalculateEntries(entries, Corporation)

	assertDecimal(t, "1200000", res.VATOutput)
	assertDecimal(t, "6000000", res.TaxableIncome)
	assertDecimal(t, "0.25", res.RateApplied)
	assertDecimal(t, "1500000", res.TaxDue)

	entries[3].Value = dec("39999999.99")
	res = CalculateEntries(entries, Corporation)
	assertDecimal(t, "0.20", res.RateApplied)
	assertDecimal(t, "1200000", res.TaxDue)
}

func TestCorporateRate_RequiresBothThresholds(t *testing.T) {
	assertDecimal(t, "0.25", CorporateRate(dec("5000000"), dec("100000000")))
	assertDecimal(t, "0.20", CorporateRate(dec("4999999.99"), dec("100000000")))
	assertDecimal(t, "0.20", CorporateRate(dec("5000000"), dec("99999999.99")))
	assertDecimal(t, "0.20", CorporateRate(dec("0"), dec("0")))
}

func TestInputsFromEntries_FirstLabelWinsAndUnknownIgnored(t *testing.T) {
	entries := []Entry{
		{Label: "Bonus", Value: dec("999")},
		{Label: LabelSales, Value: dec("100")},
		{Label: LabelSales, Value: dec("200")},
		{Label: LabelAsset, Value: dec("7")},
		{Label: LabelAssetPurchase, Value: dec("3")},
	}

	in := InputsFromEntries(entries)

	assertDecimal(t, "100", in.Sales)
	assertDecimal(t, "0", in.VATInput)
	assertDecimal(t, "0", in.OtherExpense)
	assertDecimal(t, "10", in.Assets())
}

func TestCalculate_EmptyInputs(t *testing.T) {
	res := CalculateEntries(nil, Corporation)

	assertDecimal(t, "0", res.TaxableIncome)
	assertDecimal(t, "0", res.TaxDue)
	assertDecimal(t, "0.20", res.RateApplied)
	assertDecimal(t, "0", res.VATPayable)
}

func TestParseTaxpayerType(t *testing.T) {
	got, err := ParseTaxpayerType("")
	assert.NoError(t, err)
	assert.Equal(t, Individual, got)

	got, err = ParseTaxpayerType("corporation")
	assert.NoError(t, err)
	assert.Equal(t, Corporation, got)

	_, err = ParseTaxpayerType("partnership")
	assert.Error(t, err)
}

package sales

import (
	"github.com/shopspring/decimal"

	"gitlab.connectwisedev.com/paint-service/models"
)

// DefaultVATRate is the VAT already included in shelf prices
var DefaultVATRate = decimal.RequireFromString("0.12")

// Totals is the tax breakdown printed on a receipt. Prices are
// VAT-inclusive, so Total equals Subtotal
type Totals struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	VATable   decimal.Decimal `json:"vatable"`
	VAT       decimal.Decimal `json:"vat"`
	VATExempt decimal.Decimal `json:"vat_exempt"`
	Total     decimal.Decimal `json:"total"`
}

// ComputeTotals splits VAT out of the line subtotals, rounded to centavos
func ComputeTotals(items []models.SaleItem, rate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Subtotal())
	}
	subtotal = subtotal.Round(2)
	vatable := subtotal.Div(decimal.NewFromInt(1).Add(rate)).Round(2)
	return Totals{
		Subtotal:  subtotal,
		VATable:   vatable,
		VAT:       subtotal.Sub(vatable),
		VATExempt: decimal.Zero,
		Total:     subtotal,
	}
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleItem is one line of a completed transaction
type SaleItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Subtotal is unit price times quantity
func (i SaleItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Sale is a completed transaction. Reference is minted once before the rows
// are written and never changes
type Sale struct {
	Reference string     `json:"reference"`
	Timestamp time.Time  `json:"timestamp"`
	Items     []SaleItem `json:"items"`
}

// Total sums the line subtotals
func (s Sale) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

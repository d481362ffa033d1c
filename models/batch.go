package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.connectwisedev.com/paint-service/pkg/dates"
)

// Batch represents one tracked lot of a product in the database and cache
type Batch struct {
	ID             int64           `json:"id"`
	Code           string          `json:"code"` // MMDDYYNNN, assigned at creation when empty
	Name           string          `json:"name"`
	Brand          string          `json:"brand"`
	Color          string          `json:"color"`
	Type           string          `json:"type"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Quantity       int             `json:"quantity"`
	DateImported   time.Time       `json:"date_imported"`
	ExpirationDate *time.Time      `json:"expiration_date"` // Pointer for nullable field
	Status         string          `json:"status"`          // Derived, recomputed on every write
	StatusDetail   string          `json:"status_detail"`   // Every matching label, for display only
}

type batchAlias Batch

// batchJSON carries dates as YYYY-MM-DD on the wire
type batchJSON struct {
	batchAlias
	DateImported   string  `json:"date_imported"`
	ExpirationDate *string `json:"expiration_date"`
}

// MarshalJSON writes calendar dates as YYYY-MM-DD
func (b Batch) MarshalJSON() ([]byte, error) {
	out := batchJSON{batchAlias: batchAlias(b)}
	if !b.DateImported.IsZero() {
		out.DateImported = dates.Format(&b.DateImported)
	}
	if b.ExpirationDate != nil {
		exp := dates.Format(b.ExpirationDate)
		out.ExpirationDate = &exp
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts any date dates.Parse reads; blank or null dates stay unset
func (b *Batch) UnmarshalJSON(data []byte) error {
	var in batchJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*b = Batch(in.batchAlias)
	b.DateImported = time.Time{}
	b.ExpirationDate = nil

	if in.DateImported != "" {
		d, ok := dates.Parse(in.DateImported)
		if !ok {
			return fmt.Errorf("date_imported: %q is not a date", in.DateImported)
		}
		b.DateImported = d
	}
	if in.ExpirationDate != nil && *in.ExpirationDate != "" {
		d, ok := dates.Parse(*in.ExpirationDate)
		if !ok {
			return fmt.Errorf("expiration_date: %q is not a date", *in.ExpirationDate)
		}
		b.ExpirationDate = &d
	}
	return nil
}

// BatchCSV represents a batch as read from an import file
type BatchCSV struct {
	Code           string `csv:"code"` // Optional: minted when blank
	Name           string `csv:"name"`
	Brand          string `csv:"brand"`
	Color          string `csv:"color"`
	Type           string `csv:"type"`
	Price          string `csv:"price"`
	Qty            string `csv:"qty"`
	DateImported   string `csv:"date_imported"`
	ExpirationDate string `csv:"expiration_date"`
}

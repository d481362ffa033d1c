package inventory

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"gitlab.connectwisedev.com/paint-service/models"
	"gitlab.connectwisedev.com/paint-service/pkg/dates"
)

// ValidationError reports a rejected field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Validate checks a batch before it is written
func Validate(b models.Batch) error {
	switch {
	case b.Name == "":
		return invalid("name", "required")
	case b.Brand == "":
		return invalid("brand", "required")
	case b.UnitPrice.IsNegative():
		return invalid("unit_price", "must not be negative")
	case b.Quantity < 0:
		return invalid("quantity", "must not be negative")
	case len(b.Code) > 9:
		return invalid("code", "longer than 9 characters")
	case b.ExpirationDate != nil && b.ExpirationDate.Before(b.DateImported):
		return invalid("expiration_date", "before date imported")
	}
	return nil
}

// FromCSV converts an import row. Blank dates are left for the service to
// default; a blank expiration means the product does not expire
func FromCSV(row models.BatchCSV) (models.Batch, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(row.Price))
	if err != nil {
		return models.Batch{}, invalid("price", fmt.Sprintf("%q is not a number", row.Price))
	}
	qty, err := strconv.Atoi(strings.TrimSpace(row.Qty))
	if err != nil {
		return models.Batch{}, invalid("qty", fmt.Sprintf("%q is not an integer", row.Qty))
	}

	b := models.Batch{
		Code:      row.Code,
		Name:      row.Name,
		Brand:     row.Brand,
		Color:     row.Color,
		Type:      row.Type,
		UnitPrice: price,
		Quantity:  qty,
	}
	if s := strings.TrimSpace(row.DateImported); s != "" {
		d, ok := dates.Parse(s)
		if !ok {
			return models.Batch{}, invalid("date_imported", fmt.Sprintf("%q is not a date", s))
		}
		b.DateImported = d
	}
	if s := strings.TrimSpace(row.ExpirationDate); s != "" {
		d, ok := dates.Parse(s)
		if !ok {
			return models.Batch{}, invalid("expiration_date", fmt.Sprintf("%q is not a date", s))
		}
		b.ExpirationDate = &d
	}
	return b, nil
}

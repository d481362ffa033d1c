package sales

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.connectwisedev.com/paint-service/models"
	"gitlab.connectwisedev.com/paint-service/pkg/dates"
)

// AllBrands disables the brand filter
const AllBrands = "All Brands"

const unknown = "Unknown"

// Query narrows a report. From and To are calendar days, both inclusive
type Query struct {
	From  *time.Time
	To    *time.Time
	Brand string
}

// Revenue is one row of a breakdown
type Revenue struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// ProductTotal is the cumulative quantity sold of one batch
type ProductTotal struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// Summary is the headline of a report
type Summary struct {
	Transactions int             `json:"transactions"`
	ItemsSold    int             `json:"items_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
}

// Report is everything the monitoring screen shows for a query
type Report struct {
	Sales          []models.Sale  `json:"sales"`
	Summary        Summary        `json:"summary"`
	RevenueByBrand []Revenue      `json:"revenue_by_brand"`
	RevenueByType  []Revenue      `json:"revenue_by_type"`
	ProductTotals  []ProductTotal `json:"product_totals"`
}

// Report loads the sales history and aggregates it. Brand and type are
// resolved against the current inventory
func (s *Service) Report(ctx context.Context, q Query) (Report, error) {
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return Report{}, ErrInvalidRange
	}
	history, err := s.ledger.List(ctx)
	if err != nil {
		return Report{}, err
	}
	batches, err := s.batches.List(ctx)
	if err != nil {
		return Report{}, err
	}
	lookup := make(map[int64]models.Batch, len(batches))
	for _, b := range batches {
		lookup[b.ID] = b
	}

	filtered := Filter(history, q, lookup)
	return Report{
		Sales:          filtered,
		Summary:        Summarize(filtered),
		RevenueByBrand: RevenueBy(filtered, lookup, func(b models.Batch) string { return b.Brand }),
		RevenueByType:  RevenueBy(filtered, lookup, func(b models.Batch) string { return b.Type }),
		ProductTotals:  ProductTotals(filtered),
	}, nil
}

// Filter keeps sales inside the date range that contain at least one item of
// the requested brand. Items whose batch no longer exists never match a brand
func Filter(history []models.Sale, q Query, lookup map[int64]models.Batch) []models.Sale {
	var from, to time.Time
	if q.From != nil {
		from = dates.Day(*q.From)
	}
	if q.To != nil {
		to = dates.Day(*q.To)
	}
	brand := strings.TrimSpace(q.Brand)
	if strings.EqualFold(brand, AllBrands) {
		brand = ""
	}

	out := []models.Sale{}
	for _, sale := range history {
		day := dates.Day(sale.Timestamp)
		if q.From != nil && day.Before(from) {
			continue
		}
		if q.To != nil && day.After(to) {
			continue
		}
		if brand != "" && !hasBrand(sale, brand, lookup) {
			continue
		}
		out = append(out, sale)
	}
	return out
}

func hasBrand(sale models.Sale, brand string, lookup map[int64]models.Batch) bool {
	for _, it := range sale.Items {
		if b, ok := lookup[it.ProductID]; ok && strings.EqualFold(b.Brand, brand) {
			return true
		}
	}
	return false
}

// RevenueBy sums line subtotals under label(batch). Missing batches and
// blank labels fall under "Unknown". Rows keep first-seen order
func RevenueBy(history []models.Sale, lookup map[int64]models.Batch, label func(models.Batch) string) []Revenue {
	out := []Revenue{}
	index := map[string]int{}
	for _, sale := range history {
		for _, it := range sale.Items {
			key := unknown
			if b, ok := lookup[it.ProductID]; ok {
				if l := strings.TrimSpace(label(b)); l != "" {
					key = l
				}
			}
			i, ok := index[key]
			if !ok {
				i = len(out)
				index[key] = i
				out = append(out, Revenue{Label: key, Amount: decimal.Zero})
			}
			out[i].Amount = out[i].Amount.Add(it.Subtotal())
		}
	}
	return out
}

// ProductTotals tallies quantity sold per batch, largest first
func ProductTotals(history []models.Sale) []ProductTotal {
	index := map[int64]int{}
	out := []ProductTotal{}
	for _, sale := range history {
		for _, it := range sale.Items {
			i, ok := index[it.ProductID]
			if !ok {
				i = len(out)
				index[it.ProductID] = i
				out = append(out, ProductTotal{ProductID: it.ProductID, Name: it.Name})
			}
			out[i].Quantity += it.Quantity
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Quantity > out[j].Quantity })
	return out
}

// Summarize counts transactions, units and revenue
func Summarize(history []models.Sale) Summary {
	sum := Summary{Revenue: decimal.Zero}
	for _, sale := range history {
		sum.Transactions++
		sum.Revenue = sum.Revenue.Add(sale.Total())
		for _, it := range sale.Items {
			sum.ItemsSold += it.Quantity
		}
	}
	return sum
}

// Package sales runs the checkout flow and the sales reports
package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gitlab.connectwisedev.com/paint-service/models"
	"gitlab.connectwisedev.com/paint-service/pkg/auth"
	"gitlab.connectwisedev.com/paint-service/pkg/dates"
	"gitlab.connectwisedev.com/paint-service/pkg/status"
	"gitlab.connectwisedev.com/paint-service/pkg/store"
)

var (
	ErrEmptyCart    = errors.New("cart is empty")
	ErrBadQuantity  = errors.New("quantity must be positive")
	ErrNotSellable  = errors.New("batch is not sellable")
	ErrInvalidRange = errors.New("from date is after to date")
)

// DefaultRetryLimit bounds re-minting after a reference collision
const DefaultRetryLimit = 10

// CartItem is one requested line at the register
type CartItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Receipt is a recorded sale with its tax breakdown
type Receipt struct {
	Sale   models.Sale `json:"sale"`
	Totals Totals      `json:"totals"`
}

// Batches reads the inventory being sold from
type Batches interface {
	Get(ctx context.Context, id int64) (models.Batch, error)
	List(ctx context.Context) ([]models.Batch, error)
}

// Ledger persists sales
type Ledger interface {
	Record(ctx context.Context, sale models.Sale) error
	List(ctx context.Context) ([]models.Sale, error)
	Clear(ctx context.Context) (int64, error)
}

// ReferenceMinter assigns sale references
type ReferenceMinter interface {
	MintSaleReference(ctx context.Context, date time.Time) string
}

// Invalidator drops cached inventory after stock changes
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service is the register and reporting use-case layer
type Service struct {
	batches Batches
	ledger  Ledger
	refs    ReferenceMinter
	cache   Invalidator
	logger  *zap.Logger
	now     func() time.Time
	vatRate decimal.Decimal
	retries int
}

// Option configures a Service
type Option func(*Service)

// WithCache invalidates c after each sale
func WithCache(c Invalidator) Option {
	return func(s *Service) { s.cache = c }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithVATRate overrides DefaultVATRate
func WithVATRate(rate decimal.Decimal) Option {
	return func(s *Service) { s.vatRate = rate }
}

// WithRetryLimit overrides DefaultRetryLimit
func WithRetryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.retries = n
		}
	}
}

// NewService wires a Service
func NewService(batches Batches, ledger Ledger, refs ReferenceMinter, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		batches: batches,
		ledger:  ledger,
		refs:    refs,
		logger:  logger,
		now:     time.Now,
		vatRate: DefaultVATRate,
		retries: DefaultRetryLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Totals prices items at the configured VAT rate
func (s *Service) Totals(items []models.SaleItem) Totals {
	return ComputeTotals(items, s.vatRate)
}

// Checkout validates the cart against current stock, mints a reference and
// records the sale. Repeated lines for one batch are merged
func (s *Service) Checkout(ctx context.Context, cart []CartItem) (Receipt, error) {
	if len(cart) == 0 {
		return Receipt{}, ErrEmptyCart
	}
	lines, err := merge(cart)
	if err != nil {
		return Receipt{}, err
	}

	now := s.now()
	today := dates.Day(now)
	items := make([]models.SaleItem, 0, len(lines))
	for _, line := range lines {
		b, err := s.batches.Get(ctx, line.ProductID)
		if err != nil {
			return Receipt{}, err
		}
		if status.Of(b, today) == status.Expired {
			return Receipt{}, fmt.Errorf("%s (%s): %w", b.Name, b.Code, ErrNotSellable)
		}
		if line.Quantity > b.Quantity {
			return Receipt{}, fmt.Errorf("not enough stock for %s, %d left: %w", b.Name, b.Quantity, store.ErrInsufficientStock)
		}
		items = append(items, models.SaleItem{
			ProductID: b.ID,
			Name:      b.Name,
			UnitPrice: b.UnitPrice,
			Quantity:  line.Quantity,
		})
	}

	sale := models.Sale{Timestamp: now, Items: items}
	for attempt := 1; ; attempt++ {
		sale.Reference = s.refs.MintSaleReference(ctx, now)
		err = s.ledger.Record(ctx, sale)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrDuplicateCode) || attempt >= s.retries {
			return Receipt{}, err
		}
		s.logger.Warn("sale reference collided, re-minting",
			zap.String("reference", sale.Reference), zap.Int("attempt", attempt))
	}

	s.logger.Info("sale recorded",
		zap.String("reference", sale.Reference),
		zap.Int("lines", len(sale.Items)),
		zap.String("total", sale.Total().StringFixed(2)))
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("failed to invalidate batch cache", zap.Error(err))
		}
	}
	return Receipt{Sale: sale, Totals: s.Totals(sale.Items)}, nil
}

func merge(cart []CartItem) ([]CartItem, error) {
	var out []CartItem
	index := map[int64]int{}
	for _, it := range cart {
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("product %d: %w", it.ProductID, ErrBadQuantity)
		}
		if i, ok := index[it.ProductID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(out)
		out = append(out, it)
	}
	return out, nil
}

// ClearAll deletes every recorded sale
func (s *Service) ClearAll(ctx context.Context, sess auth.Session) (int64, error) {
	if err := sess.Require(); err != nil {
		return 0, err
	}
	n, err := s.ledger.Clear(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Warn("sales history cleared", zap.String("user", sess.User), zap.Int64("rows", n))
	return n, nil
}

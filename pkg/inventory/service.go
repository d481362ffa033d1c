// Package inventory manages batch lifecycle: creation with minted codes,
// edits, deletion, status refresh and alert scans
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"gitlab.connectwisedev.com/paint-service/models"
	"gitlab.connectwisedev.com/paint-service/pkg/auth"
	"gitlab.connectwisedev.com/paint-service/pkg/cache"
	"gitlab.connectwisedev.com/paint-service/pkg/dates"
	"gitlab.connectwisedev.com/paint-service/pkg/status"
	"gitlab.connectwisedev.com/paint-service/pkg/store"
)

// DefaultRetryLimit bounds re-minting after an insert hits the code constraint
const DefaultRetryLimit = 10

// Store is the persistence the service needs
type Store interface {
	List(ctx context.Context) ([]models.Batch, error)
	Get(ctx context.Context, id int64) (models.Batch, error)
	Insert(ctx context.Context, b *models.Batch) error
	Update(ctx context.Context, b models.Batch) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	Delete(ctx context.Context, id int64) error
}

// Cache holds the full batch listing
type Cache interface {
	Load(ctx context.Context) ([]models.Batch, error)
	Populate(ctx context.Context, batches []models.Batch) error
	Invalidate(ctx context.Context) error
}

// CodeMinter assigns batch codes
type CodeMinter interface {
	MintBatchCode(ctx context.Context, date time.Time) string
}

// Service is the inventory use-case layer
type Service struct {
	store   Store
	cache   Cache
	codes   CodeMinter
	logger  *zap.Logger
	now     func() time.Time
	retries int
}

// Option configures a Service
type Option func(*Service)

// WithCache enables the cache-aside listing
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
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
func NewService(st Store, codes CodeMinter, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{store: st, codes: codes, logger: logger, now: time.Now, retries: DefaultRetryLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today() time.Time {
	return dates.Today(s.now)
}

// PreviewCode shows the code the next batch imported on date would get
func (s *Service) PreviewCode(ctx context.Context, date time.Time) string {
	if date.IsZero() {
		date = s.today()
	}
	return s.codes.MintBatchCode(ctx, date)
}

// Add validates and stores a new batch. A blank code is minted from the
// import date; a duplicate on insert re-mints up to the retry limit. A
// caller-supplied code is never replaced
func (s *Service) Add(ctx context.Context, sess auth.Session, b models.Batch) (models.Batch, error) {
	if err := sess.Require(); err != nil {
		return models.Batch{}, err
	}
	b = s.normalize(b)
	if err := Validate(b); err != nil {
		return models.Batch{}, err
	}
	b.Status = string(status.Of(b, s.today()))
	b.StatusDetail = status.Detail(b, s.today())

	if b.Code != "" {
		if err := s.store.Insert(ctx, &b); err != nil {
			return models.Batch{}, err
		}
		s.invalidate(ctx)
		return b, nil
	}

	for attempt := 1; attempt <= s.retries; attempt++ {
		b.Code = s.codes.MintBatchCode(ctx, b.DateImported)
		err := s.store.Insert(ctx, &b)
		if err == nil {
			s.logger.Info("batch added", zap.Int64("batch_id", b.ID), zap.String("code", b.Code))
			s.invalidate(ctx)
			return b, nil
		}
		if !errors.Is(err, store.ErrDuplicateCode) {
			return models.Batch{}, err
		}
		s.logger.Warn("batch code collided on insert, re-minting",
			zap.String("code", b.Code), zap.Int("attempt", attempt))
	}
	return models.Batch{}, fmt.Errorf("no free batch code after %d attempts: %w", s.retries, store.ErrDuplicateCode)
}

// Update rewrites an existing batch and recomputes its status. A blank code
// keeps the stored one
func (s *Service) Update(ctx context.Context, sess auth.Session, b models.Batch) (models.Batch, error) {
	if err := sess.Require(); err != nil {
		return models.Batch{}, err
	}
	current, err := s.store.Get(ctx, b.ID)
	if err != nil {
		return models.Batch{}, err
	}
	if strings.TrimSpace(b.Code) == "" {
		b.Code = current.Code
	}
	if b.DateImported.IsZero() {
		b.DateImported = current.DateImported
	}
	b = s.normalize(b)
	if err := Validate(b); err != nil {
		return models.Batch{}, err
	}
	b.Status = string(status.Of(b, s.today()))
	b.StatusDetail = status.Detail(b, s.today())
	if err := s.store.Update(ctx, b); err != nil {
		return models.Batch{}, err
	}
	s.invalidate(ctx)
	return b, nil
}

// Delete removes a batch
func (s *Service) Delete(ctx context.Context, sess auth.Session, id int64) error {
	if err := sess.Require(); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("batch deleted", zap.Int64("batch_id", id))
	s.invalidate(ctx)
	return nil
}

// Get returns one batch with a fresh status
func (s *Service) Get(ctx context.Context, id int64) (models.Batch, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return models.Batch{}, err
	}
	b.Status = string(status.Of(b, s.today()))
	b.StatusDetail = status.Detail(b, s.today())
	return b, nil
}

// List returns every batch with its status recomputed for today. Stored
// statuses that drifted are written back. The cache is consulted first and
// refilled from the store on a miss
func (s *Service) List(ctx context.Context) ([]models.Batch, error) {
	batches, fromCache := s.loadCached(ctx)
	if !fromCache {
		var err error
		if batches, err = s.store.List(ctx); err != nil {
			return nil, err
		}
	}

	changed := s.refresh(ctx, batches)
	if s.cache != nil && (!fromCache || changed > 0) {
		if err := s.cache.Populate(ctx, batches); err != nil {
			s.logger.Warn("failed to populate batch cache", zap.Error(err))
		}
	}
	return batches, nil
}

func (s *Service) loadCached(ctx context.Context) ([]models.Batch, bool) {
	if s.cache == nil {
		return nil, false
	}
	batches, err := s.cache.Load(ctx)
	switch {
	case err == nil:
		s.logger.Debug("batches served from cache", zap.Int("count", len(batches)))
		return batches, true
	case errors.Is(err, cache.ErrMiss):
		s.logger.Debug("batch cache miss")
	default:
		s.logger.Warn("batch cache unavailable", zap.Error(err))
	}
	return nil, false
}

func (s *Service) refresh(ctx context.Context, batches []models.Batch) int {
	today := s.today()
	changed := 0
	for i := range batches {
		batches[i].StatusDetail = status.Detail(batches[i], today)
		next := string(status.Of(batches[i], today))
		if next == batches[i].Status {
			continue
		}
		batches[i].Status = next
		changed++
		if err := s.store.UpdateStatus(ctx, batches[i].ID, next); err != nil {
			s.logger.Warn("failed to persist refreshed status",
				zap.Int64("batch_id", batches[i].ID), zap.String("status", next), zap.Error(err))
		}
	}
	return changed
}

// AvailableForSale returns batches with stock that have not expired
func (s *Service) AvailableForSale(ctx context.Context) ([]models.Batch, error) {
	batches, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	today := s.today()
	out := make([]models.Batch, 0, len(batches))
	for _, b := range batches {
		if status.Sellable(b, today) {
			out = append(out, b)
		}
	}
	return out, nil
}

// Alerts scans every batch. An empty kind returns all alerts
func (s *Service) Alerts(ctx context.Context, kind models.AlertKind) ([]models.Alert, error) {
	batches, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	alerts := status.Scan(batches, s.today())
	if kind != "" {
		alerts = status.ByKind(alerts, kind)
	}
	return alerts, nil
}

// StatusLog returns the dated status lines for every batch needing attention
func (s *Service) StatusLog(ctx context.Context) ([]string, error) {
	batches, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return status.Log(batches, s.today()), nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("failed to invalidate batch cache", zap.Error(err))
	}
}

func (s *Service) normalize(b models.Batch) models.Batch {
	b.Code = strings.TrimSpace(b.Code)
	b.Name = strings.TrimSpace(b.Name)
	b.Brand = strings.TrimSpace(b.Brand)
	b.Color = strings.TrimSpace(b.Color)
	b.Type = strings.TrimSpace(b.Type)
	if b.DateImported.IsZero() {
		b.DateImported = s.today()
	}
	b.DateImported = dates.Day(b.DateImported)
	if b.ExpirationDate != nil {
		exp := dates.Day(*b.ExpirationDate)
		b.ExpirationDate = &exp
	}
	return b
}

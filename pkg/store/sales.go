package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gitlab.connectwisedev.com/paint-service/models"
	"gitlab.connectwisedev.com/paint-service/pkg/dates"
)

// SaleStore writes completed transactions and reads them back for reports
type SaleStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSaleStore returns a SaleStore over db
func NewSaleStore(db *sql.DB, logger *zap.Logger) *SaleStore {
	return &SaleStore{db: db, logger: logger}
}

// Record decrements stock for every line item and appends one sales row per
// line, all in a single transaction. A reference collision surfaces as
// ErrDuplicateCode, a batch without enough stock as ErrInsufficientStock
func (s *SaleStore) Record(ctx context.Context, sale models.Sale) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Rollback on error by default

	for i, item := range sale.Items {
		res, err := tx.ExecContext(ctx,
			`UPDATE batches SET qty = qty - $1 WHERE id = $2 AND qty >= $1`,
			item.Quantity, item.ProductID)
		if err != nil {
			return fmt.Errorf("failed to decrement batch %d: %w", item.ProductID, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		} else if n == 0 {
			return fmt.Errorf("batch %d: %w", item.ProductID, ErrInsufficientStock)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO sales (reference, line_no, product_id, product_name, quantity, price, total, sale_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			sale.Reference, i+1, item.ProductID, item.Name, item.Quantity, item.UnitPrice, item.Subtotal(), sale.Timestamp)
		if isUniqueViolation(err) {
			return fmt.Errorf("sale reference %s: %w", sale.Reference, ErrDuplicateCode)
		}
		if err != nil {
			return fmt.Errorf("failed to insert sale line %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// List rebuilds sales from their line rows, in the order they were first
// written. Rows without a reference are grouped under S<id>
func (s *SaleStore) List(ctx context.Context) ([]models.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, reference, product_id, product_name, quantity, price, sale_date
		FROM sales ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var order []string
	byRef := map[string]*models.Sale{}
	for rows.Next() {
		var (
			id   int64
			ref  sql.NullString
			item models.SaleItem
			when sql.NullString
		)
		if err := rows.Scan(&id, &ref, &item.ProductID, &item.Name, &item.Quantity, &item.UnitPrice, &when); err != nil {
			s.logger.Error("skipping unreadable sale row", zap.Error(err))
			continue
		}

		reference := ref.String
		if !ref.Valid || reference == "" {
			reference = fmt.Sprintf("S%d", id)
		}
		sale, ok := byRef[reference]
		if !ok {
			sale = &models.Sale{Reference: reference, Timestamp: parseTimestamp(when.String)}
			byRef[reference] = sale
			order = append(order, reference)
		}
		sale.Items = append(sale.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during sale row iteration: %w", err)
	}

	sales := make([]models.Sale, 0, len(order))
	for _, ref := range order {
		sales = append(sales, *byRef[ref])
	}
	return sales, nil
}

// Clear deletes every sale. It is a maintenance operation
func (s *SaleStore) Clear(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM sales`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear sales: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `ALTER SEQUENCE sales_id_seq RESTART WITH 1`); err != nil {
		return 0, fmt.Errorf("failed to reset sales sequence: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// parseTimestamp keeps the time of day when present. Unreadable values fall
// back to the calendar date, then to now
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	if d, ok := dates.Parse(s); ok {
		return d
	}
	return time.Now()
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"gitlab.connectwisedev.com/paint-service/models"
	"gitlab.connectwisedev.com/paint-service/pkg/codegen"
	"gitlab.connectwisedev.com/paint-service/pkg/dates"
)

const batchColumns = `id, code, name, brand, color, type, price, qty, date_imported, expiration_date, status`

// BatchStore reads and writes the batches table
type BatchStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBatchStore returns a BatchStore over db
func NewBatchStore(db *sql.DB, logger *zap.Logger) *BatchStore {
	return &BatchStore{db: db, logger: logger}
}

// List returns every batch ordered by id
func (s *BatchStore) List(ctx context.Context) ([]models.Batch, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+batchColumns+` FROM batches ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	batches := []models.Batch{}
	for rows.Next() {
		b, err := s.scan(rows)
		if err != nil {
			s.logger.Error("skipping unreadable batch row", zap.Error(err))
			continue
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during batch row iteration: %w", err)
	}
	return batches, nil
}

// Get returns one batch by id
func (s *BatchStore) Get(ctx context.Context, id int64) (models.Batch, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = $1`, id)
	b, err := s.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Batch{}, fmt.Errorf("batch %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Batch{}, fmt.Errorf("failed to read batch %d: %w", id, err)
	}
	return b, nil
}

// Insert stores a new batch and sets its id
func (s *BatchStore) Insert(ctx context.Context, b *models.Batch) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO batches (code, name, brand, color, type, price, qty, date_imported, expiration_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		b.Code, b.Name, b.Brand, b.Color, b.Type, b.UnitPrice, b.Quantity,
		b.DateImported, nullDate(b.ExpirationDate), b.Status,
	).Scan(&b.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("batch code %s: %w", b.Code, ErrDuplicateCode)
	}
	if err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}
	return nil
}

// Update overwrites every column of an existing batch
func (s *BatchStore) Update(ctx context.Context, b models.Batch) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE batches SET code=$1, name=$2, brand=$3, color=$4, type=$5, price=$6, qty=$7,
			date_imported=$8, expiration_date=$9, status=$10
		WHERE id=$11`,
		b.Code, b.Name, b.Brand, b.Color, b.Type, b.UnitPrice, b.Quantity,
		b.DateImported, nullDate(b.ExpirationDate), b.Status, b.ID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("batch code %s: %w", b.Code, ErrDuplicateCode)
	}
	if err != nil {
		return fmt.Errorf("failed to update batch %d: %w", b.ID, err)
	}
	return expectOne(res, "batch", b.ID)
}

// UpdateStatus rewrites the cached status column only
func (s *BatchStore) UpdateStatus(ctx context.Context, id int64, status string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE batches SET status=$1 WHERE id=$2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update status of batch %d: %w", id, err)
	}
	return expectOne(res, "batch", id)
}

// Delete removes a batch
func (s *BatchStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM batches WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete batch %d: %w", id, err)
	}
	return expectOne(res, "batch", id)
}

// CodesWithPrefix implements codegen.Lookup for both namespaces
func (s *BatchStore) CodesWithPrefix(ctx context.Context, ns codegen.Namespace, prefix string) ([]string, error) {
	query, err := prefixQuery(ns)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s codes: %w", ns, err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan %s code: %w", ns, err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// Exists implements codegen.Lookup
func (s *BatchStore) Exists(ctx context.Context, ns codegen.Namespace, code string) (bool, error) {
	var query string
	switch ns {
	case codegen.NamespaceBatch:
		query = `SELECT EXISTS (SELECT 1 FROM batches WHERE code = $1)`
	case codegen.NamespaceSale:
		query = `SELECT EXISTS (SELECT 1 FROM sales WHERE reference = $1)`
	default:
		return false, fmt.Errorf("unknown namespace %q", ns)
	}
	var ok bool
	if err := s.db.QueryRowContext(ctx, query, code).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check %s code %s: %w", ns, code, err)
	}
	return ok, nil
}

func prefixQuery(ns codegen.Namespace) (string, error) {
	switch ns {
	case codegen.NamespaceBatch:
		return `SELECT code FROM batches WHERE code LIKE $1 ORDER BY code DESC`, nil
	case codegen.NamespaceSale:
		return `SELECT DISTINCT reference FROM sales WHERE reference LIKE $1 ORDER BY reference DESC`, nil
	}
	return "", fmt.Errorf("unknown namespace %q", ns)
}

func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *BatchStore) scan(r rowScanner) (models.Batch, error) {
	var (
		b        models.Batch
		imported sql.NullString
		expires  sql.NullString
	)
	if err := r.Scan(&b.ID, &b.Code, &b.Name, &b.Brand, &b.Color, &b.Type, &b.UnitPrice, &b.Quantity,
		&imported, &expires, &b.Status); err != nil {
		return models.Batch{}, err
	}

	if imported.Valid {
		if d, ok := dates.Parse(imported.String); ok {
			b.DateImported = d
		} else {
			s.logger.Warn("unparseable date_imported", zap.Int64("batch_id", b.ID), zap.String("value", imported.String))
		}
	}
	if expires.Valid {
		b.ExpirationDate = dates.ParsePtr(expires.String)
		if b.ExpirationDate == nil {
			s.logger.Warn("unparseable expiration_date", zap.Int64("batch_id", b.ID), zap.String("value", expires.String))
		}
	}
	return b, nil
}

func nullDate(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func expectOne(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}

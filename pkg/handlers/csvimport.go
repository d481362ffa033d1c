package handlers

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"gitlab.connectwisedev.com/paint-service/models"
	"gitlab.connectwisedev.com/paint-service/pkg/auth"
	"gitlab.connectwisedev.com/paint-service/pkg/inventory"
)

// ImportResult reports a bulk import. Bad rows are skipped, not fatal
type ImportResult struct {
	Imported []models.Batch `json:"imported"`
	Skipped  []SkippedRow   `json:"skipped"`
}

// SkippedRow names a rejected line, counted from 1 including the header
type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

var requiredColumns = []string{"name", "brand", "price", "qty"}

func (h *Handler) importCSV(ctx context.Context, sess auth.Session, content []byte) (ImportResult, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	head, err := reader.Read()
	if err == io.EOF {
		return ImportResult{}, &inventory.ValidationError{Field: "csv", Reason: "file is empty"}
	}
	if err != nil {
		return ImportResult{}, &inventory.ValidationError{Field: "csv", Reason: err.Error()}
	}
	cols := map[string]int{}
	for i, name := range head {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return ImportResult{}, &inventory.ValidationError{Field: "csv", Reason: fmt.Sprintf("missing column %q", name)}
		}
	}

	result := ImportResult{Imported: []models.Batch{}, Skipped: []SkippedRow{}}
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			h.logger.Warn("skipping unreadable CSV row", zap.Int("line", line), zap.Error(err))
			result.Skipped = append(result.Skipped, SkippedRow{Line: line, Reason: err.Error()})
			continue
		}

		field := func(name string) string {
			if i, ok := cols[name]; ok && i < len(row) {
				return row[i]
			}
			return ""
		}
		b, err := inventory.FromCSV(models.BatchCSV{
			Code:           field("code"),
			Name:           field("name"),
			Brand:          field("brand"),
			Color:          field("color"),
			Type:           field("type"),
			Price:          field("price"),
			Qty:            field("qty"),
			DateImported:   field("date_imported"),
			ExpirationDate: field("expiration_date"),
		})
		if err == nil {
			b, err = h.inventory.Add(ctx, sess, b)
		}
		if err != nil {
			h.logger.Warn("skipping CSV row", zap.Int("line", line), zap.Error(err))
			result.Skipped = append(result.Skipped, SkippedRow{Line: line, Reason: err.Error()})
			continue
		}
		result.Imported = append(result.Imported, b)
	}

	h.logger.Info("CSV import finished",
		zap.Int("imported", len(result.Imported)), zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

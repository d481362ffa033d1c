// Package status derives the operational state of inventory batches and
// produces the alerts shown on the monitoring screen
package status

import (
	"fmt"
	"strings"
	"time"

	"gitlab.connectwisedev.com/paint-service/models"
	"gitlab.connectwisedev.com/paint-service/pkg/dates"
)

// Status is the primary label stored with a batch
type Status string

const (
	Expired      Status = "Expired"
	ExpiringSoon Status = "Expiring Soon"
	OutOfStock   Status = "Out of Stock"
	LowStock     Status = "Low Stock"
	Active       Status = "Active"
)

const (
	// LowStockThreshold is the highest quantity still reported as low stock
	LowStockThreshold = 5
	// ExpiringSoonDays is the inclusive window before expiration
	ExpiringSoonDays = 7
)

// Classify returns the primary status; the first matching rule wins:
// expired (expiration on or before today), expiring soon (within the next
// ExpiringSoonDays, inclusive), out of stock, low stock, active
func Classify(quantity int, expiration *time.Time, today time.Time) Status {
	if s, ok := expirationStatus(expiration, today); ok {
		return s
	}
	if s, ok := stockStatus(quantity); ok {
		return s
	}
	return Active
}

// Composite joins every matching label with "; ", expiration first. A
// healthy batch yields the empty string
func Composite(quantity int, expiration *time.Time, today time.Time) string {
	var labels []string
	if s, ok := expirationStatus(expiration, today); ok {
		labels = append(labels, string(s))
	}
	if s, ok := stockStatus(quantity); ok {
		labels = append(labels, string(s))
	}
	return strings.Join(labels, "; ")
}

// Detail is the composite label shown next to a batch; "Active" when
// nothing matches
func Detail(b models.Batch, today time.Time) string {
	if c := Composite(b.Quantity, b.ExpirationDate, today); c != "" {
		return c
	}
	return string(Active)
}

// Of classifies a batch
func Of(b models.Batch, today time.Time) Status {
	return Classify(b.Quantity, b.ExpirationDate, today)
}

// Sellable reports whether a batch may be offered at the register
func Sellable(b models.Batch, today time.Time) bool {
	if b.Quantity <= 0 {
		return false
	}
	_, expired := daysLeft(b.ExpirationDate, today)
	return !expired
}

func expirationStatus(expiration *time.Time, today time.Time) (Status, bool) {
	if expiration == nil {
		return "", false
	}
	left := dates.DaysBetween(today, *expiration)
	switch {
	case left <= 0:
		return Expired, true
	case left <= ExpiringSoonDays:
		return ExpiringSoon, true
	}
	return "", false
}

func stockStatus(quantity int) (Status, bool) {
	switch {
	case quantity <= 0:
		return OutOfStock, true
	case quantity <= LowStockThreshold:
		return LowStock, true
	}
	return "", false
}

// daysLeft returns days until expiration and whether the batch is expired
func daysLeft(expiration *time.Time, today time.Time) (int, bool) {
	if expiration == nil {
		return 0, false
	}
	left := dates.DaysBetween(today, *expiration)
	return left, left <= 0
}

// Scan walks batches in order and returns their alerts. Each batch yields at
// most one expiration alert followed by at most one stock alert. An empty
// result means every batch is healthy
func Scan(batches []models.Batch, today time.Time) []models.Alert {
	alerts := []models.Alert{}
	for _, b := range batches {
		if b.ExpirationDate != nil {
			left, expired := daysLeft(b.ExpirationDate, today)
			switch {
			case expired:
				alerts = append(alerts, newAlert(b, models.AlertExpired,
					fmt.Sprintf("Batch of %s (%s) has expired on %s.", b.Name, b.Brand, dates.Format(b.ExpirationDate))))
			case left <= ExpiringSoonDays:
				alerts = append(alerts, newAlert(b, models.AlertExpiringSoon,
					fmt.Sprintf("Batch of %s (%s) is expiring in %d day(s) on %s.", b.Name, b.Brand, left, dates.Format(b.ExpirationDate))))
			}
		}

		switch {
		case b.Quantity == 0:
			alerts = append(alerts, newAlert(b, models.AlertOutOfStock,
				fmt.Sprintf("Batch of %s (%s) is out of stock!", b.Name, b.Brand)))
		case b.Quantity > 0 && b.Quantity <= LowStockThreshold:
			alerts = append(alerts, newAlert(b, models.AlertLowStock,
				fmt.Sprintf("Batch of %s (%s) is running low, only %d left!", b.Name, b.Brand, b.Quantity)))
		}
	}
	return alerts
}

func newAlert(b models.Batch, kind models.AlertKind, msg string) models.Alert {
	return models.Alert{BatchID: b.ID, Code: b.Code, Name: b.Name, Brand: b.Brand, Kind: kind, Message: msg}
}

// ByKind keeps the alerts of one kind, preserving order
func ByKind(alerts []models.Alert, kind models.AlertKind) []models.Alert {
	out := []models.Alert{}
	for _, a := range alerts {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

// Log renders one line per batch whose primary status needs attention
func Log(batches []models.Batch, today time.Time) []string {
	day := dates.Format(&today)
	lines := []string{}
	for _, b := range batches {
		switch Of(b, today) {
		case Expired:
			lines = append(lines, fmt.Sprintf("[%s] %s (%s) expired on %s", day, b.Name, b.Brand, dates.Format(b.ExpirationDate)))
		case ExpiringSoon:
			left, _ := daysLeft(b.ExpirationDate, today)
			lines = append(lines, fmt.Sprintf("[%s] %s (%s) expiring in %d days (%s)", day, b.Name, b.Brand, left, dates.Format(b.ExpirationDate)))
		case LowStock:
			lines = append(lines, fmt.Sprintf("[%s] %s (%s) low on stock, %d left", day, b.Name, b.Brand, b.Quantity))
		case OutOfStock:
			lines = append(lines, fmt.Sprintf("[%s] %s (%s) is out of stock", day, b.Name, b.Brand))
		}
	}
	return lines
}

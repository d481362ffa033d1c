package models

// AlertKind classifies why a batch needs attention
type AlertKind string

const (
	AlertExpired      AlertKind = "EXPIRED"
	AlertExpiringSoon AlertKind = "EXPIRING_SOON"
	AlertLowStock     AlertKind = "LOW_STOCK"
	AlertOutOfStock   AlertKind = "OUT_OF_STOCK"
)

// Alert is a transient notice produced by a scan. It is never persisted
type Alert struct {
	BatchID int64     `json:"batch_id"`
	Code    string    `json:"code"`
	Name    string    `json:"name"`
	Brand   string    `json:"brand"`
	Kind    AlertKind `json:"kind"`
	Message string    `json:"message"`
}

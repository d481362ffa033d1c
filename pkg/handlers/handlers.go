// Package handlers adapts the inventory, register and credential services to
// API Gateway proxy events
package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"gitlab.connectwisedev.com/paint-service/models"
	"gitlab.connectwisedev.com/paint-service/pkg/auth"
	"gitlab.connectwisedev.com/paint-service/pkg/sales"
)

// Inventory is the batch use-case surface
type Inventory interface {
	List(ctx context.Context) ([]models.Batch, error)
	Get(ctx context.Context, id int64) (models.Batch, error)
	Add(ctx context.Context, sess auth.Session, b models.Batch) (models.Batch, error)
	Update(ctx context.Context, sess auth.Session, b models.Batch) (models.Batch, error)
	Delete(ctx context.Context, sess auth.Session, id int64) error
	PreviewCode(ctx context.Context, date time.Time) string
	AvailableForSale(ctx context.Context) ([]models.Batch, error)
	Alerts(ctx context.Context, kind models.AlertKind) ([]models.Alert, error)
	StatusLog(ctx context.Context) ([]string, error)
}

// Register is the checkout and reporting surface
type Register interface {
	Checkout(ctx context.Context, cart []sales.CartItem) (sales.Receipt, error)
	Report(ctx context.Context, q sales.Query) (sales.Report, error)
	ClearAll(ctx context.Context, sess auth.Session) (int64, error)
}

// Authorizer turns request credentials into a session
type Authorizer interface {
	Authorize(ctx context.Context, user, password string) auth.Session
	Change(ctx context.Context, current, next string) error
}

// Handler serves every route. Each Lambda entrypoint starts one of its
// methods
type Handler struct {
	inventory Inventory
	register  Register
	auth      Authorizer
	logger    *zap.Logger
}

// New returns a Handler
func New(inv Inventory, reg Register, authz Authorizer, logger *zap.Logger) *Handler {
	return &Handler{inventory: inv, register: reg, auth: authz, logger: logger}
}

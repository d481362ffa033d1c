package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gitlab.connectwisedev.com/paint-service/models"
	"gitlab.connectwisedev.com/paint-service/pkg/auth"
	"gitlab.connectwisedev.com/paint-service/pkg/inventory"
	"gitlab.connectwisedev.com/paint-service/pkg/sales"
	"gitlab.connectwisedev.com/paint-service/pkg/store"
)

type fakeInventory struct {
	batches  []models.Batch
	added    []models.Batch
	err      error
	lastKind models.AlertKind
	preview  time.Time
}

func (f *fakeInventory) List(context.Context) ([]models.Batch, error) { return f.batches, f.err }

func (f *fakeInventory) Get(_ context.Context, id int64) (models.Batch, error) {
	for _, b := range f.batches {
		if b.ID == id {
			return b, nil
		}
	}
	return models.Batch{}, fmt.Errorf("batch %d: %w", id, store.ErrNotFound)
}

func (f *fakeInventory) Add(_ context.Context, sess auth.Session, b models.Batch) (models.Batch, error) {
	if err := sess.Require(); err != nil {
		return models.Batch{}, err
	}
	if f.err != nil {
		return models.Batch{}, f.err
	}
	if b.Name == "" {
		return models.Batch{}, &inventory.ValidationError{Field: "name", Reason: "required"}
	}
	b.ID = int64(len(f.added) + 1)
	b.Code = fmt.Sprintf("031524%03d", b.ID)
	f.added = append(f.added, b)
	return b, nil
}

func (f *fakeInventory) Update(_ context.Context, _ auth.Session, b models.Batch) (models.Batch, error) {
	if _, err := f.Get(context.Background(), b.ID); err != nil {
		return models.Batch{}, err
	}
	return b, f.err
}

func (f *fakeInventory) Delete(_ context.Context, _ auth.Session, id int64) error {
	_, err := f.Get(context.Background(), id)
	return err
}

func (f *fakeInventory) PreviewCode(_ context.Context, date time.Time) string {
	f.preview = date
	return "031524004"
}

func (f *fakeInventory) AvailableForSale(context.Context) ([]models.Batch, error) {
	return f.batches[:1], nil
}

func (f *fakeInventory) Alerts(_ context.Context, kind models.AlertKind) ([]models.Alert, error) {
	f.lastKind = kind
	return []models.Alert{{BatchID: 1, Kind: models.AlertLowStock}}, nil
}

func (f *fakeInventory) StatusLog(context.Context) ([]string, error) {
	return []string{"[2024-03-15] Primer (Davies) low on stock, 3 left"}, nil
}

type fakeRegister struct {
	err       error
	lastQuery sales.Query
}

func (f *fakeRegister) Checkout(_ context.Context, cart []sales.CartItem) (sales.Receipt, error) {
	if f.err != nil {
		return sales.Receipt{}, f.err
	}
	if len(cart) == 0 {
		return sales.Receipt{}, sales.ErrEmptyCart
	}
	return sales.Receipt{Sale: models.Sale{Reference: "031524001"}}, nil
}

func (f *fakeRegister) Report(_ context.Context, q sales.Query) (sales.Report, error) {
	f.lastQuery = q
	return sales.Report{Sales: []models.Sale{}}, f.err
}

func (f *fakeRegister) ClearAll(_ context.Context, sess auth.Session) (int64, error) {
	if err := sess.Require(); err != nil {
		return 0, err
	}
	return 3, nil
}

type fakeAuth struct{ changed bool }

func (f *fakeAuth) Authorize(_ context.Context, user, password string) auth.Session {
	return auth.Session{User: user, Admin: password == "admin123"}
}

func (f *fakeAuth) Change(_ context.Context, current, next string) error {
	if current != "admin123" {
		return auth.ErrUnauthorized
	}
	if next == "" {
		return auth.ErrNoPassword
	}
	f.changed = true
	return nil
}

func newHandler() (*Handler, *fakeInventory, *fakeRegister) {
	inv := &fakeInventory{batches: []models.Batch{
		{ID: 1, Code: "031524001", Name: "Flat Latex", Brand: "Boysen", UnitPrice: decimal.RequireFromString("450"), Quantity: 10},
		{ID: 2, Code: "031524002", Name: "Primer", Brand: "Davies", UnitPrice: decimal.RequireFromString("120.5"), Quantity: 3},
	}}
	reg := &fakeRegister{}
	return New(inv, reg, &fakeAuth{}, zap.NewNop()), inv, reg
}

func adminHeaders() map[string]string {
	return map[string]string{"x-admin-password": "admin123", "Content-Type": "application/json"}
}

func message(t *testing.T, resp events.APIGatewayProxyResponse) string {
	t.Helper()
	var m messageBody
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &m))
	return m.Message
}

func TestListBatches(t *testing.T) {
	h, _, _ := newHandler()
	resp, err := h.ListBatches(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:     http.MethodGet,
		Path:           "/batches",
		RequestContext: events.APIGatewayProxyRequestContext{RequestID: "req-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-1", resp.Headers["X-Request-Id"])

	var got []models.Batch
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &got))
	assert.Len(t, got, 2)
}

func TestListBatchesGeneratesRequestID(t *testing.T) {
	h, _, _ := newHandler()
	resp, err := h.ListBatches(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: "/batches"})
	require.NoError(t, err)
	assert.Len(t, resp.Headers["X-Request-Id"], 36)
}

func TestGetBatch(t *testing.T) {
	h, _, _ := newHandler()
	ctx := context.Background()

	resp, _ := h.ListBatches(ctx, events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: "/batches/2",
		PathParameters: map[string]string{"id": "2"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = h.ListBatches(ctx, events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: "/batches/9",
		PathParameters: map[string]string{"id": "9"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = h.ListBatches(ctx, events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: "/batches/x",
		PathParameters: map[string]string{"id": "x"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNextCode(t *testing.T) {
	h, inv, _ := newHandler()
	resp, _ := h.ListBatches(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		Path:                  "/batches/next-code",
		QueryStringParameters: map[string]string{"date": "2024-03-15"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"code":"031524004"}`, resp.Body)
	assert.Equal(t, 15, inv.preview.Day())

	resp, _ = h.ListBatches(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		Path:                  "/batches/next-code",
		QueryStringParameters: map[string]string{"date": "tomorrow"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWriteBatchesRequiresAdmin(t *testing.T) {
	h, inv, _ := newHandler()
	resp, err := h.WriteBatches(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/batches",
		Headers:    map[string]string{"X-Admin-Password": "wrong"},
		Body:       `{"name":"Gloss","brand":"Boysen"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, inv.added)
}

func TestCreateBatch(t *testing.T) {
	h, inv, _ := newHandler()
	resp, _ := h.WriteBatches(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/batches",
		Headers:    adminHeaders(),
		Body:       `{"name":"Gloss","brand":"Boysen","unit_price":"250.00","quantity":4}`,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, inv.added, 1)
	assert.True(t, decimal.RequireFromString("250").Equal(inv.added[0].UnitPrice))

	resp, _ = h.WriteBatches(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost, Path: "/batches", Headers: adminHeaders(), Body: `{"brand":"Boysen"}`,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid name: required", message(t, resp))

	resp, _ = h.WriteBatches(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost, Path: "/batches", Headers: adminHeaders(), Body: `not json`,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateBatchWithCalendarDates(t *testing.T) {
	h, inv, _ := newHandler()
	resp, _ := h.WriteBatches(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/batches",
		Headers:    adminHeaders(),
		Body:       `{"name":"Gloss","brand":"Boysen","unit_price":"250.00","quantity":4,"date_imported":"2024-03-15","expiration_date":"2024-09-01"}`,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, inv.added, 1)
	assert.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), inv.added[0].DateImported)
	require.NotNil(t, inv.added[0].ExpirationDate)
	assert.Equal(t, time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC), *inv.added[0].ExpirationDate)
	assert.Contains(t, resp.Body, `"expiration_date":"2024-09-01"`)

	resp, _ = h.WriteBatches(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost, Path: "/batches", Headers: adminHeaders(),
		Body: `{"name":"Gloss","brand":"Boysen","expiration_date":"next spring"}`,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, message(t, resp), "expiration_date")
}

func TestCreateBatchErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"duplicate code", fmt.Errorf("batch code 031524001: %w", store.ErrDuplicateCode), http.StatusConflict},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, inv, _ := newHandler()
			inv.err = tt.err
			resp, _ := h.WriteBatches(context.Background(), events.APIGatewayProxyRequest{
				HTTPMethod: http.MethodPost, Path: "/batches", Headers: adminHeaders(), Body: `{"name":"Gloss"}`,
			})
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}

	h, inv, _ := newHandler()
	inv.err = errors.New("pq: password authentication failed")
	resp, _ := h.WriteBatches(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost, Path: "/batches", Headers: adminHeaders(), Body: `{"name":"Gloss"}`,
	})
	assert.Equal(t, "Internal server error", message(t, resp))
}

func TestUpdateAndDeleteBatch(t *testing.T) {
	h, _, _ := newHandler()
	ctx := context.Background()

	resp, _ := h.WriteBatches(ctx, events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPut, Path: "/batches/1", Headers: adminHeaders(),
		PathParameters: map[string]string{"id": "1"}, Body: `{"name":"Flat Latex","brand":"Boysen","quantity":2}`,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = h.WriteBatches(ctx, events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodDelete, Path: "/batches/7", Headers: adminHeaders(),
		PathParameters: map[string]string{"id": "7"},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = h.WriteBatches(ctx, events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodDelete, Path: "/batches/2", Headers: adminHeaders(),
		PathParameters: map[string]string{"id": "2"},
	})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestImportCSV(t *testing.T) {
	h, inv, _ := newHandler()
	csvBody := "Name,Brand,Color,Type,Price,Qty,Expiration_Date\n" +
		"Flat Latex,Boysen,White,Latex,450,12,2025-01-10\n" +
		"Primer,Davies,Gray,Primer,abc,3,\n" +
		",Davies,Gray,Primer,100,3,\n" +
		"Enamel,Boysen,Red,Enamel,300.50,5,\n"
	headers := adminHeaders()
	headers["Content-Type"] = "text/csv"

	resp, err := h.WriteBatches(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:      http.MethodPost,
		Path:            "/batches",
		Headers:         headers,
		Body:            base64.StdEncoding.EncodeToString([]byte(csvBody)),
		IsBase64Encoded: true,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result ImportResult
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &result))
	assert.Len(t, result.Imported, 2)
	require.Len(t, result.Skipped, 2)
	assert.Equal(t, 3, result.Skipped[0].Line)
	assert.Equal(t, 4, result.Skipped[1].Line)
	require.Len(t, inv.added, 2)
	assert.NotNil(t, inv.added[0].ExpirationDate)
	assert.Nil(t, inv.added[1].ExpirationDate)
}

func TestImportCSVMissingColumn(t *testing.T) {
	h, _, _ := newHandler()
	headers := adminHeaders()
	headers["Content-Type"] = "text/csv; charset=utf-8"
	resp, _ := h.WriteBatches(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost, Path: "/batches", Headers: headers, Body: "name,brand,qty\nA,B,1\n",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, message(t, resp), `missing column "price"`)
}

func TestAlerts(t *testing.T) {
	h, inv, _ := newHandler()
	ctx := context.Background()

	resp, _ := h.Alerts(ctx, events.APIGatewayProxyRequest{Path: "/alerts",
		QueryStringParameters: map[string]string{"kind": "low_stock"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.AlertLowStock, inv.lastKind)

	resp, _ = h.Alerts(ctx, events.APIGatewayProxyRequest{Path: "/alerts",
		QueryStringParameters: map[string]string{"kind": "stale"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = h.Alerts(ctx, events.APIGatewayProxyRequest{Path: "/alerts/log"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Body, "low on stock")
}

func TestCheckout(t *testing.T) {
	h, _, reg := newHandler()
	ctx := context.Background()

	resp, _ := h.Checkout(ctx, events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost, Path: "/checkout",
		Body: `{"items":[{"product_id":1,"quantity":2}]}`})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Contains(t, resp.Body, "031524001")

	resp, _ = h.Checkout(ctx, events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost, Path: "/checkout",
		Body: `{"items":[]}`})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	reg.err = fmt.Errorf("not enough stock: %w", store.ErrInsufficientStock)
	resp, _ = h.Checkout(ctx, events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost, Path: "/checkout",
		Body: `{"items":[{"product_id":1,"quantity":99}]}`})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = h.Checkout(ctx, events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: "/checkout"})
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestSalesReport(t *testing.T) {
	h, _, reg := newHandler()
	ctx := context.Background()

	resp, _ := h.Sales(ctx, events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: "/reports/sales",
		QueryStringParameters: map[string]string{"from": "2024-03-01", "brand": "Boysen"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, reg.lastQuery.From)
	assert.Nil(t, reg.lastQuery.To)
	assert.Equal(t, "Boysen", reg.lastQuery.Brand)

	resp, _ = h.Sales(ctx, events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: "/reports/sales",
		QueryStringParameters: map[string]string{"to": "03/15/2024"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	reg.err = sales.ErrInvalidRange
	resp, _ = h.Sales(ctx, events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: "/reports/sales"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClearSales(t *testing.T) {
	h, _, _ := newHandler()
	ctx := context.Background()

	resp, _ := h.Sales(ctx, events.APIGatewayProxyRequest{HTTPMethod: http.MethodDelete, Path: "/sales"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = h.Sales(ctx, events.APIGatewayProxyRequest{HTTPMethod: http.MethodDelete, Path: "/sales", Headers: adminHeaders()})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"deleted":3}`, resp.Body)
}

func TestChangePassword(t *testing.T) {
	inv := &fakeInventory{}
	authz := &fakeAuth{}
	h := New(inv, &fakeRegister{}, authz, zap.NewNop())
	ctx := context.Background()

	resp, _ := h.ChangePassword(ctx, events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost,
		Body: `{"current":"nope","next":"s3cret"}`})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = h.ChangePassword(ctx, events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost,
		Body: `{"current":"admin123","next":""}`})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = h.ChangePassword(ctx, events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost,
		Body: `{"current":"admin123","next":"s3cret"}`})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, authz.changed)
}

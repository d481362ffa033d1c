package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"gitlab.connectwisedev.com/paint-service/pkg/sales"
)

type checkoutRequest struct {
	Items []sales.CartItem `json:"items"`
}

// Checkout serves POST /checkout. Any cashier may sell; no admin password
// is needed
func (h *Handler) Checkout(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	reqID := requestID(req)
	h.logger.Info("received request", zap.String("request_id", reqID), zap.String("path", req.Path))

	if req.HTTPMethod != http.MethodPost {
		return h.fail(reqID, http.StatusMethodNotAllowed, "Method not allowed"), nil
	}
	payload, err := body(req)
	if err != nil {
		return h.fail(reqID, http.StatusBadRequest, "body is not valid base64"), nil
	}
	var in checkoutRequest
	if err := json.Unmarshal(payload, &in); err != nil {
		return h.fail(reqID, http.StatusBadRequest, "body must be {\"items\": [...]}"), nil
	}

	receipt, err := h.register.Checkout(ctx, in.Items)
	if err != nil {
		return h.failErr(reqID, err), nil
	}
	return h.respond(reqID, http.StatusCreated, receipt), nil
}


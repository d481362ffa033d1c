package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
)

type passwordChange struct {
	Current string `json:"current"`
	Next    string `json:"next"`
}

// ChangePassword serves POST /admin/password
func (h *Handler) ChangePassword(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	reqID := requestID(req)
	h.logger.Info("received request", zap.String("request_id", reqID), zap.String("path", req.Path))

	if req.HTTPMethod != http.MethodPost {
		return h.fail(reqID, http.StatusMethodNotAllowed, "Method not allowed"), nil
	}
	payload, err := body(req)
	if err != nil {
		return h.fail(reqID, http.StatusBadRequest, "body is not valid base64"), nil
	}
	var in passwordChange
	if err := json.Unmarshal(payload, &in); err != nil {
		return h.fail(reqID, http.StatusBadRequest, "body must be {\"current\": ..., \"next\": ...}"), nil
	}
	if err := h.auth.Change(ctx, in.Current, in.Next); err != nil {
		return h.failErr(reqID, err), nil
	}
	h.logger.Info("admin password changed", zap.String("request_id", reqID))
	return h.respond(reqID, http.StatusOK, messageBody{Message: "Password updated"}), nil
}

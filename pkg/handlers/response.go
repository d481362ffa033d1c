package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.connectwisedev.com/paint-service/pkg/auth"
	"gitlab.connectwisedev.com/paint-service/pkg/inventory"
	"gitlab.connectwisedev.com/paint-service/pkg/sales"
	"gitlab.connectwisedev.com/paint-service/pkg/store"
)

const (
	headerAdminPassword = "X-Admin-Password"
	headerUser          = "X-User"
	headerRequestID     = "X-Request-Id"
)

// requestID prefers the id API Gateway assigned, then the caller's header
func requestID(req events.APIGatewayProxyRequest) string {
	if req.RequestContext.RequestID != "" {
		return req.RequestContext.RequestID
	}
	if id := header(req, headerRequestID); id != "" {
		return id
	}
	return uuid.NewString()
}

// header looks a header up case-insensitively
func header(req events.APIGatewayProxyRequest, name string) string {
	if v, ok := req.Headers[name]; ok {
		return v
	}
	for k, v := range req.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func body(req events.APIGatewayProxyRequest) ([]byte, error) {
	if req.IsBase64Encoded {
		return base64.StdEncoding.DecodeString(req.Body)
	}
	return []byte(req.Body), nil
}

func (h *Handler) session(ctx context.Context, req events.APIGatewayProxyRequest) auth.Session {
	user := header(req, headerUser)
	if user == "" {
		user = "anonymous"
	}
	return h.auth.Authorize(ctx, user, header(req, headerAdminPassword))
}

func (h *Handler) respond(reqID string, status int, v any) events.APIGatewayProxyResponse {
	headers := map[string]string{
		"Content-Type":                "application/json",
		"Access-Control-Allow-Origin": "*",
		headerRequestID:               reqID,
	}
	payload, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("failed to marshal response", zap.String("request_id", reqID), zap.Error(err))
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    headers,
			Body:       `{"message": "Failed to format response"}`,
		}
	}
	return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers, Body: string(payload)}
}

type messageBody struct {
	Message string `json:"message"`
}

func (h *Handler) fail(reqID string, status int, msg string) events.APIGatewayProxyResponse {
	return h.respond(reqID, status, messageBody{Message: msg})
}

// failErr maps a service error onto a status code. Unexpected errors are
// logged and hidden from the caller
func (h *Handler) failErr(reqID string, err error) events.APIGatewayProxyResponse {
	var verr *inventory.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, sales.ErrEmptyCart),
		errors.Is(err, sales.ErrBadQuantity),
		errors.Is(err, sales.ErrInvalidRange),
		errors.Is(err, auth.ErrNoPassword):
		return h.fail(reqID, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrUnauthorized):
		return h.fail(reqID, http.StatusUnauthorized, err.Error())
	case errors.Is(err, store.ErrNotFound):
		return h.fail(reqID, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, store.ErrDuplicateCode),
		errors.Is(err, sales.ErrNotSellable):
		return h.fail(reqID, http.StatusConflict, err.Error())
	}
	h.logger.Error("request failed", zap.String("request_id", reqID), zap.Error(err))
	return h.fail(reqID, http.StatusInternalServerError, "Internal server error")
}

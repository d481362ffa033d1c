package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"gitlab.connectwisedev.com/paint-service/models"
)

var alertKinds = map[string]models.AlertKind{
	string(models.AlertExpired):      models.AlertExpired,
	string(models.AlertExpiringSoon): models.AlertExpiringSoon,
	string(models.AlertLowStock):     models.AlertLowStock,
	string(models.AlertOutOfStock):   models.AlertOutOfStock,
}

// Alerts serves GET /alerts[?kind=LOW_STOCK] and GET /alerts/log
func (h *Handler) Alerts(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	reqID := requestID(req)
	h.logger.Info("received request", zap.String("request_id", reqID), zap.String("path", req.Path))

	if strings.HasSuffix(req.Path, "/log") {
		lines, err := h.inventory.StatusLog(ctx)
		if err != nil {
			return h.failErr(reqID, err), nil
		}
		return h.respond(reqID, http.StatusOK, lines), nil
	}

	var kind models.AlertKind
	if s := req.QueryStringParameters["kind"]; s != "" {
		k, ok := alertKinds[strings.ToUpper(s)]
		if !ok {
			return h.fail(reqID, http.StatusBadRequest, "unknown alert kind "+s), nil
		}
		kind = k
	}
	alerts, err := h.inventory.Alerts(ctx, kind)
	if err != nil {
		return h.failErr(reqID, err), nil
	}
	return h.respond(reqID, http.StatusOK, alerts), nil
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"gitlab.connectwisedev.com/paint-service/pkg/dates"
	"gitlab.connectwisedev.com/paint-service/pkg/sales"
)

// Sales serves GET /reports/sales?from=&to=&brand= and the admin-only
// DELETE /sales
func (h *Handler) Sales(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	reqID := requestID(req)
	h.logger.Info("received request", zap.String("request_id", reqID),
		zap.String("method", req.HTTPMethod), zap.String("path", req.Path))

	switch req.HTTPMethod {
	case http.MethodGet:
		q := sales.Query{Brand: req.QueryStringParameters["brand"]}
		var ok bool
		if q.From, ok = queryDate(req, "from"); !ok {
			return h.fail(reqID, http.StatusBadRequest, "from must be YYYY-MM-DD"), nil
		}
		if q.To, ok = queryDate(req, "to"); !ok {
			return h.fail(reqID, http.StatusBadRequest, "to must be YYYY-MM-DD"), nil
		}
		rep, err := h.register.Report(ctx, q)
		if err != nil {
			return h.failErr(reqID, err), nil
		}
		return h.respond(reqID, http.StatusOK, rep), nil

	case http.MethodDelete:
		n, err := h.register.ClearAll(ctx, h.session(ctx, req))
		if err != nil {
			return h.failErr(reqID, err), nil
		}
		return h.respond(reqID, http.StatusOK, map[string]int64{"deleted": n}), nil
	}
	return h.fail(reqID, http.StatusMethodNotAllowed, "Method not allowed"), nil
}

// queryDate reads an optional date parameter. ok is false only when the
// parameter is present but unreadable
func queryDate(req events.APIGatewayProxyRequest, name string) (*time.Time, bool) {
	s := req.QueryStringParameters[name]
	if s == "" {
		return nil, true
	}
	d, ok := dates.Parse(s)
	if !ok {
		return nil, false
	}
	return &d, true
}

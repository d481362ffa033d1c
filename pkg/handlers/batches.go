package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"gitlab.connectwisedev.com/paint-service/models"
	"gitlab.connectwisedev.com/paint-service/pkg/dates"
)

// ListBatches serves the read side of /batches:
//
//	GET /batches            every batch with a fresh status
//	GET /batches/available  batches that can be sold today
//	GET /batches/next-code  the code the next batch would get (?date=YYYY-MM-DD)
//	GET /batches/{id}       one batch
func (h *Handler) ListBatches(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	reqID := requestID(req)
	h.logger.Info("received request", zap.String("request_id", reqID),
		zap.String("method", req.HTTPMethod), zap.String("path", req.Path))

	if req.HTTPMethod != http.MethodGet {
		return h.fail(reqID, http.StatusMethodNotAllowed, "Method not allowed"), nil
	}

	switch {
	case strings.HasSuffix(req.Path, "/available"):
		batches, err := h.inventory.AvailableForSale(ctx)
		if err != nil {
			return h.failErr(reqID, err), nil
		}
		return h.respond(reqID, http.StatusOK, batches), nil

	case strings.HasSuffix(req.Path, "/next-code"):
		var date time.Time
		if s := req.QueryStringParameters["date"]; s != "" {
			d, ok := dates.Parse(s)
			if !ok {
				return h.fail(reqID, http.StatusBadRequest, "date must be YYYY-MM-DD"), nil
			}
			date = d
		}
		return h.respond(reqID, http.StatusOK, map[string]string{"code": h.inventory.PreviewCode(ctx, date)}), nil

	case req.PathParameters["id"] != "":
		id, ok := pathID(req)
		if !ok {
			return h.fail(reqID, http.StatusBadRequest, "id must be an integer"), nil
		}
		b, err := h.inventory.Get(ctx, id)
		if err != nil {
			return h.failErr(reqID, err), nil
		}
		return h.respond(reqID, http.StatusOK, b), nil
	}

	batches, err := h.inventory.List(ctx)
	if err != nil {
		return h.failErr(reqID, err), nil
	}
	resp := h.respond(reqID, http.StatusOK, batches)
	resp.Headers["Cache-Control"] = "no-cache"
	return resp, nil
}

// WriteBatches serves the admin side of /batches:
//
//	POST   /batches       JSON batch, or text/csv for a bulk import
//	PUT    /batches/{id}  replace a batch
//	DELETE /batches/{id}  remove a batch
func (h *Handler) WriteBatches(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	reqID := requestID(req)
	h.logger.Info("received request", zap.String("request_id", reqID),
		zap.String("method", req.HTTPMethod), zap.String("path", req.Path))

	sess := h.session(ctx, req)
	if err := sess.Require(); err != nil {
		return h.failErr(reqID, err), nil
	}

	payload, err := body(req)
	if err != nil {
		return h.fail(reqID, http.StatusBadRequest, "body is not valid base64"), nil
	}

	switch req.HTTPMethod {
	case http.MethodPost:
		if strings.HasPrefix(header(req, "Content-Type"), "text/csv") {
			result, err := h.importCSV(ctx, sess, payload)
			if err != nil {
				return h.failErr(reqID, err), nil
			}
			return h.respond(reqID, http.StatusOK, result), nil
		}
		var b models.Batch
		if err := json.Unmarshal(payload, &b); err != nil {
			return h.fail(reqID, http.StatusBadRequest, "body must be a JSON batch: "+err.Error()), nil
		}
		created, err := h.inventory.Add(ctx, sess, b)
		if err != nil {
			return h.failErr(reqID, err), nil
		}
		return h.respond(reqID, http.StatusCreated, created), nil

	case http.MethodPut:
		id, ok := pathID(req)
		if !ok {
			return h.fail(reqID, http.StatusBadRequest, "id must be an integer"), nil
		}
		var b models.Batch
		if err := json.Unmarshal(payload, &b); err != nil {
			return h.fail(reqID, http.StatusBadRequest, "body must be a JSON batch: "+err.Error()), nil
		}
		b.ID = id
		updated, err := h.inventory.Update(ctx, sess, b)
		if err != nil {
			return h.failErr(reqID, err), nil
		}
		return h.respond(reqID, http.StatusOK, updated), nil

	case http.MethodDelete:
		id, ok := pathID(req)
		if !ok {
			return h.fail(reqID, http.StatusBadRequest, "id must be an integer"), nil
		}
		if err := h.inventory.Delete(ctx, sess, id); err != nil {
			return h.failErr(reqID, err), nil
		}
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusNoContent,
			Headers:    map[string]string{headerRequestID: reqID},
		}, nil
	}
	return h.fail(reqID, http.StatusMethodNotAllowed, "Method not allowed"), nil
}

func pathID(req events.APIGatewayProxyRequest) (int64, bool) {
	id, err := strconv.ParseInt(req.PathParameters["id"], 10, 64)
	return id, err == nil && id > 0
}

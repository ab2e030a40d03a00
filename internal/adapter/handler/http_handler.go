package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rl1809/order-service/internal/adapter/metrics"
	"github.com/rl1809/order-service/internal/core/apperr"
	"github.com/rl1809/order-service/internal/core/domain"
	"github.com/rl1809/order-service/internal/core/service"
	"github.com/rl1809/order-service/internal/platform/logger"
)

const maxBodyBytes = 1 << 20

type HTTPHandler struct {
	orderService *service.OrderService
	metrics      *metrics.Metrics
	log          *logger.Logger
}

// NewHTTPHandler accepts a nil metrics, which leaves /metrics unrouted.
func NewHTTPHandler(orderService *service.OrderService, m *metrics.Metrics, log *logger.Logger) *HTTPHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &HTTPHandler{orderService: orderService, metrics: m, log: log.With("component", "http")}
}

func (h *HTTPHandler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("POST /api/orders", h.CreateOrder)
	mux.HandleFunc("POST /api/orders/{orderId}/items", h.AddItem)
	mux.HandleFunc("GET /api/orders/{orderId}", h.GetOrder)
	mux.HandleFunc("DELETE /api/orders/{orderId}", h.DeleteOrder)

	if h.metrics == nil {
		return mux
	}
	mux.Handle("GET /metrics", h.metrics.Handler())
	return h.metrics.Middleware(mux)
}

// CreateOrder honours an Idempotency-Key header; a key in the body wins.
func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}

	id, err := h.orderService.CreateOrder(r.Context(), req.toInput())
	if err != nil {
		h.writeOrderError(w, r, err, id)
		return
	}

	writeJSON(w, http.StatusCreated, OrderIDResponse{OrderID: id.String()})
}

func (h *HTTPHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req ItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.orderService.AddItemToOrder(r.Context(), r.PathValue("orderId"), req.toInput())
	if err != nil {
		h.writeOrderError(w, r, err, id)
		return
	}

	writeJSON(w, http.StatusOK, OrderIDResponse{OrderID: id.String()})
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderService.GetOrder(r.Context(), r.PathValue("orderId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if order == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error:   string(apperr.KindNotFound),
			Message: "order not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

func (h *HTTPHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderId")
	if err := h.orderService.DeleteOrder(r.Context(), orderID, r.URL.Query().Get("reason")); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, OrderIDResponse{OrderID: orderID})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		status := http.StatusBadRequest
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, ErrorResponse{
			Error:   string(apperr.KindValidation),
			Message: "invalid request body",
		})
		return false
	}
	return true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	h.writeOrderError(w, r, err, domain.OrderID{})
}

// writeOrderError reports err and, when the order was already stored, its id
// so the caller can look it up instead of retrying.
func (h *HTTPHandler) writeOrderError(w http.ResponseWriter, r *http.Request, err error, id domain.OrderID) {
	kind := apperr.KindOf(err)
	status := http.StatusInternalServerError
	message := "internal error"

	switch kind {
	case apperr.KindValidation:
		status, message = http.StatusBadRequest, err.Error()
	case apperr.KindNotFound:
		status, message = http.StatusNotFound, err.Error()
	case apperr.KindConflict:
		status, message = http.StatusConflict, err.Error()
		if h.metrics != nil {
			h.metrics.Conflicts.Inc()
		}
	default:
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	resp := ErrorResponse{Error: string(kind), Message: message}
	if !id.IsZero() {
		resp.OrderID = id.String()
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

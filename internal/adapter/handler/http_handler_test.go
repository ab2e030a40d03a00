package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/order-service/internal/adapter/eventbus"
	"github.com/rl1809/order-service/internal/adapter/metrics"
	"github.com/rl1809/order-service/internal/core/domain"
)

func newTestRoutes(t *testing.T) (http.Handler, *eventLog) {
	svc, events := newTestService(t)
	return NewHTTPHandler(svc, metrics.New("http_test"), nil).Routes(), events
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createOrder(t *testing.T, h http.Handler, body string) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/orders", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp OrderIDResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.OrderID
}

func TestHTTP_CreateAddGet(t *testing.T) {
	h, events := newTestRoutes(t)

	id := createOrder(t, h, `{"items":[{"product_id":"SKU-1","quantity":3,"unit_price":"2.00","currency":"EUR"}]}`)

	rec := do(t, h, http.MethodPost, "/api/orders/"+id+"/items", `{"product_id":"SKU-1","quantity":2,"unit_price":2,"currency":"EUR"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/orders/"+id+"/items", `{"product_id":"LISTED","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/orders/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		OrderID string `json:"order_id"`
		Version int64  `json:"version"`
		Items   []struct {
			ProductID string `json:"product_id"`
			Quantity  int    `json:"quantity"`
		} `json:"items"`
		Totals map[string]struct {
			Amount   string `json:"amount"`
			Currency string `json:"currency"`
		} `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, id, got.OrderID)
	assert.Equal(t, int64(3), got.Version)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "SKU-1", got.Items[0].ProductID)
	assert.Equal(t, 5, got.Items[0].Quantity)
	assert.Equal(t, "10.00", got.Totals["EUR"].Amount)
	assert.Equal(t, "7.00", got.Totals["USD"].Amount)

	assert.Equal(t, []string{
		domain.EventOrderCreated, domain.EventItemAdded,
		domain.EventItemAdded,
		domain.EventItemAdded,
	}, events.names)
}

func TestHTTP_ErrorMapping(t *testing.T) {
	h, events := newTestRoutes(t)
	unknown := domain.NewOrderID().String()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		kind   string
	}{
		{"empty order", http.MethodPost, "/api/orders", `{"items":[]}`, http.StatusBadRequest, "validation"},
		{"malformed body", http.MethodPost, "/api/orders", `{"items":`, http.StatusBadRequest, "validation"},
		{"unsupported currency", http.MethodPost, "/api/orders", `{"items":[{"product_id":"A","quantity":1,"unit_price":"1","currency":"JPY"}]}`, http.StatusBadRequest, "validation"},
		{"bad id", http.MethodGet, "/api/orders/not-a-uuid", "", http.StatusBadRequest, "validation"},
		{"unknown order", http.MethodGet, "/api/orders/" + unknown, "", http.StatusNotFound, "not_found"},
		{"add to unknown order", http.MethodPost, "/api/orders/" + unknown + "/items", `{"product_id":"A","quantity":1,"unit_price":"1","currency":"EUR"}`, http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.kind, resp.Error)
			assert.NotEmpty(t, resp.Message)
			assert.Empty(t, resp.OrderID)
		})
	}
	assert.Empty(t, events.names)
}

func TestHTTP_CreateReportsStoredOrderOnPublishFailure(t *testing.T) {
	svc, _ := newTestService(t, func(bus *eventbus.Bus) {
		eventbus.Subscribe(bus, "broken", func(ctx context.Context, e domain.OrderCreated) error {
			return errors.New("broker down")
		})
	})
	h := NewHTTPHandler(svc, nil, nil).Routes()

	rec := do(t, h, http.MethodPost, "/api/orders", `{"items":[{"product_id":"A","quantity":1,"unit_price":"1","currency":"EUR"}]}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "infrastructure", resp.Error)
	require.NotEmpty(t, resp.OrderID)

	rec = do(t, h, http.MethodGet, "/api/orders/"+resp.OrderID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTP_Delete(t *testing.T) {
	h, events := newTestRoutes(t)
	id := createOrder(t, h, `{"items":[{"product_id":"A","quantity":1,"unit_price":"1","currency":"EUR"}]}`)

	rec := do(t, h, http.MethodDelete, "/api/orders/"+id+"?reason=duplicate", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/orders/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, domain.EventOrderDeleted, events.names[len(events.names)-1])
}

func TestHTTP_HealthAndMetrics(t *testing.T) {
	h, _ := newTestRoutes(t)

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `orders_http_test_requests_total{handler="GET /health",status="200"} 1`)

	rec = do(t, h, http.MethodPut, "/api/orders", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

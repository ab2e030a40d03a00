package handler

import (
	"github.com/shopspring/decimal"

	"github.com/rl1809/order-service/internal/core/domain"
	"github.com/rl1809/order-service/internal/core/service"
)

// Request and response bodies shared by the HTTP and gRPC transports.

type ItemRequest struct {
	ProductID string           `json:"product_id"`
	Quantity  int              `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Currency  string           `json:"currency,omitempty"`
}

type CreateOrderRequest struct {
	IdempotencyKey string        `json:"idempotency_key,omitempty"`
	Items          []ItemRequest `json:"items"`
}

type AddItemRequest struct {
	OrderID string      `json:"order_id"`
	Item    ItemRequest `json:"item"`
}

type GetOrderRequest struct {
	OrderID string `json:"order_id"`
}

type DeleteOrderRequest struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason,omitempty"`
}

type OrderIDResponse struct {
	OrderID string `json:"order_id"`
}

type ItemResponse struct {
	ProductID string       `json:"product_id"`
	Quantity  int          `json:"quantity"`
	UnitPrice domain.Money `json:"unit_price"`
	LineTotal domain.Money `json:"line_total"`
}

type OrderResponse struct {
	OrderID string                  `json:"order_id"`
	Version int64                   `json:"version"`
	Items   []ItemResponse          `json:"items"`
	Totals  map[string]domain.Money `json:"totals"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	OrderID string `json:"order_id,omitempty"`
}

func (r ItemRequest) toInput() service.ItemInput {
	return service.ItemInput{
		ProductID: r.ProductID,
		Quantity:  r.Quantity,
		UnitPrice: r.UnitPrice,
		Currency:  r.Currency,
	}
}

func (r CreateOrderRequest) toInput() service.CreateOrderRequest {
	items := make([]service.ItemInput, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, item.toInput())
	}
	return service.CreateOrderRequest{IdempotencyKey: r.IdempotencyKey, Items: items}
}

func newOrderResponse(order *domain.Order) OrderResponse {
	resp := OrderResponse{
		OrderID: order.ID().String(),
		Version: order.Version(),
		Items:   make([]ItemResponse, 0, order.Len()),
		Totals:  make(map[string]domain.Money),
	}
	for _, item := range order.Items() {
		resp.Items = append(resp.Items, ItemResponse{
			ProductID: item.ProductID().String(),
			Quantity:  item.Quantity().Int(),
			UnitPrice: item.UnitPrice(),
			LineTotal: item.Total(),
		})
	}
	for cur, total := range order.Totals() {
		resp.Totals[cur.Code()] = total
	}
	return resp
}

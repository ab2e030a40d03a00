package handler

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/order-service/internal/adapter/metrics"
	"github.com/rl1809/order-service/internal/core/apperr"
	"github.com/rl1809/order-service/internal/core/service"
	"github.com/rl1809/order-service/internal/platform/logger"
)

type GRPCHandler struct {
	orderService *service.OrderService
	log          *logger.Logger
}

func NewGRPCHandler(orderService *service.OrderService, log *logger.Logger) *GRPCHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &GRPCHandler{orderService: orderService, log: log.With("component", "grpc")}
}

func (h *GRPCHandler) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderIDResponse, error) {
	id, err := h.orderService.CreateOrder(ctx, req.toInput())
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &OrderIDResponse{OrderID: id.String()}, nil
}

func (h *GRPCHandler) AddItem(ctx context.Context, req *AddItemRequest) (*OrderIDResponse, error) {
	id, err := h.orderService.AddItemToOrder(ctx, req.OrderID, req.Item.toInput())
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &OrderIDResponse{OrderID: id.String()}, nil
}

func (h *GRPCHandler) GetOrder(ctx context.Context, req *GetOrderRequest) (*OrderResponse, error) {
	order, err := h.orderService.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, h.toStatus(err)
	}
	if order == nil {
		return nil, status.Errorf(codes.NotFound, "order %s not found", req.OrderID)
	}
	resp := newOrderResponse(order)
	return &resp, nil
}

func (h *GRPCHandler) DeleteOrder(ctx context.Context, req *DeleteOrderRequest) (*OrderIDResponse, error) {
	if err := h.orderService.DeleteOrder(ctx, req.OrderID, req.Reason); err != nil {
		return nil, h.toStatus(err)
	}
	return &OrderIDResponse{OrderID: req.OrderID}, nil
}

func (h *GRPCHandler) toStatus(err error) error {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return status.Error(codes.InvalidArgument, err.Error())
	case apperr.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case apperr.KindConflict:
		return status.Error(codes.Aborted, err.Error())
	default:
		h.log.Error("rpc failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}

// MetricsInterceptor records each unary call under its full method name.
func MetricsInterceptor(m *metrics.Metrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		code := status.Code(err)
		if code == codes.Aborted {
			m.Conflicts.Inc()
		}
		m.Observe(info.FullMethod, code.String(), start)
		return resp, err
	}
}

package grpcsvc

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/service/lifecycle"
)

// ServiceName — полное имя gRPC-сервиса.
const ServiceName = "shop.v1.ShopService"

const (
	methodCreateOrder             = "CreateOrder"
	methodUpdateOrderStatus       = "UpdateOrderStatus"
	methodDeleteOrder             = "DeleteOrder"
	methodPreviewOrderTotal       = "PreviewOrderTotal"
	methodGetApplicablePromotions = "GetApplicablePromotions"
	methodGetOrder                = "GetOrder"
	methodListOrders              = "ListOrders"
)

// ShopServiceServer — серверная часть API магазина.
type ShopServiceServer interface {
	CreateOrder(context.Context, *CreateOrderRequest) (*CreateOrderResponse, error)
	UpdateOrderStatus(context.Context, *UpdateOrderStatusRequest) (*UpdateOrderStatusResponse, error)
	DeleteOrder(context.Context, *DeleteOrderRequest) (*DeleteOrderResponse, error)
	PreviewOrderTotal(context.Context, *PreviewOrderTotalRequest) (*PreviewOrderTotalResponse, error)
	GetApplicablePromotions(context.Context, *GetApplicablePromotionsRequest) (*GetApplicablePromotionsResponse, error)
	GetOrder(context.Context, *GetOrderRequest) (*GetOrderResponse, error)
	ListOrders(context.Context, *ListOrdersRequest) (*ListOrdersResponse, error)
}

// OrderManager — операции жизненного цикла, которые использует сервис.
type OrderManager interface {
	CreateOrder(ctx context.Context, draft domain.OrderDraft) (lifecycle.CreateResult, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error)
	DeleteOrder(ctx context.Context, orderID string) error
	PreviewOrderTotal(ctx context.Context, lines []domain.DraftLine, code string) (lifecycle.Preview, error)
	GetApplicablePromotions(ctx context.Context, productID, categoryID string) ([]domain.Promotion, error)
	GetOrder(ctx context.Context, orderID string) (lifecycle.OrderDetails, error)
	ListOrders(ctx context.Context, q lifecycle.ListQuery) ([]domain.Order, error)
}

// ShopService реализует gRPC API поверх lifecycle.Manager.
type ShopService struct {
	manager OrderManager
	logger  *log.Entry
}

// NewShopService конструирует сервис.
func NewShopService(manager OrderManager, logger *log.Entry) *ShopService {
	if logger == nil {
		logger = log.WithField("component", "shop-service")
	}
	return &ShopService{manager: manager, logger: logger}
}

// CreateOrder оформляет заказ.
func (s *ShopService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	res, err := s.manager.CreateOrder(ctx, domain.OrderDraft{
		CustomerID:    req.CustomerID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Lines:         toDraftLines(req.Lines),
		PromotionCode: req.PromotionCode,
	})
	if err != nil {
		return nil, s.fail(methodCreateOrder, "", err)
	}
	return toCreateResponse(res), nil
}

// UpdateOrderStatus переводит заказ в новый статус.
func (s *ShopService) UpdateOrderStatus(ctx context.Context, req *UpdateOrderStatusRequest) (*UpdateOrderStatusResponse, error) {
	if req == nil || req.OrderID == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}

	next := domain.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	order, err := s.manager.UpdateStatus(ctx, req.OrderID, next)
	if err != nil {
		return nil, s.fail(methodUpdateOrderStatus, req.OrderID, err)
	}
	return &UpdateOrderStatusResponse{Order: toOrder(order)}, nil
}

// DeleteOrder удаляет заказ.
func (s *ShopService) DeleteOrder(ctx context.Context, req *DeleteOrderRequest) (*DeleteOrderResponse, error) {
	if req == nil || req.OrderID == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}
	if err := s.manager.DeleteOrder(ctx, req.OrderID); err != nil {
		return nil, s.fail(methodDeleteOrder, req.OrderID, err)
	}
	return &DeleteOrderResponse{OrderID: req.OrderID}, nil
}

// PreviewOrderTotal считает суммы без оформления заказа.
func (s *ShopService) PreviewOrderTotal(ctx context.Context, req *PreviewOrderTotalRequest) (*PreviewOrderTotalResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	preview, err := s.manager.PreviewOrderTotal(ctx, toDraftLines(req.Lines), req.PromotionCode)
	if err != nil {
		return nil, s.fail(methodPreviewOrderTotal, "", err)
	}
	return &PreviewOrderTotalResponse{
		SubtotalMinor:    preview.SubtotalMinor,
		DiscountMinor:    preview.DiscountMinor,
		TotalMinor:       preview.TotalMinor,
		PromotionCode:    preview.Code,
		PromotionApplied: preview.PromotionApplied,
		PromotionReason:  string(preview.Reason),
	}, nil
}

// GetApplicablePromotions возвращает действующие акции для товара или категории.
func (s *ShopService) GetApplicablePromotions(ctx context.Context, req *GetApplicablePromotionsRequest) (*GetApplicablePromotionsResponse, error) {
	if req == nil {
		req = &GetApplicablePromotionsRequest{}
	}

	promos, err := s.manager.GetApplicablePromotions(ctx, req.ProductID, req.CategoryID)
	if err != nil {
		return nil, s.fail(methodGetApplicablePromotions, "", err)
	}
	return &GetApplicablePromotionsResponse{Promotions: toPromotions(promos)}, nil
}

// GetOrder возвращает заказ и его timeline.
func (s *ShopService) GetOrder(ctx context.Context, req *GetOrderRequest) (*GetOrderResponse, error) {
	if req == nil || req.OrderID == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}

	details, err := s.manager.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, s.fail(methodGetOrder, req.OrderID, err)
	}
	return &GetOrderResponse{
		Order:    toOrder(details.Order),
		Timeline: toTimeline(details.Timeline),
	}, nil
}

// ListOrders возвращает заказы по фильтру.
func (s *ShopService) ListOrders(ctx context.Context, req *ListOrdersRequest) (*ListOrdersResponse, error) {
	if req == nil {
		req = &ListOrdersRequest{}
	}

	sortKey, err := domain.ParseOrderSort(req.Sort)
	if err != nil {
		return nil, toStatus(err)
	}
	orders, err := s.manager.ListOrders(ctx, lifecycle.ListQuery{
		Filter: domain.OrderFilter{
			CustomerID: req.CustomerID,
			Status:     domain.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		},
		Sort:  sortKey,
		Limit: req.Limit,
	})
	if err != nil {
		return nil, s.fail(methodListOrders, "", err)
	}
	return &ListOrdersResponse{Orders: toOrders(orders)}, nil
}

func (s *ShopService) fail(method, orderID string, err error) error {
	st := toStatus(err)
	entry := s.logger.WithError(err).WithFields(log.Fields{
		"method": method,
		"code":   status.Code(st).String(),
	})
	if orderID != "" {
		entry = entry.WithField("order_id", orderID)
	}
	if status.Code(st) == codes.Internal || status.Code(st) == codes.Unavailable {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}
	return st
}

// unary строит обработчик метода в форме, которую ожидает grpc.ServiceDesc.
func unary[Req any, Resp any](method string, call func(ShopServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ShopServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ShopServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ShopServiceDesc описывает сервис без сгенерированных protobuf-стабов; сообщения кодируются JSON.
var ShopServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ShopServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(methodCreateOrder, ShopServiceServer.CreateOrder),
		unary(methodUpdateOrderStatus, ShopServiceServer.UpdateOrderStatus),
		unary(methodDeleteOrder, ShopServiceServer.DeleteOrder),
		unary(methodPreviewOrderTotal, ShopServiceServer.PreviewOrderTotal),
		unary(methodGetApplicablePromotions, ShopServiceServer.GetApplicablePromotions),
		unary(methodGetOrder, ShopServiceServer.GetOrder),
		unary(methodListOrders, ShopServiceServer.ListOrders),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shop/v1/shop.json",
}

// RegisterShopServiceServer регистрирует реализацию на gRPC-сервере.
func RegisterShopServiceServer(registrar grpc.ServiceRegistrar, srv ShopServiceServer) {
	registrar.RegisterService(&ShopServiceDesc, srv)
}

// DefaultRequestTimeout ограничивает обработку одного запроса, если клиент не задал deadline.
const DefaultRequestTimeout = 10 * time.Second

// TimeoutInterceptor добавляет deadline к запросам без него.
func TimeoutInterceptor(timeout time.Duration) grpc.UnaryServerInterceptor {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := ctx.Deadline(); ok {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return handler(ctx, req)
	}
}

var (
	_ ShopServiceServer = (*ShopService)(nil)
	_ OrderManager      = (*lifecycle.Manager)(nil)
)

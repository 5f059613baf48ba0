package grpcsvc

import (
	"context"

	"google.golang.org/grpc"
)

// Client — клиент ShopService поверх произвольного соединения.
// Все вызовы идут с content-subtype json.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient создаёт клиента поверх соединения.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func invoke[Resp any](ctx context.Context, c *Client, method string, req any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateOrder(ctx context.Context, req *CreateOrderRequest, opts ...grpc.CallOption) (*CreateOrderResponse, error) {
	return invoke[CreateOrderResponse](ctx, c, methodCreateOrder, req, opts)
}

func (c *Client) UpdateOrderStatus(ctx context.Context, req *UpdateOrderStatusRequest, opts ...grpc.CallOption) (*UpdateOrderStatusResponse, error) {
	return invoke[UpdateOrderStatusResponse](ctx, c, methodUpdateOrderStatus, req, opts)
}

func (c *Client) DeleteOrder(ctx context.Context, req *DeleteOrderRequest, opts ...grpc.CallOption) (*DeleteOrderResponse, error) {
	return invoke[DeleteOrderResponse](ctx, c, methodDeleteOrder, req, opts)
}

func (c *Client) PreviewOrderTotal(ctx context.Context, req *PreviewOrderTotalRequest, opts ...grpc.CallOption) (*PreviewOrderTotalResponse, error) {
	return invoke[PreviewOrderTotalResponse](ctx, c, methodPreviewOrderTotal, req, opts)
}

func (c *Client) GetApplicablePromotions(ctx context.Context, req *GetApplicablePromotionsRequest, opts ...grpc.CallOption) (*GetApplicablePromotionsResponse, error) {
	return invoke[GetApplicablePromotionsResponse](ctx, c, methodGetApplicablePromotions, req, opts)
}

func (c *Client) GetOrder(ctx context.Context, req *GetOrderRequest, opts ...grpc.CallOption) (*GetOrderResponse, error) {
	return invoke[GetOrderResponse](ctx, c, methodGetOrder, req, opts)
}

func (c *Client) ListOrders(ctx context.Context, req *ListOrdersRequest, opts ...grpc.CallOption) (*ListOrdersResponse, error) {
	return invoke[ListOrdersResponse](ctx, c, methodListOrders, req, opts)
}

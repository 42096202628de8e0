package alphasecapi

import (
	"context"
	"net/url"
	"strconv"
)

// OrderService covers the order query and submission endpoints under
// /api/v1/order. Submission endpoints take a raw signed transaction and
// return its hash, which doubles as the order id.
type OrderService struct {
	client *RestClient
}

func ordersQueryValues(query OrdersQuery) url.Values {
	params := url.Values{}
	params.Set("address", query.Address)
	if query.Market != "" {
		params.Set("marketId", query.Market)
	}
	if query.Limit != 0 {
		params.Set("limit", strconv.FormatUint(uint64(query.Limit), 10))
	}
	if query.FromMsec != 0 {
		params.Set("fromMsec", strconv.FormatInt(query.FromMsec, 10))
	}
	if query.EndMsec != 0 {
		params.Set("endMsec", strconv.FormatInt(query.EndMsec, 10))
	}

	return params
}

// OpenOrders returns the resting orders of an address. The Market field of
// the query must already be a market id.
func (s *OrderService) OpenOrders(ctx context.Context, query OrdersQuery) ([]Order, error) {
	var orders []Order
	if err := s.client.get(ctx, "/api/v1/order/open", ordersQueryValues(query), &orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// ClosedOrders returns filled and canceled orders of an address.
func (s *OrderService) ClosedOrders(ctx context.Context, query OrdersQuery) ([]Order, error) {
	var orders []Order
	if err := s.client.get(ctx, "/api/v1/order/", ordersQueryValues(query), &orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// Order returns a single order by its id, nil when the server does not know it.
func (s *OrderService) Order(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	err := s.client.get(ctx, "/api/v1/order/"+orderID, nil, &order)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.Code == 404 {
			return nil, nil
		}

		return nil, err
	}

	return &order, nil
}

func (s *OrderService) txBody(signedTx string) map[string]interface{} {
	return map[string]interface{}{"tx": signedTx}
}

func (s *OrderService) SubmitOrder(ctx context.Context, signedTx string) (string, error) {
	return s.client.submitTx(ctx, "/api/v1/order", s.txBody(signedTx))
}

func (s *OrderService) SubmitCancel(ctx context.Context, signedTx string) (string, error) {
	return s.client.submitTx(ctx, "/api/v1/wallet/order/cancel", s.txBody(signedTx))
}

func (s *OrderService) SubmitCancelAll(ctx context.Context, signedTx string) (string, error) {
	return s.client.submitTx(ctx, "/api/v1/order/cancel/all", s.txBody(signedTx))
}

func (s *OrderService) SubmitModify(ctx context.Context, signedTx string) (string, error) {
	return s.client.submitTx(ctx, "/api/v1/wallet/order/modify", s.txBody(signedTx))
}

func (s *OrderService) SubmitStopOrder(ctx context.Context, signedTx string) (string, error) {
	return s.client.submitTx(ctx, "/api/v1/wallet/order/stop", s.txBody(signedTx))
}

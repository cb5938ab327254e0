package storeapi

import "context"

// MyOrders lists the authenticated customer's orders.
func (client *Client) MyOrders(ctx context.Context) ([]Order, error) {
	var orders []Order
	err := client.get(ctx, "/sales/orders/my", nil, &orders)
	return orders, err
}

// Order fetches one order.
func (client *Client) Order(ctx context.Context, orderID string) (Order, error) {
	var order Order
	err := client.get(ctx, "/sales/orders/"+segment(orderID), nil, &order)
	return order, err
}

// OrderTimeline lists an order's status changes.
func (client *Client) OrderTimeline(ctx context.Context, orderID string) ([]TimelineEvent, error) {
	var events []TimelineEvent
	err := client.get(ctx, "/sales/orders/"+segment(orderID)+"/timeline", nil, &events)
	return events, err
}

package tool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	contractx "github.com/tanpawarit/cakeshop-assistant/agent/contract"
	inventoryx "github.com/tanpawarit/cakeshop-assistant/shop/inventory"
	storex "github.com/tanpawarit/cakeshop-assistant/shop/store"
)

type placeOrderArgs struct {
	Items      map[string]int `json:"items"`
	CustomerID string         `json:"customer_id"`
}

// OrderOutput is the payload of a successfully placed order.
type OrderOutput struct {
	OrderID string `json:"order_id"`
	Message string `json:"message"`
}

// placeOrder validates every requested line against the inventory,
// reserving stock and inserting the order only when all lines pass. A
// failed insert releases the reservation, so either one order row exists
// and stock is decremented, or neither happened.
func (g *Gateway) placeOrder(ctx context.Context, req contractx.ToolRequest) (contractx.ToolResult, error) {
	var args placeOrderArgs
	if err := decodeArgs(req.Args, &args); err != nil {
		return failure(req, err.Error()), nil
	}
	if strings.TrimSpace(args.CustomerID) == "" {
		return failure(req, "customer_id is required to place an order"), nil
	}
	if len(args.Items) == 0 {
		return failure(req, "order must contain at least one item"), nil
	}

	if err := g.inventory.Reserve(args.Items); err != nil {
		var reservationErr *inventoryx.ReservationError
		if errors.As(err, &reservationErr) {
			return failure(req, reservationErr.Error()), nil
		}
		return contractx.ToolResult{}, fmt.Errorf("%w: reserve inventory: %v", contractx.ErrStorage, err)
	}

	orderID, err := g.store.CreateOrder(ctx, orderLines(args.Items), args.CustomerID)
	if err != nil {
		g.inventory.Release(args.Items)
		return contractx.ToolResult{}, fmt.Errorf("%w: create order: %v", contractx.ErrStorage, err)
	}

	return success(req, OrderOutput{
		OrderID: orderID,
		Message: fmt.Sprintf("Order with id %s has been placed successfully", orderID),
	}), nil
}

// OrdersOutput is the payload of an order-history lookup. An empty order
// list is an informational result, never an error.
type OrdersOutput struct {
	Orders  []storex.Order `json:"orders"`
	Message string         `json:"message,omitempty"`
}

func (g *Gateway) retrieveCustomerOrders(ctx context.Context, req contractx.ToolRequest) (contractx.ToolResult, error) {
	var args struct {
		CustomerID string `json:"customer_id"`
	}
	if err := decodeArgs(req.Args, &args); err != nil {
		return failure(req, err.Error()), nil
	}
	if strings.TrimSpace(args.CustomerID) == "" {
		return failure(req, "customer_id is required"), nil
	}

	orders, err := g.store.ListOrdersFor(ctx, args.CustomerID)
	if err != nil {
		return contractx.ToolResult{}, fmt.Errorf("%w: list orders: %v", contractx.ErrStorage, err)
	}

	out := OrdersOutput{Orders: orders}
	if len(orders) == 0 {
		out.Orders = []storex.Order{}
		out.Message = fmt.Sprintf("No orders associated with this customer id: %s", args.CustomerID)
	}
	return success(req, out), nil
}

func orderLines(items map[string]int) []storex.OrderLine {
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	lines := make([]storex.OrderLine, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, storex.OrderLine{ItemID: id, Quantity: items[id]})
	}
	return lines
}

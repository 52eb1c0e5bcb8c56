package tool

import (
	"context"
	"errors"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/cakeshop-assistant/agent/contract"
	storex "github.com/tanpawarit/cakeshop-assistant/shop/store"
)

func placeOrderRequest(items map[string]any) contractx.ToolRequest {
	return contractx.ToolRequest{
		Tool:   string(contractx.ToolPlaceOrder),
		CallID: "call-1",
		Args:   map[string]any{"items": items, "customer_id": "CUST001"},
	}
}

func TestPlaceOrderDecrementsStockAndStoresOneOrder(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	inv := testInventory(t)
	g, err := New(store, inv, &fakeIndex{}, &fakeIndex{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	results, err := g.Execute(context.Background(), []contractx.ToolRequest{
		placeOrderRequest(map[string]any{"C001": 2}),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	out, ok := results[0].Result.(OrderOutput)
	if !ok {
		t.Fatalf("result type = %T", results[0].Result)
	}
	if out.OrderID != "ORD001" {
		t.Fatalf("order id = %s, want ORD001", out.OrderID)
	}
	if out.Message != "Order with id ORD001 has been placed successfully" {
		t.Fatalf("message = %q", out.Message)
	}

	if len(store.orders) != 1 {
		t.Fatalf("orders stored = %d, want 1", len(store.orders))
	}
	order := store.orders[0]
	if order.Status != storex.StatusWaitingForPayment {
		t.Fatalf("status = %q, want %q", order.Status, storex.StatusWaitingForPayment)
	}
	if len(order.Lines) != 1 || order.Lines[0].ItemID != "C001" || order.Lines[0].Quantity != 2 {
		t.Fatalf("unexpected lines: %+v", order.Lines)
	}

	item, _ := inv.Get("C001")
	if item.Quantity != 3 {
		t.Fatalf("remaining stock = %d, want 3", item.Quantity)
	}
}

func TestPlaceOrderAllOrNothing(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	inv := testInventory(t)
	g, err := New(store, inv, &fakeIndex{}, &fakeIndex{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	results, err := g.Execute(context.Background(), []contractx.ToolRequest{
		placeOrderRequest(map[string]any{"C001": 1000, "C003": 1}),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if !strings.Contains(results[0].Error, "Victoria Sponge") {
		t.Fatalf("failure does not name the shortfall item: %q", results[0].Error)
	}
	if len(store.orders) != 0 {
		t.Fatalf("orders stored = %d, want 0", len(store.orders))
	}
	// The satisfiable line must not have been taken either.
	item, _ := inv.Get("C003")
	if item.Quantity != 2 {
		t.Fatalf("C003 stock = %d, want 2", item.Quantity)
	}
}

func TestPlaceOrderReleasesStockWhenInsertFails(t *testing.T) {
	t.Parallel()

	store := &fakeStore{createOrderErr: errors.New("connection refused")}
	inv := testInventory(t)
	g, err := New(store, inv, &fakeIndex{}, &fakeIndex{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = g.Execute(context.Background(), []contractx.ToolRequest{
		placeOrderRequest(map[string]any{"C001": 2}),
	})
	if !errors.Is(err, contractx.ErrStorage) {
		t.Fatalf("error = %v, want ErrStorage", err)
	}

	item, _ := inv.Get("C001")
	if item.Quantity != 5 {
		t.Fatalf("stock after failed insert = %d, want 5", item.Quantity)
	}
}

func TestSequentialCreationsAllocateDistinctIDs(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	inv := testInventory(t)
	g, err := New(store, inv, &fakeIndex{}, &fakeIndex{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	second := registrationArgs()
	second["first_name"] = "Bob"
	second["email"] = "bob@example.com"

	results, err := g.Execute(context.Background(), []contractx.ToolRequest{
		{Tool: string(contractx.ToolCreateNewCustomer), CallID: "call-1", Args: registrationArgs()},
		{Tool: string(contractx.ToolCreateNewCustomer), CallID: "call-2", Args: second},
		placeOrderRequest(map[string]any{"C001": 1}),
		placeOrderRequest(map[string]any{"C003": 1}),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	wantCustomers := []string{"CUST001", "CUST002"}
	for i, want := range wantCustomers {
		out, ok := results[i].Result.(RegistrationOutput)
		if !ok {
			t.Fatalf("results[%d].Result type = %T", i, results[i].Result)
		}
		if out.CustomerID != want {
			t.Fatalf("customer id #%d = %s, want %s", i+1, out.CustomerID, want)
		}
	}

	wantOrders := []string{"ORD001", "ORD002"}
	for i, want := range wantOrders {
		out, ok := results[i+2].Result.(OrderOutput)
		if !ok {
			t.Fatalf("results[%d].Result type = %T", i+2, results[i+2].Result)
		}
		if out.OrderID != want {
			t.Fatalf("order id #%d = %s, want %s", i+1, out.OrderID, want)
		}
	}
}

func TestRetrieveCustomerOrdersEmptyIsInformational(t *testing.T) {
	t.Parallel()

	g := testGateway(t, &fakeStore{})
	results, err := g.Execute(context.Background(), []contractx.ToolRequest{{
		Tool:   string(contractx.ToolRetrieveCustomerOrders),
		CallID: "call-1",
		Args:   map[string]any{"customer_id": "CUST042"},
	}})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	out, ok := results[0].Result.(OrdersOutput)
	if !ok {
		t.Fatalf("result type = %T", results[0].Result)
	}
	if len(out.Orders) != 0 {
		t.Fatalf("orders = %d, want 0", len(out.Orders))
	}
	if out.Message != "No orders associated with this customer id: CUST042" {
		t.Fatalf("message = %q", out.Message)
	}
}

func TestRetrieveCustomerOrdersReturnsOnlyTheirs(t *testing.T) {
	t.Parallel()

	store := &fakeStore{orders: []storex.Order{
		{OrderID: "ORD001", CustomerID: "CUST001", Status: storex.StatusProcessing},
		{OrderID: "ORD002", CustomerID: "CUST002", Status: storex.StatusShipped},
	}}
	g := testGateway(t, store)

	results, err := g.Execute(context.Background(), []contractx.ToolRequest{{
		Tool:   string(contractx.ToolRetrieveCustomerOrders),
		CallID: "call-1",
		Args:   map[string]any{"customer_id": "CUST001"},
	}})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	out := results[0].Result.(OrdersOutput)
	if len(out.Orders) != 1 || out.Orders[0].OrderID != "ORD001" {
		t.Fatalf("unexpected orders: %+v", out.Orders)
	}
	if out.Message != "" {
		t.Fatalf("message = %q, want empty", out.Message)
	}
}

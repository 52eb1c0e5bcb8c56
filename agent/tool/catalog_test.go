package tool

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	contractx "github.com/tanpawarit/cakeshop-assistant/agent/contract"
	inventoryx "github.com/tanpawarit/cakeshop-assistant/shop/inventory"
	storex "github.com/tanpawarit/cakeshop-assistant/shop/store"
	vectorx "github.com/tanpawarit/cakeshop-assistant/shop/vector"
)

type fakeStore struct {
	customers []storex.Customer
	orders    []storex.Order
	attempts  []storex.DataProtectionAttempt

	createCustomerErr error
	createOrderErr    error
	logAttemptErr     error
}

func (f *fakeStore) CreateCustomer(ctx context.Context, c storex.NewCustomer) (string, error) {
	if f.createCustomerErr != nil {
		return "", f.createCustomerErr
	}
	id := fmt.Sprintf("CUST%03d", len(f.customers)+1)
	f.customers = append(f.customers, storex.Customer{
		CustomerID:       id,
		Name:             strings.TrimSpace(c.FirstName + " " + c.Surname),
		Postcode:         c.Postcode,
		DOB:              fmt.Sprintf("%04d-%02d-%02d", c.YearOfBirth, c.MonthOfBirth, c.DayOfBirth),
		FirstLineAddress: c.FirstLineAddress,
		PhoneNumber:      c.PhoneNumber,
		Email:            c.Email,
	})
	return id, nil
}

func (f *fakeStore) FindCustomers(ctx context.Context, name, postcode string, year, month, day int) ([]storex.Customer, error) {
	dob := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	var out []storex.Customer
	for _, c := range f.customers {
		if strings.EqualFold(c.Name, name) && strings.EqualFold(c.Postcode, postcode) && c.DOB == dob {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) ListCustomers(ctx context.Context) ([]storex.Customer, error) {
	return append([]storex.Customer(nil), f.customers...), nil
}

func (f *fakeStore) CreateOrder(ctx context.Context, lines []storex.OrderLine, customerID string) (string, error) {
	if f.createOrderErr != nil {
		return "", f.createOrderErr
	}
	id := fmt.Sprintf("ORD%03d", len(f.orders)+1)
	f.orders = append(f.orders, storex.Order{
		OrderID:    id,
		CustomerID: customerID,
		Status:     storex.StatusWaitingForPayment,
		Lines:      append([]storex.OrderLine(nil), lines...),
	})
	return id, nil
}

func (f *fakeStore) ListOrdersFor(ctx context.Context, customerID string) ([]storex.Order, error) {
	out := make([]storex.Order, 0)
	for _, o := range f.orders {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeStore) ListOrders(ctx context.Context) ([]storex.Order, error) {
	return append([]storex.Order(nil), f.orders...), nil
}

func (f *fakeStore) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	for i := range f.orders {
		if f.orders[i].OrderID == orderID {
			f.orders[i].Status = status
			return nil
		}
	}
	return storex.ErrOrderNotFound
}

func (f *fakeStore) LogDataProtectionAttempt(ctx context.Context, a storex.DataProtectionAttempt) error {
	if f.logAttemptErr != nil {
		return f.logAttemptErr
	}
	f.attempts = append(f.attempts, a)
	return nil
}

func (f *fakeStore) ListDataProtectionAttempts(ctx context.Context) ([]storex.DataProtectionAttempt, error) {
	out := make([]storex.DataProtectionAttempt, 0, len(f.attempts))
	for i := len(f.attempts) - 1; i >= 0; i-- {
		out = append(out, f.attempts[i])
	}
	return out, nil
}

type fakeIndex struct {
	hits    []vectorx.Hit
	err     error
	queries []string
}

func (f *fakeIndex) Query(ctx context.Context, text string, topK int) ([]vectorx.Hit, error) {
	f.queries = append(f.queries, text)
	if f.err != nil {
		return nil, f.err
	}
	return append([]vectorx.Hit(nil), f.hits...), nil
}

func testInventory(t *testing.T) *inventoryx.Service {
	t.Helper()

	s, err := inventoryx.New([]inventoryx.Item{
		{ID: "C001", Name: "Victoria Sponge", Type: "sponge", Price: decimal.NewFromFloat(18.5), Quantity: 5},
		{ID: "C003", Name: "Chocolate Fudge Cake", Type: "chocolate", Price: decimal.NewFromFloat(24), Quantity: 2},
	})
	if err != nil {
		t.Fatalf("inventory.New() error = %v", err)
	}
	return s
}

func testGateway(t *testing.T, store *fakeStore) *Gateway {
	t.Helper()

	g, err := New(store, testInventory(t), &fakeIndex{}, &fakeIndex{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return g
}

func TestInfosCoversWholeCatalog(t *testing.T) {
	t.Parallel()

	infos := Infos()
	kinds := contractx.ToolKinds()
	if len(infos) != len(kinds) {
		t.Fatalf("infos = %d, want %d", len(infos), len(kinds))
	}
	for i, info := range infos {
		if info.Name != string(kinds[i]) {
			t.Fatalf("infos[%d].Name = %s, want %s", i, info.Name, kinds[i])
		}
	}
}

func TestExecuteUnknownToolIsRelayedNotFatal(t *testing.T) {
	t.Parallel()

	g := testGateway(t, &fakeStore{})
	results, err := g.Execute(context.Background(), []contractx.ToolRequest{
		{Tool: "bake_me_a_cake", CallID: "call-1"},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if results[0].Error == "" || results[0].CallID != "call-1" {
		t.Fatalf("unexpected result: %+v", results[0])
	}
}

func TestExecuteReturnsOneResultPerRequestInOrder(t *testing.T) {
	t.Parallel()

	faqs := &fakeIndex{hits: []vectorx.Hit{{Content: "q", Metadata: map[string]any{"question": "q", "answer": "a"}, Score: 0.9}}}
	g, err := New(&fakeStore{}, testInventory(t), faqs, &fakeIndex{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	results, err := g.Execute(context.Background(), []contractx.ToolRequest{
		{Tool: string(contractx.ToolQueryKnowledgeBase), CallID: "call-1", Args: map[string]any{"query": "delivery"}},
		{Tool: string(contractx.ToolRetrieveCustomerOrders), CallID: "call-2", Args: map[string]any{"customer_id": "CUST001"}},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].CallID != "call-1" || results[1].CallID != "call-2" {
		t.Fatalf("results out of order: %+v", results)
	}
}

func TestQueryKnowledgeBaseEmptyQuery(t *testing.T) {
	t.Parallel()

	g := testGateway(t, &fakeStore{})
	results, err := g.Execute(context.Background(), []contractx.ToolRequest{
		{Tool: string(contractx.ToolQueryKnowledgeBase), CallID: "call-1", Args: map[string]any{"query": "  "}},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if results[0].Error == "" {
		t.Fatal("expected validation message for empty query")
	}
}

func TestSearchRecommendationsMapsMetadata(t *testing.T) {
	t.Parallel()

	products := &fakeIndex{hits: []vectorx.Hit{
		{Content: "rich chocolate sponge", Metadata: map[string]any{"id": "C003", "name": "Chocolate Fudge Cake", "type": "chocolate", "price": "24"}, Score: 0.8},
	}}
	g, err := New(&fakeStore{}, testInventory(t), &fakeIndex{}, products)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	results, err := g.Execute(context.Background(), []contractx.ToolRequest{
		{Tool: string(contractx.ToolSearchRecommendations), CallID: "call-1", Args: map[string]any{"description": "something chocolatey"}},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	recs, ok := results[0].Result.([]Recommendation)
	if !ok {
		t.Fatalf("result type = %T", results[0].Result)
	}
	if len(recs) != 1 || recs[0].ItemID != "C003" || recs[0].Name != "Chocolate Fudge Cake" {
		t.Fatalf("unexpected recommendations: %+v", recs)
	}
	if products.queries[0] != "something chocolatey" {
		t.Fatalf("query passed to index = %q", products.queries[0])
	}
}

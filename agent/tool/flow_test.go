package tool

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	orchestratorx "github.com/tanpawarit/cakeshop-assistant/agent/orchestrator"
)

// conversationModel replays a scripted ordering conversation against the
// real gateway: register the customer, place an order, then answer.
type conversationModel struct {
	responses []*schema.Message
	calls     int
}

func (m *conversationModel) Generate(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if m.calls >= len(m.responses) {
		return nil, errors.New("script exhausted")
	}
	resp := m.responses[m.calls]
	m.calls++
	return resp, nil
}

func (m *conversationModel) Stream(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func (m *conversationModel) WithTools(infos []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

func TestOrderingConversationEndToEnd(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	inv := testInventory(t)
	gateway, err := New(store, inv, &fakeIndex{}, &fakeIndex{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	chatModel := &conversationModel{responses: []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{{
			ID: "call-1",
			Function: schema.FunctionCall{
				Name: "create_new_customer",
				Arguments: `{"first_name":"Alice","surname":"Baker","year_of_birth":1990,` +
					`"month_of_birth":4,"day_of_birth":12,"postcode":"CB1 2AB",` +
					`"first_line_of_address":"1 Mill Road","phone_number":"07700900123",` +
					`"email":"alice@example.com"}`,
			},
		}}),
		schema.AssistantMessage("", []schema.ToolCall{{
			ID: "call-2",
			Function: schema.FunctionCall{
				Name:      "place_order",
				Arguments: `{"items":{"C001":2},"customer_id":"CUST001"}`,
			},
		}}),
		schema.AssistantMessage("All done! Order ORD001 is in - that was a piece of cake.", nil),
	}}

	agent, err := orchestratorx.New(chatModel, Infos(), gateway, "You are the cake shop assistant.", orchestratorx.Config{})
	if err != nil {
		t.Fatalf("orchestrator.New() error = %v", err)
	}

	history, err := agent.HandleMessage(context.Background(), nil, "I'd like two Victoria sponges please")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if len(store.customers) != 1 || store.customers[0].CustomerID != "CUST001" {
		t.Fatalf("customers = %+v, want one CUST001", store.customers)
	}
	if len(store.orders) != 1 || store.orders[0].OrderID != "ORD001" {
		t.Fatalf("orders = %+v, want one ORD001", store.orders)
	}
	item, _ := inv.Get("C001")
	if item.Quantity != 3 {
		t.Fatalf("remaining stock = %d, want 3", item.Quantity)
	}

	var registered bool
	for _, msg := range history {
		if msg.Role == schema.Tool && msg.ToolCallID == "call-1" &&
			strings.Contains(msg.Content, "Customer registered, with customer_id CUST001") {
			registered = true
		}
	}
	if !registered {
		t.Fatal("registration result was not fed back to the model")
	}

	last := history[len(history)-1]
	if last.Role != schema.Assistant || !strings.Contains(last.Content, "ORD001") {
		t.Fatalf("final reply = %+v", last)
	}
}

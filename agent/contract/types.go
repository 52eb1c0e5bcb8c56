package contract

// ToolKind is the closed set of operations the model may request.
// Dispatch over the set is exhaustive; an unknown name never reaches
// a tool implementation.
type ToolKind string

const (
	ToolQueryKnowledgeBase     ToolKind = "query_knowledge_base"
	ToolSearchRecommendations  ToolKind = "search_for_product_recommendations"
	ToolDataProtectionCheck    ToolKind = "data_protection_check"
	ToolCreateNewCustomer      ToolKind = "create_new_customer"
	ToolPlaceOrder             ToolKind = "place_order"
	ToolRetrieveCustomerOrders ToolKind = "retrieve_existing_customer_orders"
)

// ToolKinds lists every kind, in catalog order.
func ToolKinds() []ToolKind {
	return []ToolKind{
		ToolQueryKnowledgeBase,
		ToolSearchRecommendations,
		ToolDataProtectionCheck,
		ToolCreateNewCustomer,
		ToolPlaceOrder,
		ToolRetrieveCustomerOrders,
	}
}

// ParseToolKind maps a wire-level tool name onto the closed set.
func ParseToolKind(name string) (ToolKind, bool) {
	switch ToolKind(name) {
	case ToolQueryKnowledgeBase,
		ToolSearchRecommendations,
		ToolDataProtectionCheck,
		ToolCreateNewCustomer,
		ToolPlaceOrder,
		ToolRetrieveCustomerOrders:
		return ToolKind(name), true
	default:
		return "", false
	}
}

// ToolRequest is one invocation the model asked for. Tool carries the raw
// wire name; CallID tags the tool-result message back to the invocation.
type ToolRequest struct {
	Tool   string         `json:"tool"`
	CallID string         `json:"call_id"`
	Args   map[string]any `json:"args,omitempty"`
}

// ToolResult is the normalized outcome of one invocation. Exactly one of
// Result and Error is meaningful; Error holds a human-readable message the
// model can relay conversationally.
type ToolResult struct {
	Tool   string `json:"tool"`
	CallID string `json:"call_id"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

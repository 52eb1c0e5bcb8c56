package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/cakeshop-assistant/agent/contract"
	inventoryx "github.com/tanpawarit/cakeshop-assistant/shop/inventory"
	storex "github.com/tanpawarit/cakeshop-assistant/shop/store"
	vectorx "github.com/tanpawarit/cakeshop-assistant/shop/vector"
)

// Gateway executes the fixed tool catalog against the shop's state.
type Gateway struct {
	store     storex.Store
	inventory *inventoryx.Service
	faqs      vectorx.Index
	products  vectorx.Index
	validate  *validator.Validate
}

var _ contractx.ToolGateway = (*Gateway)(nil)

func New(store storex.Store, inventory *inventoryx.Service, faqs, products vectorx.Index) (*Gateway, error) {
	if store == nil {
		return nil, errors.New("record store is required")
	}
	if inventory == nil {
		return nil, errors.New("inventory service is required")
	}
	if faqs == nil || products == nil {
		return nil, errors.New("faq and product indexes are required")
	}

	return &Gateway{
		store:     store,
		inventory: inventory,
		faqs:      faqs,
		products:  products,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

// Execute runs each requested invocation in order and returns one result
// per request. Validation failures and lookup misses land in the
// ToolResult so the model can relay them; storage faults end the batch.
func (g *Gateway) Execute(ctx context.Context, reqs []contractx.ToolRequest) ([]contractx.ToolResult, error) {
	results := make([]contractx.ToolResult, 0, len(reqs))
	for _, req := range reqs {
		result, err := g.dispatch(ctx, req)
		if err != nil {
			return results, err
		}

		log.Debug().
			Str("tool", req.Tool).
			Bool("failed", result.Error != "").
			Msg("tool executed")
		results = append(results, result)
	}
	return results, nil
}

func (g *Gateway) dispatch(ctx context.Context, req contractx.ToolRequest) (contractx.ToolResult, error) {
	kind, ok := contractx.ParseToolKind(req.Tool)
	if !ok {
		return failure(req, fmt.Sprintf("tool %s is not available", req.Tool)), nil
	}

	switch kind {
	case contractx.ToolQueryKnowledgeBase:
		return g.queryKnowledgeBase(ctx, req)
	case contractx.ToolSearchRecommendations:
		return g.searchRecommendations(ctx, req)
	case contractx.ToolDataProtectionCheck:
		return g.dataProtectionCheck(ctx, req)
	case contractx.ToolCreateNewCustomer:
		return g.createNewCustomer(ctx, req)
	case contractx.ToolPlaceOrder:
		return g.placeOrder(ctx, req)
	case contractx.ToolRetrieveCustomerOrders:
		return g.retrieveCustomerOrders(ctx, req)
	default:
		return failure(req, fmt.Sprintf("tool %s is not available", req.Tool)), nil
	}
}

func success(req contractx.ToolRequest, result any) contractx.ToolResult {
	return contractx.ToolResult{Tool: req.Tool, CallID: req.CallID, Result: result}
}

func failure(req contractx.ToolRequest, message string) contractx.ToolResult {
	return contractx.ToolResult{Tool: req.Tool, CallID: req.CallID, Error: message}
}

// decodeArgs round-trips the loosely typed argument map into a typed
// argument struct.
func decodeArgs(args map[string]any, out any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("%w: encode tool args: %v", contractx.ErrValidation, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode tool args: %v", contractx.ErrValidation, err)
	}
	return nil
}

// Infos declares the catalog schemas the model is bound with.
func Infos() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: string(contractx.ToolQueryKnowledgeBase),
			Desc: "Look up information in the knowledge base to help with answering customer questions and getting information on business processes.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {Type: schema.String, Desc: "Question to ask the knowledge base", Required: true},
			}),
		},
		{
			Name: string(contractx.ToolSearchRecommendations),
			Desc: "Search the product catalog for recommendations matching a free-text description of what the customer wants, e.g. \"an affordable cake with fruit flavors for a party\".",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"description": {Type: schema.String, Desc: "Description of the desired product features", Required: true},
			}),
		},
		{
			Name: string(contractx.ToolDataProtectionCheck),
			Desc: "Perform a data protection check against a customer to retrieve their customer details, including their customer id.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"name":           {Type: schema.String, Desc: "Customer first and last name", Required: true},
				"postcode":       {Type: schema.String, Desc: "Customer registered postcode", Required: true},
				"year_of_birth":  {Type: schema.Integer, Desc: "Year the customer was born", Required: true},
				"month_of_birth": {Type: schema.Integer, Desc: "Month the customer was born", Required: true},
				"day_of_birth":   {Type: schema.Integer, Desc: "Day the customer was born", Required: true},
			}),
		},
		{
			Name: string(contractx.ToolCreateNewCustomer),
			Desc: "Creates a customer profile so the customer can place orders.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"first_name":            {Type: schema.String, Desc: "Customer's first name", Required: true},
				"surname":               {Type: schema.String, Desc: "Customer's surname", Required: true},
				"year_of_birth":         {Type: schema.Integer, Desc: "Year the customer was born", Required: true},
				"month_of_birth":        {Type: schema.Integer, Desc: "Month the customer was born", Required: true},
				"day_of_birth":          {Type: schema.Integer, Desc: "Day the customer was born", Required: true},
				"postcode":              {Type: schema.String, Desc: "Customer's postcode", Required: true},
				"first_line_of_address": {Type: schema.String, Desc: "Customer's first line of address", Required: true},
				"phone_number":          {Type: schema.String, Desc: "Customer's phone number, exactly 11 digits", Required: true},
				"email":                 {Type: schema.String, Desc: "Customer's email address", Required: true},
			}),
		},
		{
			Name: string(contractx.ToolPlaceOrder),
			Desc: "Places an order for the requested items and quantities on behalf of a registered customer.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"items":       {Type: schema.Object, Desc: "Object mapping inventory item id to the quantity to order", Required: true},
				"customer_id": {Type: schema.String, Desc: "Customer to place the order for", Required: true},
			}),
		},
		{
			Name: string(contractx.ToolRetrieveCustomerOrders),
			Desc: "Retrieves the orders associated with a customer, including their status, items and ids.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"customer_id": {Type: schema.String, Desc: "Customer unique id associated with the orders", Required: true},
			}),
		},
	}
}

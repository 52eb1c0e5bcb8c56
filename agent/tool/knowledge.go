package tool

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/cakeshop-assistant/agent/contract"
	vectorx "github.com/tanpawarit/cakeshop-assistant/shop/vector"
)

// KnowledgeHit is one relevant question/answer pair.
type KnowledgeHit struct {
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Score    float64 `json:"score"`
}

// Recommendation is one product match from the inventory corpus.
type Recommendation struct {
	ItemID      string  `json:"item_id"`
	Name        string  `json:"name"`
	Type        string  `json:"type,omitempty"`
	Price       string  `json:"price,omitempty"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

func (g *Gateway) queryKnowledgeBase(ctx context.Context, req contractx.ToolRequest) (contractx.ToolResult, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := decodeArgs(req.Args, &args); err != nil {
		return failure(req, err.Error()), nil
	}
	if strings.TrimSpace(args.Query) == "" {
		return failure(req, "query must not be empty"), nil
	}

	hits, err := g.faqs.Query(ctx, args.Query, vectorx.DefaultTopK)
	if err != nil {
		return failure(req, fmt.Sprintf("knowledge base is unavailable: %v", err)), nil
	}

	out := make([]KnowledgeHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, KnowledgeHit{
			Question: metaString(h.Metadata, "question"),
			Answer:   metaString(h.Metadata, "answer"),
			Score:    h.Score,
		})
	}
	return success(req, out), nil
}

func (g *Gateway) searchRecommendations(ctx context.Context, req contractx.ToolRequest) (contractx.ToolResult, error) {
	var args struct {
		Description string `json:"description"`
	}
	if err := decodeArgs(req.Args, &args); err != nil {
		return failure(req, err.Error()), nil
	}
	if strings.TrimSpace(args.Description) == "" {
		return failure(req, "description must not be empty"), nil
	}

	hits, err := g.products.Query(ctx, args.Description, vectorx.DefaultTopK)
	if err != nil {
		return failure(req, fmt.Sprintf("product search is unavailable: %v", err)), nil
	}

	out := make([]Recommendation, 0, len(hits))
	for _, h := range hits {
		out = append(out, Recommendation{
			ItemID:      metaString(h.Metadata, "id"),
			Name:        metaString(h.Metadata, "name"),
			Type:        metaString(h.Metadata, "type"),
			Price:       metaString(h.Metadata, "price"),
			Description: h.Content,
			Score:       h.Score,
		})
	}
	return success(req, out), nil
}

func metaString(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	s, _ := metadata[key].(string)
	return s
}

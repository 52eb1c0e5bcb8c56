package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tanpawarit/cakeshop-assistant/shop/inventory"
)

// Chunking policy for indexing. Boundaries are an indexing-time concern;
// nothing at query time depends on them.
const (
	chunkSize    = 200
	chunkOverlap = 30
)

// FAQ is one question/answer record from the FAQ configuration file.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// LoadFAQs reads the FAQ configuration file.
func LoadFAQs(path string) ([]FAQ, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read faq file: %w", err)
	}

	var faqs []FAQ
	if err := json.Unmarshal(raw, &faqs); err != nil {
		return nil, fmt.Errorf("decode faq file: %w", err)
	}
	return faqs, nil
}

// SeedFAQs indexes each question as a single chunk and each answer as
// overlapping windows, every chunk carrying the original pair as metadata.
func SeedFAQs(ctx context.Context, ns *Namespace, faqs []FAQ) error {
	var docs []Document
	for i, faq := range faqs {
		docs = append(docs, Document{
			ID:      fmt.Sprintf("faq-%d-q", i),
			Content: faq.Question,
			Metadata: map[string]any{
				"type":     "question",
				"question": faq.Question,
				"answer":   faq.Answer,
			},
		})

		for j, chunk := range chunkText(faq.Answer, chunkSize, chunkOverlap) {
			docs = append(docs, Document{
				ID:      fmt.Sprintf("faq-%d-a-%d", i, j),
				Content: chunk,
				Metadata: map[string]any{
					"type":     "answer_chunk",
					"question": faq.Question,
					"answer":   chunk,
				},
			})
		}
	}
	return ns.Upsert(ctx, docs)
}

// SeedInventory indexes each item's description in overlapping windows,
// carrying the catalog fields as metadata for recommendation hits.
func SeedInventory(ctx context.Context, ns *Namespace, items []inventory.Item) error {
	var docs []Document
	for _, item := range items {
		for j, chunk := range chunkText(item.Description, chunkSize, chunkOverlap) {
			docs = append(docs, Document{
				ID:      fmt.Sprintf("inv-%s-%d", item.ID, j),
				Content: chunk,
				Metadata: map[string]any{
					"id":       item.ID,
					"name":     item.Name,
					"type":     item.Type,
					"price":    item.Price.String(),
					"quantity": item.Quantity,
				},
			})
		}
	}
	return ns.Upsert(ctx, docs)
}

// chunkText splits text into overlapping rune windows.
func chunkText(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if size <= 0 || len(runes) <= size {
		return []string{text}
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	step := size - overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

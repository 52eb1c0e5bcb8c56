// Package inventory holds the in-memory product catalog. The catalog is
// loaded once from configuration and mutated only by order placement;
// quantities are not persisted across restarts.
package inventory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Item is one catalog entry.
type Item struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Type        string          `json:"type"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

// ReservationError aggregates every failing line of a rejected
// reservation. The whole request is rejected; no quantity changes.
type ReservationError struct {
	Problems []string
}

func (e *ReservationError) Error() string {
	return "Order cannot be placed due to the following issues:\n" + strings.Join(e.Problems, "\n")
}

// Service guards the catalog with a mutex so quantity checks and
// decrements are atomic with respect to concurrent order placement.
type Service struct {
	mu    sync.Mutex
	items map[string]*Item
	order []string
}

func New(items []Item) (*Service, error) {
	s := &Service{items: make(map[string]*Item, len(items))}
	for i := range items {
		item := items[i]
		if strings.TrimSpace(item.ID) == "" {
			return nil, errors.New("inventory item id is empty")
		}
		if _, ok := s.items[item.ID]; ok {
			return nil, fmt.Errorf("duplicate inventory item id=%s", item.ID)
		}
		s.items[item.ID] = &item
		s.order = append(s.order, item.ID)
	}
	return s, nil
}

// Load reads the catalog from a JSON file.
func Load(path string) (*Service, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inventory file: %w", err)
	}

	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode inventory file: %w", err)
	}
	return New(items)
}

// Get returns a copy of one item.
func (s *Service) Get(id string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return Item{}, false
	}
	return *item, true
}

// Items returns copies of every item in load order.
func (s *Service) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Item, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.items[id])
	}
	return out
}

// Reserve validates every requested line and, only if all pass, decrements
// the quantities under the same lock. On any violation nothing is mutated
// and the returned *ReservationError names every failing line.
func (s *Service) Reserve(lines map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(lines))
	for id := range lines {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var problems []string
	for _, id := range ids {
		quantity := lines[id]
		item, ok := s.items[id]
		if !ok {
			problems = append(problems, fmt.Sprintf("Item with id %s is not found in the inventory", id))
			continue
		}
		if quantity <= 0 {
			problems = append(problems, fmt.Sprintf("Requested quantity for %s must be positive", item.Name))
			continue
		}
		if quantity > item.Quantity {
			problems = append(problems, fmt.Sprintf(
				"There is insufficient quantity in the inventory for this item %s\nAvailable: %d\nRequested: %d",
				item.Name, item.Quantity, quantity,
			))
		}
	}
	if len(problems) > 0 {
		return &ReservationError{Problems: problems}
	}

	for _, id := range ids {
		s.items[id].Quantity -= lines[id]
	}
	return nil
}

// Release restores previously reserved quantities. Used when the order
// insert fails after a successful reservation.
func (s *Service) Release(lines map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, quantity := range lines {
		if item, ok := s.items[id]; ok && quantity > 0 {
			item.Quantity += quantity
		}
	}
}

package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
)

// Bootstrap creates the tables if they do not exist and seeds the demo
// customers and orders when the customers table is empty.
func Bootstrap(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*Customer)(nil),
		(*Order)(nil),
		(*DataProtectionAttempt)(nil),
	}
	for _, m := range models {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", m, err)
		}
	}

	count, err := db.NewSelect().Model((*Customer)(nil)).Count(ctx)
	if err != nil {
		return fmt.Errorf("count customers: %w", err)
	}
	if count > 0 {
		return nil
	}

	customers := []Customer{
		{CustomerID: "CUST001", Name: "John Doe", Postcode: "SW1A 1AA", DOB: "1990-01-01", FirstLineAddress: "123 Main St", PhoneNumber: "07712345678", Email: "john.doe@example.com"},
		{CustomerID: "CUST002", Name: "Jane Smith", Postcode: "E1 6AN", DOB: "1985-05-15", FirstLineAddress: "456 High St", PhoneNumber: "07723456789", Email: "jane.smith@example.com"},
	}
	if _, err := db.NewInsert().Model(&customers).Exec(ctx); err != nil {
		return fmt.Errorf("seed customers: %w", err)
	}

	orders := []Order{
		{OrderID: "ORD001", CustomerID: "CUST001", Status: StatusProcessing, Lines: []OrderLine{{ItemID: "C001", Quantity: 1}}},
		{OrderID: "ORD002", CustomerID: "CUST002", Status: StatusShipped, Lines: []OrderLine{{ItemID: "C007", Quantity: 1}, {ItemID: "C011", Quantity: 2}}},
		{OrderID: "ORD003", CustomerID: "CUST001", Status: StatusDelivered, Lines: []OrderLine{{ItemID: "C015", Quantity: 1}}},
		{OrderID: "ORD004", CustomerID: "CUST002", Status: StatusProcessing, Lines: []OrderLine{{ItemID: "C003", Quantity: 1}, {ItemID: "C013", Quantity: 1}, {ItemID: "C031", Quantity: 2}}},
	}
	if _, err := db.NewInsert().Model(&orders).Exec(ctx); err != nil {
		return fmt.Errorf("seed orders: %w", err)
	}

	log.Info().Int("customers", len(customers)).Int("orders", len(orders)).Msg("seeded demo records")
	return nil
}

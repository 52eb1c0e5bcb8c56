package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrOrderNotFound    = errors.New("order not found")
)

// Store is the persistence contract for customers, orders, and the
// data-protection audit log.
type Store interface {
	CreateCustomer(ctx context.Context, c NewCustomer) (string, error)
	FindCustomers(ctx context.Context, name, postcode string, year, month, day int) ([]Customer, error)
	ListCustomers(ctx context.Context) ([]Customer, error)

	CreateOrder(ctx context.Context, lines []OrderLine, customerID string) (string, error)
	ListOrdersFor(ctx context.Context, customerID string) ([]Order, error)
	ListOrders(ctx context.Context) ([]Order, error)
	UpdateOrderStatus(ctx context.Context, orderID, status string) error

	LogDataProtectionAttempt(ctx context.Context, a DataProtectionAttempt) error
	ListDataProtectionAttempts(ctx context.Context) ([]DataProtectionAttempt, error)
}

// Config holds the Postgres connection settings.
type Config struct {
	DSN     string        `envconfig:"DSN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// Connect opens a bun DB over pgdriver.
func Connect(cfg Config) (*bun.DB, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(cfg.Timeout),
	))
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

// BunStore implements Store over a relational database via bun.
type BunStore struct {
	db  *bun.DB
	now func() time.Time
}

var _ Store = (*BunStore)(nil)

func New(db *bun.DB) (*BunStore, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &BunStore{db: db, now: time.Now}, nil
}

// CreateCustomer allocates the next CUST id and inserts the record.
// Count and insert run in one transaction so sequential creations cannot
// hand out the same id.
func (s *BunStore) CreateCustomer(ctx context.Context, c NewCustomer) (string, error) {
	var customerID string

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		count, err := tx.NewSelect().Model((*Customer)(nil)).Count(ctx)
		if err != nil {
			return fmt.Errorf("count customers: %w", err)
		}

		customerID = formatSequenceID("CUST", count+1)
		record := &Customer{
			CustomerID:       customerID,
			Name:             strings.TrimSpace(c.FirstName + " " + c.Surname),
			Postcode:         c.Postcode,
			DOB:              composeDOB(c.YearOfBirth, c.MonthOfBirth, c.DayOfBirth),
			FirstLineAddress: c.FirstLineAddress,
			PhoneNumber:      c.PhoneNumber,
			Email:            c.Email,
			CreatedAt:        s.now().UTC(),
		}

		if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
			return fmt.Errorf("insert customer: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return customerID, nil
}

func (s *BunStore) FindCustomers(ctx context.Context, name, postcode string, year, month, day int) ([]Customer, error) {
	var customers []Customer
	err := s.db.NewSelect().
		Model(&customers).
		Where("LOWER(name) = LOWER(?)", name).
		Where("LOWER(postcode) = LOWER(?)", postcode).
		Where("dob = ?", composeDOB(year, month, day)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("find customers: %w", err)
	}
	return customers, nil
}

func (s *BunStore) ListCustomers(ctx context.Context) ([]Customer, error) {
	var customers []Customer
	if err := s.db.NewSelect().Model(&customers).Order("customer_id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return customers, nil
}

// CreateOrder allocates the next ORD id and inserts the record with the
// initial "Waiting for payment" status, in one transaction.
func (s *BunStore) CreateOrder(ctx context.Context, lines []OrderLine, customerID string) (string, error) {
	if strings.TrimSpace(customerID) == "" {
		return "", errors.New("customer id is required")
	}
	if len(lines) == 0 {
		return "", errors.New("order has no lines")
	}

	var orderID string
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		count, err := tx.NewSelect().Model((*Order)(nil)).Count(ctx)
		if err != nil {
			return fmt.Errorf("count orders: %w", err)
		}

		orderID = formatSequenceID("ORD", count+1)
		now := s.now().UTC()
		record := &Order{
			OrderID:    orderID,
			CustomerID: customerID,
			Status:     StatusWaitingForPayment,
			Lines:      lines,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return orderID, nil
}

func (s *BunStore) ListOrdersFor(ctx context.Context, customerID string) ([]Order, error) {
	orders := make([]Order, 0)
	err := s.db.NewSelect().
		Model(&orders).
		Where("customer_id = ?", customerID).
		Order("order_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders for customer: %w", err)
	}
	return orders, nil
}

func (s *BunStore) ListOrders(ctx context.Context) ([]Order, error) {
	orders := make([]Order, 0)
	if err := s.db.NewSelect().Model(&orders).Order("order_id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *BunStore) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	res, err := s.db.NewUpdate().
		Model((*Order)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", s.now().UTC()).
		Where("order_id = ?", orderID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order status: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: order_id=%s", ErrOrderNotFound, orderID)
	}
	return nil
}

func (s *BunStore) LogDataProtectionAttempt(ctx context.Context, a DataProtectionAttempt) error {
	if a.CheckedAt.IsZero() {
		a.CheckedAt = s.now().UTC()
	}
	if _, err := s.db.NewInsert().Model(&a).Exec(ctx); err != nil {
		return fmt.Errorf("log data protection attempt: %w", err)
	}
	return nil
}

func (s *BunStore) ListDataProtectionAttempts(ctx context.Context) ([]DataProtectionAttempt, error) {
	attempts := make([]DataProtectionAttempt, 0)
	err := s.db.NewSelect().
		Model(&attempts).
		Order("checked_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list data protection attempts: %w", err)
	}
	return attempts, nil
}

func formatSequenceID(prefix string, n int) string {
	return fmt.Sprintf("%s%03d", prefix, n)
}

func composeDOB(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

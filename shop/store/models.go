package store

import (
	"time"

	"github.com/uptrace/bun"
)

// Order statuses progress through at least waiting -> processing ->
// shipped -> delivered. Status stays a free-form column; these are the
// values the shop uses.
const (
	StatusWaitingForPayment = "Waiting for payment"
	StatusProcessing        = "Processing"
	StatusShipped           = "Shipped"
	StatusDelivered         = "Delivered"
)

// Customer is an identity record. CustomerID is immutable once created;
// customers are created only via registration and never deleted here.
type Customer struct {
	bun.BaseModel `bun:"table:customers"`

	CustomerID       string    `bun:"customer_id,pk" json:"customer_id"`
	Name             string    `bun:"name,notnull" json:"name"`
	Postcode         string    `bun:"postcode,notnull" json:"postcode"`
	DOB              string    `bun:"dob,notnull" json:"dob"` // YYYY-MM-DD
	FirstLineAddress string    `bun:"first_line_address,notnull" json:"first_line_address"`
	PhoneNumber      string    `bun:"phone_number,notnull" json:"phone_number"`
	Email            string    `bun:"email,notnull" json:"email"`
	CreatedAt        time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// OrderLine is one (item id, quantity) pair of an order.
type OrderLine struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// Order is a purchase record owned by a customer.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	OrderID    string      `bun:"order_id,pk" json:"order_id"`
	CustomerID string      `bun:"customer_id,notnull" json:"customer_id"`
	Status     string      `bun:"status,notnull" json:"status"`
	Lines      []OrderLine `bun:"lines,type:jsonb" json:"lines"`
	CreatedAt  time.Time   `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt  time.Time   `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// DataProtectionAttempt is one append-only audit row. Every identity
// check writes one, pass or fail.
type DataProtectionAttempt struct {
	bun.BaseModel `bun:"table:data_protection_checks"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	Name         string    `bun:"name,notnull" json:"name"`
	Postcode     string    `bun:"postcode,notnull" json:"postcode"`
	YearOfBirth  int       `bun:"year_of_birth,notnull" json:"year_of_birth"`
	MonthOfBirth int       `bun:"month_of_birth,notnull" json:"month_of_birth"`
	DayOfBirth   int       `bun:"day_of_birth,notnull" json:"day_of_birth"`
	CheckedAt    time.Time `bun:"checked_at,nullzero,notnull,default:current_timestamp" json:"checked_at"`
}

// NewCustomer carries the registration fields for CreateCustomer.
type NewCustomer struct {
	FirstName        string
	Surname          string
	YearOfBirth      int
	MonthOfBirth     int
	DayOfBirth       int
	Postcode         string
	FirstLineAddress string
	PhoneNumber      string
	Email            string
}

package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	contractx "github.com/tanpawarit/cakeshop-assistant/agent/contract"
	storex "github.com/tanpawarit/cakeshop-assistant/shop/store"
)

type dataProtectionArgs struct {
	Name         string `json:"name" validate:"required"`
	Postcode     string `json:"postcode" validate:"required"`
	YearOfBirth  int    `json:"year_of_birth" validate:"required"`
	MonthOfBirth int    `json:"month_of_birth" validate:"required,min=1,max=12"`
	DayOfBirth   int    `json:"day_of_birth" validate:"required,min=1,max=31"`
}

// DataProtectionOutput is the pass payload of an identity check.
type DataProtectionOutput struct {
	Message  string         `json:"message"`
	Customer storex.Customer `json:"customer"`
}

// dataProtectionCheck verifies a customer's identity. Every attempt is
// appended to the audit log before the lookup runs, pass or fail.
func (g *Gateway) dataProtectionCheck(ctx context.Context, req contractx.ToolRequest) (contractx.ToolResult, error) {
	var args dataProtectionArgs
	if err := decodeArgs(req.Args, &args); err != nil {
		return failure(req, err.Error()), nil
	}
	if err := g.validate.Struct(args); err != nil {
		return failure(req, fmt.Sprintf("data protection check needs name, postcode and a full date of birth: %v", err)), nil
	}

	attempt := storex.DataProtectionAttempt{
		Name:         args.Name,
		Postcode:     args.Postcode,
		YearOfBirth:  args.YearOfBirth,
		MonthOfBirth: args.MonthOfBirth,
		DayOfBirth:   args.DayOfBirth,
	}
	if err := g.store.LogDataProtectionAttempt(ctx, attempt); err != nil {
		return contractx.ToolResult{}, fmt.Errorf("%w: audit data protection attempt: %v", contractx.ErrStorage, err)
	}

	customers, err := g.store.FindCustomers(ctx, args.Name, args.Postcode, args.YearOfBirth, args.MonthOfBirth, args.DayOfBirth)
	if err != nil {
		return contractx.ToolResult{}, fmt.Errorf("%w: find customer: %v", contractx.ErrStorage, err)
	}

	switch len(customers) {
	case 0:
		return failure(req, "DPA check failed, no customer with these details found"), nil
	case 1:
		return success(req, DataProtectionOutput{
			Message:  "DPA check passed - retrieved customer details",
			Customer: customers[0],
		}), nil
	default:
		// Duplicate natural key. Fail closed rather than guess which
		// profile the caller means.
		return failure(req, "DPA check failed, these details match more than one customer - please contact the shop directly"), nil
	}
}

type createCustomerArgs struct {
	FirstName          string `json:"first_name" validate:"required"`
	Surname            string `json:"surname" validate:"required"`
	YearOfBirth        int    `json:"year_of_birth" validate:"required,min=1900,max=2100"`
	MonthOfBirth       int    `json:"month_of_birth" validate:"required,min=1,max=12"`
	DayOfBirth         int    `json:"day_of_birth" validate:"required,min=1,max=31"`
	Postcode           string `json:"postcode" validate:"required"`
	FirstLineOfAddress string `json:"first_line_of_address" validate:"required"`
	PhoneNumber        string `json:"phone_number" validate:"required,len=11,numeric"`
	Email              string `json:"email" validate:"required,email"`
}

// RegistrationOutput is the payload of a successful registration.
type RegistrationOutput struct {
	CustomerID string `json:"customer_id"`
	Message    string `json:"message"`
}

// createNewCustomer registers a customer profile. Validation failures
// return a relayable message without touching storage.
func (g *Gateway) createNewCustomer(ctx context.Context, req contractx.ToolRequest) (contractx.ToolResult, error) {
	var args createCustomerArgs
	if err := decodeArgs(req.Args, &args); err != nil {
		return failure(req, err.Error()), nil
	}
	if err := g.validate.Struct(args); err != nil {
		return failure(req, registrationFailureMessage(err)), nil
	}
	if !validDate(args.YearOfBirth, args.MonthOfBirth, args.DayOfBirth) {
		return failure(req, "Date of birth is not a valid calendar date"), nil
	}

	customerID, err := g.store.CreateCustomer(ctx, storex.NewCustomer{
		FirstName:        args.FirstName,
		Surname:          args.Surname,
		YearOfBirth:      args.YearOfBirth,
		MonthOfBirth:     args.MonthOfBirth,
		DayOfBirth:       args.DayOfBirth,
		Postcode:         args.Postcode,
		FirstLineAddress: args.FirstLineOfAddress,
		PhoneNumber:      args.PhoneNumber,
		Email:            args.Email,
	})
	if err != nil {
		return contractx.ToolResult{}, fmt.Errorf("%w: create customer: %v", contractx.ErrStorage, err)
	}

	return success(req, RegistrationOutput{
		CustomerID: customerID,
		Message:    fmt.Sprintf("Customer registered, with customer_id %s", customerID),
	}), nil
}

// validDate rejects dates that only pass per-field range checks, such as
// 31 February: time.Date normalizes those into the next month.
func validDate(year, month, day int) bool {
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return d.Year() == year && d.Month() == time.Month(month) && d.Day() == day
}

func registrationFailureMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		messages := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			switch fe.Field() {
			case "PhoneNumber":
				messages = append(messages, "Phone number must be 11 digits")
			case "Email":
				messages = append(messages, "Email address is not valid")
			default:
				messages = append(messages, fmt.Sprintf("%s is missing or invalid", fe.Field()))
			}
		}
		return strings.Join(messages, "\n")
	}
	return fmt.Sprintf("registration details are invalid: %v", err)
}

package posting

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// userError is a sentinel that also carries a message fit for end users.
type userError struct {
	msg  string
	user string
}

func (e *userError) Error() string       { return e.msg }
func (e *userError) UserMessage() string { return e.user }

// Validation and persistence outcomes. Each carries a message safe to flash.
var (
	ErrNoLines             error = &userError{"posting: no lines submitted", "Please add at least one item."}
	ErrInvalidDiscount     error = &userError{"posting: invalid discount", "Discount must be a number of zero or more."}
	ErrInvalidLine         error = &userError{"posting: invalid line", "Invalid quantity or unit price."}
	ErrItemRequired        error = &userError{"posting: item required", "Select an item for every sale line."}
	ErrItemNotFound        error = &userError{"posting: item not found", "Selected item not found."}
	ErrPartyNotFound       error = &userError{"posting: party not found", "Selected customer or vendor not found."}
	ErrInsufficientStock   error = &userError{"posting: insufficient stock", "Insufficient stock."}
	ErrNotFound            error = &userError{"posting: transaction not found", "The transaction no longer exists."}
	ErrDuplicateNumber     error = &userError{"posting: reference number already used", "That invoice number is already recorded."}
	ErrDuplicateSubmission error = &userError{"posting: form already submitted", "This form was already submitted."}
	ErrInvalidNumber       error = &userError{"posting: invalid reference number", "Invoice number must be at most 64 characters."}
)

// ErrSerialTaken is returned by CreateItem when the generated serial already exists.
var ErrSerialTaken = errors.New("posting: serial number taken")

// LineError reports which submitted line failed validation.
type LineError struct {
	Line  int
	Field string
	Err   error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("posting: line %d %s: %v", e.Line, e.Field, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// UserMessage prefixes the cause's message with the 1-based line number.
func (e *LineError) UserMessage() string {
	msg := e.Err.Error()
	var ue *userError
	if errors.As(e.Err, &ue) {
		msg = ue.user
	}
	return fmt.Sprintf("Line %d: %s", e.Line, msg)
}

// StockError reports an adjustment that would drive an item below zero.
type StockError struct {
	ItemID    int64
	Product   string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *StockError) Error() string {
	return fmt.Sprintf("posting: insufficient stock for item %d: available %s, requested %s", e.ItemID, e.Available, e.Requested)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

func (e *StockError) UserMessage() string {
	return fmt.Sprintf("Insufficient stock for %s. Available: %s", e.Product, e.Available.Round(QuantityPlaces).String())
}

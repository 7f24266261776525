package customers

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is a party that sales are billed to.
type Customer struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	Address   string
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Input is the customer form as submitted.
type Input struct {
	Name    string `form:"name" validate:"required,max=200"`
	Email   string `form:"email" validate:"omitempty,email,max=200"`
	Phone   string `form:"phone" validate:"max=50"`
	Address string `form:"address" validate:"max=500"`
	Balance string `form:"balance" validate:"omitempty,numeric"`
}

// InputFrom prefills a form from a stored customer.
func InputFrom(c Customer) Input {
	return Input{
		Name:    c.Name,
		Email:   c.Email,
		Phone:   c.Phone,
		Address: c.Address,
		Balance: c.Balance.StringFixed(2),
	}
}

package vendors

import (
	"time"

	"github.com/shopspring/decimal"
)

// Vendor is a supplier that purchases are recorded against. Rates are percentages.
type Vendor struct {
	ID           int64
	Name         string
	Email        string
	Phone        string
	Address      string
	Balance      decimal.Decimal
	TaxNumber    string
	DiscountRate decimal.Decimal
	VATRate      decimal.Decimal
	ExciseRate   decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Input is the vendor form as submitted.
type Input struct {
	Name         string `form:"name" validate:"required,max=200"`
	Email        string `form:"email" validate:"omitempty,email,max=200"`
	Phone        string `form:"phone" validate:"max=50"`
	Address      string `form:"address" validate:"max=500"`
	Balance      string `form:"balance" validate:"omitempty,numeric"`
	TaxNumber    string `form:"tax_number" validate:"max=50"`
	DiscountRate string `form:"discount_rate"`
	VATRate      string `form:"vat_rate"`
	ExciseRate   string `form:"excise_rate"`
}

// InputFrom prefills a form from a stored vendor.
func InputFrom(v Vendor) Input {
	return Input{
		Name:         v.Name,
		Email:        v.Email,
		Phone:        v.Phone,
		Address:      v.Address,
		Balance:      v.Balance.StringFixed(2),
		TaxNumber:    v.TaxNumber,
		DiscountRate: v.DiscountRate.StringFixed(2),
		VATRate:      v.VATRate.StringFixed(2),
		ExciseRate:   v.ExciseRate.StringFixed(2),
	}
}

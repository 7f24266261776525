package posting

import "github.com/shopspring/decimal"

// VATRate is the fixed VAT percentage applied when VAT is enabled.
var VATRate = decimal.NewFromInt(13)

var hundred = decimal.NewFromInt(100)

// Decimal places of the stored quantity and money columns.
const (
	QuantityPlaces int32 = 3
	MoneyPlaces    int32 = 2
)

// Amounts are the computed money fields of a header, rounded to two places.
type Amounts struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Taxable  decimal.Decimal
	VAT      decimal.Decimal
	Excise   decimal.Decimal
	Total    decimal.Decimal
}

// TaxOptions selects which taxes apply. ExciseRate is a percentage and is
// only used when ExciseEnabled is set.
type TaxOptions struct {
	VATEnabled    bool
	ExciseEnabled bool
	ExciseRate    decimal.Decimal
}

// Pricer is anything with a quantity and a unit price.
type Pricer interface {
	LineQuantity() decimal.Decimal
	LineUnitPrice() decimal.Decimal
}

// LineTotal is quantity times unit price, rounded to the stored money scale.
// Subtotals are summed from these so header and lines agree.
func LineTotal(qty, unitPrice decimal.Decimal) decimal.Decimal {
	return round2(qty.Mul(unitPrice))
}

// Calculate derives header amounts from priced lines and a discount.
//
//	taxable = max(subtotal - discount, 0)
//	vat     = taxable * 13%            (if enabled)
//	excise  = taxable * excise rate    (if enabled and rate != 0)
//	total   = taxable + vat + excise
func Calculate[T Pricer](lines []T, discount decimal.Decimal, opts TaxOptions) Amounts {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(LineTotal(l.LineQuantity(), l.LineUnitPrice()))
	}
	discount = round2(discount)

	taxable := subtotal.Sub(discount)
	if taxable.IsNegative() {
		taxable = decimal.Zero
	}

	vat := decimal.Zero
	if opts.VATEnabled {
		vat = percentOf(taxable, VATRate)
	}
	excise := decimal.Zero
	if opts.ExciseEnabled && !opts.ExciseRate.IsZero() {
		excise = percentOf(taxable, opts.ExciseRate)
	}

	return Amounts{
		Subtotal: subtotal,
		Discount: discount,
		Taxable:  taxable,
		VAT:      vat,
		Excise:   excise,
		Total:    taxable.Add(vat).Add(excise),
	}
}

func percentOf(base, rate decimal.Decimal) decimal.Decimal {
	return round2(base.Mul(rate).Div(hundred))
}

// round2 rounds half away from zero to two places.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

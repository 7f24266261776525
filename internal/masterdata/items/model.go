package items

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a stock item. CurrentQty moves only through postings.
type Item struct {
	ID             int64
	SN             string
	Product        string
	Category       string
	Brand          string
	UOM            string
	CostPrice      decimal.Decimal
	WholesalePrice decimal.Decimal
	SellingPrice   decimal.Decimal
	OpeningQty     decimal.Decimal
	CurrentQty     decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LowStock reports whether the item is below threshold.
func (i Item) LowStock(threshold decimal.Decimal) bool {
	return i.CurrentQty.LessThan(threshold)
}

// Filters narrows the item list.
type Filters struct {
	Page    int
	Limit   int
	Search  string
	InStock bool
}

// Input is the item form as submitted. OpeningQty is only read on create.
type Input struct {
	SN             string `form:"sn" validate:"max=64"`
	Product        string `form:"product" validate:"required,max=200"`
	Category       string `form:"category" validate:"max=100"`
	Brand          string `form:"brand" validate:"max=100"`
	UOM            string `form:"uom" validate:"max=20"`
	CostPrice      string `form:"cp"`
	WholesalePrice string `form:"wholesale"`
	SellingPrice   string `form:"sp"`
	OpeningQty     string `form:"opening_quantity"`
}

// InputFrom prefills a form from a stored item.
func InputFrom(i Item) Input {
	return Input{
		SN:             i.SN,
		Product:        i.Product,
		Category:       i.Category,
		Brand:          i.Brand,
		UOM:            i.UOM,
		CostPrice:      i.CostPrice.StringFixed(2),
		WholesalePrice: i.WholesalePrice.StringFixed(2),
		SellingPrice:   i.SellingPrice.StringFixed(2),
		OpeningQty:     i.OpeningQty.String(),
	}
}

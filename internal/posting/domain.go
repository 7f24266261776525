// Package posting records sales and purchases: it resolves submitted lines to
// stock items, computes amounts, persists header and lines and moves stock,
// all inside a single unit of work.
package posting

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind distinguishes sales from purchases.
type Kind string

const (
	// KindSale decreases stock and is billed to a customer.
	KindSale Kind = "sale"
	// KindPurchase increases stock and may create new items.
	KindPurchase Kind = "purchase"
)

// NumberPrefix is the token used by the reference-number generator.
func (k Kind) NumberPrefix() string {
	if k == KindSale {
		return "SALE"
	}
	return "PUR"
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindSale || k == KindPurchase
}

// stockSign is the direction a posted transaction moves stock.
func (k Kind) stockSign() int {
	if k == KindSale {
		return -1
	}
	return 1
}

// StockItem is a catalogue row as seen by the posting path.
type StockItem struct {
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
}

// NewItem carries the fields of an item materialised by a purchase line.
type NewItem struct {
	SN             string
	Product        string
	Category       string
	Brand          string
	UOM            string
	CostPrice      decimal.Decimal
	WholesalePrice decimal.Decimal
	SellingPrice   decimal.Decimal
	OpeningQty     decimal.Decimal
}

// RawLine is one submitted form row before validation. The new-item fields
// are only read on the purchase path.
type RawLine struct {
	ItemID       string
	Quantity     string
	UnitPrice    string
	Product      string
	Category     string
	Brand        string
	CostPrice    string
	SellingPrice string
	UOM          string
}

// Party is the customer or vendor on a header.
type Party struct {
	ID         int64
	Name       string
	ExciseRate decimal.Decimal
}

// Header is a posted sale or purchase.
type Header struct {
	ID            int64
	Kind          Kind
	Number        string
	PartyID       *int64
	PartyName     string
	PostedAt      time.Time
	Amounts       Amounts
	VATEnabled    bool
	ExciseEnabled bool
	Notes         string
	CreatedBy     int64
	CreatedAt     time.Time
	Lines         []Line
}

// Line is one item row on a header.
type Line struct {
	ID            int64
	HeaderID      int64
	ItemID        int64
	ItemSN        string
	Product       string
	UOM           string
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
	Total         decimal.Decimal
	VATEnabled    bool
	ExciseEnabled bool
}

// SaleInput is a sale submission.
type SaleInput struct {
	CustomerID     *int64
	Discount       string
	VATEnabled     bool
	ExciseEnabled  bool
	Notes          string
	Lines          []RawLine
	PostedAt       time.Time
	ActorID        int64
	IdempotencyKey string
}

// PurchaseInput is a purchase submission. An empty InvoiceNumber is generated.
type PurchaseInput struct {
	VendorID       *int64
	InvoiceNumber  string
	Discount       string
	VATEnabled     bool
	ExciseEnabled  bool
	Notes          string
	Lines          []RawLine
	PostedAt       time.Time
	ActorID        int64
	IdempotencyKey string
}

// PostResult is the outcome of a successful posting.
type PostResult struct {
	Header       Header
	CreatedItems []StockItem
}

// ListFilter pages through posted headers, newest first.
type ListFilter struct {
	Page    int
	PerPage int
}

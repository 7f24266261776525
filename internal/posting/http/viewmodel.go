package postinghttp

import (
	"github.com/ledgerline/ledgerline/internal/masterdata/items"
	mdshared "github.com/ledgerline/ledgerline/internal/masterdata/shared"
	"github.com/ledgerline/ledgerline/internal/posting"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// kindView carries the wording and paths that differ between sales and purchases.
type kindView struct {
	Kind        posting.Kind
	Title       string
	Singular    string
	BasePath    string
	PartyLabel  string
	PartyField  string
	NumberLabel string
}

func viewFor(kind posting.Kind) kindView {
	if kind == posting.KindSale {
		return kindView{
			Kind:        kind,
			Title:       "Sales",
			Singular:    "Sale",
			BasePath:    "/sales",
			PartyLabel:  "Customer",
			PartyField:  "customer_id",
			NumberLabel: "Bill number",
		}
	}
	return kindView{
		Kind:        kind,
		Title:       "Purchases",
		Singular:    "Purchase",
		BasePath:    "/purchases",
		PartyLabel:  "Vendor",
		PartyField:  "vendor_id",
		NumberLabel: "Invoice number",
	}
}

// IsPurchase is used by templates to show the new-item columns.
func (k kindView) IsPurchase() bool { return k.Kind == posting.KindPurchase }

type listPage struct {
	View       kindView
	Headers    []posting.Header
	Pagination shared.Pagination
}

type formPage struct {
	View    kindView
	Parties []mdshared.Option
	Items   []items.Item
	Values  formValues
	Error   string
}

type invoicePage struct {
	View   kindView
	Header posting.Header
}

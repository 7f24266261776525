package postinghttp

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/posting"
)

const dateLayout = "2006-01-02"

type formError struct {
	msg  string
	user string
}

func (e *formError) Error() string       { return e.msg }
func (e *formError) UserMessage() string { return e.user }

var errInvalidDate error = &formError{"postinghttp: invalid date", "Enter the date as YYYY-MM-DD."}

// formValues is a sale or purchase form as submitted. Lines keep their
// submitted order so a failed post can re-render them.
type formValues struct {
	PartyID        string
	InvoiceNumber  string
	Discount       string
	Notes          string
	PostedAt       string
	VATEnabled     bool
	ExciseEnabled  bool
	IdempotencyKey string
	Lines          []posting.RawLine
}

func newFormValues() formValues {
	return formValues{
		Discount:       "0",
		VATEnabled:     true,
		IdempotencyKey: uuid.NewString(),
		Lines:          []posting.RawLine{{}},
	}
}

func checked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "1", "true", "yes":
		return true
	}
	return false
}

func column(values url.Values, name string, i int) string {
	col := values[name+"[]"]
	if i < len(col) {
		return strings.TrimSpace(col[i])
	}
	return ""
}

// parseForm reads the header fields and the item_id[]/quantity[]/unit_price[]
// line arrays. Rows left completely blank are dropped.
func parseForm(r *http.Request, kind posting.Kind) (formValues, error) {
	if err := r.ParseForm(); err != nil {
		return formValues{}, err
	}
	f := r.PostForm
	partyField := "customer_id"
	if kind == posting.KindPurchase {
		partyField = "vendor_id"
	}
	v := formValues{
		PartyID:        strings.TrimSpace(f.Get(partyField)),
		InvoiceNumber:  strings.TrimSpace(f.Get("invoice_number")),
		Discount:       strings.TrimSpace(f.Get("discount")),
		Notes:          f.Get("notes"),
		PostedAt:       strings.TrimSpace(f.Get("posted_at")),
		VATEnabled:     checked(f.Get("vat_enabled")),
		ExciseEnabled:  checked(f.Get("excise_enabled")),
		IdempotencyKey: strings.TrimSpace(f.Get("idempotency_key")),
	}
	if kind == posting.KindSale {
		v.InvoiceNumber = ""
	}

	rows := len(f["item_id[]"])
	for _, name := range []string{"quantity", "unit_price", "product"} {
		if n := len(f[name+"[]"]); n > rows {
			rows = n
		}
	}
	for i := 0; i < rows; i++ {
		line := posting.RawLine{
			ItemID:    column(f, "item_id", i),
			Quantity:  column(f, "quantity", i),
			UnitPrice: column(f, "unit_price", i),
		}
		if kind == posting.KindPurchase {
			line.Product = column(f, "product", i)
			line.Category = column(f, "category", i)
			line.Brand = column(f, "brand", i)
			line.CostPrice = column(f, "cp", i)
			line.SellingPrice = column(f, "sp", i)
			line.UOM = column(f, "uom", i)
		}
		if line == (posting.RawLine{}) {
			continue
		}
		v.Lines = append(v.Lines, line)
	}
	return v, nil
}

func (v formValues) partyID() (*int64, error) {
	if v.PartyID == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(v.PartyID, 10, 64)
	if err != nil || id <= 0 {
		return nil, posting.ErrPartyNotFound
	}
	return &id, nil
}

func (v formValues) postedAt() (time.Time, error) {
	if v.PostedAt == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, v.PostedAt, time.UTC)
	if err != nil {
		return time.Time{}, errInvalidDate
	}
	return t, nil
}

func (v formValues) saleInput(actorID int64) (posting.SaleInput, error) {
	party, err := v.partyID()
	if err != nil {
		return posting.SaleInput{}, err
	}
	at, err := v.postedAt()
	if err != nil {
		return posting.SaleInput{}, err
	}
	return posting.SaleInput{
		CustomerID:     party,
		Discount:       v.Discount,
		VATEnabled:     v.VATEnabled,
		ExciseEnabled:  v.ExciseEnabled,
		Notes:          v.Notes,
		Lines:          v.Lines,
		PostedAt:       at,
		ActorID:        actorID,
		IdempotencyKey: v.IdempotencyKey,
	}, nil
}

func (v formValues) purchaseInput(actorID int64) (posting.PurchaseInput, error) {
	party, err := v.partyID()
	if err != nil {
		return posting.PurchaseInput{}, err
	}
	at, err := v.postedAt()
	if err != nil {
		return posting.PurchaseInput{}, err
	}
	return posting.PurchaseInput{
		VendorID:       party,
		InvoiceNumber:  v.InvoiceNumber,
		Discount:       v.Discount,
		VATEnabled:     v.VATEnabled,
		ExciseEnabled:  v.ExciseEnabled,
		Notes:          v.Notes,
		Lines:          v.Lines,
		PostedAt:       at,
		ActorID:        actorID,
		IdempotencyKey: v.IdempotencyKey,
	}, nil
}

// Package dashboard assembles the landing page: record counts, the latest
// sales and purchases and the items running low on stock.
package dashboard

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecentLimit bounds the recent transaction and low-stock lists.
const RecentLimit = 5

// Counts holds the number of stored records per table.
type Counts struct {
	Customers int `json:"customers"`
	Vendors   int `json:"vendors"`
	Items     int `json:"items"`
	Sales     int `json:"sales"`
	Purchases int `json:"purchases"`
}

// RecentTransaction is one row of the recent sales or purchases lists.
type RecentTransaction struct {
	ID        int64           `json:"id"`
	Number    string          `json:"number"`
	PartyName string          `json:"party_name"`
	PostedAt  time.Time       `json:"posted_at"`
	Total     decimal.Decimal `json:"total"`
}

// LowStockItem is an item whose current quantity is below the threshold.
type LowStockItem struct {
	ID         int64           `json:"id"`
	SN         string          `json:"sn"`
	Product    string          `json:"product"`
	UOM        string          `json:"uom"`
	CurrentQty decimal.Decimal `json:"current_quantity"`
}

// Overview is the dashboard view model.
type Overview struct {
	Counts          Counts              `json:"counts"`
	RecentSales     []RecentTransaction `json:"recent_sales"`
	RecentPurchases []RecentTransaction `json:"recent_purchases"`
	LowStock        []LowStockItem      `json:"low_stock"`
	Threshold       decimal.Decimal     `json:"threshold"`
}

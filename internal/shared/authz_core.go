package shared

// Permissions gate every page and mutation. The admin role receives all of them.
const (
	PermDashboardView = "dashboard.view"

	PermPartiesView = "parties.view"
	PermPartiesEdit = "parties.edit"

	PermStockView = "stock.view"
	PermStockEdit = "stock.edit"

	PermSalesView = "sales.view"
	PermSalesPost = "sales.post"

	PermPurchasesView = "purchases.view"
	PermPurchasesPost = "purchases.post"
)

// AllPermissions lists every permission known to the application.
func AllPermissions() []string {
	return []string{
		PermDashboardView,
		PermPartiesView,
		PermPartiesEdit,
		PermStockView,
		PermStockEdit,
		PermSalesView,
		PermSalesPost,
		PermPurchasesView,
		PermPurchasesPost,
	}
}

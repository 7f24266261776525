package rbac

import "time"

// Role represents a high-level permission grouping.
type Role struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission represents an atomic capability.
type Permission struct {
	ID          int64
	Name        string
	Description string
}

// AdminRole is granted every permission by Seed.
const AdminRole = "admin"

var permissionDescriptions = map[string]string{
	"dashboard.view": "View the dashboard",
	"parties.view":   "View customers and vendors",
	"parties.edit":   "Create, edit and delete customers and vendors",
	"stock.view":     "View stock items",
	"stock.edit":     "Create, edit, import and delete stock items",
	"sales.view":     "View sales and invoices",
	"sales.post":     "Record and reverse sales",
	"purchases.view": "View purchases",
	"purchases.post": "Record and reverse purchases",
}

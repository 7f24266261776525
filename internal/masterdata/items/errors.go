package items

import "github.com/ledgerline/ledgerline/internal/masterdata/shared"

var (
	// ErrDuplicateSN is returned when the serial number is already taken.
	ErrDuplicateSN = shared.NewUserError("items: duplicate sn", "Another item already uses this serial number.")
	// ErrEmptyWorkbook is returned when the uploaded workbook has no sheet or no rows.
	ErrEmptyWorkbook = shared.NewUserError("items: empty workbook", "The uploaded workbook contains no rows.")
	// ErrMissingProductColumn is returned when the header row has no product column.
	ErrMissingProductColumn = shared.NewUserError("items: missing product column", "The first row must name a product column.")
	// ErrUploadTooLarge is returned for uploads above MaxUploadSize.
	ErrUploadTooLarge = shared.NewUserError("items: upload too large", "The file is larger than 16 MiB.")
)

package items

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ledgerline/ledgerline/internal/masterdata/shared"
	"github.com/ledgerline/ledgerline/internal/posting"
)

// MaxUploadSize bounds item workbook uploads.
const MaxUploadSize = 16 << 20

// ImportStore inserts imported rows, reporting false when the serial already exists.
type ImportStore interface {
	InsertImported(ctx context.Context, item Item) (bool, error)
}

// ImportObserver receives the totals of each import run.
type ImportObserver interface {
	ObserveImport(created, skipped, failed int)
}

// ImportReport summarises one workbook.
type ImportReport struct {
	Created int
	Skipped int
	Errors  []string
}

// Importer loads stock items from the first sheet of an xlsx workbook.
type Importer struct {
	store    ImportStore
	serial   posting.SerialFunc
	now      func() time.Time
	observer ImportObserver
	logger   *slog.Logger
}

// NewImporter constructs an Importer. serial, observer and logger may be nil.
func NewImporter(store ImportStore, serial posting.SerialFunc, observer ImportObserver, logger *slog.Logger) *Importer {
	if serial == nil {
		serial = posting.NewSerial
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{store: store, serial: serial, now: time.Now, observer: observer, logger: logger}
}

var importColumns = []string{"sn", "product", "category", "brand", "cp", "wholesale", "sp", "uom", "opening_quantity"}

// ImportFile imports the workbook stored at path.
func (im *Importer) ImportFile(ctx context.Context, path string) (ImportReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImportReport{}, fmt.Errorf("items: open upload: %w", err)
	}
	defer f.Close()
	return im.Import(ctx, f)
}

// Import reads r as an xlsx workbook. Rows with an empty product, and rows
// whose serial already exists in the database or earlier in the file, are
// skipped. Rows with unparsable numbers are reported in Errors.
func (im *Importer) Import(ctx context.Context, r io.Reader) (ImportReport, error) {
	book, err := excelize.OpenReader(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return ImportReport{}, fmt.Errorf("items: open workbook: %w", err)
	}
	defer func() {
		if cerr := book.Close(); cerr != nil {
			im.logger.Warn("close workbook", slog.Any("error", cerr))
		}
	}()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return ImportReport{}, ErrEmptyWorkbook
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return ImportReport{}, fmt.Errorf("items: read rows: %w", err)
	}
	if len(rows) == 0 {
		return ImportReport{}, ErrEmptyWorkbook
	}

	index := headerIndex(rows[0])
	if _, ok := index["product"]; !ok {
		return ImportReport{}, ErrMissingProductColumn
	}

	var report ImportReport
	seen := make(map[string]struct{})
	for i, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		rowNum := i + 2
		cell := func(name string) string {
			idx, ok := index[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		item, err := im.rowItem(cell, seen)
		if errors.Is(err, errSkipRow) {
			report.Skipped++
			continue
		}
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}

		created, err := im.store.InsertImported(ctx, item)
		if err != nil {
			im.finish(report)
			return report, err
		}
		seen[item.SN] = struct{}{}
		if created {
			report.Created++
		} else {
			report.Skipped++
		}
	}
	im.finish(report)
	return report, nil
}

var errSkipRow = errors.New("skip row")

func (im *Importer) rowItem(cell func(string) string, seen map[string]struct{}) (Item, error) {
	product := cell("product")
	if product == "" {
		return Item{}, errSkipRow
	}
	sn := cell("sn")
	if sn == "" {
		for {
			sn = im.serial(im.now())
			if _, dup := seen[sn]; !dup {
				break
			}
		}
	} else if _, dup := seen[sn]; dup {
		return Item{}, errSkipRow
	}

	item := Item{
		SN:       sn,
		Product:  product,
		Category: cell("category"),
		Brand:    cell("brand"),
		UOM:      cell("uom"),
	}
	if item.UOM == "" {
		item.UOM = defaultUOM
	}
	fields := []struct {
		name   string
		dst    *decimal.Decimal
		places int32
	}{
		{"cp", &item.CostPrice, posting.MoneyPlaces},
		{"wholesale", &item.WholesalePrice, posting.MoneyPlaces},
		{"sp", &item.SellingPrice, posting.MoneyPlaces},
		{"opening_quantity", &item.OpeningQty, posting.QuantityPlaces},
	}
	for _, f := range fields {
		d, err := shared.Decimal(cell(f.name))
		if err != nil {
			return Item{}, fmt.Errorf("%s is not a number", f.name)
		}
		if d.IsNegative() {
			return Item{}, fmt.Errorf("%s cannot be negative", f.name)
		}
		*f.dst = d.Round(f.places)
	}
	item.CurrentQty = item.OpeningQty
	return item, nil
}

func (im *Importer) finish(report ImportReport) {
	im.logger.Info("items imported",
		slog.Int("created", report.Created),
		slog.Int("skipped", report.Skipped),
		slog.Int("errors", len(report.Errors)))
	if im.observer != nil {
		im.observer.ObserveImport(report.Created, report.Skipped, len(report.Errors))
	}
}

func headerIndex(header []string) map[string]int {
	known := make(map[string]bool, len(importColumns))
	for _, c := range importColumns {
		known[c] = true
	}
	index := make(map[string]int)
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := index[key]; known[key] && !dup {
			index[key] = i
		}
	}
	return index
}

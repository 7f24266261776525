package items

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	_ "github.com/ledgerline/ledgerline/testing"
)

type importStore struct {
	existing map[string]bool
	inserted []Item
}

func (s *importStore) InsertImported(ctx context.Context, item Item) (bool, error) {
	if s.existing[item.SN] {
		return false, nil
	}
	s.existing[item.SN] = true
	s.inserted = append(s.inserted, item)
	return true, nil
}

type importCounts struct{ created, skipped, failed int }

func (c *importCounts) ObserveImport(created, skipped, failed int) {
	c.created += created
	c.skipped += skipped
	c.failed += failed
}

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func sequentialSerial() func(time.Time) string {
	n := 0
	return func(time.Time) string {
		n++
		return fmt.Sprintf("SN-GEN-%03d", n)
	}
}

func TestImportCreatesAndSkipsRows(t *testing.T) {
	store := &importStore{existing: map[string]bool{"SN-OLD": true}}
	counts := &importCounts{}
	im := NewImporter(store, sequentialSerial(), counts, nil)

	buf := workbook(t, [][]any{
		{"SN", "Product", "Category", "Brand", "CP", "Wholesale", "SP", "UOM", "Opening_Quantity"},
		{"SN-1", "Rice 25kg", "Grocery", "Basmati", 2000, 2100, 2300, "bag", 12},
		{"", "Lentils", "", "", "", "", 150.5, "", ""},
		{"SN-OLD", "Existing thing", "", "", 1, 1, 1, "pcs", 1},
		{"SN-1", "Duplicate in file", "", "", 1, 1, 1, "pcs", 1},
		{"SN-2", "", "", "", 1, 1, 1, "pcs", 1},
		{"SN-3", "Broken price", "", "", "abc", 1, 1, "pcs", 1},
	})

	report, err := im.Import(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 3, report.Skipped)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "row 7")
	assert.Contains(t, report.Errors[0], "cp")

	require.Len(t, store.inserted, 2)
	rice := store.inserted[0]
	assert.Equal(t, "SN-1", rice.SN)
	assert.Equal(t, "bag", rice.UOM)
	assert.True(t, decimal.NewFromInt(12).Equal(rice.OpeningQty))
	assert.True(t, rice.OpeningQty.Equal(rice.CurrentQty))
	assert.True(t, decimal.NewFromInt(2300).Equal(rice.SellingPrice))

	lentils := store.inserted[1]
	assert.Equal(t, "SN-GEN-001", lentils.SN)
	assert.Equal(t, "pcs", lentils.UOM)
	assert.True(t, lentils.CostPrice.IsZero())
	assert.True(t, decimal.RequireFromString("150.5").Equal(lentils.SellingPrice))
	assert.True(t, lentils.OpeningQty.IsZero())

	assert.Equal(t, importCounts{created: 2, skipped: 3, failed: 1}, *counts)
}

func TestImportRequiresProductColumn(t *testing.T) {
	im := NewImporter(&importStore{existing: map[string]bool{}}, nil, nil, nil)

	_, err := im.Import(context.Background(), workbook(t, [][]any{{"sn", "name"}, {"A", "B"}}))
	require.ErrorIs(t, err, ErrMissingProductColumn)

	_, err = im.Import(context.Background(), workbook(t, nil))
	require.ErrorIs(t, err, ErrEmptyWorkbook)
}

func TestImportRejectsNonWorkbook(t *testing.T) {
	im := NewImporter(&importStore{existing: map[string]bool{}}, nil, nil, nil)
	_, err := im.Import(context.Background(), bytes.NewBufferString("sn,product\n1,rice\n"))
	require.Error(t, err)
}

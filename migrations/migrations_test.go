package migrations

import (
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestFilesAreSortedAndFiltered(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_more.sql":  {Data: []byte("SELECT 1;")},
		"0001_init.sql":  {Data: []byte("SELECT 1;")},
		"0003_reset.sql": {Data: []byte("DROP TABLE items;")},
		"README.md":      {Data: []byte("notes")},
	}
	names, err := Files(fsys)
	require.NoError(t, err)
	require.Equal(t, []string{"0001_init.sql", "0002_more.sql"}, names)
}

func TestPendingSkipsApplied(t *testing.T) {
	got := Pending([]string{"0001_init.sql", "0002_more.sql"}, map[string]bool{"0001_init.sql": true})
	require.Equal(t, []string{"0002_more.sql"}, got)
	require.Empty(t, Pending([]string{"0001_init.sql"}, map[string]bool{"0001_init.sql": true}))
}

func TestEmbeddedSchemaDeclaresNamedConstraints(t *testing.T) {
	names, err := Files(FS())
	require.NoError(t, err)
	require.Contains(t, names, "0001_init.sql")

	body, err := fs.ReadFile(FS(), "0001_init.sql")
	require.NoError(t, err)
	schema := string(body)
	for _, want := range []string{
		"items_sn_key",
		"sales_bill_number_key",
		"purchases_invoice_number_key",
		"REFERENCES items (id) ON DELETE RESTRICT",
		"REFERENCES sales (id) ON DELETE CASCADE",
		"document_sequences",
		"idempotency_keys",
	} {
		require.True(t, strings.Contains(schema, want), want)
	}
}

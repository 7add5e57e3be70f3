package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFS_UpAndDownPaired(t *testing.T) {
	entries, err := fs.ReadDir(FS, ".")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}

	assert.Equal(t, ups, downs)
}

func TestFS_SchemaConstraints(t *testing.T) {
	up, err := fs.ReadFile(FS, "000001_create_inventory.up.sql")
	require.NoError(t, err)

	schema := string(up)
	for _, constraint := range []string{
		"inventory_batches_pad_batch_id_key",
		"inventory_batches_current_stock_non_negative",
		"distribution_records_batch_id_fkey",
		"ON DELETE RESTRICT",
	} {
		assert.Contains(t, schema, constraint)
	}
}

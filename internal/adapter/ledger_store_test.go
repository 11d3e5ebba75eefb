package adapter

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "github.com/mouse-blink/refit/internal/model"
)

func TestLedger_RecordAndHistory(t *testing.T) {
	store, err := NewSQLiteLedgerStore(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)

	defer store.Close()

	ctx := context.Background()

	first := m.ImprovementRecord{
		Path:        "src/calc.py",
		Kind:        m.FixMissingDocstring,
		Original:    "def add(a, b):",
		New:         "def add(a, b):\n    \"\"\"Add.\"\"\"",
		Description: "added docstring",
		CreatedAt:   time.Now().Add(-time.Hour),
	}
	second := m.ImprovementRecord{
		Path:        "src/calc.py",
		Kind:        m.FixMissingReturnType,
		Description: "annotated return type",
	}

	require.NoError(t, store.Record(ctx, first))
	require.NoError(t, store.Record(ctx, second))

	records, err := store.History(ctx, "src/calc.py", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// newest first
	assert.Equal(t, m.FixMissingReturnType, records[0].Kind)
	assert.Equal(t, m.FixMissingDocstring, records[1].Kind)
	assert.NotEmpty(t, records[0].ID)
	assert.False(t, records[0].CreatedAt.IsZero())
}

func TestLedger_HistoryLimitAndScope(t *testing.T) {
	store, err := NewSQLiteLedgerStore(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)

	defer store.Close()

	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, m.ImprovementRecord{
			Path:        "a.py",
			Kind:        m.FixMissingDocstring,
			Description: "added docstring",
			CreatedAt:   time.Now().Add(time.Duration(i) * time.Minute),
		}))
	}

	require.NoError(t, store.Record(ctx, m.ImprovementRecord{
		Path:        "b.py",
		Kind:        m.FixMissingDocstring,
		Description: "added docstring",
	}))

	records, err := store.History(ctx, "a.py", 3)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	records, err = store.History(ctx, "b.py", 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

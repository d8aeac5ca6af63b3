package merge_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tessera/internal/merge"
	"tessera/internal/repository/memory"
)

func strPtr(s string) *string { return &s }

func TestEngine_SinglePassRoundTrip(t *testing.T) {
	eng := merge.NewEngine(memory.NewReferenceRepo(), false)
	sessionID := uuid.New()
	ctx := context.Background()

	err := eng.RecordPassOutput(ctx, sessionID, 0, []merge.Fact{
		{RecordIndex: 0, FieldName: "Description", Value: strPtr("Paper")},
		{RecordIndex: 0, FieldName: "Quantity", Value: strPtr("5")},
		{RecordIndex: 1, FieldName: "Description", Value: strPtr("Pens")},
	})
	require.NoError(t, err)

	rows, err := eng.MergeUpTo(ctx, sessionID, 0, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 0, rows[0].RecordIndex)
	assert.Equal(t, "Paper", *rows[0].Fields["Description"])
	assert.Equal(t, "5", *rows[0].Fields["Quantity"])
	assert.Equal(t, "Pens", *rows[1].Fields["Description"])
}

func TestEngine_LaterPassWinsPerField(t *testing.T) {
	eng := merge.NewEngine(memory.NewReferenceRepo(), false)
	sessionID := uuid.New()
	ctx := context.Background()

	// Pass 0 extracts description and quantity.
	require.NoError(t, eng.RecordPassOutput(ctx, sessionID, 0, []merge.Fact{
		{RecordIndex: 0, FieldName: "Description", Value: strPtr("Paper")},
		{RecordIndex: 0, FieldName: "Quantity", Value: strPtr("5")},
	}))
	// Pass 1 restates only the quantity.
	require.NoError(t, eng.RecordPassOutput(ctx, sessionID, 1, []merge.Fact{
		{RecordIndex: 0, FieldName: "Quantity", Value: strPtr("6")},
	}))

	rows, err := eng.MergeUpTo(ctx, sessionID, 1, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	// Untouched field survives, restated field takes the newest value.
	assert.Equal(t, "Paper", *rows[0].Fields["Description"])
	assert.Equal(t, "6", *rows[0].Fields["Quantity"])
}

func TestEngine_MergeCutoffExcludesLaterPasses(t *testing.T) {
	eng := merge.NewEngine(memory.NewReferenceRepo(), false)
	sessionID := uuid.New()
	ctx := context.Background()

	require.NoError(t, eng.RecordPassOutput(ctx, sessionID, 0, []merge.Fact{
		{RecordIndex: 0, FieldName: "Quantity", Value: strPtr("5")},
	}))
	require.NoError(t, eng.RecordPassOutput(ctx, sessionID, 1, []merge.Fact{
		{RecordIndex: 0, FieldName: "Quantity", Value: strPtr("6")},
	}))

	rows, err := eng.MergeUpTo(ctx, sessionID, 0, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "5", *rows[0].Fields["Quantity"])
}

func TestEngine_NullValueOverwrites(t *testing.T) {
	eng := merge.NewEngine(memory.NewReferenceRepo(), false)
	sessionID := uuid.New()
	ctx := context.Background()

	require.NoError(t, eng.RecordPassOutput(ctx, sessionID, 0, []merge.Fact{
		{RecordIndex: 0, FieldName: "Notes", Value: strPtr("smudged")},
	}))
	require.NoError(t, eng.RecordPassOutput(ctx, sessionID, 1, []merge.Fact{
		{RecordIndex: 0, FieldName: "Notes", Value: nil},
	}))

	rows, err := eng.MergeUpTo(ctx, sessionID, 1, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	value, stated := rows[0].Fields["Notes"]
	assert.True(t, stated)
	assert.Nil(t, value)
}

func TestEngine_RowsOrderedByRecordIndex(t *testing.T) {
	eng := merge.NewEngine(memory.NewReferenceRepo(), false)
	sessionID := uuid.New()
	ctx := context.Background()

	require.NoError(t, eng.RecordPassOutput(ctx, sessionID, 0, []merge.Fact{
		{RecordIndex: 2, FieldName: "Item", Value: strPtr("c")},
		{RecordIndex: 0, FieldName: "Item", Value: strPtr("a")},
		{RecordIndex: 1, FieldName: "Item", Value: strPtr("b")},
	}))

	rows, err := eng.MergeUpTo(ctx, sessionID, 0, "")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{rows[0].RecordIndex, rows[1].RecordIndex, rows[2].RecordIndex})
}

func TestEngine_EmptyPassRecordsNothing(t *testing.T) {
	eng := merge.NewEngine(memory.NewReferenceRepo(), false)
	sessionID := uuid.New()
	ctx := context.Background()

	require.NoError(t, eng.RecordPassOutput(ctx, sessionID, 0, nil))
	rows, err := eng.MergeUpTo(ctx, sessionID, 0, "")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEngine_ByIdentifierSurvivesReordering(t *testing.T) {
	eng := merge.NewEngine(memory.NewReferenceRepo(), true)
	sessionID := uuid.New()
	ctx := context.Background()

	// Pass 0: SKU-A at index 0, SKU-B at index 1.
	require.NoError(t, eng.RecordPassOutput(ctx, sessionID, 0, []merge.Fact{
		{RecordIndex: 0, FieldName: "SKU", Value: strPtr("SKU-A")},
		{RecordIndex: 0, FieldName: "Quantity", Value: strPtr("5")},
		{RecordIndex: 1, FieldName: "SKU", Value: strPtr("SKU-B")},
		{RecordIndex: 1, FieldName: "Quantity", Value: strPtr("2")},
	}))
	// Pass 1 enumerates the rows in the opposite order.
	require.NoError(t, eng.RecordPassOutput(ctx, sessionID, 1, []merge.Fact{
		{RecordIndex: 0, FieldName: "SKU", Value: strPtr("SKU-B")},
		{RecordIndex: 0, FieldName: "Price", Value: strPtr("1.50")},
		{RecordIndex: 1, FieldName: "SKU", Value: strPtr("SKU-A")},
		{RecordIndex: 1, FieldName: "Price", Value: strPtr("9.00")},
	}))

	rows, err := eng.MergeUpTo(ctx, sessionID, 1, "SKU")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// SKU-A keeps its canonical index 0 and picks up the pass-1 price.
	assert.Equal(t, "SKU-A", *rows[0].Fields["SKU"])
	assert.Equal(t, "5", *rows[0].Fields["Quantity"])
	assert.Equal(t, "9.00", *rows[0].Fields["Price"])
	assert.Equal(t, "SKU-B", *rows[1].Fields["SKU"])
	assert.Equal(t, "2", *rows[1].Fields["Quantity"])
	assert.Equal(t, "1.50", *rows[1].Fields["Price"])
}

func TestEngine_ByIdentifierNewValueAtReusedIndexGetsNewRow(t *testing.T) {
	eng := merge.NewEngine(memory.NewReferenceRepo(), true)
	sessionID := uuid.New()
	ctx := context.Background()

	require.NoError(t, eng.RecordPassOutput(ctx, sessionID, 0, []merge.Fact{
		{RecordIndex: 0, FieldName: "Description", Value: strPtr("Paper")},
		{RecordIndex: 0, FieldName: "Quantity", Value: strPtr("5")},
		{RecordIndex: 1, FieldName: "Description", Value: strPtr("Pen")},
	}))
	// Pass 1 finds a row pass 0 missed; its pass-local index 0 is
	// already taken by Paper.
	require.NoError(t, eng.RecordPassOutput(ctx, sessionID, 1, []merge.Fact{
		{RecordIndex: 0, FieldName: "Description", Value: strPtr("Marker")},
		{RecordIndex: 0, FieldName: "Quantity", Value: strPtr("9")},
	}))

	rows, err := eng.MergeUpTo(ctx, sessionID, 1, "Description")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// The existing rows keep their identity and fields.
	assert.Equal(t, "Paper", *rows[0].Fields["Description"])
	assert.Equal(t, "5", *rows[0].Fields["Quantity"])
	assert.Equal(t, "Pen", *rows[1].Fields["Description"])
	// The new identifier lands on its own row past the known ones.
	assert.Equal(t, 2, rows[2].RecordIndex)
	assert.Equal(t, "Marker", *rows[2].Fields["Description"])
	assert.Equal(t, "9", *rows[2].Fields["Quantity"])
}

func TestEngine_RestatementWithinPassLastStatementWins(t *testing.T) {
	repo := memory.NewReferenceRepo()
	eng := merge.NewEngine(repo, false)
	sessionID := uuid.New()
	ctx := context.Background()

	require.NoError(t, eng.RecordPassOutput(ctx, sessionID, 0, []merge.Fact{
		{RecordIndex: 0, FieldName: "Quantity", Value: strPtr("5")},
		{RecordIndex: 0, FieldName: "Quantity", Value: strPtr("7")},
	}))

	// Statement order is preserved in the stored timestamps, so the
	// corrected value wins regardless of storage backend.
	refs, err := repo.ListUpTo(ctx, sessionID, 0)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.True(t, refs[0].CreatedAt.Before(refs[1].CreatedAt))

	rows, err := eng.MergeUpTo(ctx, sessionID, 0, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "7", *rows[0].Fields["Quantity"])
}

func TestEngine_ByIdentifierFallsBackToIndexWithoutIdentifier(t *testing.T) {
	eng := merge.NewEngine(memory.NewReferenceRepo(), true)
	sessionID := uuid.New()
	ctx := context.Background()

	require.NoError(t, eng.RecordPassOutput(ctx, sessionID, 0, []merge.Fact{
		{RecordIndex: 0, FieldName: "Quantity", Value: strPtr("5")},
	}))
	require.NoError(t, eng.RecordPassOutput(ctx, sessionID, 1, []merge.Fact{
		{RecordIndex: 0, FieldName: "Price", Value: strPtr("3.00")},
	}))

	rows, err := eng.MergeUpTo(ctx, sessionID, 1, "SKU")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "5", *rows[0].Fields["Quantity"])
	assert.Equal(t, "3.00", *rows[0].Fields["Price"])
}

func TestKnownRows(t *testing.T) {
	rows := []merge.Row{
		{RecordIndex: 0, Fields: map[string]*string{"A": strPtr("1")}},
		{RecordIndex: 1, Fields: map[string]*string{"A": strPtr("2")}},
	}
	known := merge.KnownRows(rows)
	require.Len(t, known, 2)
	assert.Equal(t, 0, known[0].RecordIndex)
	assert.Equal(t, "1", *known[0].Fields["A"])
}

package gridexport_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tessera/internal/domain"
	"tessera/internal/grid"
	"tessera/internal/gridexport"
	"tessera/internal/repository/memory"
	"tessera/internal/schema"
)

func strPtr(s string) *string { return &s }

// exportFixture resolves a small schema and fills a grid with two rows.
func exportFixture(t *testing.T) (*schema.Resolved, []grid.GridCell) {
	t.Helper()
	ctx := context.Background()
	projectRepo := memory.NewProjectRepo()
	schemaRepo := memory.NewSchemaRepo()

	projectID := uuid.New()
	require.NoError(t, projectRepo.Create(ctx, &domain.Project{
		ID: projectID, Name: "p", SchemaMode: domain.SchemaModeFixed, CreatedBy: uuid.New(),
	}))
	require.NoError(t, schemaRepo.CreateField(ctx, &domain.SchemaField{
		ID: uuid.New(), ProjectID: projectID, Name: "InvoiceNumber", FieldType: domain.FieldTypeText,
	}))
	collectionID := uuid.New()
	require.NoError(t, schemaRepo.CreateCollection(ctx, &domain.Collection{
		ID: collectionID, ProjectID: projectID, Name: "Items",
	}))
	require.NoError(t, schemaRepo.CreateProperty(ctx, &domain.CollectionProperty{
		ID: uuid.New(), CollectionID: collectionID, Name: "SKU",
		FieldType: domain.FieldTypeText, IsIdentifier: true, OrderIndex: 0,
	}))
	require.NoError(t, schemaRepo.CreateProperty(ctx, &domain.CollectionProperty{
		ID: uuid.New(), CollectionID: collectionID, Name: "Quantity",
		FieldType: domain.FieldTypeNumber, OrderIndex: 1,
	}))

	sc, err := schema.NewRegistry(projectRepo, schemaRepo).Resolve(ctx, projectID)
	require.NoError(t, err)

	store := grid.NewStore(memory.NewFieldValidationRepo(), 70)
	sessionID := uuid.New()
	_, err = store.ApplyPass(ctx, sc, nil, sessionID, []grid.Write{
		{RecordIndex: 0, FieldName: "InvoiceNumber", Value: strPtr("INV-17"), Confidence: 95},
		{RecordIndex: 0, FieldName: "SKU", Value: strPtr("SKU-A"), Confidence: 92},
		{RecordIndex: 0, FieldName: "Quantity", Value: strPtr("5"), Confidence: 88},
		{RecordIndex: 1, FieldName: "SKU", Value: strPtr("SKU-B"), Confidence: 90},
	})
	require.NoError(t, err)

	cells, err := store.Grid(ctx, sc, sessionID)
	require.NoError(t, err)
	return sc, cells
}

func TestWriter_CSVExport(t *testing.T) {
	sc, cells := exportFixture(t)

	var buf bytes.Buffer
	w := gridexport.NewWriter(&buf)
	require.NoError(t, w.WriteHeader(sc))
	require.NoError(t, w.WriteGrid(sc, cells))
	w.Flush()
	require.NoError(t, w.Error())

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"Record", "InvoiceNumber", "Items.SKU", "Items.Quantity"}, records[0])
	assert.Equal(t, []string{"0", "INV-17", "SKU-A", "5"}, records[1])
	// Row 1 has a materialized, still-empty quantity.
	assert.Equal(t, []string{"1", "", "SKU-B", ""}, records[2])
}

func TestPivot_DropsMismatchedCells(t *testing.T) {
	sc, cells := exportFixture(t)

	cells = append(cells, grid.GridCell{
		FieldValidation: domain.FieldValidation{
			ID:             uuid.New(),
			ElementID:      uuid.New(), // not in the schema
			RecordIndex:    0,
			ExtractedValue: strPtr("4kg"),
			SchemaMismatch: true,
		},
		FieldName: "Shipping Weight",
	})

	rows := gridexport.Pivot(sc, cells)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Len(t, row, 4)
		assert.NotContains(t, row, "4kg")
	}
}

func TestWriteXLSX(t *testing.T) {
	sc, cells := exportFixture(t)

	var buf bytes.Buffer
	require.NoError(t, gridexport.WriteXLSX(&buf, sc, cells))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Grid")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Items.SKU", rows[0][2])
	assert.Equal(t, "SKU-A", rows[1][2])

	long, err := f.GetRows("Cells")
	require.NoError(t, err)
	// Header plus one line per stored cell.
	assert.Len(t, long, len(cells)+1)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"My Session (final)", "My_Session_final"},
		{"already-clean_name", "already-clean_name"},
		{"__trimmed__", "trimmed"},
		{"a  b//c", "a_b_c"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, gridexport.SanitizeFilename(tt.in))
	}

	long := strings.Repeat("x", 150)
	assert.Len(t, gridexport.SanitizeFilename(long), 100)
}

func TestBuildFilename(t *testing.T) {
	name := gridexport.BuildFilename("session export", "csv")
	assert.Equal(t, fmt.Sprintf("session_export_%s.csv", time.Now().Format("2006-01-02")), name)
}

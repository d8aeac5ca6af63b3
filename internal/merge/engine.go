package merge

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"tessera/internal/domain"
	"tessera/internal/port"
)

// Fact is one (recordIndex, fieldName, value) triple emitted by a pass.
type Fact struct {
	RecordIndex int
	FieldName   string
	Value       *string
}

// Row is one merged, row-aligned record across all passes up to a cutoff.
type Row struct {
	RecordIndex int
	Fields      map[string]*string
}

// Engine persists raw pass output and produces the merged view the next
// pass (and the session snapshot) is built from.
//
// By default rows are aligned across passes by record index, which
// assumes every pass enumerates a repeating group in the same order.
// With byIdentifier set, rows are instead keyed by the identifier
// column's value, which survives re-ordering between passes.
type Engine struct {
	refRepo      port.ReferenceRepository
	byIdentifier bool
}

// NewEngine creates a merge Engine.
func NewEngine(refRepo port.ReferenceRepository, byIdentifier bool) *Engine {
	return &Engine{refRepo: refRepo, byIdentifier: byIdentifier}
}

// RecordPassOutput appends the identifier references for one pass.
// No read-before-write: a later pass may restate any (recordIndex,
// fieldName) already written by an earlier one. Timestamps within the
// batch are strictly increasing so statement order survives a re-read
// even when one pass restates the same field twice.
func (e *Engine) RecordPassOutput(ctx context.Context, sessionID uuid.UUID, extractionNumber int, facts []Fact) error {
	if len(facts) == 0 {
		return nil
	}
	now := time.Now().UTC()
	refs := make([]domain.IdentifierReference, 0, len(facts))
	for i, f := range facts {
		refs = append(refs, domain.IdentifierReference{
			ID:               uuid.New(),
			SessionID:        sessionID,
			ExtractionNumber: extractionNumber,
			RecordIndex:      f.RecordIndex,
			FieldName:        f.FieldName,
			ExtractedValue:   f.Value,
			CreatedAt:        now.Add(time.Duration(i) * time.Microsecond),
		})
	}
	if err := e.refRepo.CreateBatch(ctx, refs); err != nil {
		return fmt.Errorf("recording pass %d output: %w", extractionNumber, err)
	}
	return nil
}

// MergeUpTo groups all references with extraction_number <=
// maxExtractionNumber into rows. Within a row, the value for a field
// comes from the highest extraction number that stated it (last writer
// wins by pass order, not insertion time). Rows are ordered by ascending
// record index. identifierField names the row-identity column and is
// only consulted in by-identifier mode; pass "" when the session's
// schema has no repeating group.
func (e *Engine) MergeUpTo(ctx context.Context, sessionID uuid.UUID, maxExtractionNumber int, identifierField string) ([]Row, error) {
	refs, err := e.refRepo.ListUpTo(ctx, sessionID, maxExtractionNumber)
	if err != nil {
		return nil, fmt.Errorf("listing references up to pass %d: %w", maxExtractionNumber, err)
	}
	if e.byIdentifier && identifierField != "" {
		return mergeByIdentifier(refs, identifierField), nil
	}
	return mergeByIndex(refs), nil
}

// mergeByIndex aligns rows across passes strictly by record index.
// refs arrive ordered by ascending extraction number, so overwriting in
// iteration order implements last-writer-wins by pass.
func mergeByIndex(refs []domain.IdentifierReference) []Row {
	rows := make(map[int]map[string]*string)
	for i := range refs {
		ref := &refs[i]
		fields, ok := rows[ref.RecordIndex]
		if !ok {
			fields = make(map[string]*string)
			rows[ref.RecordIndex] = fields
		}
		fields[ref.FieldName] = ref.ExtractedValue
	}
	return sortRows(rows)
}

// mergeByIdentifier keys rows by the identifier column's value. A pass
// row whose identifier value was seen before merges into that row even
// if its record index moved; a new identifier value whose pass-local
// index already belongs to a different identifier gets a fresh row
// instead of absorbing it. A row that never states an identifier falls
// back to index alignment.
func mergeByIdentifier(refs []domain.IdentifierReference, identifierField string) []Row {
	type passRow struct {
		pass   int
		index  int
		fields map[string]*string
	}

	// Rebuild per-pass rows in pass order.
	var ordered []*passRow
	byPassIndex := make(map[[2]int]*passRow)
	for i := range refs {
		ref := &refs[i]
		key := [2]int{ref.ExtractionNumber, ref.RecordIndex}
		pr, ok := byPassIndex[key]
		if !ok {
			pr = &passRow{pass: ref.ExtractionNumber, index: ref.RecordIndex, fields: make(map[string]*string)}
			byPassIndex[key] = pr
			ordered = append(ordered, pr)
		}
		pr.fields[ref.FieldName] = ref.ExtractedValue
	}

	merged := make(map[int]map[string]*string) // by canonical record index
	idToIndex := make(map[string]int)          // identifier value -> canonical index
	indexToID := make(map[int]string)          // canonical index -> identifier value
	nextIndex := 0
	for _, pr := range ordered {
		canonical := pr.index
		if idVal, ok := pr.fields[identifierField]; ok && idVal != nil && *idVal != "" {
			if existing, seen := idToIndex[*idVal]; seen {
				canonical = existing
			} else {
				if owner, claimed := indexToID[canonical]; claimed && owner != *idVal {
					canonical = nextIndex
				}
				idToIndex[*idVal] = canonical
				indexToID[canonical] = *idVal
			}
		}
		if canonical >= nextIndex {
			nextIndex = canonical + 1
		}
		fields, ok := merged[canonical]
		if !ok {
			fields = make(map[string]*string)
			merged[canonical] = fields
		}
		for name, value := range pr.fields {
			fields[name] = value
		}
	}
	return sortRows(merged)
}

func sortRows(byIndex map[int]map[string]*string) []Row {
	rows := make([]Row, 0, len(byIndex))
	for idx, fields := range byIndex {
		rows = append(rows, Row{RecordIndex: idx, Fields: fields})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].RecordIndex < rows[j].RecordIndex })
	return rows
}

// KnownRows renders merged rows as the identifier-reference context
// handed to the next pass's worker input.
func KnownRows(rows []Row) []port.KnownRow {
	known := make([]port.KnownRow, 0, len(rows))
	for _, r := range rows {
		known = append(known, port.KnownRow{RecordIndex: r.RecordIndex, Fields: r.Fields})
	}
	return known
}

package grid

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"tessera/internal/domain"
	"tessera/internal/port"
	"tessera/internal/rules"
	"tessera/internal/schema"
)

// Outcome classifies the result of a single cell write.
type Outcome string

const (
	OutcomeWritten        Outcome = "written"
	OutcomeSkipped        Outcome = "skipped"
	OutcomeSchemaMismatch Outcome = "schema_mismatch"
)

// CellWrite is one candidate cell write. Manual marks a user edit, which
// is allowed to overwrite a manually verified cell and bypasses rule
// evaluation.
type CellWrite struct {
	SessionID    uuid.UUID
	ElementID    uuid.UUID
	FieldName    string
	RecordIndex  int
	IdentifierID string
	Value        *string
	Confidence   float64
	Reasoning    string
	Manual       bool
}

// Write is one extracted fact a completed pass wants applied to the grid.
type Write struct {
	RecordIndex int
	FieldName   string
	Value       *string
	Confidence  float64
	Reasoning   string
}

// PassStats summarizes applying one pass to the grid.
type PassStats struct {
	Written      int `json:"written"`
	Skipped      int `json:"skipped"`
	Mismatched   int `json:"mismatched"`
	Placeholders int `json:"placeholders"`
}

// GridCell is a stored cell enriched with names resolved from the schema
// at read time. Mismatched cells fall back to the name the worker
// reported.
type GridCell struct {
	domain.FieldValidation
	FieldName string `json:"field_name"`
	GroupName string `json:"group_name,omitempty"`
}

// Store maintains the validation grid: the addressable cell table for a
// session, with every identifier-bearing row fully materialized.
type Store struct {
	cellRepo       port.FieldValidationRepository
	validThreshold float64
}

// NewStore creates a grid Store. validThreshold is the confidence score
// at or above which a written cell is marked valid.
func NewStore(cellRepo port.FieldValidationRepository, validThreshold float64) *Store {
	return &Store{cellRepo: cellRepo, validThreshold: validThreshold}
}

// UpsertCell writes one cell. A manually verified cell is never
// overwritten by a non-manual write; the write is skipped, not an error.
// An element the schema does not know is still stored, flagged as a
// schema mismatch, so the value is not lost.
func (s *Store) UpsertCell(ctx context.Context, sc *schema.Resolved, eng *rules.Engine, w CellWrite) (*domain.FieldValidation, Outcome, error) {
	el, known := sc.Element(w.ElementID)

	existing, err := s.cellRepo.GetByKey(ctx, w.SessionID, w.ElementID, w.RecordIndex)
	if err != nil && !errors.Is(err, domain.ErrCellNotFound) {
		return nil, "", fmt.Errorf("loading cell: %w", err)
	}
	if existing != nil && existing.ManuallyVerified && !w.Manual {
		log.Printf("grid.Store.UpsertCell: cell %s is manually verified, skipping write", existing.ID)
		return existing, OutcomeSkipped, nil
	}

	confidence := w.Confidence
	invalid := false
	if eng != nil && !w.Manual {
		out := eng.Apply(w.FieldName, w.Value, w.Confidence)
		confidence = out.Confidence
		invalid = out.Invalid
	}
	status := s.statusFor(confidence, invalid)

	outcome := OutcomeWritten
	now := time.Now().UTC()
	cell := existing
	if cell == nil {
		cell = &domain.FieldValidation{
			ID:          uuid.New(),
			SessionID:   w.SessionID,
			ElementID:   w.ElementID,
			RecordIndex: w.RecordIndex,
			CreatedAt:   now,
		}
	}
	cell.IdentifierID = w.IdentifierID
	cell.ExtractedValue = w.Value
	cell.ValidationStatus = status
	cell.AIReasoning = w.Reasoning
	cell.ConfidenceScore = confidence
	cell.UpdatedAt = now
	if w.Manual {
		cell.ManuallyUpdated = true
	}
	if known {
		cell.GroupID = el.GroupID
		cell.ElementName = nil
		cell.SchemaMismatch = false
	} else {
		name := w.FieldName
		cell.ElementName = &name
		cell.SchemaMismatch = true
		outcome = OutcomeSchemaMismatch
		log.Printf("grid.Store.UpsertCell: session %s: element %s (%q) not in schema, storing as mismatch", w.SessionID, w.ElementID, w.FieldName)
	}

	if existing == nil {
		err = s.cellRepo.Create(ctx, cell)
	} else {
		err = s.cellRepo.Update(ctx, cell)
	}
	if err != nil {
		return nil, "", fmt.Errorf("writing cell: %w", err)
	}
	return cell, outcome, nil
}

// ApplyPass applies a completed pass's facts to the grid. Within each
// record index the identifier column is written first so the row's
// placeholders exist before any other column of the row is written.
func (s *Store) ApplyPass(ctx context.Context, sc *schema.Resolved, eng *rules.Engine, sessionID uuid.UUID, writes []Write) (*PassStats, error) {
	byIndex := make(map[int][]Write)
	for _, w := range writes {
		byIndex[w.RecordIndex] = append(byIndex[w.RecordIndex], w)
	}
	indexes := make([]int, 0, len(byIndex))
	for idx := range byIndex {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	stats := &PassStats{}
	for _, idx := range indexes {
		if err := s.applyRow(ctx, sc, eng, sessionID, idx, byIndex[idx], stats); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (s *Store) applyRow(ctx context.Context, sc *schema.Resolved, eng *rules.Engine, sessionID uuid.UUID, recordIndex int, writes []Write, stats *PassStats) error {
	// Row identity per group, taken from this pass's identifier facts.
	rowIDs := make(map[uuid.UUID]string)

	// Identifier columns first: they fix row identity and trigger
	// placeholder materialization for the rest of the row.
	for _, w := range writes {
		el, ok := sc.ElementByName(w.FieldName)
		if !ok || !el.IsIdentifier {
			continue
		}
		identifierID := ""
		if w.Value != nil {
			identifierID = *w.Value
		}
		rowIDs[*el.GroupID] = identifierID
		if err := s.upsertFromPass(ctx, sc, eng, sessionID, el.ID, w, identifierID, stats); err != nil {
			return err
		}
		created, err := s.materializeRow(ctx, sc, sessionID, el, recordIndex, identifierID)
		if err != nil {
			return err
		}
		stats.Placeholders += created
	}

	for _, w := range writes {
		el, ok := sc.ElementByName(w.FieldName)
		if !ok {
			// Deterministic ID so restating the same unknown field in a
			// later pass updates the same cell instead of duplicating it.
			elementID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(sessionID.String()+"/"+w.FieldName))
			if err := s.upsertFromPass(ctx, sc, eng, sessionID, elementID, w, "", stats); err != nil {
				return err
			}
			continue
		}
		if el.IsIdentifier {
			continue
		}
		identifierID := ""
		if el.GroupID != nil {
			id, ok := rowIDs[*el.GroupID]
			if !ok {
				id, ok = s.rowIdentity(ctx, sc, sessionID, el, recordIndex)
				if !ok {
					// Identifier column never stated for this row: a null
					// placeholder still has to exist before the cell does.
					if idEl, has := sc.Identifier(*el.GroupID); has {
						created, err := s.materializeRow(ctx, sc, sessionID, idEl, recordIndex, "")
						if err != nil {
							return err
						}
						stats.Placeholders += created
						made, err := s.ensurePlaceholder(ctx, sessionID, idEl, recordIndex, "")
						if err != nil {
							return err
						}
						if made {
							stats.Placeholders++
						}
					}
				}
				rowIDs[*el.GroupID] = id
			}
			identifierID = id
		}
		if err := s.upsertFromPass(ctx, sc, eng, sessionID, el.ID, w, identifierID, stats); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) upsertFromPass(ctx context.Context, sc *schema.Resolved, eng *rules.Engine, sessionID, elementID uuid.UUID, w Write, identifierID string, stats *PassStats) error {
	_, outcome, err := s.UpsertCell(ctx, sc, eng, CellWrite{
		SessionID:    sessionID,
		ElementID:    elementID,
		FieldName:    w.FieldName,
		RecordIndex:  w.RecordIndex,
		IdentifierID: identifierID,
		Value:        w.Value,
		Confidence:   w.Confidence,
		Reasoning:    w.Reasoning,
	})
	if err != nil {
		return fmt.Errorf("applying %q at index %d: %w", w.FieldName, w.RecordIndex, err)
	}
	switch outcome {
	case OutcomeWritten:
		stats.Written++
	case OutcomeSkipped:
		stats.Skipped++
	case OutcomeSchemaMismatch:
		stats.Mismatched++
	}
	return nil
}

// rowIdentity reads the identifier cell of el's group at recordIndex, if
// one exists, and returns its identifier value.
func (s *Store) rowIdentity(ctx context.Context, sc *schema.Resolved, sessionID uuid.UUID, el *schema.Element, recordIndex int) (string, bool) {
	idEl, ok := sc.Identifier(*el.GroupID)
	if !ok {
		return "", true
	}
	cell, err := s.cellRepo.GetByKey(ctx, sessionID, idEl.ID, recordIndex)
	if err != nil {
		return "", false
	}
	return cell.IdentifierID, true
}

// materializeRow creates pending, null-valued placeholder cells for every
// column of the identifier's group at recordIndex that has no cell yet.
// Safe to call repeatedly for the same identifier.
func (s *Store) materializeRow(ctx context.Context, sc *schema.Resolved, sessionID uuid.UUID, idEl *schema.Element, recordIndex int, identifierID string) (int, error) {
	created := 0
	for _, col := range sc.GroupColumns(*idEl.GroupID) {
		if col.ID == idEl.ID {
			continue
		}
		_, err := s.cellRepo.GetByKey(ctx, sessionID, col.ID, recordIndex)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrCellNotFound) {
			return created, fmt.Errorf("checking cell for %q at index %d: %w", col.Name, recordIndex, err)
		}
		made, err := s.ensurePlaceholder(ctx, sessionID, col, recordIndex, identifierID)
		if err != nil {
			return created, err
		}
		if made {
			created++
		}
	}
	return created, nil
}

func (s *Store) ensurePlaceholder(ctx context.Context, sessionID uuid.UUID, el *schema.Element, recordIndex int, identifierID string) (bool, error) {
	_, err := s.cellRepo.GetByKey(ctx, sessionID, el.ID, recordIndex)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrCellNotFound) {
		return false, fmt.Errorf("checking placeholder for %q at index %d: %w", el.Name, recordIndex, err)
	}
	now := time.Now().UTC()
	cell := &domain.FieldValidation{
		ID:               uuid.New(),
		SessionID:        sessionID,
		ElementID:        el.ID,
		GroupID:          el.GroupID,
		RecordIndex:      recordIndex,
		IdentifierID:     identifierID,
		ValidationStatus: domain.ValidationStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.cellRepo.Create(ctx, cell); err != nil {
		return false, fmt.Errorf("creating placeholder for %q at index %d: %w", el.Name, recordIndex, err)
	}
	return true, nil
}

// EditCell applies a user edit to a cell by ID. The edit overwrites any
// prior value, marks the cell manually updated and gives it full
// confidence.
func (s *Store) EditCell(ctx context.Context, cellID uuid.UUID, value *string, reasoning string) (*domain.FieldValidation, error) {
	cell, err := s.cellRepo.GetByID(ctx, cellID)
	if err != nil {
		return nil, fmt.Errorf("loading cell %s: %w", cellID, err)
	}
	now := time.Now().UTC()
	cell.ExtractedValue = value
	cell.ConfidenceScore = 100
	cell.ValidationStatus = s.statusFor(100, false)
	if reasoning != "" {
		cell.AIReasoning = reasoning
	}
	cell.ManuallyUpdated = true
	cell.UpdatedAt = now
	if err := s.cellRepo.Update(ctx, cell); err != nil {
		return nil, fmt.Errorf("updating cell %s: %w", cellID, err)
	}
	return cell, nil
}

// Verify sets or clears a cell's manually-verified flag. A verified cell
// is pinned: automated writes can no longer change it.
func (s *Store) Verify(ctx context.Context, cellID uuid.UUID, verified bool) (*domain.FieldValidation, error) {
	cell, err := s.cellRepo.GetByID(ctx, cellID)
	if err != nil {
		return nil, fmt.Errorf("loading cell %s: %w", cellID, err)
	}
	cell.ManuallyVerified = verified
	cell.UpdatedAt = time.Now().UTC()
	if err := s.cellRepo.Update(ctx, cell); err != nil {
		return nil, fmt.Errorf("updating cell %s: %w", cellID, err)
	}
	return cell, nil
}

// Grid returns all cells for a session enriched with element and group
// names resolved from the schema at read time. Names are not stored
// denormalized so schema renames show up immediately.
func (s *Store) Grid(ctx context.Context, sc *schema.Resolved, sessionID uuid.UUID) ([]GridCell, error) {
	cells, err := s.cellRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing cells for session %s: %w", sessionID, err)
	}
	out := make([]GridCell, 0, len(cells))
	for i := range cells {
		cell := cells[i]
		gc := GridCell{FieldValidation: cell}
		if el, ok := sc.Element(cell.ElementID); ok {
			gc.FieldName = el.Name
			gc.GroupName = el.GroupName
		} else if cell.ElementName != nil {
			gc.FieldName = *cell.ElementName
		}
		out = append(out, gc)
	}
	return out, nil
}

func (s *Store) statusFor(confidence float64, invalid bool) domain.ValidationStatus {
	if invalid {
		return domain.ValidationStatusInvalid
	}
	if confidence >= s.validThreshold {
		return domain.ValidationStatusValid
	}
	return domain.ValidationStatusPending
}

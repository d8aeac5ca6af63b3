package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tessera/internal/domain"
	"tessera/internal/port"
)

type cellKey struct {
	sessionID   uuid.UUID
	elementID   uuid.UUID
	recordIndex int
}

type fieldValidationRepo struct {
	mu    sync.RWMutex
	cells map[uuid.UUID]domain.FieldValidation
	byKey map[cellKey]uuid.UUID
}

// NewFieldValidationRepo creates a new in-memory FieldValidationRepository.
func NewFieldValidationRepo() port.FieldValidationRepository {
	return &fieldValidationRepo{
		cells: make(map[uuid.UUID]domain.FieldValidation),
		byKey: make(map[cellKey]uuid.UUID),
	}
}

func (r *fieldValidationRepo) Create(ctx context.Context, cell *domain.FieldValidation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if cell.CreatedAt.IsZero() {
		cell.CreatedAt = now
	}
	if cell.UpdatedAt.IsZero() {
		cell.UpdatedAt = now
	}
	r.cells[cell.ID] = *cell
	r.byKey[cellKey{cell.SessionID, cell.ElementID, cell.RecordIndex}] = cell.ID
	return nil
}

func (r *fieldValidationRepo) GetByID(ctx context.Context, cellID uuid.UUID) (*domain.FieldValidation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cell, ok := r.cells[cellID]
	if !ok {
		return nil, domain.ErrCellNotFound
	}
	return &cell, nil
}

func (r *fieldValidationRepo) GetByKey(ctx context.Context, sessionID, elementID uuid.UUID, recordIndex int) (*domain.FieldValidation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byKey[cellKey{sessionID, elementID, recordIndex}]
	if !ok {
		return nil, domain.ErrCellNotFound
	}
	cell := r.cells[id]
	return &cell, nil
}

func (r *fieldValidationRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.FieldValidation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.FieldValidation
	for _, c := range r.cells {
		if c.SessionID == sessionID {
			out = append(out, c)
		}
	}
	sortCells(out)
	return out, nil
}

func (r *fieldValidationRepo) ListByGroup(ctx context.Context, sessionID, groupID uuid.UUID) ([]domain.FieldValidation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.FieldValidation
	for _, c := range r.cells {
		if c.SessionID == sessionID && c.GroupID != nil && *c.GroupID == groupID {
			out = append(out, c)
		}
	}
	sortCells(out)
	return out, nil
}

func (r *fieldValidationRepo) Update(ctx context.Context, cell *domain.FieldValidation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cells[cell.ID]; !ok {
		return domain.ErrCellNotFound
	}
	cell.UpdatedAt = time.Now().UTC()
	r.cells[cell.ID] = *cell
	return nil
}

func sortCells(cells []domain.FieldValidation) {
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].RecordIndex != cells[j].RecordIndex {
			return cells[i].RecordIndex < cells[j].RecordIndex
		}
		return cells[i].ElementID.String() < cells[j].ElementID.String()
	})
}

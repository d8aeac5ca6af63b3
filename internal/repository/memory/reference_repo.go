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

type referenceRepo struct {
	mu   sync.RWMutex
	refs []domain.IdentifierReference
}

// NewReferenceRepo creates a new in-memory ReferenceRepository.
func NewReferenceRepo() port.ReferenceRepository {
	return &referenceRepo{}
}

func (r *referenceRepo) CreateBatch(ctx context.Context, refs []domain.IdentifierReference) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for i := range refs {
		if refs[i].CreatedAt.IsZero() {
			refs[i].CreatedAt = now
		}
		r.refs = append(r.refs, refs[i])
	}
	return nil
}

func (r *referenceRepo) ListUpTo(ctx context.Context, sessionID uuid.UUID, maxExtractionNumber int) ([]domain.IdentifierReference, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.IdentifierReference
	for _, ref := range r.refs {
		if ref.SessionID == sessionID && ref.ExtractionNumber <= maxExtractionNumber {
			out = append(out, ref)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ExtractionNumber != out[j].ExtractionNumber {
			return out[i].ExtractionNumber < out[j].ExtractionNumber
		}
		if out[i].RecordIndex != out[j].RecordIndex {
			return out[i].RecordIndex < out[j].RecordIndex
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

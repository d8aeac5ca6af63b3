package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"tessera/internal/domain"
	"tessera/internal/port"
)

type referenceRepo struct {
	db *sqlx.DB
}

// NewReferenceRepo creates a new PostgreSQL-backed ReferenceRepository.
func NewReferenceRepo(db *sqlx.DB) port.ReferenceRepository {
	return &referenceRepo{db: db}
}

func (r *referenceRepo) CreateBatch(ctx context.Context, refs []domain.IdentifierReference) error {
	if len(refs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range refs {
		if refs[i].CreatedAt.IsZero() {
			refs[i].CreatedAt = now
		}
		_, err := q(ctx, r.db).ExecContext(ctx,
			`INSERT INTO identifier_references (
				id, session_id, extraction_number, record_index,
				field_name, extracted_value, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			refs[i].ID, refs[i].SessionID, refs[i].ExtractionNumber, refs[i].RecordIndex,
			refs[i].FieldName, refs[i].ExtractedValue, refs[i].CreatedAt)
		if err != nil {
			return fmt.Errorf("referenceRepo.CreateBatch: %w", err)
		}
	}
	return nil
}

func (r *referenceRepo) ListUpTo(ctx context.Context, sessionID uuid.UUID, maxExtractionNumber int) ([]domain.IdentifierReference, error) {
	var refs []domain.IdentifierReference
	err := q(ctx, r.db).SelectContext(ctx, &refs,
		`SELECT * FROM identifier_references
		 WHERE session_id = $1 AND extraction_number <= $2
		 ORDER BY extraction_number, record_index, created_at, id`,
		sessionID, maxExtractionNumber)
	if err != nil {
		return nil, fmt.Errorf("referenceRepo.ListUpTo: %w", err)
	}
	return refs, nil
}

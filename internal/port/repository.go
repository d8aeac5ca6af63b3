package port

import (
	"context"

	"github.com/google/uuid"

	"tessera/internal/domain"
)

// TxRunner runs a function inside a single storage transaction. The
// context passed to fn carries the transaction; repositories detect it
// and route their statements through it.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ProjectRepository defines the contract for project persistence.
type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	GetByID(ctx context.Context, projectID uuid.UUID) (*domain.Project, error)
	List(ctx context.Context, offset, limit int) ([]domain.Project, int, error)
}

// SessionRepository defines the contract for extraction session persistence.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.ExtractionSession) error
	GetByID(ctx context.Context, sessionID uuid.UUID) (*domain.ExtractionSession, error)
	ListByProject(ctx context.Context, projectID uuid.UUID, offset, limit int) ([]domain.ExtractionSession, int, error)
	Update(ctx context.Context, session *domain.ExtractionSession) error
}

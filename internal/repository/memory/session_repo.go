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

type sessionRepo struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]domain.ExtractionSession
}

// NewSessionRepo creates a new in-memory SessionRepository.
func NewSessionRepo() port.SessionRepository {
	return &sessionRepo{sessions: make(map[uuid.UUID]domain.ExtractionSession)}
}

func (r *sessionRepo) Create(ctx context.Context, session *domain.ExtractionSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	r.sessions[session.ID] = *session
	return nil
}

func (r *sessionRepo) GetByID(ctx context.Context, sessionID uuid.UUID) (*domain.ExtractionSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &session, nil
}

func (r *sessionRepo) ListByProject(ctx context.Context, projectID uuid.UUID, offset, limit int) ([]domain.ExtractionSession, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []domain.ExtractionSession
	for _, s := range r.sessions {
		if s.ProjectID == projectID {
			all = append(all, s)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	return page(all, offset, limit), total, nil
}

func (r *sessionRepo) Update(ctx context.Context, session *domain.ExtractionSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.ID]; !ok {
		return domain.ErrSessionNotFound
	}
	session.UpdatedAt = time.Now().UTC()
	r.sessions[session.ID] = *session
	return nil
}

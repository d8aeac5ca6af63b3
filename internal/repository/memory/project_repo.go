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

type projectRepo struct {
	mu       sync.RWMutex
	projects map[uuid.UUID]domain.Project
}

// NewProjectRepo creates a new in-memory ProjectRepository.
func NewProjectRepo() port.ProjectRepository {
	return &projectRepo{projects: make(map[uuid.UUID]domain.Project)}
}

func (r *projectRepo) Create(ctx context.Context, project *domain.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now
	r.projects[project.ID] = *project
	return nil
}

func (r *projectRepo) GetByID(ctx context.Context, projectID uuid.UUID) (*domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	project, ok := r.projects[projectID]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	return &project, nil
}

func (r *projectRepo) List(ctx context.Context, offset, limit int) ([]domain.Project, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]domain.Project, 0, len(r.projects))
	for _, p := range r.projects {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	return page(all, offset, limit), total, nil
}

// page slices a sorted result set the way LIMIT/OFFSET would.
func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

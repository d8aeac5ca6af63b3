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

type ruleRepo struct {
	mu    sync.RWMutex
	rules map[uuid.UUID]domain.ExtractionRule
}

// NewRuleRepo creates a new in-memory RuleRepository.
func NewRuleRepo() port.RuleRepository {
	return &ruleRepo{rules: make(map[uuid.UUID]domain.ExtractionRule)}
}

func (r *ruleRepo) Create(ctx context.Context, rule *domain.ExtractionRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	r.rules[rule.ID] = *rule
	return nil
}

func (r *ruleRepo) GetByID(ctx context.Context, ruleID uuid.UUID) (*domain.ExtractionRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[ruleID]
	if !ok {
		return nil, domain.ErrRuleNotFound
	}
	return &rule, nil
}

func (r *ruleRepo) ListByProject(ctx context.Context, projectID uuid.UUID, activeOnly bool) ([]domain.ExtractionRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.ExtractionRule
	for _, rule := range r.rules {
		if rule.ProjectID != projectID {
			continue
		}
		if activeOnly && !rule.IsActive {
			continue
		}
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *ruleRepo) Update(ctx context.Context, rule *domain.ExtractionRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[rule.ID]; !ok {
		return domain.ErrRuleNotFound
	}
	rule.UpdatedAt = time.Now().UTC()
	r.rules[rule.ID] = *rule
	return nil
}

func (r *ruleRepo) Delete(ctx context.Context, ruleID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[ruleID]; !ok {
		return domain.ErrRuleNotFound
	}
	delete(r.rules, ruleID)
	return nil
}

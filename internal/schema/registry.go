package schema

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"tessera/internal/domain"
	"tessera/internal/port"
)

// Element is the resolved, mode-independent view of one schema element:
// either a scalar field or a column of a repeating group. It carries an
// explicit identifier flag so callers never re-derive identity from the
// raw schema rows.
type Element struct {
	ID           uuid.UUID
	Name         string
	Type         domain.FieldType
	GroupID      *uuid.UUID
	GroupName    string
	GroupIsList  bool
	IsIdentifier bool
	OrderIndex   int
}

// Resolved is a project's full schema resolved into elements. It is built
// once per session and shared read-only afterwards.
type Resolved struct {
	ProjectID uuid.UUID
	Mode      domain.SchemaMode

	ordered     []*Element
	byID        map[uuid.UUID]*Element
	byName      map[string]*Element
	groups      map[uuid.UUID][]*Element
	groupNames  map[uuid.UUID]string
	identifiers map[uuid.UUID]*Element
}

// Element returns the element with the given ID.
func (r *Resolved) Element(id uuid.UUID) (*Element, bool) {
	e, ok := r.byID[id]
	return e, ok
}

// ElementByName returns the element with the given name. Names are
// resolved project-wide; on a collision the first element in schema
// order wins.
func (r *Resolved) ElementByName(name string) (*Element, bool) {
	e, ok := r.byName[name]
	return e, ok
}

// Elements returns all elements in schema order.
func (r *Resolved) Elements() []*Element {
	return r.ordered
}

// GroupColumns returns the ordered columns of a group.
func (r *Resolved) GroupColumns(groupID uuid.UUID) []*Element {
	return r.groups[groupID]
}

// GroupName returns the display name of a group.
func (r *Resolved) GroupName(groupID uuid.UUID) string {
	return r.groupNames[groupID]
}

// Identifier returns the identifier column of a group, if it has one.
func (r *Resolved) Identifier(groupID uuid.UUID) (*Element, bool) {
	e, ok := r.identifiers[groupID]
	return e, ok
}

// TargetFields renders the schema as the worker's extraction target list.
func (r *Resolved) TargetFields() []port.TargetField {
	fields := make([]port.TargetField, 0, len(r.ordered))
	for _, e := range r.ordered {
		fields = append(fields, port.TargetField{
			Name:         e.Name,
			Type:         string(e.Type),
			Group:        e.GroupName,
			IsIdentifier: e.IsIdentifier,
		})
	}
	return fields
}

// Registry resolves project schemas into element sets.
type Registry struct {
	projectRepo port.ProjectRepository
	schemaRepo  port.SchemaRepository
}

// NewRegistry creates a schema Registry.
func NewRegistry(projectRepo port.ProjectRepository, schemaRepo port.SchemaRepository) *Registry {
	return &Registry{projectRepo: projectRepo, schemaRepo: schemaRepo}
}

// Resolve loads and resolves the full schema of a project.
func (g *Registry) Resolve(ctx context.Context, projectID uuid.UUID) (*Resolved, error) {
	project, err := g.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}

	r := &Resolved{
		ProjectID:   projectID,
		Mode:        project.SchemaMode,
		byID:        make(map[uuid.UUID]*Element),
		byName:      make(map[string]*Element),
		groups:      make(map[uuid.UUID][]*Element),
		groupNames:  make(map[uuid.UUID]string),
		identifiers: make(map[uuid.UUID]*Element),
	}

	switch project.SchemaMode {
	case domain.SchemaModeFixed:
		err = g.resolveFixed(ctx, r)
	case domain.SchemaModeWorkflow:
		err = g.resolveWorkflow(ctx, r)
	default:
		return nil, fmt.Errorf("project %s: unknown schema mode %q: %w", projectID, project.SchemaMode, domain.ErrInvalidSchema)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (g *Registry) resolveFixed(ctx context.Context, r *Resolved) error {
	fields, err := g.schemaRepo.GetFields(ctx, r.ProjectID)
	if err != nil {
		return fmt.Errorf("loading fields: %w", err)
	}
	for i := range fields {
		f := &fields[i]
		r.add(&Element{
			ID:         f.ID,
			Name:       f.Name,
			Type:       f.FieldType,
			OrderIndex: f.OrderIndex,
		})
	}

	collections, err := g.schemaRepo.GetCollections(ctx, r.ProjectID)
	if err != nil {
		return fmt.Errorf("loading collections: %w", err)
	}
	for i := range collections {
		col := &collections[i]
		props, err := g.schemaRepo.GetProperties(ctx, col.ID)
		if err != nil {
			return fmt.Errorf("loading properties for collection %s: %w", col.ID, err)
		}
		r.groupNames[col.ID] = col.Name
		for j := range props {
			p := &props[j]
			groupID := col.ID
			e := &Element{
				ID:           p.ID,
				Name:         p.Name,
				Type:         p.FieldType,
				GroupID:      &groupID,
				GroupName:    col.Name,
				GroupIsList:  true,
				IsIdentifier: p.IsIdentifier,
				OrderIndex:   p.OrderIndex,
			}
			if err := r.addColumn(e); err != nil {
				return fmt.Errorf("collection %q: %w", col.Name, err)
			}
		}
	}
	return nil
}

func (g *Registry) resolveWorkflow(ctx context.Context, r *Resolved) error {
	steps, err := g.schemaRepo.GetWorkflowSteps(ctx, r.ProjectID)
	if err != nil {
		return fmt.Errorf("loading workflow steps: %w", err)
	}
	for i := range steps {
		step := &steps[i]
		values, err := g.schemaRepo.GetStepValues(ctx, step.ID)
		if err != nil {
			return fmt.Errorf("loading values for step %s: %w", step.ID, err)
		}
		r.groupNames[step.ID] = step.StepName
		isList := step.StepType == domain.StepTypeList
		for j := range values {
			v := &values[j]
			groupID := step.ID
			e := &Element{
				ID:           v.ID,
				Name:         v.ValueName,
				Type:         v.DataType,
				GroupID:      &groupID,
				GroupName:    step.StepName,
				GroupIsList:  isList,
				IsIdentifier: isList && v.IsIdentifier,
				OrderIndex:   v.OrderIndex,
			}
			if err := r.addColumn(e); err != nil {
				return fmt.Errorf("step %q: %w", step.StepName, err)
			}
		}
	}
	return nil
}

func (r *Resolved) add(e *Element) {
	r.ordered = append(r.ordered, e)
	r.byID[e.ID] = e
	if _, exists := r.byName[e.Name]; exists {
		log.Printf("schema.Registry: project %s has duplicate element name %q, keeping first", r.ProjectID, e.Name)
	} else {
		r.byName[e.Name] = e
	}
}

func (r *Resolved) addColumn(e *Element) error {
	if e.IsIdentifier {
		if _, taken := r.identifiers[*e.GroupID]; taken {
			return fmt.Errorf("column %q: %w", e.Name, domain.ErrDuplicateIdentifier)
		}
		r.identifiers[*e.GroupID] = e
	}
	r.add(e)
	r.groups[*e.GroupID] = append(r.groups[*e.GroupID], e)
	return nil
}

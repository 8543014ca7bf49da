package automation

import (
	"context"
	"errors"
	"fmt"

	"project-automation-api/internal/domain"
	"project-automation-api/internal/store/status"

	"github.com/google/uuid"
)

// StatusResolver maps statuses to their main status and rules to the statuses they cover.
type StatusResolver struct {
	store status.StatusStorer
}

// NewStatusResolver creates a StatusResolver.
func NewStatusResolver(s status.StatusStorer) *StatusResolver {
	return &StatusResolver{store: s}
}

// ResolveMainStatus returns the main status name of a status id. A missing status is
// reported as domain.ErrStatusNotFound.
func (r *StatusResolver) ResolveMainStatus(ctx context.Context, statusID uuid.UUID) (string, error) {
	st, err := r.store.GetStatusByID(ctx, statusID)
	if err != nil {
		return "", err
	}
	return r.MainStatusOf(ctx, st)
}

// MainStatusOf resolves an already loaded status. Substatuses are nested one level deep,
// so the parent's name is the main status. A dangling parent reference falls back to the
// status's own name.
func (r *StatusResolver) MainStatusOf(ctx context.Context, st domain.Status) (string, error) {
	if !st.IsSubstatus() {
		return st.Name, nil
	}
	parent, err := r.store.GetStatusByID(ctx, *st.ParentStatusID)
	if errors.Is(err, domain.ErrStatusNotFound) {
		return st.Name, nil
	}
	if err != nil {
		return "", fmt.Errorf("parent of status %s: %w", st.ID, err)
	}
	return parent.Name, nil
}

// Scope returns the status ids a scanning rule covers:
// an explicit substatus_filter, every status of the project type for "All",
// or else the main status plus its direct substatuses.
func (r *StatusResolver) Scope(ctx context.Context, rule domain.AutomationRule) ([]uuid.UUID, error) {
	if f := rule.SubstatusFilter; f != nil && *f != "" && *f != domain.MainStatusAll {
		id, err := uuid.Parse(*f)
		if err != nil {
			return nil, fmt.Errorf("invalid substatus_filter %q: %w", *f, err)
		}
		return []uuid.UUID{id}, nil
	}

	if rule.MainStatus == domain.MainStatusAll {
		statuses, err := r.store.ListStatusesByProjectType(ctx, rule.ProjectTypeID)
		if err != nil {
			return nil, fmt.Errorf("could not list statuses: %w", err)
		}
		return statusIDs(statuses), nil
	}

	mains, err := r.store.GetStatusesByName(ctx, rule.MainStatus, rule.ProjectTypeID)
	if err != nil {
		return nil, fmt.Errorf("could not find status %q: %w", rule.MainStatus, err)
	}
	ids := statusIDs(mains)
	if len(ids) == 0 {
		return nil, nil
	}

	children, err := r.store.GetSubstatusIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("could not load substatuses: %w", err)
	}
	return append(ids, children...), nil
}

func statusIDs(statuses []domain.Status) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(statuses))
	for _, st := range statuses {
		ids = append(ids, st.ID)
	}
	return ids
}

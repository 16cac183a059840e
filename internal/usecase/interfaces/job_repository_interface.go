package interfaces

import (
	"context"
	"crm_pipeline/internal/domain/entities"
)

// JobFilter narrows Find. Zero values mean "no constraint" except for the two
// Include flags, which default to the active pipeline view.
type JobFilter struct {
	CustomerID      string
	Stage           entities.Stage
	IncludeArchived bool
	IncludeDead     bool
}

// Matches reports whether j satisfies the filter.
func (f JobFilter) Matches(j entities.Job) bool {
	if f.CustomerID != "" && j.CustomerID != f.CustomerID {
		return false
	}
	if f.Stage != "" && j.Stage != f.Stage {
		return false
	}
	if j.IsArchived && !f.IncludeArchived {
		return false
	}
	if j.IsDeadEstimate && !f.IncludeDead {
		return false
	}
	return true
}

// IJobRepository abstracts persistence for Job documents.
//
// The store only guarantees atomic single-document writes:
//   - Create fails if the id already exists
//   - Save overwrites the whole document (last writer wins)
//   - GetByID returns a zero Job and nil error when the id is unknown
type IJobRepository interface {
	Create(ctx context.Context, j entities.Job) (entities.Job, error)
	GetByID(ctx context.Context, id string) (entities.Job, error)
	Find(ctx context.Context, filter JobFilter) ([]entities.Job, error)
	Save(ctx context.Context, j entities.Job) (entities.Job, error)
	DeleteByID(ctx context.Context, id string) error
}

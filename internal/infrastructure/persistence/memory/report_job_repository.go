package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/errs"
)

// ReportJobRepository keeps report jobs in process memory.
// ClaimRun is a compare-and-set under the repository lock.
type ReportJobRepository struct {
	mu   sync.Mutex
	jobs map[string]*entity.ReportJob
}

// NewReportJobRepository creates an empty repository.
func NewReportJobRepository() *ReportJobRepository {
	return &ReportJobRepository{jobs: make(map[string]*entity.ReportJob)}
}

func (r *ReportJobRepository) SaveReportJob(_ context.Context, job *entity.ReportJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := job.Clone()
	if existing, ok := r.jobs[job.ID()]; ok {
		stored.MarkRun(existing.LastRunAt())
		stored.MarkManualRun(existing.LastManualRunAt())
	}
	r.jobs[job.ID()] = stored
	return nil
}

func (r *ReportJobRepository) FindReportJob(_ context.Context, id string) (*entity.ReportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return job.Clone(), nil
}

func (r *ReportJobRepository) ListReportJobs(_ context.Context) ([]*entity.ReportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*entity.ReportJob, 0, len(r.jobs))
	for _, j := range r.jobs {
		result = append(result, j.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt().Before(result[j].CreatedAt()) })
	return result, nil
}

func (r *ReportJobRepository) ClaimRun(_ context.Context, id string, expected, runAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return false, errs.ErrNotFound
	}
	if !job.LastRunAt().Equal(expected) {
		return false, nil
	}
	job.MarkRun(runAt)
	return true, nil
}

func (r *ReportJobRepository) RecordManualRun(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return errs.ErrNotFound
	}
	job.MarkManualRun(at)
	return nil
}

package dynamodb

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/errs"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
)

// fakeTable understands the SET and condition expressions the repository issues.
type fakeTable struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newFakeTable() *fakeTable {
	return &fakeTable{items: map[string]map[string]types.AttributeValue{}}
}

func pkOf(key map[string]types.AttributeValue) string {
	return key[attrPK].(*types.AttributeValueMemberS).Value
}

func (f *fakeTable) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[pkOf(in.Key)]}, nil
}

func (f *fakeTable) Scan(_ context.Context, _ *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &dynamodb.ScanOutput{}
	for _, item := range f.items {
		out.Items = append(out.Items, item)
	}
	return out, nil
}

func (f *fakeTable) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pk := pkOf(in.Key)
	item, exists := f.items[pk]

	if in.ConditionExpression != nil {
		cond := *in.ConditionExpression
		if strings.Contains(cond, "attribute_exists") && !exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
		if strings.Contains(cond, ":expected") {
			current := item[attrLastRunAt].(*types.AttributeValueMemberN).Value
			expected := in.ExpressionAttributeValues[":expected"].(*types.AttributeValueMemberN).Value
			if current != expected {
				return nil, &types.ConditionalCheckFailedException{}
			}
		}
	}

	if !exists {
		item = map[string]types.AttributeValue{}
		for k, v := range in.Key {
			item[k] = v
		}
		f.items[pk] = item
	}

	clauses := strings.Split(strings.TrimPrefix(*in.UpdateExpression, "SET "), ", #")
	for i, clause := range clauses {
		if i > 0 {
			clause = "#" + clause
		}
		parts := strings.SplitN(clause, " = ", 2)
		name := in.ExpressionAttributeNames[parts[0]]
		value := parts[1]
		if strings.HasPrefix(value, "if_not_exists(") {
			if _, ok := item[name]; ok {
				continue
			}
			value = strings.TrimSuffix(value[strings.Index(value, ":"):], ")")
		}
		item[name] = in.ExpressionAttributeValues[value]
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func newJob(t *testing.T, created time.Time) *entity.ReportJob {
	t.Helper()
	job, err := entity.NewReportJob(entity.ReportJobParams{
		Name:       "daily",
		Cadence:    24 * time.Hour,
		Recipients: []string{"ops@example.com"},
		Sections:   []entity.ReportSection{entity.SectionMetrics, entity.SectionAlerts},
		MetricKeys: []valueobject.MetricKey{"cpu_usage"},
		Enabled:    true,
	}, created)
	if err != nil {
		t.Fatalf("NewReportJob() error = %v", err)
	}
	return job
}

func TestReportJobRepository_SaveKeepsRunTimes(t *testing.T) {
	ctx := context.Background()
	repo := NewReportJobRepositoryWithClient(newFakeTable(), "jobs", true)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	job := newJob(t, created)

	if err := repo.SaveReportJob(ctx, job); err != nil {
		t.Fatalf("SaveReportJob() error = %v", err)
	}
	runAt := created.Add(time.Hour)
	if ok, err := repo.ClaimRun(ctx, job.ID(), time.Time{}, runAt); err != nil || !ok {
		t.Fatalf("ClaimRun() = %v, %v", ok, err)
	}

	params := job.Params()
	params.Name = "nightly"
	if err := job.Update(params, created.Add(2*time.Hour)); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := repo.SaveReportJob(ctx, job); err != nil {
		t.Fatalf("SaveReportJob() error = %v", err)
	}

	stored, err := repo.FindReportJob(ctx, job.ID())
	if err != nil {
		t.Fatalf("FindReportJob() error = %v", err)
	}
	if stored.Name() != "nightly" {
		t.Errorf("Name() = %q, want nightly", stored.Name())
	}
	if !stored.LastRunAt().Equal(runAt) {
		t.Errorf("LastRunAt() = %v, want %v", stored.LastRunAt(), runAt)
	}
	if !stored.CreatedAt().Equal(created) {
		t.Errorf("CreatedAt() = %v, want %v", stored.CreatedAt(), created)
	}
	if len(stored.MetricKeys()) != 1 || stored.MetricKeys()[0] != "cpu_usage" {
		t.Errorf("MetricKeys() = %v", stored.MetricKeys())
	}
	if !stored.HasSection(entity.SectionAlerts) {
		t.Error("alerts section lost")
	}
}

func TestReportJobRepository_ClaimRunOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewReportJobRepositoryWithClient(newFakeTable(), "jobs", true)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	job := newJob(t, created)
	if err := repo.SaveReportJob(ctx, job); err != nil {
		t.Fatalf("SaveReportJob() error = %v", err)
	}

	runAt := created.Add(24 * time.Hour)
	first, err := repo.ClaimRun(ctx, job.ID(), time.Time{}, runAt)
	if err != nil || !first {
		t.Fatalf("first ClaimRun() = %v, %v", first, err)
	}
	second, err := repo.ClaimRun(ctx, job.ID(), time.Time{}, runAt.Add(time.Second))
	if err != nil {
		t.Fatalf("second ClaimRun() error = %v", err)
	}
	if second {
		t.Error("second claim with stale expectation must lose")
	}

	if _, err := repo.ClaimRun(ctx, "missing", time.Time{}, runAt); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown job, got %v", err)
	}
}

func TestReportJobRepository_RecordManualRun(t *testing.T) {
	ctx := context.Background()
	repo := NewReportJobRepositoryWithClient(newFakeTable(), "jobs", false)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	job := newJob(t, created)
	if err := repo.SaveReportJob(ctx, job); err != nil {
		t.Fatalf("SaveReportJob() error = %v", err)
	}

	at := created.Add(time.Minute)
	if err := repo.RecordManualRun(ctx, job.ID(), at); err != nil {
		t.Fatalf("RecordManualRun() error = %v", err)
	}
	if err := repo.RecordManualRun(ctx, "missing", at); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	jobs, err := repo.ListReportJobs(ctx)
	if err != nil {
		t.Fatalf("ListReportJobs() error = %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	if !jobs[0].LastManualRunAt().Equal(at) {
		t.Errorf("LastManualRunAt() = %v, want %v", jobs[0].LastManualRunAt(), at)
	}
	if !jobs[0].LastRunAt().IsZero() {
		t.Error("manual run must not move the schedule")
	}
}

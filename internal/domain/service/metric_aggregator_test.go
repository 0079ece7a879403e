package service

import (
	"errors"
	"testing"
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/errs"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
)

func TestValidateBucketDuration(t *testing.T) {
	a := NewMetricAggregator()

	tests := []struct {
		name    string
		bucket  time.Duration
		wantErr bool
	}{
		{"same as resolution", time.Minute, false},
		{"multiple", 5 * time.Minute, false},
		{"not a multiple", 90 * time.Second, true},
		{"zero", 0, true},
		{"negative", -time.Minute, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.ValidateBucketDuration(tt.bucket, time.Minute)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateBucketDuration() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errs.ErrInvalidBucketDuration) {
				t.Errorf("expected ErrInvalidBucketDuration, got %v", err)
			}
		})
	}
}

func TestMergeRange_ExactAndGaps(t *testing.T) {
	a := NewMetricAggregator()
	key := valueobject.MetricKey("cpu_usage")
	base := time.Unix(0, 0).UTC()

	mk := func(minute int, values ...float64) entity.HistoryBucket {
		b := entity.NewHistoryBucket(key, base.Add(time.Duration(minute)*time.Minute), time.Minute)
		for _, v := range values {
			b.Add(v)
		}
		b.Final = true
		return b
	}

	buckets := []entity.HistoryBucket{
		mk(0, 10, 20),
		mk(1, 30),
		// минута 2 пропущена
		mk(3, 5),
	}

	tr, err := valueobject.NewTimeRange(base, base.Add(4*time.Minute))
	if err != nil {
		t.Fatalf("NewTimeRange() error = %v", err)
	}

	result := a.MergeRange(key, buckets, tr, 2*time.Minute, base.Add(time.Hour))
	if len(result) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(result))
	}

	first := result[0]
	if first.Count != 3 || first.Min != 10 || first.Max != 30 || first.Sum != 60 {
		t.Errorf("unexpected first bucket: %+v", first)
	}
	if !first.Final {
		t.Error("expected first bucket to be final")
	}

	second := result[1]
	if second.Count != 1 || second.Min != 5 || second.Max != 5 {
		t.Errorf("unexpected second bucket: %+v", second)
	}

	gaps := a.MergeRange(key, nil, tr, time.Minute, base.Add(time.Hour))
	for _, g := range gaps {
		if g.Count != 0 {
			t.Errorf("expected empty bucket, got %+v", g)
		}
		if _, ok := g.Avg(); ok {
			t.Error("empty bucket must not have an average")
		}
	}
}

func TestMergeRange_OpenBucketIsNotFinal(t *testing.T) {
	a := NewMetricAggregator()
	key := valueobject.MetricKey("cpu_usage")
	base := time.Unix(0, 0).UTC()

	open := entity.NewHistoryBucket(key, base.Add(time.Minute), time.Minute)
	open.Add(42)

	tr, _ := valueobject.NewTimeRange(base, base.Add(2*time.Minute))
	result := a.MergeRange(key, []entity.HistoryBucket{open}, tr, 2*time.Minute, base.Add(time.Minute))
	if len(result) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(result))
	}
	if result[0].Final {
		t.Error("bucket containing the open base bucket must not be final")
	}
}

func TestSummarize(t *testing.T) {
	a := NewMetricAggregator()

	if _, ok := a.Summarize(nil); ok {
		t.Fatal("expected no summary for empty input")
	}

	b1 := entity.NewHistoryBucket("k", time.Unix(0, 0), time.Minute)
	b1.Add(1)
	b1.Add(3)
	b2 := entity.NewHistoryBucket("k", time.Unix(60, 0), time.Minute)
	b2.Add(8)

	s, ok := a.Summarize([]entity.HistoryBucket{b1, b2})
	if !ok {
		t.Fatal("expected summary")
	}
	if s.Count != 3 || s.Min != 1 || s.Max != 8 || s.Avg != 4 {
		t.Errorf("unexpected summary: %+v", s)
	}
}

package thresholds

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/errs"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
	"github.com/dreschagin/monitoring-core/internal/infrastructure/persistence/memory"
	"github.com/dreschagin/monitoring-core/pkg/logger"
)

func newConfig(t *testing.T, key string, warning, critical float64) *entity.ThresholdConfig {
	t.Helper()
	cfg, err := entity.NewThresholdConfig(entity.ThresholdParams{
		MetricKey:     valueobject.MetricKey(key),
		WarningLevel:  warning,
		CriticalLevel: critical,
		HysteresisPct: 5,
	})
	if err != nil {
		t.Fatalf("NewThresholdConfig() error = %v", err)
	}
	return cfg
}

func TestStore_PutVersioning(t *testing.T) {
	ctx := context.Background()
	store := NewStore(memory.NewThresholdRepository(), logger.Nop())

	first, err := store.Put(ctx, newConfig(t, "cpu", 80, 90), 0)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if first.Version() != 1 {
		t.Fatalf("expected version 1, got %d", first.Version())
	}

	if _, err := store.Put(ctx, newConfig(t, "cpu", 70, 90), 0); !errors.Is(err, errs.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict for create over existing key, got %v", err)
	}

	second, err := store.Put(ctx, newConfig(t, "cpu", 70, 90), 1)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if second.Version() != 2 {
		t.Fatalf("expected version 2, got %d", second.Version())
	}

	same, err := store.Put(ctx, newConfig(t, "cpu", 70, 90), AnyVersion)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if same.Version() != 2 {
		t.Errorf("unchanged config must keep version 2, got %d", same.Version())
	}
}

func TestStore_SnapshotIsImmutable(t *testing.T) {
	ctx := context.Background()
	store := NewStore(memory.NewThresholdRepository(), logger.Nop())

	if _, err := store.Put(ctx, newConfig(t, "cpu", 80, 90), AnyVersion); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	before := store.Current()

	if _, err := store.Put(ctx, newConfig(t, "mem", 80, 90), AnyVersion); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if len(before.Configs) != 1 {
		t.Errorf("old snapshot changed: %d configs", len(before.Configs))
	}
	if len(store.Current().Configs) != 2 {
		t.Errorf("expected 2 configs in current snapshot, got %d", len(store.Current().Configs))
	}
	if store.Current().Version <= before.Version {
		t.Error("snapshot version must grow")
	}
}

func TestStore_DeleteAndReload(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewThresholdRepository()
	store := NewStore(repo, logger.Nop())

	if _, err := store.Put(ctx, newConfig(t, "cpu", 80, 90), AnyVersion); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, err := store.Put(ctx, newConfig(t, "mem", 80, 90), AnyVersion); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if err := store.Delete(ctx, "cpu", 5); !errors.Is(err, errs.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
	if err := store.Delete(ctx, "cpu", AnyVersion); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, "cpu", AnyVersion); !errors.Is(err, errs.ErrThresholdNotFound) {
		t.Fatalf("expected ErrThresholdNotFound, got %v", err)
	}

	reloaded := NewStore(repo, logger.Nop())
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	list := reloaded.List()
	if len(list) != 1 || list[0].MetricKey() != "mem" {
		t.Errorf("unexpected configs after reload: %+v", list)
	}
}

func TestStore_SeedSkipsExisting(t *testing.T) {
	ctx := context.Background()
	store := NewStore(memory.NewThresholdRepository(), logger.Nop())

	if _, err := store.Put(ctx, newConfig(t, "cpu", 60, 70), AnyVersion); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	err := store.Seed(ctx, []*entity.ThresholdConfig{
		newConfig(t, "cpu", 80, 90),
		newConfig(t, "mem", 80, 90),
	})
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	cpu, _ := store.Get("cpu")
	if cpu.WarningLevel() != 60 {
		t.Errorf("seed must not overwrite existing config, got warning %v", cpu.WarningLevel())
	}
	if _, ok := store.Get("mem"); !ok {
		t.Error("seed must add missing config")
	}
}

func TestStore_ConcurrentReadersSeeConsistentSnapshots(t *testing.T) {
	ctx := context.Background()
	store := NewStore(memory.NewThresholdRepository(), logger.Nop())

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := store.Current()
				for k, c := range snap.Configs {
					if c.MetricKey() != k {
						t.Errorf("snapshot key mismatch: %s vs %s", k, c.MetricKey())
						return
					}
				}
			}
		}()
	}

	for i := 0; i < 100; i++ {
		if _, err := store.Put(ctx, newConfig(t, "cpu", float64(50+i%20), 95), AnyVersion); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}
	close(stop)
	wg.Wait()
}

package health

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestEmptyRegistryIsHealthy(t *testing.T) {
	r := NewRegistry()
	healthy, statuses := r.CheckAll(context.Background())
	if !healthy {
		t.Fatal("empty registry should be healthy")
	}
	if len(statuses) != 0 {
		t.Fatalf("expected 0 statuses, got %d", len(statuses))
	}
}

func TestStatusesKeepRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register("database", func(_ context.Context) Status {
		return Status{Name: "database", Healthy: true}
	})
	r.Register("model", func(_ context.Context) Status {
		return Status{Name: "model", Healthy: true, Detail: "circuit closed"}
	})

	healthy, statuses := r.CheckAll(context.Background())
	if !healthy {
		t.Fatal("all-healthy registry should report healthy")
	}
	if len(statuses) != 2 || statuses[0].Name != "database" || statuses[1].Name != "model" {
		t.Fatalf("statuses out of order: %+v", statuses)
	}
}

func TestOneUnhealthyDegradesAggregate(t *testing.T) {
	r := NewRegistry()
	r.Register("database", func(_ context.Context) Status {
		return Status{Name: "database", Healthy: false, Detail: "connection refused"}
	})
	r.Register("model", func(_ context.Context) Status {
		return Status{Name: "model", Healthy: true}
	})

	healthy, statuses := r.CheckAll(context.Background())
	if healthy {
		t.Fatal("registry with an unhealthy checker should report unhealthy")
	}
	if statuses[0].Detail != "connection refused" {
		t.Fatalf("expected failure detail, got %q", statuses[0].Detail)
	}
}

func TestCheckersRunConcurrently(t *testing.T) {
	r := NewRegistry()
	slow := func(name string) Checker {
		return func(_ context.Context) Status {
			time.Sleep(50 * time.Millisecond)
			return Status{Name: name, Healthy: true}
		}
	}
	for _, name := range []string{"a", "b", "c", "d"} {
		r.Register(name, slow(name))
	}

	start := time.Now()
	r.CheckAll(context.Background())
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Fatalf("4 x 50ms checkers took %v, expected concurrent execution", elapsed)
	}
}

func TestConcurrentRegisterAndCheck(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Register("database", func(_ context.Context) Status {
				return Status{Name: "database", Healthy: true}
			})
		}()
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.CheckAll(context.Background())
		}()
	}

	wg.Wait()
}

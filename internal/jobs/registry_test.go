package jobs

import (
	"sync"
	"testing"
	"time"
)

func TestRegistrySetGet(t *testing.T) {
	reg := NewRegistry()
	if _, ok := reg.Get("missing"); ok {
		t.Fatalf("expected miss for unknown id")
	}

	job := Job{ID: "job-1", Status: StatusQueued, CreatedAt: time.Now().UTC()}
	reg.Set(job)

	got, ok := reg.Get("job-1")
	if !ok {
		t.Fatalf("expected job-1 to be tracked")
	}
	if got.Status != StatusQueued {
		t.Fatalf("status = %q, want queued", got.Status)
	}

	job.Status = StatusCompleted
	job.Result = []ItemResult{{Endpoint: "generate", Result: "ok"}}
	reg.Set(job)

	got, _ = reg.Get("job-1")
	if got.Status != StatusCompleted || len(got.Result) != 1 {
		t.Fatalf("overwrite not applied: %+v", got)
	}
	if reg.Len() != 1 {
		t.Fatalf("len = %d, want 1", reg.Len())
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n))
			reg.Set(Job{ID: id, Status: StatusQueued})
			reg.Get(id)
			reg.Set(Job{ID: id, Status: StatusCompleted})
		}(i)
	}
	wg.Wait()
	if reg.Len() != 16 {
		t.Fatalf("len = %d, want 16", reg.Len())
	}
}

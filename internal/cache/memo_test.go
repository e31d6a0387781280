package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoCachesLoads(t *testing.T) {
	m := NewMemo(NewLRUCache[int](10, time.Hour))
	calls := 0
	load := func() (int, error) {
		calls++
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		v, err := m.Get("answer", load)
		if err != nil || v != 42 {
			t.Fatalf("Get() = %d, %v; want 42, nil", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}
	hits, misses := m.Stats()
	if hits != 2 || misses != 1 {
		t.Errorf("Stats() = %d hits, %d misses; want 2, 1", hits, misses)
	}
}

func TestMemoDoesNotCacheErrors(t *testing.T) {
	m := NewMemo(NewLRUCache[int](10, time.Hour))
	boom := errors.New("boom")

	if _, err := m.Get("k", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("Get() error = %v, want boom", err)
	}
	v, err := m.Get("k", func() (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Errorf("Get() after failure = %d, %v; want 7, nil", v, err)
	}
}

func TestMemoInvalidate(t *testing.T) {
	m := NewMemo(NewLRUCache[int](10, time.Hour))
	n := 0
	load := func() (int, error) {
		n++
		return n, nil
	}

	first, _ := m.Get("k", load)
	m.Invalidate()
	second, _ := m.Get("k", load)
	if first == second {
		t.Errorf("value after Invalidate = %d, want a fresh load", second)
	}
}

func TestMemoCollapsesConcurrentLoads(t *testing.T) {
	m := NewMemo(NewLRUCache[int](10, time.Hour))
	var calls atomic.Int32
	release := make(chan struct{})
	load := func() (int, error) {
		calls.Add(1)
		<-release
		return 1, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Get("k", load); err != nil {
				t.Errorf("Get() error = %v", err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("loader called %d times, want 1", got)
	}
}

func TestManagerCleansRegisteredCaches(t *testing.T) {
	lru := NewLRUCache[string](10, 10*time.Millisecond)
	lru.Set("k", "v")

	m := NewManager()
	m.Register(NewMemo(lru))
	m.StartCleanup(5 * time.Millisecond)
	defer m.Stop()

	deadline := time.Now().Add(time.Second)
	for lru.Size() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if lru.Size() != 0 {
		t.Error("expired entry was not cleaned up")
	}
}

package gate

import (
	"sync"
	"testing"
)

func TestAcquireRelease(t *testing.T) {
	g := New()
	if !g.Acquire("alice") {
		t.Fatal("expected first acquire to succeed")
	}
	if g.Acquire("alice") {
		t.Fatal("expected second acquire for the same account to fail")
	}
	if !g.Acquire("bob") {
		t.Fatal("expected acquire for a different account to succeed")
	}
	g.Release("alice")
	if !g.Acquire("alice") {
		t.Fatal("expected acquire after release to succeed")
	}
}

func TestReleaseIdempotent(t *testing.T) {
	g := New()
	g.Release("nobody")
	if !g.Acquire("nobody") {
		t.Fatal("expected acquire after spurious release to succeed")
	}
	g.Release("nobody")
	g.Release("nobody")
	if !g.Acquire("nobody") {
		t.Fatal("expected acquire after double release to succeed")
	}
}

func TestIsActive(t *testing.T) {
	g := New()
	if g.IsActive("alice") {
		t.Fatal("expected alice to be inactive")
	}
	g.Acquire("alice")
	if !g.IsActive("alice") {
		t.Fatal("expected alice to be active")
	}
	g.Release("alice")
	if g.IsActive("alice") {
		t.Fatal("expected alice to be inactive after release")
	}
}

func TestConcurrentAcquireSingleWinner(t *testing.T) {
	g := New()
	const attempts = 50
	var wg sync.WaitGroup
	results := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- g.Acquire("contested")
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for ok := range results {
		if ok {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", winners)
	}
}

func TestListActive(t *testing.T) {
	g := New()
	g.Acquire("alice")
	g.Acquire("bob")
	active := g.ListActive()
	if len(active) != 2 {
		t.Fatalf("expected 2 active leases, got %d", len(active))
	}
}

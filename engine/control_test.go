package engine

import (
	"context"
	"testing"
	"time"
)

func TestControlSleepCompletes(t *testing.T) {
	c := NewControl(context.Background())
	if !c.Sleep(50 * time.Millisecond) {
		t.Fatal("expected sleep to complete")
	}
	if !c.Sleep(0) {
		t.Fatal("expected zero sleep to complete")
	}
}

func TestControlStopInterruptsSleep(t *testing.T) {
	c := NewControl(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		c.Stop()
	}()
	start := time.Now()
	if c.Sleep(10 * time.Second) {
		t.Fatal("expected sleep to be interrupted by stop")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("expected prompt interruption, took %v", elapsed)
	}
	if !c.Stopped() {
		t.Fatal("expected control to report stopped")
	}
}

func TestControlPauseResume(t *testing.T) {
	c := NewControl(context.Background())
	c.Pause()
	if !c.Paused() {
		t.Fatal("expected control to report paused")
	}

	done := make(chan bool)
	go func() {
		done <- c.WaitIfPaused()
	}()

	select {
	case <-done:
		t.Fatal("expected WaitIfPaused to block while paused")
	case <-time.After(300 * time.Millisecond):
	}

	c.Resume()
	select {
	case ok := <-done:
		if !ok {
			t.Fatal("expected WaitIfPaused to return true after resume")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected WaitIfPaused to return after resume")
	}
}

func TestControlStopWhilePaused(t *testing.T) {
	c := NewControl(context.Background())
	c.Pause()

	done := make(chan bool)
	go func() {
		done <- c.WaitIfPaused()
	}()
	time.Sleep(50 * time.Millisecond)
	c.Stop()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected WaitIfPaused to return false when stopped while paused")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected WaitIfPaused to return after stop")
	}
}

func TestControlParentCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := NewControl(ctx)
	cancel()
	if !c.Stopped() {
		t.Fatal("expected parent cancellation to stop the control")
	}
}

package interrupt

import (
	"sync"
	"syscall"
	"testing"
	"time"
)

func TestManualTrigger(t *testing.T) {
	l := NewManual()
	l.Start()
	defer l.Stop()

	if l.Received() {
		t.Fatal("fresh latch should not be raised")
	}
	l.Trigger()
	if !l.Received() {
		t.Fatal("Trigger did not raise the latch")
	}
}

func TestStartClearsLatch(t *testing.T) {
	l := NewManual()
	l.Trigger()
	l.Start()
	defer l.Stop()
	if l.Received() {
		t.Error("Start should clear a previously raised latch")
	}
}

func TestStopKeepsValue(t *testing.T) {
	l := NewManual()
	l.Start()
	l.Trigger()
	l.Stop()
	if !l.Received() {
		t.Error("Stop should keep the latched value")
	}
}

func TestConcurrentTrigger(t *testing.T) {
	l := NewManual()
	l.Start()
	defer l.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Go(l.Trigger)
	}
	wg.Wait()
	if !l.Received() {
		t.Error("latch not raised after concurrent triggers")
	}
}

func TestSignalRaisesLatch(t *testing.T) {
	l := New()
	l.Start()
	defer l.Stop()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("send SIGTERM: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if l.Received() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("latch not raised after SIGTERM")
}

func TestStopIdempotent(t *testing.T) {
	l := New()
	l.Start()
	l.Stop()
	l.Stop()
}

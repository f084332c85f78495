package shutdown

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestOperationTracker_CountsStartsAndDones(t *testing.T) {
	tracker := NewOperationTracker()

	if tracker.ActiveCount() != 0 {
		t.Errorf("expected 0 active operations on a new tracker, got %d", tracker.ActiveCount())
	}
	if tracker.IsClosed() {
		t.Error("new tracker should not be closed")
	}

	for i := 0; i < 5; i++ {
		if !tracker.Start() {
			t.Fatalf("Start %d should succeed on an open tracker", i)
		}
	}
	if tracker.ActiveCount() != 5 {
		t.Errorf("expected 5 active operations, got %d", tracker.ActiveCount())
	}

	for i := 0; i < 5; i++ {
		tracker.Done()
	}
	if tracker.ActiveCount() != 0 {
		t.Errorf("expected 0 active operations after Done, got %d", tracker.ActiveCount())
	}
}

func TestOperationTracker_CloseRejectsNewOperations(t *testing.T) {
	tracker := NewOperationTracker()
	tracker.Close()

	if !tracker.IsClosed() {
		t.Error("tracker should report closed after Close()")
	}
	if tracker.Start() {
		t.Error("Start should return false on a closed tracker")
	}
	if tracker.ActiveCount() != 0 {
		t.Errorf("expected 0 active operations, got %d", tracker.ActiveCount())
	}
}

func TestOperationTracker_CloseAllowsInFlightToFinish(t *testing.T) {
	tracker := NewOperationTracker()

	if !tracker.Start() {
		t.Fatal("Start should succeed")
	}
	tracker.Close()

	// The in-flight operation keeps running; only new starts are refused
	if tracker.ActiveCount() != 1 {
		t.Errorf("expected 1 active operation after close, got %d", tracker.ActiveCount())
	}
	if tracker.Start() {
		t.Error("Start should return false on a closed tracker")
	}

	tracker.Done()
	if tracker.ActiveCount() != 0 {
		t.Errorf("expected 0 active operations, got %d", tracker.ActiveCount())
	}
}

func TestOperationTracker_WaitReturnsWhenDrained(t *testing.T) {
	tracker := NewOperationTracker()

	if !tracker.Start() {
		t.Fatal("Start should succeed")
	}
	go func() {
		time.Sleep(10 * time.Millisecond)
		tracker.Done()
	}()

	if err := tracker.Wait(time.Second); err != nil {
		t.Errorf("Wait should succeed once operations drain, got %v", err)
	}
}

func TestOperationTracker_WaitTimesOut(t *testing.T) {
	tracker := NewOperationTracker()

	if !tracker.Start() {
		t.Fatal("Start should succeed")
	}
	defer tracker.Done()

	if err := tracker.Wait(50 * time.Millisecond); !errors.Is(err, ErrWaitTimeout) {
		t.Errorf("expected ErrWaitTimeout, got %v", err)
	}
}

func TestOperationTracker_WaitWithNothingInFlight(t *testing.T) {
	tracker := NewOperationTracker()

	if err := tracker.Wait(100 * time.Millisecond); err != nil {
		t.Errorf("Wait should return immediately with nothing in flight, got %v", err)
	}
}

func TestOperationTracker_ConcurrentStartDone(t *testing.T) {
	tracker := NewOperationTracker()
	const goroutines = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			if tracker.Start() {
				time.Sleep(time.Millisecond)
				tracker.Done()
			}
		}()
	}
	wg.Wait()

	if tracker.ActiveCount() != 0 {
		t.Errorf("expected 0 active operations after all goroutines finish, got %d", tracker.ActiveCount())
	}
}

func TestOperationTracker_ConcurrentStartRacingClose(t *testing.T) {
	tracker := NewOperationTracker()
	const goroutines = 100

	var wg sync.WaitGroup
	var started, rejected int64

	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			if tracker.Start() {
				atomic.AddInt64(&started, 1)
				time.Sleep(time.Millisecond)
				tracker.Done()
			} else {
				atomic.AddInt64(&rejected, 1)
			}
		}()
	}

	time.Sleep(500 * time.Microsecond)
	tracker.Close()
	wg.Wait()

	// Every Start either completed with a Done or was refused; none leak
	if tracker.ActiveCount() != 0 {
		t.Errorf("expected 0 active operations, got %d", tracker.ActiveCount())
	}
	total := atomic.LoadInt64(&started) + atomic.LoadInt64(&rejected)
	if total != goroutines {
		t.Errorf("expected %d outcomes, got %d (started %d, rejected %d)", goroutines, total, started, rejected)
	}
}

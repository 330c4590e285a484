package graceful

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestInterrupts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupts, stop := Interrupts(ctx, nil)
	defer stop()

	go func() {
		time.Sleep(100 * time.Millisecond) // Give the signal handler time to get ready
		if err := syscall.Kill(syscall.Getpid(), syscall.SIGINT); err != nil {
			t.Errorf("Failed to send SIGINT: %v", err)
		}
	}()

	select {
	case <-interrupts:
	case <-time.After(5 * time.Second):
		t.Fatalf("Test timed out waiting for the interrupt.")
	}
}

func TestForwardNeverBlocks(t *testing.T) {
	out := make(chan struct{}, InterruptBuffer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			forward(out, zap.NewNop())
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forward blocked on a full channel")
	}
	if len(out) != InterruptBuffer {
		t.Errorf("expected %d pending interrupts, got %d", InterruptBuffer, len(out))
	}
}

func TestStopIsIdempotent(t *testing.T) {
	_, stop := Interrupts(context.Background(), nil)
	stop()
	stop()
}

func TestInterrupts_ReleasesSignalsWhenContextDone(t *testing.T) {
	released := make(chan chan<- os.Signal, 1)
	stopSignals = func(c chan<- os.Signal) {
		signal.Stop(c)
		released <- c
	}
	t.Cleanup(func() { stopSignals = signal.Stop })

	ctx, cancel := context.WithCancel(context.Background())
	_, stop := Interrupts(ctx, nil)
	cancel()

	select {
	case <-released:
	case <-time.After(5 * time.Second):
		t.Fatal("signal handling was not released after the context was done")
	}

	// A later stop does not release twice.
	stop()
	select {
	case <-released:
		t.Error("signals released twice")
	default:
	}
}

// Package graceful turns OS termination signals into an interrupt the
// application can handle in its own time.
package graceful

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
)

// InterruptBuffer is the capacity of the interrupt channel. Signals beyond it
// are dropped so delivering one never blocks.
const InterruptBuffer = 2

// Replaced in tests.
var (
	notifySignals = signal.Notify
	stopSignals   = signal.Stop
)

// Interrupts returns a channel that receives a value for each SIGINT or
// SIGTERM, up to InterruptBuffer pending values. The process is not
// terminated. Default signal handling is restored when ctx is done or stop
// is called, whichever comes first; the channel is not closed.
func Interrupts(ctx context.Context, logger *zap.Logger) (<-chan struct{}, func()) {
	if logger == nil {
		logger = zap.NewNop()
	}
	out := make(chan struct{}, InterruptBuffer)
	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	unnotify := stopSignals
	var stopOnce sync.Once
	release := func() { stopOnce.Do(func() { unnotify(sigChan) }) }

	go func() {
		defer release()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case sig := <-sigChan:
				logger.Info("received termination signal, finishing current record", zap.String("signal", sig.String()))
				forward(out, logger)
			}
		}
	}()

	var closeOnce sync.Once
	stop := func() {
		release()
		closeOnce.Do(func() { close(done) })
	}
	return out, stop
}

func forward(out chan<- struct{}, logger *zap.Logger) {
	select {
	case out <- struct{}{}:
	default:
		logger.Debug("interrupt already pending, dropping signal")
	}
}

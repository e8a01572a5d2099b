package eventlog

import (
	"context"
	"log/slog"
	"sync"
)

// Worker drains events off a buffered channel into a Sink.
// Enqueueing never blocks: when the buffer is full the event is dropped
// and a warning logged, since the activity log is best-effort.
type Worker struct {
	eventCh chan Event
	sink    Sink
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewWorker creates a worker with the given buffer size.
func NewWorker(sink Sink, bufferSize int) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		eventCh: make(chan Event, bufferSize),
		sink:    sink,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the background goroutine.
func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.ctx.Done():
				slog.Info("draining events before shutdown", "remaining_events", len(w.eventCh))
				for len(w.eventCh) > 0 {
					event := <-w.eventCh
					if err := w.sink.SaveEvent(context.Background(), event); err != nil {
						slog.Error("failed to save event during shutdown", "error", err, "event_type", event.Type)
					}
				}
				return
			case event := <-w.eventCh:
				// Background context: an event taken off the channel is
				// saved even if shutdown cancels w.ctx mid-save.
				if err := w.sink.SaveEvent(context.Background(), event); err != nil {
					slog.Error("failed to save event", "error", err, "event_type", event.Type)
				}
			}
		}
	}()
}

// Log enqueues an event without blocking.
func (w *Worker) Log(event Event) {
	select {
	case w.eventCh <- event:
	default:
		slog.Warn("event channel full, dropping event", "event_type", event.Type)
	}
}

// Shutdown stops the worker after draining buffered events.
func (w *Worker) Shutdown() {
	w.cancel()
	w.wg.Wait()
}

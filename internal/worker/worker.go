package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/scratchbank/ledgerd/internal/domain"
	"github.com/scratchbank/ledgerd/internal/engine"
	"github.com/scratchbank/ledgerd/internal/queue"
)

var commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ledger_commands_total",
	Help: "Commands processed by the queue worker, labeled by kind and outcome",
}, []string{"cmd", "outcome"})

// Worker drains one batch's command queue: a timer-driven loop that receives
// at most one message per tick, runs it through the transaction engine,
// deletes the message on any terminal outcome, and counts the batch down.
// One failed command never blocks the rest of the batch.
type Worker struct {
	queue   queue.Queue
	engine  *engine.Engine
	tracker *Tracker
	tick    time.Duration
	cancel  context.CancelFunc
	stopped chan struct{}
}

func New(q queue.Queue, e *engine.Engine, expected int, tick time.Duration) *Worker {
	return &Worker{
		queue:   q,
		engine:  e,
		tracker: NewTracker(expected),
		tick:    tick,
		stopped: make(chan struct{}),
	}
}

// Start launches the polling loop. It returns immediately; the batch result
// arrives on Done once every expected command is terminal.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	go w.poll(ctx)
}

// Stop force-stops the loop without firing completion. Undeleted messages
// stay owned by the queue for a future consumer.
func (w *Worker) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.stopped
}

// Done delivers the batch result exactly once.
func (w *Worker) Done() <-chan Result {
	return w.tracker.Done()
}

// Snapshot exposes the batch state for deadline handling.
func (w *Worker) Snapshot() Result {
	return w.tracker.Snapshot()
}

func (w *Worker) poll(ctx context.Context) {
	defer close(w.stopped)

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			msg, err := w.queue.Receive(ctx)
			if err != nil {
				slog.Error("queue receive failed", "error", err)
				continue
			}
			if msg == nil {
				continue
			}

			cmdErr := w.process(ctx, msg)

			// The message is deleted regardless of business outcome:
			// at-least-once delivery becomes effectively-once processing.
			// A failed delete leaves the message redeliverable, so the
			// countdown is not decremented for it.
			if err := w.queue.Delete(ctx, msg.ID); err != nil {
				slog.Error("queue delete failed", "messageId", msg.ID, "error", err)
				continue
			}
			if w.tracker.Finish(cmdErr) {
				return
			}
		}
	}
}

func (w *Worker) process(ctx context.Context, msg *queue.Message) *domain.CommandError {
	cmd, err := queue.DecodeCommand(msg.Body)
	if err != nil {
		// A corrupt message must not retry forever; it is recorded and the
		// envelope is discarded with the rest of the batch's messages.
		slog.Error("dropping undecodable message", "messageId", msg.ID, "error", err)
		commandsTotal.WithLabelValues("UNKNOWN", "decode_failure").Inc()
		return domain.NewCommandError("UNKNOWN", domain.CodeDecodeFailure, "malformed queue message: %v", err)
	}

	if cmdErr := w.engine.Execute(ctx, cmd); cmdErr != nil {
		slog.Warn("command failed", "cmd", cmdErr.Cmd, "code", cmdErr.Code, "reason", cmdErr.Reason)
		commandsTotal.WithLabelValues(cmd.Kind.String(), "error").Inc()
		return cmdErr
	}
	commandsTotal.WithLabelValues(cmd.Kind.String(), "ok").Inc()
	return nil
}

// Package notify delivers auth notifications (registration codes, magic links,
// welcome mail) over pluggable channels. Delivery is best-effort: a failed
// channel is recorded in the dispatch summary and never rolls back the stored
// credential it was carrying.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"veo-auth-service/internal/observability"
)

// Message is one notification to deliver. Subject is ignored by channels
// without a subject line (SMS).
type Message struct {
	To      string
	Subject string
	Body    string
}

// Channel delivers one message to one recipient.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Delivery records the outcome for one channel of a dispatch.
type Delivery struct {
	Channel string
	Err     error
}

// Result summarizes one dispatch across its channels.
type Result []Delivery

// Delivered reports whether at least one channel succeeded.
func (r Result) Delivered() bool {
	for _, d := range r {
		if d.Err == nil {
			return true
		}
	}
	return false
}

// Failed returns the names of channels that failed.
func (r Result) Failed() []string {
	var out []string
	for _, d := range r {
		if d.Err != nil {
			out = append(out, d.Channel)
		}
	}
	return out
}

// Send pairs a message with the channel that should carry it.
type Send struct {
	Channel Channel
	Message Message
}

// Dispatcher fans a set of sends out to their channels concurrently. Each send
// runs on its own background context with the configured timeout, so a client
// disconnect does not abort an in-flight delivery.
type Dispatcher struct {
	timeout time.Duration
	logger  *slog.Logger
}

// NewDispatcher returns a Dispatcher with the given per-channel timeout.
// logger may be nil; then failures are not logged (still reported in the Result).
func NewDispatcher(timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Dispatcher{timeout: timeout, logger: logger}
}

// Dispatch sends every message concurrently and waits for all channels to
// finish. The returned Result has one entry per send, in input order.
func (d *Dispatcher) Dispatch(sends ...Send) Result {
	result := make(Result, len(sends))
	var wg sync.WaitGroup
	for i, s := range sends {
		wg.Add(1)
		go func(i int, s Send) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()
			err := s.Channel.Send(ctx, s.Message)
			result[i] = Delivery{Channel: s.Channel.Name(), Err: err}
			status := "ok"
			if err != nil {
				status = "failed"
			}
			observability.DeliveriesTotal.WithLabelValues(s.Channel.Name(), status).Inc()
			if err != nil && d.logger != nil {
				d.logger.Warn("notification delivery failed",
					slog.String("channel", s.Channel.Name()),
					slog.String("error", err.Error()))
			}
		}(i, s)
	}
	wg.Wait()
	return result
}

// DispatchAsync runs Dispatch in a goroutine for fire-and-forget sends
// (e.g. the welcome email). The result is only logged.
func (d *Dispatcher) DispatchAsync(sends ...Send) {
	go func() {
		d.Dispatch(sends...)
	}()
}

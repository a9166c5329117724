// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 drgz Accounts Contributors

package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/drgz/accounts/internal/auth"
	"github.com/drgz/accounts/pkg/errutil"
)

// DefaultSendTimeout bounds a single delivery.
const DefaultSendTimeout = 30 * time.Second

// Delivery statuses reported to the Recorder.
const (
	StatusSent         = "sent"
	StatusRenderFailed = "render_failed"
	StatusSendFailed   = "send_failed"
)

// Recorder counts delivery outcomes.
type Recorder interface {
	RecordNotification(template, status string)
}

type noopRecorder struct{}

func (noopRecorder) RecordNotification(string, string) {}

// Dispatcher renders and sends account mail in the background.
// It implements auth.Notifier.
type Dispatcher struct {
	renderer *Renderer
	sender   Sender
	logger   *slog.Logger
	recorder Recorder
	timeout  time.Duration
	wg       sync.WaitGroup
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger used for delivery results.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithRecorder sets the delivery metrics recorder.
func WithRecorder(r Recorder) DispatcherOption {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithSendTimeout bounds each delivery.
func WithSendTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// NewDispatcher creates a dispatcher rendering with renderer and delivering through sender.
func NewDispatcher(renderer *Renderer, sender Sender, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		renderer: renderer,
		sender:   sender,
		logger:   slog.Default(),
		recorder: noopRecorder{},
		timeout:  DefaultSendTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify queues msg for delivery and returns immediately. The delivery keeps
// the values of ctx but outlives its cancellation.
func (d *Dispatcher) Notify(ctx context.Context, msg auth.Message) {
	jobID := ulid.Make().String()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		d.deliver(sendCtx, jobID, msg)
	}()
}

func (d *Dispatcher) deliver(ctx context.Context, jobID string, msg auth.Message) {
	logger := d.logger.With("job_id", jobID, "template", msg.Template)

	htmlBody, textBody, err := d.renderer.Render(msg.Template, msg.Vars)
	if err != nil {
		d.recorder.RecordNotification(msg.Template, StatusRenderFailed)
		errutil.LogErrorContext(ctx, logger, "mail render failed", err)
		return
	}

	err = d.sender.Send(ctx, Email{
		To:       msg.To,
		From:     msg.From,
		FromName: msg.FromName,
		Subject:  msg.Subject,
		HTML:     htmlBody,
		Text:     textBody,
	})
	if err != nil {
		d.recorder.RecordNotification(msg.Template, StatusSendFailed)
		logger.WarnContext(ctx, "mail delivery failed",
			"operation", "send mail",
			"error", err)
		return
	}

	d.recorder.RecordNotification(msg.Template, StatusSent)
	logger.DebugContext(ctx, "mail sent")
}

// Wait blocks until queued deliveries finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck // caller owns the context
	}
}

var _ auth.Notifier = (*Dispatcher)(nil)

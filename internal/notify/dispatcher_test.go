// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 drgz Accounts Contributors

package notify_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drgz/accounts/internal/auth"
	"github.com/drgz/accounts/internal/notify"
	"github.com/drgz/accounts/internal/observability"
)

type captureSender struct {
	mu      sync.Mutex
	emails  []notify.Email
	ctxErrs []error
	err     error
	block   chan struct{}
}

func (s *captureSender) Send(ctx context.Context, email notify.Email) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emails = append(s.emails, email)
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	return s.err
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) RecordNotification(template, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[template+"/"+status]++
}

func newDispatcher(t *testing.T, sender notify.Sender, opts ...notify.DispatcherOption) *notify.Dispatcher {
	t.Helper()
	renderer, err := notify.NewRenderer()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return notify.NewDispatcher(renderer, sender, append([]notify.DispatcherOption{notify.WithLogger(logger)}, opts...)...)
}

func message(template string) auth.Message {
	return auth.Message{
		To:       "a@b.com",
		From:     "info@ascendth.com",
		Subject:  "Account Activation",
		Template: template,
		Vars:     mailVars(),
	}
}

func waitAll(t *testing.T, d *notify.Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Wait(ctx))
}

func TestDispatcher_DeliversRenderedMail(t *testing.T) {
	sender := &captureSender{}
	recorder := &countingRecorder{}
	d := newDispatcher(t, sender, notify.WithRecorder(recorder))

	d.Notify(context.Background(), message(auth.TemplateRegister))
	waitAll(t, d)

	require.Len(t, sender.emails, 1)
	email := sender.emails[0]
	assert.Equal(t, "a@b.com", email.To)
	assert.Equal(t, "Account Activation", email.Subject)
	assert.Contains(t, email.HTML, "http://localhost:3000/verify/tok")
	assert.Contains(t, email.Text, "http://localhost:3000/verify/tok")
	assert.Equal(t, 1, recorder.counts["register.html/sent"])
}

func TestDispatcher_NotifyDoesNotBlock(t *testing.T) {
	sender := &captureSender{block: make(chan struct{})}
	d := newDispatcher(t, sender)

	returned := make(chan struct{})
	go func() {
		d.Notify(context.Background(), message(auth.TemplatePasswordReset))
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on delivery")
	}

	close(sender.block)
	waitAll(t, d)
	assert.Len(t, sender.emails, 1)
}

func TestDispatcher_SurvivesCallerCancellation(t *testing.T) {
	sender := &captureSender{block: make(chan struct{})}
	d := newDispatcher(t, sender)

	ctx, cancel := context.WithCancel(context.Background())
	d.Notify(ctx, message(auth.TemplateRegister))
	cancel()
	close(sender.block)
	waitAll(t, d)

	require.Len(t, sender.ctxErrs, 1)
	assert.NoError(t, sender.ctxErrs[0])
}

func TestDispatcher_SendFailureIsRecorded(t *testing.T) {
	sender := &captureSender{err: errors.New("smtp down")}
	recorder := &countingRecorder{}
	d := newDispatcher(t, sender, notify.WithRecorder(recorder))

	d.Notify(context.Background(), message(auth.TemplatePasswordReset))
	waitAll(t, d)

	assert.Equal(t, 1, recorder.counts["password-reset.html/send_failed"])
}

func TestDispatcher_RenderFailureSkipsSend(t *testing.T) {
	sender := &captureSender{}
	recorder := &countingRecorder{}
	d := newDispatcher(t, sender, notify.WithRecorder(recorder))

	d.Notify(context.Background(), message("missing.html"))
	waitAll(t, d)

	assert.Empty(t, sender.emails)
	assert.Equal(t, 1, recorder.counts["missing.html/render_failed"])
}

func TestDispatcher_WaitHonorsContext(t *testing.T) {
	sender := &captureSender{block: make(chan struct{})}
	d := newDispatcher(t, sender)
	d.Notify(context.Background(), message(auth.TemplateRegister))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Wait(ctx), context.DeadlineExceeded)

	close(sender.block)
	waitAll(t, d)
}

func TestDispatcher_RecordsPrometheusMetrics(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	d := newDispatcher(t, &captureSender{}, notify.WithRecorder(metrics))

	d.Notify(context.Background(), message(auth.TemplateRegister))
	waitAll(t, d)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.NotificationsTotal.WithLabelValues("register.html", "sent")), 0)
}

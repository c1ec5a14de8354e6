// Package gojob maps the bridge's maintenance jobs onto go-job queue
// contracts so hosts can run session sweeps from their existing workers.
package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-login-bridge/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
)

const (
	JobIDSweepSessions = "bridge.sessions.sweep"
)

// NewSweepMessage builds the periodic sweep execution message. The
// idempotency key buckets enqueues by sweep window so a crashed scheduler
// retry does not double-run the same window.
func NewSweepMessage(window time.Time, interval time.Duration) *core.JobExecutionMessage {
	if interval <= 0 {
		interval = core.DefaultSweepInterval
	}
	bucket := window.UTC().Truncate(interval)
	return &core.JobExecutionMessage{
		JobID:          JobIDSweepSessions,
		Parameters:     map[string]any{},
		IdempotencyKey: fmt.Sprintf("%s::%d", JobIDSweepSessions, bucket.Unix()),
		DedupPolicy:    "drop",
	}
}

// RetryPolicy defines queue retry bounds to avoid unbounded retry loops.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt enforces bounded retry behavior for a nack operation.
func (p RetryPolicy) NormalizeAttempt(opts core.JobNackOptions, attempt int) core.JobNackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// ToExecutionMessage maps a bridge runtime message to go-job.
func ToExecutionMessage(msg *core.JobExecutionMessage) *job.ExecutionMessage {
	if msg == nil {
		return nil
	}
	return &job.ExecutionMessage{
		JobID:          strings.TrimSpace(msg.JobID),
		Parameters:     copyAnyMap(msg.Parameters),
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		DedupPolicy:    job.DeduplicationPolicy(strings.TrimSpace(msg.DedupPolicy)),
	}
}

// FromExecutionMessage maps a go-job message into the bridge contract.
func FromExecutionMessage(msg *job.ExecutionMessage) *core.JobExecutionMessage {
	if msg == nil {
		return nil
	}
	return &core.JobExecutionMessage{
		JobID:          strings.TrimSpace(msg.JobID),
		Parameters:     copyAnyMap(msg.Parameters),
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		DedupPolicy:    strings.TrimSpace(string(msg.DedupPolicy)),
	}
}

// ToNackOptions maps bridge nack options to a go-job disposition. The queue
// rejects an empty disposition, so the no-retry no-dead-letter case becomes a
// terminal failure.
func ToNackOptions(opts core.JobNackOptions) queue.NackOptions {
	disposition := queue.NackDispositionFailed
	switch {
	case opts.Requeue:
		disposition = queue.NackDispositionRetry
	case opts.DeadLetter:
		disposition = queue.NackDispositionDeadLetter
	}
	return queue.NackOptions{
		Disposition: disposition,
		Delay:       opts.Delay,
		Reason:      opts.Reason,
	}
}

// FromNackOptions maps a go-job disposition back to the bridge contract.
func FromNackOptions(opts queue.NackOptions) core.JobNackOptions {
	out := core.JobNackOptions{
		Delay:  opts.Delay,
		Reason: opts.Reason,
	}
	switch opts.Disposition {
	case queue.NackDispositionRetry:
		out.Requeue = true
	case queue.NackDispositionDeadLetter:
		out.DeadLetter = true
	}
	return out
}

type EnqueuerAdapter struct {
	enqueuer queue.Enqueuer
}

func NewEnqueuerAdapter(enqueuer queue.Enqueuer) *EnqueuerAdapter {
	return &EnqueuerAdapter{enqueuer: enqueuer}
}

func (a *EnqueuerAdapter) Enqueue(ctx context.Context, msg *core.JobExecutionMessage) error {
	if a == nil || a.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	if msg == nil {
		return fmt.Errorf("gojob: execution message is required")
	}
	if _, err := a.enqueuer.Enqueue(ctx, ToExecutionMessage(msg)); err != nil {
		return err
	}
	return nil
}

type DeliveryAdapter struct {
	delivery queue.Delivery
	policy   RetryPolicy
}

func NewDeliveryAdapter(delivery queue.Delivery, policy RetryPolicy) *DeliveryAdapter {
	return &DeliveryAdapter{delivery: delivery, policy: policy}
}

func (d *DeliveryAdapter) Message() *core.JobExecutionMessage {
	if d == nil || d.delivery == nil {
		return nil
	}
	return FromExecutionMessage(d.delivery.Message())
}

func (d *DeliveryAdapter) Ack(ctx context.Context) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	return d.delivery.Ack(ctx)
}

func (d *DeliveryAdapter) Nack(ctx context.Context, opts core.JobNackOptions) error {
	return d.NackForAttempt(ctx, opts, 0)
}

func (d *DeliveryAdapter) NackForAttempt(ctx context.Context, opts core.JobNackOptions, attempt int) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	normalized := d.policy.NormalizeAttempt(opts, attempt)
	return d.delivery.Nack(ctx, ToNackOptions(normalized))
}

// SweepExecutor runs sweep job deliveries against the bridge service.
type SweepExecutor struct {
	service *core.Service
}

func NewSweepExecutor(service *core.Service) (*SweepExecutor, error) {
	if service == nil {
		return nil, fmt.Errorf("gojob: bridge service is required")
	}
	return &SweepExecutor{service: service}, nil
}

func (e *SweepExecutor) Execute(ctx context.Context, msg *core.JobExecutionMessage) error {
	if e == nil || e.service == nil {
		return fmt.Errorf("gojob: sweep executor is not configured")
	}
	if msg == nil {
		return fmt.Errorf("gojob: execution message is required")
	}
	if strings.TrimSpace(msg.JobID) != JobIDSweepSessions {
		return fmt.Errorf("gojob: unexpected job id %q", msg.JobID)
	}
	_, err := e.service.SweepSessions(ctx)
	return err
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

var (
	_ core.JobEnqueuer = (*EnqueuerAdapter)(nil)
	_ core.JobDelivery = (*DeliveryAdapter)(nil)
)

package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// LoginPipeline turns an authorization code into a LoginResult or a
// stage-attributed failure. Implemented by the federation package; stubbed
// in tests.
type LoginPipeline interface {
	Exchange(ctx context.Context, code string) (LoginResult, error)
}

// ClaimLedger hands out single-use claims so two concurrent callbacks for the
// same correlation id cannot both attempt delivery.
type ClaimLedger interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	PurgeExpired(ctx context.Context) (int, error)
}

// AccountLinkStore persists the durable link between a local user and the
// federated account profile.
type AccountLinkStore interface {
	Upsert(ctx context.Context, link LinkedAccount) (LinkedAccount, error)
	FindByUser(ctx context.Context, userID string) (LinkedAccount, error)
	DeleteByUser(ctx context.Context, userID string) error
}

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type JobExecutionMessage struct {
	JobID          string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

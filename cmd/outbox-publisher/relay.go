package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/printbridge-backend/pkg/config"
	"github.com/angelmondragon/printbridge-backend/pkg/db/models"
	"github.com/angelmondragon/printbridge-backend/pkg/logger"
	"github.com/angelmondragon/printbridge-backend/pkg/metrics"
	"github.com/angelmondragon/printbridge-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/printbridge-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxIdleBackoff        = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond

	reasonNonRetryable = "non_retryable"
	reasonMaxAttempts  = "max_attempts"

	severityAlert = "alert"
	severityInfo  = "info"
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
	// ResumePublish unblocks an ordering key after a failed publish.
	ResumePublish(orderingKey string)
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type publisherFactory func(topic string) publisher

// outcome is what happened to one outbox row during a drain.
type outcome int

const (
	outcomePublished outcome = iota
	outcomeRetry
	outcomeTerminal
	outcomeDeferred
)

type RelayParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	Metrics          *metrics.OutboxMetrics
	Instance         string
}

// Relay drains wallet and order events from the outbox into Pub/Sub. Rows that
// share an aggregate are published in insertion order: once one fails, the rest
// of that aggregate's rows in the batch wait for the next drain.
type Relay struct {
	logg        *logger.Logger
	db          dbClient
	pubsub      pubSubClient
	repo        outboxRepository
	registry    registryResolver
	metrics     *metrics.OutboxMetrics
	publishers  publisherFactory
	instance    string
	batchSize   int
	maxAttempts int
	interval    time.Duration
}

func NewRelay(params RelayParams) (*Relay, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = func(topic string) publisher {
			return wrapPublisher(params.PubSub.Publisher(topic))
		}
	}

	cfg := params.Config.Outbox
	r := &Relay{
		logg:        params.Logger,
		db:          params.DB,
		pubsub:      params.PubSub,
		repo:        params.Repository,
		registry:    params.Registry,
		metrics:     params.Metrics,
		publishers:  factory,
		instance:    params.Instance,
		batchSize:   defaultBatchSize,
		maxAttempts: defaultMaxAttempts,
		interval:    defaultPollInterval,
	}
	if cfg.BatchSize > 0 {
		r.batchSize = cfg.BatchSize
	}
	if cfg.MaxAttempts > 0 {
		r.maxAttempts = cfg.MaxAttempts
	}
	if cfg.PollIntervalMS > 0 {
		r.interval = time.Duration(cfg.PollIntervalMS) * time.Millisecond
	}
	return r, nil
}

// Run drains until ctx is cancelled. A batch that published something is
// followed immediately by another drain. A batch whose rows all failed backs
// off like a drain error so a Pub/Sub outage does not burn through attempts.
func (r *Relay) Run(ctx context.Context) error {
	for name, ping := range map[string]func(context.Context) error{"database": r.db.Ping, "pubsub": r.pubsub.Ping} {
		if err := ping(ctx); err != nil {
			r.logg.Error(ctx, name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}

	wait := r.interval
	for {
		if err := ctx.Err(); err != nil {
			r.logg.Info(ctx, "outbox relay stopping")
			return err
		}

		stats, err := r.drain(ctx)
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox drain failed", err)
			wait = growBackoff(wait, r.interval, maxIdleBackoff)
		case stats.published > 0:
			wait = r.interval
			continue
		case stats.fetched > 0:
			r.logg.Warn(r.logg.WithField(ctx, "fetched", stats.fetched), "outbox batch made no progress, backing off")
			wait = growBackoff(wait, r.interval, maxIdleBackoff)
		default:
			wait = r.interval
		}

		if err := sleepCtx(ctx, withJitter(wait)); err != nil {
			return err
		}
	}
}

type drainStats struct {
	fetched   int
	published int
}

// drain publishes one batch inside a transaction.
func (r *Relay) drain(ctx context.Context) (drainStats, error) {
	started := time.Now()
	defer func() { r.metrics.ObserveBatch(time.Since(started)) }()

	var stats drainStats
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.repo.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return err
		}
		stats.fetched = len(rows)

		blocked := map[string]bool{}
		for _, row := range rows {
			got, err := r.dispatch(ctx, tx, row, blocked)
			if err != nil {
				return err
			}
			if got == outcomePublished {
				stats.published++
			}
		}
		return nil
	})
	return stats, err
}

// dispatch publishes one row and records the result on it. The returned error
// is only for bookkeeping failures; publish failures are recorded on the row.
func (r *Relay) dispatch(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, blocked map[string]bool) (outcome, error) {
	key := orderingKey(row)
	if blocked[key] {
		return outcomeDeferred, nil
	}

	resolved, err := r.registry.Resolve(row)
	if err != nil {
		return outcomeTerminal, r.park(ctx, tx, row, nil, reasonNonRetryable, err)
	}

	fields := r.rowFields(row, resolved)
	pubErr := r.publish(ctx, row, resolved, key)
	if pubErr == nil {
		if err := r.repo.MarkPublishedTx(tx, row.ID); err != nil {
			return outcomePublished, fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		r.metrics.IncPublished(string(row.EventType))
		r.logg.Info(r.logg.WithFields(ctx, fields), "outbox event published")
		return outcomePublished, nil
	}

	blocked[key] = true

	var nonRetry registry.NonRetryableError
	if errors.As(pubErr, &nonRetry) {
		return outcomeTerminal, r.park(ctx, tx, row, fields, reasonNonRetryable, pubErr)
	}
	attempt := row.AttemptCount + 1
	fields["attempt_count"] = attempt
	if attempt >= r.maxAttempts {
		return outcomeTerminal, r.park(ctx, tx, row, fields, reasonMaxAttempts, fmt.Errorf("max publish attempts reached: %w", pubErr))
	}

	fields["error"] = pubErr.Error()
	r.logg.Warn(r.logg.WithFields(ctx, fields), "outbox publish failed, will retry")
	r.metrics.IncFailed(string(row.EventType), false)
	if err := r.repo.MarkFailedTx(tx, row.ID, pubErr); err != nil {
		return outcomeRetry, fmt.Errorf("mark failure %s: %w", row.ID, err)
	}
	return outcomeRetry, nil
}

// park marks the row terminal; it stays in the table as the dead letter.
func (r *Relay) park(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, fields map[string]any, reason string, cause error) error {
	if fields == nil {
		fields = r.rowFields(row, nil)
	}
	fields["error_reason"] = reason
	fields["error"] = cause.Error()
	r.logg.Warn(r.logg.WithFields(ctx, fields), "outbox event parked")
	r.metrics.IncFailed(string(row.EventType), true)

	if err := r.repo.MarkTerminalTx(tx, row.ID, fmt.Errorf("%s: %w", reason, cause), r.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", row.ID, err)
	}
	return nil
}

func (r *Relay) publish(ctx context.Context, row models.OutboxEvent, resolved *registry.ResolvedEvent, key string) error {
	topic := resolved.Descriptor.Topic
	pub := r.publishers(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()

	result := pub.Publish(publishCtx, &gcppubsub.Message{
		Data:        row.Payload,
		OrderingKey: key,
		Attributes:  messageAttributes(row, resolved),
	})
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned no result for topic %s", topic))
	}
	if _, err := result.Get(publishCtx); err != nil {
		pub.ResumePublish(key)
		return err
	}
	return nil
}

func messageAttributes(row models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]string {
	attrs := map[string]string{
		"event_id":       resolved.Envelope.EventID,
		"event_type":     string(row.EventType),
		"aggregate_type": string(row.AggregateType),
		"aggregate_id":   row.AggregateID,
		"severity":       severityInfo,
		"created_at":     row.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if resolved.Descriptor.Alert {
		attrs["severity"] = severityAlert
	}
	if ref, ok := resolved.Payload.(payloads.Referencer); ok {
		refs := ref.Refs()
		if refs.VendorID > 0 {
			attrs["vendor_id"] = strconv.FormatInt(refs.VendorID, 10)
		}
		if refs.OrderID != uuid.Nil {
			attrs["order_id"] = refs.OrderID.String()
		}
	}
	return attrs
}

func (r *Relay) rowFields(row models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      row.ID.String(),
		"event_type":     row.EventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID,
		"attempt_count":  row.AttemptCount,
	}
	if r.instance != "" {
		fields["instance"] = r.instance
	}
	if row.LastError != nil {
		fields["last_error"] = *row.LastError
	}
	if resolved != nil {
		fields["topic"] = resolved.Descriptor.Topic
		fields["event_id"] = resolved.Envelope.EventID
		for k, v := range messageAttributes(row, resolved) {
			if k == "vendor_id" || k == "order_id" || k == "severity" {
				fields[k] = v
			}
		}
	}
	return fields
}

// orderingKey groups rows whose relative order matters to subscribers.
func orderingKey(row models.OutboxEvent) string {
	return string(row.AggregateType) + ":" + row.AggregateID
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func growBackoff(current, base, limit time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	if next := current * 2; next < limit {
		return next
	}
	return limit
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func wrapPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{Publisher: p}
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.Publisher.Publish(ctx, msg)
}

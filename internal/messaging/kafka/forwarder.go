package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/events"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

const (
	defaultBufferSize     = 1024
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 50 * time.Millisecond
)

// Результаты пересылки для метрики events_forwarded_total.
const (
	forwardSent       = "sent"
	forwardRetryError = "retry_error"
	forwardFailed     = "failed"
	forwardDropped    = "dropped"
	forwardDLQ        = "dlq"
	forwardDLQFailed  = "dlq_failed"
)

// Publisher отправляет готовое сообщение в брокер. Реализуется *Producer.
type Publisher interface {
	PublishRaw(topic, key string, value []byte, headers map[string]string) error
}

// ForwarderOptions задаёт параметры Forwarder.
type ForwarderOptions struct {
	Logger         *log.Entry
	Metrics        *metrics.StoreMetrics
	Topic          string
	DLQTopic       string
	BufferSize     int
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

// Option настраивает Forwarder.
type Option func(*ForwarderOptions)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *ForwarderOptions) {
		opts.Logger = logger
	}
}

// WithMetrics задаёт коллекторы метрик.
func WithMetrics(m *metrics.StoreMetrics) Option {
	return func(opts *ForwarderOptions) {
		opts.Metrics = m
	}
}

// WithTopic переопределяет топик событий.
func WithTopic(topic string) Option {
	return func(opts *ForwarderOptions) {
		opts.Topic = topic
	}
}

// WithDLQTopic включает отправку в DLQ после исчерпания retry. Пустая строка отключает DLQ.
func WithDLQTopic(topic string) Option {
	return func(opts *ForwarderOptions) {
		opts.DLQTopic = topic
	}
}

// WithBufferSize задаёт размер очереди между шиной и воркером.
func WithBufferSize(size int) Option {
	return func(opts *ForwarderOptions) {
		opts.BufferSize = size
	}
}

// WithMaxAttempts задаёт число попыток публикации.
func WithMaxAttempts(maxAttempts int) Option {
	return func(opts *ForwarderOptions) {
		opts.MaxAttempts = maxAttempts
	}
}

// WithRetryBaseDelay задаёт базовый delay для exponential backoff.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(opts *ForwarderOptions) {
		opts.RetryBaseDelay = delay
	}
}

// Forwarder пересылает события шины в Kafka. Подписчик шины только кладёт
// событие в буфер; публикацией занимается Run в отдельной горутине.
type Forwarder struct {
	publisher      Publisher
	logger         *log.Entry
	metrics        *metrics.StoreMetrics
	topic          string
	dlqTopic       string
	maxAttempts    int
	retryBaseDelay time.Duration
	queue          chan StateEvent
}

// NewForwarder создаёт forwarder поверх publisher.
func NewForwarder(publisher Publisher, options ...Option) *Forwarder {
	opts := ForwarderOptions{
		Topic:          TopicStateEvents,
		BufferSize:     defaultBufferSize,
		MaxAttempts:    defaultMaxAttempts,
		RetryBaseDelay: defaultRetryBaseDelay,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	if opts.Topic == "" {
		opts.Topic = TopicStateEvents
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultBufferSize
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.RetryBaseDelay < 0 {
		opts.RetryBaseDelay = 0
	}

	return &Forwarder{
		publisher:      publisher,
		logger:         logger.WithField("component", "kafka-forwarder"),
		metrics:        opts.Metrics,
		topic:          opts.Topic,
		dlqTopic:       opts.DLQTopic,
		maxAttempts:    opts.MaxAttempts,
		retryBaseDelay: opts.RetryBaseDelay,
		queue:          make(chan StateEvent, opts.BufferSize),
	}
}

// Attach подписывает forwarder на все топики шины и возвращает отписку.
func (f *Forwarder) Attach(bus *events.Bus) func() {
	return bus.SubscribeAll(func(ev events.Event) {
		f.Enqueue(FromBusEvent(ev))
	})
}

// Enqueue ставит событие в очередь без блокировки. При полном буфере
// событие отбрасывается, и возвращается false.
func (f *Forwarder) Enqueue(ev StateEvent) bool {
	select {
	case f.queue <- ev:
		return true
	default:
		f.metrics.RecordEventForwarded(forwardDropped)
		f.logger.WithFields(log.Fields{
			"event_type": ev.EventType,
			"profile_id": ev.ProfileID,
		}).Warn("forward buffer is full, event dropped")
		return false
	}
}

// Pending — число событий в буфере.
func (f *Forwarder) Pending() int {
	return len(f.queue)
}

// Capacity — размер буфера.
func (f *Forwarder) Capacity() int {
	return cap(f.queue)
}

// Run публикует события из буфера до отмены ctx. После отмены оставшиеся
// в буфере события отправляются по одной попытке.
func (f *Forwarder) Run(ctx context.Context) {
	if f.publisher == nil {
		f.logger.Warn("kafka forwarder is disabled: publisher is nil")
		return
	}

	for {
		select {
		case <-ctx.Done():
			f.flush()
			return
		case ev := <-f.queue:
			f.forward(ctx, ev)
		}
	}
}

func (f *Forwarder) flush() {
	for {
		select {
		case ev := <-f.queue:
			value, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := f.publisher.PublishRaw(f.topic, ev.Key(), value, nil); err != nil {
				f.metrics.RecordEventForwarded(forwardFailed)
				f.logger.WithError(err).WithField("event_type", ev.EventType).Warn("failed to flush event on shutdown")
				continue
			}
			f.metrics.RecordEventForwarded(forwardSent)
		default:
			return
		}
	}
}

func (f *Forwarder) forward(ctx context.Context, ev StateEvent) {
	value, err := json.Marshal(ev)
	if err != nil {
		f.logger.WithError(err).Error("failed to marshal state event")
		f.metrics.RecordEventForwarded(forwardFailed)
		return
	}

	attempts, err := f.publishWithRetry(ctx, ev.Key(), value)
	if err == nil {
		return
	}

	f.logger.WithError(err).WithFields(log.Fields{
		"event_type": ev.EventType,
		"profile_id": ev.ProfileID,
	}).Error("event forward failed after retries")
	f.metrics.RecordEventForwarded(forwardFailed)

	if dlqErr := f.publishToDLQ(ev.Key(), value, attempts, err); dlqErr != nil {
		f.logger.WithError(dlqErr).WithField("profile_id", ev.ProfileID).Warn("failed to publish to DLQ")
		f.metrics.RecordEventForwarded(forwardDLQFailed)
	}
}

func (f *Forwarder) publishWithRetry(ctx context.Context, key string, value []byte) (int, error) {
	var lastErr error

	attempt := 1
	for ; attempt <= f.maxAttempts; attempt++ {
		err := f.publisher.PublishRaw(f.topic, key, value, nil)
		if err == nil {
			f.metrics.RecordEventForwarded(forwardSent)
			return attempt, nil
		}
		lastErr = err
		f.metrics.RecordEventForwarded(forwardRetryError)

		if attempt >= f.maxAttempts {
			break
		}

		delay := f.retryBackoff(attempt)
		if delay <= 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(delay):
		}
	}

	return attempt, fmt.Errorf("publish failed after %d attempts: %w", f.maxAttempts, lastErr)
}

func (f *Forwarder) retryBackoff(attempt int) time.Duration {
	if f.retryBaseDelay <= 0 {
		return 0
	}

	const maxDuration = time.Duration(1<<63 - 1)
	delay := f.retryBaseDelay
	for i := 1; i < attempt; i++ {
		if delay > maxDuration/2 {
			return maxDuration
		}
		delay *= 2
	}
	return delay
}

func (f *Forwarder) publishToDLQ(key string, value []byte, attempts int, publishErr error) error {
	if f.dlqTopic == "" {
		return nil
	}

	failedAt := time.Now().UTC()
	payload, err := json.Marshal(DeadLetter{
		OriginalTopic: f.topic,
		OriginalKey:   key,
		OriginalValue: value,
		ErrorMessage:  publishErr.Error(),
		Attempts:      attempts,
		FailedAt:      failedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal dlq payload: %w", err)
	}

	headers := map[string]string{
		HeaderRetryCount:    strconv.Itoa(attempts),
		HeaderOriginalTopic: f.topic,
		HeaderErrorMessage:  publishErr.Error(),
		HeaderFailedAt:      failedAt.Format(time.RFC3339Nano),
	}
	if err := f.publisher.PublishRaw(f.dlqTopic, key, payload, headers); err != nil {
		return fmt.Errorf("publish to dlq: %w", err)
	}
	f.metrics.RecordEventForwarded(forwardDLQ)
	return nil
}

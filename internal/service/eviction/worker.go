package eviction

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

const (
	defaultInterval  = 5 * time.Minute
	defaultIdleTTL   = 30 * time.Minute
	defaultBatchSize = 100
)

var (
	evictionRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_profile_eviction_runs_total",
		Help: "Total number of idle profile eviction runs.",
	})
	evictionUnloadedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_profile_eviction_unloaded_total",
		Help: "Total number of idle profiles unloaded from memory.",
	})
	evictionLastUnloaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_profile_eviction_last_unloaded",
		Help: "Number of profiles unloaded during the last eviction run.",
	})
)

// IdleEvicter выгружает из памяти профили, не использовавшиеся с момента before.
type IdleEvicter interface {
	EvictIdle(before time.Time, limit int) int
}

// Options задает параметры воркера выгрузки.
type Options struct {
	Logger    *log.Entry
	Interval  time.Duration
	IdleTTL   time.Duration
	BatchSize int
	Now       func() time.Time
}

// Option настраивает Worker.
type Option func(*Options)

// WithLogger задает logger для воркера.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithInterval задает интервал между проходами.
func WithInterval(interval time.Duration) Option {
	return func(opts *Options) {
		opts.Interval = interval
	}
}

// WithIdleTTL задает время простоя, после которого профиль выгружается.
func WithIdleTTL(ttl time.Duration) Option {
	return func(opts *Options) {
		opts.IdleTTL = ttl
	}
}

// WithBatchSize задает размер одной порции.
func WithBatchSize(batchSize int) Option {
	return func(opts *Options) {
		opts.BatchSize = batchSize
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(opts *Options) {
		opts.Now = now
	}
}

// Worker периодически выгружает простаивающие профили. Сохраненное состояние
// не затрагивается: следующий запрос загрузит профиль из хранилища заново.
type Worker struct {
	target    IdleEvicter
	logger    *log.Entry
	interval  time.Duration
	idleTTL   time.Duration
	batchSize int
	now       func() time.Time
}

// NewWorker создает воркер выгрузки.
func NewWorker(target IdleEvicter, options ...Option) *Worker {
	opts := Options{
		Interval:  defaultInterval,
		IdleTTL:   defaultIdleTTL,
		BatchSize: defaultBatchSize,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "profile-eviction-worker")
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = defaultIdleTTL
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Worker{
		target:    target,
		logger:    logger,
		interval:  opts.Interval,
		idleTTL:   opts.IdleTTL,
		batchSize: opts.BatchSize,
		now:       opts.Now,
	}
}

// Run выполняет проходы до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.target == nil {
		w.logger.Warn("profile eviction worker is disabled: target is nil")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Worker) sweep(ctx context.Context) {
	unloaded := w.EvictIdle(ctx)

	evictionRunsTotal.Inc()
	evictionLastUnloaded.Set(float64(unloaded))
	if unloaded > 0 {
		w.logger.WithField("unloaded", unloaded).Info("idle profiles unloaded")
	}
}

// EvictIdle выгружает все профили, простаивающие дольше idleTTL, порциями batchSize.
func (w *Worker) EvictIdle(ctx context.Context) int {
	before := w.now().Add(-w.idleTTL)

	total := 0
	for ctx.Err() == nil {
		unloaded := w.target.EvictIdle(before, w.batchSize)
		total += unloaded
		if unloaded > 0 {
			evictionUnloadedTotal.Add(float64(unloaded))
		}
		if unloaded < w.batchSize {
			break
		}
	}
	return total
}

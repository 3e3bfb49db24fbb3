package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты операций менеджеров.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultInvalid  = "invalid"
	ResultError    = "error"
)

// StoreMetrics содержит метрики менеджеров локального состояния.
type StoreMetrics struct {
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec

	malformedLoads *prometheus.CounterVec
	saveFailures   *prometheus.CounterVec

	capacityRejections *prometheus.CounterVec
	eventsPublished    *prometheus.CounterVec
	eventsForwarded    *prometheus.CounterVec

	activeProfiles prometheus.Gauge
}

// NewStoreMetrics создаёт метрики в DefaultRegisterer.
func NewStoreMetrics() *StoreMetrics {
	return NewStoreMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewStoreMetricsWithRegisterer создаёт метрики в указанном registerer.
// Повторная регистрация возвращает уже существующие коллекторы.
func NewStoreMetricsWithRegisterer(registerer prometheus.Registerer) *StoreMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &StoreMetrics{
		operations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_state_operations_total",
			Help: "Total number of state manager operations",
		}, []string{"manager", "op", "result"}),
		operationDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "storefront_state_operation_duration_seconds",
			Help:    "Duration of state manager operations in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}, []string{"manager", "op"}),
		malformedLoads: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_state_malformed_loads_total",
			Help: "Total number of persisted payloads that failed to decode",
		}, []string{"key"}),
		saveFailures: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_state_save_failures_total",
			Help: "Total number of failed writes to the key-value store",
		}, []string{"key"}),
		capacityRejections: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_state_capacity_rejections_total",
			Help: "Total number of adds rejected because a bounded set is full",
		}, []string{"set"}),
		eventsPublished: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_state_events_published_total",
			Help: "Total number of change events published on the in-process bus",
		}, []string{"topic"}),
		eventsForwarded: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_state_events_forwarded_total",
			Help: "Total number of change events handed to the external broker",
		}, []string{"result"}),
		activeProfiles: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_state_active_profiles",
			Help: "Number of profiles currently loaded in memory",
		}),
	}
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// Все Record* методы безопасно вызывать на nil *StoreMetrics.

// RecordOperation учитывает выполненную операцию менеджера и её длительность.
func (m *StoreMetrics) RecordOperation(manager, op, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(manager, op, result).Inc()
	m.operationDuration.WithLabelValues(manager, op).Observe(duration.Seconds())
}

// RecordMalformedLoad увеличивает счётчик нечитаемых сохранённых значений.
func (m *StoreMetrics) RecordMalformedLoad(key string) {
	if m == nil {
		return
	}
	m.malformedLoads.WithLabelValues(key).Inc()
}

// RecordSaveFailure увеличивает счётчик неудачных записей.
func (m *StoreMetrics) RecordSaveFailure(key string) {
	if m == nil {
		return
	}
	m.saveFailures.WithLabelValues(key).Inc()
}

// RecordCapacityRejection увеличивает счётчик отказов по лимиту набора.
func (m *StoreMetrics) RecordCapacityRejection(set string) {
	if m == nil {
		return
	}
	m.capacityRejections.WithLabelValues(set).Inc()
}

// RecordEventPublished увеличивает счётчик опубликованных событий.
func (m *StoreMetrics) RecordEventPublished(topic string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(topic).Inc()
}

// RecordEventForwarded учитывает результат передачи события во внешний брокер
// (sent, failed, dropped).
func (m *StoreMetrics) RecordEventForwarded(result string) {
	if m == nil {
		return
	}
	m.eventsForwarded.WithLabelValues(result).Inc()
}

// SetActiveProfiles выставляет число профилей в памяти.
func (m *StoreMetrics) SetActiveProfiles(n int) {
	if m == nil {
		return
	}
	m.activeProfiles.Set(float64(n))
}

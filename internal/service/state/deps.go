// Package state содержит общую обвязку менеджеров локального состояния:
// хранилище профиля, шину событий, логгер, метрики и источники времени/ID.
package state

import (
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/events"
	"github.com/vladislavdragonenkov/storefront/internal/localstore"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// Deps — зависимости одного менеджера, привязанного к профилю.
type Deps struct {
	Profile string
	Store   *localstore.Adapter
	Bus     *events.Bus
	Logger  *log.Entry
	Metrics *metrics.StoreMetrics
	Now     func() time.Time
	NewID   func() string
}

// ForManager заполняет незаданные зависимости и помечает логгер компонентом.
func (d Deps) ForManager(component string) Deps {
	if d.Logger == nil {
		d.Logger = log.NewEntry(log.StandardLogger())
	}
	d.Logger = d.Logger.WithFields(log.Fields{
		"component": component,
		"profile":   d.Profile,
	})
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	return d
}

// UTCNow возвращает текущее время в UTC.
func (d Deps) UTCNow() time.Time {
	return d.Now().UTC()
}

// Publish отправляет событие профиля в шину (если она задана).
func (d Deps) Publish(topic events.Topic, action, entityID string, count int) {
	if d.Bus == nil {
		return
	}
	d.Bus.Publish(events.Event{
		Topic:      topic,
		Profile:    d.Profile,
		Action:     action,
		EntityID:   entityID,
		Count:      count,
		OccurredAt: d.UTCNow(),
	})
}

// Observe учитывает операцию в метриках; вызывается через defer.
func (d Deps) Observe(manager, op string, started time.Time, err *error) {
	var opErr error
	if err != nil {
		opErr = *err
	}
	d.Metrics.RecordOperation(manager, op, Result(opErr), time.Since(started))
}

// Result отображает ошибку операции в метку метрики.
func Result(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, domain.ErrStorageUnavailable):
		return metrics.ResultError
	case domain.IsValidation(err), domain.IsNotFound(err):
		return metrics.ResultInvalid
	default:
		return metrics.ResultError
	}
}

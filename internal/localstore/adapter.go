package localstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// SchemaVersion — текущая версия формата сохранённых значений.
const SchemaVersion = 1

// envelope оборачивает полезную нагрузку версией схемы.
type envelope struct {
	SchemaVersion int             `json:"schema_version"`
	Data          json.RawMessage `json:"data"`
}

// Adapter даёт типизированный JSON-доступ к ключам одного профиля.
type Adapter struct {
	store   domain.KVStore
	prefix  string
	logger  *log.Entry
	metrics *metrics.StoreMetrics
}

// New создаёт адаптер для пространства имён namespace (например, "profile/42").
func New(store domain.KVStore, namespace string, logger *log.Entry, m *metrics.StoreMetrics) *Adapter {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	prefix := ""
	if namespace != "" {
		prefix = namespace + "/"
	}
	return &Adapter{
		store:   store,
		prefix:  prefix,
		logger:  logger.WithField("component", "localstore"),
		metrics: m,
	}
}

// Key возвращает полный ключ хранилища.
func (a *Adapter) Key(key domain.StorageKey) string {
	return a.prefix + string(key)
}

// Load читает значение key. Второй результат false, если ключ отсутствует,
// недоступен или повреждён; повреждение логируется и учитывается в метриках.
func Load[T any](a *Adapter, key domain.StorageKey) (T, bool) {
	var zero T

	full := a.Key(key)
	raw, err := a.store.Get(full)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			a.logger.WithError(err).WithField("key", full).Warn("failed to read persisted value, treating as absent")
		}
		return zero, false
	}

	value, err := decode[T](raw)
	if err != nil {
		a.logger.WithError(err).WithField("key", full).Warn("discarding malformed persisted value")
		a.metrics.RecordMalformedLoad(string(key))
		return zero, false
	}
	return value, true
}

// Save сериализует value и синхронно пишет его в хранилище.
// Ошибка записи оборачивается в domain.ErrStorageUnavailable.
func Save[T any](a *Adapter, key domain.StorageKey, value T) error {
	full := a.Key(key)

	raw, err := encode(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", full, err)
	}

	if err := a.store.Put(full, raw); err != nil {
		a.logger.WithError(err).WithField("key", full).Error("failed to persist value")
		a.metrics.RecordSaveFailure(string(key))
		return fmt.Errorf("%w: put %s: %v", domain.ErrStorageUnavailable, full, err)
	}
	return nil
}

// Remove удаляет ключ.
func (a *Adapter) Remove(key domain.StorageKey) error {
	full := a.Key(key)
	if err := a.store.Delete(full); err != nil {
		a.metrics.RecordSaveFailure(string(key))
		return fmt.Errorf("%w: delete %s: %v", domain.ErrStorageUnavailable, full, err)
	}
	return nil
}

// Clear удаляет все ключи профиля.
func (a *Adapter) Clear() error {
	var errs []error
	for _, key := range domain.AllStorageKeys() {
		if err := a.Remove(key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func encode[T any](value T) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{SchemaVersion: SchemaVersion, Data: data})
}

// decode принимает конверт с версией либо старое значение без конверта (версия 0).
func decode[T any](raw []byte) (T, error) {
	var value T

	payload := bytes.TrimSpace(raw)
	if len(payload) == 0 {
		return value, domain.ErrMalformedPayload
	}

	if payload[0] == '{' {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(payload, &fields); err != nil {
			return value, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
		}
		if versionRaw, ok := fields["schema_version"]; ok {
			var env envelope
			if err := json.Unmarshal(payload, &env); err != nil {
				return value, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
			}
			if env.SchemaVersion < 1 || env.SchemaVersion > SchemaVersion {
				return value, fmt.Errorf("%w: unsupported schema version %s", domain.ErrMalformedPayload, versionRaw)
			}
			payload = env.Data
			if len(payload) == 0 {
				return value, fmt.Errorf("%w: envelope without data", domain.ErrMalformedPayload)
			}
		}
	}

	if err := json.Unmarshal(payload, &value); err != nil {
		return value, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	return value, nil
}

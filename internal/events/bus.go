package events

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// Topic — имя канала уведомлений.
type Topic string

const (
	TopicAddressChanged        Topic = "address.changed"
	TopicPaymentMethodChanged  Topic = "payment_method.changed"
	TopicWalletChanged         Topic = "wallet.changed"
	TopicTransactionRecorded   Topic = "transaction.recorded"
	TopicComparisonChanged     Topic = "comparison.changed"
	TopicWishlistChanged       Topic = "wishlist.changed"
	TopicRecentlyViewedChanged Topic = "recently_viewed.changed"
	TopicSearchHistoryChanged  Topic = "search_history.changed"
)

// Действия, о которых сообщают менеджеры.
const (
	ActionAdded      = "added"
	ActionUpdated    = "updated"
	ActionRemoved    = "removed"
	ActionDefaultSet = "default_set"
	ActionCleared    = "cleared"
	ActionTopUp      = "topup"
	ActionDeduct     = "deduct"
	ActionRecorded   = "recorded"
	ActionTouched    = "touched"
)

// Event — уведомление об изменении состояния профиля.
type Event struct {
	Topic   Topic
	Profile string
	Action  string
	// EntityID — идентификатор изменённой записи (может быть пустым).
	EntityID string
	// Count — размер коллекции после изменения.
	Count      int
	OccurredAt time.Time
}

// Handler обрабатывает событие синхронно.
type Handler func(Event)

type subscription struct {
	id      uint64
	topic   Topic
	all     bool
	handler Handler
}

// Bus — процессная шина pub/sub. Publish вызывает обработчики синхронно
// в порядке подписки.
type Bus struct {
	mu      sync.RWMutex
	nextID  uint64
	subs    []subscription
	logger  *log.Entry
	metrics *metrics.StoreMetrics
	now     func() time.Time
}

// NewBus создаёт пустую шину.
func NewBus(logger *log.Entry, m *metrics.StoreMetrics) *Bus {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Bus{
		logger:  logger.WithField("component", "event-bus"),
		metrics: m,
		now:     time.Now,
	}
}

// Subscribe подписывает handler на topic и возвращает функцию отписки.
func (b *Bus) Subscribe(topic Topic, handler Handler) (unsubscribe func()) {
	return b.add(subscription{topic: topic, handler: handler})
}

// SubscribeAll подписывает handler на все топики.
func (b *Bus) SubscribeAll(handler Handler) (unsubscribe func()) {
	return b.add(subscription{all: true, handler: handler})
}

func (b *Bus) add(sub subscription) func() {
	b.mu.Lock()
	b.nextID++
	sub.id = b.nextID
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(sub.id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish доставляет событие подписчикам. Паника обработчика перехватывается
// и логируется, остальные обработчики всё равно вызываются.
func (b *Bus) Publish(event Event) {
	if b == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = b.now().UTC()
	}

	b.mu.RLock()
	targets := make([]Handler, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.all || sub.topic == event.Topic {
			targets = append(targets, sub.handler)
		}
	}
	b.mu.RUnlock()

	b.metrics.RecordEventPublished(string(event.Topic))

	for _, handler := range targets {
		b.dispatch(handler, event)
	}
}

func (b *Bus) dispatch(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.WithFields(log.Fields{
				"topic":   event.Topic,
				"profile": event.Profile,
				"panic":   r,
			}).Error("event handler panicked")
		}
	}()
	handler(event)
}

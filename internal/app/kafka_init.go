package app

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/events"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// kafkaForwarding — запущенный forwarder событий шины и его producer.
type kafkaForwarding struct {
	forwarder *kafka.Forwarder
	producer  *kafka.Producer
	detach    func()
	cancel    context.CancelFunc
	done      chan struct{}
}

// initKafkaProducer инициализирует Kafka producer, если brokers не пустой.
// Возвращает nil, nil если brokers пустой.
func initKafkaProducer(brokers []string, logger *log.Entry) (*kafka.Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokers, logger)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokers).Info("kafka producer initialized")
	return producer, nil
}

// startKafkaForwarding подписывает forwarder на шину и запускает его worker.
// Без брокеров или при недоступной Kafka возвращает nil: сервис работает без пересылки.
func startKafkaForwarding(cfg Config, bus *events.Bus, m *metrics.StoreMetrics, logger *log.Entry) *kafkaForwarding {
	producer, err := initKafkaProducer(cfg.Brokers(), logger)
	if err != nil || producer == nil {
		return nil
	}

	forwarder := kafka.NewForwarder(producer,
		kafka.WithLogger(logger),
		kafka.WithMetrics(m),
		kafka.WithTopic(cfg.KafkaTopic),
		kafka.WithDLQTopic(cfg.KafkaDLQTopic),
	)

	ctx, cancel := context.WithCancel(context.Background())
	kf := &kafkaForwarding{
		forwarder: forwarder,
		producer:  producer,
		detach:    forwarder.Attach(bus),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go func() {
		defer close(kf.done)
		forwarder.Run(ctx)
	}()

	logger.WithFields(log.Fields{
		"topic":     cfg.KafkaTopic,
		"dlq_topic": cfg.KafkaDLQTopic,
	}).Info("kafka forwarder started")
	return kf
}

// stop отписывает forwarder, дожидается отправки буфера и закрывает producer.
func (k *kafkaForwarding) stop(logger *log.Entry) {
	if k == nil {
		return
	}
	k.detach()
	k.cancel()
	<-k.done
	closeKafkaProducer(k.producer, logger)
}

// closeKafkaProducer закрывает Kafka producer если он не nil.
func closeKafkaProducer(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}

package kafka

import (
	"context"
	"encoding/json"

	"github.com/vlxd-platform/market-intelligence/internal/application/market"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/vlxd-platform/market-intelligence/pkg/errors"
)

const alertSource = "market-intelligence"

// AlertPublisher implements the market alert publisher port on top of the
// Producer.  Each alert becomes one enveloped message on the market.alert
// topic, keyed by product so a product's alerts stay ordered.
type AlertPublisher struct {
	producer *Producer
	logger   logging.Logger
}

func NewAlertPublisher(producer *Producer, log logging.Logger) *AlertPublisher {
	return &AlertPublisher{producer: producer, logger: log.Named("alerts")}
}

func (p *AlertPublisher) Publish(ctx context.Context, alerts []market.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	msgs := make([]*ProducerMessage, 0, len(alerts))
	for _, alert := range alerts {
		env, err := NewEventEnvelope(EventTypeAlertRaised, alertSource, alert)
		if err != nil {
			return err
		}
		msg, err := env.ToMessage(TopicMarketAlert)
		if err != nil {
			return err
		}
		msg.Key = []byte(alert.Product)
		msgs = append(msgs, msg)
	}

	result, err := p.producer.PublishBatch(ctx, msgs)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeAlertPublishFailed, "publishing alerts failed")
	}
	if result.Failed > 0 {
		p.logger.Warn("Some alerts were not published",
			logging.Int("failed", result.Failed),
			logging.Int("succeeded", result.Succeeded))
		return errors.New(errors.ErrCodeAlertPublishFailed, "some alerts were not published")
	}
	return nil
}

// DecodeAlert extracts the alert from a consumed market.alert record.
func DecodeAlert(msg *Message) (market.Alert, error) {
	env, err := MessageToEventEnvelope(msg)
	if err != nil {
		return market.Alert{}, err
	}
	var alert market.Alert
	if err := json.Unmarshal(env.Payload, &alert); err != nil {
		return market.Alert{}, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode alert payload")
	}
	return alert, nil
}

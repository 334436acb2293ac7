package mqtt

import (
	"context"
	"strings"

	"FloodMonitorAPI/internal/models"
)

// Ingester accepts a decoded reading payload.
type Ingester interface {
	IngestMap(ctx context.Context, raw map[string]interface{}, source string) (*models.Reading, error)
}

// PayloadParser decodes a raw payload into a key-value map.
type PayloadParser func(payload []byte) (map[string]interface{}, error)

// ReadingHandler ingests readings published on topics shaped like
// "flood/<device_id>/readings". The topic's device segment fills in a missing
// device_id.
func ReadingHandler(parse PayloadParser, ingester Ingester) MessageHandler {
	return func(ctx context.Context, topic string, payload []byte) error {
		raw, err := parse(payload)
		if err != nil {
			return err
		}

		if id, _ := raw["device_id"].(string); strings.TrimSpace(id) == "" {
			if device := deviceFromTopic(topic); device != "" {
				raw["device_id"] = device
			}
		}

		_, err = ingester.IngestMap(ctx, raw, "mqtt")
		return err
	}
}

func deviceFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[len(parts)-2]
}

// AlertPublisher mirrors triggered alerts onto the broker.
type AlertPublisher struct {
	client *Client
	topic  string
}

func NewAlertPublisher(client *Client, topic string) *AlertPublisher {
	return &AlertPublisher{client: client, topic: topic}
}

func (p *AlertPublisher) Publish(ctx context.Context, event models.AlertEvent) error {
	return p.client.PublishJSON(ctx, p.topic, event)
}

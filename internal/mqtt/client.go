package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"FloodMonitorAPI/internal/config"
	"FloodMonitorAPI/internal/logger"
)

const (
	operationTimeout = 5 * time.Second
	handlerTimeout   = 15 * time.Second
)

// MessageHandler processes one inbound message. ctx is bounded per message.
type MessageHandler func(ctx context.Context, topic string, payload []byte) error

type Client struct {
	client   mqtt.Client
	cfg      *config.MQTTConfig
	log      *logger.Logger
	handlers map[string]MessageHandler

	mu             sync.RWMutex
	connected      bool
	lastConnected  time.Time
	lastDisconnect time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

type ClientConfig struct {
	MQTT   *config.MQTTConfig
	Logger *logger.Logger
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.MQTT == nil {
		return nil, fmt.Errorf("mqtt config cannot be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		cfg:      cfg.MQTT,
		log:      cfg.Logger,
		handlers: make(map[string]MessageHandler),
		ctx:      ctx,
		cancel:   cancel,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTT.BrokerURL())
	opts.SetClientID(cfg.MQTT.ClientID)
	opts.SetKeepAlive(cfg.MQTT.KeepAlive)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(cfg.MQTT.ConnectTimeout)
	opts.SetAutoReconnect(cfg.MQTT.AutoReconnect)
	opts.SetCleanSession(true)
	opts.SetOrderMatters(false)

	if cfg.MQTT.Username != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}

	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetReconnectingHandler(c.onReconnecting)

	c.client = mqtt.NewClient(opts)

	return c, nil
}

func (c *Client) Connect() error {
	c.log.Info("Connecting to MQTT broker: %s", c.cfg.BrokerURL())

	token := c.client.Connect()
	if !token.WaitTimeout(c.cfg.ConnectTimeout) {
		return fmt.Errorf("connection timeout after %v", c.cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	c.log.Info("Connected to MQTT broker")
	return nil
}

func (c *Client) Disconnect() error {
	c.log.Info("Disconnecting from MQTT broker")

	c.cancel()

	c.mu.Lock()
	c.connected = false
	c.lastDisconnect = time.Now()
	c.mu.Unlock()

	c.client.Disconnect(250)
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.client.IsConnected()
}

// Subscribe registers handler for topic. Registered topics are re-subscribed
// after every reconnect.
func (c *Client) Subscribe(topic string, handler MessageHandler) error {
	c.mu.Lock()
	c.handlers[topic] = handler
	c.mu.Unlock()

	if !c.IsConnected() {
		return fmt.Errorf("not connected to broker")
	}
	return c.subscribe(c.client, topic)
}

func (c *Client) subscribe(client mqtt.Client, topic string) error {
	c.log.Debug("Subscribing to topic: %s (QoS: %d)", topic, c.cfg.QoS)

	token := client.Subscribe(topic, c.cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		c.handleMessage(msg)
	})
	if !token.WaitTimeout(operationTimeout) {
		return fmt.Errorf("subscribe timeout for topic: %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe failed for topic %s: %w", topic, err)
	}

	c.log.Info("Subscribed to topic: %s", topic)
	return nil
}

func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	if !c.IsConnected() {
		return fmt.Errorf("not connected to broker")
	}

	c.log.Debug("Publishing to topic: %s (size: %d bytes)", topic, len(payload))

	token := c.client.Publish(topic, c.cfg.QoS, c.cfg.RetainMessages, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish to %s: %w", topic, ctx.Err())
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("publish failed for topic %s: %w", topic, err)
	}
	return nil
}

func (c *Client) PublishJSON(ctx context.Context, topic string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return c.Publish(ctx, topic, payload)
}

func (c *Client) handlerFor(topic string) (MessageHandler, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if h, ok := c.handlers[topic]; ok {
		return h, true
	}
	for pattern, h := range c.handlers {
		if matchTopic(pattern, topic) {
			return h, true
		}
	}
	return nil, false
}

func (c *Client) handleMessage(msg mqtt.Message) {
	topic := msg.Topic()
	payload := msg.Payload()

	c.log.Debug("Received message on topic: %s (size: %d bytes)", topic, len(payload))

	handler, ok := c.handlerFor(topic)
	if !ok {
		c.log.Warn("No handler found for topic: %s", topic)
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, handlerTimeout)
	defer cancel()

	if err := handler(ctx, topic, payload); err != nil {
		c.log.Error("Handler error for topic %s: %v", topic, err)
	}
}

func (c *Client) onConnect(client mqtt.Client) {
	c.mu.Lock()
	c.connected = true
	c.lastConnected = time.Now()
	topics := make([]string, 0, len(c.handlers))
	for topic := range c.handlers {
		topics = append(topics, topic)
	}
	c.mu.Unlock()

	c.log.Info("MQTT connection established")

	// Subscribing inside the connect callback must not block paho's router.
	go func() {
		for _, topic := range topics {
			if err := c.subscribe(client, topic); err != nil {
				c.log.Error("Failed to re-subscribe to %s: %v", topic, err)
			}
		}
	}()
}

func (c *Client) onConnectionLost(_ mqtt.Client, err error) {
	c.mu.Lock()
	c.connected = false
	c.lastDisconnect = time.Now()
	c.mu.Unlock()

	c.log.Error("MQTT connection lost: %v", err)
}

func (c *Client) onReconnecting(mqtt.Client, *mqtt.ClientOptions) {
	c.log.Warn("Attempting to reconnect to MQTT broker...")
}

// matchTopic applies MQTT wildcard rules: "+" matches one level, a trailing
// "#" matches the remainder.
func matchTopic(pattern, topic string) bool {
	if pattern == topic {
		return true
	}

	patternParts := strings.Split(pattern, "/")
	topicParts := strings.Split(topic, "/")

	for i, part := range patternParts {
		if part == "#" {
			return i == len(patternParts)-1
		}
		if i >= len(topicParts) {
			return false
		}
		if part != "+" && part != topicParts[i] {
			return false
		}
	}

	return len(patternParts) == len(topicParts)
}

package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"satquery/internal/config"
	"satquery/internal/metrics"
)

// Handler turns one request payload into a reply payload. A nil reply means
// nothing is published.
type Handler func(ctx context.Context, payload []byte) []byte

// Responder answers requests on the request topic by publishing replies on
// the response topic.
type Responder struct {
	client    mqtt.Client
	cfg       config.Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
	handler   Handler
	mu        sync.RWMutex
	connected bool

	// base context for handler calls, canceled by Disconnect
	ctx    context.Context
	cancel context.CancelFunc

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewResponder(cfg config.Config, logger *slog.Logger, m *metrics.Metrics, handler Handler) (*Responder, error) {
	if handler == nil {
		return nil, fmt.Errorf("mqtt responder: nil handler")
	}
	if cfg.MQTTRequestTopic == "" || cfg.MQTTResponseTopic == "" {
		return nil, fmt.Errorf("mqtt responder: request and response topics are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Responder{
		cfg:     cfg,
		logger:  logger.With("component", "mqtt"),
		metrics: m,
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
		stopCh:  make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetCleanSession(true)
	// handlers publish and wait for the ack, so they must not run on the
	// client's router goroutine
	opts.SetOrderMatters(false)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// clean sessions drop subscriptions, so subscribe on every (re)connect
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		s.setConnected(true)
		s.logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
		if err := s.subscribe(c); err != nil {
			s.logger.Error("mqtt subscribe failed", "topic", cfg.MQTTRequestTopic, "error", err)
		}
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.setConnected(false)
		s.logger.Warn("mqtt connection lost", "error", err)
	})

	s.client = mqtt.NewClient(opts)
	return s, nil
}

// Connect blocks until the first connection succeeds, ctx ends, or the
// responder is stopped. When ctx ends first the client goes on retrying in
// the background; only Disconnect stops it.
func (s *Responder) Connect(ctx context.Context) error {
	select {
	case <-s.stopCh:
		return fmt.Errorf("responder stopped")
	default:
	}

	if s.IsConnected() {
		return nil
	}

	token := s.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			// the client keeps retrying and subscribes once it gets through
			return ctx.Err()
		case <-s.stopCh:
			s.client.Disconnect(0)
			return fmt.Errorf("responder stopped")
		default:
		}
	}
}

func (s *Responder) subscribe(c mqtt.Client) error {
	topic := s.cfg.MQTTRequestTopic
	const qos = byte(1)

	token := c.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		s.handleMessage(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	s.logger.Info("subscribed to mqtt topic", "topic", topic, "qos", qos)
	return nil
}

func (s *Responder) handleMessage(topic string, payload []byte) {
	s.logger.Debug("received mqtt message", "topic", topic, "size", len(payload))
	s.metrics.MQTTMessage("in", "received")

	reply := s.handler(s.ctx, payload)
	if reply == nil {
		return
	}
	if err := s.publish(reply); err != nil {
		s.metrics.MQTTMessage("out", "error")
		s.logger.Error("publish reply failed", "topic", s.cfg.MQTTResponseTopic, "error", err)
		return
	}
	s.metrics.MQTTMessage("out", "published")
}

func (s *Responder) publish(payload []byte) error {
	token := s.client.Publish(s.cfg.MQTTResponseTopic, 1, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout for topic %s", s.cfg.MQTTResponseTopic)
	}
	return token.Error()
}

func (s *Responder) IsConnected() bool {
	s.mu.RLock()
	connected := s.connected
	s.mu.RUnlock()
	return connected && s.client.IsConnected()
}

// Disconnect stops the responder. Safe to call more than once.
func (s *Responder) Disconnect() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.cancel()

		if s.client != nil && s.IsConnected() {
			token := s.client.Unsubscribe(s.cfg.MQTTRequestTopic)
			token.WaitTimeout(2 * time.Second)
		}
		if s.client != nil {
			s.client.Disconnect(250)
		}

		s.setConnected(false)
		s.logger.Info("mqtt responder disconnected")
	})
}

func (s *Responder) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}

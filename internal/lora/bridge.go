package lora

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/ruralsys/farm-telemetry/internal/config"
	"github.com/ruralsys/farm-telemetry/internal/ingest"
	"github.com/ruralsys/farm-telemetry/internal/metrics"
	"github.com/sirupsen/logrus"
)

// UplinkApplier persists one decoded uplink.
type UplinkApplier interface {
	Uplink(ctx context.Context, r ingest.UplinkReport) (ingest.UplinkResult, error)
}

// Bridge subscribes to the network server's uplink topic and feeds every
// message through the ingestion service with the configured property token.
type Bridge struct {
	cfg     config.MQTTConfig
	service UplinkApplier
	metrics *metrics.Metrics
	logger  *logrus.Entry
	client  mqtt.Client
}

func NewBridge(cfg config.MQTTConfig, service UplinkApplier, m *metrics.Metrics, logger *logrus.Entry) *Bridge {
	return &Bridge{
		cfg:     cfg,
		service: service,
		metrics: m,
		logger:  logger.WithField("component", "mqtt-bridge"),
	}
}

// Start connects to the broker and subscribes. Messages are handled until Stop
// is called; ctx bounds every message's transaction.
func (b *Bridge) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(b.cfg.Broker)
	opts.SetClientID(b.cfg.ClientID)
	if b.cfg.Username != "" {
		opts.SetUsername(b.cfg.Username)
	}
	if b.cfg.Password != "" {
		opts.SetPassword(b.cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetOrderMatters(false)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		b.logger.WithError(err).Warn("broker connection lost")
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		if err := b.Handle(ctx, msg.Topic(), msg.Payload()); err != nil {
			b.logger.WithError(err).WithField("topic", msg.Topic()).Warn("uplink rejected")
		}
	}
	if token := client.Subscribe(b.cfg.Topic, b.cfg.QoS, handler); token.Wait() && token.Error() != nil {
		client.Disconnect(250)
		return fmt.Errorf("failed to subscribe to topic %s: %w", b.cfg.Topic, token.Error())
	}

	b.client = client
	b.logger.WithFields(logrus.Fields{"broker": b.cfg.Broker, "topic": b.cfg.Topic}).Info("subscribed to uplinks")
	return nil
}

func (b *Bridge) Stop() {
	if b.client == nil {
		return
	}
	if token := b.client.Unsubscribe(b.cfg.Topic); token.Wait() && token.Error() != nil {
		b.logger.WithError(token.Error()).Warn("unsubscribe failed")
	}
	b.client.Disconnect(250)
	b.client = nil
}

// Handle decodes one uplink and applies it. A payload without device_id takes
// the device from the last topic segment.
func (b *Bridge) Handle(ctx context.Context, topic string, payload []byte) error {
	var report ingest.UplinkReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return fmt.Errorf("malformed uplink: %w", err)
	}
	if !report.DeviceID.Present() {
		if i := strings.LastIndex(topic, "/"); i >= 0 && i < len(topic)-1 {
			report.DeviceID = ingest.Text(topic[i+1:])
		}
	}
	report.Token = ingest.Text(b.cfg.APIToken)

	start := time.Now()
	res, err := b.service.Uplink(ctx, report)
	b.metrics.Observe("uplink", err, time.Since(start))
	if err != nil {
		return err
	}

	b.logger.WithField("device", res.Device).Debug("uplink applied")
	return nil
}

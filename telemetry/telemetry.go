// Package telemetry publishes registration and PDP changes to an MQTT
// broker as retained JSON messages.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/simensrostad/mailpal/pdp"
	"github.com/simensrostad/mailpal/registration"
	"github.com/simensrostad/mailpal/signal"
)

// Config holds the broker connection settings.
type Config struct {
	Broker   string
	ClientID string
	Topic    string
	Username string
	Password string
}

// Client is the part of mqtt.Client the Publisher needs.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
}

var _ Client = (mqtt.Client)(nil)

// Connect dials the broker and waits for the connection to be established.
// The client reconnects on its own afterwards.
func Connect(ctx context.Context, config Config, logger *slog.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(clientID(config))
	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("MQTT connected", "broker", config.Broker)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", config.Broker, err)
	}
	return client, nil
}

// clientID returns the configured client id, or a random one so that two
// devices never share a broker session.
func clientID(config Config) string {
	if config.ClientID != "" {
		return config.ClientID
	}
	return "mailpal-" + uuid.NewString()
}

// Publisher forwards every value of its signals to <topic>/registration and
// <topic>/pdp.
type Publisher struct {
	client        Client
	topic         string
	boot          string
	timeout       time.Duration
	logger        *slog.Logger
	registrations *signal.Signal[registration.Status]
	connectivity  *signal.Signal[pdp.Status]
	now           func() time.Time
}

// NewPublisher creates a Publisher. The signals must be dedicated to it.
func NewPublisher(
	client Client,
	topic string,
	registrations *signal.Signal[registration.Status],
	connectivity *signal.Signal[pdp.Status],
	logger *slog.Logger,
) *Publisher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Publisher{
		client:        client,
		topic:         topic,
		boot:          uuid.NewString(),
		timeout:       5 * time.Second,
		logger:        logger.With("component", "telemetry"),
		registrations: registrations,
		connectivity:  connectivity,
		now:           time.Now,
	}
}

// RegistrationMessage is the payload published on <topic>/registration.
// Boot is a random id drawn once per Publisher so subscribers can tell a
// restart from a status change.
type RegistrationMessage struct {
	Code       uint8     `json:"code"`
	Status     string    `json:"status"`
	Registered bool      `json:"registered"`
	Boot       string    `json:"boot"`
	Time       time.Time `json:"time"`
}

// PDPMessage is the payload published on <topic>/pdp.
type PDPMessage struct {
	pdp.Status
	Boot string    `json:"boot"`
	Time time.Time `json:"time"`
}

// Run publishes until ctx is done. Failed publishes are logged and dropped.
func (p *Publisher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			status, err := p.registrations.Wait(ctx)
			if err != nil {
				return err
			}
			p.publish(p.topic+"/registration", RegistrationMessage{
				Code:       uint8(status),
				Status:     status.String(),
				Registered: status.IsRegistered(),
				Boot:       p.boot,
				Time:       p.now(),
			})
		}
	})

	g.Go(func() error {
		for {
			status, err := p.connectivity.Wait(ctx)
			if err != nil {
				return err
			}
			p.publish(p.topic+"/pdp", PDPMessage{Status: status, Boot: p.boot, Time: p.now()})
		}
	})

	return g.Wait()
}

func (p *Publisher) publish(topic string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		p.logger.Error("Failed to encode telemetry", "topic", topic, "error", err)
		return
	}

	token := p.client.Publish(topic, 1, true, payload)
	if !token.WaitTimeout(p.timeout) {
		p.logger.Warn("Telemetry publish timed out", "topic", topic)
		return
	}
	if err := token.Error(); err != nil {
		p.logger.Warn("Telemetry publish failed", "topic", topic, "error", err)
		return
	}
	p.logger.Debug("Telemetry published", "topic", topic, "payload", string(payload))
}

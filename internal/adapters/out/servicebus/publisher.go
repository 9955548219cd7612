// Package servicebus publishes dispatch events to an Azure Service Bus queue or topic.
package servicebus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dispatch/internal/core/domain/events"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/pkg/errors"
)

const source = "dispatch"

// Sender is the part of *azservicebus.Sender used by Publisher.
type Sender interface {
	SendMessage(ctx context.Context, message *azservicebus.Message, options *azservicebus.SendMessageOptions) error
	Close(ctx context.Context) error
}

type Config struct {
	ConnectionString string
	// Entity is the queue or topic name.
	Entity string
}

// Publisher sends every event to a single entity. Subscribers filter on the
// message subject, which carries the event name.
type Publisher struct {
	client *azservicebus.Client
	sender Sender
	now    func() time.Time
}

// NewPublisher connects to Service Bus and opens a sender for cfg.Entity.
func NewPublisher(cfg Config) (*Publisher, error) {
	if cfg.ConnectionString == "" {
		return nil, errors.New("service bus connection string is empty")
	}
	if cfg.Entity == "" {
		return nil, errors.New("service bus entity is empty")
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create service bus client")
	}

	sender, err := client.NewSender(cfg.Entity, nil)
	if err != nil {
		_ = client.Close(context.Background())
		return nil, errors.Wrap(err, "failed to create service bus sender")
	}

	p := NewPublisherWithSender(sender)
	p.client = client
	return p, nil
}

// NewPublisherWithSender wraps an already opened sender.
func NewPublisherWithSender(sender Sender) *Publisher {
	return &Publisher{
		sender: sender,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal %s", event.Name())
	}

	name := event.Name()
	key := event.Key()
	contentType := "application/json"
	msg := &azservicebus.Message{
		Body:          body,
		ContentType:   &contentType,
		Subject:       &name,
		CorrelationID: &key,
		ApplicationProperties: map[string]any{
			"event":  name,
			"source": source,
			"time":   p.now().Format(time.RFC3339),
		},
	}

	if err = p.sender.SendMessage(ctx, msg, nil); err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to send %s", name))
	}
	return nil
}

func (p *Publisher) Close(ctx context.Context) error {
	if p.sender != nil {
		if err := p.sender.Close(ctx); err != nil {
			return err
		}
	}
	if p.client != nil {
		return p.client.Close(ctx)
	}
	return nil
}

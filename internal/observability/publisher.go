package observability

import "context"

// Publisher ships JSON events to the event bus. The rabbitmq package
// provides the production implementation; the process shares one
// connection between audit records and session events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
}

var defaultPublisher Publisher

// SetPublisher installs the process-wide event publisher. Nil leaves
// event publishing disabled.
func SetPublisher(publisher Publisher) {
	defaultPublisher = publisher
}

// PublishEvent sends a session event through the installed publisher,
// if any.
func PublishEvent(ctx context.Context, routingKey string, envelope EventEnvelope, headers map[string]string) error {
	if defaultPublisher == nil {
		return nil
	}

	if err := defaultPublisher.Publish(ctx, routingKey, envelope, headers); err != nil {
		IncAMQPPublishError()
		return err
	}
	return nil
}

package events

import (
	"context"

	"github.com/posthog/posthog-go"
)

// PostHogPublisher forwards events to PostHog as captures.
type PostHogPublisher struct {
	client posthog.Client
}

func NewPostHogPublisher(client posthog.Client) *PostHogPublisher {
	return &PostHogPublisher{client: client}
}

func (p *PostHogPublisher) Publish(_ context.Context, event Event) error {
	properties := posthog.NewProperties()
	for k, v := range event.Payload {
		properties.Set(k, v)
	}

	return p.client.Enqueue(posthog.Capture{
		DistinctId: event.Subject,
		Event:      string(event.Type),
		Timestamp:  event.OccurredAt,
		Properties: properties,
	})
}
